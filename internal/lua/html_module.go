package lua

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	lua "github.com/yuin/gopher-lua"

	"feedloom/internal/utils"
)

const luaSelectionTypeName = "html_selection"

// HTMLModule exposes goquery to scripts: html.parse returns a document,
// html.select/select_one query it, and the remaining helpers read text,
// attributes and meta tags.
type HTMLModule struct{}

func NewHTMLModule() *HTMLModule {
	return &HTMLModule{}
}

func (h *HTMLModule) Name() string {
	return "html"
}

func (h *HTMLModule) Register(L *lua.LState) error {
	L.NewTypeMetatable(luaSelectionTypeName)

	htmlTable := L.NewTable()
	L.SetFuncs(htmlTable, map[string]lua.LGFunction{
		"parse":      h.parse,
		"select":     h.selectAll,
		"select_one": h.selectOne,
		"text":       h.text,
		"attr":       h.attr,
		"meta":       h.meta,
		"strip":      h.strip,
	})

	L.SetGlobal("html", htmlTable)
	return nil
}

func pushSelection(L *lua.LState, s *goquery.Selection) {
	ud := L.NewUserData()
	ud.Value = s
	L.SetMetatable(ud, L.GetTypeMetatable(luaSelectionTypeName))
	L.Push(ud)
}

func checkSelection(L *lua.LState, n int) *goquery.Selection {
	ud := L.CheckUserData(n)
	s, ok := ud.Value.(*goquery.Selection)
	if !ok {
		L.ArgError(n, "expected html selection")
		return nil
	}
	return s
}

func (h *HTMLModule) parse(L *lua.LState) int {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(L.CheckString(1)))
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(fmt.Sprintf("failed to parse HTML: %s", err.Error())))
		return 2
	}

	pushSelection(L, doc.Selection)
	return 1
}

func (h *HTMLModule) selectAll(L *lua.LState) int {
	found := checkSelection(L, 1).Find(L.CheckString(2))

	elements := L.NewTable()
	found.Each(func(_ int, s *goquery.Selection) {
		ud := L.NewUserData()
		ud.Value = s
		L.SetMetatable(ud, L.GetTypeMetatable(luaSelectionTypeName))
		elements.Append(ud)
	})

	L.Push(elements)
	return 1
}

func (h *HTMLModule) selectOne(L *lua.LState) int {
	found := checkSelection(L, 1).Find(L.CheckString(2)).First()
	if found.Length() == 0 {
		L.Push(lua.LNil)
		return 1
	}

	pushSelection(L, found)
	return 1
}

func (h *HTMLModule) text(L *lua.LState) int {
	L.Push(lua.LString(utils.CollapseWhitespace(checkSelection(L, 1).Text())))
	return 1
}

func (h *HTMLModule) attr(L *lua.LState) int {
	value, ok := checkSelection(L, 1).Attr(L.CheckString(2))
	if !ok {
		L.Push(lua.LNil)
		return 1
	}

	L.Push(lua.LString(value))
	return 1
}

// meta reads <meta property=...> or <meta name=...> content, e.g.
// html.meta(doc, "og:image").
func (h *HTMLModule) meta(L *lua.LState) int {
	sel := checkSelection(L, 1)
	name := L.CheckString(2)

	selector := fmt.Sprintf(`meta[property=%q], meta[name=%q]`, name, name)
	if content, ok := sel.Find(selector).First().Attr("content"); ok {
		L.Push(lua.LString(strings.TrimSpace(content)))
		return 1
	}

	L.Push(lua.LNil)
	return 1
}

func (h *HTMLModule) strip(L *lua.LState) int {
	L.Push(lua.LString(utils.StripHTML(L.CheckString(1))))
	return 1
}
