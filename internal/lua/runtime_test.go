package lua

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRuntime(t *testing.T, opts ...RuntimeOption) *Runtime {
	t.Helper()

	rt, err := NewRuntime(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })
	return rt
}

func TestExecuteReturnsGoValues(t *testing.T) {
	rt := newTestRuntime(t, WithJSON())

	require.NoError(t, rt.LoadScript(`
local json = require("json")
function fetch(query, config)
  local decoded = json.decode('{"n": 2}')
  return {
    { id = "1", title = query, count = decoded.n, tags = config.tags },
  }
end
`))

	results, err := rt.Execute(context.Background(), "fetch", "golang", map[string]interface{}{
		"tags": []string{"a", "b"},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)

	items, ok := results[0].([]interface{})
	require.True(t, ok)
	item := items[0].(map[string]interface{})

	assert.Equal(t, "golang", item["title"])
	assert.Equal(t, float64(2), item["count"])
	assert.Equal(t, []interface{}{"a", "b"}, item["tags"])
}

func TestSecureModeRemovesOS(t *testing.T) {
	rt := newTestRuntime(t)

	require.NoError(t, rt.LoadScript(`function sandboxed() return os == nil and io == nil end`))

	results, err := rt.Execute(context.Background(), "sandboxed")
	require.NoError(t, err)
	assert.Equal(t, true, results[0])
}

func TestExecuteMissingFunction(t *testing.T) {
	rt := newTestRuntime(t)

	_, err := rt.Execute(context.Background(), "fetch")
	assert.Error(t, err)
}

func TestExecuteHonoursContext(t *testing.T) {
	rt := newTestRuntime(t)
	require.NoError(t, rt.LoadScript(`function spin() while true do end end`))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := rt.Execute(ctx, "spin")
	assert.Error(t, err)
}

func TestRequireThroughFSLoader(t *testing.T) {
	fsys := fstest.MapFS{
		"scripts/helpers.lua": {Data: []byte(`return { double = function(n) return n * 2 end }`)},
	}
	rt := newTestRuntime(t, WithLoader(NewFSLoader(fsys, "scripts")))

	require.NoError(t, rt.LoadScript(`
local helpers = require("helpers")
function run() return helpers.double(21) end
`))

	results, err := rt.Execute(context.Background(), "run")
	require.NoError(t, err)
	assert.Equal(t, float64(42), results[0])
}

func TestHTMLAndLogModules(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	rt := newTestRuntime(t, WithModules(NewHTMLModule(), NewLogModule(logger)))

	require.NoError(t, rt.LoadScript(`
function run(page)
  local doc = html.parse(page)
  local link = html.select_one(doc, "a.title")
  log.info("parsed", { links = #html.select(doc, "a") })
  return html.text(link), html.attr(link, "href"), html.meta(doc, "og:image"), html.strip("<b>x</b>")
end
`))

	page := `<html><head><meta property="og:image" content="https://img.example/a.png"></head>
<body><a class="title" href="/post/1"> Hello   world </a><a href="/2">two</a></body></html>`

	results, err := rt.Execute(context.Background(), "run", page)
	require.NoError(t, err)

	assert.Equal(t, []interface{}{"Hello world", "/post/1", "https://img.example/a.png", "x"}, results)
	assert.Contains(t, buf.String(), "links=2")
}

func TestFilesystemLoaderRefusesEscape(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ok.lua"), []byte("return 1"), 0o600))

	loader := NewFilesystemLoader(dir)

	src, err := loader.Load("ok")
	require.NoError(t, err)
	assert.Equal(t, "return 1", src)

	_, err = loader.Load("../outside")
	assert.Error(t, err)
}
