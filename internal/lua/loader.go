package lua

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// Loader resolves a script name to its source, both for the entry script
// of a scripted provider and for require() inside it.
type Loader interface {
	Load(identifier string) (string, error)
}

// FSLoader reads scripts from an fs.FS, typically an embed.FS of built-in
// provider scripts.
type FSLoader struct {
	fsys     fs.FS
	basePath string
}

func NewFSLoader(fsys fs.FS, basePath string) *FSLoader {
	return &FSLoader{
		fsys:     fsys,
		basePath: basePath,
	}
}

func (e *FSLoader) Load(identifier string) (string, error) {
	name := path.Join(e.basePath, identifier)
	if !strings.HasSuffix(name, ".lua") {
		name += ".lua"
	}

	data, err := fs.ReadFile(e.fsys, name)
	if err != nil {
		return "", fmt.Errorf("failed to load embedded script %s: %w", identifier, err)
	}

	return string(data), nil
}

// FilesystemLoader reads scripts below basePath. Identifiers that would
// escape basePath are refused.
type FilesystemLoader struct {
	basePath string
}

func NewFilesystemLoader(basePath string) *FilesystemLoader {
	return &FilesystemLoader{
		basePath: basePath,
	}
}

func (f *FilesystemLoader) Load(identifier string) (string, error) {
	root, err := filepath.Abs(f.basePath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	full := identifier
	if !filepath.IsAbs(full) {
		full = filepath.Join(root, identifier)
	}
	if !strings.HasSuffix(full, ".lua") {
		full += ".lua"
	}

	rel, err := filepath.Rel(root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("script %s is outside %s", identifier, f.basePath)
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return "", fmt.Errorf("failed to load script %s: %w", identifier, err)
	}

	return string(data), nil
}

// SetupRequire replaces require so that preloaded Go modules (http, json)
// resolve first and everything else goes through loader.
func SetupRequire(L *lua.LState, loader Loader) {
	originalRequire := L.GetGlobal("require")

	customRequire := L.NewFunction(func(L *lua.LState) int {
		module := L.CheckString(1)

		pkg := L.GetField(L.Get(lua.EnvironIndex), "package")
		if tbl, ok := L.GetField(pkg, "preload").(*lua.LTable); ok {
			if L.GetField(tbl, module) != lua.LNil {
				if fn, ok := originalRequire.(*lua.LFunction); ok {
					L.Push(fn)
					L.Push(lua.LString(module))
					L.Call(1, 1)
					return 1
				}
			}
		}

		scriptContent, err := loader.Load(module)
		if err != nil {
			L.RaiseError("failed to require module %s: %s", module, err.Error())
			return 0
		}

		fn, err := L.LoadString(scriptContent)
		if err != nil {
			L.RaiseError("failed to load module %s: %s", module, err.Error())
			return 0
		}

		top := L.GetTop()
		L.Push(fn)
		L.Call(0, lua.MultRet)

		return L.GetTop() - top
	})

	L.SetGlobal("require", customRequire)
}
