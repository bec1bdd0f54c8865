package lua

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cjoudrey/gluahttp"
	lua "github.com/yuin/gopher-lua"
	json "layeh.com/gopher-json"
)

// Module is a Go-backed global table made available to scripts.
type Module interface {
	Name() string
	Register(L *lua.LState) error
}

// Runtime wraps one Lua state. A state is not safe for concurrent use, so
// callers create a runtime per execution.
type Runtime struct {
	state      *lua.LState
	secureMode bool
	modules    []Module
}

type RuntimeOption func(*Runtime)

func WithLoader(loader Loader) RuntimeOption {
	return func(r *Runtime) {
		if loader != nil {
			SetupRequire(r.state, loader)
		}
	}
}

func WithSecureMode(secure bool) RuntimeOption {
	return func(r *Runtime) {
		r.secureMode = secure
	}
}

// WithHTTPClient makes require("http") available, backed by client.
func WithHTTPClient(client *http.Client) RuntimeOption {
	return func(r *Runtime) {
		if client != nil {
			r.state.PreloadModule("http", gluahttp.NewHttpModule(client).Loader)
		}
	}
}

// WithJSON makes require("json") available.
func WithJSON() RuntimeOption {
	return func(r *Runtime) {
		json.Preload(r.state)
	}
}

func WithModules(modules ...Module) RuntimeOption {
	return func(r *Runtime) {
		r.modules = append(r.modules, modules...)
	}
}

func NewRuntime(options ...RuntimeOption) (*Runtime, error) {
	L := lua.NewState()

	runtime := &Runtime{
		state:      L,
		secureMode: true,
	}

	for _, opt := range options {
		opt(runtime)
	}

	for _, module := range runtime.modules {
		if err := module.Register(L); err != nil {
			L.Close()
			return nil, fmt.Errorf("failed to register %s module: %w", module.Name(), err)
		}
	}

	if runtime.secureMode {
		runtime.setupSecureState()
	}

	return runtime, nil
}

func (r *Runtime) State() *lua.LState {
	return r.state
}

func (r *Runtime) setupSecureState() {
	r.state.SetGlobal("os", lua.LNil)
	r.state.SetGlobal("io", lua.LNil)
	r.state.SetGlobal("debug", lua.LNil)
	r.state.SetGlobal("dofile", lua.LNil)
	r.state.SetGlobal("loadfile", lua.LNil)
}

func (r *Runtime) LoadScript(scriptContent string) error {
	if err := r.state.DoString(scriptContent); err != nil {
		return fmt.Errorf("failed to load script: %w", err)
	}
	return nil
}

// Execute calls a global function. Cancelling ctx aborts the script.
func (r *Runtime) Execute(ctx context.Context, functionName string, args ...interface{}) ([]interface{}, error) {
	fn, ok := r.state.GetGlobal(functionName).(*lua.LFunction)
	if !ok {
		return nil, fmt.Errorf("function %s not found", functionName)
	}

	r.state.SetContext(ctx)
	defer r.state.RemoveContext()

	r.state.Push(fn)
	for _, arg := range args {
		r.state.Push(ToLuaValue(r.state, arg))
	}

	if err := r.state.PCall(len(args), lua.MultRet, nil); err != nil {
		return nil, fmt.Errorf("lua execution error: %w", err)
	}

	numResults := r.state.GetTop()
	results := make([]interface{}, numResults)
	for i := 1; i <= numResults; i++ {
		results[i-1] = ToGoValue(r.state.Get(i))
	}

	r.state.SetTop(0)

	return results, nil
}

func (r *Runtime) Close() error {
	if r.state != nil {
		r.state.Close()
	}
	return nil
}
