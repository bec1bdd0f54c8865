package lua

import (
	"context"
	"log/slog"

	lua "github.com/yuin/gopher-lua"
)

// LogModule routes script log calls to slog. An optional table argument
// becomes structured attributes: log.info("fetched", {count = 3}).
type LogModule struct {
	logger *slog.Logger
}

func NewLogModule(logger *slog.Logger) *LogModule {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogModule{
		logger: logger,
	}
}

func (l *LogModule) Name() string {
	return "log"
}

func (l *LogModule) Register(L *lua.LState) error {
	logTable := L.NewTable()

	L.SetField(logTable, "debug", L.NewFunction(l.at(slog.LevelDebug)))
	L.SetField(logTable, "info", L.NewFunction(l.at(slog.LevelInfo)))
	L.SetField(logTable, "warn", L.NewFunction(l.at(slog.LevelWarn)))
	L.SetField(logTable, "error", L.NewFunction(l.at(slog.LevelError)))

	L.SetGlobal("log", logTable)
	return nil
}

func (l *LogModule) at(level slog.Level) lua.LGFunction {
	return func(L *lua.LState) int {
		message := L.CheckString(1)

		var args []any
		if tbl, ok := L.Get(2).(*lua.LTable); ok {
			tbl.ForEach(func(key, value lua.LValue) {
				if k, ok := key.(lua.LString); ok {
					args = append(args, string(k), ToGoValue(value))
				}
			})
		}

		ctx := L.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		l.logger.Log(ctx, level, message, args...)
		return 0
	}
}
