package sources

import (
	"context"
	"embed"
	"fmt"

	"feedloom/internal/config"
	"feedloom/internal/lua"
	"feedloom/internal/transport"
	"feedloom/internal/types"
)

//go:embed scripts/*.lua
var builtinScripts embed.FS

// Script is a provider implemented in Lua. The script defines
// fetch(query, config) and returns a list of tables with id, title,
// excerpt, url, thumbnail and metadata fields; query is nil in discover
// mode. Each call gets a fresh sandboxed state.
type Script struct {
	base
	loader     lua.Loader
	identifier string
	config     map[string]interface{}
}

func NewScript(t *transport.Transport, opts Options) (*Script, error) {
	builtin := config.GetString(opts.Settings, "script", "")
	path := config.GetString(opts.Settings, "path", "")

	var loader lua.Loader
	var identifier string

	switch {
	case builtin != "" && path != "":
		return nil, fmt.Errorf("script provider %s: set either settings.script or settings.path, not both", opts.Name)
	case builtin != "":
		loader, identifier = lua.NewFSLoader(builtinScripts, "scripts"), builtin
	case path != "":
		loader, identifier = lua.NewFilesystemLoader(config.GetString(opts.Settings, "script_dir", ".")), path
	default:
		return nil, fmt.Errorf("script provider %s: settings.script or settings.path is required", opts.Name)
	}

	if _, err := loader.Load(identifier); err != nil {
		return nil, fmt.Errorf("script provider %s: %w", opts.Name, err)
	}

	category := types.Category(config.GetString(opts.Settings, "category", string(types.CategoryBlogPost)))
	if !category.Valid() {
		return nil, fmt.Errorf("script provider %s: invalid category %q", opts.Name, category)
	}

	s := &Script{
		base:       newBase(t, opts, identifier, category, "", 10),
		loader:     loader,
		identifier: identifier,
		config:     make(map[string]interface{}, len(opts.Settings)+2),
	}

	for k, v := range opts.Settings {
		s.config[k] = v
	}
	s.config["max_items"] = s.maxItems
	if opts.BaseURL != "" {
		s.config["base_url"] = s.baseURL
	}

	return s, nil
}

func (s *Script) Fetch(ctx context.Context, searchTerm string) ([]types.RawItem, error) {
	source, err := s.loader.Load(s.identifier)
	if err != nil {
		return nil, err
	}

	scope := s.transport.NewScope(ctx, s.name)

	runtime, err := lua.NewRuntime(
		lua.WithLoader(s.loader),
		lua.WithSecureMode(true),
		lua.WithHTTPClient(scope.Client()),
		lua.WithJSON(),
		lua.WithModules(lua.NewHTMLModule(), lua.NewLogModule(s.logger)),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = runtime.Close() }()

	if err := runtime.LoadScript(source); err != nil {
		return nil, types.NewParseError(s.name, "lua", err)
	}

	var query interface{}
	if term, ok := searching(searchTerm); ok {
		query = term
	}

	results, err := runtime.Execute(ctx, "fetch", query, s.config)
	if err != nil {
		// a script that gave up after a 429 is retried like any other provider
		if rl := scope.RateLimited(); rl != nil {
			return nil, rl
		}
		return nil, fmt.Errorf("script %s failed: %w", s.identifier, err)
	}

	if len(results) == 0 || results[0] == nil {
		return []types.RawItem{}, nil
	}

	return s.convertResults(results[0])
}

func (s *Script) convertResults(result interface{}) ([]types.RawItem, error) {
	var entries []interface{}

	switch v := result.(type) {
	case []interface{}:
		entries = v
	case map[string]interface{}:
		// an empty Lua table converts to an empty map
		if len(v) > 0 {
			return nil, types.NewParseError(s.name, "lua", fmt.Errorf("expected list of items, got table"))
		}
	default:
		return nil, types.NewParseError(s.name, "lua", fmt.Errorf("expected list of items, got %T", result))
	}

	items := make([]types.RawItem, 0, len(entries))
	for i, entry := range entries {
		m, ok := entry.(map[string]interface{})
		if !ok {
			s.logger.Warn("Skipping invalid script item", "index", i, "type", fmt.Sprintf("%T", entry))
			continue
		}

		item := s.raw(stringField(m, "id"))
		item.Title = stringField(m, "title")
		item.Excerpt = stringField(m, "excerpt")
		item.CanonicalURL = stringField(m, "url")
		item.ThumbnailURL = stringField(m, "thumbnail")
		if meta, ok := m["metadata"].(map[string]interface{}); ok {
			item.Metadata = meta
		}

		items = append(items, item)
		if len(items) == s.maxItems {
			break
		}
	}

	return items, nil
}

func stringField(m map[string]interface{}, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	}
	return ""
}
