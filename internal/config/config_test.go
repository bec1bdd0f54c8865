package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedloom/internal/config"
)

func TestDefaults(t *testing.T) {
	cfg := config.Default()

	assert.Equal(t, 3, cfg.Aggregator.MaxRetries)
	assert.Equal(t, 10*time.Second, cfg.Aggregator.RequestTimeoutDuration())
	assert.Equal(t, time.Second, cfg.Aggregator.RetryDelayDuration())
	assert.Equal(t, 50, cfg.Aggregator.MinExcerptLength)
	assert.Equal(t, 50, cfg.Aggregator.MaxResultItems)
	assert.Equal(t, 2, cfg.RateLimit.MaxRequests)
	assert.Equal(t, time.Second, cfg.RateLimit.PerDuration())
	assert.True(t, cfg.Thumbnails.Enabled)
	assert.Equal(t, "wikimedia", cfg.Thumbnails.Searcher)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, 10, cfg.Server.PageSize)

	for _, name := range config.BuiltinProviders {
		p, ok := cfg.Providers[name]
		require.True(t, ok, name)
		assert.True(t, p.Enabled, name)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedloom.toml")
	data := `
[aggregator]
max_retries = 0
min_excerpt_length = 80
max_result_items = 20
request_timeout = "3s"

[rate_limit]
max_requests = 5
per = "2s"

[thumbnails]
enabled = false

[providers.wikipedia]
enabled = true

[providers.github]
enabled = true
excerpt_exempt = false
settings = { topics = ["go", "rust"] }

[providers.papers]
type = "arxiv"
enabled = false
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 0, cfg.Aggregator.MaxRetries)
	assert.Equal(t, 80, cfg.Aggregator.MinExcerptLength)
	assert.Equal(t, 20, cfg.Aggregator.MaxResultItems)
	assert.Equal(t, 3*time.Second, cfg.Aggregator.RequestTimeoutDuration())
	assert.Equal(t, 5, cfg.RateLimit.MaxRequests)
	assert.False(t, cfg.Thumbnails.Enabled)

	require.Len(t, cfg.Providers, 3)
	gh := cfg.Providers["github"]
	require.NotNil(t, gh.ExcerptExempt)
	assert.False(t, *gh.ExcerptExempt)
	assert.Equal(t, []string{"go", "rust"}, config.GetStringSlice(gh.Settings, "topics"))
	assert.Equal(t, "arxiv", cfg.Providers["papers"].TypeName("papers"))
	assert.Equal(t, "wikipedia", cfg.Providers["wikipedia"].TypeName("wikipedia"))
}

func TestEnvOverridesSecrets(t *testing.T) {
	t.Setenv("FEEDLOOM_GITHUB_TOKEN", "ghp_test")
	t.Setenv("FEEDLOOM_REDIS_URL", "redis://localhost:6379/0")

	cfg, err := config.Parse([]byte(`
[cache]
backend = "redis"
`))
	require.NoError(t, err)

	assert.Equal(t, "ghp_test", cfg.Providers["github"].Token)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Cache.RedisURL)
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"bad duration", "[aggregator]\nrequest_timeout = \"soon\"\n"},
		{"negative retries", "[aggregator]\nmax_retries = -1\n"},
		{"unknown searcher", "[thumbnails]\nsearcher = \"bing\"\n"},
		{"unsplash without key", "[thumbnails]\nsearcher = \"unsplash\"\n"},
		{"redis without url", "[cache]\nbackend = \"redis\"\n"},
		{"no enabled providers", "[providers.wikipedia]\nenabled = false\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Parse([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}
