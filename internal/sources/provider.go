package sources

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strings"

	"feedloom/internal/transport"
	"feedloom/internal/types"
)

// Provider extracts raw items from one upstream API. An empty searchTerm
// selects the provider's discover request; anything else selects search.
type Provider interface {
	Name() string
	Category() types.Category
	ExcerptExempt() bool
	Fetch(ctx context.Context, searchTerm string) ([]types.RawItem, error)
}

type Options struct {
	Name          string
	BaseURL       string
	Token         string
	MaxItems      int
	ExcerptExempt *bool
	Settings      map[string]interface{}
	Logger        *slog.Logger
}

type base struct {
	name      string
	category  types.Category
	baseURL   string
	maxItems  int
	exempt    bool
	transport *transport.Transport
	logger    *slog.Logger
}

func newBase(t *transport.Transport, opts Options, defaultName string, category types.Category, defaultURL string, defaultMax int) base {
	b := base{
		name:      opts.Name,
		category:  category,
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		maxItems:  opts.MaxItems,
		transport: t,
		logger:    opts.Logger,
	}

	if b.name == "" {
		b.name = defaultName
	}
	if b.baseURL == "" {
		b.baseURL = defaultURL
	}
	if b.maxItems <= 0 {
		b.maxItems = defaultMax
	}
	if opts.ExcerptExempt != nil {
		b.exempt = *opts.ExcerptExempt
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	b.logger = b.logger.With("provider", b.name)

	return b
}

func (b *base) Name() string {
	return b.name
}

func (b *base) Category() types.Category {
	return b.category
}

func (b *base) ExcerptExempt() bool {
	return b.exempt
}

func (b *base) getJSON(ctx context.Context, url string, headers http.Header, out interface{}) error {
	resp, err := b.transport.Get(ctx, b.name, url, headers)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(resp.Body, out); err != nil {
		return types.NewParseError(b.name, "json", err)
	}

	return nil
}

func (b *base) raw(id string) types.RawItem {
	return types.RawItem{
		SourceItemID: id,
		Provider:     b.name,
		Category:     b.category,
	}
}

func searching(term string) (string, bool) {
	term = strings.TrimSpace(term)
	return term, term != ""
}

func pick(options []string) string {
	if len(options) == 0 {
		return ""
	}
	return options[rand.IntN(len(options))]
}

func boolPtr(b bool) *bool {
	return &b
}
