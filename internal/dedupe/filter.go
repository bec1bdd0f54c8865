package dedupe

import (
	"context"
	"log/slog"

	"feedloom/internal/logger"
	"feedloom/internal/types"
	"feedloom/internal/utils"
)

// Lookup is the slice of the storage layer the filter needs.
type Lookup interface {
	FindStoredIdentity(ctx context.Context, provider, sourceItemID string) (id int64, found bool, err error)
	GetHiddenItemIDs(ctx context.Context, userID string) (map[int64]struct{}, error)
}

// Filter drops items a user has hidden, plus repeats of the same
// (provider, sourceItemId) within one batch. Storage errors never remove
// items.
type Filter struct {
	store  Lookup
	logger *slog.Logger
}

func New(store Lookup, l *slog.Logger) *Filter {
	return &Filter{store: store, logger: logger.OrDefault(l)}
}

func (f *Filter) Apply(ctx context.Context, items []types.ContentItem, userID string) []types.ContentItem {
	seen := make(map[types.ItemKey]struct{}, len(items))
	unique := utils.FilterArray(items, func(item types.ContentItem) bool {
		if _, dup := seen[item.Key()]; dup {
			return false
		}
		seen[item.Key()] = struct{}{}
		return true
	})

	if userID == "" || len(unique) == 0 {
		return unique
	}

	hidden, err := f.store.GetHiddenItemIDs(ctx, userID)
	if err != nil {
		f.logger.Error("Failed to load hidden items, skipping filter", "user", userID, "error", err)
		return unique
	}
	if len(hidden) == 0 {
		return unique
	}

	dropped := 0
	visible := utils.FilterArray(unique, func(item types.ContentItem) bool {
		id, found, err := f.store.FindStoredIdentity(ctx, item.Provider, item.SourceItemID)
		if err != nil {
			f.logger.Warn("Identity lookup failed, keeping item", "item", item.Key().String(), "error", err)
			return true
		}
		if !found {
			return true
		}
		if _, isHidden := hidden[id]; isHidden {
			dropped++
			return false
		}
		return true
	})

	if dropped > 0 {
		f.logger.Debug("Dropped hidden items", "user", userID, "dropped", dropped)
	}
	return visible
}
