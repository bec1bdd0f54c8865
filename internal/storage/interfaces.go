package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"feedloom/internal/types"
)

var ErrNotFound = errors.New("content not found")

type StorageInterface interface {
	GetConnection() *sql.DB
	Contents() ContentStore
	Interactions() InteractionStore
	Close(ctx context.Context) error
}

// StoredContent is a persisted item with its storage id and interaction
// counters.
type StoredContent struct {
	ID int64 `json:"id"`
	types.ContentItem
	Likes   int       `json:"likes"`
	Shares  int       `json:"shares"`
	Reports int       `json:"reports"`
	SeenAt  time.Time `json:"-"`
}

type ContentStore interface {
	// Persist inserts an item or refreshes the stored copy with the same
	// (provider, sourceItemId), returning its id.
	Persist(ctx context.Context, item types.ContentItem) (int64, error)
	PersistAll(ctx context.Context, items []types.ContentItem) ([]int64, error)
	GetContent(ctx context.Context, id int64) (*StoredContent, error)
	// GetContents returns one page (1-based), newest first, optionally for
	// a single provider.
	GetContents(ctx context.Context, page, pageSize int, provider string) ([]StoredContent, error)
	ListRecent(ctx context.Context, limit int) ([]StoredContent, error)
	FindStoredIdentity(ctx context.Context, provider, sourceItemID string) (int64, bool, error)
}

type Action string

const (
	ActionLike   Action = "like"
	ActionShare  Action = "share"
	ActionReport Action = "report"
	ActionHide   Action = "hide"
)

func ParseAction(raw string) (Action, error) {
	switch a := Action(raw); a {
	case ActionLike, ActionShare, ActionReport, ActionHide:
		return a, nil
	}
	return "", fmt.Errorf("unknown action %q", raw)
}

type InteractionStore interface {
	// Record stores one user action on a content item. Repeating the same
	// action is a no-op. The returned content carries the new counters.
	Record(ctx context.Context, contentID int64, userID string, action Action) (*StoredContent, error)
	GetHiddenItemIDs(ctx context.Context, userID string) (map[int64]struct{}, error)
}

// Lookup joins the two stores into the view the dedupe filter reads.
type Lookup struct {
	ContentStore
	InteractionStore
}

func NewLookup(s StorageInterface) Lookup {
	return Lookup{ContentStore: s.Contents(), InteractionStore: s.Interactions()}
}
