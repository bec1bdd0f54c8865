package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"feedloom/internal/storage"
	"feedloom/internal/types"
)

const selectContent = `
	SELECT c.id, c.provider, c.source_item_id, c.category, c.title, c.excerpt,
		c.thumbnail_url, c.canonical_url, c.metadata, c.fetched_at, c.seen_at,
		(SELECT COUNT(*) FROM interactions i WHERE i.content_id = c.id AND i.action = 'like'),
		(SELECT COUNT(*) FROM interactions i WHERE i.content_id = c.id AND i.action = 'share'),
		(SELECT COUNT(*) FROM interactions i WHERE i.content_id = c.id AND i.action = 'report')
	FROM contents c
`

const upsertContent = `
	INSERT INTO contents (provider, source_item_id, category, title, excerpt,
		thumbnail_url, canonical_url, metadata, fetched_at, seen_at, batch_position)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(provider, source_item_id) DO UPDATE SET
		category = excluded.category,
		title = excluded.title,
		excerpt = excluded.excerpt,
		thumbnail_url = CASE WHEN excluded.thumbnail_url != '' THEN excluded.thumbnail_url ELSE contents.thumbnail_url END,
		canonical_url = excluded.canonical_url,
		metadata = excluded.metadata,
		fetched_at = excluded.fetched_at,
		seen_at = excluded.seen_at,
		batch_position = excluded.batch_position
	RETURNING id
`

type contentStore struct {
	db  *sql.DB
	now func() time.Time
}

func newContentStore(db *sql.DB) storage.ContentStore {
	return &contentStore{db: db, now: time.Now}
}

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *contentStore) Persist(ctx context.Context, item types.ContentItem) (int64, error) {
	return s.persist(ctx, s.db, item, s.now().UTC(), 0)
}

// PersistAll stores a batch in one transaction. Every item of the batch
// shares a seen_at stamp and records its index, so pages keep the batch order
// even when an older row is re-upserted into a later batch.
func (s *contentStore) PersistAll(ctx context.Context, items []types.ContentItem) ([]int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	seenAt := s.now().UTC()
	ids := make([]int64, 0, len(items))
	for i, item := range items {
		id, err := s.persist(ctx, tx, item, seenAt, i)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit contents: %w", err)
	}
	return ids, nil
}

func (s *contentStore) persist(ctx context.Context, q rowQuerier, item types.ContentItem, seenAt time.Time, position int) (int64, error) {
	metadata := []byte("{}")
	if len(item.Metadata) > 0 {
		var err error
		if metadata, err = json.Marshal(item.Metadata); err != nil {
			return 0, fmt.Errorf("failed to encode metadata for %s: %w", item.Key(), err)
		}
	}

	var id int64
	err := q.QueryRowContext(ctx, upsertContent,
		item.Provider, item.SourceItemID, string(item.Category), item.Title, item.Excerpt,
		item.ThumbnailURL, item.CanonicalURL, string(metadata), item.FetchedAt.UTC(), seenAt, position,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to store content %s: %w", item.Key(), err)
	}

	return id, nil
}

func (s *contentStore) GetContent(ctx context.Context, id int64) (*storage.StoredContent, error) {
	row := s.db.QueryRowContext(ctx, selectContent+` WHERE c.id = ?`, id)

	content, err := scanContent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return content, nil
}

func (s *contentStore) GetContents(ctx context.Context, page, pageSize int, provider string) ([]storage.StoredContent, error) {
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * pageSize

	query := selectContent
	args := []any{}
	if provider != "" {
		query += ` WHERE c.provider = ?`
		args = append(args, provider)
	}
	query += ` ORDER BY c.seen_at DESC, c.batch_position ASC, c.id ASC LIMIT ? OFFSET ?`
	args = append(args, pageSize, offset)

	return s.list(ctx, query, args...)
}

func (s *contentStore) ListRecent(ctx context.Context, limit int) ([]storage.StoredContent, error) {
	return s.list(ctx, selectContent+` ORDER BY c.seen_at DESC, c.batch_position ASC, c.id ASC LIMIT ?`, limit)
}

func (s *contentStore) FindStoredIdentity(ctx context.Context, provider, sourceItemID string) (int64, bool, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM contents WHERE provider = ? AND source_item_id = ?`,
		provider, sourceItemID,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to look up content identity: %w", err)
	}
	return id, true, nil
}

func (s *contentStore) list(ctx context.Context, query string, args ...any) ([]storage.StoredContent, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query contents: %w", err)
	}
	defer rows.Close()

	contents := make([]storage.StoredContent, 0)
	for rows.Next() {
		content, err := scanContent(rows)
		if err != nil {
			return nil, err
		}
		contents = append(contents, *content)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return contents, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanContent(row scanner) (*storage.StoredContent, error) {
	var (
		c        storage.StoredContent
		category string
		metadata string
	)

	err := row.Scan(
		&c.ID,
		&c.Provider,
		&c.SourceItemID,
		&category,
		&c.Title,
		&c.Excerpt,
		&c.ThumbnailURL,
		&c.CanonicalURL,
		&metadata,
		&c.FetchedAt,
		&c.SeenAt,
		&c.Likes,
		&c.Shares,
		&c.Reports,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan content: %w", err)
	}

	c.Category = types.Category(category)
	if metadata != "" && metadata != "{}" {
		if err := json.Unmarshal([]byte(metadata), &c.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode metadata of content %d: %w", c.ID, err)
		}
	}

	return &c, nil
}
