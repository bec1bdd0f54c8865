package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"feedloom/internal/storage"
)

type interactionStore struct {
	db       *sql.DB
	contents *contentStore
}

func newInteractionStore(db *sql.DB) storage.InteractionStore {
	return &interactionStore{db: db, contents: &contentStore{db: db}}
}

func (s *interactionStore) Record(ctx context.Context, contentID int64, userID string, action storage.Action) (*storage.StoredContent, error) {
	var exists int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM contents WHERE id = ?`, contentID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check content: %w", err)
	}
	if exists == 0 {
		return nil, storage.ErrNotFound
	}

	query := `
		INSERT INTO interactions (content_id, user_id, action)
		VALUES (?, ?, ?)
		ON CONFLICT(content_id, user_id, action) DO NOTHING
	`
	if _, err := s.db.ExecContext(ctx, query, contentID, userID, string(action)); err != nil {
		return nil, fmt.Errorf("failed to record %s: %w", action, err)
	}

	return s.contents.GetContent(ctx, contentID)
}

func (s *interactionStore) GetHiddenItemIDs(ctx context.Context, userID string) (map[int64]struct{}, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT content_id FROM interactions WHERE user_id = ? AND action = ?`,
		userID, string(storage.ActionHide),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query hidden items: %w", err)
	}
	defer rows.Close()

	hidden := make(map[int64]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan hidden item: %w", err)
		}
		hidden[id] = struct{}{}
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return hidden, nil
}
