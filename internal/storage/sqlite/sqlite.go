package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"feedloom/internal/config"
	"feedloom/internal/storage"
)

//go:embed migrations/*.sql
var migrations embed.FS

func init() {
	storage.RegisterFactory("sqlite", func(ctx context.Context, cfg config.StorageConfig) (storage.StorageInterface, error) {
		return Open(ctx, cfg.Path)
	})
}

type SQLiteStorage struct {
	conn         *sql.DB
	contents     storage.ContentStore
	interactions storage.InteractionStore
}

func New(dbPath string) (storage.StorageInterface, error) {
	return Open(context.Background(), dbPath)
}

// Open connects to the database file at dbPath, creating it if needed, and
// applies the embedded migrations.
func Open(ctx context.Context, dbPath string) (*SQLiteStorage, error) {
	slog.Info("Initializing SQLite storage", "path", dbPath)

	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_journal_mode=WAL&_foreign_keys=on", dbPath)
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one writer at a time; sqlite would answer "database is locked" otherwise
	conn.SetMaxOpenConns(1)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(conn); err != nil {
		conn.Close()
		return nil, err
	}

	slog.Info("Storage initialized successfully")

	return &SQLiteStorage{
		conn:         conn,
		contents:     newContentStore(conn),
		interactions: newInteractionStore(conn),
	}, nil
}

func runMigrations(conn *sql.DB) error {
	slog.Debug("Running database migrations")

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.Up(conn, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	slog.Debug("Migrations completed successfully")
	return nil
}

func (s *SQLiteStorage) GetConnection() *sql.DB {
	return s.conn
}

func (s *SQLiteStorage) Contents() storage.ContentStore {
	return s.contents
}

func (s *SQLiteStorage) Interactions() storage.InteractionStore {
	return s.interactions
}

func (s *SQLiteStorage) Close(ctx context.Context) error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
