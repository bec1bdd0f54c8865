package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"feedloom/internal/cache"
	"feedloom/internal/logger"
	"feedloom/internal/storage"
	"feedloom/internal/types"
)

// Aggregator is the pipeline entry point the routes call.
type Aggregator interface {
	Aggregate(ctx context.Context, sourceFilter, searchTerm string) []types.ContentItem
	Has(source string) bool
}

// Filter removes items the requesting user should not see.
type Filter interface {
	Apply(ctx context.Context, items []types.ContentItem, userID string) []types.ContentItem
}

type Source struct {
	ID          string         `json:"id"`
	ContentType types.Category `json:"contentType"`
}

type Config struct {
	Name     string
	Port     string
	PageSize int
	FeedSize int
	FeedTTL  time.Duration
	Sources  []Source
}

type Server struct {
	config     Config
	aggregator Aggregator
	filter     Filter
	store      storage.StorageInterface
	feedCache  *cache.Cache[CacheKey, string]
	logger     *slog.Logger
	server     *http.Server
}

func New(config Config, aggregator Aggregator, filter Filter, store storage.StorageInterface, l *slog.Logger) *Server {
	if config.Name == "" {
		config.Name = "feedloom"
	}
	if config.Port == "" {
		config.Port = "8080"
	}
	if config.PageSize == 0 {
		config.PageSize = 10
	}
	if config.FeedSize == 0 {
		config.FeedSize = 100
	}
	if config.FeedTTL == 0 {
		config.FeedTTL = 5 * time.Minute
	}

	return &Server{
		config:     config,
		aggregator: aggregator,
		filter:     filter,
		store:      store,
		feedCache:  NewCache(cache.CacheConfig{TTL: config.FeedTTL}),
		logger:     logger.OrDefault(l).With("component", "server"),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/contents", s.handleContents)
	mux.HandleFunc("GET /api/contents/{id}", s.handleContent)
	mux.HandleFunc("POST /api/contents/{id}/{action}", s.handleInteraction)
	mux.HandleFunc("GET /api/sources", s.handleSources)
	mux.HandleFunc("GET /feed.rss", s.handleFeed(TypeRSS))
	mux.HandleFunc("GET /feed.atom", s.handleFeed(TypeAtom))
	mux.HandleFunc("GET /feed.json", s.handleFeed(TypeJSON))
	mux.HandleFunc("GET /health", s.handleHealth)
	return mux
}

func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              ":" + s.config.Port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		s.logger.Info("Starting server", "port", s.config.Port)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Server error", "error", err)
		}
	}()

	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("Server shutdown error", "error", err)
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"name":   s.config.Name,
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.config.Sources)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
