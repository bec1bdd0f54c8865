package server

import (
	"errors"
	"net/http"
	"strconv"

	"feedloom/internal/storage"
	"feedloom/internal/utils"
)

// UserHeader carries the caller's user id. Authentication happens in front
// of this service.
const UserHeader = "X-User-ID"

// handleContents serves the feed. Page 1 and every search aggregate fresh
// items and persist them first; later pages come from storage only.
func (s *Server) handleContents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	userID := r.Header.Get(UserHeader)

	page := 1
	if raw := q.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "Invalid request parameters")
			return
		}
		page = n
	}

	source := q.Get("source")
	if source != "" && !s.aggregator.Has(source) {
		writeError(w, http.StatusBadRequest, "Unknown source "+strconv.Quote(source))
		return
	}

	searchTerm := q.Get("q")
	if searchTerm != "" {
		s.serveSearch(w, r, page, source, searchTerm, userID)
		return
	}

	if page == 1 {
		if _, err := s.refresh(r, source, "", userID); err != nil {
			s.logger.Error("Failed to persist aggregated contents", "error", err)
		}
	}

	contents, err := s.store.Contents().GetContents(r.Context(), page, s.config.PageSize, source)
	if err != nil {
		s.logger.Error("Failed to list contents", "page", page, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load contents")
		return
	}

	writeJSON(w, http.StatusOK, s.withoutHidden(r, contents, userID))
}

// Search results are not stored pages: only page 1 has results.
func (s *Server) serveSearch(w http.ResponseWriter, r *http.Request, page int, source, searchTerm, userID string) {
	if page > 1 {
		writeJSON(w, http.StatusOK, []storage.StoredContent{})
		return
	}

	ids, err := s.refresh(r, source, searchTerm, userID)
	if err != nil {
		s.logger.Error("Failed to persist search results", "search", searchTerm, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to store search results")
		return
	}

	results := make([]storage.StoredContent, 0, len(ids))
	for _, id := range ids {
		content, err := s.store.Contents().GetContent(r.Context(), id)
		if err != nil {
			s.logger.Warn("Stored search result vanished", "id", id, "error", err)
			continue
		}
		results = append(results, *content)
	}

	writeJSON(w, http.StatusOK, results)
}

func (s *Server) refresh(r *http.Request, source, searchTerm, userID string) ([]int64, error) {
	items := s.aggregator.Aggregate(r.Context(), source, searchTerm)
	items = s.filter.Apply(r.Context(), items, userID)
	if len(items) == 0 {
		return []int64{}, nil
	}

	ids, err := s.store.Contents().PersistAll(r.Context(), items)
	if err != nil {
		return nil, err
	}

	s.feedCache.Clear()
	return ids, nil
}

func (s *Server) withoutHidden(r *http.Request, contents []storage.StoredContent, userID string) []storage.StoredContent {
	if userID == "" {
		return contents
	}

	hidden, err := s.store.Interactions().GetHiddenItemIDs(r.Context(), userID)
	if err != nil {
		s.logger.Error("Failed to load hidden items", "user", userID, "error", err)
		return contents
	}

	return utils.FilterArray(contents, func(c storage.StoredContent) bool {
		_, isHidden := hidden[c.ID]
		return !isHidden
	})
}

func (s *Server) handleContent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid content id")
		return
	}

	content, err := s.store.Contents().GetContent(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Content not found")
		return
	}
	if err != nil {
		s.logger.Error("Failed to load content", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load content")
		return
	}

	writeJSON(w, http.StatusOK, content)
}

func (s *Server) handleInteraction(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(UserHeader)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "Missing "+UserHeader+" header")
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid content id")
		return
	}

	action, err := storage.ParseAction(r.PathValue("action"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	content, err := s.store.Interactions().Record(r.Context(), id, userID, action)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Content not found")
		return
	}
	if err != nil {
		s.logger.Error("Failed to record interaction", "id", id, "action", action, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to record interaction")
		return
	}

	s.logger.Debug("Recorded interaction", "id", id, "action", action, "user", userID)
	writeJSON(w, http.StatusOK, content)
}
