package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/osusume/internal/ingest"
	"github.com/hyperjump/osusume/internal/models"
	"github.com/hyperjump/osusume/internal/store"
)

// recommendationsResponse wraps the ranked results. Fallback marks responses
// served from the popularity list because the engine was not ready or had
// nothing for the reference course.
type recommendationsResponse struct {
	Results  []models.Recommendation `json:"results"`
	Fallback bool                    `json:"fallback"`
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		s.respondError(w, http.StatusBadRequest, "missing key parameter")
		return
	}
	topN := s.config.Recommend.DefaultTopN
	if raw := r.URL.Query().Get("top_n"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.respondError(w, http.StatusBadRequest, "invalid top_n parameter")
			return
		}
		topN = n
	}
	if topN > s.config.Recommend.MaxTopN {
		topN = s.config.Recommend.MaxTopN
	}

	// Opportunistic staleness check; a store hiccup here must not fail
	// the request, the engine just serves the current snapshot.
	if err := s.engine.RetrainIfNeeded(r.Context()); err != nil {
		s.logger.Warn("staleness check failed", zap.Error(err))
	}

	results := s.engine.Recommend(r.Context(), key, topN)
	if len(results) > 0 {
		s.respondJSON(w, http.StatusOK, recommendationsResponse{Results: results})
		return
	}

	// Recommendation is advisory: fall back to the newest courses rather
	// than surface an empty page.
	s.logger.Info("serving popularity fallback", zap.String("key", key), zap.Bool("ready", s.engine.IsReady()))
	recent, err := s.store.ListRecent(r.Context(), topN)
	if err != nil {
		s.logger.Error("popularity fallback failed", zap.Error(err))
		s.respondJSON(w, http.StatusOK, recommendationsResponse{Results: []models.Recommendation{}, Fallback: true})
		return
	}
	fallback := make([]models.Recommendation, 0, len(recent))
	for _, c := range recent {
		if c.Key == key {
			continue
		}
		fallback = append(fallback, models.Recommendation{
			Title:       c.Title,
			Description: c.Description,
			Key:         c.Key,
		})
	}
	s.respondJSON(w, http.StatusOK, recommendationsResponse{Results: fallback, Fallback: true})
}

func (s *Server) handleCreateCourse(w http.ResponseWriter, r *http.Request) {
	var input models.CourseInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	course, err := s.ingestor.IngestOne(r.Context(), &input)
	if errors.Is(err, ingest.ErrInvalidCourse) {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if errors.Is(err, store.ErrDuplicateKey) {
		s.respondError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		s.logger.Error("course create failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, course)
}

func (s *Server) handleGetCourse(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid course id")
		return
	}
	course, err := s.store.GetCourse(r.Context(), id)
	if err != nil {
		s.respondError(w, http.StatusNotFound, "course not found")
		return
	}
	s.respondJSON(w, http.StatusOK, course)
}

func (s *Server) handleListCourses(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.respondError(w, http.StatusBadRequest, "invalid limit parameter")
			return
		}
		limit = n
	}
	courses, err := s.store.ListRecent(r.Context(), limit)
	if err != nil {
		s.logger.Error("list courses failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if courses == nil {
		courses = []*models.Course{}
	}
	s.respondJSON(w, http.StatusOK, courses)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	count, err := s.store.CountCourses(r.Context())
	if err != nil {
		s.logger.Error("status: count courses failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"courses":       count,
		"engine_ready":  s.engine.IsReady(),
		"indexed_count": s.engine.IndexedCount(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
