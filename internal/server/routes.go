package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lazypower/rote/internal/fsrs"
	"github.com/lazypower/rote/internal/scheduler"
	"github.com/lazypower/rote/internal/store"
)

type itemJSON struct {
	ID            string     `json:"id"`
	State         fsrs.State `json:"state"`
	Stability     float64    `json:"stability"`
	Difficulty    float64    `json:"difficulty"`
	Reps          int        `json:"reps"`
	Lapses        int        `json:"lapses"`
	LastReview    *time.Time `json:"last_review,omitempty"`
	ScheduledDays *float64   `json:"scheduled_days,omitempty"`
	NextReview    *time.Time `json:"next_review_date,omitempty"`
}

func toItemJSON(item *store.Item) itemJSON {
	return itemJSON{
		ID:            item.ID,
		State:         item.State,
		Stability:     item.Stability,
		Difficulty:    item.Difficulty,
		Reps:          item.Reps,
		Lapses:        item.Lapses,
		LastReview:    item.LastReview,
		ScheduledDays: item.ScheduledDays,
		NextReview:    item.NextReview,
	}
}

func (s *Server) handleInitializeItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ItemID string `json:"item_id"`
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		http.Error(w, `{"error":"user_id required"}`, http.StatusBadRequest)
		return
	}

	item, err := s.sched.InitializeItem(req.ItemID, req.UserID)
	if err != nil {
		http.Error(w, fmt.Sprintf(`{"error":"%s"}`, err.Error()), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toItemJSON(item))
}

func (s *Server) handleSubmitReview(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")

	var req struct {
		UserID     string `json:"user_id"`
		Rating     int    `json:"rating"`
		DurationMS *int64 `json:"duration_ms"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		http.Error(w, `{"error":"user_id required"}`, http.StatusBadRequest)
		return
	}

	result, err := s.sched.SubmitReview(itemID, req.UserID, fsrs.Rating(req.Rating), req.DurationMS, time.Now())
	if errors.Is(err, scheduler.ErrNotFound) {
		http.Error(w, `{"error":"item not found"}`, http.StatusNotFound)
		return
	}
	if errors.Is(err, scheduler.ErrConflict) {
		http.Error(w, `{"error":"concurrent review conflict"}`, http.StatusConflict)
		return
	}
	if err != nil {
		http.Error(w, fmt.Sprintf(`{"error":"%s"}`, err.Error()), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")
	userID := r.URL.Query().Get("user")
	if userID == "" {
		http.Error(w, `{"error":"user parameter required"}`, http.StatusBadRequest)
		return
	}

	preview, err := s.sched.PreviewSchedule(itemID, userID, time.Now())
	if errors.Is(err, scheduler.ErrNotFound) {
		http.Error(w, `{"error":"item not found"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, fmt.Sprintf(`{"error":"%s"}`, err.Error()), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(preview)
}

func (s *Server) handleDue(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user")
	if userID == "" {
		http.Error(w, `{"error":"user parameter required"}`, http.StatusBadRequest)
		return
	}
	limit := queryLimit(r, 20)

	items, err := s.sched.Due(userID, limit, time.Now())
	if err != nil {
		http.Error(w, fmt.Sprintf(`{"error":"%s"}`, err.Error()), http.StatusInternalServerError)
		return
	}
	writeItems(w, items)
}

func (s *Server) handleNew(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user")
	if userID == "" {
		http.Error(w, `{"error":"user parameter required"}`, http.StatusBadRequest)
		return
	}
	limit := queryLimit(r, 20)

	items, err := s.sched.NewItems(userID, limit)
	if err != nil {
		http.Error(w, fmt.Sprintf(`{"error":"%s"}`, err.Error()), http.StatusInternalServerError)
		return
	}
	writeItems(w, items)
}

func (s *Server) handleLearning(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user")
	if userID == "" {
		http.Error(w, `{"error":"user parameter required"}`, http.StatusBadRequest)
		return
	}

	items, err := s.sched.LearningItems(userID)
	if err != nil {
		http.Error(w, fmt.Sprintf(`{"error":"%s"}`, err.Error()), http.StatusInternalServerError)
		return
	}
	writeItems(w, items)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user")
	if userID == "" {
		http.Error(w, `{"error":"user parameter required"}`, http.StatusBadRequest)
		return
	}

	window := 30
	if v := r.URL.Query().Get("window"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			window = n
		}
	}

	stats, err := s.sched.Statistics(userID, window, time.Now())
	if err != nil {
		http.Error(w, fmt.Sprintf(`{"error":"%s"}`, err.Error()), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

func (s *Server) handleParams(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user")
	if userID == "" {
		http.Error(w, `{"error":"user parameter required"}`, http.StatusBadRequest)
		return
	}

	params, err := s.sched.Params(userID)
	if err != nil {
		http.Error(w, fmt.Sprintf(`{"error":"%s"}`, err.Error()), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(params)
}

func queryLimit(r *http.Request, fallback int) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func writeItems(w http.ResponseWriter, items []store.Item) {
	out := make([]itemJSON, len(items))
	for i := range items {
		out[i] = toItemJSON(&items[i])
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"count": len(out),
		"items": out,
	})
}
