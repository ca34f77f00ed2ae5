package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/gesture-agent/internal/note"
	"github.com/danielpatrickdp/gesture-agent/internal/session"
)

// SetHotnessRequest is the body of PUT /api/v1/hotness.
type SetHotnessRequest struct {
	Hotness *float64 `json:"hotness"`
}

// BreedRequest is the body of POST /api/v1/crossovers. Count 0 uses the
// configured crossover count.
type BreedRequest struct {
	ParentA string `json:"parent_a"`
	ParentB string `json:"parent_b"`
	Count   int    `json:"count,omitempty"`
}

const maxBreedCount = 64

func (s *Server) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	successResponse(w, s.ctrl.Status())
}

func (s *Server) handleSetHotness(w http.ResponseWriter, r *http.Request) {
	var req SetHotnessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Hotness == nil {
		errorResponse(w, http.StatusBadRequest, "hotness is required")
		return
	}
	s.ctrl.SetHotness(*req.Hotness)
	st := s.ctrl.Status()
	s.logger.Info("hotness set over http", zap.Float64("hotness", st.Hotness))
	successResponse(w, map[string]float64{
		"hotness":              st.Hotness,
		"mutation_probability": st.MutationProbability,
	})
}

func (s *Server) handleListNotes(w http.ResponseWriter, r *http.Request) {
	src := note.Source(r.URL.Query().Get("source"))
	if src != "" && !src.Valid() {
		errorResponse(w, http.StatusBadRequest, "source must be human or ai")
		return
	}
	limit, ok := parseLimit(w, r, 50)
	if !ok {
		return
	}
	notes := s.ctrl.Notes(src)
	if len(notes) > limit {
		notes = notes[len(notes)-limit:]
	}
	successResponse(w, map[string]any{"count": len(notes), "notes": notes})
}

func (s *Server) handleListPhrases(w http.ResponseWriter, r *http.Request) {
	if s.phrases == nil {
		errorResponse(w, http.StatusServiceUnavailable, "no store attached")
		return
	}
	limit, ok := parseLimit(w, r, 20)
	if !ok {
		return
	}
	rows, err := s.phrases.ListPhraseLog(s.ctrl.Status().SessionID, limit)
	if err != nil {
		errorResponse(w, http.StatusInternalServerError, "failed to list phrases: "+err.Error())
		return
	}
	successResponse(w, map[string]any{"count": len(rows), "phrases": rows})
}

func (s *Server) handleBreed(w http.ResponseWriter, r *http.Request) {
	var req BreedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.ParentA == "" || req.ParentB == "" {
		errorResponse(w, http.StatusBadRequest, "parent_a and parent_b are required")
		return
	}
	if req.Count < 0 || req.Count > maxBreedCount {
		errorResponse(w, http.StatusBadRequest, "count must be between 0 and "+strconv.Itoa(maxBreedCount))
		return
	}
	children, err := s.ctrl.Breed(req.ParentA, req.ParentB, req.Count)
	if errors.Is(err, session.ErrUnknownNote) {
		errorResponse(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		errorResponse(w, http.StatusInternalServerError, "failed to breed notes: "+err.Error())
		return
	}
	successResponse(w, map[string]any{"count": len(children), "notes": children})
}

func parseLimit(w http.ResponseWriter, r *http.Request, fallback int) (int, bool) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		errorResponse(w, http.StatusBadRequest, "limit must be a positive integer")
		return 0, false
	}
	return n, true
}
