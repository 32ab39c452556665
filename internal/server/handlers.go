package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/claude/kcalplanner/internal/models"
	"github.com/claude/kcalplanner/internal/planner"
	"github.com/go-chi/chi/v5"
)

// warningHeader is set when a change was applied in memory but could not be
// written to disk.
const warningHeader = "X-Kcalplanner-Warning"

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userInfoFromContext(r))
}

func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Presets())
}

func (s *Server) handleAllRecords(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, nonNil(s.svc.AllRecords()))
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, nonNil(s.svc.Users()))
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in planner.RegisterInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	u, err := s.svc.Register(in)
	if !s.persisted(w, err) {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	u, err := s.svc.Login(r.URL.Query().Get("q"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.svc.User(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var upd planner.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	u, err := s.svc.UpdateProfile(chi.URLParam(r, "id"), upd)
	if !s.persisted(w, err) {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleRecordSession(w http.ResponseWriter, r *http.Request) {
	var req planner.SessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	out, err := s.svc.Submit(chi.URLParam(r, "id"), req)
	if out != nil {
		s.metrics.sessions.Inc()
		s.metrics.sessionKcal.Observe(out.Record.TotalCalories)
	}
	if !s.persisted(w, err) {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	order, err := planner.ParseHistorySort(r.URL.Query().Get("sort"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	recs, err := s.svc.History(chi.URLParam(r, "id"), order)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(recs))
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	rec, err := s.svc.Recommendations(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleSuggestLoad(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ex := models.Exercise{Name: q.Get("exercise"), Group: q.Get("group")}
	load, err := s.svc.SuggestLoad(chi.URLParam(r, "id"), ex)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"exercise": ex.Name,
		"group":    ex.Group,
		"load_kg":  load,
	})
}

// persisted reports whether the handler should carry on with its result:
// true for success and for a change that only failed to reach disk, which
// is flagged in a response header.
func (s *Server) persisted(w http.ResponseWriter, err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, planner.ErrNotPersisted) {
		s.metrics.unpersisted.Inc()
		w.Header().Set(warningHeader, "change applied but not saved to disk")
		return true
	}
	return false
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, planner.ErrNotFound):
		status = http.StatusNotFound
	default:
		s.log.Error("request failed", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}
