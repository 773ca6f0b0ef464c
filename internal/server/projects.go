package server

import (
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"

	"sprite-suite/internal/store"
	"sprite-suite/internal/version"
)

func (s *Server) user(w http.ResponseWriter, r *http.Request) (string, bool) {
	u := r.Header.Get(userHeader)
	if u == "" {
		fail(w, http.StatusBadRequest, "missing "+userHeader+" header")
		return "", false
	}
	return u, true
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	user, has := s.user(w, r)
	if !has {
		return
	}
	list, err := s.projects.List(r.Context(), user)
	if err != nil {
		reqLog(r).Error().Err(err).Str("user", user).Msg("list projects")
		fail(w, http.StatusInternalServerError, "server error listing projects")
		return
	}
	ok(w, list)
}

func (s *Server) handleSaveProject(w http.ResponseWriter, r *http.Request) {
	user, has := s.user(w, r)
	if !has {
		return
	}
	var req store.SaveRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBody)).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		fail(w, http.StatusBadRequest, err.Error())
		return
	}
	meta, err := s.projects.Save(r.Context(), user, req)
	if err != nil {
		reqLog(r).Error().Err(err).Str("project", req.ID).Msg("save project")
		fail(w, http.StatusInternalServerError, "server error saving project")
		return
	}
	reqLog(r).Info().Str("user", user).Str("project", meta.ID).Msg("project saved")
	ok(w, meta)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	state, err := s.projects.Load(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		fail(w, http.StatusNotFound, "project not found")
		return
	}
	if err != nil {
		reqLog(r).Error().Err(err).Str("project", id).Msg("load project")
		fail(w, http.StatusInternalServerError, "server error loading project")
		return
	}
	ok(w, state)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	user, has := s.user(w, r)
	if !has {
		return
	}
	id := r.PathValue("id")
	if err := s.projects.Delete(r.Context(), user, id); err != nil {
		reqLog(r).Error().Err(err).Str("project", id).Msg("delete project")
		fail(w, http.StatusInternalServerError, "server error deleting project")
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "project deleted"})
}

type logEvent struct {
	EventName string          `json:"eventName"`
	Details   json.RawMessage `json:"details"`
}

func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {
	var ev logEvent
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBody)).Decode(&ev); err != nil {
		fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	l := reqLog(r).Info().Str("event", ev.EventName)
	if len(ev.Details) > 0 {
		l = l.RawJSON("details", ev.Details)
	}
	l.Msg("client event")
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "event recorded"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	ok(w, version.Get())
}
