// Package server exposes the record store and change feed over HTTP.
// Handlers are thin: decode, call through the hub, encode; ownership and
// text validation live in the store layer.
package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/cors"

	"tasksync-backend/internal/apperr"
	"tasksync-backend/internal/feed"
	"tasksync-backend/internal/identity"
	"tasksync-backend/internal/task"
)

type Server struct {
	ids *identity.Service
	hub *feed.Hub

	// defaultToken is the deployment's pre-issued AUTH_TOKEN. Sessions that
	// open without a credential of their own resolve with it; when it is
	// empty they resolve anonymously.
	defaultToken string
}

func New(ids *identity.Service, hub *feed.Hub, defaultToken string) *Server {
	return &Server{ids: ids, hub: hub, defaultToken: defaultToken}
}

// Handler builds the full route table wrapped with CORS.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	mux.HandleFunc("POST /session", s.postSession)
	mux.HandleFunc("GET /tasks", s.ids.Wrap(s.getTasks))
	mux.HandleFunc("POST /tasks", s.ids.Wrap(s.postTask))
	mux.HandleFunc("POST /tasks/{id}/toggle", s.ids.Wrap(s.toggleTask))
	mux.HandleFunc("DELETE /tasks/{id}", s.ids.Wrap(s.deleteTask))
	mux.HandleFunc("GET /tasks/watch", s.ids.Wrap(s.watchTasks))

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	return c.Handler(mux)
}

// postSession resolves the session's identity: anonymous when no durable
// token is supplied, the token's subject otherwise. The returned JWT
// authenticates every subsequent call.
func (s *Server) postSession(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token string `json:"token"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
	}

	token := body.Token
	if token == "" {
		token = s.defaultToken
	}

	id, err := s.ids.Resolve(r.Context(), token)
	if err != nil {
		writeError(w, err)
		return
	}

	session, err := s.ids.SessionToken(id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"identity": id,
		"jwt":      session,
	})
}

func (s *Server) getTasks(w http.ResponseWriter, r *http.Request) {
	records, err := s.hub.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	task.SortNewestFirst(records)
	if records == nil {
		records = []task.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) postTask(w http.ResponseWriter, r *http.Request) {
	callerID, ok := identity.FromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	rec, err := s.hub.Create(r.Context(), body.Text, callerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) toggleTask(w http.ResponseWriter, r *http.Request) {
	rec, err := s.hub.Toggle(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request) {
	callerID, ok := identity.FromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if err := s.hub.Delete(r.Context(), r.PathValue("id"), callerID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// headers are gone already; nothing useful left to send
		return
	}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, task.ErrEmptyText):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, apperr.ErrAuthentication):
		http.Error(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, apperr.ErrAuthorization):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, apperr.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, apperr.ErrWrite), errors.Is(err, apperr.ErrFeed):
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
