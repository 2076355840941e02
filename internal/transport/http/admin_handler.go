package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
)

// AdminHandler is the host-side control surface. It is synchronous,
// unauthenticated (anyone holding the code controls the session), and a thin
// translation layer over the session lifecycle.
type AdminHandler struct {
	service *app.SessionService
}

func NewAdminHandler(service *app.SessionService) *AdminHandler {
	return &AdminHandler{service: service}
}

// Register mounts the admin routes on mux.
func (h *AdminHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/sessions", h.createSession)
	mux.HandleFunc("GET /api/sessions", h.listSessions)
	mux.HandleFunc("POST /api/sessions/{code}/start", h.startSession)
	mux.HandleFunc("POST /api/sessions/{code}/advance", h.advanceSession)
	mux.HandleFunc("POST /api/sessions/{code}/pause", h.pauseSession)
	mux.HandleFunc("POST /api/sessions/{code}/resume", h.resumeSession)
	mux.HandleFunc("GET /api/sessions/{code}/leaderboard", h.leaderboard)
}

type startRequest struct {
	Auto bool `json:"auto"`
}

func (h *AdminHandler) createSession(w http.ResponseWriter, r *http.Request) {
	var req app.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	summary, err := h.service.CreateSession(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"code": summary.Code,
		"id":   summary.ID,
	})
}

func (h *AdminHandler) listSessions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.service.List())
}

func (h *AdminHandler) startSession(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	h.transition(w, r, func(code string) error {
		return h.service.Start(code, req.Auto)
	})
}

func (h *AdminHandler) advanceSession(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Advance)
}

func (h *AdminHandler) pauseSession(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Pause)
}

func (h *AdminHandler) resumeSession(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Resume)
}

func (h *AdminHandler) leaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.Leaderboard(r.PathValue("code"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *AdminHandler) transition(w http.ResponseWriter, r *http.Request, op func(code string) error) {
	if err := op(r.PathValue("code")); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrQuestionSetNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrCodeTaken):
		writeError(w, http.StatusConflict, err.Error())
	default:
		log.Printf("admin api error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
