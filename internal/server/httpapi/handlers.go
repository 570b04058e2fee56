package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"

	"github.com/avoronova/notekeeper/internal/common"
	"github.com/avoronova/notekeeper/internal/server/services"
	"github.com/avoronova/notekeeper/internal/wire"
)

const minPasswordLength = 8

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req wire.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		writeError(w, http.StatusBadRequest, "invalid email address")
		return
	}
	if len(req.Password) < minPasswordLength {
		writeError(w, http.StatusBadRequest, "password too short")
		return
	}

	pair, err := h.users.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, common.ErrEmailAlreadyExists) {
			writeError(w, http.StatusConflict, "email already registered")
			return
		}
		h.serverError(w, r, err)
		return
	}
	writeTokens(w, pair)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req wire.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pair, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, common.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		h.serverError(w, r, err)
		return
	}
	writeTokens(w, pair)
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	var req wire.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pair, err := h.users.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, common.ErrInvalidToken) || errors.Is(err, common.ErrRefreshTokenExpired) {
			writeError(w, http.StatusUnauthorized, "refresh token rejected")
			return
		}
		h.serverError(w, r, err)
		return
	}
	writeTokens(w, pair)
}

func (h *Handler) getAllNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := h.notes.GetAll(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wire.NotesResponse{Notes: notes})
}

func (h *Handler) batchCreate(w http.ResponseWriter, r *http.Request) {
	var req wire.BatchCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp := h.notes.BatchCreate(r.Context(), userIDFrom(r.Context()), req.Notes)
	h.notifyChanged(r, resp)
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) batchUpdate(w http.ResponseWriter, r *http.Request) {
	var req wire.BatchUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp := h.notes.BatchUpdate(r.Context(), userIDFrom(r.Context()), req.Notes)
	h.notifyChanged(r, resp)
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) batchDelete(w http.ResponseWriter, r *http.Request) {
	var req wire.BatchDeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp := h.notes.BatchDelete(r.Context(), userIDFrom(r.Context()), req.Notes)
	h.notifyChanged(r, resp)
	writeJSON(w, http.StatusOK, resp)
}

// notifyChanged pushes a change event to the user's other connections
// when a batch applied at least one item.
func (h *Handler) notifyChanged(r *http.Request, resp wire.BatchResponse) {
	if len(resp.Successful) == 0 {
		return
	}
	uuids := make([]string, 0, len(resp.Successful))
	for _, p := range resp.Successful {
		uuids = append(uuids, p.UUID)
	}
	h.hub.Broadcast(r.Context(), userIDFrom(r.Context()), r.Header.Get(common.ClientIDHeader),
		wire.Event{Type: wire.EventNotesChanged, NoteUUIDs: uuids})
}

func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, err error) {
	h.log.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeTokens(w http.ResponseWriter, pair *services.TokenPair) {
	writeJSON(w, http.StatusOK, wire.TokenResponse{AccessToken: pair.Access, RefreshToken: pair.Refresh})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
