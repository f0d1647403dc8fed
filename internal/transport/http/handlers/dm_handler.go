package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/vedran77/veil/internal/service"
	"github.com/vedran77/veil/internal/transport/http/middleware"
)

type DMHandler struct {
	dmService *service.DMService
}

func NewDMHandler(dmService *service.DMService) *DMHandler {
	return &DMHandler{dmService: dmService}
}

func (h *DMHandler) StartThread(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var input struct {
		UserID uuid.UUID `json:"user_id"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}
	if input.UserID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "MISSING_USER_ID", "user_id is required")
		return
	}

	thread, err := h.dmService.StartThread(r.Context(), userID, input.UserID)
	if err != nil {
		writeServiceError(w, r, "start dm thread", err)
		return
	}

	writeJSON(w, http.StatusOK, thread)
}

func (h *DMHandler) ListThreads(w http.ResponseWriter, r *http.Request) {
	threads, err := h.dmService.ListThreads(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, r, "list dm threads", err)
		return
	}
	writeJSON(w, http.StatusOK, threads)
}

func (h *DMHandler) State(w http.ResponseWriter, r *http.Request) {
	threadID, ok := pathID(w, r, "id", "thread")
	if !ok {
		return
	}

	state, err := h.dmService.State(r.Context(), middleware.GetUserID(r.Context()), threadID)
	if err != nil {
		writeServiceError(w, r, "dm state", err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *DMHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	threadID, ok := pathID(w, r, "id", "thread")
	if !ok {
		return
	}
	before, limit, ok := pageParams(w, r)
	if !ok {
		return
	}

	resp, err := h.dmService.ListMessages(r.Context(), middleware.GetUserID(r.Context()), threadID, before, limit)
	if err != nil {
		writeServiceError(w, r, "list dm messages", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
