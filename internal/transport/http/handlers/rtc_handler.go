package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/vedran77/veil/internal/transport/http/middleware"
	"github.com/vedran77/veil/internal/voice"
)

type RTCHandler struct {
	broker *voice.Broker
}

func NewRTCHandler(broker *voice.Broker) *RTCHandler {
	return &RTCHandler{broker: broker}
}

// Connect joins (or opens) the voice session for a room, DM thread or channel.
func (h *RTCHandler) Connect(w http.ResponseWriter, r *http.Request) {
	var input struct {
		ContextType string    `json:"context_type"`
		ContextID   uuid.UUID `json:"context_id"`
		MaskID      uuid.UUID `json:"mask_id"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}
	if input.ContextID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "MISSING_CONTEXT_ID", "context_id is required")
		return
	}

	conn, err := h.broker.Connect(r.Context(), middleware.GetUserID(r.Context()), input.ContextType, input.ContextID, input.MaskID)
	if err != nil {
		writeServiceError(w, r, "voice connect", err)
		return
	}
	writeJSON(w, http.StatusOK, conn)
}

func (h *RTCHandler) Leave(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathID(w, r, "id", "session")
	if !ok {
		return
	}
	if err := h.broker.Leave(r.Context(), sessionID, middleware.GetUserID(r.Context())); err != nil {
		writeServiceError(w, r, "voice leave", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RTCHandler) Mute(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathID(w, r, "id", "session")
	if !ok {
		return
	}

	var input struct {
		MaskID uuid.UUID `json:"mask_id"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}
	if input.MaskID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "MISSING_MASK_ID", "mask_id is required")
		return
	}

	if err := h.broker.Mute(r.Context(), sessionID, middleware.GetUserID(r.Context()), input.MaskID); err != nil {
		writeServiceError(w, r, "voice mute", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RTCHandler) End(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathID(w, r, "id", "session")
	if !ok {
		return
	}
	if err := h.broker.End(r.Context(), sessionID, middleware.GetUserID(r.Context())); err != nil {
		writeServiceError(w, r, "voice end", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
