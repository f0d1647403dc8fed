package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/vedran77/veil/internal/service"
	"github.com/vedran77/veil/internal/transport/http/middleware"
	"github.com/vedran77/veil/pkg/validator"
)

type ChannelHandler struct {
	serverService *service.ServerService
}

func NewChannelHandler(serverService *service.ServerService) *ChannelHandler {
	return &ChannelHandler{serverService: serverService}
}

func (h *ChannelHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	serverID, ok := pathID(w, r, "id", "server")
	if !ok {
		return
	}

	var input struct {
		Name string `json:"name"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}
	if errs := validator.ValidateChannel(input.Name); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	ch, err := h.serverService.CreateChannel(r.Context(), userID, serverID, input.Name)
	if err != nil {
		writeServiceError(w, r, "create channel", err)
		return
	}

	writeJSON(w, http.StatusCreated, ch)
}

func (h *ChannelHandler) List(w http.ResponseWriter, r *http.Request) {
	serverID, ok := pathID(w, r, "id", "server")
	if !ok {
		return
	}

	channels, err := h.serverService.ListChannels(r.Context(), middleware.GetUserID(r.Context()), serverID)
	if err != nil {
		writeServiceError(w, r, "list channels", err)
		return
	}

	writeJSON(w, http.StatusOK, channels)
}

// SetIdentity picks the mask the caller presents in one channel.
func (h *ChannelHandler) SetIdentity(w http.ResponseWriter, r *http.Request) {
	channelID, ok := pathID(w, r, "id", "channel")
	if !ok {
		return
	}

	var input struct {
		MaskID uuid.UUID `json:"mask_id"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}

	ident, err := h.serverService.SetChannelIdentity(r.Context(), middleware.GetUserID(r.Context()), channelID, input.MaskID)
	if err != nil {
		writeServiceError(w, r, "set channel identity", err)
		return
	}
	writeJSON(w, http.StatusOK, ident)
}

func (h *ChannelHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	channelID, ok := pathID(w, r, "id", "channel")
	if !ok {
		return
	}
	before, limit, ok := pageParams(w, r)
	if !ok {
		return
	}

	resp, err := h.serverService.ChannelHistory(r.Context(), middleware.GetUserID(r.Context()), channelID, before, limit)
	if err != nil {
		writeServiceError(w, r, "list channel messages", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
