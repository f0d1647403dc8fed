package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/vedran77/veil/internal/service"
	"github.com/vedran77/veil/internal/transport/http/middleware"
	"github.com/vedran77/veil/pkg/validator"
)

type RoomHandler struct {
	roomService *service.RoomService
}

func NewRoomHandler(roomService *service.RoomService) *RoomHandler {
	return &RoomHandler{roomService: roomService}
}

func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var input service.CreateRoomInput
	if !decodeJSON(w, r, &input) {
		return
	}
	if errs := validator.ValidateRoom(input.Title); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	room, err := h.roomService.Create(r.Context(), userID, input)
	if err != nil {
		writeServiceError(w, r, "create room", err)
		return
	}
	writeJSON(w, http.StatusCreated, room)
}

func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	roomID, ok := pathID(w, r, "id", "room")
	if !ok {
		return
	}

	room, err := h.roomService.Get(r.Context(), roomID)
	if err != nil {
		writeServiceError(w, r, "get room", err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (h *RoomHandler) Mute(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	roomID, ok := pathID(w, r, "id", "room")
	if !ok {
		return
	}

	var input service.ModerationInput
	if !decodeJSON(w, r, &input) || !requireMasks(w, input) {
		return
	}

	mod, err := h.roomService.Mute(r.Context(), userID, roomID, input)
	if err != nil {
		writeServiceError(w, r, "mute", err)
		return
	}
	writeJSON(w, http.StatusCreated, mod)
}

func (h *RoomHandler) Exile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	roomID, ok := pathID(w, r, "id", "room")
	if !ok {
		return
	}

	var input service.ModerationInput
	if !decodeJSON(w, r, &input) || !requireMasks(w, input) {
		return
	}

	mod, err := h.roomService.Exile(r.Context(), userID, roomID, input)
	if err != nil {
		writeServiceError(w, r, "exile", err)
		return
	}
	writeJSON(w, http.StatusCreated, mod)
}

func (h *RoomHandler) SetLocked(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	roomID, ok := pathID(w, r, "id", "room")
	if !ok {
		return
	}

	var input struct {
		ActorMaskID uuid.UUID `json:"actor_mask_id"`
		Locked      bool      `json:"locked"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}
	if input.ActorMaskID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "MISSING_MASK_ID", "actor_mask_id is required")
		return
	}

	mod, err := h.roomService.SetLocked(r.Context(), userID, roomID, input.ActorMaskID, input.Locked)
	if err != nil {
		writeServiceError(w, r, "lock room", err)
		return
	}
	writeJSON(w, http.StatusCreated, mod)
}

func requireMasks(w http.ResponseWriter, input service.ModerationInput) bool {
	if input.ActorMaskID == uuid.Nil || input.TargetMaskID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "MISSING_MASK_ID", "actor_mask_id and target_mask_id are required")
		return false
	}
	return true
}
