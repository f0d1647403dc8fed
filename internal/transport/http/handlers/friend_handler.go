package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/vedran77/veil/internal/service"
	"github.com/vedran77/veil/internal/transport/http/middleware"
)

type FriendHandler struct {
	friendService *service.FriendService
}

func NewFriendHandler(friendService *service.FriendService) *FriendHandler {
	return &FriendHandler{friendService: friendService}
}

func (h *FriendHandler) SendRequest(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var input struct {
		FriendCode string `json:"friend_code"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}
	if strings.TrimSpace(input.FriendCode) == "" {
		writeError(w, http.StatusBadRequest, "MISSING_FRIEND_CODE", "friend_code is required")
		return
	}

	req, err := h.friendService.SendRequest(r.Context(), userID, input.FriendCode)
	if err != nil {
		writeServiceError(w, r, "send friend request", err)
		return
	}

	// A nil request means the reverse request existed and was accepted.
	if req == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

func (h *FriendHandler) ListIncoming(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.friendService.ListIncomingRequests(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, r, "list friend requests", err)
		return
	}
	writeJSON(w, http.StatusOK, reqs)
}

func (h *FriendHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.onRequest(w, r, "accept friend request", h.friendService.AcceptRequest)
}

func (h *FriendHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.onRequest(w, r, "reject friend request", h.friendService.RejectRequest)
}

func (h *FriendHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.onRequest(w, r, "cancel friend request", h.friendService.CancelRequest)
}

func (h *FriendHandler) List(w http.ResponseWriter, r *http.Request) {
	friends, err := h.friendService.ListFriends(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, r, "list friends", err)
		return
	}
	writeJSON(w, http.StatusOK, friends)
}

func (h *FriendHandler) Remove(w http.ResponseWriter, r *http.Request) {
	otherID, ok := pathID(w, r, "userID", "user")
	if !ok {
		return
	}
	if err := h.friendService.RemoveFriend(r.Context(), middleware.GetUserID(r.Context()), otherID); err != nil {
		writeServiceError(w, r, "remove friend", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *FriendHandler) onRequest(w http.ResponseWriter, r *http.Request, op string, fn func(ctx context.Context, userID, requestID uuid.UUID) error) {
	requestID, ok := pathID(w, r, "id", "request")
	if !ok {
		return
	}
	if err := fn(r.Context(), middleware.GetUserID(r.Context()), requestID); err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
