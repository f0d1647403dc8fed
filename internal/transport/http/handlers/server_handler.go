package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/vedran77/veil/internal/service"
	"github.com/vedran77/veil/internal/transport/http/middleware"
	"github.com/vedran77/veil/pkg/validator"
)

type ServerHandler struct {
	serverService *service.ServerService
}

func NewServerHandler(serverService *service.ServerService) *ServerHandler {
	return &ServerHandler{serverService: serverService}
}

func (h *ServerHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var input service.CreateServerInput
	if !decodeJSON(w, r, &input) {
		return
	}
	if errs := validator.ValidateServer(input.Name); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	server, err := h.serverService.Create(r.Context(), userID, input)
	if err != nil {
		writeServiceError(w, r, "create server", err)
		return
	}
	writeJSON(w, http.StatusCreated, server)
}

func (h *ServerHandler) List(w http.ResponseWriter, r *http.Request) {
	servers, err := h.serverService.List(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, r, "list servers", err)
		return
	}
	writeJSON(w, http.StatusOK, servers)
}

func (h *ServerHandler) Get(w http.ResponseWriter, r *http.Request) {
	serverID, ok := pathID(w, r, "id", "server")
	if !ok {
		return
	}

	details, err := h.serverService.Get(r.Context(), middleware.GetUserID(r.Context()), serverID)
	if err != nil {
		writeServiceError(w, r, "get server", err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func (h *ServerHandler) UpdateIdentityMode(w http.ResponseWriter, r *http.Request) {
	serverID, ok := pathID(w, r, "id", "server")
	if !ok {
		return
	}

	var input struct {
		IdentityMode string `json:"identity_mode"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}

	server, err := h.serverService.UpdateIdentityMode(r.Context(), middleware.GetUserID(r.Context()), serverID, input.IdentityMode)
	if err != nil {
		writeServiceError(w, r, "update identity mode", err)
		return
	}
	writeJSON(w, http.StatusOK, server)
}

func (h *ServerHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	serverID, ok := pathID(w, r, "id", "server")
	if !ok {
		return
	}

	members, err := h.serverService.ListMembers(r.Context(), middleware.GetUserID(r.Context()), serverID)
	if err != nil {
		writeServiceError(w, r, "list members", err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

func (h *ServerHandler) SetServerMask(w http.ResponseWriter, r *http.Request) {
	serverID, ok := pathID(w, r, "id", "server")
	if !ok {
		return
	}

	var input struct {
		MaskID uuid.UUID `json:"mask_id"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}

	member, err := h.serverService.SetServerMask(r.Context(), middleware.GetUserID(r.Context()), serverID, input.MaskID)
	if err != nil {
		writeServiceError(w, r, "set server mask", err)
		return
	}
	writeJSON(w, http.StatusOK, member)
}

func (h *ServerHandler) CreateRole(w http.ResponseWriter, r *http.Request) {
	serverID, ok := pathID(w, r, "id", "server")
	if !ok {
		return
	}

	var input service.CreateRoleInput
	if !decodeJSON(w, r, &input) {
		return
	}
	if errs := validator.ValidateRole(input.Name); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	role, err := h.serverService.CreateRole(r.Context(), middleware.GetUserID(r.Context()), serverID, input)
	if err != nil {
		writeServiceError(w, r, "create role", err)
		return
	}
	writeJSON(w, http.StatusCreated, role)
}

func (h *ServerHandler) ListRoles(w http.ResponseWriter, r *http.Request) {
	serverID, ok := pathID(w, r, "id", "server")
	if !ok {
		return
	}

	roles, err := h.serverService.ListRoles(r.Context(), middleware.GetUserID(r.Context()), serverID)
	if err != nil {
		writeServiceError(w, r, "list roles", err)
		return
	}
	writeJSON(w, http.StatusOK, roles)
}

func (h *ServerHandler) AssignRoles(w http.ResponseWriter, r *http.Request) {
	serverID, ok := pathID(w, r, "id", "server")
	if !ok {
		return
	}
	targetID, ok := pathID(w, r, "userID", "user")
	if !ok {
		return
	}

	var input struct {
		RoleIDs []uuid.UUID `json:"role_ids"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}

	member, err := h.serverService.AssignRoles(r.Context(), middleware.GetUserID(r.Context()), serverID, targetID, input.RoleIDs)
	if err != nil {
		writeServiceError(w, r, "assign roles", err)
		return
	}
	writeJSON(w, http.StatusOK, member)
}

func (h *ServerHandler) CreateInvite(w http.ResponseWriter, r *http.Request) {
	serverID, ok := pathID(w, r, "id", "server")
	if !ok {
		return
	}

	var input service.CreateInviteInput
	if !decodeJSON(w, r, &input) {
		return
	}

	invite, err := h.serverService.CreateInvite(r.Context(), middleware.GetUserID(r.Context()), serverID, input)
	if err != nil {
		writeServiceError(w, r, "create invite", err)
		return
	}
	writeJSON(w, http.StatusCreated, invite)
}

func (h *ServerHandler) JoinByInvite(w http.ResponseWriter, r *http.Request) {
	var input struct {
		MaskID uuid.UUID `json:"mask_id"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}

	member, err := h.serverService.JoinByInvite(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "code"), input.MaskID)
	if err != nil {
		writeServiceError(w, r, "join server", err)
		return
	}
	writeJSON(w, http.StatusCreated, member)
}

func (h *ServerHandler) Kick(w http.ResponseWriter, r *http.Request) {
	serverID, ok := pathID(w, r, "id", "server")
	if !ok {
		return
	}
	targetID, ok := pathID(w, r, "userID", "user")
	if !ok {
		return
	}

	if err := h.serverService.Kick(r.Context(), middleware.GetUserID(r.Context()), serverID, targetID); err != nil {
		writeServiceError(w, r, "kick member", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
