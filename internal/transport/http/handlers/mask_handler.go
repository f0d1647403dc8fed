package handlers

import (
	"net/http"

	"github.com/vedran77/veil/internal/service"
	"github.com/vedran77/veil/internal/transport/http/middleware"
	"github.com/vedran77/veil/pkg/validator"
)

type MaskHandler struct {
	maskService *service.MaskService
}

func NewMaskHandler(maskService *service.MaskService) *MaskHandler {
	return &MaskHandler{maskService: maskService}
}

func (h *MaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var input service.MaskInput
	if !decodeJSON(w, r, &input) {
		return
	}
	if errs := validator.ValidateMask(input.DisplayName, input.Color); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	mask, err := h.maskService.Create(r.Context(), userID, input)
	if err != nil {
		writeServiceError(w, r, "create mask", err)
		return
	}
	writeJSON(w, http.StatusCreated, mask)
}

func (h *MaskHandler) List(w http.ResponseWriter, r *http.Request) {
	masks, err := h.maskService.List(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, r, "list masks", err)
		return
	}
	writeJSON(w, http.StatusOK, masks)
}

func (h *MaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	maskID, ok := pathID(w, r, "id", "mask")
	if !ok {
		return
	}

	var input service.UpdateMaskInput
	if !decodeJSON(w, r, &input) {
		return
	}

	if errs := validator.ValidateMaskUpdate(input.DisplayName, input.Color); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	mask, err := h.maskService.Update(r.Context(), userID, maskID, input)
	if err != nil {
		writeServiceError(w, r, "update mask", err)
		return
	}
	writeJSON(w, http.StatusOK, mask)
}

func (h *MaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	maskID, ok := pathID(w, r, "id", "mask")
	if !ok {
		return
	}
	if err := h.maskService.Delete(r.Context(), middleware.GetUserID(r.Context()), maskID); err != nil {
		writeServiceError(w, r, "delete mask", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *MaskHandler) SetDefault(w http.ResponseWriter, r *http.Request) {
	maskID, ok := pathID(w, r, "id", "mask")
	if !ok {
		return
	}
	if err := h.maskService.SetDefault(r.Context(), middleware.GetUserID(r.Context()), maskID); err != nil {
		writeServiceError(w, r, "set default mask", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
