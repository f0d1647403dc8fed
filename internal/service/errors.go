package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/vedran77/veil/internal/apperr"
	"github.com/vedran77/veil/internal/domain"
	"github.com/vedran77/veil/internal/repository"
)

var (
	ErrUserNotFound  = apperr.NotFound("User")
	ErrMaskNotFound  = apperr.NotFound("Mask")
	ErrMaskNotOwned  = apperr.Forbidden("mask does not belong to you")
	ErrInvalidCursor = apperr.Validation("invalid pagination cursor")
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

func clampLimit(limit int) int {
	if limit <= 0 || limit > maxPageSize {
		return defaultPageSize
	}
	return limit
}

// ownedMask loads maskID and checks that userID owns it.
func ownedMask(ctx context.Context, masks repository.MaskRepository, userID, maskID uuid.UUID) (*domain.Mask, error) {
	mask, err := masks.GetByID(ctx, maskID)
	if err != nil {
		return nil, err
	}
	if mask == nil {
		return nil, ErrMaskNotFound
	}
	if !mask.OwnedBy(userID) {
		return nil, ErrMaskNotOwned
	}
	return mask, nil
}
