package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/veil/internal/apperr"
	"github.com/vedran77/veil/internal/domain"
	"github.com/vedran77/veil/internal/repository"
)

var (
	ErrMaskLimit       = apperr.Conflict(fmt.Sprintf("you can own at most %d masks", domain.MaxMasksPerUser))
	ErrAvatarNotFound  = apperr.NotFound("Avatar upload")
	ErrAvatarNotOwned  = apperr.Forbidden("avatar upload does not belong to you")
	ErrAvatarWrongKind = apperr.Validation("upload is not a mask avatar")
)

type MaskService struct {
	maskRepo   repository.MaskRepository
	userRepo   repository.UserRepository
	uploadRepo repository.UploadRepository
	notifier   Notifier
}

func NewMaskService(maskRepo repository.MaskRepository, userRepo repository.UserRepository, uploadRepo repository.UploadRepository) *MaskService {
	return &MaskService{
		maskRepo:   maskRepo,
		userRepo:   userRepo,
		uploadRepo: uploadRepo,
	}
}

func (s *MaskService) SetNotifier(n Notifier) {
	s.notifier = n
}

type MaskInput struct {
	DisplayName    string     `json:"display_name"`
	Color          string     `json:"color"`
	AvatarSeed     string     `json:"avatar_seed"`
	AvatarUploadID *uuid.UUID `json:"avatar_upload_id"`
}

type UpdateMaskInput struct {
	DisplayName    *string    `json:"display_name"`
	Color          *string    `json:"color"`
	AvatarSeed     *string    `json:"avatar_seed"`
	AvatarUploadID *uuid.UUID `json:"avatar_upload_id"`
}

// Create adds a mask. The first mask a user creates becomes their default.
func (s *MaskService) Create(ctx context.Context, userID uuid.UUID, input MaskInput) (*domain.Mask, error) {
	count, err := s.maskRepo.CountByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if count >= domain.MaxMasksPerUser {
		return nil, ErrMaskLimit
	}
	if err := s.checkAvatar(ctx, userID, input.AvatarUploadID); err != nil {
		return nil, err
	}

	seed := input.AvatarSeed
	if seed == "" {
		seed = uuid.NewString()
	}
	mask := &domain.Mask{
		ID:             uuid.New(),
		UserID:         userID,
		DisplayName:    input.DisplayName,
		Color:          input.Color,
		AvatarSeed:     seed,
		AvatarUploadID: input.AvatarUploadID,
		CreatedAt:      time.Now(),
	}
	if err := s.maskRepo.Create(ctx, mask); err != nil {
		return nil, fmt.Errorf("creating mask: %w", err)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user != nil && user.DefaultMaskID == nil {
		if err := s.userRepo.SetDefaultMask(ctx, userID, &mask.ID); err != nil {
			return nil, fmt.Errorf("setting default mask: %w", err)
		}
	}

	return mask, nil
}

func (s *MaskService) List(ctx context.Context, userID uuid.UUID) ([]domain.Mask, error) {
	masks, err := s.maskRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if masks == nil {
		masks = []domain.Mask{}
	}
	return masks, nil
}

// Update edits a mask and refreshes every live snapshot showing it.
func (s *MaskService) Update(ctx context.Context, userID, maskID uuid.UUID, input UpdateMaskInput) (*domain.Mask, error) {
	mask, err := ownedMask(ctx, s.maskRepo, userID, maskID)
	if err != nil {
		return nil, err
	}
	if err := s.checkAvatar(ctx, userID, input.AvatarUploadID); err != nil {
		return nil, err
	}

	if input.DisplayName != nil {
		mask.DisplayName = *input.DisplayName
	}
	if input.Color != nil {
		mask.Color = *input.Color
	}
	if input.AvatarSeed != nil {
		mask.AvatarSeed = *input.AvatarSeed
	}
	if input.AvatarUploadID != nil {
		mask.AvatarUploadID = input.AvatarUploadID
	}

	if err := s.maskRepo.Update(ctx, mask); err != nil {
		return nil, fmt.Errorf("updating mask: %w", err)
	}

	if s.notifier != nil {
		s.notifier.RefreshMask(ctx, mask)
	}
	return mask, nil
}

// Delete removes a mask. When it was the default, another mask (if any)
// takes its place.
func (s *MaskService) Delete(ctx context.Context, userID, maskID uuid.UUID) error {
	if _, err := ownedMask(ctx, s.maskRepo, userID, maskID); err != nil {
		return err
	}
	if err := s.maskRepo.Delete(ctx, maskID); err != nil {
		return fmt.Errorf("deleting mask: %w", err)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil || user.DefaultMaskID == nil || *user.DefaultMaskID != maskID {
		return nil
	}

	remaining, err := s.maskRepo.ListByUser(ctx, userID)
	if err != nil {
		return err
	}
	var next *uuid.UUID
	if len(remaining) > 0 {
		next = &remaining[0].ID
	}
	return s.userRepo.SetDefaultMask(ctx, userID, next)
}

func (s *MaskService) SetDefault(ctx context.Context, userID, maskID uuid.UUID) error {
	if _, err := ownedMask(ctx, s.maskRepo, userID, maskID); err != nil {
		return err
	}
	return s.userRepo.SetDefaultMask(ctx, userID, &maskID)
}

func (s *MaskService) checkAvatar(ctx context.Context, userID uuid.UUID, uploadID *uuid.UUID) error {
	if uploadID == nil {
		return nil
	}
	upload, err := s.uploadRepo.GetByID(ctx, *uploadID)
	if err != nil {
		return err
	}
	if upload == nil {
		return ErrAvatarNotFound
	}
	if upload.OwnerID != userID {
		return ErrAvatarNotOwned
	}
	if upload.Kind != domain.UploadKindMaskAvatar {
		return ErrAvatarWrongKind
	}
	return nil
}
