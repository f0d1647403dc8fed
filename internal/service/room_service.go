package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/veil/internal/apperr"
	"github.com/vedran77/veil/internal/domain"
	"github.com/vedran77/veil/internal/realtime"
	"github.com/vedran77/veil/internal/repository"
)

const (
	MaxFogLevel       = 3
	MaxRoomTTLMinutes = 7 * 24 * 60
)

var (
	ErrRoomNotFound = apperr.NotFound("Room")
	ErrRoomExpired  = apperr.Gone("room has expired")
	ErrInvalidRoom  = apperr.Validation("invalid room settings")
)

type RoomService struct {
	roomRepo  repository.RoomRepository
	maskRepo  repository.MaskRepository
	moderator RoomModerator
}

func NewRoomService(roomRepo repository.RoomRepository, maskRepo repository.MaskRepository, moderator RoomModerator) *RoomService {
	return &RoomService{
		roomRepo:  roomRepo,
		maskRepo:  maskRepo,
		moderator: moderator,
	}
}

type CreateRoomInput struct {
	Title               string    `json:"title"`
	MaskID              uuid.UUID `json:"mask_id"`
	FogLevel            int       `json:"fog_level"`
	MessageDecayMinutes int       `json:"message_decay_minutes"`
	TTLMinutes          int       `json:"ttl_minutes"`
}

// Create opens a room hosted by the given mask and arms its expiry.
func (s *RoomService) Create(ctx context.Context, userID uuid.UUID, input CreateRoomInput) (*domain.Room, error) {
	if input.FogLevel < 0 || input.FogLevel > MaxFogLevel ||
		input.MessageDecayMinutes < 0 ||
		input.TTLMinutes < 0 || input.TTLMinutes > MaxRoomTTLMinutes {
		return nil, ErrInvalidRoom
	}
	if _, err := ownedMask(ctx, s.maskRepo, userID, input.MaskID); err != nil {
		return nil, err
	}

	now := time.Now()
	room := &domain.Room{
		ID:                  uuid.New(),
		Title:               input.Title,
		CreatedBy:           userID,
		FogLevel:            input.FogLevel,
		MessageDecayMinutes: input.MessageDecayMinutes,
		CreatedAt:           now,
	}
	if input.TTLMinutes > 0 {
		expires := now.Add(time.Duration(input.TTLMinutes) * time.Minute)
		room.ExpiresAt = &expires
	}

	if err := s.roomRepo.Create(ctx, room); err != nil {
		return nil, fmt.Errorf("creating room: %w", err)
	}
	if err := s.roomRepo.AddMember(ctx, &domain.RoomMembership{
		ID:       uuid.New(),
		RoomID:   room.ID,
		MaskID:   input.MaskID,
		Role:     domain.RoomRoleHost,
		JoinedAt: now,
	}); err != nil {
		return nil, fmt.Errorf("adding host: %w", err)
	}

	s.moderator.EnsureExpiryTimer(room)
	return room, nil
}

// Get returns a live room. Rooms are addressable by anyone holding the id.
func (s *RoomService) Get(ctx context.Context, roomID uuid.UUID) (*domain.Room, error) {
	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, ErrRoomNotFound
	}
	if room.IsExpired(time.Now()) {
		return nil, ErrRoomExpired
	}
	return room, nil
}

type ModerationInput struct {
	ActorMaskID  uuid.UUID `json:"actor_mask_id"`
	TargetMaskID uuid.UUID `json:"target_mask_id"`
	Minutes      int       `json:"minutes"`
}

func (s *RoomService) Mute(ctx context.Context, userID, roomID uuid.UUID, input ModerationInput) (*domain.RoomModeration, error) {
	return s.moderator.Mute(ctx, moderation(userID, roomID, input.ActorMaskID), input.TargetMaskID, input.Minutes)
}

func (s *RoomService) Exile(ctx context.Context, userID, roomID uuid.UUID, input ModerationInput) (*domain.RoomModeration, error) {
	return s.moderator.Exile(ctx, moderation(userID, roomID, input.ActorMaskID), input.TargetMaskID)
}

func (s *RoomService) SetLocked(ctx context.Context, userID, roomID, actorMaskID uuid.UUID, locked bool) (*domain.RoomModeration, error) {
	return s.moderator.SetLocked(ctx, moderation(userID, roomID, actorMaskID), locked)
}

func moderation(userID, roomID, actorMaskID uuid.UUID) realtime.Moderation {
	return realtime.Moderation{ActorUserID: userID, RoomID: roomID, ActorMaskID: actorMaskID}
}
