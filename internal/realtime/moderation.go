package realtime

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/veil/internal/apperr"
	"github.com/vedran77/veil/internal/domain"
)

const (
	DefaultMuteMinutes = 10
	MaxMuteMinutes     = 1440
)

var (
	ErrNotHost          = apperr.Forbidden("only the room host can moderate")
	ErrTargetNotFound   = apperr.NotFound("Room member")
	ErrTargetIsHost     = apperr.Forbidden("the host cannot be moderated")
	ErrCannotTargetSelf = apperr.Forbidden("you cannot moderate yourself")
)

// ClampMuteMinutes bounds a requested duration to [1, MaxMuteMinutes]. Zero
// means none was given and yields the default.
func ClampMuteMinutes(minutes int) int {
	if minutes == 0 {
		return DefaultMuteMinutes
	}
	return min(max(minutes, 1), MaxMuteMinutes)
}

// Moderation identifies who is acting where.
type Moderation struct {
	ActorUserID uuid.UUID
	RoomID      uuid.UUID
	ActorMaskID uuid.UUID
}

// authorizeHost checks the actor presents an owned HOST mask in a live room.
func (h *Hub) authorizeHost(ctx context.Context, m Moderation) (*domain.Room, error) {
	if _, err := h.ownedMask(ctx, m.ActorUserID, m.ActorMaskID); err != nil {
		return nil, err
	}
	room, err := h.liveRoom(ctx, m.RoomID)
	if err != nil {
		return nil, err
	}
	actor, err := h.repos.Rooms.GetMember(ctx, m.RoomID, m.ActorMaskID)
	if err != nil {
		return nil, fmt.Errorf("loading actor membership: %w", err)
	}
	if actor == nil || actor.Role != domain.RoomRoleHost {
		return nil, ErrNotHost
	}
	return room, nil
}

func (h *Hub) moderatableTarget(ctx context.Context, roomID, targetMaskID uuid.UUID) error {
	target, err := h.repos.Rooms.GetMember(ctx, roomID, targetMaskID)
	if err != nil {
		return fmt.Errorf("loading target membership: %w", err)
	}
	if target == nil {
		return ErrTargetNotFound
	}
	if target.Role != domain.RoomRoleMember {
		return ErrTargetIsHost
	}
	return nil
}

// Mute silences targetMaskID for the clamped number of minutes.
func (h *Hub) Mute(ctx context.Context, m Moderation, targetMaskID uuid.UUID, minutes int) (*domain.RoomModeration, error) {
	if _, err := h.authorizeHost(ctx, m); err != nil {
		return nil, err
	}
	if targetMaskID == m.ActorMaskID {
		return nil, ErrCannotTargetSelf
	}
	if err := h.moderatableTarget(ctx, m.RoomID, targetMaskID); err != nil {
		return nil, err
	}

	now := h.now()
	expires := now.Add(time.Duration(ClampMuteMinutes(minutes)) * time.Minute)
	mod, err := h.record(ctx, m, domain.ModerationMute, &targetMaskID, &expires)
	if err != nil {
		return nil, err
	}

	h.emitRoomState(ctx, m.RoomID, nil)
	return mod, nil
}

// Exile removes targetMaskID from the room for good and drops its sockets
// without a MEMBER_LEFT; the moderation event already tells everyone.
func (h *Hub) Exile(ctx context.Context, m Moderation, targetMaskID uuid.UUID) (*domain.RoomModeration, error) {
	if _, err := h.authorizeHost(ctx, m); err != nil {
		return nil, err
	}
	if targetMaskID == m.ActorMaskID {
		return nil, ErrCannotTargetSelf
	}
	if err := h.moderatableTarget(ctx, m.RoomID, targetMaskID); err != nil {
		return nil, err
	}

	if err := h.repos.Rooms.RemoveMember(ctx, m.RoomID, targetMaskID); err != nil {
		return nil, fmt.Errorf("removing membership: %w", err)
	}
	mod, err := h.record(ctx, m, domain.ModerationExile, &targetMaskID, nil)
	if err != nil {
		return nil, err
	}

	evicted := h.registry.DetachWhere(RoomKey(m.RoomID), func(p Presence) bool {
		return p.Member.MaskID == targetMaskID
	})
	for _, s := range evicted {
		h.SendError(s, ErrExiled)
	}

	h.emitRoomState(ctx, m.RoomID, nil)
	return mod, nil
}

// SetLocked locks or unlocks the room. Existing members are unaffected.
func (h *Hub) SetLocked(ctx context.Context, m Moderation, locked bool) (*domain.RoomModeration, error) {
	if _, err := h.authorizeHost(ctx, m); err != nil {
		return nil, err
	}
	if err := h.repos.Rooms.SetLocked(ctx, m.RoomID, locked); err != nil {
		return nil, fmt.Errorf("updating lock: %w", err)
	}

	action := domain.ModerationUnlock
	if locked {
		action = domain.ModerationLock
	}
	mod, err := h.record(ctx, m, action, nil, nil)
	if err != nil {
		return nil, err
	}

	h.emitRoomState(ctx, m.RoomID, nil)
	return mod, nil
}

// record persists a moderation entry and broadcasts MODERATION_EVENT.
func (h *Hub) record(ctx context.Context, m Moderation, action string, target *uuid.UUID, expires *time.Time) (*domain.RoomModeration, error) {
	mod := &domain.RoomModeration{
		ID:           uuid.New(),
		RoomID:       m.RoomID,
		ActorMaskID:  m.ActorMaskID,
		TargetMaskID: target,
		Action:       action,
		ExpiresAt:    expires,
		CreatedAt:    h.now(),
	}
	if err := h.repos.Rooms.CreateModeration(ctx, mod); err != nil {
		return nil, fmt.Errorf("recording %s: %w", action, err)
	}

	h.broadcast(RoomKey(m.RoomID), EventModeration, ModerationPayload{
		RoomID:       m.RoomID,
		Action:       action,
		ActorMaskID:  m.ActorMaskID,
		TargetMaskID: target,
		ExpiresAt:    expires,
	}, nil)
	return mod, nil
}
