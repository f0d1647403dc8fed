package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoomRoleHost   = "HOST"
	RoomRoleMember = "MEMBER"
)

const (
	ModerationMute   = "MUTE"
	ModerationExile  = "EXILE"
	ModerationLock   = "LOCK"
	ModerationUnlock = "UNLOCK"
)

type Room struct {
	ID                  uuid.UUID  `json:"id"`
	Title               string     `json:"title"`
	CreatedBy           uuid.UUID  `json:"-"`
	Locked              bool       `json:"locked"`
	FogLevel            int        `json:"fog_level"`
	MessageDecayMinutes int        `json:"message_decay_minutes"`
	ExpiresAt           *time.Time `json:"expires_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
}

// IsExpired reports whether the room's expiry has passed at now.
func (r *Room) IsExpired(now time.Time) bool {
	return r.ExpiresAt != nil && !now.Before(*r.ExpiresAt)
}

// DecayCutoff returns the oldest message timestamp still visible at now,
// or nil when messages never decay.
func (r *Room) DecayCutoff(now time.Time) *time.Time {
	if r.MessageDecayMinutes <= 0 {
		return nil
	}
	cutoff := now.Add(-time.Duration(r.MessageDecayMinutes) * time.Minute)
	return &cutoff
}

type RoomMembership struct {
	ID       uuid.UUID `json:"id"`
	RoomID   uuid.UUID `json:"room_id"`
	MaskID   uuid.UUID `json:"mask_id"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

type RoomModeration struct {
	ID           uuid.UUID  `json:"id"`
	RoomID       uuid.UUID  `json:"room_id"`
	ActorMaskID  uuid.UUID  `json:"actor_mask_id"`
	TargetMaskID *uuid.UUID `json:"target_mask_id,omitempty"`
	Action       string     `json:"action"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}
