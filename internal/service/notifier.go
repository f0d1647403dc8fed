package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/vedran77/veil/internal/domain"
	"github.com/vedran77/veil/internal/realtime"
)

// Notifier pushes the live side effects of REST mutations to connected
// sockets. *realtime.Hub implements it.
type Notifier interface {
	RefreshMask(ctx context.Context, mask *domain.Mask)
	RefreshServerIdentities(ctx context.Context, serverID uuid.UUID)
	RefreshMemberIdentity(ctx context.Context, serverID, userID uuid.UUID)
	RemoveServerMember(ctx context.Context, serverID, userID uuid.UUID)
}

// RoomModerator runs room moderation and expiry against live state.
// *realtime.Hub implements it.
type RoomModerator interface {
	Mute(ctx context.Context, m realtime.Moderation, targetMaskID uuid.UUID, minutes int) (*domain.RoomModeration, error)
	Exile(ctx context.Context, m realtime.Moderation, targetMaskID uuid.UUID) (*domain.RoomModeration, error)
	SetLocked(ctx context.Context, m realtime.Moderation, locked bool) (*domain.RoomModeration, error)
	EnsureExpiryTimer(room *domain.Room)
}

var (
	_ Notifier      = (*realtime.Hub)(nil)
	_ RoomModerator = (*realtime.Hub)(nil)
)
