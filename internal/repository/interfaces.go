package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/veil/internal/domain"
)

// ErrDuplicate is returned by Create-style methods when a unique constraint
// rejects the row. Lookups report absence as a nil result, never an error.
var ErrDuplicate = errors.New("duplicate key")

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByFriendCode(ctx context.Context, code string) (*domain.User, error)
	SetDefaultMask(ctx context.Context, userID uuid.UUID, maskID *uuid.UUID) error
}

type MaskRepository interface {
	Create(ctx context.Context, mask *domain.Mask) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Mask, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Mask, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int, error)
	Update(ctx context.Context, mask *domain.Mask) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type FriendRepository interface {
	CreateRequest(ctx context.Context, req *domain.FriendRequest) error
	GetRequest(ctx context.Context, senderID, receiverID uuid.UUID) (*domain.FriendRequest, error)
	GetRequestByID(ctx context.Context, id uuid.UUID) (*domain.FriendRequest, error)
	DeleteRequest(ctx context.Context, id uuid.UUID) error
	ListIncoming(ctx context.Context, userID uuid.UUID) ([]domain.FriendRequest, error)
	CreateFriendship(ctx context.Context, f *domain.Friendship) error
	AreFriends(ctx context.Context, userA, userB uuid.UUID) (bool, error)
	DeleteFriendship(ctx context.Context, userA, userB uuid.UUID) error
	ListFriends(ctx context.Context, userID uuid.UUID) ([]domain.User, error)
}

type RoomRepository interface {
	Create(ctx context.Context, room *domain.Room) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Room, error)
	SetLocked(ctx context.Context, id uuid.UUID, locked bool) error
	// ListExpiring returns every room that carries an expiry, past or future.
	ListExpiring(ctx context.Context) ([]domain.Room, error)

	AddMember(ctx context.Context, m *domain.RoomMembership) error
	GetMember(ctx context.Context, roomID, maskID uuid.UUID) (*domain.RoomMembership, error)
	RemoveMember(ctx context.Context, roomID, maskID uuid.UUID) error

	CreateModeration(ctx context.Context, mod *domain.RoomModeration) error
	ActiveMute(ctx context.Context, roomID, maskID uuid.UUID, now time.Time) (*domain.RoomModeration, error)
	ListActiveMutes(ctx context.Context, roomID uuid.UUID, now time.Time) ([]domain.RoomModeration, error)
	HasExile(ctx context.Context, roomID, maskID uuid.UUID) (bool, error)

	CreateMessage(ctx context.Context, msg *domain.Message) error
	// ListMessagesSince returns messages in chronological order; a nil since means all.
	ListMessagesSince(ctx context.Context, roomID uuid.UUID, since *time.Time) ([]domain.Message, error)
}

type ServerRepository interface {
	Create(ctx context.Context, server *domain.Server) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Server, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Server, error)
	UpdateIdentityMode(ctx context.Context, id uuid.UUID, mode string) error

	AddMember(ctx context.Context, m *domain.ServerMember) error
	GetMember(ctx context.Context, serverID, userID uuid.UUID) (*domain.ServerMember, error)
	ListMembers(ctx context.Context, serverID uuid.UUID) ([]domain.ServerMember, error)
	UpdateMember(ctx context.Context, m *domain.ServerMember) error
	RemoveMember(ctx context.Context, serverID, userID uuid.UUID) error

	CreateRole(ctx context.Context, role *domain.ServerRole) error
	ListRoles(ctx context.Context, serverID uuid.UUID) ([]domain.ServerRole, error)

	CreateInvite(ctx context.Context, invite *domain.ServerInvite) error
	GetInviteByCode(ctx context.Context, code string) (*domain.ServerInvite, error)
	IncrementInviteUses(ctx context.Context, id uuid.UUID) error
}

type ChannelRepository interface {
	Create(ctx context.Context, channel *domain.Channel) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Channel, error)
	ListByServer(ctx context.Context, serverID uuid.UUID) ([]domain.Channel, error)

	SetIdentity(ctx context.Context, ident *domain.ChannelMemberIdentity) error
	GetIdentity(ctx context.Context, channelID, userID uuid.UUID) (*domain.ChannelMemberIdentity, error)

	CreateMessage(ctx context.Context, msg *domain.ServerMessage) error
	// ListMessages returns up to limit messages older than before, oldest first.
	ListMessages(ctx context.Context, channelID uuid.UUID, before *uuid.UUID, limit int) ([]domain.ServerMessage, error)
}

type DMRepository interface {
	CreateThread(ctx context.Context, thread *domain.DmThread) error
	GetThreadByUsers(ctx context.Context, userAID, userBID uuid.UUID) (*domain.DmThread, error)
	GetThreadByID(ctx context.Context, id uuid.UUID) (*domain.DmThread, error)
	ListThreads(ctx context.Context, userID uuid.UUID) ([]domain.DmThread, error)

	UpsertParticipant(ctx context.Context, p *domain.DmParticipant) error
	ListParticipants(ctx context.Context, threadID uuid.UUID) ([]domain.DmParticipant, error)

	CreateMessage(ctx context.Context, msg *domain.DmMessage) error
	ListMessages(ctx context.Context, threadID uuid.UUID, before *uuid.UUID, limit int) ([]domain.DmMessage, error)
}

type UploadRepository interface {
	Create(ctx context.Context, upload *domain.Upload) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Upload, error)
}

type VoiceRepository interface {
	GetActiveSession(ctx context.Context, contextType string, contextID uuid.UUID) (*domain.VoiceSession, error)
	GetSession(ctx context.Context, id uuid.UUID) (*domain.VoiceSession, error)
	// CreateSession returns ErrDuplicate when another active session exists for the context.
	CreateSession(ctx context.Context, session *domain.VoiceSession) error
	// EndSession sets ended_at once and reports whether this call did it.
	EndSession(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)

	AddParticipant(ctx context.Context, p *domain.VoiceParticipant) error
	// LastParticipant returns the most recent row for (session, user, mask), left or not.
	LastParticipant(ctx context.Context, sessionID, userID, maskID uuid.UUID) (*domain.VoiceParticipant, error)
	MarkUserLeft(ctx context.Context, sessionID, userID uuid.UUID, at time.Time) error
	ListActiveParticipants(ctx context.Context, sessionID uuid.UUID) ([]domain.VoiceParticipant, error)
	SetServerMuted(ctx context.Context, sessionID, maskID uuid.UUID, muted bool) error
}

// Repositories bundles every port so wiring code can pass one value around.
type Repositories struct {
	Users    UserRepository
	Masks    MaskRepository
	Friends  FriendRepository
	Rooms    RoomRepository
	Servers  ServerRepository
	Channels ChannelRepository
	DMs      DMRepository
	Uploads  UploadRepository
	Voice    VoiceRepository
}
