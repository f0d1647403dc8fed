// Package voice brokers voice sessions: one active SFU room per chat context,
// participant bookkeeping, access tokens and server-side mutes.
package voice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/veil/internal/apperr"
	"github.com/vedran77/veil/internal/domain"
	"github.com/vedran77/veil/internal/permission"
	"github.com/vedran77/veil/internal/repository"
)

const (
	roomNamePrefix  = "veil-"
	DefaultTokenTTL = 6 * time.Hour
)

var (
	ErrInvalidContext   = apperr.Validation("unknown voice context type")
	ErrSessionNotFound  = apperr.NotFound("Voice session")
	ErrSessionEnded     = apperr.Gone("voice session has ended")
	ErrContextNotFound  = apperr.NotFound("Voice context")
	ErrRoomExpired      = apperr.Gone("room has expired")
	ErrMaskNotFound     = apperr.NotFound("Mask")
	ErrMaskNotOwned     = apperr.Forbidden("mask does not belong to you")
	ErrNotAllowed       = apperr.Forbidden("you cannot join this voice session")
	ErrNotModerator     = apperr.Forbidden("you cannot moderate this voice session")
	ErrDMNotModeratable = apperr.Forbidden("direct message calls cannot be moderated")
	ErrSelfMute         = apperr.Forbidden("you cannot server-mute yourself")
)

type Config struct {
	URL      string
	TokenTTL time.Duration
}

// Connection is everything a client needs to join the media room.
type Connection struct {
	Session     *domain.VoiceSession     `json:"session"`
	Participant *domain.VoiceParticipant `json:"participant"`
	Token       string                   `json:"token"`
	URL         string                   `json:"url"`
}

type metadata struct {
	UserID      uuid.UUID `json:"userId"`
	MaskID      uuid.UUID `json:"maskId"`
	DisplayName string    `json:"displayName"`
	Color       string    `json:"color"`
	AvatarSeed  string    `json:"avatarSeed"`
	ContextType string    `json:"contextType"`
	ContextID   uuid.UUID `json:"contextId"`
}

type Broker struct {
	repos    repository.Repositories
	resolver *permission.Resolver
	sfu      SFU
	cfg      Config
	now      func() time.Time
	logger   *slog.Logger
}

func NewBroker(repos repository.Repositories, sfu SFU, cfg Config, logger *slog.Logger) *Broker {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = DefaultTokenTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Broker{
		repos:    repos,
		resolver: permission.NewResolver(repos.Servers, repos.Channels),
		sfu:      sfu,
		cfg:      cfg,
		now:      time.Now,
		logger:   logger.With("component", "voice"),
	}
}

// EnsureActiveSession returns the context's live session, creating one when
// none exists. A concurrent creator winning the insert is read back.
func (b *Broker) EnsureActiveSession(ctx context.Context, contextType string, contextID, createdBy uuid.UUID) (*domain.VoiceSession, error) {
	if !domain.ValidVoiceContext(contextType) {
		return nil, ErrInvalidContext
	}
	existing, err := b.repos.Voice.GetActiveSession(ctx, contextType, contextID)
	if err != nil {
		return nil, fmt.Errorf("loading active session: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	session := &domain.VoiceSession{
		ID:              uuid.New(),
		ContextType:     contextType,
		ContextID:       contextID,
		LivekitRoomName: roomNamePrefix + uuid.NewString(),
		CreatedBy:       createdBy,
		CreatedAt:       b.now(),
	}
	err = b.repos.Voice.CreateSession(ctx, session)
	if errors.Is(err, repository.ErrDuplicate) {
		winner, err := b.repos.Voice.GetActiveSession(ctx, contextType, contextID)
		if err != nil {
			return nil, fmt.Errorf("reloading active session: %w", err)
		}
		if winner == nil {
			return nil, errors.New("active session vanished after duplicate insert")
		}
		return winner, nil
	}
	if err != nil {
		return nil, fmt.Errorf("creating voice session: %w", err)
	}

	b.logger.Info("voice session started", "session", session.ID, "context_type", contextType, "context", contextID)
	return session, nil
}

// Connect authorizes userID in the context, then joins the active session.
func (b *Broker) Connect(ctx context.Context, userID uuid.UUID, contextType string, contextID, maskID uuid.UUID) (*Connection, error) {
	if !domain.ValidVoiceContext(contextType) {
		return nil, ErrInvalidContext
	}
	mask, err := b.authorizeJoin(ctx, userID, contextType, contextID, maskID)
	if err != nil {
		return nil, err
	}
	session, err := b.EnsureActiveSession(ctx, contextType, contextID, userID)
	if err != nil {
		return nil, err
	}
	return b.Join(ctx, session, userID, mask)
}

// authorizeJoin returns the mask userID presents in the context.
func (b *Broker) authorizeJoin(ctx context.Context, userID uuid.UUID, contextType string, contextID, maskID uuid.UUID) (*domain.Mask, error) {
	switch contextType {
	case domain.VoiceContextRoom:
		mask, err := b.ownedMask(ctx, userID, maskID)
		if err != nil {
			return nil, err
		}
		room, err := b.repos.Rooms.GetByID(ctx, contextID)
		if err != nil {
			return nil, err
		}
		if room == nil {
			return nil, ErrContextNotFound
		}
		if room.IsExpired(b.now()) {
			return nil, ErrRoomExpired
		}
		membership, err := b.repos.Rooms.GetMember(ctx, contextID, maskID)
		if err != nil {
			return nil, err
		}
		if membership == nil {
			return nil, ErrNotAllowed
		}
		return mask, nil

	case domain.VoiceContextDMThread:
		mask, err := b.ownedMask(ctx, userID, maskID)
		if err != nil {
			return nil, err
		}
		thread, err := b.repos.DMs.GetThreadByID(ctx, contextID)
		if err != nil {
			return nil, err
		}
		if thread == nil {
			return nil, ErrContextNotFound
		}
		if !thread.HasUser(userID) {
			return nil, ErrNotAllowed
		}
		return mask, nil

	default:
		channel, err := b.repos.Channels.GetByID(ctx, contextID)
		if err != nil {
			return nil, err
		}
		if channel == nil {
			return nil, ErrContextNotFound
		}
		server, member, err := b.serverMember(ctx, channel.ServerID, userID)
		if err != nil {
			return nil, err
		}
		if member == nil {
			return nil, ErrNotAllowed
		}
		effective, err := b.resolver.EffectiveChannelMask(ctx, server, channel.ID, member)
		if err != nil {
			return nil, err
		}
		mask, err := b.repos.Masks.GetByID(ctx, effective)
		if err != nil {
			return nil, err
		}
		if mask == nil {
			return nil, ErrMaskNotFound
		}
		return mask, nil
	}
}

// Join records a participant row for (user, mask) and mints its token. A
// server mute from an earlier attempt with the same mask carries over.
func (b *Broker) Join(ctx context.Context, session *domain.VoiceSession, userID uuid.UUID, mask *domain.Mask) (*Connection, error) {
	if session.EndedAt != nil {
		return nil, ErrSessionEnded
	}
	prev, err := b.repos.Voice.LastParticipant(ctx, session.ID, userID, mask.ID)
	if err != nil {
		return nil, fmt.Errorf("loading previous participant: %w", err)
	}
	muted := prev != nil && prev.IsServerMuted

	now := b.now()
	if err := b.repos.Voice.MarkUserLeft(ctx, session.ID, userID, now); err != nil {
		return nil, fmt.Errorf("closing earlier attempts: %w", err)
	}
	participant := &domain.VoiceParticipant{
		ID:            uuid.New(),
		SessionID:     session.ID,
		UserID:        userID,
		MaskID:        mask.ID,
		JoinedAt:      now,
		IsServerMuted: muted,
	}
	if err := b.repos.Voice.AddParticipant(ctx, participant); err != nil {
		return nil, fmt.Errorf("adding participant: %w", err)
	}

	meta, err := json.Marshal(metadata{
		UserID:      userID,
		MaskID:      mask.ID,
		DisplayName: mask.DisplayName,
		Color:       mask.Color,
		AvatarSeed:  mask.AvatarSeed,
		ContextType: session.ContextType,
		ContextID:   session.ContextID,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding metadata: %w", err)
	}

	token, err := b.sfu.IssueToken(Grant{
		Room:     session.LivekitRoomName,
		Identity: fmt.Sprintf("%s:%s:%s", userID, mask.ID, participant.ID),
		Name:     mask.DisplayName,
		Metadata: string(meta),
		Permission: Permission{
			CanPublish:     !muted,
			CanSubscribe:   true,
			CanPublishData: true,
		},
		TTL: b.cfg.TokenTTL,
	})
	if err != nil {
		return nil, apperr.Upstream("failed to issue voice token", err)
	}

	return &Connection{Session: session, Participant: participant, Token: token, URL: b.cfg.URL}, nil
}

// Leave marks userID gone from the session and ends it when nobody is left.
func (b *Broker) Leave(ctx context.Context, sessionID, userID uuid.UUID) error {
	session, err := b.session(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.EndedAt != nil {
		return nil
	}
	if err := b.repos.Voice.MarkUserLeft(ctx, sessionID, userID, b.now()); err != nil {
		return fmt.Errorf("marking participant left: %w", err)
	}

	active, err := b.repos.Voice.ListActiveParticipants(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("listing participants: %w", err)
	}
	if len(active) == 0 {
		return b.teardown(ctx, session)
	}
	return nil
}

// Mute revokes publishing for every SFU participant presenting targetMaskID
// and persists the flag so a rejoin with the same mask stays muted.
func (b *Broker) Mute(ctx context.Context, sessionID, actorUserID, targetMaskID uuid.UUID) error {
	session, err := b.session(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.EndedAt != nil {
		return ErrSessionEnded
	}
	if session.ContextType == domain.VoiceContextDMThread {
		return ErrDMNotModeratable
	}
	if err := b.authorizeModerator(ctx, session, actorUserID); err != nil {
		return err
	}

	target, err := b.repos.Masks.GetByID(ctx, targetMaskID)
	if err != nil {
		return err
	}
	if target == nil {
		return ErrMaskNotFound
	}
	if target.OwnedBy(actorUserID) {
		return ErrSelfMute
	}

	participants, err := b.sfu.ListParticipants(ctx, session.LivekitRoomName)
	if err != nil {
		return apperr.Upstream("failed to list voice participants", err)
	}
	for _, p := range participants {
		var meta metadata
		if json.Unmarshal([]byte(p.Metadata), &meta) != nil || meta.MaskID != targetMaskID {
			continue
		}
		err := b.sfu.UpdateParticipant(ctx, session.LivekitRoomName, p.Identity, Permission{
			CanPublish:     false,
			CanSubscribe:   true,
			CanPublishData: true,
		})
		if err != nil {
			return apperr.Upstream("failed to mute voice participant", err)
		}
	}

	if err := b.repos.Voice.SetServerMuted(ctx, sessionID, targetMaskID, true); err != nil {
		return fmt.Errorf("persisting mute: %w", err)
	}
	b.logger.Info("voice participant muted", "session", sessionID, "mask", targetMaskID, "actor", actorUserID)
	return nil
}

// End closes the session for everyone. In DMs either participant may end it.
func (b *Broker) End(ctx context.Context, sessionID, actorUserID uuid.UUID) error {
	session, err := b.session(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.EndedAt != nil {
		return nil
	}

	if session.ContextType == domain.VoiceContextDMThread {
		thread, err := b.repos.DMs.GetThreadByID(ctx, session.ContextID)
		if err != nil {
			return err
		}
		if thread == nil || !thread.HasUser(actorUserID) {
			return ErrNotModerator
		}
	} else if err := b.authorizeModerator(ctx, session, actorUserID); err != nil {
		return err
	}

	return b.teardown(ctx, session)
}

// EndForContext ends the active session of a context, if any.
func (b *Broker) EndForContext(ctx context.Context, contextType string, contextID uuid.UUID) error {
	session, err := b.repos.Voice.GetActiveSession(ctx, contextType, contextID)
	if err != nil {
		return fmt.Errorf("loading active session: %w", err)
	}
	if session == nil {
		return nil
	}
	return b.teardown(ctx, session)
}

// teardown ends the session once and removes the SFU room. SFU failures are
// logged; the session is already over from our side.
func (b *Broker) teardown(ctx context.Context, session *domain.VoiceSession) error {
	ended, err := b.repos.Voice.EndSession(ctx, session.ID, b.now())
	if err != nil {
		return fmt.Errorf("ending voice session: %w", err)
	}
	if !ended {
		return nil
	}
	if err := b.sfu.DeleteRoom(ctx, session.LivekitRoomName); err != nil {
		b.logger.Warn("deleting sfu room", "session", session.ID, "room", session.LivekitRoomName, "error", err)
	}
	b.logger.Info("voice session ended", "session", session.ID)
	return nil
}

func (b *Broker) authorizeModerator(ctx context.Context, session *domain.VoiceSession, actorUserID uuid.UUID) error {
	switch session.ContextType {
	case domain.VoiceContextServerChannel:
		channel, err := b.repos.Channels.GetByID(ctx, session.ContextID)
		if err != nil {
			return err
		}
		if channel == nil {
			return ErrContextNotFound
		}
		_, member, err := b.serverMember(ctx, channel.ServerID, actorUserID)
		if err != nil {
			return err
		}
		if member == nil || !member.IsPrivileged() {
			return ErrNotModerator
		}
		return nil

	case domain.VoiceContextRoom:
		masks, err := b.repos.Masks.ListByUser(ctx, actorUserID)
		if err != nil {
			return fmt.Errorf("listing masks: %w", err)
		}
		for _, m := range masks {
			membership, err := b.repos.Rooms.GetMember(ctx, session.ContextID, m.ID)
			if err != nil {
				return err
			}
			if membership != nil && membership.Role == domain.RoomRoleHost {
				return nil
			}
		}
		return ErrNotModerator

	default:
		return ErrDMNotModeratable
	}
}

func (b *Broker) session(ctx context.Context, id uuid.UUID) (*domain.VoiceSession, error) {
	session, err := b.repos.Voice.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

func (b *Broker) serverMember(ctx context.Context, serverID, userID uuid.UUID) (*domain.Server, *domain.ServerMember, error) {
	server, err := b.repos.Servers.GetByID(ctx, serverID)
	if err != nil {
		return nil, nil, err
	}
	if server == nil {
		return nil, nil, ErrContextNotFound
	}
	member, err := b.repos.Servers.GetMember(ctx, serverID, userID)
	if err != nil {
		return nil, nil, err
	}
	return server, member, nil
}

func (b *Broker) ownedMask(ctx context.Context, userID, maskID uuid.UUID) (*domain.Mask, error) {
	mask, err := b.repos.Masks.GetByID(ctx, maskID)
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
