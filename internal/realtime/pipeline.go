package realtime

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/vedran77/veil/internal/apperr"
	"github.com/vedran77/veil/internal/domain"
	"github.com/vedran77/veil/internal/sanitize"
)

var (
	ErrEmptyMessage      = apperr.Validation("message is empty")
	ErrUploadNotFound    = apperr.NotFound("Upload")
	ErrUploadNotOwned    = apperr.Forbidden("upload does not belong to you")
	ErrUploadWrongTarget = apperr.Validation("upload cannot be attached here")
)

// Outgoing is a message as submitted by a client, before any checks.
type Outgoing struct {
	ContextID     uuid.UUID
	MaskID        uuid.UUID // ignored for channels, where the mask is resolved
	Body          string
	ImageUploadID *uuid.UUID
}

// SendRoomMessage runs the room pipeline and broadcasts NEW_MESSAGE.
func (h *Hub) SendRoomMessage(ctx context.Context, s *Session, in Outgoing) error {
	p, ok := h.registry.PresenceOf(s, domain.ContextRoom)
	if !ok || p.Key.ID != in.ContextID || p.Member.MaskID != in.MaskID {
		return ErrNotJoined
	}
	if _, err := h.liveRoom(ctx, in.ContextID); err != nil {
		return err
	}

	mask, err := h.ownedMask(ctx, s.UserID, in.MaskID)
	if err != nil {
		return err
	}
	membership, err := h.repos.Rooms.GetMember(ctx, in.ContextID, in.MaskID)
	if err != nil {
		return fmt.Errorf("loading membership: %w", err)
	}
	if membership == nil {
		return ErrNotRoomMember
	}
	mute, err := h.repos.Rooms.ActiveMute(ctx, in.ContextID, in.MaskID, h.now())
	if err != nil {
		return fmt.Errorf("checking mute: %w", err)
	}
	if mute != nil {
		return ErrMuted
	}

	body, err := h.prepare(ctx, s, domain.ContextRoom, in)
	if err != nil {
		return err
	}

	msg := &domain.Message{
		ID:            uuid.New(),
		RoomID:        in.ContextID,
		MaskID:        mask.ID,
		Body:          body,
		ImageUploadID: in.ImageUploadID,
		CreatedAt:     h.now(),
		Author:        domain.AuthorFromMask(mask),
	}
	if err := h.repos.Rooms.CreateMessage(ctx, msg); err != nil {
		return fmt.Errorf("creating message: %w", err)
	}

	h.broadcast(RoomKey(in.ContextID), EventNewMessage, MessagePayload{Message: *msg}, nil)
	return nil
}

// SendDMMessage runs the DM pipeline and broadcasts NEW_DM_MESSAGE.
func (h *Hub) SendDMMessage(ctx context.Context, s *Session, in Outgoing) error {
	p, ok := h.registry.PresenceOf(s, domain.ContextDM)
	if !ok || p.Key.ID != in.ContextID || p.Member.MaskID != in.MaskID {
		return ErrNotJoined
	}
	thread, err := h.repos.DMs.GetThreadByID(ctx, in.ContextID)
	if err != nil {
		return err
	}
	if thread == nil {
		return ErrThreadNotFound
	}

	mask, err := h.ownedMask(ctx, s.UserID, in.MaskID)
	if err != nil {
		return err
	}
	if !thread.HasUser(s.UserID) {
		return ErrNotParticipant
	}

	body, err := h.prepare(ctx, s, domain.ContextDM, in)
	if err != nil {
		return err
	}

	msg := &domain.DmMessage{
		ID:            uuid.New(),
		ThreadID:      thread.ID,
		SenderID:      s.UserID,
		MaskID:        mask.ID,
		Body:          body,
		ImageUploadID: in.ImageUploadID,
		CreatedAt:     h.now(),
		Author:        domain.AuthorFromMask(mask),
	}
	if err := h.repos.DMs.CreateMessage(ctx, msg); err != nil {
		return fmt.Errorf("creating dm message: %w", err)
	}

	h.broadcast(DMKey(thread.ID), EventNewDMMessage, DMMessagePayload{DmMessage: *msg}, nil)
	return nil
}

// SendChannelMessage runs the channel pipeline and broadcasts
// NEW_CHANNEL_MESSAGE. The authoring mask is resolved fresh, never taken
// from the cached presence.
func (h *Hub) SendChannelMessage(ctx context.Context, s *Session, in Outgoing) error {
	p, ok := h.registry.PresenceOf(s, domain.ContextChannel)
	if !ok || p.Key.ID != in.ContextID {
		return ErrNotJoined
	}
	channel, err := h.repos.Channels.GetByID(ctx, in.ContextID)
	if err != nil {
		return err
	}
	if channel == nil {
		return ErrChannelNotFound
	}

	fresh, err := h.channelPresence(ctx, channel, s.UserID)
	if err != nil {
		return err
	}

	body, err := h.prepare(ctx, s, domain.ContextChannel, in)
	if err != nil {
		return err
	}

	msg := &domain.ServerMessage{
		ID:            uuid.New(),
		ChannelID:     channel.ID,
		UserID:        s.UserID,
		MaskID:        fresh.Member.MaskID,
		Body:          body,
		ImageUploadID: in.ImageUploadID,
		CreatedAt:     h.now(),
		Author: domain.MessageAuthor{
			MaskID:      fresh.Member.MaskID,
			DisplayName: fresh.Member.DisplayName,
			Color:       fresh.Member.Color,
			AvatarSeed:  fresh.Member.AvatarSeed,
		},
	}
	if err := h.repos.Channels.CreateMessage(ctx, msg); err != nil {
		return fmt.Errorf("creating channel message: %w", err)
	}

	h.broadcast(ChannelKey(channel.ID), EventNewChannelMessage, ChannelMessagePayload{ServerMessage: *msg}, nil)
	return nil
}

// prepare applies the shared tail of every pipeline: rate limit,
// sanitization, attachment checks and the empty-message rule.
func (h *Hub) prepare(ctx context.Context, s *Session, kind domain.ContextKind, in Outgoing) (string, error) {
	if !s.limiter(kind).Allow(h.now()) {
		return "", ErrRateLimited
	}

	body := sanitize.MessageBody(in.Body)

	if in.ImageUploadID != nil {
		upload, err := h.repos.Uploads.GetByID(ctx, *in.ImageUploadID)
		if err != nil {
			return "", fmt.Errorf("loading upload: %w", err)
		}
		if upload == nil {
			return "", ErrUploadNotFound
		}
		if upload.OwnerID != s.UserID {
			return "", ErrUploadNotOwned
		}
		if upload.Kind != domain.UploadKindMessageImage || !upload.MatchesContext(kind, in.ContextID) {
			return "", ErrUploadWrongTarget
		}
	}

	if body == "" && in.ImageUploadID == nil {
		return "", ErrEmptyMessage
	}
	return body, nil
}
