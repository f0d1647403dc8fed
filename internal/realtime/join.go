package realtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/vedran77/veil/internal/domain"
	"github.com/vedran77/veil/internal/repository"
)

// JoinRoom attaches s to roomID as maskID. A mask with no membership
// becomes a MEMBER unless the room is locked.
func (h *Hub) JoinRoom(ctx context.Context, s *Session, roomID, maskID uuid.UUID) error {
	mask, err := h.ownedMask(ctx, s.UserID, maskID)
	if err != nil {
		return err
	}
	room, err := h.liveRoom(ctx, roomID)
	if err != nil {
		return err
	}

	exiled, err := h.repos.Rooms.HasExile(ctx, roomID, maskID)
	if err != nil {
		return fmt.Errorf("checking exile: %w", err)
	}
	if exiled {
		return ErrExiled
	}

	membership, err := h.ensureRoomMembership(ctx, room, maskID)
	if err != nil {
		return err
	}

	p := Presence{
		Key:    RoomKey(roomID),
		UserID: s.UserID,
		Member: memberFromMask(mask, membership.Role),
	}
	res := h.registry.Attach(s, p)
	h.afterReplace(ctx, res)

	// the expiry timer may have fired between liveRoom and Attach
	if room.IsExpired(h.now()) {
		h.leave(ctx, s, domain.ContextRoom, false)
		h.ExpireRoom(ctx, roomID)
		return ErrRoomExpired
	}
	h.EnsureExpiryTimer(room)

	h.emitRoomState(ctx, roomID, s)
	if !res.Rejoin && res.First {
		h.broadcast(p.Key, EventMemberJoined, MemberJoinedPayload{RoomID: roomID, Member: p.Member}, s)
	}
	return nil
}

func (h *Hub) ensureRoomMembership(ctx context.Context, room *domain.Room, maskID uuid.UUID) (*domain.RoomMembership, error) {
	membership, err := h.repos.Rooms.GetMember(ctx, room.ID, maskID)
	if err != nil {
		return nil, fmt.Errorf("loading membership: %w", err)
	}
	if membership != nil {
		return membership, nil
	}
	if room.Locked {
		return nil, ErrRoomLocked
	}

	membership = &domain.RoomMembership{
		ID:       uuid.New(),
		RoomID:   room.ID,
		MaskID:   maskID,
		Role:     domain.RoomRoleMember,
		JoinedAt: h.now(),
	}
	err = h.repos.Rooms.AddMember(ctx, membership)
	if errors.Is(err, repository.ErrDuplicate) {
		// another socket of the same mask won the insert
		membership, err = h.repos.Rooms.GetMember(ctx, room.ID, maskID)
		if err == nil && membership == nil {
			err = errors.New("membership vanished after duplicate insert")
		}
		return membership, err
	}
	if err != nil {
		return nil, fmt.Errorf("creating membership: %w", err)
	}
	return membership, nil
}

// JoinDM attaches s to threadID presenting maskID.
func (h *Hub) JoinDM(ctx context.Context, s *Session, threadID, maskID uuid.UUID) error {
	mask, err := h.ownedMask(ctx, s.UserID, maskID)
	if err != nil {
		return err
	}
	thread, err := h.repos.DMs.GetThreadByID(ctx, threadID)
	if err != nil {
		return err
	}
	if thread == nil {
		return ErrThreadNotFound
	}
	if !thread.HasUser(s.UserID) {
		return ErrNotParticipant
	}

	parts, err := h.repos.DMs.ListParticipants(ctx, threadID)
	if err != nil {
		return fmt.Errorf("listing participants: %w", err)
	}
	maskChanged := true
	for _, part := range parts {
		if part.UserID == s.UserID && part.MaskID == maskID {
			maskChanged = false
		}
	}
	if maskChanged {
		if err := h.repos.DMs.UpsertParticipant(ctx, &domain.DmParticipant{
			ThreadID:  threadID,
			UserID:    s.UserID,
			MaskID:    maskID,
			UpdatedAt: h.now(),
		}); err != nil {
			return fmt.Errorf("saving participant: %w", err)
		}
	}

	p := Presence{
		Key:    DMKey(threadID),
		UserID: s.UserID,
		Member: memberFromMask(mask, ""),
	}
	res := h.registry.Attach(s, p)
	h.afterReplace(ctx, res)

	h.emitDMState(ctx, thread, s)
	if maskChanged || (!res.Rejoin && res.First) {
		h.emitDMStateExcept(ctx, thread, s)
	}
	return nil
}

// JoinChannel attaches s to channelID under the member's effective mask.
func (h *Hub) JoinChannel(ctx context.Context, s *Session, channelID uuid.UUID) error {
	channel, err := h.repos.Channels.GetByID(ctx, channelID)
	if err != nil {
		return err
	}
	if channel == nil {
		return ErrChannelNotFound
	}

	p, err := h.channelPresence(ctx, channel, s.UserID)
	if err != nil {
		return err
	}

	res := h.registry.Attach(s, p)
	h.afterReplace(ctx, res)

	h.emitChannelState(ctx, channelID, s)
	if !res.Rejoin && res.First {
		h.broadcast(p.Key, EventChannelMemberJoined, ChannelMemberJoinedPayload{
			ChannelID: channelID,
			Member:    ChannelMemberView{UserID: s.UserID, Member: p.Member},
		}, s)
	}
	return nil
}

// channelPresence resolves userID's current identity in channel from the repositories.
func (h *Hub) channelPresence(ctx context.Context, channel *domain.Channel, userID uuid.UUID) (Presence, error) {
	server, err := h.repos.Servers.GetByID(ctx, channel.ServerID)
	if err != nil {
		return Presence{}, err
	}
	if server == nil {
		return Presence{}, ErrServerNotFound
	}
	member, err := h.repos.Servers.GetMember(ctx, server.ID, userID)
	if err != nil {
		return Presence{}, err
	}
	if member == nil {
		return Presence{}, ErrNotServerMember
	}

	maskID, err := h.resolver.EffectiveChannelMask(ctx, server, channel.ID, member)
	if err != nil {
		return Presence{}, err
	}
	mask, err := h.repos.Masks.GetByID(ctx, maskID)
	if err != nil {
		return Presence{}, err
	}
	if mask == nil {
		return Presence{}, ErrMaskNotFound
	}

	return Presence{
		Key:      ChannelKey(channel.ID),
		UserID:   userID,
		ServerID: server.ID,
		Member:   memberFromMask(mask, member.Role),
	}, nil
}

// afterReplace announces the departure of a presence replaced by a new join.
func (h *Hub) afterReplace(ctx context.Context, res attachResult) {
	if res.Prev == nil || !res.PrevLast {
		return
	}
	h.announceLeft(ctx, *res.Prev)
}

func (h *Hub) announceLeft(ctx context.Context, p Presence) {
	switch p.Key.Kind {
	case domain.ContextRoom:
		h.broadcast(p.Key, EventMemberLeft, MemberLeftPayload{RoomID: p.Key.ID, MaskID: p.Member.MaskID}, nil)
	case domain.ContextChannel:
		h.broadcast(p.Key, EventChannelMemberLeft, ChannelMemberLeftPayload{ChannelID: p.Key.ID, UserID: p.UserID}, nil)
	case domain.ContextDM:
		thread, err := h.repos.DMs.GetThreadByID(ctx, p.Key.ID)
		if err != nil || thread == nil {
			return
		}
		h.emitDMState(ctx, thread, nil)
	}
}

// LeaveRoom, LeaveDM and LeaveChannel detach s on request and announce the
// departure when s was the identity's last socket.
func (h *Hub) LeaveRoom(ctx context.Context, s *Session) { h.leave(ctx, s, domain.ContextRoom, true) }

func (h *Hub) LeaveDM(ctx context.Context, s *Session) { h.leave(ctx, s, domain.ContextDM, true) }

func (h *Hub) LeaveChannel(ctx context.Context, s *Session) {
	h.leave(ctx, s, domain.ContextChannel, true)
}

func (h *Hub) leave(ctx context.Context, s *Session, kind domain.ContextKind, announce bool) {
	p, last, ok := h.registry.Detach(s, kind)
	if !ok || !announce || !last {
		return
	}
	h.announceLeft(ctx, p)
}
