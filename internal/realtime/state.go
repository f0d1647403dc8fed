package realtime

import (
	"context"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/vedran77/veil/internal/domain"
)

// emitRoomState sends ROOM_STATE to target, or to every socket in the room
// when target is nil. Rooms are short-lived, so the whole decay-bounded
// history goes out.
func (h *Hub) emitRoomState(ctx context.Context, roomID uuid.UUID, target *Session) {
	room, err := h.repos.Rooms.GetByID(ctx, roomID)
	if err != nil || room == nil {
		h.logger.Warn("room state unavailable", "room", roomID, "error", err)
		return
	}
	now := h.now()

	mutes, err := h.repos.Rooms.ListActiveMutes(ctx, roomID, now)
	if err != nil {
		h.logger.Warn("listing mutes", "room", roomID, "error", err)
		return
	}
	messages, err := h.repos.Rooms.ListMessagesSince(ctx, roomID, room.DecayCutoff(now))
	if err != nil {
		h.logger.Warn("listing room messages", "room", roomID, "error", err)
		return
	}

	members := make([]Member, 0)
	for _, p := range h.registry.Presences(RoomKey(roomID)) {
		members = append(members, p.Member)
	}
	sortMembers(members)

	payload := RoomStatePayload{
		Room:     room,
		Members:  members,
		Mutes:    nonNil(mutes),
		Messages: nonNil(messages),
	}
	h.deliver(RoomKey(roomID), EventRoomState, payload, target, nil)
}

func (h *Hub) emitDMState(ctx context.Context, thread *domain.DmThread, target *Session) {
	h.emitDMStateTo(ctx, thread, target, nil)
}

func (h *Hub) emitDMStateExcept(ctx context.Context, thread *domain.DmThread, exclude *Session) {
	h.emitDMStateTo(ctx, thread, nil, exclude)
}

func (h *Hub) emitDMStateTo(ctx context.Context, thread *domain.DmThread, target, exclude *Session) {
	parts, err := h.repos.DMs.ListParticipants(ctx, thread.ID)
	if err != nil {
		h.logger.Warn("listing dm participants", "thread", thread.ID, "error", err)
		return
	}
	messages, err := h.repos.DMs.ListMessages(ctx, thread.ID, nil, RecentMessageLimit)
	if err != nil {
		h.logger.Warn("listing dm messages", "thread", thread.ID, "error", err)
		return
	}

	views := make([]DMParticipantView, 0, len(parts))
	for _, part := range parts {
		mask, err := h.repos.Masks.GetByID(ctx, part.MaskID)
		if err != nil || mask == nil {
			continue
		}
		views = append(views, DMParticipantView{UserID: part.UserID, Member: memberFromMask(mask, "")})
	}

	online := make([]uuid.UUID, 0, 2)
	for _, p := range h.registry.Presences(DMKey(thread.ID)) {
		online = append(online, p.UserID)
	}
	slices.SortFunc(online, func(a, b uuid.UUID) int { return strings.Compare(a.String(), b.String()) })

	payload := DMStatePayload{
		Thread:       thread,
		Participants: views,
		Online:       online,
		Messages:     nonNil(messages),
	}
	h.deliver(DMKey(thread.ID), EventDMState, payload, target, exclude)
}

func (h *Hub) emitChannelState(ctx context.Context, channelID uuid.UUID, target *Session) {
	channel, err := h.repos.Channels.GetByID(ctx, channelID)
	if err != nil || channel == nil {
		h.logger.Warn("channel state unavailable", "channel", channelID, "error", err)
		return
	}
	server, err := h.repos.Servers.GetByID(ctx, channel.ServerID)
	if err != nil || server == nil {
		h.logger.Warn("channel server unavailable", "channel", channelID, "error", err)
		return
	}
	messages, err := h.repos.Channels.ListMessages(ctx, channelID, nil, RecentMessageLimit)
	if err != nil {
		h.logger.Warn("listing channel messages", "channel", channelID, "error", err)
		return
	}

	members := make([]ChannelMemberView, 0)
	for _, p := range h.registry.Presences(ChannelKey(channelID)) {
		members = append(members, ChannelMemberView{UserID: p.UserID, Member: p.Member})
	}
	slices.SortFunc(members, func(a, b ChannelMemberView) int {
		return strings.Compare(a.DisplayName, b.DisplayName)
	})

	payload := ChannelStatePayload{
		Channel: channel,
		Server: ServerSummary{
			ID:           server.ID,
			Name:         server.Name,
			IdentityMode: server.IdentityMode,
		},
		Members:  members,
		Messages: nonNil(messages),
	}
	h.deliver(ChannelKey(channelID), EventChannelState, payload, target, nil)
}

// deliver sends to target alone, or broadcasts to key minus exclude.
func (h *Hub) deliver(key ContextKey, eventType string, payload any, target, exclude *Session) {
	if target != nil {
		h.emit(target, eventType, payload)
		return
	}
	h.broadcast(key, eventType, payload, exclude)
}

func sortMembers(members []Member) {
	slices.SortFunc(members, func(a, b Member) int {
		if c := strings.Compare(a.DisplayName, b.DisplayName); c != 0 {
			return c
		}
		return strings.Compare(a.MaskID.String(), b.MaskID.String())
	})
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
