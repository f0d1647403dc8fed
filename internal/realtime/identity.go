package realtime

import (
	"context"

	"github.com/google/uuid"
	"github.com/vedran77/veil/internal/domain"
)

// RefreshServerIdentities re-resolves the channel identity of every live
// socket in serverID, typically after the identity mode changed.
func (h *Hub) RefreshServerIdentities(ctx context.Context, serverID uuid.UUID) {
	sessions := h.registry.Find(domain.ContextChannel, func(p Presence) bool {
		return p.ServerID == serverID
	})
	h.refreshChannelSessions(ctx, sessions)
}

// RefreshMemberIdentity does the same for one member's sockets, after their
// server mask or a channel override changed.
func (h *Hub) RefreshMemberIdentity(ctx context.Context, serverID, userID uuid.UUID) {
	sessions := h.registry.Find(domain.ContextChannel, func(p Presence) bool {
		return p.ServerID == serverID && p.UserID == userID
	})
	h.refreshChannelSessions(ctx, sessions)
}

func (h *Hub) refreshChannelSessions(ctx context.Context, sessions []*Session) {
	touched := make(map[uuid.UUID]struct{})
	for _, s := range sessions {
		current, ok := h.registry.PresenceOf(s, domain.ContextChannel)
		if !ok {
			continue
		}
		channel, err := h.repos.Channels.GetByID(ctx, current.Key.ID)
		if err != nil || channel == nil {
			h.leave(ctx, s, domain.ContextChannel, true)
			continue
		}
		fresh, err := h.channelPresence(ctx, channel, s.UserID)
		if err != nil {
			h.logger.Debug("dropping stale channel presence", "socket", s.ID(), "error", err)
			h.leave(ctx, s, domain.ContextChannel, true)
			continue
		}
		h.registry.Update(s, domain.ContextChannel, func(p *Presence) {
			p.Member = fresh.Member
		})
		touched[channel.ID] = struct{}{}
	}

	for channelID := range touched {
		h.emitChannelState(ctx, channelID, nil)
	}
}

// RemoveServerMember detaches a kicked member from every channel of the
// server. Remaining sockets see the usual CHANNEL_MEMBER_LEFT.
func (h *Hub) RemoveServerMember(ctx context.Context, serverID, userID uuid.UUID) {
	sessions := h.registry.Find(domain.ContextChannel, func(p Presence) bool {
		return p.ServerID == serverID && p.UserID == userID
	})
	for _, s := range sessions {
		h.leave(ctx, s, domain.ContextChannel, true)
		h.SendError(s, ErrNotServerMember)
	}
}

// RefreshMask rewrites the cached display fields of every presence showing
// mask and re-sends the affected states.
func (h *Hub) RefreshMask(ctx context.Context, mask *domain.Mask) {
	rooms := make(map[uuid.UUID]struct{})
	threads := make(map[uuid.UUID]struct{})
	channels := make(map[uuid.UUID]struct{})

	for _, kind := range []domain.ContextKind{domain.ContextRoom, domain.ContextDM, domain.ContextChannel} {
		sessions := h.registry.Find(kind, func(p Presence) bool {
			return p.Member.MaskID == mask.ID
		})
		for _, s := range sessions {
			var key ContextKey
			updated := h.registry.Update(s, kind, func(p *Presence) {
				p.Member = memberFromMask(mask, p.Member.Role)
				key = p.Key
			})
			if !updated {
				continue
			}
			switch kind {
			case domain.ContextRoom:
				rooms[key.ID] = struct{}{}
			case domain.ContextDM:
				threads[key.ID] = struct{}{}
			case domain.ContextChannel:
				channels[key.ID] = struct{}{}
			}
		}
	}

	for id := range rooms {
		h.emitRoomState(ctx, id, nil)
	}
	for id := range threads {
		thread, err := h.repos.DMs.GetThreadByID(ctx, id)
		if err != nil || thread == nil {
			continue
		}
		h.emitDMState(ctx, thread, nil)
	}
	for id := range channels {
		h.emitChannelState(ctx, id, nil)
	}
}
