package memory

import (
	"context"
	"slices"

	"github.com/google/uuid"
	"github.com/vedran77/veil/internal/domain"
)

type ChannelRepo struct {
	s *Store
}

func (r *ChannelRepo) Create(_ context.Context, channel *domain.Channel) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.channels[channel.ID] = *channel
	return nil
}

func (r *ChannelRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Channel, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	ch, ok := r.s.channels[id]
	if !ok {
		return nil, nil
	}
	return &ch, nil
}

func (r *ChannelRepo) ListByServer(_ context.Context, serverID uuid.UUID) ([]domain.Channel, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var channels []domain.Channel
	for _, ch := range r.s.channels {
		if ch.ServerID == serverID {
			channels = append(channels, ch)
		}
	}
	slices.SortFunc(channels, func(a, b domain.Channel) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return channels, nil
}

func (r *ChannelRepo) SetIdentity(_ context.Context, ident *domain.ChannelMemberIdentity) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.channelIdentities[pairKey{ident.ChannelID, ident.UserID}] = *ident
	return nil
}

func (r *ChannelRepo) GetIdentity(_ context.Context, channelID, userID uuid.UUID) (*domain.ChannelMemberIdentity, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	ident, ok := r.s.channelIdentities[pairKey{channelID, userID}]
	if !ok {
		return nil, nil
	}
	return &ident, nil
}

func (r *ChannelRepo) CreateMessage(_ context.Context, msg *domain.ServerMessage) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.channelMessages = append(r.s.channelMessages, *msg)
	return nil
}

func (r *ChannelRepo) ListMessages(_ context.Context, channelID uuid.UUID, before *uuid.UUID, limit int) ([]domain.ServerMessage, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var inChannel []domain.ServerMessage
	for _, msg := range r.s.channelMessages {
		if msg.ChannelID == channelID {
			inChannel = append(inChannel, msg)
		}
	}
	msgs := page(inChannel, func(m domain.ServerMessage) uuid.UUID { return m.ID }, before, limit)
	for i := range msgs {
		msgs[i].Author = r.s.author(msgs[i].MaskID)
	}
	return msgs, nil
}
