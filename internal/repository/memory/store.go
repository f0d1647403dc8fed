// Package memory is an in-process implementation of the repository ports.
// It backs STORAGE=memory deployments and doubles as the fake in tests.
package memory

import (
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/vedran77/veil/internal/domain"
	"github.com/vedran77/veil/internal/repository"
)

type pairKey struct {
	a, b uuid.UUID
}

// Store holds every table behind one lock. Values are copied on the way in
// and out so callers never share memory with the store.
type Store struct {
	mu sync.RWMutex

	users             map[uuid.UUID]domain.User
	masks             map[uuid.UUID]domain.Mask
	friendRequests    map[uuid.UUID]domain.FriendRequest
	friendships       map[pairKey]domain.Friendship
	rooms             map[uuid.UUID]domain.Room
	roomMembers       map[pairKey]domain.RoomMembership
	moderations       []domain.RoomModeration
	roomMessages      []domain.Message
	servers           map[uuid.UUID]domain.Server
	serverMembers     map[pairKey]domain.ServerMember
	roles             map[uuid.UUID]domain.ServerRole
	invites           map[uuid.UUID]domain.ServerInvite
	channels          map[uuid.UUID]domain.Channel
	channelIdentities map[pairKey]domain.ChannelMemberIdentity
	channelMessages   []domain.ServerMessage
	threads           map[uuid.UUID]domain.DmThread
	dmParticipants    map[pairKey]domain.DmParticipant
	dmMessages        []domain.DmMessage
	uploads           map[uuid.UUID]domain.Upload
	voiceSessions     map[uuid.UUID]domain.VoiceSession
	voiceParticipants []domain.VoiceParticipant
}

func New() *Store {
	return &Store{
		users:             make(map[uuid.UUID]domain.User),
		masks:             make(map[uuid.UUID]domain.Mask),
		friendRequests:    make(map[uuid.UUID]domain.FriendRequest),
		friendships:       make(map[pairKey]domain.Friendship),
		rooms:             make(map[uuid.UUID]domain.Room),
		roomMembers:       make(map[pairKey]domain.RoomMembership),
		servers:           make(map[uuid.UUID]domain.Server),
		serverMembers:     make(map[pairKey]domain.ServerMember),
		roles:             make(map[uuid.UUID]domain.ServerRole),
		invites:           make(map[uuid.UUID]domain.ServerInvite),
		channels:          make(map[uuid.UUID]domain.Channel),
		channelIdentities: make(map[pairKey]domain.ChannelMemberIdentity),
		threads:           make(map[uuid.UUID]domain.DmThread),
		dmParticipants:    make(map[pairKey]domain.DmParticipant),
		uploads:           make(map[uuid.UUID]domain.Upload),
		voiceSessions:     make(map[uuid.UUID]domain.VoiceSession),
	}
}

// Repositories exposes the store through every repository port.
func (s *Store) Repositories() repository.Repositories {
	return repository.Repositories{
		Users:    &UserRepo{s: s},
		Masks:    &MaskRepo{s: s},
		Friends:  &FriendRepo{s: s},
		Rooms:    &RoomRepo{s: s},
		Servers:  &ServerRepo{s: s},
		Channels: &ChannelRepo{s: s},
		DMs:      &DMRepo{s: s},
		Uploads:  &UploadRepo{s: s},
		Voice:    &VoiceRepo{s: s},
	}
}

// author must be called with s.mu held.
func (s *Store) author(maskID uuid.UUID) domain.MessageAuthor {
	m, ok := s.masks[maskID]
	if !ok {
		return domain.MessageAuthor{MaskID: maskID}
	}
	return domain.AuthorFromMask(&m)
}

// page returns up to limit items preceding the item whose id is before,
// keeping insertion (chronological) order.
func page[T any](items []T, id func(T) uuid.UUID, before *uuid.UUID, limit int) []T {
	end := len(items)
	if before != nil {
		end = slices.IndexFunc(items, func(it T) bool { return id(it) == *before })
		if end < 0 {
			return nil
		}
	}
	start := max(end-limit, 0)
	return slices.Clone(items[start:end])
}
