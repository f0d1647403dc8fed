package memory

import (
	"context"
	"slices"

	"github.com/google/uuid"
	"github.com/vedran77/veil/internal/domain"
	"github.com/vedran77/veil/internal/repository"
)

type FriendRepo struct {
	s *Store
}

func friendKey(a, b uuid.UUID) pairKey {
	a, b = domain.CanonicalPair(a, b)
	return pairKey{a, b}
}

func (r *FriendRepo) CreateRequest(_ context.Context, req *domain.FriendRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.friendRequests {
		if existing.SenderID == req.SenderID && existing.ReceiverID == req.ReceiverID {
			return repository.ErrDuplicate
		}
	}
	r.s.friendRequests[req.ID] = *req
	return nil
}

func (r *FriendRepo) GetRequest(_ context.Context, senderID, receiverID uuid.UUID) (*domain.FriendRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, req := range r.s.friendRequests {
		if req.SenderID == senderID && req.ReceiverID == receiverID {
			return r.withSender(req), nil
		}
	}
	return nil, nil
}

func (r *FriendRepo) GetRequestByID(_ context.Context, id uuid.UUID) (*domain.FriendRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	req, ok := r.s.friendRequests[id]
	if !ok {
		return nil, nil
	}
	return r.withSender(req), nil
}

func (r *FriendRepo) withSender(req domain.FriendRequest) *domain.FriendRequest {
	if u, ok := r.s.users[req.SenderID]; ok {
		req.SenderFriendCode = u.FriendCode
	}
	return &req
}

func (r *FriendRepo) DeleteRequest(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.friendRequests, id)
	return nil
}

func (r *FriendRepo) ListIncoming(_ context.Context, userID uuid.UUID) ([]domain.FriendRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var reqs []domain.FriendRequest
	for _, req := range r.s.friendRequests {
		if req.ReceiverID == userID {
			reqs = append(reqs, *r.withSender(req))
		}
	}
	slices.SortFunc(reqs, func(a, b domain.FriendRequest) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return reqs, nil
}

func (r *FriendRepo) CreateFriendship(_ context.Context, f *domain.Friendship) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := friendKey(f.UserAID, f.UserBID)
	if _, ok := r.s.friendships[key]; ok {
		return repository.ErrDuplicate
	}
	r.s.friendships[key] = *f
	return nil
}

func (r *FriendRepo) AreFriends(_ context.Context, userA, userB uuid.UUID) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	_, ok := r.s.friendships[friendKey(userA, userB)]
	return ok, nil
}

func (r *FriendRepo) DeleteFriendship(_ context.Context, userA, userB uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.friendships, friendKey(userA, userB))
	return nil
}

func (r *FriendRepo) ListFriends(_ context.Context, userID uuid.UUID) ([]domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var friends []domain.User
	for key := range r.s.friendships {
		var other uuid.UUID
		switch userID {
		case key.a:
			other = key.b
		case key.b:
			other = key.a
		default:
			continue
		}
		if u, ok := r.s.users[other]; ok {
			friends = append(friends, u)
		}
	}
	slices.SortFunc(friends, func(a, b domain.User) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return friends, nil
}
