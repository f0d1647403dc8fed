package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/veil/internal/apperr"
	"github.com/vedran77/veil/internal/domain"
	"github.com/vedran77/veil/internal/repository"
)

var (
	ErrCannotRequestSelf    = apperr.Validation("cannot send a friend request to yourself")
	ErrFriendCodeNotFound   = apperr.NotFound("User with this friend code")
	ErrRequestAlreadyExists = apperr.Conflict("a pending request already exists")
	ErrAlreadyFriends       = apperr.Conflict("you are already friends")
	ErrRequestNotFound      = apperr.NotFound("Friend request")
	ErrNotRequestReceiver   = apperr.Forbidden("only the request receiver can perform this action")
	ErrNotRequestSender     = apperr.Forbidden("only the request sender can cancel")
)

type FriendService struct {
	friendRepo repository.FriendRepository
	userRepo   repository.UserRepository
}

func NewFriendService(friendRepo repository.FriendRepository, userRepo repository.UserRepository) *FriendService {
	return &FriendService{
		friendRepo: friendRepo,
		userRepo:   userRepo,
	}
}

// SendRequest sends a friend request by friend code. If the target already
// asked the sender, the two become friends at once and nil is returned.
func (s *FriendService) SendRequest(ctx context.Context, senderID uuid.UUID, friendCode string) (*domain.FriendRequest, error) {
	target, err := s.userRepo.GetByFriendCode(ctx, strings.ToUpper(strings.TrimSpace(friendCode)))
	if err != nil {
		return nil, fmt.Errorf("looking up user: %w", err)
	}
	if target == nil {
		return nil, ErrFriendCodeNotFound
	}

	if senderID == target.ID {
		return nil, ErrCannotRequestSelf
	}

	already, err := s.friendRepo.AreFriends(ctx, senderID, target.ID)
	if err != nil {
		return nil, err
	}
	if already {
		return nil, ErrAlreadyFriends
	}

	existing, err := s.friendRepo.GetRequest(ctx, senderID, target.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrRequestAlreadyExists
	}

	reverse, err := s.friendRepo.GetRequest(ctx, target.ID, senderID)
	if err != nil {
		return nil, err
	}
	if reverse != nil {
		if err := s.befriend(ctx, senderID, target.ID); err != nil {
			return nil, err
		}
		if err := s.friendRepo.DeleteRequest(ctx, reverse.ID); err != nil {
			return nil, err
		}
		return nil, nil
	}

	req := &domain.FriendRequest{
		ID:         uuid.New(),
		SenderID:   senderID,
		ReceiverID: target.ID,
		CreatedAt:  time.Now(),
	}

	if err := s.friendRepo.CreateRequest(ctx, req); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrRequestAlreadyExists
		}
		return nil, fmt.Errorf("creating friend request: %w", err)
	}

	return req, nil
}

func (s *FriendService) AcceptRequest(ctx context.Context, userID, requestID uuid.UUID) error {
	req, err := s.receivedRequest(ctx, userID, requestID)
	if err != nil {
		return err
	}
	if err := s.befriend(ctx, req.SenderID, req.ReceiverID); err != nil {
		return err
	}
	return s.friendRepo.DeleteRequest(ctx, requestID)
}

func (s *FriendService) RejectRequest(ctx context.Context, userID, requestID uuid.UUID) error {
	if _, err := s.receivedRequest(ctx, userID, requestID); err != nil {
		return err
	}
	return s.friendRepo.DeleteRequest(ctx, requestID)
}

// CancelRequest withdraws a pending request sent by the user.
func (s *FriendService) CancelRequest(ctx context.Context, userID, requestID uuid.UUID) error {
	req, err := s.friendRepo.GetRequestByID(ctx, requestID)
	if err != nil {
		return err
	}
	if req == nil {
		return ErrRequestNotFound
	}
	if req.SenderID != userID {
		return ErrNotRequestSender
	}
	return s.friendRepo.DeleteRequest(ctx, requestID)
}

func (s *FriendService) ListFriends(ctx context.Context, userID uuid.UUID) ([]domain.User, error) {
	friends, err := s.friendRepo.ListFriends(ctx, userID)
	if err != nil {
		return nil, err
	}
	if friends == nil {
		friends = []domain.User{}
	}
	return friends, nil
}

func (s *FriendService) ListIncomingRequests(ctx context.Context, userID uuid.UUID) ([]domain.FriendRequest, error) {
	reqs, err := s.friendRepo.ListIncoming(ctx, userID)
	if err != nil {
		return nil, err
	}
	if reqs == nil {
		reqs = []domain.FriendRequest{}
	}
	return reqs, nil
}

func (s *FriendService) RemoveFriend(ctx context.Context, userID, otherUserID uuid.UUID) error {
	return s.friendRepo.DeleteFriendship(ctx, userID, otherUserID)
}

func (s *FriendService) receivedRequest(ctx context.Context, userID, requestID uuid.UUID) (*domain.FriendRequest, error) {
	req, err := s.friendRepo.GetRequestByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, ErrRequestNotFound
	}
	if req.ReceiverID != userID {
		return nil, ErrNotRequestReceiver
	}
	return req, nil
}

// befriend stores the friendship under the canonical user ordering.
func (s *FriendService) befriend(ctx context.Context, userA, userB uuid.UUID) error {
	a, b := domain.CanonicalPair(userA, userB)
	err := s.friendRepo.CreateFriendship(ctx, &domain.Friendship{
		UserAID:   a,
		UserBID:   b,
		CreatedAt: time.Now(),
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return ErrAlreadyFriends
	}
	return err
}
