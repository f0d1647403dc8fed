package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/veil/internal/apperr"
	"github.com/vedran77/veil/internal/domain"
	"github.com/vedran77/veil/internal/repository"
)

var (
	ErrThreadNotFound = apperr.NotFound("DM thread")
	ErrNotParticipant = apperr.Forbidden("you are not a participant of this thread")
	ErrCannotDMSelf   = apperr.Validation("cannot start a conversation with yourself")
	ErrNotFriends     = apperr.Forbidden("you can only message friends")
)

type DMService struct {
	dmRepo     repository.DMRepository
	userRepo   repository.UserRepository
	friendRepo repository.FriendRepository
}

func NewDMService(dmRepo repository.DMRepository, userRepo repository.UserRepository, friendRepo repository.FriendRepository) *DMService {
	return &DMService{
		dmRepo:     dmRepo,
		userRepo:   userRepo,
		friendRepo: friendRepo,
	}
}

type DMMessageListResponse struct {
	Messages []domain.DmMessage `json:"messages"`
	HasMore  bool               `json:"has_more"`
}

type DMThreadState struct {
	Thread       *domain.DmThread       `json:"thread"`
	Participants []domain.DmParticipant `json:"participants"`
	Messages     []domain.DmMessage     `json:"messages"`
}

// StartThread returns the thread between two friends, creating it once.
func (s *DMService) StartThread(ctx context.Context, userID, otherUserID uuid.UUID) (*domain.DmThread, error) {
	if userID == otherUserID {
		return nil, ErrCannotDMSelf
	}

	other, err := s.userRepo.GetByID(ctx, otherUserID)
	if err != nil {
		return nil, err
	}
	if other == nil {
		return nil, ErrUserNotFound
	}

	friends, err := s.friendRepo.AreFriends(ctx, userID, otherUserID)
	if err != nil {
		return nil, err
	}
	if !friends {
		return nil, ErrNotFriends
	}

	a, b := domain.CanonicalPair(userID, otherUserID)
	thread, err := s.dmRepo.GetThreadByUsers(ctx, a, b)
	if err != nil {
		return nil, err
	}
	if thread != nil {
		return thread, nil
	}

	thread = &domain.DmThread{
		ID:        uuid.New(),
		UserAID:   a,
		UserBID:   b,
		CreatedAt: time.Now(),
	}
	err = s.dmRepo.CreateThread(ctx, thread)
	if errors.Is(err, repository.ErrDuplicate) {
		return s.dmRepo.GetThreadByUsers(ctx, a, b)
	}
	if err != nil {
		return nil, fmt.Errorf("creating dm thread: %w", err)
	}

	return thread, nil
}

func (s *DMService) ListThreads(ctx context.Context, userID uuid.UUID) ([]domain.DmThread, error) {
	threads, err := s.dmRepo.ListThreads(ctx, userID)
	if err != nil {
		return nil, err
	}
	if threads == nil {
		threads = []domain.DmThread{}
	}
	return threads, nil
}

// State returns the thread with its participants and recent messages.
func (s *DMService) State(ctx context.Context, userID, threadID uuid.UUID) (*DMThreadState, error) {
	thread, err := s.participantThread(ctx, userID, threadID)
	if err != nil {
		return nil, err
	}

	parts, err := s.dmRepo.ListParticipants(ctx, threadID)
	if err != nil {
		return nil, err
	}
	messages, err := s.dmRepo.ListMessages(ctx, threadID, nil, defaultPageSize)
	if err != nil {
		return nil, err
	}

	if parts == nil {
		parts = []domain.DmParticipant{}
	}
	if messages == nil {
		messages = []domain.DmMessage{}
	}
	return &DMThreadState{Thread: thread, Participants: parts, Messages: messages}, nil
}

// ListMessages returns one page of history older than before.
func (s *DMService) ListMessages(ctx context.Context, userID, threadID uuid.UUID, before *uuid.UUID, limit int) (*DMMessageListResponse, error) {
	if _, err := s.participantThread(ctx, userID, threadID); err != nil {
		return nil, err
	}

	limit = clampLimit(limit)
	messages, err := s.dmRepo.ListMessages(ctx, threadID, before, limit+1)
	if err != nil {
		return nil, err
	}

	hasMore := len(messages) > limit
	if hasMore {
		messages = messages[len(messages)-limit:]
	}

	if messages == nil {
		messages = []domain.DmMessage{}
	}

	return &DMMessageListResponse{
		Messages: messages,
		HasMore:  hasMore,
	}, nil
}

func (s *DMService) participantThread(ctx context.Context, userID, threadID uuid.UUID) (*domain.DmThread, error) {
	thread, err := s.dmRepo.GetThreadByID(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if thread == nil {
		return nil, ErrThreadNotFound
	}
	if !thread.HasUser(userID) {
		return nil, ErrNotParticipant
	}
	return thread, nil
}
