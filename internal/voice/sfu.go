package voice

import (
	"context"
	"time"
)

// Permission is what a participant may do in an SFU room.
type Permission struct {
	CanPublish     bool
	CanSubscribe   bool
	CanPublishData bool
}

// Participant is a live SFU participant as reported by the media server.
type Participant struct {
	Identity string
	Metadata string
}

// Grant describes an access token to mint for one join attempt.
type Grant struct {
	Room       string
	Identity   string
	Name       string
	Metadata   string
	Permission Permission
	TTL        time.Duration
}

// SFU is the slice of the media server the broker depends on.
type SFU interface {
	DeleteRoom(ctx context.Context, room string) error
	ListParticipants(ctx context.Context, room string) ([]Participant, error)
	UpdateParticipant(ctx context.Context, room, identity string, perm Permission) error
	IssueToken(g Grant) (string, error)
}
