package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/veil/internal/domain"
)

// Server → client event types.
const (
	EventRoomState           = "ROOM_STATE"
	EventDMState             = "DM_STATE"
	EventChannelState        = "CHANNEL_STATE"
	EventNewMessage          = "NEW_MESSAGE"
	EventNewDMMessage        = "NEW_DM_MESSAGE"
	EventNewChannelMessage   = "NEW_CHANNEL_MESSAGE"
	EventMemberJoined        = "MEMBER_JOINED"
	EventMemberLeft          = "MEMBER_LEFT"
	EventChannelMemberJoined = "CHANNEL_MEMBER_JOINED"
	EventChannelMemberLeft   = "CHANNEL_MEMBER_LEFT"
	EventModeration          = "MODERATION_EVENT"
	EventRoomExpired         = "ROOM_EXPIRED"
	EventError               = "ERROR"
	EventPong                = "PONG"
)

// Event is the envelope for every socket frame in both directions.
type Event struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"ts,omitempty"`
}

var errMissingID = errors.New("missing required id")

func requireIDs(ids ...uuid.UUID) error {
	for _, id := range ids {
		if id == uuid.Nil {
			return errMissingID
		}
	}
	return nil
}

// --- full states ---

type RoomStatePayload struct {
	Room     *domain.Room            `json:"room"`
	Members  []Member                `json:"members"`
	Mutes    []domain.RoomModeration `json:"mutes"`
	Messages []domain.Message        `json:"messages"`
}

func (p RoomStatePayload) Validate() error {
	if p.Room == nil {
		return errMissingID
	}
	return requireIDs(p.Room.ID)
}

type DMParticipantView struct {
	UserID uuid.UUID `json:"userId"`
	Member Member    `json:"mask"`
}

type DMStatePayload struct {
	Thread       *domain.DmThread    `json:"thread"`
	Participants []DMParticipantView `json:"participants"`
	Online       []uuid.UUID         `json:"onlineUserIds"`
	Messages     []domain.DmMessage  `json:"messages"`
}

func (p DMStatePayload) Validate() error {
	if p.Thread == nil {
		return errMissingID
	}
	return requireIDs(p.Thread.ID)
}

type ServerSummary struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	IdentityMode string    `json:"identityMode"`
}

type ChannelMemberView struct {
	UserID uuid.UUID `json:"userId"`
	Member
}

type ChannelStatePayload struct {
	Channel  *domain.Channel        `json:"channel"`
	Server   ServerSummary          `json:"server"`
	Members  []ChannelMemberView    `json:"members"`
	Messages []domain.ServerMessage `json:"messages"`
}

func (p ChannelStatePayload) Validate() error {
	if p.Channel == nil {
		return errMissingID
	}
	return requireIDs(p.Channel.ID, p.Server.ID)
}

// --- incremental events ---

type MessagePayload struct {
	domain.Message
}

func (p MessagePayload) Validate() error { return requireIDs(p.ID, p.RoomID, p.MaskID) }

type DMMessagePayload struct {
	domain.DmMessage
}

func (p DMMessagePayload) Validate() error { return requireIDs(p.ID, p.ThreadID, p.MaskID) }

type ChannelMessagePayload struct {
	domain.ServerMessage
}

func (p ChannelMessagePayload) Validate() error { return requireIDs(p.ID, p.ChannelID, p.MaskID) }

type MemberJoinedPayload struct {
	RoomID uuid.UUID `json:"roomId"`
	Member Member    `json:"member"`
}

func (p MemberJoinedPayload) Validate() error { return requireIDs(p.RoomID, p.Member.MaskID) }

type MemberLeftPayload struct {
	RoomID uuid.UUID `json:"roomId"`
	MaskID uuid.UUID `json:"maskId"`
}

func (p MemberLeftPayload) Validate() error { return requireIDs(p.RoomID, p.MaskID) }

type ChannelMemberJoinedPayload struct {
	ChannelID uuid.UUID         `json:"channelId"`
	Member    ChannelMemberView `json:"member"`
}

func (p ChannelMemberJoinedPayload) Validate() error {
	return requireIDs(p.ChannelID, p.Member.UserID, p.Member.MaskID)
}

type ChannelMemberLeftPayload struct {
	ChannelID uuid.UUID `json:"channelId"`
	UserID    uuid.UUID `json:"userId"`
}

func (p ChannelMemberLeftPayload) Validate() error { return requireIDs(p.ChannelID, p.UserID) }

type ModerationPayload struct {
	RoomID       uuid.UUID  `json:"roomId"`
	Action       string     `json:"action"`
	ActorMaskID  uuid.UUID  `json:"actorMaskId"`
	TargetMaskID *uuid.UUID `json:"targetMaskId,omitempty"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
}

func (p ModerationPayload) Validate() error {
	if p.Action == "" {
		return errors.New("missing action")
	}
	return requireIDs(p.RoomID, p.ActorMaskID)
}

type RoomExpiredPayload struct {
	RoomID uuid.UUID `json:"roomId"`
}

func (p RoomExpiredPayload) Validate() error { return requireIDs(p.RoomID) }

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type validatable interface {
	Validate() error
}

// encodeEvent validates payload and marshals the full envelope.
func encodeEvent(eventType string, payload any, now time.Time) ([]byte, error) {
	if v, ok := payload.(validatable); ok {
		if err := v.Validate(); err != nil {
			return nil, fmt.Errorf("invalid %s payload: %w", eventType, err)
		}
	}

	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshaling %s payload: %w", eventType, err)
		}
		raw = data
	}

	return json.Marshal(Event{
		Type:      eventType,
		Payload:   raw,
		Timestamp: now.Unix(),
	})
}
