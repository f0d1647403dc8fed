package ws

import (
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/vedran77/veil/internal/apperr"
	"github.com/vedran77/veil/internal/realtime"
)

// Client → server event types.
const (
	EventJoinRoom           = "JOIN_ROOM"
	EventSendMessage        = "SEND_MESSAGE"
	EventLeaveRoom          = "LEAVE_ROOM"
	EventJoinDM             = "JOIN_DM"
	EventSendDM             = "SEND_DM"
	EventLeaveDM            = "LEAVE_DM"
	EventJoinChannel        = "JOIN_CHANNEL"
	EventSendChannelMessage = "SEND_CHANNEL_MESSAGE"
	EventLeaveChannel       = "LEAVE_CHANNEL"
	EventPing               = "PING"
)

var (
	ErrMalformedEvent = apperr.Validation("malformed event")
	ErrUnknownEvent   = apperr.Validation("unknown event type")
	ErrBinaryFrame    = apperr.Validation("binary frames are not supported")
)

type JoinRoom struct {
	RoomID uuid.UUID `json:"roomId"`
	MaskID uuid.UUID `json:"maskId"`
}

type SendMessage struct {
	RoomID        uuid.UUID  `json:"roomId"`
	MaskID        uuid.UUID  `json:"maskId"`
	Body          string     `json:"body"`
	ImageUploadID *uuid.UUID `json:"imageUploadId,omitempty"`
}

type JoinDM struct {
	ThreadID uuid.UUID `json:"threadId"`
	MaskID   uuid.UUID `json:"maskId"`
}

type SendDM struct {
	ThreadID      uuid.UUID  `json:"threadId"`
	MaskID        uuid.UUID  `json:"maskId"`
	Body          string     `json:"body"`
	ImageUploadID *uuid.UUID `json:"imageUploadId,omitempty"`
}

type JoinChannel struct {
	ChannelID uuid.UUID `json:"channelId"`
}

type SendChannelMessage struct {
	ChannelID     uuid.UUID  `json:"channelId"`
	Body          string     `json:"body"`
	ImageUploadID *uuid.UUID `json:"imageUploadId,omitempty"`
}

type (
	LeaveRoom    struct{}
	LeaveDM      struct{}
	LeaveChannel struct{}
	Ping         struct{}
)

// ParseEvent decodes one client frame into its typed command. Every failure
// is a validation error so the caller can answer with ERROR and keep reading.
func ParseEvent(data []byte) (any, error) {
	var env realtime.Event
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, ErrMalformedEvent
	}

	switch env.Type {
	case EventJoinRoom:
		return decode[JoinRoom](env)
	case EventSendMessage:
		return decode[SendMessage](env)
	case EventJoinDM:
		return decode[JoinDM](env)
	case EventSendDM:
		return decode[SendDM](env)
	case EventJoinChannel:
		return decode[JoinChannel](env)
	case EventSendChannelMessage:
		return decode[SendChannelMessage](env)
	case EventLeaveRoom:
		return LeaveRoom{}, nil
	case EventLeaveDM:
		return LeaveDM{}, nil
	case EventLeaveChannel:
		return LeaveChannel{}, nil
	case EventPing:
		return Ping{}, nil
	case "":
		return nil, ErrMalformedEvent
	default:
		return nil, ErrUnknownEvent
	}
}

type command interface {
	Validate() error
}

func decode[T command](env realtime.Event) (any, error) {
	var p T
	if len(env.Payload) == 0 || string(env.Payload) == "null" {
		return nil, apperr.Validation(env.Type + " requires a payload")
	}
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return nil, apperr.Validation("invalid " + env.Type + " payload")
	}
	if err := p.Validate(); err != nil {
		return nil, apperr.Validation(env.Type + ": " + err.Error())
	}
	return p, nil
}

var (
	errRoomID    = errors.New("roomId is required")
	errThreadID  = errors.New("threadId is required")
	errChannelID = errors.New("channelId is required")
	errMaskID    = errors.New("maskId is required")
	errNoContent = errors.New("body or imageUploadId is required")
)

func requireID(id uuid.UUID, err error) error {
	if id == uuid.Nil {
		return err
	}
	return nil
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func requireContent(body string, upload *uuid.UUID) error {
	if body == "" && upload == nil {
		return errNoContent
	}
	return nil
}

func (p JoinRoom) Validate() error {
	return firstErr(requireID(p.RoomID, errRoomID), requireID(p.MaskID, errMaskID))
}

func (p SendMessage) Validate() error {
	return firstErr(
		requireID(p.RoomID, errRoomID),
		requireID(p.MaskID, errMaskID),
		requireContent(p.Body, p.ImageUploadID),
	)
}

func (p JoinDM) Validate() error {
	return firstErr(requireID(p.ThreadID, errThreadID), requireID(p.MaskID, errMaskID))
}

func (p SendDM) Validate() error {
	return firstErr(
		requireID(p.ThreadID, errThreadID),
		requireID(p.MaskID, errMaskID),
		requireContent(p.Body, p.ImageUploadID),
	)
}

func (p JoinChannel) Validate() error { return requireID(p.ChannelID, errChannelID) }

func (p SendChannelMessage) Validate() error {
	return firstErr(requireID(p.ChannelID, errChannelID), requireContent(p.Body, p.ImageUploadID))
}
