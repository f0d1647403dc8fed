package domain

import (
	"time"

	"github.com/google/uuid"
)

// MessageAuthor is the mask display data joined onto every message read model.
type MessageAuthor struct {
	MaskID      uuid.UUID `json:"mask_id"`
	DisplayName string    `json:"display_name"`
	Color       string    `json:"color"`
	AvatarSeed  string    `json:"avatar_seed"`
}

// AuthorFromMask builds the joined author fields for a message.
func AuthorFromMask(m *Mask) MessageAuthor {
	return MessageAuthor{
		MaskID:      m.ID,
		DisplayName: m.DisplayName,
		Color:       m.Color,
		AvatarSeed:  m.AvatarSeed,
	}
}

type Message struct {
	ID            uuid.UUID  `json:"id"`
	RoomID        uuid.UUID  `json:"room_id"`
	MaskID        uuid.UUID  `json:"mask_id"`
	Body          string     `json:"body"`
	ImageUploadID *uuid.UUID `json:"image_upload_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	// Joined fields
	Author MessageAuthor `json:"author"`
}

type ServerMessage struct {
	ID            uuid.UUID  `json:"id"`
	ChannelID     uuid.UUID  `json:"channel_id"`
	UserID        uuid.UUID  `json:"user_id"`
	MaskID        uuid.UUID  `json:"mask_id"`
	Body          string     `json:"body"`
	ImageUploadID *uuid.UUID `json:"image_upload_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	// Joined fields
	Author MessageAuthor `json:"author"`
}

type DmMessage struct {
	ID            uuid.UUID  `json:"id"`
	ThreadID      uuid.UUID  `json:"thread_id"`
	SenderID      uuid.UUID  `json:"sender_id"`
	MaskID        uuid.UUID  `json:"mask_id"`
	Body          string     `json:"body"`
	ImageUploadID *uuid.UUID `json:"image_upload_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	// Joined fields
	Author MessageAuthor `json:"author"`
}
