package domain

import (
	"time"

	"github.com/google/uuid"
)

const ChannelTypeText = "TEXT"

type Channel struct {
	ID        uuid.UUID `json:"id"`
	ServerID  uuid.UUID `json:"server_id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	CreatedBy uuid.UUID `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// ChannelMemberIdentity overrides a member's server mask inside one channel.
type ChannelMemberIdentity struct {
	ChannelID uuid.UUID `json:"channel_id"`
	UserID    uuid.UUID `json:"user_id"`
	MaskID    uuid.UUID `json:"mask_id"`
	UpdatedAt time.Time `json:"updated_at"`
}
