package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	VoiceContextServerChannel = "SERVER_CHANNEL"
	VoiceContextDMThread      = "DM_THREAD"
	VoiceContextRoom          = "EPHEMERAL_ROOM"
)

// ValidVoiceContext reports whether t names a known voice context type.
func ValidVoiceContext(t string) bool {
	switch t {
	case VoiceContextServerChannel, VoiceContextDMThread, VoiceContextRoom:
		return true
	}
	return false
}

type VoiceSession struct {
	ID              uuid.UUID  `json:"id"`
	ContextType     string     `json:"context_type"`
	ContextID       uuid.UUID  `json:"context_id"`
	LivekitRoomName string     `json:"livekit_room_name"`
	CreatedBy       uuid.UUID  `json:"created_by"`
	CreatedAt       time.Time  `json:"created_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
}

type VoiceParticipant struct {
	ID            uuid.UUID  `json:"id"`
	SessionID     uuid.UUID  `json:"session_id"`
	UserID        uuid.UUID  `json:"user_id"`
	MaskID        uuid.UUID  `json:"mask_id"`
	JoinedAt      time.Time  `json:"joined_at"`
	LeftAt        *time.Time `json:"left_at,omitempty"`
	IsServerMuted bool       `json:"is_server_muted"`
}
