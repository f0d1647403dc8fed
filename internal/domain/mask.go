package domain

import (
	"time"

	"github.com/google/uuid"
)

// MaxMasksPerUser bounds how many presented identities one account may own.
const MaxMasksPerUser = 5

// Mask is the identity a user presents in a chat context.
type Mask struct {
	ID             uuid.UUID  `json:"id"`
	UserID         uuid.UUID  `json:"-"`
	DisplayName    string     `json:"display_name"`
	Color          string     `json:"color"`
	AvatarSeed     string     `json:"avatar_seed"`
	AvatarUploadID *uuid.UUID `json:"avatar_upload_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// OwnedBy reports whether the mask belongs to userID.
func (m *Mask) OwnedBy(userID uuid.UUID) bool {
	return m != nil && m.UserID == userID
}
