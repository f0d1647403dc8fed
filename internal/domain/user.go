package domain

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID            uuid.UUID  `json:"id"`
	Email         string     `json:"email"`
	PasswordHash  string     `json:"-"`
	FriendCode    string     `json:"friend_code"`
	DefaultMaskID *uuid.UUID `json:"default_mask_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}
