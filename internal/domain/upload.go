package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	UploadKindMessageImage = "MESSAGE_IMAGE"
	UploadKindMaskAvatar   = "MASK_AVATAR"
)

type Upload struct {
	ID          uuid.UUID    `json:"id"`
	OwnerID     uuid.UUID    `json:"owner_id"`
	Kind        string       `json:"kind"`
	ContextType *ContextKind `json:"context_type,omitempty"`
	ContextID   *uuid.UUID   `json:"context_id,omitempty"`
	ContentType string       `json:"content_type"`
	SizeBytes   int64        `json:"size_bytes"`
	StoragePath string       `json:"-"`
	CreatedAt   time.Time    `json:"created_at"`
}

// MatchesContext reports whether the upload was recorded for exactly this context.
func (u *Upload) MatchesContext(kind ContextKind, id uuid.UUID) bool {
	return u.ContextType != nil && u.ContextID != nil &&
		*u.ContextType == kind && *u.ContextID == id
}
