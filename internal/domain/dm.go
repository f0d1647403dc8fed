package domain

import (
	"time"

	"github.com/google/uuid"
)

type DmThread struct {
	ID        uuid.UUID `json:"id"`
	UserAID   uuid.UUID `json:"user_a_id"`
	UserBID   uuid.UUID `json:"user_b_id"`
	CreatedAt time.Time `json:"created_at"`
}

// HasUser reports whether userID is one of the thread's two participants.
func (t *DmThread) HasUser(userID uuid.UUID) bool {
	return t.UserAID == userID || t.UserBID == userID
}

// OtherUser returns the participant that is not userID.
func (t *DmThread) OtherUser(userID uuid.UUID) uuid.UUID {
	if t.UserAID == userID {
		return t.UserBID
	}
	return t.UserAID
}

// CanonicalPair orders two user ids so a pair always maps to the same row.
func CanonicalPair(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if a.String() > b.String() {
		return b, a
	}
	return a, b
}

type DmParticipant struct {
	ThreadID  uuid.UUID `json:"thread_id"`
	UserID    uuid.UUID `json:"user_id"`
	MaskID    uuid.UUID `json:"mask_id"`
	UpdatedAt time.Time `json:"updated_at"`
}
