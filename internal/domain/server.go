package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	IdentityModeServerMask  = "SERVER_MASK"
	IdentityModeChannelMask = "CHANNEL_MASK"
)

const (
	ServerRoleOwner  = "OWNER"
	ServerRoleAdmin  = "ADMIN"
	ServerRoleMember = "MEMBER"
)

type Server struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	OwnerID      uuid.UUID `json:"owner_id"`
	IdentityMode string    `json:"identity_mode"`
	CreatedAt    time.Time `json:"created_at"`
}

type ServerMember struct {
	ServerID     uuid.UUID   `json:"server_id"`
	UserID       uuid.UUID   `json:"user_id"`
	Role         string      `json:"role"`
	ServerMaskID uuid.UUID   `json:"server_mask_id"`
	RoleIDs      []uuid.UUID `json:"role_ids"`
	JoinedAt     time.Time   `json:"joined_at"`
}

// IsPrivileged reports whether the member's coarse role grants every permission.
func (m *ServerMember) IsPrivileged() bool {
	return m.Role == ServerRoleOwner || m.Role == ServerRoleAdmin
}

type ServerRole struct {
	ID          uuid.UUID `json:"id"`
	ServerID    uuid.UUID `json:"server_id"`
	Name        string    `json:"name"`
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `json:"created_at"`
}

type ServerInvite struct {
	ID        uuid.UUID  `json:"id"`
	ServerID  uuid.UUID  `json:"server_id"`
	Code      string     `json:"code"`
	CreatedBy uuid.UUID  `json:"created_by"`
	MaxUses   *int       `json:"max_uses,omitempty"`
	Uses      int        `json:"uses"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Usable reports whether the invite is neither expired nor exhausted at now.
func (i *ServerInvite) Usable(now time.Time) bool {
	if i.ExpiresAt != nil && !now.Before(*i.ExpiresAt) {
		return false
	}
	if i.MaxUses != nil && i.Uses >= *i.MaxUses {
		return false
	}
	return true
}
