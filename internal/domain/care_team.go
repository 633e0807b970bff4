package domain

import (
	"time"

	"github.com/google/uuid"
)

type CareTeam struct {
	ID                uuid.UUID `json:"id"`
	Name              string    `json:"name"`
	Description       *string   `json:"description,omitempty"`
	CareRecipientName string    `json:"care_recipient_name"`
	CreatedBy         uuid.UUID `json:"created_by"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

const (
	RoleOwner        = "owner"
	RoleMember       = "member"
	RoleProfessional = "professional"
)

type CareTeamMember struct {
	CareTeamID uuid.UUID `json:"care_team_id"`
	ProfileID  uuid.UUID `json:"profile_id"`
	Role       string    `json:"role"`
	JoinedAt   time.Time `json:"joined_at"`
	// Joined fields
	Profile *Profile `json:"profile,omitempty"`
}
