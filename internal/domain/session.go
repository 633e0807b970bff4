package domain

import "github.com/google/uuid"

// Session is resolved once per request and passed explicitly to every
// operation that reads or writes team data.
type Session struct {
	AuthIdentityID uuid.UUID
	ProfileID      uuid.UUID
}
