// Package actor identifies who performs an operation.
package actor

import "github.com/google/uuid"

const (
	RoleUser    = "USER"
	RolePartner = "PARTNER"
	RoleAdmin   = "ADMIN"
	RoleSystem  = "SYSTEM"
)

// Actor is the authenticated caller. A partner account's ID is its partner id.
type Actor struct {
	ID   uuid.UUID
	Role string
}

// System is used for transitions driven by gateway callbacks and jobs.
var System = Actor{Role: RoleSystem}

func New(id uuid.UUID, role string) Actor {
	return Actor{ID: id, Role: role}
}

func (a Actor) IsAdmin() bool   { return a.Role == RoleAdmin }
func (a Actor) IsPartner() bool { return a.Role == RolePartner }
func (a Actor) IsSystem() bool  { return a.Role == RoleSystem }

// Ref returns the id recorded as "changed by", or nil for the system.
func (a Actor) Ref() *uuid.UUID {
	if a.IsSystem() || a.ID == uuid.Nil {
		return nil
	}
	id := a.ID
	return &id
}

func (a Actor) String() string {
	if a.IsSystem() {
		return "system"
	}
	return a.Role + ":" + a.ID.String()
}
