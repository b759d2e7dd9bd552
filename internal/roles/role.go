package roles

import (
	"strings"

	"github.com/google/uuid"
)

const documentTypeRole = "role"

// Role is a named group of users. It is stored under its id.
type Role struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	Name string `json:"name"`
}

// NewRole returns a role with a fresh random id.
func NewRole(name string) *Role {
	return &Role{
		Type: documentTypeRole,
		ID:   uuid.NewString(),
		Name: strings.TrimSpace(name),
	}
}
