package users

import (
	"fmt"
	"strings"
)

// AddToRole records role membership on the user. Names compare case-insensitively.
func (s *UserStore) AddToRole(user *User, roleName string) error {
	if user == nil {
		return ErrInvalidUser
	}
	roleName = normalize(roleName)
	if roleName == "" {
		return fmt.Errorf("%w: empty role name", ErrInvalidKey)
	}
	if hasRole(user.Roles, roleName) {
		return nil
	}
	user.Roles = append(user.Roles, roleName)
	return nil
}

func (s *UserStore) RemoveFromRole(user *User, roleName string) error {
	if user == nil {
		return ErrInvalidUser
	}
	roleName = normalize(roleName)
	remaining := user.Roles[:0]
	for _, existing := range user.Roles {
		if strings.EqualFold(existing, roleName) {
			continue
		}
		remaining = append(remaining, existing)
	}
	user.Roles = remaining
	return nil
}

func (s *UserStore) GetRoles(user *User) ([]string, error) {
	if user == nil {
		return nil, ErrInvalidUser
	}
	roles := make([]string, len(user.Roles))
	copy(roles, user.Roles)
	return roles, nil
}

func (s *UserStore) IsInRole(user *User, roleName string) (bool, error) {
	if user == nil {
		return false, ErrInvalidUser
	}
	return hasRole(user.Roles, normalize(roleName)), nil
}

func hasRole(roles []string, roleName string) bool {
	for _, existing := range roles {
		if strings.EqualFold(existing, roleName) {
			return true
		}
	}
	return false
}
