package users

import (
	"strings"
	"time"
)

const (
	documentTypeUser  = "user"
	documentTypeLogin = "login"
	loginKeyPrefix    = "login:"
)

// Claim is a type/value pair held inline on the user document.
type Claim struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// LoginInfo identifies a user at an external login provider.
type LoginInfo struct {
	LoginProvider string `json:"loginProvider"`
	ProviderKey   string `json:"providerKey"`
}

// LoginAssociation links an external login to a local user id. It is stored under the
// key derived by LoginKey.
type LoginAssociation struct {
	Type          string `json:"type"`
	LoginProvider string `json:"loginProvider"`
	ProviderKey   string `json:"providerKey"`
	UserID        string `json:"userId"`
}

// LoginKey derives the store key of the association for a provider login.
func LoginKey(login LoginInfo) string {
	return loginKeyPrefix + normalize(login.LoginProvider) + ":" + normalize(login.ProviderKey)
}

// User is the persisted identity record. The id key holds the full document while the
// username and email keys hold only the id.
type User struct {
	Type                 string     `json:"type"`
	ID                   string     `json:"id"`
	UserName             string     `json:"userName"`
	Email                string     `json:"email"`
	EmailConfirmed       bool       `json:"emailConfirmed"`
	PasswordHash         string     `json:"passwordHash,omitempty"`
	PhoneNumber          string     `json:"phoneNumber,omitempty"`
	PhoneNumberConfirmed bool       `json:"phoneNumberConfirmed"`
	LockoutEndUTC        *time.Time `json:"lockoutEndDateUtc,omitempty"`
	LockoutEnabled       bool       `json:"lockoutEnabled"`
	AccessFailedCount    int        `json:"accessFailedCount"`
	TwoFactorEnabled     bool       `json:"twoFactorEnabled"`
	SecurityStamp        string     `json:"securityStamp,omitempty"`
	LoginKeys            []string   `json:"loginKeys,omitempty"`
	Roles                []string   `json:"roles,omitempty"`
	Claims               []Claim    `json:"claims,omitempty"`
}

// NewUser returns a user with the provided username. The id is assigned on Create.
func NewUser(userName string) *User {
	return &User{Type: documentTypeUser, UserName: normalize(userName)}
}

// LockedOut reports whether lockout is enabled and its end lies after now.
func (u *User) LockedOut(now time.Time) bool {
	if u == nil || !u.LockoutEnabled || u.LockoutEndUTC == nil {
		return false
	}
	return u.LockoutEndUTC.After(now)
}

// mirrorKeys returns the distinct non-blank indirection keys of the user.
func (u *User) mirrorKeys() []string {
	keys := make([]string, 0, 2)
	if email := normalize(u.Email); email != "" {
		keys = append(keys, email)
	}
	if name := normalize(u.UserName); name != "" && name != normalize(u.Email) {
		keys = append(keys, name)
	}
	return keys
}

// normalize value helper used across store implementation.
func normalize(value string) string {
	return strings.TrimSpace(value)
}

func containsKey(values []string, key string) bool {
	for _, value := range values {
		if value == key {
			return true
		}
	}
	return false
}
