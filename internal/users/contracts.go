package users

import (
	"context"
	"time"
)

// Users covers the record lifecycle and primary lookups.
type Users interface {
	Create(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User) error
	Delete(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByName(ctx context.Context, userName string) (*User, error)
}

// LoginStore manages external login associations. Every mutation is persisted.
type LoginStore interface {
	AddLogin(ctx context.Context, user *User, login LoginInfo) error
	RemoveLogin(ctx context.Context, user *User, login LoginInfo) error
	GetLogins(ctx context.Context, user *User) ([]LoginInfo, error)
	FindByLogin(ctx context.Context, login LoginInfo) (*User, error)
}

// ClaimStore mutates claims in memory only; callers persist with Update.
type ClaimStore interface {
	GetClaims(user *User) ([]Claim, error)
	AddClaim(user *User, claim Claim) error
	RemoveClaim(user *User, claim Claim) error
}

// RoleAssignmentStore mutates role membership in memory only; callers persist with Update.
type RoleAssignmentStore interface {
	AddToRole(user *User, roleName string) error
	RemoveFromRole(user *User, roleName string) error
	GetRoles(user *User) ([]string, error)
	IsInRole(user *User, roleName string) (bool, error)
}

// SecurityStampStore mutates the security stamp in memory only.
type SecurityStampStore interface {
	SetSecurityStamp(user *User, stamp string) error
	GetSecurityStamp(user *User) (string, error)
}

// PasswordStore mutates the password hash in memory only.
type PasswordStore interface {
	SetPasswordHash(user *User, passwordHash string) error
	GetPasswordHash(user *User) (string, error)
	HasPassword(user *User) bool
}

// PhoneNumberStore persists the confirmation flag; the number itself is set in memory.
type PhoneNumberStore interface {
	SetPhoneNumber(user *User, phoneNumber string) error
	GetPhoneNumber(user *User) (string, error)
	GetPhoneNumberConfirmed(user *User) (bool, error)
	SetPhoneNumberConfirmed(ctx context.Context, user *User, confirmed bool) error
}

// LockoutStore persists every mutation.
type LockoutStore interface {
	GetLockoutEndDate(user *User) (time.Time, error)
	SetLockoutEndDate(ctx context.Context, user *User, lockoutEnd time.Time) error
	IncrementAccessFailedCount(ctx context.Context, user *User) (int, error)
	ResetAccessFailedCount(ctx context.Context, user *User) error
	GetAccessFailedCount(user *User) (int, error)
	GetLockoutEnabled(user *User) (bool, error)
	SetLockoutEnabled(ctx context.Context, user *User, enabled bool) error
}

// TwoFactorStore mutates the two-factor flag in memory only.
type TwoFactorStore interface {
	SetTwoFactorEnabled(user *User, enabled bool) error
	GetTwoFactorEnabled(user *User) (bool, error)
}

// EmailStore persists every mutation and resolves users through the email mirror key.
type EmailStore interface {
	SetEmail(ctx context.Context, user *User, email string) error
	GetEmail(user *User) (string, error)
	GetEmailConfirmed(user *User) (bool, error)
	SetEmailConfirmed(ctx context.Context, user *User, confirmed bool) error
	FindByEmail(ctx context.Context, email string) (*User, error)
}

var (
	_ Users               = (*UserStore)(nil)
	_ LoginStore          = (*UserStore)(nil)
	_ ClaimStore          = (*UserStore)(nil)
	_ RoleAssignmentStore = (*UserStore)(nil)
	_ SecurityStampStore  = (*UserStore)(nil)
	_ PasswordStore       = (*UserStore)(nil)
	_ PhoneNumberStore    = (*UserStore)(nil)
	_ LockoutStore        = (*UserStore)(nil)
	_ TwoFactorStore      = (*UserStore)(nil)
	_ EmailStore          = (*UserStore)(nil)
)
