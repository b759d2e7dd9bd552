package users

import (
	"context"
	"time"
)

// GetLockoutEndDate returns the lockout end in UTC, or the zero time when none is set.
func (s *UserStore) GetLockoutEndDate(user *User) (time.Time, error) {
	if user == nil {
		return time.Time{}, ErrInvalidUser
	}
	if user.LockoutEndUTC == nil {
		return time.Time{}, nil
	}
	return user.LockoutEndUTC.UTC(), nil
}

// SetLockoutEndDate stores lockoutEnd in UTC and persists the user. The zero time
// clears the lockout.
func (s *UserStore) SetLockoutEndDate(ctx context.Context, user *User, lockoutEnd time.Time) error {
	if user == nil {
		return ErrInvalidUser
	}
	if lockoutEnd.IsZero() {
		user.LockoutEndUTC = nil
	} else {
		end := lockoutEnd.UTC()
		user.LockoutEndUTC = &end
	}
	return s.Update(ctx, user)
}

// IncrementAccessFailedCount bumps the counter, persists the user and returns the new
// count.
func (s *UserStore) IncrementAccessFailedCount(ctx context.Context, user *User) (int, error) {
	if user == nil {
		return 0, ErrInvalidUser
	}
	user.AccessFailedCount++
	if err := s.Update(ctx, user); err != nil {
		return user.AccessFailedCount, err
	}
	return user.AccessFailedCount, nil
}

func (s *UserStore) ResetAccessFailedCount(ctx context.Context, user *User) error {
	if user == nil {
		return ErrInvalidUser
	}
	user.AccessFailedCount = 0
	return s.Update(ctx, user)
}

func (s *UserStore) GetAccessFailedCount(user *User) (int, error) {
	if user == nil {
		return 0, ErrInvalidUser
	}
	return user.AccessFailedCount, nil
}

func (s *UserStore) GetLockoutEnabled(user *User) (bool, error) {
	if user == nil {
		return false, ErrInvalidUser
	}
	return user.LockoutEnabled, nil
}

func (s *UserStore) SetLockoutEnabled(ctx context.Context, user *User, enabled bool) error {
	if user == nil {
		return ErrInvalidUser
	}
	user.LockoutEnabled = enabled
	return s.Update(ctx, user)
}

// LockedOut reports whether the user is currently locked out by the store clock.
func (s *UserStore) LockedOut(user *User) bool {
	return user.LockedOut(s.clock())
}
