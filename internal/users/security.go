package users

import "strings"

// SetSecurityStamp replaces the stamp in memory.
func (s *UserStore) SetSecurityStamp(user *User, stamp string) error {
	if user == nil {
		return ErrInvalidUser
	}
	user.SecurityStamp = stamp
	return nil
}

func (s *UserStore) GetSecurityStamp(user *User) (string, error) {
	if user == nil {
		return "", ErrInvalidUser
	}
	return user.SecurityStamp, nil
}

// SetPasswordHash replaces the hash in memory.
func (s *UserStore) SetPasswordHash(user *User, passwordHash string) error {
	if user == nil {
		return ErrInvalidUser
	}
	user.PasswordHash = passwordHash
	return nil
}

func (s *UserStore) GetPasswordHash(user *User) (string, error) {
	if user == nil {
		return "", ErrInvalidUser
	}
	return user.PasswordHash, nil
}

// HasPassword reports whether a non-blank hash is set.
func (s *UserStore) HasPassword(user *User) bool {
	return user != nil && strings.TrimSpace(user.PasswordHash) != ""
}

func (s *UserStore) SetTwoFactorEnabled(user *User, enabled bool) error {
	if user == nil {
		return ErrInvalidUser
	}
	user.TwoFactorEnabled = enabled
	return nil
}

func (s *UserStore) GetTwoFactorEnabled(user *User) (bool, error) {
	if user == nil {
		return false, ErrInvalidUser
	}
	return user.TwoFactorEnabled, nil
}
