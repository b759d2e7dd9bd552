package users

import "context"

// SetPhoneNumber replaces the number in memory. Confirmation is left untouched.
func (s *UserStore) SetPhoneNumber(user *User, phoneNumber string) error {
	if user == nil {
		return ErrInvalidUser
	}
	user.PhoneNumber = phoneNumber
	return nil
}

func (s *UserStore) GetPhoneNumber(user *User) (string, error) {
	if user == nil {
		return "", ErrInvalidUser
	}
	return user.PhoneNumber, nil
}

func (s *UserStore) GetPhoneNumberConfirmed(user *User) (bool, error) {
	if user == nil {
		return false, ErrInvalidUser
	}
	return user.PhoneNumberConfirmed, nil
}

// SetPhoneNumberConfirmed sets the flag and persists the user.
func (s *UserStore) SetPhoneNumberConfirmed(ctx context.Context, user *User, confirmed bool) error {
	if user == nil {
		return ErrInvalidUser
	}
	user.PhoneNumberConfirmed = confirmed
	return s.Update(ctx, user)
}
