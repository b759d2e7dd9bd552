package users

import "context"

// SetEmail replaces the email and persists the user. The email mirror key follows only
// when the store refreshes mirror keys.
func (s *UserStore) SetEmail(ctx context.Context, user *User, email string) error {
	if user == nil {
		return ErrInvalidUser
	}
	user.Email = normalize(email)
	return s.Update(ctx, user)
}

func (s *UserStore) GetEmail(user *User) (string, error) {
	if user == nil {
		return "", ErrInvalidUser
	}
	return user.Email, nil
}

func (s *UserStore) GetEmailConfirmed(user *User) (bool, error) {
	if user == nil {
		return false, ErrInvalidUser
	}
	return user.EmailConfirmed, nil
}

func (s *UserStore) SetEmailConfirmed(ctx context.Context, user *User, confirmed bool) error {
	if user == nil {
		return ErrInvalidUser
	}
	user.EmailConfirmed = confirmed
	return s.Update(ctx, user)
}

// FindByEmail resolves the email key to an id and loads that user.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	return s.findByMirror(ctx, email)
}
