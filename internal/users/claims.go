package users

// GetClaims returns a copy of the claims held on the user.
func (s *UserStore) GetClaims(user *User) ([]Claim, error) {
	if user == nil {
		return nil, ErrInvalidUser
	}
	claims := make([]Claim, len(user.Claims))
	copy(claims, user.Claims)
	return claims, nil
}

// AddClaim appends claim unless an identical claim is already present.
func (s *UserStore) AddClaim(user *User, claim Claim) error {
	if user == nil {
		return ErrInvalidUser
	}
	for _, existing := range user.Claims {
		if existing == claim {
			return nil
		}
	}
	user.Claims = append(user.Claims, claim)
	return nil
}

// RemoveClaim drops every claim matching both type and value.
func (s *UserStore) RemoveClaim(user *User, claim Claim) error {
	if user == nil {
		return ErrInvalidUser
	}
	remaining := user.Claims[:0]
	for _, existing := range user.Claims {
		if existing.Type == claim.Type && existing.Value == claim.Value {
			continue
		}
		remaining = append(remaining, existing)
	}
	user.Claims = remaining
	return nil
}
