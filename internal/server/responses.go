package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/couchbaselabs/identitystore/internal/bucket"
	"github.com/couchbaselabs/identitystore/internal/roles"
	"github.com/couchbaselabs/identitystore/internal/users"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type userResponsePayload struct {
	ID                   string     `json:"id"`
	UserName             string     `json:"user_name"`
	Email                string     `json:"email,omitempty"`
	EmailConfirmed       bool       `json:"email_confirmed"`
	PhoneNumber          string     `json:"phone_number,omitempty"`
	PhoneNumberConfirmed bool       `json:"phone_number_confirmed"`
	TwoFactorEnabled     bool       `json:"two_factor_enabled"`
	LockoutEnabled       bool       `json:"lockout_enabled"`
	LockoutEnd           *time.Time `json:"lockout_end,omitempty"`
	Roles                []string   `json:"roles"`
}

func newUserResponse(user *users.User) userResponsePayload {
	userRoles := user.Roles
	if userRoles == nil {
		userRoles = []string{}
	}
	return userResponsePayload{
		ID:                   user.ID,
		UserName:             user.UserName,
		Email:                user.Email,
		EmailConfirmed:       user.EmailConfirmed,
		PhoneNumber:          user.PhoneNumber,
		PhoneNumberConfirmed: user.PhoneNumberConfirmed,
		TwoFactorEnabled:     user.TwoFactorEnabled,
		LockoutEnabled:       user.LockoutEnabled,
		LockoutEnd:           user.LockoutEndUTC,
		Roles:                userRoles,
	}
}

type roleResponsePayload struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func newRoleResponse(role *roles.Role) roleResponsePayload {
	return roleResponsePayload{ID: role.ID, Name: role.Name}
}

type loginPayload struct {
	LoginProvider string `json:"login_provider"`
	ProviderKey   string `json:"provider_key"`
}

// writeStoreError maps store and validation failures onto HTTP responses.
func (h *httpHandler) writeStoreError(c *gin.Context, operation string, err error) {
	switch {
	case bucket.IsKeyExists(err):
		c.JSON(http.StatusConflict, gin.H{"error": "already_exists"})
	case bucket.IsKeyNotFound(err), errors.Is(err, users.ErrUnknownLogin):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	case errors.Is(err, users.ErrInvalidKey),
		errors.Is(err, users.ErrInvalidUser),
		errors.Is(err, roles.ErrInvalidRole),
		errors.Is(err, roles.ErrInvalidName):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
	default:
		h.logger.Error("identity store request failed",
			zap.String("operation", operation),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store_failure"})
	}
}
