package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/couchbaselabs/identitystore/internal/auth"
	"github.com/couchbaselabs/identitystore/internal/users"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type registerRequestPayload struct {
	UserName    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	PhoneNumber string `json:"phone_number"`
}

type tokenRequestPayload struct {
	UserName string `json:"username"`
	Password string `json:"password"`
}

type tokenResponsePayload struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

func (h *httpHandler) handleRegister(c *gin.Context) {
	var request registerRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil ||
		strings.TrimSpace(request.UserName) == "" ||
		request.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	hash, err := h.passwords.Hash(request.Password)
	if err != nil {
		h.logger.Error("failed to hash password", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration_failed"})
		return
	}

	user := users.NewUser(request.UserName)
	user.Email = strings.TrimSpace(request.Email)
	user.LockoutEnabled = true
	_ = h.users.SetPasswordHash(user, hash)
	_ = h.users.SetPhoneNumber(user, strings.TrimSpace(request.PhoneNumber))
	_ = h.users.SetSecurityStamp(user, uuid.NewString())

	if err := h.users.Create(c.Request.Context(), user); err != nil {
		h.writeStoreError(c, "register", err)
		return
	}
	c.JSON(http.StatusCreated, newUserResponse(user))
}

func (h *httpHandler) handleToken(c *gin.Context) {
	var request tokenRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil ||
		strings.TrimSpace(request.UserName) == "" ||
		request.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	ctx := c.Request.Context()

	user, err := h.users.FindByName(ctx, request.UserName)
	if err != nil {
		h.writeStoreError(c, "token", err)
		return
	}
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_credentials"})
		return
	}
	if user.LockedOut(h.clock()) {
		c.JSON(http.StatusLocked, gin.H{"error": "locked_out"})
		return
	}

	if err := h.passwords.Verify(user.PasswordHash, request.Password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			h.logger.Error("failed to verify password", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token_issue_failed"})
			return
		}
		h.recordFailedAttempt(c, user)
		return
	}

	if user.AccessFailedCount > 0 {
		if err := h.users.ResetAccessFailedCount(ctx, user); err != nil {
			h.writeStoreError(c, "token", err)
			return
		}
	}

	userRoles, _ := h.users.GetRoles(user)
	token, expiresIn, err := h.tokens.IssueAccessToken(ctx, user.ID, userRoles)
	if err != nil {
		h.logger.Error("failed to issue access token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token_issue_failed"})
		return
	}
	c.JSON(http.StatusOK, tokenResponsePayload{
		AccessToken: token,
		ExpiresIn:   expiresIn,
		TokenType:   "Bearer",
	})
}

// recordFailedAttempt counts a password mismatch and locks the account once the policy
// threshold is reached.
func (h *httpHandler) recordFailedAttempt(c *gin.Context, user *users.User) {
	ctx := c.Request.Context()
	count, err := h.users.IncrementAccessFailedCount(ctx, user)
	if err != nil {
		h.writeStoreError(c, "token", err)
		return
	}
	if user.LockoutEnabled && count >= h.lockout.MaxFailedAttempts {
		lockoutEnd := h.clock().Add(h.lockout.Duration)
		if err := h.users.SetLockoutEndDate(ctx, user, lockoutEnd); err != nil {
			h.writeStoreError(c, "token", err)
			return
		}
		if err := h.users.ResetAccessFailedCount(ctx, user); err != nil {
			h.writeStoreError(c, "token", err)
			return
		}
		h.logger.Info("user locked out",
			zap.String("user_id", user.ID),
			zap.Time("lockout_end", lockoutEnd.UTC()))
		c.JSON(http.StatusLocked, gin.H{"error": "locked_out"})
		return
	}
	c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_credentials"})
}
