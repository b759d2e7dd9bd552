package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/couchbaselabs/identitystore/internal/auth"
	"github.com/couchbaselabs/identitystore/internal/roles"
	"github.com/couchbaselabs/identitystore/internal/users"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	userIDContextKey    = "identity_user_id"
	userRolesContextKey = "identity_user_roles"
)

var (
	errMissingUserStore      = errors.New("user store dependency required")
	errMissingRoleStore      = errors.New("role store dependency required")
	errMissingTokenManager   = errors.New("token manager dependency required")
	errMissingPasswordHasher = errors.New("password hasher dependency required")
	errInvalidAuthorization  = errors.New("authorization header missing or invalid")
)

// AccessTokenManager issues and validates bearer tokens.
type AccessTokenManager interface {
	IssueAccessToken(ctx context.Context, userID string, roles []string) (string, int64, error)
	ValidateToken(token string) (auth.AccessClaims, error)
}

// PasswordHasher hashes registration passwords and verifies login attempts.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) error
}

// LockoutPolicy controls how failed token requests lock an account.
type LockoutPolicy struct {
	MaxFailedAttempts int
	Duration          time.Duration
}

type Dependencies struct {
	Users     *users.UserStore
	Roles     *roles.RoleStore
	Tokens    AccessTokenManager
	Passwords PasswordHasher
	Lockout   LockoutPolicy
	Clock     func() time.Time
	Logger    *zap.Logger
	// AdminRole names the role that may manage roles and act on other users.
	AdminRole string
}

func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Users == nil {
		return nil, errMissingUserStore
	}
	if deps.Roles == nil {
		return nil, errMissingRoleStore
	}
	if deps.Tokens == nil {
		return nil, errMissingTokenManager
	}
	if deps.Passwords == nil {
		return nil, errMissingPasswordHasher
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	lockout := deps.Lockout
	if lockout.MaxFailedAttempts <= 0 {
		lockout.MaxFailedAttempts = 5
	}
	if lockout.Duration <= 0 {
		lockout.Duration = 15 * time.Minute
	}
	adminRole := strings.TrimSpace(deps.AdminRole)
	if adminRole == "" {
		adminRole = defaultAdminRole
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	handler := &httpHandler{
		users:     deps.Users,
		roles:     deps.Roles,
		tokens:    deps.Tokens,
		passwords: deps.Passwords,
		lockout:   lockout,
		clock:     clock,
		logger:    logger,
		adminRole: adminRole,
	}

	router.POST("/users", handler.handleRegister)
	router.POST("/auth/token", handler.handleToken)

	protected := router.Group("/")
	protected.Use(handler.authorizeRequest)
	protected.GET("/users/by-name/:name", handler.handleGetUserByName)
	protected.GET("/users/by-email/:email", handler.handleGetUserByEmail)
	protected.GET("/roles/:id", handler.handleGetRole)
	protected.GET("/roles/by-name/:name", handler.handleGetRoleByName)

	self := protected.Group("/")
	self.Use(handler.requireSelfOrAdmin)
	self.GET("/users/:id", handler.handleGetUser)
	self.DELETE("/users/:id", handler.handleDeleteUser)
	self.POST("/users/:id/logins", handler.handleAddUserLogin)
	self.GET("/users/:id/logins", handler.handleListUserLogins)

	admin := protected.Group("/")
	admin.Use(handler.requireAdmin)
	admin.POST("/users/:id/roles", handler.handleAddUserRole)
	admin.DELETE("/users/:id/roles/:role", handler.handleRemoveUserRole)
	admin.POST("/roles", handler.handleCreateRole)
	admin.DELETE("/roles/:id", handler.handleDeleteRole)

	return router, nil
}

func corsMiddleware() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOriginFunc:  func(string) bool { return true },
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

type httpHandler struct {
	users     *users.UserStore
	roles     *roles.RoleStore
	tokens    AccessTokenManager
	passwords PasswordHasher
	lockout   LockoutPolicy
	clock     func() time.Time
	logger    *zap.Logger
	adminRole string
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	claims, err := h.tokens.ValidateToken(token)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			h.logger.Info("token validation failed", zap.Error(err))
		} else {
			h.logger.Warn("token validation failed", zap.Error(err))
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set(userIDContextKey, claims.Subject)
	c.Set(userRolesContextKey, claims.Roles)
	c.Next()
}
