package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultAdminRole = "admin"

func requestSubject(c *gin.Context) string {
	return c.GetString(userIDContextKey)
}

func (h *httpHandler) isAdmin(c *gin.Context) bool {
	for _, role := range c.GetStringSlice(userRolesContextKey) {
		if strings.EqualFold(strings.TrimSpace(role), h.adminRole) {
			return true
		}
	}
	return false
}

func (h *httpHandler) isSelfOrAdmin(c *gin.Context, userID string) bool {
	subject := requestSubject(c)
	if subject != "" && subject == strings.TrimSpace(userID) {
		return true
	}
	return h.isAdmin(c)
}

// requireAdmin admits only callers whose token carries the admin role.
func (h *httpHandler) requireAdmin(c *gin.Context) {
	if !h.isAdmin(c) {
		h.forbid(c)
		return
	}
	c.Next()
}

// requireSelfOrAdmin admits the user named by :id and administrators.
func (h *httpHandler) requireSelfOrAdmin(c *gin.Context) {
	if !h.isSelfOrAdmin(c, c.Param("id")) {
		h.forbid(c)
		return
	}
	c.Next()
}

func (h *httpHandler) forbid(c *gin.Context) {
	h.logger.Info("request forbidden",
		zap.String("subject", requestSubject(c)),
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()))
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
}
