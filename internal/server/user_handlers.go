package server

import (
	"net/http"
	"strings"

	"github.com/couchbaselabs/identitystore/internal/users"
	"github.com/gin-gonic/gin"
)

type roleAssignmentPayload struct {
	Role string `json:"role"`
}

func (h *httpHandler) handleGetUser(c *gin.Context) {
	user, ok := h.loadUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newUserResponse(user))
}

func (h *httpHandler) handleGetUserByName(c *gin.Context) {
	user, err := h.users.FindByName(c.Request.Context(), c.Param("name"))
	h.respondWithUser(c, "find_by_name", user, err)
}

func (h *httpHandler) handleGetUserByEmail(c *gin.Context) {
	user, err := h.users.FindByEmail(c.Request.Context(), c.Param("email"))
	h.respondWithUser(c, "find_by_email", user, err)
}

// respondWithUser answers a lookup by name or email. Callers without the admin role only
// see their own record, and learn nothing about whether another user exists.
func (h *httpHandler) respondWithUser(c *gin.Context, operation string, user *users.User, err error) {
	if err != nil {
		h.writeStoreError(c, operation, err)
		return
	}
	if !h.isAdmin(c) && (user == nil || user.ID != requestSubject(c)) {
		h.forbid(c)
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}
	c.JSON(http.StatusOK, newUserResponse(user))
}

func (h *httpHandler) handleDeleteUser(c *gin.Context) {
	user, ok := h.loadUser(c)
	if !ok {
		return
	}
	if err := h.users.Delete(c.Request.Context(), user); err != nil {
		h.writeStoreError(c, "delete_user", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleAddUserRole(c *gin.Context) {
	var request roleAssignmentPayload
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.Role) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	user, ok := h.loadUser(c)
	if !ok {
		return
	}
	role, err := h.roles.FindByName(c.Request.Context(), request.Role)
	if err != nil {
		h.writeStoreError(c, "add_user_role", err)
		return
	}
	if err := h.users.AddToRole(user, role.Name); err != nil {
		h.writeStoreError(c, "add_user_role", err)
		return
	}
	if err := h.users.Update(c.Request.Context(), user); err != nil {
		h.writeStoreError(c, "add_user_role", err)
		return
	}
	c.JSON(http.StatusOK, newUserResponse(user))
}

func (h *httpHandler) handleRemoveUserRole(c *gin.Context) {
	user, ok := h.loadUser(c)
	if !ok {
		return
	}
	if err := h.users.RemoveFromRole(user, c.Param("role")); err != nil {
		h.writeStoreError(c, "remove_user_role", err)
		return
	}
	if err := h.users.Update(c.Request.Context(), user); err != nil {
		h.writeStoreError(c, "remove_user_role", err)
		return
	}
	c.JSON(http.StatusOK, newUserResponse(user))
}

func (h *httpHandler) handleAddUserLogin(c *gin.Context) {
	var request loginPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	user, ok := h.loadUser(c)
	if !ok {
		return
	}
	login := users.LoginInfo{LoginProvider: request.LoginProvider, ProviderKey: request.ProviderKey}
	if err := h.users.AddLogin(c.Request.Context(), user, login); err != nil {
		h.writeStoreError(c, "add_user_login", err)
		return
	}
	h.respondWithLogins(c, http.StatusCreated, user)
}

func (h *httpHandler) handleListUserLogins(c *gin.Context) {
	user, ok := h.loadUser(c)
	if !ok {
		return
	}
	h.respondWithLogins(c, http.StatusOK, user)
}

func (h *httpHandler) respondWithLogins(c *gin.Context, status int, user *users.User) {
	logins, err := h.users.GetLogins(c.Request.Context(), user)
	if err != nil {
		h.writeStoreError(c, "list_user_logins", err)
		return
	}
	payload := make([]loginPayload, 0, len(logins))
	for _, login := range logins {
		payload = append(payload, loginPayload{LoginProvider: login.LoginProvider, ProviderKey: login.ProviderKey})
	}
	c.JSON(status, gin.H{"logins": payload})
}

// loadUser resolves the :id path parameter and writes the error response when it fails.
func (h *httpHandler) loadUser(c *gin.Context) (*users.User, bool) {
	user, err := h.users.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeStoreError(c, "find_by_id", err)
		return nil, false
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return nil, false
	}
	return user, true
}
