package server

import (
	"net/http"
	"strings"

	"github.com/couchbaselabs/identitystore/internal/roles"
	"github.com/gin-gonic/gin"
)

type createRoleRequestPayload struct {
	Name string `json:"name"`
}

func (h *httpHandler) handleCreateRole(c *gin.Context) {
	var request createRoleRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	role := roles.NewRole(request.Name)
	if err := h.roles.Create(c.Request.Context(), role); err != nil {
		h.writeStoreError(c, "create_role", err)
		return
	}
	c.JSON(http.StatusCreated, newRoleResponse(role))
}

func (h *httpHandler) handleGetRole(c *gin.Context) {
	role, err := h.roles.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeStoreError(c, "find_role", err)
		return
	}
	c.JSON(http.StatusOK, newRoleResponse(role))
}

func (h *httpHandler) handleGetRoleByName(c *gin.Context) {
	role, err := h.roles.FindByName(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.writeStoreError(c, "find_role_by_name", err)
		return
	}
	c.JSON(http.StatusOK, newRoleResponse(role))
}

func (h *httpHandler) handleDeleteRole(c *gin.Context) {
	role, err := h.roles.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeStoreError(c, "delete_role", err)
		return
	}
	if err := h.roles.Delete(c.Request.Context(), role); err != nil {
		h.writeStoreError(c, "delete_role", err)
		return
	}
	c.Status(http.StatusNoContent)
}
