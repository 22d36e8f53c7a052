package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const msgUserNotFound = "User not found"

type setRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=user admin"`
}

func (h *Handler) listUsers(c *gin.Context) {
	users, err := h.accounts.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, err, msgUserNotFound)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"users": toUserDTOs(users)}, "")
}

func (h *Handler) deleteUser(c *gin.Context) {
	if err := h.accounts.DeleteUser(c.Request.Context(), claims(c).UserID, c.Param("id")); err != nil {
		respondError(c, err, msgUserNotFound)
		return
	}
	respondOK(c, http.StatusOK, nil, "User deleted successfully")
}

func (h *Handler) setRole(c *gin.Context) {
	var req setRoleRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err, "")
		return
	}

	if err := h.accounts.SetRole(c.Request.Context(), claims(c).UserID, c.Param("id"), req.Role); err != nil {
		respondError(c, err, msgUserNotFound)
		return
	}
	respondOK(c, http.StatusOK, nil, "User role updated successfully")
}

func (h *Handler) listUserBlobs(c *gin.Context) {
	blobs, err := h.accounts.ListUserBlobs(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, msgUserNotFound)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"blobs": toBlobDTOs(blobs)}, "")
}
