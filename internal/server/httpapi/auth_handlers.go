package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/docchat/internal/common"
	"github.com/dmitrijs2005/docchat/internal/server/auth"
	"github.com/dmitrijs2005/docchat/internal/server/services"
	"github.com/gin-gonic/gin"
)

type signupRequest struct {
	Email    string `json:"email" binding:"max=254"`
	Password string `json:"password"`
	Name     string `json:"name" binding:"max=100"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"max=254"`
	Password string `json:"password"`
}

type sessionResponse struct {
	User  userDTO `json:"user"`
	Token string  `json:"token"`
}

func (h *Handler) signup(c *gin.Context) {
	var req signupRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err, "")
		return
	}

	s, err := h.accounts.Signup(c.Request.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		respondError(c, err, "")
		return
	}

	auth.SetTokenCookie(c.Writer, s.Token, h.cookie)
	respondOK(c, http.StatusCreated, sessionResponse{User: toUserDTO(s.User), Token: s.Token}, "User registered successfully")
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err, "")
		return
	}

	s, err := h.accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			respondFail(c, http.StatusUnauthorized, msgBadCredentials)
			return
		}
		respondError(c, err, "")
		return
	}

	auth.SetTokenCookie(c.Writer, s.Token, h.cookie)
	respondOK(c, http.StatusOK, sessionResponse{User: toUserDTO(s.User), Token: s.Token}, "Login successful")
}

func (h *Handler) me(c *gin.Context) {
	u, err := h.accounts.Me(c.Request.Context(), claims(c).UserID)
	if err != nil {
		respondError(c, err, "User not found")
		return
	}
	respondOK(c, http.StatusOK, gin.H{"user": toUserDTO(u)}, "")
}

// logout always clears the cookie. A token that still verifies is revoked
// as well when the server keeps a denylist.
func (h *Handler) logout(c *gin.Context) {
	auth.ClearTokenCookie(c.Writer, h.cookie)

	ctx := c.Request.Context()
	if token, ok := auth.ExtractFromRequest(c.Request); ok {
		if cl, err := h.gate.Authenticate(ctx, token); err == nil {
			if err := h.accounts.Logout(ctx, cl); err != nil {
				respondError(c, err, "")
				return
			}
		}
	}

	respondOK(c, http.StatusOK, nil, "Logged out successfully")
}

var _ Accounts = (*services.UserService)(nil)
