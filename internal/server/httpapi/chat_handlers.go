package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/docchat/internal/server/services"
	"github.com/gin-gonic/gin"
)

const msgChatNotFound = "Chat not found"

type createChatRequest struct {
	Title   string `json:"title" binding:"max=200"`
	Message string `json:"message"`
}

type updateChatRequest struct {
	Title   string `json:"title" binding:"max=200"`
	Message string `json:"message"`
	Role    string `json:"role" binding:"omitempty,oneof=user assistant system"`
}

type sendMessageRequest struct {
	Message    string `json:"message"`
	DocumentID string `json:"documentId" binding:"omitempty,uuid"`
}

func (h *Handler) listChats(c *gin.Context) {
	list, err := h.chats.List(c.Request.Context(), claims(c).UserID)
	if err != nil {
		respondError(c, err, msgChatNotFound)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"chats": toChatSummaryDTOs(list)}, "")
}

func (h *Handler) createChat(c *gin.Context) {
	var req createChatRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err, "")
		return
	}

	chat, err := h.chats.Create(c.Request.Context(), claims(c).UserID, req.Title, req.Message)
	if err != nil {
		respondError(c, err, msgChatNotFound)
		return
	}
	respondOK(c, http.StatusCreated, gin.H{"chat": toChatDTO(chat)}, "Chat created successfully")
}

func (h *Handler) getChat(c *gin.Context) {
	chat, err := h.chats.Get(c.Request.Context(), claims(c).UserID, c.Param("id"))
	if err != nil {
		respondError(c, err, msgChatNotFound)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"chat": toChatDTO(chat)}, "")
}

func (h *Handler) updateChat(c *gin.Context) {
	var req updateChatRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err, "")
		return
	}

	chat, err := h.chats.Update(c.Request.Context(), claims(c).UserID, c.Param("id"), services.ChatUpdate{
		Title:   req.Title,
		Message: req.Message,
		Role:    req.Role,
	})
	if err != nil {
		respondError(c, err, msgChatNotFound)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"chat": toChatDTO(chat)}, "Chat updated successfully")
}

func (h *Handler) deleteChat(c *gin.Context) {
	if err := h.chats.Delete(c.Request.Context(), claims(c).UserID, c.Param("id")); err != nil {
		respondError(c, err, msgChatNotFound)
		return
	}
	respondOK(c, http.StatusOK, nil, "Chat deleted successfully")
}

func (h *Handler) sendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err, "")
		return
	}

	reply, err := h.chats.SendMessage(c.Request.Context(), claims(c).UserID, c.Param("id"), req.Message, req.DocumentID)
	if err != nil {
		respondError(c, err, msgChatNotFound)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"message": reply.Message, "chat": toChatDTO(reply.Chat)}, "")
}

var _ Chats = (*services.ChatService)(nil)
