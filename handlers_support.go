package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bankinghub/auth"
	"bankinghub/support"
)

type chatRequest struct {
	Message        string `json:"message" binding:"required"`
	Category       string `json:"category"`
	ConversationID string `json:"conversation_id"`
}

func (s *Server) supportChat(c *gin.Context) {
	var req chatRequest
	if !bind(c, &req) {
		return
	}
	resp, err := s.support.Handle(c.Request.Context(), auth.UserID(c), support.Request{
		Message:        req.Message,
		Category:       req.Category,
		ConversationID: req.ConversationID,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
