// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"net/http"
	"strconv"

	"alienx-go/internal/middleware"
	"alienx-go/internal/service"

	"github.com/gin-gonic/gin"
)

// ConversationHandler 处理与历史交互记录相关的 API 请求。
type ConversationHandler struct {
	service service.ConversationService
}

// NewConversationHandler 创建一个新的 ConversationHandler。
func NewConversationHandler(service service.ConversationService) *ConversationHandler {
	return &ConversationHandler{service: service}
}

// GetConversation 返回调用方会话的归档交互记录。
func (h *ConversationHandler) GetConversation(c *gin.Context) {
	sessionID := middleware.SessionID(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	records, err := h.service.GetSessionTurns(sessionID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    http.StatusInternalServerError,
			"message": "Failed to retrieve conversation history",
			"data":    nil,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data":    records,
	})
}
