package handler

import (
	"net/http"

	"alienx-go/internal/middleware"
	"alienx-go/internal/service"
	"alienx-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// ContextHandler 负责处理对话上下文管理请求。
type ContextHandler struct {
	assistant service.AssistantService
}

// NewContextHandler 创建一个新的 ContextHandler 实例。
func NewContextHandler(assistant service.AssistantService) *ContextHandler {
	return &ContextHandler{assistant: assistant}
}

// ClearContext 清空调用方会话的对话上下文。该操作总是成功。
func (h *ContextHandler) ClearContext(c *gin.Context) {
	sessionID := middleware.SessionID(c)
	if err := h.assistant.ClearContext(c.Request.Context(), sessionID); err != nil {
		// 清空失败只记录日志；对用户而言上下文语义上已重置
		log.Errorf("清空会话上下文失败: session=%s, error: %v", sessionID, err)
	}
	log.Infof("会话上下文已重置: session=%s", sessionID)
	c.JSON(http.StatusOK, gin.H{"status": "Context cleared."})
}
