// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"net/http"

	"alienx-go/internal/middleware"
	"alienx-go/internal/service"
	"alienx-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// 面向用户的固定文案。所有错误路径都返回结构完整的 {response, lang}，
// 绝不向用户暴露原始错误。
const (
	msgNoInput     = "No input received. Please say something."
	msgServerError = "A critical server error occurred. Please try again later."
)

// QueryHandler 负责处理文本问答请求。
type QueryHandler struct {
	assistant service.AssistantService
}

// NewQueryHandler 创建一个新的 QueryHandler 实例。
func NewQueryHandler(assistant service.AssistantService) *QueryHandler {
	return &QueryHandler{assistant: assistant}
}

// ProcessQueryRequest 定义了文本问答 API 的请求体结构。
type ProcessQueryRequest struct {
	Transcript string `json:"transcript"`
	Language   string `json:"language"`
}

// ProcessQuery 处理一轮文本问答。
func (h *QueryHandler) ProcessQuery(c *gin.Context) {
	var req ProcessQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"response": msgNoInput, "lang": "en-US"})
		return
	}

	sessionID := middleware.SessionID(c)
	result, err := h.assistant.HandleTurn(c.Request.Context(), sessionID, req.Transcript, req.Language)
	if err != nil {
		if errors.Is(err, service.ErrEmptyInput) {
			c.JSON(http.StatusBadRequest, gin.H{"response": msgNoInput, "lang": "en-US"})
			return
		}
		log.Errorf("处理文本问答失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"response": msgServerError, "lang": "en-US"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"response": result.ResponseText, "lang": result.SpeechLang})
}
