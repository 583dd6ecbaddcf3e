package handler

import (
	"net/http"

	"alienx-go/pkg/log"
	"alienx-go/pkg/token"

	"github.com/gin-gonic/gin"
)

// SessionHandler 负责签发匿名会话。
type SessionHandler struct {
	jwtManager *token.JWTManager
}

// NewSessionHandler 创建一个新的 SessionHandler 实例。
func NewSessionHandler(jwtManager *token.JWTManager) *SessionHandler {
	return &SessionHandler{jwtManager: jwtManager}
}

// CreateSession 签发一个新的会话 ID 与对应令牌。
// 持有令牌的客户端获得独立的对话上下文；不持有令牌的客户端共享默认会话。
func (h *SessionHandler) CreateSession(c *gin.Context) {
	sessionID := token.GenerateRandomString(16)
	signed, err := h.jwtManager.GenerateToken(sessionID)
	if err != nil {
		log.Error("签发会话令牌失败", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    http.StatusInternalServerError,
			"message": "无法创建会话",
			"data":    nil,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data":    gin.H{"sessionId": sessionID, "token": signed},
	})
}
