package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"alienx-go/internal/service"
	"alienx-go/pkg/log"
	"alienx-go/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许所有来源
	},
}

// ChatHandler 负责处理 WebSocket 聊天连接。
// 每条文本消息走一轮完整的编排链路，回复与完成通知按 JSON 帧下发。
type ChatHandler struct {
	assistant  service.AssistantService
	jwtManager *token.JWTManager
}

// NewChatHandler 创建一个新的 ChatHandler。
func NewChatHandler(assistant service.AssistantService, jwtManager *token.JWTManager) *ChatHandler {
	return &ChatHandler{assistant: assistant, jwtManager: jwtManager}
}

// Handle 处理一个传入的 WebSocket 连接。
// 路径参数携带会话令牌；令牌无效时拒绝升级。
func (h *ChatHandler) Handle(c *gin.Context) {
	tokenString := c.Param("token")
	claims, err := h.jwtManager.VerifyToken(tokenString)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "无效的 token", "data": nil})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()

	log.Infof("WebSocket 连接已建立，会话: %s", claims.SessionID)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			log.Warnf("从 WebSocket 读取消息失败: %v", err)
			break
		}

		result, err := h.assistant.HandleTurn(c.Request.Context(), claims.SessionID, string(message), "")
		if err != nil {
			if errors.Is(err, service.ErrEmptyInput) {
				writeJSON(conn, map[string]string{"error": msgNoInput})
				continue
			}
			// 编排层之上不应再有错误；兜底为安全文案并保持连接
			log.Errorf("处理 WebSocket 消息失败: %v", err)
			writeJSON(conn, map[string]string{"error": msgServerError})
			sendCompletion(conn)
			continue
		}

		writeJSON(conn, map[string]string{"response": result.ResponseText, "lang": result.SpeechLang})
		sendCompletion(conn)
	}
}

func writeJSON(conn *websocket.Conn, payload interface{}) {
	b, _ := json.Marshal(payload)
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		log.Warnf("写入 WebSocket 消息失败: %v", err)
	}
}

// sendCompletion 发送完成通知 JSON
func sendCompletion(conn *websocket.Conn) {
	notif := map[string]interface{}{
		"type":      "completion",
		"status":    "finished",
		"timestamp": time.Now().UnixMilli(),
		"date":      time.Now().Format("2006-01-02T15:04:05"),
	}
	writeJSON(conn, notif)
}
