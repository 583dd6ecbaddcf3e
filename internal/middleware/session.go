package middleware

import (
	"strings"

	"alienx-go/pkg/token"

	"github.com/gin-gonic/gin"
)

const sessionContextKey = "sessionID"

// SessionResolver 创建一个 Gin 中间件，从 Authorization 头解析会话令牌。
// 会话是可选的：缺失或无效的令牌回退到共享的默认会话，
// 保持单一全局对话的参考行为，而不是拒绝请求。
func SessionResolver(jwtManager *token.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := ""

		const bearerPrefix = "Bearer "
		authHeader := c.GetHeader("Authorization")
		if strings.HasPrefix(authHeader, bearerPrefix) {
			tokenString := strings.TrimPrefix(authHeader, bearerPrefix)
			if claims, err := jwtManager.VerifyToken(tokenString); err == nil {
				sessionID = claims.SessionID
			}
		}

		c.Set(sessionContextKey, sessionID)
		c.Next()
	}
}

// SessionID 返回当前请求解析出的会话 ID，未携带有效令牌时为空字符串。
// 空值由编排层映射到默认会话。
func SessionID(c *gin.Context) string {
	if v, ok := c.Get(sessionContextKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
