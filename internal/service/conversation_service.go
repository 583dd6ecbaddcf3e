// Package service 包含了应用的业务逻辑层。
package service

import (
	"alienx-go/internal/model"
	"alienx-go/internal/repository"
)

// ConversationService 定义了历史交互查询的业务逻辑接口。
type ConversationService interface {
	// GetSessionTurns 返回某会话已归档的交互记录，时间倒序。
	GetSessionTurns(sessionID string, limit int) ([]model.TurnRecord, error)
}

type conversationService struct {
	turns repository.TurnRepository
}

// NewConversationService 创建一个新的 ConversationService。
func NewConversationService(turns repository.TurnRepository) ConversationService {
	return &conversationService{turns: turns}
}

// GetSessionTurns 获取会话的归档记录。
func (s *conversationService) GetSessionTurns(sessionID string, limit int) ([]model.TurnRecord, error) {
	if sessionID == "" {
		sessionID = DefaultSessionID
	}
	return s.turns.FindBySession(sessionID, limit)
}
