// Package pipeline 定义了交互归档的后台处理流程。
package pipeline

import (
	"context"
	"time"

	"alienx-go/internal/model"
	"alienx-go/internal/repository"
	"alienx-go/pkg/log"
	"alienx-go/pkg/tasks"
)

// Processor 消费交互完成事件并将其持久化到 MySQL。
// 归档与请求链路解耦：生成回答的延迟不受数据库写入影响。
type Processor struct {
	turnRepo repository.TurnRepository
}

// NewProcessor 创建一个新的 Processor 实例。
func NewProcessor(turnRepo repository.TurnRepository) *Processor {
	return &Processor{turnRepo: turnRepo}
}

// Process 处理一条交互完成事件，满足 kafka.TurnProcessor 接口。
func (p *Processor) Process(_ context.Context, event tasks.TurnCompletedEvent) error {
	record := &model.TurnRecord{
		EventID:    event.EventID,
		SessionID:  event.SessionID,
		Query:      event.Query,
		Answer:     event.Answer,
		Language:   event.Language,
		Confidence: event.Confidence,
		CreatedAt:  time.UnixMilli(event.CreatedAt),
	}

	if err := p.turnRepo.Create(record); err != nil {
		return err
	}
	log.Infof("交互记录归档成功: event=%s, session=%s", event.EventID, event.SessionID)
	return nil
}
