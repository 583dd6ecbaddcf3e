package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"alienx-go/internal/model"
	"alienx-go/internal/repository"
	"alienx-go/pkg/log"
	"alienx-go/pkg/tasks"
	"alienx-go/pkg/token"
)

// ErrEmptyInput 表示输入去除空白后为空，在任何下游调用之前被拒绝。
var ErrEmptyInput = errors.New("empty input")

// DefaultSessionID 是未携带会话令牌的请求共享的会话，
// 保持单一全局对话的参考行为。
const DefaultSessionID = "default"

// TurnResult 是一轮交互面向用户的结果。
type TurnResult struct {
	ResponseText string
	SpeechLang   string
}

// TurnEventPublisher 定义了交互完成事件的投递接口。
type TurnEventPublisher interface {
	PublishTurnCompleted(event tasks.TurnCompletedEvent) error
}

// AssistantService 定义了单轮交互的编排接口。
// 文本与语音入口共用同一条编排链路，区别只在于语音先做转写。
type AssistantService interface {
	// HandleTurn 处理一轮用户输入：校验 → 语言解析 → 归一化为英语 →
	// 检索 → 合成 → 更新上下文 → 必要时回译。除空输入外不返回错误：
	// 下游故障在各自边界内降级为兜底回复。
	HandleTurn(ctx context.Context, sessionID, rawInput, langHint string) (TurnResult, error)
	// ClearContext 清空指定会话的对话上下文。
	ClearContext(ctx context.Context, sessionID string) error
}

type assistantService struct {
	knowledge KnowledgeService
	language  LanguageService
	chat      ChatService
	contexts  repository.ContextRepository
	events    TurnEventPublisher // 可为 nil，事件投递是尽力而为的
}

// NewAssistantService 创建一个新的 AssistantService 实例。
func NewAssistantService(
	knowledge KnowledgeService,
	language LanguageService,
	chat ChatService,
	contexts repository.ContextRepository,
	events TurnEventPublisher,
) AssistantService {
	return &assistantService{
		knowledge: knowledge,
		language:  language,
		chat:      chat,
		contexts:  contexts,
		events:    events,
	}
}

// HandleTurn 编排一轮完整的交互。
func (s *assistantService) HandleTurn(ctx context.Context, sessionID, rawInput, langHint string) (TurnResult, error) {
	input := strings.TrimSpace(rawInput)
	if input == "" {
		return TurnResult{}, ErrEmptyInput
	}
	if sessionID == "" {
		sessionID = DefaultSessionID
	}

	// 1. 语言解析与归一化
	lang := s.language.Resolve(input, langHint)
	english := s.language.ToEnglish(ctx, input, lang)

	// 2. 知识检索（英语查询）
	var retrieved *model.Article
	if article, found := s.knowledge.Retrieve(english); found {
		retrieved = &article
	}

	// 3. 基于当前上下文快照合成回答
	history, err := s.contexts.Snapshot(ctx, sessionID)
	if err != nil {
		// 上下文读取失败降级为空历史，不阻断本轮
		log.Errorf("读取会话上下文失败: session=%s, error: %v", sessionID, err)
		history = nil
	}

	reply, synthErr := s.chat.Synthesize(ctx, english, retrieved, history, lang)

	// 4. 仅在合成成功后更新上下文并投递归档事件
	if synthErr == nil {
		s.appendTurns(ctx, sessionID, english, reply.ResponseText)
		s.publishEvent(sessionID, english, reply, lang)
	} else {
		log.Warnf("本轮合成降级为兜底回复: session=%s, error: %v", sessionID, synthErr)
	}

	// 5. 生成输出仍是英语而用户语言不是时回译
	responseText := reply.ResponseText
	if synthErr == nil && lang != model.LangEnglish {
		responseText = s.language.BackTranslate(ctx, responseText, lang)
	}

	return TurnResult{
		ResponseText: responseText,
		SpeechLang:   model.SpeechCode(lang),
	}, nil
}

// ClearContext 清空会话上下文。
func (s *assistantService) ClearContext(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		sessionID = DefaultSessionID
	}
	return s.contexts.Clear(ctx, sessionID)
}

// appendTurns 将本轮的用户消息与助手回答按序追加到上下文。
// 追加失败只记录日志：回答已经生成，不能因此失败整轮。
func (s *assistantService) appendTurns(ctx context.Context, sessionID, query, answer string) {
	if err := s.contexts.Append(ctx, sessionID, model.Turn{Role: model.RoleUser, Text: query}); err != nil {
		log.Errorf("追加用户消息到上下文失败: session=%s, error: %v", sessionID, err)
		return
	}
	if err := s.contexts.Append(ctx, sessionID, model.Turn{Role: model.RoleAssistant, Text: answer}); err != nil {
		log.Errorf("追加助手消息到上下文失败: session=%s, error: %v", sessionID, err)
	}
}

// publishEvent 投递交互完成事件供后台归档，失败不影响本轮。
func (s *assistantService) publishEvent(sessionID, query string, reply model.GenerationReply, lang string) {
	if s.events == nil {
		return
	}
	event := tasks.TurnCompletedEvent{
		EventID:    token.GenerateRandomString(16),
		SessionID:  sessionID,
		Query:      query,
		Answer:     reply.ResponseText,
		Language:   lang,
		Confidence: reply.ConfidenceScore,
		CreatedAt:  time.Now().UnixMilli(),
	}
	if err := s.events.PublishTurnCompleted(event); err != nil {
		log.Errorf("投递交互完成事件失败: session=%s, error: %v", sessionID, err)
	}
}
