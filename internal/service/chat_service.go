package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"alienx-go/internal/config"
	"alienx-go/internal/model"
	"alienx-go/pkg/genai"
	"alienx-go/pkg/log"
)

// fallbackResponseText 是合成链路任何失败时返回的确定性兜底回答。
const fallbackResponseText = "I'm experiencing a temporary issue with my core logic. Please ask your question again in a moment."

// freeTextConfidence 是模型未按 JSON 约定输出、按纯文本采信时的默认置信度。
const freeTextConfidence = 0.2

// defaultPersonaRules 是默认的人设与语气约束，可被配置覆盖。
const defaultPersonaRules = `You are ALIENX. Your persona is that of a calm, intelligent, and highly capable human assistant.
- Your Tone: Be conversational, clear, and natural. Avoid being overly robotic or formal. Use phrases like "Sure, I can help with that," or "It looks like..." to start your sentences. Be friendly, yet professional. Use contractions like "it's" or "you're" to sound more human.`

// ChatService 定义了回答合成的接口。
// 合成器是"请求/响应变换 + 一次外部调用"，不修改对话上下文。
type ChatService interface {
	// Synthesize 将检索结果、对话历史与语言指令组装为一次生成请求，
	// 解析模型输出为结构化回复。任何失败都降级为兜底回复并返回对应错误，
	// 绝不向上抛出原始异常。
	Synthesize(ctx context.Context, query string, retrieved *model.Article, history []model.Turn, lang string) (model.GenerationReply, error)
}

type chatService struct {
	genClient genai.Client
}

// NewChatService 创建一个新的 ChatService 实例。
func NewChatService(genClient genai.Client) ChatService {
	return &chatService{genClient: genClient}
}

// Synthesize 执行一次完整的合成：构建 prompt → 调用生成服务 → 解析输出。
func (s *chatService) Synthesize(ctx context.Context, query string, retrieved *model.Article, history []model.Turn, lang string) (model.GenerationReply, error) {
	prompt := s.buildPrompt(query, retrieved, history, lang)

	raw, err := s.genClient.Generate(ctx, prompt)
	if err != nil {
		log.Errorf("生成服务调用失败: %v", err)
		return fallbackReply(), fmt.Errorf("generation call failed: %w", err)
	}

	reply, ok := parseReply(raw)
	if !ok {
		log.Errorf("生成服务返回了空输出")
		return fallbackReply(), fmt.Errorf("generation returned empty output")
	}
	return reply, nil
}

func fallbackReply() model.GenerationReply {
	return model.GenerationReply{
		ResponseText:    fallbackResponseText,
		ConfidenceScore: 0.0,
	}
}

// buildPrompt 组装单条生成请求：人设约束、知识接地原则、
// 序列化的检索结果、格式化历史、原始查询与输出语言指令。
func (s *chatService) buildPrompt(query string, retrieved *model.Article, history []model.Turn, lang string) string {
	rules := config.Conf.Assistant.PersonaRules
	if rules == "" {
		rules = defaultPersonaRules
	}

	retrievedJSON := "[]"
	if retrieved != nil {
		if b, err := json.MarshalIndent([]model.Article{*retrieved}, "", "  "); err == nil {
			retrievedJSON = string(b)
		}
	}

	var sb strings.Builder
	sb.WriteString("**System Persona:** ")
	sb.WriteString(rules)
	sb.WriteString("\n\n**Guiding Principles (MUST FOLLOW):**\n")
	sb.WriteString("1. **Knowledge Base Priority:** The `Retrieved Knowledge` section is your single source of truth for specific topics.\n")
	sb.WriteString("   - **If `Retrieved Knowledge` is NOT empty:** Base your answer on it. Your main task is to synthesize this information into a natural, conversational response.\n")
	sb.WriteString("   - **If `Retrieved Knowledge` is empty:** Answer the query using your vast general knowledge.\n")
	sb.WriteString("2. **Language Adherence:** Your final `response_text` must be in the `Required Output Language`.\n")
	sb.WriteString("\n**Context for Analysis:**\n")
	sb.WriteString(fmt.Sprintf("- **User Query:** %q\n", query))
	sb.WriteString("- **Retrieved Knowledge (Source of Truth):** ")
	sb.WriteString(retrievedJSON)
	sb.WriteString("\n- **Conversation History:**\n")
	sb.WriteString(formatHistory(history))
	sb.WriteString("\n- **Required Output Language:** ")
	sb.WriteString(outputLanguage(lang))
	sb.WriteString("\n\n**Your Response (MUST be a single, valid JSON object):**\n")
	sb.WriteString(`{
  "thought_process": "string | Explain your reasoning. Did you use the knowledge base or general knowledge? Why?",
  "response_text": "string | The final, natural language response for the user, following all principles.",
  "confidence_score": "number | From 0.0 to 1.0 based on your confidence."
}`)
	return sb.String()
}

// formatHistory 将对话历史格式化为 "role: text" 行。
func formatHistory(history []model.Turn) string {
	if len(history) == 0 {
		return "(no previous turns)"
	}
	var sb strings.Builder
	for _, t := range history {
		sb.WriteString(t.Role)
		sb.WriteString(": ")
		sb.WriteString(t.Text)
		sb.WriteString("\n")
	}
	return sb.String()
}

// outputLanguage 将语言标签映射为 prompt 中的输出语言指令。
func outputLanguage(lang string) string {
	switch lang {
	case model.LangHindi:
		return "Hindi or Hinglish"
	case model.LangMarathi:
		return "Marathi"
	default:
		return "English"
	}
}

// parseReply 将模型原始输出解析为结构化回复。
// 解析策略为"先严格后宽松"：
//  1. 整体严格 JSON 解码；
//  2. 失败则做括号配平提取嵌入的首个 JSON 对象再解码；
//  3. 仍失败则把全文按纯文本采信，置信度取默认低值。
//
// 输出为空白时返回 false。
func parseReply(raw string) (model.GenerationReply, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return model.GenerationReply{}, false
	}

	if reply, ok := decodeReplyObject(trimmed); ok {
		return reply, true
	}
	if obj, ok := extractJSONObject(trimmed); ok {
		if reply, ok := decodeReplyObject(obj); ok {
			return reply, true
		}
	}

	return model.GenerationReply{
		ResponseText:    trimmed,
		ConfidenceScore: freeTextConfidence,
	}, true
}

// decodeReplyObject 解码一个候选 JSON 对象并校验字段类型。
// response_text 必须是非空字符串；confidence_score 接受数字或数字字符串，
// 解析后钳制到 [0,1]，缺失或类型不符时取默认低置信度。
func decodeReplyObject(s string) (model.GenerationReply, bool) {
	dec := json.NewDecoder(strings.NewReader(s))
	var fields map[string]interface{}
	if err := dec.Decode(&fields); err != nil {
		return model.GenerationReply{}, false
	}
	// 对象之后不允许有其他内容，否则不算一次严格解码
	if _, err := dec.Token(); err != io.EOF {
		return model.GenerationReply{}, false
	}

	text, ok := fields["response_text"].(string)
	if !ok || strings.TrimSpace(text) == "" {
		return model.GenerationReply{}, false
	}

	reply := model.GenerationReply{
		ResponseText:    text,
		ConfidenceScore: freeTextConfidence,
	}
	switch v := fields["confidence_score"].(type) {
	case float64:
		reply.ConfidenceScore = clampConfidence(v)
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			reply.ConfidenceScore = clampConfidence(f)
		}
	}
	if tp, ok := fields["thought_process"].(string); ok {
		reply.ThoughtProcess = tp
	}
	return reply, true
}

func clampConfidence(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// extractJSONObject 从自由文本中提取首个配平的 JSON 对象。
// 括号匹配时跳过字符串字面量与转义字符。
func extractJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
