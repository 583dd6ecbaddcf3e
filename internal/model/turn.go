package model

// 对话角色。
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn 代表对话中的一条消息（用户或助手）。
type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// GenerationReply 是从生成模型输出解析得到的结构化回复。
// ThoughtProcess 仅用于诊断，不会进入对话上下文。
type GenerationReply struct {
	ResponseText    string  `json:"response_text"`
	ConfidenceScore float64 `json:"confidence_score"`
	ThoughtProcess  string  `json:"thought_process,omitempty"`
}

// 支持的语言标签。不在集合内的语言一律按英语处理。
const (
	LangEnglish = "en"
	LangHindi   = "hi"
	LangMarathi = "mr"
)

// SupportedLanguage 判断语言标签是否在支持的集合内。
func SupportedLanguage(lang string) bool {
	switch lang {
	case LangEnglish, LangHindi, LangMarathi:
		return true
	}
	return false
}

// SpeechCode 返回语言对应的 TTS 语言代码。
func SpeechCode(lang string) string {
	switch lang {
	case LangHindi:
		return "hi-IN"
	case LangMarathi:
		return "mr-IN"
	default:
		return "en-US"
	}
}
