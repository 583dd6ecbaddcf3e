package service

import (
	"context"
	"errors"
	"strings"

	"alienx-go/internal/model"
	"alienx-go/pkg/log"
	"alienx-go/pkg/translate"

	"github.com/pemistahl/lingua-go"
)

// LanguageService 定义了语言检测与归一化的接口。
// 翻译在任何故障下都直通原文（fail open）：翻译质量可以降级，可用性不降级。
type LanguageService interface {
	// Resolve 确定一轮输入的语言：调用方提供的受支持标签优先，否则统计检测。
	Resolve(text, hint string) string
	// Detect 对文本做统计语言识别，受支持集合之外一律返回英语。
	Detect(text string) string
	// ToEnglish 将非英语输入翻译为英语；语言对不可用或翻译失败时直通原文。
	ToEnglish(ctx context.Context, text, lang string) string
	// BackTranslate 在生成输出仍是英语时将其回译为用户语言；失败时直通。
	BackTranslate(ctx context.Context, text, lang string) string
}

type languageService struct {
	detector   lingua.LanguageDetector
	translator translate.Client
}

// NewLanguageService 创建一个新的 LanguageService。
// 检测器只在受支持的语言集合内判别，降低近缘语言的误判面。
func NewLanguageService(translator translate.Client) LanguageService {
	detector := lingua.NewLanguageDetectorBuilder().
		FromLanguages(lingua.English, lingua.Hindi, lingua.Marathi).
		Build()
	return &languageService{
		detector:   detector,
		translator: translator,
	}
}

// NormalizeTag 将 BCP-47 风格的标签（如 "hi-IN"）归一化为受支持的短标签。
// 不受支持或无法识别的标签返回空字符串。
func NormalizeTag(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		return ""
	}
	if i := strings.IndexAny(tag, "-_"); i > 0 {
		tag = tag[:i]
	}
	if model.SupportedLanguage(tag) {
		return tag
	}
	return ""
}

// Resolve 确定输入语言。策略：受支持的显式标签 > 统计检测 > 英语。
func (s *languageService) Resolve(text, hint string) string {
	if lang := NormalizeTag(hint); lang != "" {
		return lang
	}
	return s.Detect(text)
}

// Detect 对文本做语言识别。识别失败或结果在支持集合外时按英语处理。
func (s *languageService) Detect(text string) string {
	if strings.TrimSpace(text) == "" {
		return model.LangEnglish
	}
	detected, ok := s.detector.DetectLanguageOf(text)
	if !ok {
		return model.LangEnglish
	}
	switch detected {
	case lingua.Hindi:
		return model.LangHindi
	case lingua.Marathi:
		return model.LangMarathi
	default:
		return model.LangEnglish
	}
}

// ToEnglish 将输入归一化为英语，供检索与生成使用。
func (s *languageService) ToEnglish(ctx context.Context, text, lang string) string {
	if lang == model.LangEnglish {
		return text
	}
	translated, err := s.translator.Translate(ctx, text, lang, model.LangEnglish)
	if err != nil {
		if !errors.Is(err, translate.ErrPairUnavailable) {
			log.Warnf("翻译为英语失败，直通原文: lang=%s, error: %v", lang, err)
		}
		return text
	}
	return translated
}

// BackTranslate 在需要时将最终回答回译为用户语言。
// 生成模型通常已按目标语言作答，只有输出仍被识别为英语时才回译。
func (s *languageService) BackTranslate(ctx context.Context, text, lang string) string {
	if lang == model.LangEnglish {
		return text
	}
	if s.Detect(text) != model.LangEnglish {
		return text
	}
	translated, err := s.translator.Translate(ctx, text, model.LangEnglish, lang)
	if err != nil {
		if !errors.Is(err, translate.ErrPairUnavailable) {
			log.Warnf("回答回译失败，直通英文回答: lang=%s, error: %v", lang, err)
		}
		return text
	}
	return translated
}
