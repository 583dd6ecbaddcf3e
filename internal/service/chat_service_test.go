package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"alienx-go/internal/model"
)

// fakeGenClient 记录收到的 prompt 并返回预设的输出。
type fakeGenClient struct {
	lastPrompt string
	output     string
	err        error
}

func (f *fakeGenClient) Generate(_ context.Context, prompt string) (string, error) {
	f.lastPrompt = prompt
	return f.output, f.err
}

func TestSynthesizeStrictJSON(t *testing.T) {
	gen := &fakeGenClient{output: `{"thought_process": "used the knowledge base", "response_text": "Sure, escrow holds your funds.", "confidence_score": 0.9}`}
	svc := NewChatService(gen)

	reply, err := svc.Synthesize(context.Background(), "how does escrow work", nil, nil, model.LangEnglish)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if reply.ResponseText != "Sure, escrow holds your funds." {
		t.Errorf("unexpected response text: %q", reply.ResponseText)
	}
	if reply.ConfidenceScore != 0.9 {
		t.Errorf("unexpected confidence: %v", reply.ConfidenceScore)
	}
	if reply.ThoughtProcess != "used the knowledge base" {
		t.Errorf("unexpected thought process: %q", reply.ThoughtProcess)
	}
}

func TestSynthesizeExtractsEmbeddedJSON(t *testing.T) {
	gen := &fakeGenClient{output: "Here is my answer:\n```json\n{\"response_text\": \"It looks like fees are 2 percent.\", \"confidence_score\": \"0.8\"}\n```"}
	svc := NewChatService(gen)

	reply, err := svc.Synthesize(context.Background(), "fees", nil, nil, model.LangEnglish)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if reply.ResponseText != "It looks like fees are 2 percent." {
		t.Errorf("unexpected response text: %q", reply.ResponseText)
	}
	// 数字字符串形式的置信度同样被接受
	if reply.ConfidenceScore != 0.8 {
		t.Errorf("unexpected confidence: %v", reply.ConfidenceScore)
	}
}

func TestSynthesizeFreeTextFallsBackToLowConfidence(t *testing.T) {
	gen := &fakeGenClient{output: "Sure, I can help with that. Escrow protects investors."}
	svc := NewChatService(gen)

	reply, err := svc.Synthesize(context.Background(), "escrow", nil, nil, model.LangEnglish)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if reply.ResponseText != gen.output {
		t.Errorf("free text should be returned verbatim, got %q", reply.ResponseText)
	}
	if reply.ConfidenceScore != freeTextConfidence {
		t.Errorf("expected confidence %v, got %v", freeTextConfidence, reply.ConfidenceScore)
	}
}

func TestSynthesizeGenerationFailure(t *testing.T) {
	gen := &fakeGenClient{err: errors.New("upstream down")}
	svc := NewChatService(gen)

	reply, err := svc.Synthesize(context.Background(), "escrow", nil, nil, model.LangEnglish)
	if err == nil {
		t.Fatal("expected an error on generation failure")
	}
	if reply.ResponseText != fallbackResponseText {
		t.Errorf("expected the fallback response, got %q", reply.ResponseText)
	}
	if reply.ConfidenceScore != 0 {
		t.Errorf("fallback confidence should be 0, got %v", reply.ConfidenceScore)
	}
}

func TestSynthesizeEmptyOutput(t *testing.T) {
	gen := &fakeGenClient{output: "   \n"}
	svc := NewChatService(gen)

	reply, err := svc.Synthesize(context.Background(), "escrow", nil, nil, model.LangEnglish)
	if err == nil {
		t.Fatal("expected an error on empty output")
	}
	if reply.ResponseText != fallbackResponseText {
		t.Errorf("expected the fallback response, got %q", reply.ResponseText)
	}
}

func TestSynthesizePromptContents(t *testing.T) {
	gen := &fakeGenClient{output: `{"response_text": "ok", "confidence_score": 1.0}`}
	svc := NewChatService(gen)

	retrieved := &model.Article{Question: "What is escrow?", Answer: "Escrow holds funds."}
	history := []model.Turn{
		{Role: model.RoleUser, Text: "hello"},
		{Role: model.RoleAssistant, Text: "hi there"},
	}
	if _, err := svc.Synthesize(context.Background(), "how does escrow work", retrieved, history, model.LangHindi); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}

	for _, want := range []string{
		"ALIENX",
		`"how does escrow work"`,
		"What is escrow?",
		"user: hello",
		"assistant: hi there",
		"Hindi or Hinglish",
		"confidence_score",
	} {
		if !strings.Contains(gen.lastPrompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestSynthesizeEmptyRetrievalAndHistory(t *testing.T) {
	gen := &fakeGenClient{output: `{"response_text": "ok", "confidence_score": 1.0}`}
	svc := NewChatService(gen)

	if _, err := svc.Synthesize(context.Background(), "q", nil, nil, model.LangEnglish); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if !strings.Contains(gen.lastPrompt, "[]") {
		t.Error("prompt should serialize empty retrieval as []")
	}
	if !strings.Contains(gen.lastPrompt, "(no previous turns)") {
		t.Error("prompt should mark an empty history")
	}
	if !strings.Contains(gen.lastPrompt, "English") {
		t.Error("prompt should direct English output")
	}
}

func TestParseReplyClampsConfidence(t *testing.T) {
	cases := []struct {
		raw  string
		want float64
	}{
		{`{"response_text": "ok", "confidence_score": 1.7}`, 1.0},
		{`{"response_text": "ok", "confidence_score": -0.3}`, 0.0},
		{`{"response_text": "ok"}`, freeTextConfidence},
		{`{"response_text": "ok", "confidence_score": true}`, freeTextConfidence},
	}
	for _, c := range cases {
		reply, ok := parseReply(c.raw)
		if !ok {
			t.Fatalf("parseReply(%q) failed", c.raw)
		}
		if reply.ConfidenceScore != c.want {
			t.Errorf("parseReply(%q): confidence = %v, want %v", c.raw, reply.ConfidenceScore, c.want)
		}
	}
}

func TestParseReplyRejectsBlankResponseText(t *testing.T) {
	// response_text 为空白时不算有效 JSON 回复，整体按纯文本采信
	reply, ok := parseReply(`{"response_text": "  ", "confidence_score": 0.9}`)
	if !ok {
		t.Fatal("parseReply should fall back to free text")
	}
	if reply.ConfidenceScore != freeTextConfidence {
		t.Errorf("expected free text confidence, got %v", reply.ConfidenceScore)
	}
}
