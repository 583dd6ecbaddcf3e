package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"alienx-go/internal/service"
	"alienx-go/pkg/asr"
	"alienx-go/pkg/log"

	"github.com/gin-gonic/gin"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	log.Init("error", "console", "")
	os.Exit(m.Run())
}

// stubAssistant 记录收到的参数并返回预设结果。
type stubAssistant struct {
	result service.TurnResult
	err    error

	gotSession string
	gotInput   string
	gotHint    string
	cleared    []string
}

func (s *stubAssistant) HandleTurn(_ context.Context, sessionID, rawInput, langHint string) (service.TurnResult, error) {
	s.gotSession = sessionID
	s.gotInput = rawInput
	s.gotHint = langHint
	if strings.TrimSpace(rawInput) == "" {
		return service.TurnResult{}, service.ErrEmptyInput
	}
	return s.result, s.err
}

func (s *stubAssistant) ClearContext(_ context.Context, sessionID string) error {
	s.cleared = append(s.cleared, sessionID)
	return nil
}

func postJSON(handler gin.HandlerFunc, body string) *httptest.ResponseRecorder {
	r := gin.New()
	r.POST("/process_query", handler)

	req := httptest.NewRequest(http.MethodPost, "/process_query", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func TestProcessQuerySuccess(t *testing.T) {
	assistant := &stubAssistant{result: service.TurnResult{ResponseText: "Sure, I can help.", SpeechLang: "en-US"}}
	handler := NewQueryHandler(assistant)

	w := postJSON(handler.ProcessQuery, `{"transcript": "how does escrow work", "language": "en-US"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["response"] != "Sure, I can help." || body["lang"] != "en-US" {
		t.Errorf("unexpected body: %v", body)
	}
	if assistant.gotInput != "how does escrow work" || assistant.gotHint != "en-US" {
		t.Errorf("unexpected call: input=%q hint=%q", assistant.gotInput, assistant.gotHint)
	}
}

func TestProcessQueryEmptyInput(t *testing.T) {
	handler := NewQueryHandler(&stubAssistant{})

	for _, body := range []string{`{"transcript": ""}`, `{"transcript": "   "}`, `{}`} {
		w := postJSON(handler.ProcessQuery, body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want 400", body, w.Code)
		}
		if got := decodeBody(t, w)["response"]; got != msgNoInput {
			t.Errorf("body %s: response = %q", body, got)
		}
	}
}

func TestProcessQueryMalformedBody(t *testing.T) {
	handler := NewQueryHandler(&stubAssistant{})

	w := postJSON(handler.ProcessQuery, `not json`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if got := decodeBody(t, w)["response"]; got != msgNoInput {
		t.Errorf("response = %q", got)
	}
}

func TestProcessQueryInternalError(t *testing.T) {
	assistant := &stubAssistant{err: errors.New("context store down")}
	handler := NewQueryHandler(assistant)

	w := postJSON(handler.ProcessQuery, `{"transcript": "hello"}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	body := decodeBody(t, w)
	// 原始错误不透出，返回固定文案
	if body["response"] != msgServerError || body["lang"] != "en-US" {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestClearContextAlwaysSucceeds(t *testing.T) {
	assistant := &stubAssistant{}
	handler := NewContextHandler(assistant)

	r := gin.New()
	r.POST("/clear_context", handler.ClearContext)
	req := httptest.NewRequest(http.MethodPost, "/clear_context", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got := decodeBody(t, w)["status"]; got != "Context cleared." {
		t.Errorf("status = %q", got)
	}
	if len(assistant.cleared) != 1 {
		t.Errorf("expected 1 clear call, got %d", len(assistant.cleared))
	}
}

// stubSpeech 返回预设的转写结果。
type stubSpeech struct {
	transcript string
	err        error
}

func (s stubSpeech) Transcribe(_ context.Context, _ []byte, _ string) (string, error) {
	return s.transcript, s.err
}

func postAudio(handler gin.HandlerFunc, withFile bool) *httptest.ResponseRecorder {
	r := gin.New()
	r.POST("/upload_audio", handler)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if withFile {
		part, _ := writer.CreateFormFile("audio_file", "clip.wav")
		part.Write([]byte("fake-audio-bytes"))
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/upload_audio", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestUploadAudioSuccess(t *testing.T) {
	assistant := &stubAssistant{result: service.TurnResult{ResponseText: "Sure.", SpeechLang: "en-US"}}
	handler := NewAudioHandler(stubSpeech{transcript: "how does escrow work"}, assistant)

	w := postAudio(handler.UploadAudio, true)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got := decodeBody(t, w)["response"]; got != "Sure." {
		t.Errorf("response = %q", got)
	}
	if assistant.gotInput != "how does escrow work" {
		t.Errorf("transcript not forwarded, got %q", assistant.gotInput)
	}
}

func TestUploadAudioMissingFile(t *testing.T) {
	handler := NewAudioHandler(stubSpeech{}, &stubAssistant{})

	w := postAudio(handler.UploadAudio, false)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if got := decodeBody(t, w)["response"]; got != msgNoAudioFile {
		t.Errorf("response = %q", got)
	}
}

func TestUploadAudioUnintelligible(t *testing.T) {
	handler := NewAudioHandler(stubSpeech{err: asr.ErrUnintelligible}, &stubAssistant{})

	// 听不清是正常业务结果，返回 200 与固定提示
	w := postAudio(handler.UploadAudio, true)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got := decodeBody(t, w)["response"]; got != msgAudioUnclear {
		t.Errorf("response = %q", got)
	}
}

func TestUploadAudioEmptyTranscript(t *testing.T) {
	handler := NewAudioHandler(stubSpeech{transcript: "   "}, &stubAssistant{})

	w := postAudio(handler.UploadAudio, true)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got := decodeBody(t, w)["response"]; got != msgAudioUnclear {
		t.Errorf("response = %q", got)
	}
}

func TestUploadAudioTranscribeFailure(t *testing.T) {
	handler := NewAudioHandler(stubSpeech{err: errors.New("asr down")}, &stubAssistant{})

	w := postAudio(handler.UploadAudio, true)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if got := decodeBody(t, w)["response"]; got != msgAudioError {
		t.Errorf("response = %q", got)
	}
}
