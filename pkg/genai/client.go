// Package genai 提供了生成模型服务的客户端。
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"alienx-go/internal/config"
	"alienx-go/pkg/log"
)

// ErrBlocked 表示请求或输出触发了内容安全阈值。此类失败不应重试。
var ErrBlocked = errors.New("generation blocked by safety settings")

// Client 定义了生成模型客户端的接口。
type Client interface {
	// Generate 以单条 prompt 调用 generateContent 接口，返回模型的原始文本输出。
	Generate(ctx context.Context, prompt string) (string, error)
}

type geminiClient struct {
	cfg    config.GenAIConfig
	client *http.Client
}

// NewClient 根据配置创建一个新的生成模型客户端。
func NewClient(cfg config.GenAIConfig) Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &geminiClient{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	TopP            *float64 `json:"topP,omitempty"`
	TopK            *int     `json:"topK,omitempty"`
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty"`
}

type safetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
	SafetySettings   []safetySetting  `json:"safetySettings"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// 内容安全类别，统一使用配置中的阈值。
var harmCategories = []string{
	"HARM_CATEGORY_HARASSMENT",
	"HARM_CATEGORY_HATE_SPEECH",
	"HARM_CATEGORY_SEXUALLY_EXPLICIT",
	"HARM_CATEGORY_DANGEROUS_CONTENT",
}

// Generate 调用生成模型服务并返回原始文本输出。
// 仅对瞬时故障（网络错误、5xx）做有限重试；4xx 与安全拦截立即返回。
func (c *geminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	reqBytes, err := json.Marshal(c.buildRequest(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to marshal generate request: %w", err)
	}

	attempts := c.cfg.Retry.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	backoff := time.Duration(c.cfg.Retry.BackoffMillis) * time.Millisecond
	if backoff <= 0 {
		backoff = 300 * time.Millisecond
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			// 短退避加抖动，避免对故障服务打出同步重试
			jitter := time.Duration(rand.Int63n(int64(backoff)))
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff + jitter):
			}
			log.Warnf("[GenAIClient] 第 %d 次重试生成请求", attempt)
		}

		text, retryable, err := c.doGenerate(ctx, reqBytes)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !retryable {
			return "", err
		}
	}
	return "", lastErr
}

func (c *geminiClient) buildRequest(prompt string) generateRequest {
	gen := generationConfig{}
	temperature := c.cfg.Generation.Temperature
	if temperature == 0 {
		temperature = 0.75
	}
	gen.Temperature = &temperature

	topP := c.cfg.Generation.TopP
	if topP == 0 {
		topP = 0.95
	}
	gen.TopP = &topP

	topK := c.cfg.Generation.TopK
	if topK == 0 {
		topK = 40
	}
	gen.TopK = &topK

	if c.cfg.Generation.MaxOutputTokens > 0 {
		m := c.cfg.Generation.MaxOutputTokens
		gen.MaxOutputTokens = &m
	}

	threshold := c.cfg.Safety.Threshold
	if threshold == "" {
		threshold = "BLOCK_MEDIUM_AND_ABOVE"
	}
	settings := make([]safetySetting, 0, len(harmCategories))
	for _, category := range harmCategories {
		settings = append(settings, safetySetting{Category: category, Threshold: threshold})
	}

	return generateRequest{
		Contents:         []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: gen,
		SafetySettings:   settings,
	}
}

// doGenerate 执行一次 HTTP 调用。第二个返回值表示该错误是否可重试。
func (c *geminiClient) doGenerate(ctx context.Context, reqBytes []byte) (string, bool, error) {
	url := fmt.Sprintf("%s/models/%s:generateContent", c.cfg.BaseURL, c.cfg.Model)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(reqBytes))
	if err != nil {
		return "", false, fmt.Errorf("failed to create generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		// 上下文取消不重试，网络故障可重试
		if ctx.Err() != nil {
			return "", false, ctx.Err()
		}
		return "", true, fmt.Errorf("failed to call generate api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		err := fmt.Errorf("generate api returned non-200 status: %s, body: %s", resp.Status, string(bodyBytes))
		return "", resp.StatusCode >= http.StatusInternalServerError, err
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", false, fmt.Errorf("failed to decode generate response: %w", err)
	}

	if genResp.PromptFeedback.BlockReason != "" {
		return "", false, fmt.Errorf("%w: %s", ErrBlocked, genResp.PromptFeedback.BlockReason)
	}
	if len(genResp.Candidates) == 0 {
		return "", false, fmt.Errorf("generate api returned no candidates")
	}
	candidate := genResp.Candidates[0]
	if candidate.FinishReason == "SAFETY" {
		return "", false, ErrBlocked
	}

	var sb strings.Builder
	for _, p := range candidate.Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String(), false, nil
}
