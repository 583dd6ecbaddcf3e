// Package translate 提供了翻译服务的客户端。
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"alienx-go/internal/config"
	"alienx-go/pkg/log"
)

// ErrPairUnavailable 表示请求的语言对没有部署对应的翻译模型。
var ErrPairUnavailable = errors.New("translation pair unavailable")

// Client 定义了翻译客户端的接口。
type Client interface {
	// Translate 将文本从 source 语言翻译为 target 语言（如 "hi" → "en"）。
	Translate(ctx context.Context, text, source, target string) (string, error)
}

type httpClient struct {
	cfg    config.TranslateConfig
	client *http.Client
	pairs  map[string]bool
}

// NewClient 根据配置创建一个新的翻译客户端。
func NewClient(cfg config.TranslateConfig) Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	pairs := make(map[string]bool, len(cfg.Pairs))
	for _, p := range cfg.Pairs {
		pairs[p] = true
	}
	return &httpClient{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		pairs:  pairs,
	}
}

type translateRequest struct {
	Text   string `json:"text"`
	Source string `json:"source"`
	Target string `json:"target"`
}

type translateResponse struct {
	TranslatedText string `json:"translated_text"`
}

// Translate 调用翻译服务。语言对不可用时返回 ErrPairUnavailable，
// 调用方应将其处理为直通（fail open）。瞬时故障重试一次。
func (c *httpClient) Translate(ctx context.Context, text, source, target string) (string, error) {
	if !c.pairs[source+"-"+target] {
		return "", fmt.Errorf("%w: %s-%s", ErrPairUnavailable, source, target)
	}

	reqBytes, err := json.Marshal(translateRequest{Text: text, Source: source, Target: target})
	if err != nil {
		return "", fmt.Errorf("failed to marshal translate request: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= 2; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(200 * time.Millisecond):
			}
			log.Warnf("[TranslateClient] 重试翻译请求: %s-%s", source, target)
		}

		translated, retryable, err := c.doTranslate(ctx, reqBytes)
		if err == nil {
			return translated, nil
		}
		lastErr = err
		if !retryable {
			return "", err
		}
	}
	return "", lastErr
}

func (c *httpClient) doTranslate(ctx context.Context, reqBytes []byte) (string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", c.cfg.BaseURL+"/translate", bytes.NewReader(reqBytes))
	if err != nil {
		return "", false, fmt.Errorf("failed to create translate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", false, ctx.Err()
		}
		return "", true, fmt.Errorf("failed to call translate api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		// 服务端未部署该语言对
		return "", false, ErrPairUnavailable
	}
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("translate api returned non-200 status: %s", resp.Status)
		return "", resp.StatusCode >= http.StatusInternalServerError, err
	}

	var translateResp translateResponse
	if err := json.NewDecoder(resp.Body).Decode(&translateResp); err != nil {
		return "", false, fmt.Errorf("failed to decode translate response: %w", err)
	}
	if translateResp.TranslatedText == "" {
		return "", false, fmt.Errorf("received empty translation from api")
	}
	return translateResp.TranslatedText, false, nil
}
