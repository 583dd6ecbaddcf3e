// Package asr 提供了语音识别服务的客户端。
package asr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"alienx-go/internal/config"
)

// ErrUnintelligible 表示识别服务无法从音频中得到可用的文本。
// 这是一个正常的业务结果，而非系统故障。
var ErrUnintelligible = errors.New("audio unintelligible")

// Client 定义了语音识别客户端的接口。
type Client interface {
	// Transcribe 上传一段音频并返回识别出的文本。
	Transcribe(ctx context.Context, audio io.Reader, contentType string) (string, error)
}

type httpClient struct {
	cfg    config.ASRConfig
	client *http.Client
}

// NewClient 根据配置创建一个新的语音识别客户端。
func NewClient(cfg config.ASRConfig) Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &httpClient{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

type recognizeResponse struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
}

// Transcribe 调用识别服务。识别不出内容（422、空文本或置信度过低）
// 时返回 ErrUnintelligible。
func (c *httpClient) Transcribe(ctx context.Context, audio io.Reader, contentType string) (string, error) {
	endpoint := c.cfg.BaseURL + "/recognize"
	if c.cfg.Language != "" {
		endpoint += "?language=" + url.QueryEscape(c.cfg.Language)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, audio)
	if err != nil {
		return "", fmt.Errorf("failed to create recognize request: %w", err)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call recognize api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnprocessableEntity {
		return "", ErrUnintelligible
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("recognize api returned non-200 status: %s, body: %s", resp.Status, string(body))
	}

	var recResp recognizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&recResp); err != nil {
		return "", fmt.Errorf("failed to decode recognize response: %w", err)
	}

	transcript := strings.TrimSpace(recResp.Transcript)
	if transcript == "" {
		return "", ErrUnintelligible
	}
	if c.cfg.MinConfidence > 0 && recResp.Confidence > 0 && recResp.Confidence < c.cfg.MinConfidence {
		return "", ErrUnintelligible
	}
	return transcript, nil
}
