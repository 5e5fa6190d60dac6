// Package suggest は生成AIによるプロジェクト企画・タスク分解・コラボレーター提案機能を提供する。
package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Chatter はチャット補完APIのインターフェース。
// Ollama互換APIを抽象化してテスタビリティを向上させる。
type Chatter interface {
	Chat(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// OllamaConfig はOllama互換エンドポイントの設定。
type OllamaConfig struct {
	BaseURL string // 例: http://localhost:11434
	Model   string // 例: qwen3
	Token   string // Ollama Cloud用のBearerトークン（空の場合は認証なし）
	Timeout time.Duration
}

// OllamaClient はOllama REST APIを使用するChatterの実装。
type OllamaClient struct {
	config     OllamaConfig
	httpClient *http.Client
}

// NewOllamaClient はOllamaClientの新しいインスタンスを生成する。
func NewOllamaClient(config OllamaConfig) *OllamaClient {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &OllamaClient{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
	}
}

var _ Chatter = (*OllamaClient)(nil)

// Chat はシステムプロンプトとユーザープロンプトを送信し、完全な応答を返す。
func (c *OllamaClient) Chat(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	payload := map[string]interface{}{
		"model": c.config.Model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": userPrompt},
		},
		"stream": false,
	}

	body, err := c.post(ctx, "/api/chat", payload)
	if err != nil {
		return "", fmt.Errorf("chat request failed: %w", err)
	}

	var resp struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to decode chat response: %w", err)
	}

	return resp.Message.Content, nil
}

// post はOllamaエンドポイントへのPOSTリクエストを送信する。
func (c *OllamaClient) post(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+path, bytes.NewReader(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(body))
	}

	return io.ReadAll(resp.Body)
}
