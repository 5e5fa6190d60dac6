package artjob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ImageGenerator は画像生成APIのインターフェース。
// プロンプトから画像を生成し、生成画像のURLを返す。
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ImageAPIConfig はOpenAI互換の画像生成エンドポイントの設定。
type ImageAPIConfig struct {
	BaseURL string
	Model   string
	Token   string
	Timeout time.Duration
}

// ImageAPIClient は/v1/images/generationsを呼び出すImageGeneratorの実装。
type ImageAPIClient struct {
	config     ImageAPIConfig
	httpClient *http.Client
}

// NewImageAPIClient はImageAPIClientの新しいインスタンスを生成する。
func NewImageAPIClient(config ImageAPIConfig) *ImageAPIClient {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &ImageAPIClient{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
	}
}

var _ ImageGenerator = (*ImageAPIClient)(nil)

// Generate はプロンプトから画像を1枚生成し、そのURLを返す。
func (c *ImageAPIClient) Generate(ctx context.Context, prompt string) (string, error) {
	payload := map[string]interface{}{
		"model":  c.config.Model,
		"prompt": prompt,
		"n":      1,
		"size":   "1024x576",
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.config.BaseURL+"/v1/images/generations", bytes.NewReader(payloadBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("API error (%d): %s", resp.StatusCode, string(body))
	}

	var result struct {
		Data []struct {
			URL string `json:"url"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(result.Data) == 0 || result.Data[0].URL == "" {
		return "", fmt.Errorf("no image was generated")
	}

	return result.Data[0].URL, nil
}
