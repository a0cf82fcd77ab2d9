package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"carforum/internal/domain/news/model"
)

// Fetcher 按主题获取新闻
type Fetcher interface {
	Everything(ctx context.Context, topic string) ([]model.Article, error)
}

// NewsAPIClient NewsAPI /v2/everything 客户端
type NewsAPIClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

func NewNewsAPIClient(baseURL, apiKey string, timeout time.Duration) *NewsAPIClient {
	if baseURL == "" {
		baseURL = "https://newsapi.org"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &NewsAPIClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiKey:     apiKey,
	}
}

type everythingResponse struct {
	Status   string          `json:"status"`
	Code     string          `json:"code"`
	Message  string          `json:"message"`
	Articles []model.Article `json:"articles"`
}

func (c *NewsAPIClient) Everything(ctx context.Context, topic string) ([]model.Article, error) {
	q := url.Values{}
	q.Set("q", topic)
	q.Set("apiKey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v2/everything?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var body everythingResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode news response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || body.Status != "ok" {
		return nil, fmt.Errorf("newsapi: status %d: %s %s", resp.StatusCode, body.Code, body.Message)
	}
	return body.Articles, nil
}
