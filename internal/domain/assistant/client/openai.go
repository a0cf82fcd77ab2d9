package client

import (
	"context"
	"errors"

	"carforum/internal/domain/assistant/model"
	"carforum/internal/pkg/config"

	"github.com/sashabaranov/go-openai"
)

// ChatCompleter 根据完整对话生成下一轮助手回复
type ChatCompleter interface {
	Complete(ctx context.Context, turns []model.Turn) (model.Turn, error)
}

// OpenAICompleter go-openai 实现
type OpenAICompleter struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

func NewOpenAICompleter(cfg config.OpenAIConfig) *OpenAICompleter {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	name := cfg.Model
	if name == "" {
		name = openai.GPT3Dot5Turbo
	}
	return &OpenAICompleter{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       name,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
}

func (c *OpenAICompleter) Complete(ctx context.Context, turns []model.Turn) (model.Turn, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(turns))
	for _, t := range turns {
		messages = append(messages, openai.ChatCompletionMessage{Role: t.Role, Content: t.Content})
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return model.Turn{}, err
	}
	if len(resp.Choices) == 0 {
		return model.Turn{}, errors.New("empty completion")
	}
	return model.Turn{Role: model.RoleAssistant, Content: resp.Choices[0].Message.Content}, nil
}
