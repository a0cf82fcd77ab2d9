package service

import (
	"context"
	"strings"

	"carforum/internal/domain/assistant/client"
	"carforum/internal/domain/assistant/model"
	"carforum/internal/domain/assistant/repository"
	"carforum/pkg/errs"
	"carforum/pkg/logger"
	"carforum/pkg/metrics"

	"go.uber.org/zap"
)

// AssistantService 聊天助手
type AssistantService interface {
	Ask(ctx context.Context, sessionID, question string) (*model.Conversation, error)
	History(ctx context.Context, sessionID string) (*model.Conversation, error)
	Clear(ctx context.Context, sessionID string) error
}

type assistantService struct {
	repo      repository.ConversationRepository
	completer client.ChatCompleter
	metrics   *metrics.MetricsCollector
}

func NewAssistantService(repo repository.ConversationRepository, completer client.ChatCompleter, collector *metrics.MetricsCollector) AssistantService {
	return &assistantService{repo: repo, completer: completer, metrics: collector}
}

// Ask 把完整历史连同新问题发给模型。调用失败时不保存任何内容，也不伪造回复。
func (s *assistantService) Ask(ctx context.Context, sessionID, question string) (*model.Conversation, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, errs.Invalid("question", "Question is required")
	}

	history, err := s.repo.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	userTurn := model.Turn{Role: model.RoleUser, Content: question}
	turns := append(history, userTurn)

	answer, err := s.completer.Complete(ctx, turns)
	if err != nil {
		s.metrics.RecordDependencyError("chat")
		logger.Log.Warn("chat completion failed", zap.String("session_id", sessionID), zap.Error(err))
		return nil, errs.Dependency("chat", err)
	}

	if err := s.repo.Append(ctx, sessionID, userTurn, answer); err != nil {
		return nil, err
	}
	return &model.Conversation{SessionID: sessionID, Turns: append(turns, answer)}, nil
}

func (s *assistantService) History(ctx context.Context, sessionID string) (*model.Conversation, error) {
	turns, err := s.repo.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &model.Conversation{SessionID: sessionID, Turns: turns}, nil
}

func (s *assistantService) Clear(ctx context.Context, sessionID string) error {
	return s.repo.Clear(ctx, sessionID)
}
