package usecase

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"followup-agent/internal/domain"
	"followup-agent/internal/followup"
)

const (
	defaultMaxHistory  = 20
	defaultMaxQueryLen = 300

	MessageGenerated  = "Follow-up questions generated."
	MessageNotNeeded  = "No follow-up needed."
	MessageGenFailure = "Sorry, I couldn't generate follow-up questions at this time."
)

type FollowUpRunner interface {
	Run(ctx context.Context, state domain.State) (domain.FollowUpResult, error)
}

type TurnStore interface {
	GetConversationTurnCount(ctx context.Context, conversationID string) (int, error)
	GetHistory(ctx context.Context, conversationID string, limit int) ([]domain.Message, error)
	SaveCompletedTurn(ctx context.Context, conversationID string, turn domain.CompletedTurn, turns int) error
}

// FollowUpService generates follow-up questions for one completed agent turn
// and records the turn. A nil store runs statelessly: history comes only from
// the request and nothing is persisted.
type FollowUpService struct {
	runner         FollowUpRunner
	store          TurnStore
	maxHistory     int
	maxQueryLength int
	logger         *zap.Logger
}

type GenerateInput struct {
	Query          string
	ConversationID string
	AgentType      string
	AgentResponse  string
	Intent         *string
	// History, when non-nil, replaces the stored conversation history.
	History   []domain.ConversationTurn
	Fragments map[string]any
}

type GenerateOutput struct {
	ConversationID string
	Result         domain.FollowUpResult
	FollowUpNeeded bool
	Message        string
}

type Option func(*FollowUpService)

func WithLogger(l *zap.Logger) Option {
	return func(s *FollowUpService) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewFollowUpService(runner FollowUpRunner, store TurnStore, maxHistory, maxQueryLength int, opts ...Option) (*FollowUpService, error) {
	if runner == nil {
		return nil, errors.New("usecase: follow-up runner must not be nil")
	}
	if maxHistory <= 0 {
		maxHistory = defaultMaxHistory
	}
	if maxQueryLength <= 0 {
		maxQueryLength = defaultMaxQueryLen
	}
	s := &FollowUpService{
		runner:         runner,
		store:          store,
		maxHistory:     maxHistory,
		maxQueryLength: maxQueryLength,
		logger:         zap.L(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *FollowUpService) Generate(ctx context.Context, in GenerateInput) (GenerateOutput, error) {
	query := strings.TrimSpace(in.Query)
	if query == "" {
		return GenerateOutput{}, newError(ErrorInvalidInput, "empty_query", nil)
	}
	if utf8.RuneCountInString(query) > s.maxQueryLength {
		return GenerateOutput{}, newError(ErrorInvalidInput, "query_too_long", nil)
	}

	provided := strings.TrimSpace(in.ConversationID)
	convID := provided
	if convID == "" {
		convID = newUUID()
	}
	log := s.logger.With(zap.String("conversation_id", convID))

	history := in.History
	if history == nil && provided != "" && s.store != nil {
		stored, err := s.store.GetHistory(ctx, convID, s.maxHistory)
		if err != nil {
			return GenerateOutput{}, newError(ErrorInternal, "dynamodb_history_error", err)
		}
		history = historyTurns(stored)
	}

	agentType := followup.NormalizeAgentType(in.AgentType)
	res, err := s.runner.Run(ctx, domain.State{
		UserQuery:     query,
		History:       history,
		Intent:        in.Intent,
		AgentType:     agentType,
		AgentResponse: in.AgentResponse,
		Fragments:     in.Fragments,
	})
	if err != nil {
		return GenerateOutput{}, newError(ErrorInternal, "pipeline_error", err)
	}
	if res.FailedStage != "" {
		log.Info("follow-up primary path failed",
			zap.String("failed_stage", res.FailedStage),
			zap.String("source", res.Source),
		)
	}

	if s.store != nil {
		turns := 0
		if provided != "" {
			turns, err = s.store.GetConversationTurnCount(ctx, convID)
			if err != nil {
				return GenerateOutput{}, newError(ErrorInternal, "dynamodb_turn_count_error", err)
			}
		}
		turn := domain.CompletedTurn{
			Query:             query,
			Answer:            strings.TrimSpace(in.AgentResponse),
			AgentType:         agentType,
			FollowUpQuestions: res.Questions,
		}
		if err := s.store.SaveCompletedTurn(ctx, convID, turn, turns+1); err != nil {
			return GenerateOutput{}, newError(ErrorInternal, "dynamodb_write_error", err)
		}
	}

	out := GenerateOutput{
		ConversationID: convID,
		Result:         res,
		FollowUpNeeded: len(res.Questions) > 0,
	}
	switch {
	case res.NoFollowUpNeeded:
		out.Message = MessageNotNeeded
	case out.FollowUpNeeded:
		out.Message = MessageGenerated
	default:
		out.Message = MessageGenFailure
	}
	return out, nil
}

// historyTurns expands stored messages into alternating user and assistant
// turns. Follow-ups ride on the assistant turn they followed.
func historyTurns(msgs []domain.Message) []domain.ConversationTurn {
	turns := make([]domain.ConversationTurn, 0, 2*len(msgs))
	for _, m := range msgs {
		turns = append(turns, domain.ConversationTurn{Role: domain.RoleUser, Content: m.Text})
		if m.Answer != "" || len(m.FollowUpQuestions) > 0 {
			turns = append(turns, domain.ConversationTurn{
				Role:              domain.RoleAssistant,
				Content:           m.Answer,
				FollowUpQuestions: m.FollowUpQuestions,
			})
		}
	}
	return turns
}

var newUUID = func() string {
	return uuid.NewString()
}
