package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"followup-agent/internal/domain"
	"followup-agent/internal/usecase"
)

const correlationHeader = "X-Correlation-Id"

// responseKeys are tried in order when the primary agent's response arrives
// as an object rather than a plain string.
var responseKeys = []string{"message", "content", "response"}

type UseCase interface {
	Generate(ctx context.Context, in usecase.GenerateInput) (usecase.GenerateOutput, error)
}

type Handler struct {
	uc     UseCase
	logger *zap.Logger
}

func NewHandler(uc UseCase) (*Handler, error) {
	if uc == nil {
		return nil, errors.New("handler: usecase must not be nil")
	}
	return &Handler{uc: uc, logger: zap.L()}, nil
}

type generateRequest struct {
	Query           string                    `json:"query"`
	ConversationID  string                    `json:"conversationId"`
	AgentType       string                    `json:"agentType"`
	AgentResponse   json.RawMessage           `json:"agentResponse"`
	Intent          *string                   `json:"intent"`
	History         []domain.ConversationTurn `json:"history"`
	FundData        any                       `json:"fundData"`
	PortfolioData   any                       `json:"portfolioData"`
	UserProfile     any                       `json:"userProfile"`
	UserPreferences any                       `json:"userPreferences"`
	InvestmentGoals any                       `json:"investmentGoals"`
}

type generateResponse struct {
	FollowUpQuestions  []string `json:"follow_up_questions"`
	FollowUpReasoning  string   `json:"follow_up_reasoning"`
	FollowUpConfidence float64  `json:"follow_up_confidence"`
	NoFollowUpNeeded   bool     `json:"no_follow_up_needed"`
	FollowUpNeeded     bool     `json:"follow_up_needed"`
	Message            string   `json:"message"`
	ConversationID     string   `json:"conversationId"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	correlationID := headerValue(event.Headers, correlationHeader)
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	log := h.logger.With(zap.String("correlation_id", correlationID))

	body := event.Body
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return errorJSON(http.StatusBadRequest, usecase.ErrorInvalidInput, "body is not valid base64", correlationID), nil
		}
		body = string(decoded)
	}

	var req generateRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		return errorJSON(http.StatusBadRequest, usecase.ErrorInvalidInput, "body must be a JSON object", correlationID), nil
	}

	out, err := h.uc.Generate(ctx, req.toInput())
	if err != nil {
		var ue *usecase.Error
		if errors.As(err, &ue) && ue.Code == usecase.ErrorInvalidInput {
			log.Info("rejected follow-up request", zap.String("reason", ue.Reason))
			return errorJSON(http.StatusBadRequest, ue.Code, ue.Reason, correlationID), nil
		}
		log.Error("follow-up generation failed", zap.Error(err))
		return errorJSON(http.StatusInternalServerError, usecase.ErrorInternal, "internal error", correlationID), nil
	}

	questions := out.Result.Questions
	if questions == nil {
		questions = []string{}
	}
	log.Info("follow-up generated",
		zap.String("conversation_id", out.ConversationID),
		zap.Int("questions", len(questions)),
		zap.String("source", out.Result.Source),
	)
	return respondJSON(http.StatusOK, generateResponse{
		FollowUpQuestions:  questions,
		FollowUpReasoning:  out.Result.Reasoning,
		FollowUpConfidence: out.Result.ConfidenceScore,
		NoFollowUpNeeded:   out.Result.NoFollowUpNeeded,
		FollowUpNeeded:     out.FollowUpNeeded,
		Message:            out.Message,
		ConversationID:     out.ConversationID,
	}, correlationID), nil
}

func (r generateRequest) toInput() usecase.GenerateInput {
	in := usecase.GenerateInput{
		Query:          r.Query,
		ConversationID: r.ConversationID,
		AgentType:      r.AgentType,
		AgentResponse:  extractAgentResponse(r.AgentResponse),
		Intent:         r.Intent,
		History:        r.History,
	}
	fragments := map[string]any{
		"fund_data":        r.FundData,
		"portfolio_data":   r.PortfolioData,
		"user_profile":     r.UserProfile,
		"user_preferences": r.UserPreferences,
		"investment_goals": r.InvestmentGoals,
	}
	for k, v := range fragments {
		if v == nil {
			delete(fragments, k)
		}
	}
	if len(fragments) > 0 {
		in.Fragments = fragments
	}
	return in
}

// extractAgentResponse accepts a plain string or an object carrying the text
// under one of responseKeys. Anything else is passed through as raw JSON.
func extractAgentResponse(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	v := gjson.ParseBytes(raw)
	switch {
	case v.Type == gjson.String:
		return v.String()
	case v.Type == gjson.Null:
		return ""
	case v.IsObject():
		for _, key := range responseKeys {
			if f := v.Get(key); f.Type == gjson.String {
				return f.String()
			}
		}
	}
	return v.Raw
}

func headerValue(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func respondJSON(status int, payload any, correlationID string) events.APIGatewayProxyResponse {
	body, err := json.Marshal(payload)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"INTERNAL_ERROR","message":"internal error"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":    "application/json",
			correlationHeader: correlationID,
		},
		Body: string(body),
	}
}

func errorJSON(status int, code usecase.ErrorCode, message, correlationID string) events.APIGatewayProxyResponse {
	return respondJSON(status, errorResponse{Error: string(code), Message: message}, correlationID)
}
