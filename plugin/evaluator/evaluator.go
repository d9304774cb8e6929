package evaluator

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	rerrors "github.com/hrygo/retain/internal/errors"
	"github.com/hrygo/retain/store"
)

// ChatClient is the part of *openai.Client the evaluator calls.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Evaluator sends challenge solutions to the chat model and parses its grades.
type Evaluator struct {
	client  ChatClient
	config  *Config
	limiter *rate.Limiter
}

// New creates an evaluator talking to the configured endpoint.
func New(cfg *Config) (*Evaluator, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.APIKey == "" {
		return nil, rerrors.EvaluatorUnavailable("evaluator API key is not set (RETAIN_EVALUATOR_API_KEY or ZAI_API_KEY)", nil)
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = ResolveBaseURL(cfg.BaseURL)

	return NewWithClient(openai.NewClientWithConfig(clientConfig), cfg), nil
}

// NewWithClient creates an evaluator over an existing chat client.
func NewWithClient(client ChatClient, cfg *Config) *Evaluator {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}
	return &Evaluator{
		client:  client,
		config:  cfg,
		limiter: limiter,
	}
}

// Evaluate grades a first solution to the challenge.
func (e *Evaluator) Evaluate(ctx context.Context, sess *Session, challenge *store.ChallengeContent, solution string) (*Evaluation, error) {
	sess.addUser(evaluatePrompt(challenge.Title, challenge.Description, solution))
	return e.exchange(ctx, sess)
}

// Dispute asks the model to reconsider its last grade.
func (e *Evaluator) Dispute(ctx context.Context, sess *Session, reason string) (*Evaluation, error) {
	sess.addUser(disputePrompt(reason))
	return e.exchange(ctx, sess)
}

// Refactor submits an improved solution for another evaluation.
func (e *Evaluator) Refactor(ctx context.Context, sess *Session, solution string) (*Evaluation, error) {
	sess.addUser(refactorPrompt(solution))
	return e.exchange(ctx, sess)
}

// exchange sends the conversation and records the parsed reply. On any
// failure the history is left as it was before the pending user message.
func (e *Evaluator) exchange(ctx context.Context, sess *Session) (*Evaluation, error) {
	reply, err := e.chat(ctx, sess.Messages)
	if err != nil {
		sess.dropPending()
		return nil, err
	}

	evaluation, err := ParseEvaluation(reply)
	if err != nil {
		sess.dropPending()
		return nil, rerrors.EvaluatorUnavailable("evaluator reply has no grade", err)
	}
	sess.addAssistant(reply)
	sess.record(evaluation.Grade)
	slog.Debug("challenge evaluated",
		slog.Int("challenge_id", int(sess.ChallengeID)),
		slog.Int("iteration", sess.Iteration),
		slog.Float64("grade", evaluation.Grade))
	return evaluation, nil
}

func (e *Evaluator) chat(ctx context.Context, messages []openai.ChatCompletionMessage) (string, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return "", rerrors.EvaluatorUnavailable("evaluator request was not sent", err)
	}
	if e.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       e.config.Model,
		Messages:    messages,
		Temperature: e.config.Temperature,
	})
	if err != nil {
		slog.Warn("evaluator request failed",
			slog.String("model", e.config.Model),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
			slog.String("error", err.Error()))
		return "", rerrors.EvaluatorUnavailable("evaluator request failed", err)
	}
	if len(resp.Choices) == 0 {
		return "", rerrors.EvaluatorUnavailable("evaluator returned no choices", errors.New("empty response"))
	}
	slog.Debug("evaluator replied",
		slog.String("model", e.config.Model),
		slog.Int("total_tokens", resp.Usage.TotalTokens),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))
	return resp.Choices[0].Message.Content, nil
}
