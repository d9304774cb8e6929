package evaluator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	rerrors "github.com/hrygo/retain/internal/errors"
	"github.com/hrygo/retain/internal/profile"
	"github.com/hrygo/retain/internal/sm2"
	"github.com/hrygo/retain/store"
)

// MockChatClient is a mock for ChatClient
type MockChatClient struct {
	mock.Mock
}

func (m *MockChatClient) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(openai.ChatCompletionResponse), args.Error(1)
}

func reply(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content}},
		},
	}
}

var challenge = &store.ChallengeContent{
	Title:       "Reverse a string",
	Description: "Write reverse(s).",
	Language:    store.LanguagePython,
}

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.RequestsPerMinute = 0
	return cfg
}

func TestEvaluator_Session(t *testing.T) {
	ctx := context.Background()
	client := new(MockChatClient)
	client.On("CreateChatCompletion", mock.Anything, mock.MatchedBy(func(req openai.ChatCompletionRequest) bool {
		return len(req.Messages) == 2
	})).Return(reply("Correctness: 1/3\n**Score: 1/3**"), nil).Once()
	client.On("CreateChatCompletion", mock.Anything, mock.MatchedBy(func(req openai.ChatCompletionRequest) bool {
		return len(req.Messages) == 4 && req.Messages[3].Role == openai.ChatMessageRoleUser
	})).Return(reply("You are right. **Score: 2.5/3**"), nil).Once()

	e := NewWithClient(client, testConfig())
	sess := NewSession(7)

	evaluation, err := e.Evaluate(ctx, sess, challenge, "def reverse(s): return s")
	require.NoError(t, err)
	assert.Equal(t, 1.0, evaluation.Grade)
	assert.Contains(t, sess.Messages[1].Content, "def reverse(s): return s")
	assert.Contains(t, sess.Messages[1].Content, "Reverse a string")

	evaluation, err = e.Dispute(ctx, sess, "Strings are immutable in Python.")
	require.NoError(t, err)
	assert.Equal(t, 2.5, evaluation.Grade)

	assert.Equal(t, 2, sess.Iteration)
	assert.Equal(t, 1.0, *sess.FirstGrade)
	assert.Equal(t, 2.5, *sess.Grade)
	assert.Len(t, sess.Messages, 5)

	rating, err := sess.Rating()
	require.NoError(t, err)
	assert.Equal(t, sm2.RatingWrongFamiliar, rating)
	client.AssertExpectations(t)
}

func TestEvaluator_Refactor(t *testing.T) {
	client := new(MockChatClient)
	client.On("CreateChatCompletion", mock.Anything, mock.Anything).Return(reply("**Score: 3/3**"), nil)

	e := NewWithClient(client, testConfig())
	sess := NewSession(1)
	_, err := e.Evaluate(context.Background(), sess, challenge, "v1")
	require.NoError(t, err)
	_, err = e.Refactor(context.Background(), sess, "def reverse(s): return s[::-1]")
	require.NoError(t, err)
	assert.Contains(t, sess.Messages[3].Content, "s[::-1]")
	client.AssertNumberOfCalls(t, "CreateChatCompletion", 2)
}

func TestEvaluator_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("api error", func(t *testing.T) {
		client := new(MockChatClient)
		client.On("CreateChatCompletion", mock.Anything, mock.Anything).
			Return(openai.ChatCompletionResponse{}, errors.New("connection refused"))
		sess := NewSession(1)
		_, err := NewWithClient(client, testConfig()).Evaluate(ctx, sess, challenge, "code")
		assert.True(t, rerrors.IsCode(err, rerrors.ErrCodeEvaluatorUnavailable))
		assert.Len(t, sess.Messages, 1)
		_, err = sess.Rating()
		assert.Error(t, err)
	})

	t.Run("no choices", func(t *testing.T) {
		client := new(MockChatClient)
		client.On("CreateChatCompletion", mock.Anything, mock.Anything).Return(openai.ChatCompletionResponse{}, nil)
		_, err := NewWithClient(client, testConfig()).Evaluate(ctx, NewSession(1), challenge, "code")
		assert.True(t, rerrors.IsCode(err, rerrors.ErrCodeEvaluatorUnavailable))
	})

	t.Run("no grade", func(t *testing.T) {
		client := new(MockChatClient)
		client.On("CreateChatCompletion", mock.Anything, mock.Anything).Return(reply("Looks fine."), nil)
		sess := NewSession(1)
		_, err := NewWithClient(client, testConfig()).Evaluate(ctx, sess, challenge, "code")
		assert.True(t, rerrors.IsCode(err, rerrors.ErrCodeEvaluatorUnavailable))
		assert.True(t, errors.Is(err, ErrNoGrade))
		assert.Nil(t, sess.FirstGrade)
		assert.Len(t, sess.Messages, 1)
	})

	t.Run("rate limited", func(t *testing.T) {
		client := new(MockChatClient)
		client.On("CreateChatCompletion", mock.Anything, mock.Anything).Return(reply("**Score: 2/3**"), nil)
		cfg := testConfig()
		cfg.RequestsPerMinute = 1
		e := NewWithClient(client, cfg)

		_, err := e.Evaluate(ctx, NewSession(1), challenge, "code")
		require.NoError(t, err)

		short, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
		defer cancel()
		_, err = e.Evaluate(short, NewSession(1), challenge, "code")
		assert.True(t, rerrors.IsCode(err, rerrors.ErrCodeEvaluatorUnavailable))
		client.AssertNumberOfCalls(t, "CreateChatCompletion", 1)
	})
}

func TestNew_OpenAICompatibleEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req openai.ChatCompletionRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "glm-4.7", req.Model)
		assert.Equal(t, openai.ChatMessageRoleSystem, req.Messages[0].Role)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(reply("**Score: 3/3**"))
	}))
	defer server.Close()

	e, err := New(&Config{APIKey: "test-key", BaseURL: server.URL, Model: "glm-4.7", Timeout: 5 * time.Second})
	require.NoError(t, err)
	evaluation, err := e.Evaluate(context.Background(), NewSession(1), challenge, "code")
	require.NoError(t, err)
	assert.Equal(t, sm2.RatingPerfect, evaluation.Rating())
}

func TestNew_RequiresKey(t *testing.T) {
	_, err := New(&Config{BaseURL: "default"})
	assert.True(t, rerrors.IsCode(err, rerrors.ErrCodeEvaluatorUnavailable))
}

func TestConfig(t *testing.T) {
	assert.Equal(t, "https://api.z.ai/api/paas/v4", ResolveBaseURL("default"))
	assert.Equal(t, "https://api.z.ai/api/coding/paas/v4", ResolveBaseURL("coding"))
	assert.Equal(t, "https://api.z.ai/api/paas/v4", ResolveBaseURL(""))
	assert.Equal(t, "http://localhost:8080/v1", ResolveBaseURL("http://localhost:8080/v1"))

	cfg := ConfigFromProfile(&profile.Profile{
		EvaluatorAPIKey:  "k",
		EvaluatorBaseURL: "coding",
		EvaluatorTimeout: 5 * time.Second,
	})
	assert.Equal(t, "k", cfg.APIKey)
	assert.Equal(t, "coding", cfg.BaseURL)
	assert.Equal(t, "glm-4.7", cfg.Model)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
}
