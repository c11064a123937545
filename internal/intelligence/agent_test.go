package intelligence

import (
	"context"
	"errors"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convolab/convoscope/internal/conv"
)

// stubClient is a test double for ChatClient.
type stubClient struct {
	reqs []openai.ChatCompletionRequest
	resp openai.ChatCompletionResponse
	err  error
}

func (s *stubClient) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	s.reqs = append(s.reqs, req)
	return s.resp, s.err
}

func completion(text string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: text}},
		},
	}
}

func testDataset() *conv.Dataset {
	return conv.NewDataset([]conv.Message{
		{ThreadID: "t1", Timestamp: time.Date(2025, 7, 9, 14, 0, 0, 0, time.UTC), Role: conv.RoleUser, Text: "best sunscreen?", Region: "AE"},
		{ThreadID: "t1", Timestamp: time.Date(2025, 7, 9, 14, 0, 5, 0, time.UTC), Role: conv.RoleAssistant, Text: "SPF 50, reapply often.", Region: "AE"},
	})
}

func TestNewOpenAIAgentMissingKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	_, err := NewOpenAIAgent(Config{})
	assert.ErrorIs(t, err, ErrCredential)
}

func TestNewOpenAIAgentKeyFromEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	a, err := NewOpenAIAgent(Config{})
	require.NoError(t, err)
	assert.Equal(t, defaultModel, a.model)
}

func TestAnswerSendsDigestAndQuestion(t *testing.T) {
	stub := &stubClient{resp: completion("42 conversations.")}
	a := &OpenAIAgent{client: stub, model: "test-model"}

	answer, err := a.Answer(context.Background(), testDataset(), "How many conversations?")
	require.NoError(t, err)
	assert.Equal(t, "42 conversations.", answer)

	require.Len(t, stub.reqs, 1)
	req := stub.reqs[0]
	assert.Equal(t, "test-model", req.Model)
	require.Len(t, req.Messages, 3)
	assert.Equal(t, openai.ChatMessageRoleSystem, req.Messages[0].Role)
	assert.Contains(t, req.Messages[1].Content, "Rows: 2 messages in 1 threads")
	assert.Equal(t, "How many conversations?", req.Messages[2].Content)
}

func TestAnswerWrapsTransportErrors(t *testing.T) {
	stub := &stubClient{err: errors.New("connection refused")}
	a := &OpenAIAgent{client: stub, model: "m"}

	_, err := a.Answer(context.Background(), testDataset(), "q")
	assert.ErrorIs(t, err, ErrAgent)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestAnswerEmptyCompletion(t *testing.T) {
	stub := &stubClient{resp: openai.ChatCompletionResponse{}}
	a := &OpenAIAgent{client: stub, model: "m"}

	_, err := a.Answer(context.Background(), testDataset(), "q")
	assert.ErrorIs(t, err, ErrAgent)
}

func TestSessionKeepsHistory(t *testing.T) {
	stub := &stubClient{resp: completion("answer one")}
	a := &OpenAIAgent{client: stub, model: "m"}
	sess := NewSession(a, testDataset())

	_, err := sess.Ask(context.Background(), "first question")
	require.NoError(t, err)

	stub.resp = completion("answer two")
	_, err = sess.Ask(context.Background(), "second question")
	require.NoError(t, err)

	require.Len(t, sess.History(), 4)
	// The second request must carry the first exchange as context.
	second := stub.reqs[1]
	var contents []string
	for _, m := range second.Messages {
		contents = append(contents, m.Content)
	}
	assert.Contains(t, contents, "first question")
	assert.Contains(t, contents, "answer one")

	sess.Clear()
	assert.Empty(t, sess.History())
}

func TestSessionDropsFailedTurns(t *testing.T) {
	stub := &stubClient{err: errors.New("boom")}
	a := &OpenAIAgent{client: stub, model: "m"}
	sess := NewSession(a, testDataset())

	_, err := sess.Ask(context.Background(), "q")
	assert.Error(t, err)
	assert.Empty(t, sess.History())
}

func TestDigestEmptyDataset(t *testing.T) {
	d := Digest(conv.NewDataset(nil))
	assert.Contains(t, d, "Rows: 0 messages in 0 threads")
}

func TestDigestAggregates(t *testing.T) {
	d := Digest(testDataset())
	assert.Contains(t, d, "Date span: 2025-07-09 to 2025-07-09")
	assert.Contains(t, d, "user=1 assistant=1")
	assert.Contains(t, d, "AE=1 threads/2 msgs")
}
