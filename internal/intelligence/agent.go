// Package intelligence forwards natural-language questions about the
// loaded dataset to an external LLM agent and relays the textual answer.
// The agent is an opaque capability boundary: nothing here re-implements
// its reasoning, and nothing here can write to the dataset.
package intelligence

import (
	"context"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	openai "github.com/sashabaranov/go-openai"

	"github.com/convolab/convoscope/internal/conv"
)

var (
	// ErrCredential means no API key is configured. It is returned before
	// any network call is attempted.
	ErrCredential = eris.New("OpenAI API key not configured")

	// ErrAgent wraps failures from the external agent: transport errors,
	// refusals, empty completions.
	ErrAgent = eris.New("intelligence agent failure")
)

// Agent answers a question about a dataset.
type Agent interface {
	Answer(ctx context.Context, ds *conv.Dataset, question string) (string, error)
}

// ChatClient is the minimal subset of the OpenAI client the agent needs;
// it is easy to stub in tests.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Config holds agent configuration.
type Config struct {
	APIKey  string // falls back to OPENAI_API_KEY
	BaseURL string // optional override for compatible providers
	Model   string // default gpt-4o
}

const defaultModel = openai.GPT4o

const systemPrompt = `You are a data analyst for a beauty-assistant chatbot team.
You are given a digest of a conversation-log table (columns: thread_id,
timestamp, role, message, region) and a question from a teammate.
Answer concisely using only the digest. If the digest cannot answer the
question, say what additional data would be needed. Never invent numbers.`

// OpenAIAgent implements Agent against the OpenAI chat completion API.
type OpenAIAgent struct {
	client ChatClient
	model  string
}

// NewOpenAIAgent builds an agent from config. A missing API key yields
// ErrCredential without touching the network.
func NewOpenAIAgent(cfg Config) (*OpenAIAgent, error) {
	key := cfg.APIKey
	if key == "" {
		key = os.Getenv("OPENAI_API_KEY")
	}
	if key == "" {
		return nil, ErrCredential
	}

	clientCfg := openai.DefaultConfig(key)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	return &OpenAIAgent{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
	}, nil
}

// Answer sends the digest and question to the model. The call blocks
// until the provider responds or ctx is cancelled; there is no retry.
func (a *OpenAIAgent) Answer(ctx context.Context, ds *conv.Dataset, question string) (string, error) {
	return a.answer(ctx, ds, question, nil)
}

func (a *OpenAIAgent) answer(ctx context.Context, ds *conv.Dataset, question string, history []openai.ChatCompletionMessage) (string, error) {
	msgs := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
		{Role: openai.ChatMessageRoleSystem, Content: "Dataset digest:\n\n" + Digest(ds)},
	}
	msgs = append(msgs, history...)
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: question,
	})

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		Messages:    msgs,
		Temperature: 0,
	})
	if err != nil {
		return "", eris.Wrapf(ErrAgent, "chat completion: %v", err)
	}
	if len(resp.Choices) == 0 {
		return "", eris.Wrap(ErrAgent, "empty completion")
	}

	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" {
		return "", eris.Wrap(ErrAgent, "blank answer")
	}
	return answer, nil
}
