package intelligence

import (
	"context"

	openai "github.com/sashabaranov/go-openai"

	"github.com/convolab/convoscope/internal/conv"
)

// SuggestedQuestions are shown to users as starting points.
var SuggestedQuestions = []string{
	"How many conversations happened this month?",
	"What are the most common user questions?",
	"Show me conversation volume by region",
	"What's the average conversation length?",
	"Which days have the highest user activity?",
	"What percentage of conversations are from each region?",
	"Show me the busiest hour of the day",
	"What brands are mentioned most in the messages?",
}

// Turn is one entry of the chat history.
type Turn struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Session keeps a multi-turn conversation with the agent over one
// dataset. It is per-user state, created at login and discarded after.
type Session struct {
	agent   *OpenAIAgent
	ds      *conv.Dataset
	history []Turn
}

// NewSession starts a chat session over the dataset.
func NewSession(agent *OpenAIAgent, ds *conv.Dataset) *Session {
	return &Session{agent: agent, ds: ds}
}

// Ask sends the question with prior turns as context and records both
// sides in the history. Failed questions are not recorded.
func (s *Session) Ask(ctx context.Context, question string) (string, error) {
	history := make([]openai.ChatCompletionMessage, 0, len(s.history))
	for _, t := range s.history {
		role := openai.ChatMessageRoleUser
		if t.Role == "assistant" {
			role = openai.ChatMessageRoleAssistant
		}
		history = append(history, openai.ChatCompletionMessage{Role: role, Content: t.Content})
	}

	answer, err := s.agent.answer(ctx, s.ds, question, history)
	if err != nil {
		return "", err
	}

	s.history = append(s.history,
		Turn{Role: "user", Content: question},
		Turn{Role: "assistant", Content: answer},
	)
	return answer, nil
}

// History returns the recorded turns, oldest first.
func (s *Session) History() []Turn {
	return s.history
}

// Clear drops the chat history while keeping the dataset binding.
func (s *Session) Clear() {
	s.history = nil
}
