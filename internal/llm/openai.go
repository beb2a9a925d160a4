// Package llm adapts text-generation backends to the narrow invoke
// contract the pipeline depends on. The pipeline never sees a vendor SDK
// type; swapping backends means swapping this package's constructor.
package llm

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"careline-chatbot/pkg"
)

// OpenAIInvoker calls the OpenAI chat completion API. Model, temperature,
// and credentials are injected at construction; nothing is read from
// ambient process state.
type OpenAIInvoker struct {
	client      *openai.Client
	model       string
	temperature float32
}

// NewOpenAIInvoker constructs an OpenAI-backed invoker. An empty model
// falls back to a modern small default.
func NewOpenAIInvoker(apiKey, model string, temperature float32) *OpenAIInvoker {
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIInvoker{
		client:      openai.NewClient(apiKey),
		model:       model,
		temperature: temperature,
	}
}

// NewOpenAICompatibleInvoker targets any OpenAI-compatible endpoint, for
// self-hosted gateways or test servers.
func NewOpenAICompatibleInvoker(apiKey, baseURL, model string, temperature float32) *OpenAIInvoker {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIInvoker{
		client:      openai.NewClientWithConfig(cfg),
		model:       model,
		temperature: temperature,
	}
}

// Invoke sends the system prompt followed by the conversation history and
// returns the assistant's reply. The system prompt is prepended exactly
// once; the history itself carries no system turns from this service.
func (c *OpenAIInvoker) Invoke(ctx context.Context, systemPrompt string, history []pkg.ChatMessage) (string, error) {
	if c.client == nil {
		return "", errors.New("openai client not initialized")
	}

	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt,
	})
	for _, m := range history {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    apiRole(m.Role),
			Content: m.Text,
		})
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    msgs,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// apiRole maps pipeline roles onto API roles, coercing anything unknown to
// user rather than failing mid-run.
func apiRole(r pkg.Role) string {
	switch r {
	case pkg.RoleSystem:
		return openai.ChatMessageRoleSystem
	case pkg.RoleAssistant:
		return openai.ChatMessageRoleAssistant
	case pkg.RoleUser:
		return openai.ChatMessageRoleUser
	default:
		return openai.ChatMessageRoleUser
	}
}
