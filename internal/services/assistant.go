// Chat assistant client
package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/desertthunder/movli/internal/models"
	"github.com/desertthunder/movli/internal/shared"
)

const (
	chatPath        = "/api/chat"
	chatHistoryPath = "/api/chat/history"
)

// ChatRequest is the body of a chat call.
type ChatRequest struct {
	Prompt string `json:"prompt" validate:"required,max=2000"`
}

// ChatResponse is the assistant's answer.
type ChatResponse struct {
	Reply string `json:"reply"`
}

// ChatHistoryResponse lists earlier messages of the caller, oldest first.
type ChatHistoryResponse struct {
	Messages []models.ChatMessage `json:"messages"`
}

// AssistantService sends prompts to the backend's chat endpoint.
type AssistantService struct {
	api *APIService
}

// NewAssistantService creates an [AssistantService] on top of api.
func NewAssistantService(api *APIService) *AssistantService {
	return &AssistantService{api: api}
}

// Reply sends prompt and returns the assistant's reply.
func (a *AssistantService) Reply(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("%w: prompt", shared.ErrInvalidInput)
	}

	resp, err := a.api.Post(ctx, chatPath, ChatRequest{Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}
	if !resp.OK() {
		return "", fmt.Errorf("%w: chat: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	var body ChatResponse
	if err := resp.Decode(&body); err != nil {
		return "", fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}
	return body.Reply, nil
}

// History returns the signed-in user's earlier messages, oldest first.
func (a *AssistantService) History(ctx context.Context) ([]models.ChatMessage, error) {
	resp, err := a.api.Get(ctx, chatHistoryPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: chat history: status %d", shared.ErrNotAuthenticated, resp.StatusCode)
	case !resp.OK():
		return nil, fmt.Errorf("%w: chat history: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	var body ChatHistoryResponse
	if err := resp.Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}
	return body.Messages, nil
}
