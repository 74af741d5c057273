package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/azure"
	"github.com/openai/openai-go/v3/option"
)

const (
	chatTemperature = 0.7
	chatMaxTokens   = 800
)

type AzureConfig struct {
	Endpoint   string
	APIKey     string
	Deployment string
	APIVersion string
}

// AzureChat calls an Azure OpenAI chat-completions deployment.
type AzureChat struct {
	client     openai.Client
	deployment string
}

func NewAzureChat(cfg AzureConfig, httpClient *http.Client) *AzureChat {
	if cfg.Deployment == "" {
		cfg.Deployment = "gpt-4o"
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = "2024-08-01-preview"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}

	client := openai.NewClient(
		azure.WithEndpoint(strings.TrimSpace(cfg.Endpoint), cfg.APIVersion),
		azure.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		// One attempt per question
		option.WithMaxRetries(0),
	)

	return &AzureChat{client: client, deployment: cfg.Deployment}
}

// Ask sends the page content as the system message and the question as the
// only user message, then formats the first choice.
func (a *AzureChat) Ask(ctx context.Context, pageContent, question string) (string, error) {
	completion, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(a.deployment),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(BuildSystemPrompt(pageContent)),
			openai.UserMessage(question),
		},
		Temperature: openai.Float(chatTemperature),
		MaxTokens:   openai.Int(chatMaxTokens),
	})
	if err != nil {
		return "", azureError(err)
	}

	if len(completion.Choices) == 0 {
		return "", newMalformedResponse("Azure OpenAI response contained no answer", nil)
	}

	return FormatAnswer(completion.Choices[0].Message.Content), nil
}

func azureError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		status := http.StatusText(apiErr.StatusCode)
		log.Printf("Azure API error: status=%d statusText=%q body=%s",
			apiErr.StatusCode, status, truncate(apiErr.RawJSON(), 1000))
		return newRemoteRejection(fmt.Sprintf("Failed to get response from Azure OpenAI: %d %s",
			apiErr.StatusCode, status))
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return newNetworkError("Failed to reach Azure OpenAI", err)
	}

	return newMalformedResponse("Azure OpenAI returned an unreadable response", err)
}
