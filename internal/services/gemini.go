package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiChat answers questions with a Gemini model. It follows the same
// single-turn contract as AzureChat.
type GeminiChat struct {
	client    *genai.Client
	modelName string
}

func NewGeminiChat(ctx context.Context, apiKey, modelName string) (*GeminiChat, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if modelName == "" {
		modelName = "gemini-2.0-flash"
	}
	return &GeminiChat{client: client, modelName: modelName}, nil
}

func (g *GeminiChat) Close() {
	g.client.Close()
}

func (g *GeminiChat) Ask(ctx context.Context, pageContent, question string) (string, error) {
	// A model handle per call: the system instruction differs between sessions.
	model := g.client.GenerativeModel(g.modelName)
	model.SetTemperature(chatTemperature)
	model.SetMaxOutputTokens(chatMaxTokens)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(BuildSystemPrompt(pageContent))},
	}

	resp, err := model.GenerateContent(ctx, genai.Text(question))
	if err != nil {
		return "", &ServiceError{Kind: KindRemoteRejection, Message: "Failed to get response from Gemini", Cause: err}
	}

	text := extractText(resp)
	if strings.TrimSpace(text) == "" {
		return "", newMalformedResponse("Gemini response contained no answer", nil)
	}

	return FormatAnswer(text), nil
}

func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}
