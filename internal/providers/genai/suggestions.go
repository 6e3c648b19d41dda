package genai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	sdk "google.golang.org/genai"

	"studio/internal/domain"
)

type suggestionPayload struct {
	Suggestions []string `json:"suggestions"`
}

var suggestionSchema = &sdk.Schema{
	Type: sdk.TypeObject,
	Properties: map[string]*sdk.Schema{
		"suggestions": {
			Type:        sdk.TypeArray,
			Description: "A list of 3 prompt suggestions.",
			Items: &sdk.Schema{
				Type:        sdk.TypeString,
				Description: "A creative prompt suggestion.",
			},
		},
	},
	PropertyOrdering: []string{"suggestions"},
}

// PromptSuggestions returns up to three completions for a partial prompt.
// Suggestions are best-effort: every failure degrades to an empty slice, and
// prompts shorter than three characters never reach the backend.
func (c *Client) PromptSuggestions(ctx context.Context, prompt string) []string {
	if domain.PromptLength(prompt) < domain.MinSuggestionPromptLength {
		return nil
	}
	items, err := c.promptSuggestions(ctx, prompt)
	if err != nil {
		c.logger.Warn().
			Err(err).
			Str("model", c.suggestionModel).
			Msg("genai: prompt suggestions unavailable")
		return nil
	}
	return items
}

func (c *Client) promptSuggestions(ctx context.Context, prompt string) ([]string, error) {
	if err := c.throttle(ctx); err != nil {
		return nil, err
	}
	resp, err := c.models.GenerateContent(ctx, c.suggestionModel, sdk.Text(buildSuggestionPrompt(prompt)), &sdk.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   suggestionSchema,
		Temperature:      sdk.Ptr[float32](0.3),
	})
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, errors.New("empty response")
	}
	payload, err := parseModelPayload[suggestionPayload](resp.Text())
	if err != nil {
		return nil, fmt.Errorf("decode suggestions: %w", err)
	}
	return normalizeSuggestions(payload.Suggestions), nil
}

func buildSuggestionPrompt(prompt string) string {
	return fmt.Sprintf("Based on the following partial prompt, generate 3 creative and diverse prompt suggestions for an AI image generator. "+
		"The suggestions should be complete sentences and build upon the user's idea. "+
		"The suggestions should be concise, under 20 words each. User's input: %q", prompt)
}

func normalizeSuggestions(raw []string) []string {
	var out []string
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, s)
		if len(out) == maxSuggestions {
			break
		}
	}
	return out
}

func parseModelPayload[T any](raw string) (T, error) {
	var zero T
	cleaned := extractJSONFragment(raw)
	if cleaned == "" {
		return zero, errors.New("empty payload")
	}
	var decoded T
	if err := json.Unmarshal([]byte(cleaned), &decoded); err != nil {
		return zero, err
	}
	return decoded, nil
}

func extractJSONFragment(raw string) string {
	text := strings.TrimSpace(raw)
	if text == "" {
		return ""
	}
	text = trimCodeFence(text)
	start := strings.IndexAny(text, "{[")
	end := strings.LastIndexAny(text, "]}")
	if start >= 0 && end >= start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}

func trimCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```JSON")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}
