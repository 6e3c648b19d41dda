package domain

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// MinSuggestionPromptLength is the trimmed prompt length at which suggestions
// start being requested.
const MinSuggestionPromptLength = 3

const (
	MsgPromptRequired        = "Please enter a prompt."
	MsgAnimateRequiresImage  = "A prompt and a generated image are required to animate."
	MsgImageGenerationFailed = "Failed to generate image."
	MsgAnimationFailed       = "Failed to animate image."
	MsgEmptyImageResponse    = "No image was generated. The response was empty."
	MsgMissingVideoLink      = "Video generation completed, but no download link was found."
)

// NormalizePrompt trims surrounding whitespace and composes the text to NFC so
// that visually identical prompts compare and count the same.
func NormalizePrompt(text string) string {
	return norm.NFC.String(strings.TrimSpace(text))
}

// PromptLength returns the number of characters in the normalized prompt.
func PromptLength(text string) int {
	return utf8.RuneCountInString(NormalizePrompt(text))
}

// HasPrompt reports whether text contains anything besides whitespace.
func HasPrompt(text string) bool {
	return strings.TrimSpace(text) != ""
}

// SuggestionSet is the ordered list of suggestions produced for Prompt.
type SuggestionSet struct {
	Prompt string
	Items  []string
}

// Matches reports whether the set was produced for the given prompt text.
func (s SuggestionSet) Matches(prompt string) bool {
	return len(s.Items) > 0 && s.Prompt == prompt
}
