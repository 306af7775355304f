package out

import "context"

// CompletionRequest is one prompt round trip to the language model.
type CompletionRequest struct {
	SystemPrompt string  `json:"system_prompt"`
	UserPrompt   string  `json:"user_prompt"`
	Temperature  float64 `json:"temperature"`
	MaxTokens    int     `json:"max_tokens"`
}

// TextCompletionService returns free text for a prompt. The text is not guaranteed
// to be well-formed JSON; callers go through the structured extractor.
type TextCompletionService interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}
