package core

import "context"

// AIClient is the contract the LLM Gateway drives. It is intentionally
// the same shape as a single model provider: prompt in, structured text
// out. The Gateway (package llm) layers schema validation, retries, the
// fallback chain, and cost accounting on top of one or more AIClients.
type AIClient interface {
	GenerateResponse(ctx context.Context, prompt string, options *AIOptions) (*AIResponse, error)
}

// AIOptions configures a single generation call.
type AIOptions struct {
	Model        string
	Temperature  float32
	MaxTokens    int
	SystemPrompt string
}

// AIResponse is a single model provider's reply.
type AIResponse struct {
	Content string
	Model   string
	Usage   TokenUsage
}

// TokenUsage reports token accounting for a single call.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}
