package ai

import "context"

// Runtime is a minimal interface implemented by chat backends such as
// OpenAI, OpenRouter and local runtimes (Ollama).
type Runtime interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

// Provider identifiers used for runtime selection.
const (
	ProviderOpenAI     = "openai"
	ProviderOpenRouter = "openrouter"
	ProviderOllama     = "ollama"
)
