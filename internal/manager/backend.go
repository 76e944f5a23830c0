package manager

import (
	"context"

	"chatd/internal/catalog"
	"chatd/internal/decoding"
)

// Backend loads model weights for a descriptor. Concrete runtimes (llama.cpp)
// implement it; Load may be slow and is called at most once per name at a time.
type Backend interface {
	Load(ctx context.Context, d catalog.Descriptor) (Model, error)
}

// Model is a loaded set of weights with its generation contexts.
type Model interface {
	// Generate streams output fragments for prompt. onFragment is invoked for
	// each fragment; returning an error from it stops generation.
	// Implementations must return when ctx is canceled.
	Generate(ctx context.Context, prompt string, p decoding.Preset, onFragment func(string) error) (Result, error)
	// Close releases the weights and every context derived from them.
	Close() error
}

// Result summarizes a generation after streaming.
type Result struct {
	Content      string `json:"content"`
	FinishReason string `json:"finish_reason"`
	Usage        Usage  `json:"usage"`
}

// Usage contains token accounting when the runtime reports it.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
