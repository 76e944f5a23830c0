// Package types holds the JSON payloads exchanged over the HTTP API.
package types

// Turn is one prior message of a conversation.
type Turn struct {
	// Speaker role: system, user or assistant.
	// example: user
	Role string `json:"role" example:"user"`
	// Message text.
	// example: What is the capital of France?
	Content string `json:"content" example:"What is the capital of France?"`
}

// Overrides adjusts the resolved decoding preset for one request. Zero values
// keep the resolved setting.
type Overrides struct {
	// Maximum number of new tokens to generate.
	// example: 128
	MaxTokens int `json:"max_tokens,omitempty" example:"128"`
	// Sampling temperature (higher = more random).
	// example: 0.7
	Temperature float32 `json:"temperature,omitempty" example:"0.7"`
	// Nucleus sampling probability.
	// example: 0.9
	TopP float32 `json:"top_p,omitempty" example:"0.9"`
	// Top-K sampling: limit candidates to top K tokens.
	// example: 40
	TopK int `json:"top_k,omitempty" example:"40"`
	// Minimum token probability relative to the most likely token.
	// example: 0.05
	MinP float32 `json:"min_p,omitempty" example:"0.05"`
	// Repeat penalty.
	// example: 1.1
	RepeatPenalty float32 `json:"repeat_penalty,omitempty" example:"1.1"`
	// Additional stop sequences, merged with the model family's.
	// example: ["END"]
	Stop []string `json:"stop,omitempty" example:"[\"END\"]"`
}

// ChatRequest is the payload of POST /chat, POST /chat/stream and websocket
// messages on /ws.
type ChatRequest struct {
	// Optional model name. If empty, the active model is used.
	// example: TinyLlama-1.1B-chat
	Model string `json:"model,omitempty" example:"TinyLlama-1.1B-chat"`
	// Required user message.
	// example: Write a haiku about the ocean.
	Text string `json:"text" example:"Write a haiku about the ocean."`
	// Optional prior turns, rendered before the session history.
	History []Turn `json:"history,omitempty"`
	// Optional session to continue. A new one is created when empty.
	// example: 1b4e28ba-2fa1-11d2-883f-0016d3cca427
	SessionID string `json:"session_id,omitempty" example:"1b4e28ba-2fa1-11d2-883f-0016d3cca427"`
	// Optional system prompt replacing the server default.
	System string `json:"system,omitempty"`
	// Optional decoding overrides.
	Overrides *Overrides `json:"overrides,omitempty"`
}

// ChatResponse is returned by POST /chat.
type ChatResponse struct {
	// Model that produced the reply.
	// example: TinyLlama-1.1B-chat
	Model string `json:"model" example:"TinyLlama-1.1B-chat"`
	// Generated reply with stop markers removed.
	// example: Waves fold into foam.
	Text string `json:"text" example:"Waves fold into foam."`
	// Session the exchange was recorded in.
	SessionID string `json:"session_id"`
	// Why generation ended (stop, length).
	// example: stop
	FinishReason string `json:"finish_reason,omitempty" example:"stop"`
	// Token accounting, when reported by the runtime.
	Usage *Usage `json:"usage,omitempty"`
}

// Usage reports token counts.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// StreamChunk is one NDJSON line of POST /chat/stream.
type StreamChunk struct {
	// Next output fragment.
	Token string `json:"token,omitempty"`
	// True on the final line.
	Done bool `json:"done,omitempty"`
	// Session the exchange was recorded in; set on the final line.
	SessionID string `json:"session_id,omitempty"`
	// Error message if generation failed after streaming began.
	Error string `json:"error,omitempty"`
}

// WSMessage is a server frame on /ws.
type WSMessage struct {
	// Frame type: token, done or error.
	// example: token
	Type      string `json:"type" example:"token"`
	Text      string `json:"text,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ModelsResponse is returned by GET /models.
type ModelsResponse struct {
	// Active model name, empty when none is selected.
	// example: TinyLlama-1.1B-chat
	Current string `json:"current" example:"TinyLlama-1.1B-chat"`
	// Configured model names in configuration order.
	Available []string `json:"available"`
}

// SelectRequest is the payload of POST /models/select and POST /models/unload.
type SelectRequest struct {
	// Model name.
	// example: Qwen2.5-3B-Instruct
	Name string `json:"name" example:"Qwen2.5-3B-Instruct"`
}

// SelectResponse acknowledges a model switch or unload.
type SelectResponse struct {
	// Canonical model name.
	Name string `json:"name"`
	// Resulting state: active or unloaded.
	// example: active
	Status string `json:"status" example:"active"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// ModelStatus summarizes a loaded model for /status.
type ModelStatus struct {
	// Configured model name.
	// example: tinyllama
	Name string `json:"name" example:"tinyllama"`
	// Lifecycle state: loading or ready.
	// example: ready
	State string `json:"state" example:"ready"`
	// True when this is the active model.
	Active bool `json:"active"`
	// When the weights finished loading (unix seconds).
	LoadedAt int64 `json:"loaded_at_unix,omitempty"`
	// Last time this model started a generation (unix seconds).
	// example: 1700000000
	LastUsed int64 `json:"last_used_unix,omitempty" example:"1700000000"`
	// Outstanding leases.
	// example: 1
	InFlight int64 `json:"in_flight" example:"1"`
	// Generations currently holding a slot.
	Running int `json:"running"`
	// Requests admitted and not yet finished.
	QueueLen int `json:"queue_len"`
	// Maximum admitted requests before backpressure triggers.
	// example: 32
	MaxQueueDepth int `json:"max_queue_depth" example:"32"`
	// Concurrent generation slots.
	// example: 1
	MaxInstances int `json:"max_instances" example:"1"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Active model name, empty when none is selected.
	Active string `json:"active"`
	// Loaded and loading models.
	Models []ModelStatus `json:"models"`
	// Configured model names.
	Configured []string `json:"configured"`
	// Last load error observed by the manager (if any).
	LastError string `json:"last_error,omitempty"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
	// Total successful model loads.
	// example: 12
	LoadsTotal uint64 `json:"loads_total" example:"12"`
	// Total failed model loads.
	LoadFailures uint64 `json:"load_failures"`
	// Total unloads.
	UnloadsTotal uint64 `json:"unloads_total"`
	// Open chat sessions.
	Sessions int `json:"sessions"`
}
