// Package config loads the service configuration from YAML, JSON or TOML,
// overlays CHATD_* environment variables, and builds the catalog, decoding
// table and formatter registry from it.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the service.
type Config struct {
	Addr                string `json:"addr" yaml:"addr" toml:"addr"`
	ModelsDir           string `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	DefaultModel        string `json:"default_model" yaml:"default_model" toml:"default_model"`
	SystemPrompt        string `json:"system_prompt" yaml:"system_prompt" toml:"system_prompt"`
	LogLevel            string `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat           string `json:"log_format" yaml:"log_format" toml:"log_format"`
	LlamaThreads        int    `json:"llama_threads" yaml:"llama_threads" toml:"llama_threads"`
	MaxQueueDepth       int    `json:"max_queue_depth" yaml:"max_queue_depth" toml:"max_queue_depth"`
	MaxWaitMS           int    `json:"max_wait_ms" yaml:"max_wait_ms" toml:"max_wait_ms"`
	MaxBodyBytes        int64  `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	InferTimeoutSeconds int    `json:"infer_timeout_seconds" yaml:"infer_timeout_seconds" toml:"infer_timeout_seconds"`
	PreloadParallel     int    `json:"preload_parallel" yaml:"preload_parallel" toml:"preload_parallel"`
	MaxSessionTurns     int    `json:"max_session_turns" yaml:"max_session_turns" toml:"max_session_turns"`
	SessionIdleMinutes  int    `json:"session_idle_minutes" yaml:"session_idle_minutes" toml:"session_idle_minutes"`

	CORS             CORS            `json:"cors" yaml:"cors" toml:"cors"`
	Models           []Model         `json:"models" yaml:"models" toml:"models"`
	Decoding         Decoding        `json:"decoding" yaml:"decoding" toml:"decoding"`
	Formatters       []FormatterRule `json:"formatters" yaml:"formatters" toml:"formatters"`
	DefaultFormatter string          `json:"default_formatter" yaml:"default_formatter" toml:"default_formatter"`
}

// CORS configures cross-origin access to the HTTP API.
type CORS struct {
	Enabled bool     `json:"enabled" yaml:"enabled" toml:"enabled"`
	Origins []string `json:"origins" yaml:"origins" toml:"origins"`
	Methods []string `json:"methods" yaml:"methods" toml:"methods"`
	Headers []string `json:"headers" yaml:"headers" toml:"headers"`
}

// Model is one catalog entry.
type Model struct {
	Name         string `json:"name" yaml:"name" toml:"name"`
	Path         string `json:"path" yaml:"path" toml:"path"`
	ContextSize  int    `json:"context_size" yaml:"context_size" toml:"context_size"`
	MaxInstances int    `json:"max_instances" yaml:"max_instances" toml:"max_instances"`
	GPULayers    int    `json:"gpu_layers" yaml:"gpu_layers" toml:"gpu_layers"`
	Preload      bool   `json:"preload" yaml:"preload" toml:"preload"`
}

// Preset lists decoding fields; nil fields inherit.
type Preset struct {
	Temperature   *float32 `json:"temperature,omitempty" yaml:"temperature,omitempty" toml:"temperature,omitempty"`
	TopP          *float32 `json:"top_p,omitempty" yaml:"top_p,omitempty" toml:"top_p,omitempty"`
	TopK          *int     `json:"top_k,omitempty" yaml:"top_k,omitempty" toml:"top_k,omitempty"`
	MinP          *float32 `json:"min_p,omitempty" yaml:"min_p,omitempty" toml:"min_p,omitempty"`
	RepeatPenalty *float32 `json:"repeat_penalty,omitempty" yaml:"repeat_penalty,omitempty" toml:"repeat_penalty,omitempty"`
	PenaltyLastN  *int     `json:"penalty_last_n,omitempty" yaml:"penalty_last_n,omitempty" toml:"penalty_last_n,omitempty"`
	MaxTokens     *int     `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty" toml:"max_tokens,omitempty"`
	Stop          []string `json:"stop,omitempty" yaml:"stop,omitempty" toml:"stop,omitempty"`
}

// PresetRule binds a name prefix to preset fields.
type PresetRule struct {
	NamePrefix string `json:"name_prefix" yaml:"name_prefix" toml:"name_prefix"`
	Preset     `yaml:",inline"`
}

// Decoding is the global preset plus ordered per-model rules.
type Decoding struct {
	Global   Preset       `json:"global" yaml:"global" toml:"global"`
	PerModel []PresetRule `json:"per_model" yaml:"per_model" toml:"per_model"`
}

// FormatterRule binds a name prefix to a template name.
type FormatterRule struct {
	Prefix   string `json:"prefix" yaml:"prefix" toml:"prefix"`
	Template string `json:"template" yaml:"template" toml:"template"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr:            ":8080",
		LogLevel:        "info",
		LogFormat:       "console",
		MaxQueueDepth:   32,
		MaxWaitMS:       30000,
		MaxBodyBytes:    1 << 20,
		SystemPrompt:    "You are a helpful assistant.",
		PreloadParallel: 1,
	}
}

// Load reads a configuration file based on its extension over Default().
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("%s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("%s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("%s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
