package config

import (
	"github.com/kelseyhightower/envconfig"
)

// envOverrides are the CHATD_* variables. Unset variables leave the file
// values in place.
type envOverrides struct {
	Addr          *string `envconfig:"ADDR"`
	ModelsDir     *string `envconfig:"MODELS_DIR"`
	DefaultModel  *string `envconfig:"DEFAULT_MODEL"`
	LogLevel      *string `envconfig:"LOG_LEVEL"`
	LogFormat     *string `envconfig:"LOG_FORMAT"`
	SystemPrompt  *string `envconfig:"SYSTEM_PROMPT"`
	LlamaThreads  *int    `envconfig:"LLAMA_THREADS"`
	MaxQueueDepth *int    `envconfig:"MAX_QUEUE_DEPTH"`
	MaxWaitMS     *int    `envconfig:"MAX_WAIT_MS"`
	InferTimeout  *int    `envconfig:"INFER_TIMEOUT_SECONDS"`
}

// EnvPrefix is the environment variable prefix.
const EnvPrefix = "CHATD"

// ApplyEnv overlays CHATD_* environment variables onto cfg.
func ApplyEnv(cfg *Config) error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return err
	}
	setString(&cfg.Addr, env.Addr)
	setString(&cfg.ModelsDir, env.ModelsDir)
	setString(&cfg.DefaultModel, env.DefaultModel)
	setString(&cfg.LogLevel, env.LogLevel)
	setString(&cfg.LogFormat, env.LogFormat)
	setString(&cfg.SystemPrompt, env.SystemPrompt)
	setInt(&cfg.LlamaThreads, env.LlamaThreads)
	setInt(&cfg.MaxQueueDepth, env.MaxQueueDepth)
	setInt(&cfg.MaxWaitMS, env.MaxWaitMS)
	setInt(&cfg.InferTimeoutSeconds, env.InferTimeout)
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}
