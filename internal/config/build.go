package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"chatd/internal/catalog"
	"chatd/internal/common/fsutil"
	"chatd/internal/decoding"
	"chatd/internal/prompt"
)

// Validate reports every problem found in cfg.
func (c Config) Validate() error {
	var errs []error
	seen := map[string]bool{}
	for i, m := range c.Models {
		if strings.TrimSpace(m.Name) == "" {
			errs = append(errs, fmt.Errorf("models[%d]: name is required", i))
		}
		if strings.TrimSpace(m.Path) == "" {
			errs = append(errs, fmt.Errorf("models[%d] %q: path is required", i, m.Name))
		}
		if m.ContextSize < 0 || m.MaxInstances < 0 || m.GPULayers < 0 {
			errs = append(errs, fmt.Errorf("models[%d] %q: sizes must not be negative", i, m.Name))
		}
		k := catalog.Key(strings.TrimSpace(m.Name))
		if k != "" && seen[k] {
			errs = append(errs, fmt.Errorf("models[%d]: duplicate name %q", i, m.Name))
		}
		seen[k] = true
	}
	if c.MaxQueueDepth < 0 || c.MaxWaitMS < 0 || c.MaxBodyBytes < 0 || c.InferTimeoutSeconds < 0 {
		errs = append(errs, errors.New("queue, wait, body and timeout limits must not be negative"))
	}
	for i, r := range c.Decoding.PerModel {
		if strings.TrimSpace(r.NamePrefix) == "" {
			errs = append(errs, fmt.Errorf("decoding.per_model[%d]: name_prefix is required", i))
		}
	}
	if _, err := c.FormatterRegistry(); err != nil {
		errs = append(errs, err)
	}
	if c.DefaultModel != "" && len(c.Models) > 0 && c.ModelsDir == "" && !seen[catalog.Key(strings.TrimSpace(c.DefaultModel))] {
		errs = append(errs, fmt.Errorf("default_model %q is not a configured model", c.DefaultModel))
	}
	return errors.Join(errs...)
}

// Descriptors converts configured models, expanding ~ in paths. A path whose
// home directory cannot be resolved is kept as written.
func (c Config) Descriptors() []catalog.Descriptor {
	out := make([]catalog.Descriptor, 0, len(c.Models))
	for _, m := range c.Models {
		path, err := fsutil.ExpandHome(m.Path)
		if err != nil {
			path = m.Path
		}
		out = append(out, catalog.Descriptor{
			Name:         strings.TrimSpace(m.Name),
			Path:         path,
			ContextSize:  m.ContextSize,
			MaxInstances: m.MaxInstances,
			GPULayers:    m.GPULayers,
			Preload:      m.Preload,
		})
	}
	return out
}

// Catalog builds the model catalog from configured models plus any weights
// found under ModelsDir. Configured entries win on name collisions.
func (c Config) Catalog() (*catalog.Catalog, error) {
	ds := c.Descriptors()
	if strings.TrimSpace(c.ModelsDir) != "" {
		scanned, err := catalog.NewGGUFScanner().Scan(c.ModelsDir)
		if err != nil {
			return nil, fmt.Errorf("scan models_dir: %w", err)
		}
		ds = catalog.Merge(ds, scanned)
	}
	return catalog.New(ds)
}

// DecodingTable builds the preset table. Global fields inherit built-in
// defaults and per-model fields inherit the global preset.
func (c Config) DecodingTable() *decoding.Table {
	global := c.Decoding.Global.apply(decoding.Defaults())
	rules := make([]decoding.Rule, 0, len(c.Decoding.PerModel))
	for _, r := range c.Decoding.PerModel {
		rules = append(rules, decoding.Rule{Prefix: r.NamePrefix, Preset: r.Preset.apply(global)})
	}
	return decoding.NewTable(global, rules...)
}

// FormatterRegistry builds the formatter registry.
func (c Config) FormatterRegistry() (*prompt.Registry, error) {
	specs := make([]prompt.RuleSpec, 0, len(c.Formatters))
	for _, f := range c.Formatters {
		specs = append(specs, prompt.RuleSpec{Prefix: f.Prefix, Template: f.Template})
	}
	return prompt.FromSpecs(specs, c.DefaultFormatter)
}

// MaxWait is MaxWaitMS as a duration.
func (c Config) MaxWait() time.Duration { return time.Duration(c.MaxWaitMS) * time.Millisecond }

// InferTimeout is InferTimeoutSeconds as a duration; zero disables it.
func (c Config) InferTimeout() time.Duration {
	return time.Duration(c.InferTimeoutSeconds) * time.Second
}

// SessionIdle is SessionIdleMinutes as a duration; zero keeps sessions forever.
func (c Config) SessionIdle() time.Duration {
	return time.Duration(c.SessionIdleMinutes) * time.Minute
}

func (p Preset) apply(base decoding.Preset) decoding.Preset {
	out := base
	if p.Temperature != nil {
		out.Temperature = *p.Temperature
	}
	if p.TopP != nil {
		out.TopP = *p.TopP
	}
	if p.TopK != nil {
		out.TopK = *p.TopK
	}
	if p.MinP != nil {
		out.MinP = *p.MinP
	}
	if p.RepeatPenalty != nil {
		out.RepeatPenalty = *p.RepeatPenalty
	}
	if p.PenaltyLastN != nil {
		out.PenaltyLastN = *p.PenaltyLastN
	}
	if p.MaxTokens != nil {
		out.MaxTokens = *p.MaxTokens
	}
	if p.Stop != nil {
		out.Stop = append([]string(nil), p.Stop...)
	}
	return out
}
