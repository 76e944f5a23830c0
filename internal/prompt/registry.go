package prompt

import (
	"fmt"
	"strings"

	"chatd/internal/common/names"
)

// Rule binds a model-name prefix to a formatter.
type Rule struct {
	Prefix    string
	Formatter Formatter
}

// Registry resolves model names to formatters by first matching prefix.
// It is immutable after construction and safe for concurrent use.
type Registry struct {
	rules    []Rule
	fallback Formatter
}

// DefaultRules are the template bindings used when configuration names none.
func DefaultRules() []Rule {
	return []Rule{
		{Prefix: "Qwen", Formatter: ChatML()},
		{Prefix: "Phi-3", Formatter: Phi3()},
		{Prefix: "TinyLlama", Formatter: Alpaca()},
	}
}

// NewRegistry builds a registry. A nil fallback selects Plain.
func NewRegistry(fallback Formatter, rules ...Rule) *Registry {
	if fallback == nil {
		fallback = Plain()
	}
	return &Registry{rules: append([]Rule(nil), rules...), fallback: fallback}
}

// RuleSpec names a template by its configured name.
type RuleSpec struct {
	Prefix   string
	Template string
}

// FromSpecs builds a registry from template names. An empty list uses
// DefaultRules; an empty fallback name selects Plain.
func FromSpecs(specs []RuleSpec, fallback string) (*Registry, error) {
	var fb Formatter
	if strings.TrimSpace(fallback) != "" {
		f, ok := Lookup(fallback)
		if !ok {
			return nil, fmt.Errorf("unknown formatter template %q", fallback)
		}
		fb = f
	}
	if len(specs) == 0 {
		return NewRegistry(fb, DefaultRules()...), nil
	}
	rules := make([]Rule, 0, len(specs))
	for _, s := range specs {
		f, ok := Lookup(s.Template)
		if !ok {
			return nil, fmt.Errorf("formatter %q: unknown template %q", s.Prefix, s.Template)
		}
		rules = append(rules, Rule{Prefix: s.Prefix, Formatter: f})
	}
	return NewRegistry(fb, rules...), nil
}

// Resolve never fails: names matching no prefix get the fallback formatter.
func (r *Registry) Resolve(modelName string) Formatter {
	for _, rule := range r.rules {
		if names.HasPrefixFold(modelName, rule.Prefix) {
			return rule.Formatter
		}
	}
	return r.fallback
}
