package decoding

import "chatd/internal/common/names"

// Rule binds a model-name prefix to a preset.
type Rule struct {
	Prefix string
	Preset Preset
}

// Table resolves model names to presets.
type Table struct {
	rules  []Rule
	global Preset
}

// NewTable copies rules so later mutation by the caller has no effect.
func NewTable(global Preset, rules ...Rule) *Table {
	t := &Table{global: clonePreset(global), rules: make([]Rule, len(rules))}
	for i, r := range rules {
		t.rules[i] = Rule{Prefix: r.Prefix, Preset: clonePreset(r.Preset)}
	}
	return t
}

// Global returns the fallback preset.
func (t *Table) Global() Preset { return clonePreset(t.global) }

// Rules returns the configured rules in table order.
func (t *Table) Rules() []Rule {
	out := make([]Rule, len(t.rules))
	for i, r := range t.rules {
		out[i] = Rule{Prefix: r.Prefix, Preset: clonePreset(r.Preset)}
	}
	return out
}

// Resolve returns the preset of the first rule whose prefix modelName starts
// with, or the global preset. The family stop set for modelName is attached
// ahead of any stops configured on the preset itself.
func (t *Table) Resolve(modelName string) Preset {
	p := t.global
	for _, r := range t.rules {
		if names.HasPrefixFold(modelName, r.Prefix) {
			p = r.Preset
			break
		}
	}
	out := clonePreset(p)
	out.Stop = mergeStops(StopSequences(modelName), p.Stop)
	return out
}

// familyStops lists stop markers by prompt-template family. They belong to the
// template, not to sampling, so they are looked up independently of the rules.
var familyStops = []struct {
	prefix string
	stops  []string
}{
	{"Qwen", []string{"<|im_end|>", "<|im_start|>user", "<|im_start|>system"}},
	{"Phi-3", []string{"<|end|>", "<|user|>"}},
	{"TinyLlama", []string{"### Instruction:", "### Input:", "### Response:"}},
}

// StopSequences returns the family stop set for modelName, or nil.
func StopSequences(modelName string) []string {
	for _, f := range familyStops {
		if names.HasPrefixFold(modelName, f.prefix) {
			out := make([]string, len(f.stops))
			copy(out, f.stops)
			return out
		}
	}
	return nil
}

func clonePreset(p Preset) Preset {
	if p.Stop != nil {
		p.Stop = append([]string(nil), p.Stop...)
	}
	return p
}
