// Package decoding resolves per-model sampling parameters.
//
// A Table holds ordered name-prefix rules plus one global preset. Resolution is
// first-match-wins in table order (not longest prefix), case-insensitive, and a
// pure function of the model name and the static table.
package decoding

import "strings"

// Built-in defaults used when neither a rule nor the global preset sets a field.
const (
	DefaultTemperature   float32 = 0.7
	DefaultTopP          float32 = 0.9
	DefaultTopK                  = 40
	DefaultMinP          float32 = 0.05
	DefaultRepeatPenalty float32 = 1.15
	DefaultPenaltyLastN          = 128
	DefaultMaxTokens             = 256
)

// Preset is the set of generation parameters passed to the inference engine.
// Treat it as immutable once resolved for a request.
type Preset struct {
	Temperature   float32  `json:"temperature"`
	TopP          float32  `json:"top_p"`
	TopK          int      `json:"top_k"`
	MinP          float32  `json:"min_p"`
	RepeatPenalty float32  `json:"repeat_penalty"`
	PenaltyLastN  int      `json:"penalty_last_n"`
	MaxTokens     int      `json:"max_tokens"`
	Stop          []string `json:"stop,omitempty"`
}

// Defaults returns the built-in preset.
func Defaults() Preset {
	return Preset{
		Temperature:   DefaultTemperature,
		TopP:          DefaultTopP,
		TopK:          DefaultTopK,
		MinP:          DefaultMinP,
		RepeatPenalty: DefaultRepeatPenalty,
		PenaltyLastN:  DefaultPenaltyLastN,
		MaxTokens:     DefaultMaxTokens,
	}
}

// Overrides carries per-request adjustments. Zero values keep the preset's value.
type Overrides struct {
	Temperature   float32
	TopP          float32
	TopK          int
	MinP          float32
	RepeatPenalty float32
	MaxTokens     int
	Stop          []string
}

// With returns a copy of p with non-zero overrides applied. Extra stop
// sequences are appended after the preset's own.
func (p Preset) With(o Overrides) Preset {
	out := p
	if o.Temperature > 0 {
		out.Temperature = o.Temperature
	}
	if o.TopP > 0 {
		out.TopP = o.TopP
	}
	if o.TopK > 0 {
		out.TopK = o.TopK
	}
	if o.MinP > 0 {
		out.MinP = o.MinP
	}
	if o.RepeatPenalty > 0 {
		out.RepeatPenalty = o.RepeatPenalty
	}
	if o.MaxTokens > 0 {
		out.MaxTokens = o.MaxTokens
	}
	out.Stop = mergeStops(p.Stop, o.Stop)
	return out
}

// TrimStop removes a stop sequence the engine left at the end of text, along
// with whitespace preceding it.
func TrimStop(text string, stops []string) string {
	for _, s := range stops {
		if s == "" {
			continue
		}
		if strings.HasSuffix(text, s) {
			return strings.TrimRight(strings.TrimSuffix(text, s), " \t\r\n")
		}
	}
	return text
}

func mergeStops(base, extra []string) []string {
	if len(base) == 0 && len(extra) == 0 {
		return nil
	}
	out := make([]string, 0, len(base)+len(extra))
	seen := make(map[string]struct{}, len(base)+len(extra))
	for _, list := range [][]string{base, extra} {
		for _, s := range list {
			if s == "" {
				continue
			}
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}
