package decoding

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveFirstMatchWinsOverSpecificity(t *testing.T) {
	a := Defaults()
	a.Temperature = 0.1
	b := Defaults()
	b.Temperature = 0.9

	tbl := NewTable(Defaults(), Rule{Prefix: "Qwen", Preset: a}, Rule{Prefix: "Qwen2", Preset: b})
	got := tbl.Resolve("Qwen2-7B")
	require.Equal(t, float32(0.1), got.Temperature)

	swapped := NewTable(Defaults(), Rule{Prefix: "Qwen2", Preset: b}, Rule{Prefix: "Qwen", Preset: a})
	require.Equal(t, float32(0.9), swapped.Resolve("Qwen2-7B").Temperature)
}

func TestResolveCaseInsensitive(t *testing.T) {
	p := Defaults()
	p.MaxTokens = 42
	tbl := NewTable(Defaults(), Rule{Prefix: "phi-3", Preset: p})
	require.Equal(t, 42, tbl.Resolve("Phi-3-mini-4k").MaxTokens)
	require.Equal(t, 42, tbl.Resolve("PHI-3").MaxTokens)
}

func TestResolveFoldsNonASCIIPrefixes(t *testing.T) {
	p := Defaults()
	p.MaxTokens = 11
	tbl := NewTable(Defaults(), Rule{Prefix: "kel", Preset: p}, Rule{Prefix: "Ünï", Preset: p})
	require.Equal(t, 11, tbl.Resolve("\u212Aelvin-7b").MaxTokens)
	require.Equal(t, 11, tbl.Resolve("üNÏ-chat").MaxTokens)
	require.Equal(t, Defaults().MaxTokens, tbl.Resolve("éa").MaxTokens)
}

func TestResolveFallsBackToGlobal(t *testing.T) {
	g := Defaults()
	g.TopK = 7
	tbl := NewTable(g, Rule{Prefix: "Qwen", Preset: Defaults()})
	got := tbl.Resolve("mistral-7b")
	require.Equal(t, 7, got.TopK)
	require.Empty(t, got.Stop)
}

func TestResolveAttachesFamilyStops(t *testing.T) {
	tbl := NewTable(Defaults())
	require.Equal(t, []string{"<|im_end|>", "<|im_start|>user", "<|im_start|>system"}, tbl.Resolve("qwen2.5-3b").Stop)
	require.Equal(t, []string{"<|end|>", "<|user|>"}, tbl.Resolve("Phi-3").Stop)
	require.Equal(t, []string{"### Instruction:", "### Input:", "### Response:"}, tbl.Resolve("TinyLlama-1.1B").Stop)
}

func TestResolveMergesConfiguredStops(t *testing.T) {
	p := Defaults()
	p.Stop = []string{"END", "<|end|>"}
	tbl := NewTable(Defaults(), Rule{Prefix: "Phi", Preset: p})
	require.Equal(t, []string{"<|end|>", "<|user|>", "END"}, tbl.Resolve("Phi-3").Stop)
}

func TestResolveReturnsIndependentCopies(t *testing.T) {
	tbl := NewTable(Defaults())
	first := tbl.Resolve("Qwen")
	first.Stop[0] = "mutated"
	require.Equal(t, "<|im_end|>", tbl.Resolve("Qwen").Stop[0])
}

func TestResolveConcurrentCallers(t *testing.T) {
	tbl := NewTable(Defaults(), Rule{Prefix: "Qwen", Preset: Defaults()})
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = tbl.Resolve("Qwen2-7B")
			}
		}()
	}
	wg.Wait()
}

func TestWithOverrides(t *testing.T) {
	base := Defaults()
	base.Stop = []string{"A"}
	got := base.With(Overrides{Temperature: 0.2, MaxTokens: 10, Stop: []string{"B", "A"}})
	require.Equal(t, float32(0.2), got.Temperature)
	require.Equal(t, 10, got.MaxTokens)
	require.Equal(t, DefaultTopP, got.TopP)
	require.Equal(t, []string{"A", "B"}, got.Stop)
	require.Equal(t, []string{"A"}, base.Stop)
}

func TestTrimStop(t *testing.T) {
	stops := []string{"<|im_end|>", "User:"}
	require.Equal(t, "hello", TrimStop("hello <|im_end|>", stops))
	require.Equal(t, "hi there", TrimStop("hi there\nUser:", stops))
	require.Equal(t, "untouched", TrimStop("untouched", stops))
}
