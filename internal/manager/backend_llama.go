//go:build llama

package manager

import (
	"context"
	"errors"
	"fmt"

	llama "github.com/go-skynet/go-llama.cpp"

	"chatd/internal/catalog"
	"chatd/internal/decoding"
)

// llamaBuilt indicates this binary was compiled with real llama support.
var llamaBuilt = true

// llamaBackend loads GGUF weights in-process through go-llama.cpp.
type llamaBackend struct {
	threads int
}

// NewLlamaBackend returns the in-process llama.cpp backend. threads <= 0 uses
// the runtime default.
func NewLlamaBackend(threads int) Backend {
	return &llamaBackend{threads: threads}
}

// llamaModel keeps one llama context per generation slot. go-llama.cpp binds
// weights to a context, so each slot owns its own handle.
type llamaModel struct {
	name    string
	threads int
	pool    chan *llama.LLama
	all     []*llama.LLama
}

func (b *llamaBackend) Load(ctx context.Context, d catalog.Descriptor) (Model, error) {
	opts := []llama.ModelOption{
		llama.SetContext(d.ContextSize),
	}
	if d.GPULayers > 0 {
		opts = append(opts, llama.SetGPULayers(d.GPULayers))
	}
	m := &llamaModel{name: d.Name, threads: b.threads, pool: make(chan *llama.LLama, d.MaxInstances)}
	for i := 0; i < d.MaxInstances; i++ {
		if err := ctx.Err(); err != nil {
			_ = m.Close()
			return nil, err
		}
		l, err := llama.New(d.Path, opts...)
		if err != nil {
			_ = m.Close()
			return nil, &LoadFailedError{Name: d.Name, Err: err}
		}
		m.all = append(m.all, l)
		m.pool <- l
	}
	return m, nil
}

func (m *llamaModel) Generate(ctx context.Context, prompt string, p decoding.Preset, onFragment func(string) error) (Result, error) {
	var l *llama.LLama
	select {
	case l = <-m.pool:
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
	defer func() { m.pool <- l }()

	var cbErr error
	l.SetTokenCallback(func(tok string) bool {
		select {
		case <-ctx.Done():
			return false
		default:
		}
		if err := onFragment(tok); err != nil {
			cbErr = err
			return false
		}
		return true
	})
	text, err := l.Predict(prompt, predictOptions(p, m.threads)...)
	if ctx.Err() != nil {
		return Result{}, ctx.Err()
	}
	if cbErr != nil {
		return Result{}, cbErr
	}
	if err != nil {
		return Result{}, fmt.Errorf("%s: predict: %w", m.name, err)
	}
	return Result{Content: decoding.TrimStop(text, p.Stop), FinishReason: "stop"}, nil
}

func (m *llamaModel) Close() error {
	if m.all == nil {
		return errors.New("llama model already closed")
	}
	for _, l := range m.all {
		l.Free()
	}
	m.all = nil
	return nil
}

func zn(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func zf(v, def float32) float32 {
	if v > 0 {
		return v
	}
	return def
}

// predictOptions converts a preset into go-llama.cpp options. MinP has no
// equivalent in the binding and is ignored.
func predictOptions(p decoding.Preset, threads int) []llama.PredictOption {
	po := []llama.PredictOption{
		llama.SetTokens(max(1, p.MaxTokens)),
		llama.SetTopP(zf(p.TopP, llama.DefaultOptions.TopP)),
		llama.SetTopK(zn(p.TopK, llama.DefaultOptions.TopK)),
		llama.SetTemperature(zf(p.Temperature, llama.DefaultOptions.Temperature)),
		llama.SetPenalty(zf(p.RepeatPenalty, llama.DefaultOptions.Penalty)),
		llama.SetRepeat(zn(p.PenaltyLastN, llama.DefaultOptions.Repeat)),
	}
	if threads > 0 {
		po = append(po, llama.SetThreads(threads))
	}
	if len(p.Stop) > 0 {
		po = append(po, llama.SetStopWords(p.Stop...))
	}
	return po
}
