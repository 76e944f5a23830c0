package manager

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"chatd/internal/catalog"
	"chatd/internal/decoding"
)

// createModelFile creates a small weights file and returns its path.
func createModelFile(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte("GGUF"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	return p
}

// fakeBackend is a lightweight in-memory backend used for tests.
type fakeBackend struct {
	mu     sync.Mutex
	loads  map[string]int
	models map[string][]*fakeModel
	// fail makes Load return the error for a name.
	fail map[string]error
	// gate, when set, blocks Load until closed.
	gate   chan struct{}
	tokens []string
	genErr error
	panics bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{loads: map[string]int{}, models: map[string][]*fakeModel{}, fail: map[string]error{}}
}

func (b *fakeBackend) Load(ctx context.Context, d catalog.Descriptor) (Model, error) {
	b.mu.Lock()
	b.loads[d.Name]++
	gate := b.gate
	err := b.fail[d.Name]
	b.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	fm := &fakeModel{b: b, name: d.Name, release: make(chan struct{})}
	b.mu.Lock()
	b.models[d.Name] = append(b.models[d.Name], fm)
	b.mu.Unlock()
	return fm, nil
}

func (b *fakeBackend) loadCount(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loads[name]
}

func (b *fakeBackend) setFail(name string, err error) {
	b.mu.Lock()
	b.fail[name] = err
	b.mu.Unlock()
}

func (b *fakeBackend) lastModel(name string) *fakeModel {
	b.mu.Lock()
	defer b.mu.Unlock()
	ms := b.models[name]
	if len(ms) == 0 {
		return nil
	}
	return ms[len(ms)-1]
}

type fakeModel struct {
	b      *fakeBackend
	name   string
	closed atomic.Bool
	// hold makes Generate block until release is closed.
	hold    atomic.Bool
	release chan struct{}
	prompts atomic.Int64
}

func (f *fakeModel) Generate(ctx context.Context, prompt string, p decoding.Preset, onFragment func(string) error) (Result, error) {
	if f.closed.Load() {
		return Result{}, errors.New("generate on closed model")
	}
	f.prompts.Add(1)
	if f.b.panics {
		panic("boom")
	}
	if f.hold.Load() {
		select {
		case <-f.release:
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}
	if f.b.genErr != nil {
		return Result{}, f.b.genErr
	}
	var out string
	for _, tok := range f.b.tokens {
		if err := onFragment(tok); err != nil {
			return Result{}, err
		}
		out += tok
	}
	return Result{Content: out, FinishReason: "stop"}, nil
}

func (f *fakeModel) Close() error {
	if !f.closed.CompareAndSwap(false, true) {
		return errors.New("double close")
	}
	return nil
}

// testCtx returns a context with a short timeout, canceled on test cleanup.
func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return c
}

// newTestManager builds a manager over real files in a temp dir.
func newTestManager(t *testing.T, b *fakeBackend, names ...string) *Manager {
	t.Helper()
	dir := t.TempDir()
	ds := make([]catalog.Descriptor, 0, len(names))
	for _, n := range names {
		ds = append(ds, catalog.Descriptor{Name: n, Path: createModelFile(t, dir, n+".gguf")})
	}
	cat, err := catalog.New(ds)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	m := New(Config{Catalog: cat, Backend: b, MaxWait: 200 * time.Millisecond})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = m.Close(ctx)
	})
	return m
}
