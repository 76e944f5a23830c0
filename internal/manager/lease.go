package manager

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync/atomic"

	"github.com/google/uuid"

	"chatd/internal/decoding"
)

// Lease holds a loaded model in memory. While any lease on a model is
// outstanding Unload refuses to destroy it. Release must be called exactly
// once per lease; further calls are no-ops.
type Lease struct {
	id       string
	model    *LoadedModel
	counter  *atomic.Int64
	released atomic.Bool
	m        *Manager
}

// Acquire loads name if needed and returns a lease on it.
func (m *Manager) Acquire(ctx context.Context, name string) (*Lease, error) {
	for {
		lm, err := m.GetOrLoad(ctx, name)
		if err != nil {
			return nil, err
		}
		c := m.counter(lm.Name())
		c.Add(1)
		if !lm.closing.Load() {
			leasesInflight.WithLabelValues(lm.Name()).Inc()
			return &Lease{id: uuid.NewString(), model: lm, counter: c, m: m}, nil
		}
		// Lost to a concurrent Unload; the next GetOrLoad reloads.
		c.Add(-1)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
}

// AcquireActive returns a lease on the active model.
func (m *Manager) AcquireActive(ctx context.Context) (*Lease, error) {
	name := m.Active()
	if name == "" {
		return nil, NotReadyError{}
	}
	return m.Acquire(ctx, name)
}

// ID identifies the lease in logs.
func (l *Lease) ID() string { return l.id }

// Name is the canonical model name.
func (l *Lease) Name() string { return l.model.Name() }

// Model exposes the leased loaded model.
func (l *Lease) Model() *LoadedModel { return l.model }

// Release returns the lease. It is idempotent.
func (l *Lease) Release() {
	if !l.released.CompareAndSwap(false, true) {
		return
	}
	l.counter.Add(-1)
	leasesInflight.WithLabelValues(l.model.Name()).Dec()
}

// Generate runs one generation on the leased model after admission. A panic
// in the runtime is recovered and returned as an error.
func (l *Lease) Generate(ctx context.Context, prompt string, p decoding.Preset, onFragment func(string) error) (res Result, err error) {
	if l.released.Load() {
		return Result{}, fmt.Errorf("lease %s on %s already released", l.id, l.Name())
	}
	done, err := l.m.beginGeneration(ctx, l.model)
	if err != nil {
		return Result{}, err
	}
	defer done()
	defer func() {
		if r := recover(); r != nil {
			l.m.log.Error().Str("model", l.Name()).Interface("panic", r).Bytes("stack", debug.Stack()).Msg("generation panicked")
			err = fmt.Errorf("generation panicked: %v", r)
		}
	}()
	if onFragment == nil {
		onFragment = func(string) error { return nil }
	}
	return l.model.model.Generate(ctx, prompt, p, onFragment)
}
