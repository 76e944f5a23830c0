package manager

import (
	"context"
	"time"

	"chatd/internal/catalog"
	"chatd/internal/common/fsutil"
)

// GetOrLoad returns the loaded model for name, loading it first if needed.
// Concurrent callers for the same name share one backend load; callers for
// different names load in parallel. A caller whose ctx ends stops waiting but
// the shared load continues for the others.
//
// The returned model may be unloaded at any time after return; use Acquire to
// hold it.
func (m *Manager) GetOrLoad(ctx context.Context, name string) (*LoadedModel, error) {
	d, err := m.catalog.Resolve(name)
	if err != nil {
		return nil, err
	}
	if lm, ok := m.loaded.Load(d.Name); ok {
		return lm, nil
	}
	if m.isClosed() {
		return nil, ErrClosed
	}
	ch := m.loads.DoChan(d.Name, func() (any, error) {
		return m.load(context.WithoutCancel(ctx), d)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*LoadedModel), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// load runs inside the single-flight group for d.Name.
func (m *Manager) load(ctx context.Context, d catalog.Descriptor) (*LoadedModel, error) {
	if lm, ok := m.loaded.Load(d.Name); ok {
		return lm, nil
	}
	start := time.Now()
	m.loading.Store(d.Name, start)
	defer m.loading.Delete(d.Name)

	log := m.log.With().Str("model", d.Name).Logger()
	log.Info().Str("path", d.Path).Int("ctx", d.ContextSize).Int("instances", d.MaxInstances).Msg("loading model")
	m.publish(EventLoadStart, d.Name, map[string]any{"path": d.Path})

	mdl, err := m.loadWeights(ctx, d)
	if err != nil {
		m.loadFailures.Add(1)
		m.setLastError(err)
		loadsTotal.WithLabelValues("error").Inc()
		log.Error().Err(err).Dur("elapsed", time.Since(start)).Msg("model load failed")
		m.publish(EventLoadFailed, d.Name, map[string]any{"error": err.Error()})
		return nil, err
	}

	lm := newLoadedModel(d, mdl, m.maxQueueDepth, m.maxWait)
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		_ = mdl.Close()
		return nil, ErrClosed
	}
	m.loaded.Store(d.Name, lm)
	m.mu.Unlock()

	elapsed := time.Since(start)
	m.loadsTotal.Add(1)
	loadsTotal.WithLabelValues("ok").Inc()
	loadDuration.Observe(elapsed.Seconds())
	log.Info().Dur("elapsed", elapsed).Msg("model ready")
	m.publish(EventLoadReady, d.Name, map[string]any{"elapsed_ms": elapsed.Milliseconds()})
	return lm, nil
}

func (m *Manager) loadWeights(ctx context.Context, d catalog.Descriptor) (Model, error) {
	if err := fsutil.RegularFile(d.Path); err != nil {
		return nil, &LoadFailedError{Name: d.Name, Err: err}
	}
	mdl, err := m.backend.Load(ctx, d)
	if err != nil {
		if IsDependencyUnavailable(err) || IsLoadFailed(err) {
			return nil, err
		}
		return nil, &LoadFailedError{Name: d.Name, Err: err}
	}
	if mdl == nil {
		return nil, &LoadFailedError{Name: d.Name, Err: errNilModel}
	}
	return mdl, nil
}
