package manager

import (
	"context"
	"errors"
	"time"
)

// Unload destroys the loaded weights for name. Unloading a configured model
// that is not loaded succeeds without effect. The active model is always
// refused with ProtectedError, and a model with outstanding leases with
// InUseError; in both cases nothing changes.
func (m *Manager) Unload(name string) error {
	d, err := m.catalog.Resolve(name)
	if err != nil {
		return err
	}
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.mu.Lock()
	lm, ok := m.loaded.Load(d.Name)
	if !ok {
		m.mu.Unlock()
		return nil
	}
	if m.active == d.Name {
		m.mu.Unlock()
		return m.rejectUnload(&ProtectedError{Name: d.Name}, "protected")
	}
	lm.closing.Store(true)
	if n := m.counter(d.Name).Load(); n > 0 {
		lm.closing.Store(false)
		m.mu.Unlock()
		return m.rejectUnload(&InUseError{Name: d.Name, InFlight: n}, "in_use")
	}
	m.loaded.Delete(d.Name)
	m.mu.Unlock()

	start := time.Now()
	err = lm.model.Close()
	m.unloadsTotal.Add(1)
	ev := m.log.Info()
	if err != nil {
		ev = m.log.Warn().Err(err)
	}
	ev.Str("model", d.Name).Dur("elapsed", time.Since(start)).Msg("model unloaded")
	m.publish(EventUnloaded, d.Name, nil)
	return nil
}

func (m *Manager) rejectUnload(err error, reason string) error {
	var name string
	var p *ProtectedError
	var u *InUseError
	switch {
	case errors.As(err, &p):
		name = p.Name
	case errors.As(err, &u):
		name = u.Name
	}
	unloadRejections.WithLabelValues(reason).Inc()
	m.log.Info().Str("model", name).Str("reason", reason).Msg("unload rejected")
	m.publish(EventUnloadDeny, name, map[string]any{"reason": reason})
	return err
}

// closeDrainInterval is how often Close re-checks lease counts.
const closeDrainInterval = 10 * time.Millisecond

// Close rejects further loads and leases, then destroys each loaded model once
// its outstanding leases are released. A model still leased when ctx ends is
// left allocated and reported as an InUseError alongside ctx.Err().
func (m *Manager) Close(ctx context.Context) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.active = ""
	var pending []*LoadedModel
	m.loaded.Range(func(name string, lm *LoadedModel) bool {
		lm.closing.Store(true)
		pending = append(pending, lm)
		return true
	})
	m.loaded.Clear()
	m.mu.Unlock()

	var errs []error
	tick := time.NewTicker(closeDrainInterval)
	defer tick.Stop()
	for {
		busy := pending[:0]
		for _, lm := range pending {
			if m.counter(lm.Name()).Load() > 0 {
				busy = append(busy, lm)
				continue
			}
			if err := lm.model.Close(); err != nil {
				errs = append(errs, err)
			}
			m.unloadsTotal.Add(1)
			m.log.Info().Str("model", lm.Name()).Msg("model unloaded on close")
		}
		pending = busy
		if len(pending) == 0 {
			return errors.Join(errs...)
		}
		select {
		case <-ctx.Done():
			for _, lm := range pending {
				n := m.counter(lm.Name()).Load()
				m.log.Warn().Str("model", lm.Name()).Int64("inflight", n).Msg("model still leased at close; left allocated")
				errs = append(errs, &InUseError{Name: lm.Name(), InFlight: n})
			}
			return errors.Join(append(errs, ctx.Err())...)
		case <-tick.C:
		}
	}
}
