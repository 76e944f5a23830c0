package manager

import "context"

// SwitchActive makes name the active model, loading it if needed, and returns
// its canonical name. On failure the previous active model is unchanged. The
// previously active model stays loaded.
func (m *Manager) SwitchActive(ctx context.Context, name string) (string, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	lm, err := m.GetOrLoad(ctx, name)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return "", ErrClosed
	}
	prev := m.active
	m.active = lm.Name()
	m.mu.Unlock()

	if prev != lm.Name() {
		m.log.Info().Str("from", prev).Str("to", lm.Name()).Msg("active model switched")
		m.publish(EventSwitch, lm.Name(), map[string]any{"previous": prev})
	}
	return lm.Name(), nil
}
