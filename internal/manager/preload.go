package manager

import (
	"context"

	"github.com/sourcegraph/conc/pool"
)

// Preload loads every descriptor marked preload, at most parallel at a time.
// Failures are logged and joined; successful loads stay resident.
func (m *Manager) Preload(ctx context.Context, parallel int) error {
	if parallel <= 0 {
		parallel = 1
	}
	p := pool.New().WithMaxGoroutines(parallel).WithErrors()
	for _, d := range m.catalog.Descriptors() {
		if !d.Preload {
			continue
		}
		name := d.Name
		p.Go(func() error {
			_, err := m.GetOrLoad(ctx, name)
			if err != nil {
				m.log.Warn().Err(err).Str("model", name).Msg("preload failed")
			}
			return err
		})
	}
	return p.Wait()
}
