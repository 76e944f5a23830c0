package manager

import (
	"context"
	"time"
)

// beginGeneration reserves a queue slot and then a generation slot on lm.
// Returns a release func to be deferred.
func (m *Manager) beginGeneration(ctx context.Context, lm *LoadedModel) (func(), error) {
	if err := ctx.Err(); err != nil {
		return func() {}, err
	}

	timer := time.NewTimer(lm.maxWait)
	defer timer.Stop()
	select {
	case lm.queueCh <- struct{}{}:
	case <-ctx.Done():
		return func() {}, ctx.Err()
	case <-timer.C:
		return func() {}, m.tooBusy(lm, "queue")
	}

	acquired := false
	defer func() {
		if !acquired {
			<-lm.queueCh
		}
	}()
	if err := ctx.Err(); err != nil {
		return func() {}, err
	}
	timer2 := time.NewTimer(lm.maxWait)
	defer timer2.Stop()
	select {
	case lm.genCh <- struct{}{}:
		acquired = true
		lm.touch()
		return func() { <-lm.genCh; <-lm.queueCh }, nil
	case <-ctx.Done():
		return func() {}, ctx.Err()
	case <-timer2.C:
		return func() {}, m.tooBusy(lm, "slot")
	}
}

func (m *Manager) tooBusy(lm *LoadedModel, stage string) error {
	backpressureTotal.WithLabelValues(lm.Name(), stage).Inc()
	m.log.Warn().Str("model", lm.Name()).Str("stage", stage).Int("queued", lm.Queued()).Msg("generation rejected: too busy")
	m.publish(EventTooBusy, lm.Name(), map[string]any{"stage": stage})
	return &TooBusyError{Name: lm.Name()}
}
