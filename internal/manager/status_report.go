package manager

import (
	"sort"
	"time"

	"chatd/pkg/types"
)

// Status builds a detailed status response for /status.
func (m *Manager) Status() types.StatusResponse {
	m.mu.RLock()
	active := m.active
	m.mu.RUnlock()

	now := time.Now()
	resp := types.StatusResponse{
		Active:         active,
		Configured:     m.catalog.Names(),
		UptimeSeconds:  int64(now.Sub(m.startTime).Seconds()),
		ServerTimeUnix: now.Unix(),
		LoadsTotal:     m.loadsTotal.Load(),
		LoadFailures:   m.loadFailures.Load(),
		UnloadsTotal:   m.unloadsTotal.Load(),
	}
	if p := m.lastErr.Load(); p != nil {
		resp.LastError = *p
	}
	resp.Models = make([]types.ModelStatus, 0, m.loaded.Size())
	m.loaded.Range(func(name string, lm *LoadedModel) bool {
		resp.Models = append(resp.Models, types.ModelStatus{
			Name:          name,
			State:         string(StateReady),
			Active:        name == active,
			LoadedAt:      lm.LoadedAt.Unix(),
			LastUsed:      lm.LastUsed().Unix(),
			InFlight:      m.counter(name).Load(),
			Running:       lm.Running(),
			QueueLen:      lm.Queued(),
			MaxQueueDepth: cap(lm.queueCh),
			MaxInstances:  lm.Descriptor.MaxInstances,
		})
		return true
	})
	m.loading.Range(func(name string, _ time.Time) bool {
		if _, ok := m.loaded.Load(name); ok {
			return true
		}
		resp.Models = append(resp.Models, types.ModelStatus{Name: name, State: string(StateLoading)})
		return true
	})
	sort.Slice(resp.Models, func(i, j int) bool { return resp.Models[i].Name < resp.Models[j].Name })
	return resp
}

// State reports the lifecycle state of name.
func (m *Manager) State(name string) State {
	d, err := m.catalog.Resolve(name)
	if err != nil {
		return StateUnloaded
	}
	if _, ok := m.loaded.Load(d.Name); ok {
		return StateReady
	}
	if _, ok := m.loading.Load(d.Name); ok {
		return StateLoading
	}
	return StateUnloaded
}
