package manager

import (
	"sync/atomic"
	"time"

	"chatd/internal/catalog"
)

// State represents the lifecycle state of a model name.
type State string

const (
	StateUnloaded State = "unloaded"
	StateLoading  State = "loading"
	StateReady    State = "ready"
)

// LoadedModel owns the weights and generation contexts for one catalog entry.
// At most one LoadedModel exists per name. It is created by GetOrLoad and
// destroyed only by Unload or Close.
type LoadedModel struct {
	Descriptor catalog.Descriptor
	LoadedAt   time.Time

	model Model
	// Admission: genCh holds one token per running generation (cap
	// MaxInstances); queueCh holds one per admitted request.
	genCh   chan struct{}
	queueCh chan struct{}
	maxWait time.Duration

	closing  atomic.Bool
	lastUsed atomic.Int64
}

func newLoadedModel(d catalog.Descriptor, mdl Model, queueDepth int, maxWait time.Duration) *LoadedModel {
	if queueDepth < d.MaxInstances {
		queueDepth = d.MaxInstances
	}
	lm := &LoadedModel{
		Descriptor: d,
		LoadedAt:   time.Now(),
		model:      mdl,
		genCh:      make(chan struct{}, d.MaxInstances),
		queueCh:    make(chan struct{}, queueDepth),
		maxWait:    maxWait,
	}
	lm.touch()
	return lm
}

// Name is the configured model name.
func (lm *LoadedModel) Name() string { return lm.Descriptor.Name }

// LastUsed reports when a generation last started on this model.
func (lm *LoadedModel) LastUsed() time.Time { return time.Unix(0, lm.lastUsed.Load()) }

// Running reports generations currently holding a slot.
func (lm *LoadedModel) Running() int { return len(lm.genCh) }

// Queued reports admitted requests, running or waiting.
func (lm *LoadedModel) Queued() int { return len(lm.queueCh) }

func (lm *LoadedModel) touch() { lm.lastUsed.Store(time.Now().UnixNano()) }
