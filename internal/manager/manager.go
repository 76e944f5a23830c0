package manager

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"chatd/internal/catalog"
)

// Manager is the lifecycle manager for model resources. All methods are safe
// for concurrent use.
type Manager struct {
	catalog *catalog.Catalog
	backend Backend
	log     zerolog.Logger

	// mu guards loaded mutations, active, publisher and closed.
	mu        sync.RWMutex
	loaded    *xsync.MapOf[string, *LoadedModel]
	active    string
	publisher EventPublisher
	closed    bool

	// opMu serializes SwitchActive and Unload.
	opMu sync.Mutex

	loads    singleflight.Group
	loading  *xsync.MapOf[string, time.Time]
	inflight *xsync.MapOf[string, *atomic.Int64]

	maxQueueDepth int
	maxWait       time.Duration

	loadsTotal   atomic.Uint64
	loadFailures atomic.Uint64
	unloadsTotal atomic.Uint64
	lastErr      atomic.Pointer[string]
	startTime    time.Time
}

// New constructs a Manager. Nothing is loaded until requested.
func New(cfg Config) *Manager {
	cfg = cfg.withDefaults()
	return &Manager{
		catalog:       cfg.Catalog,
		backend:       cfg.Backend,
		log:           cfg.Logger.With().Str("component", "manager").Logger(),
		loaded:        xsync.NewMapOf[string, *LoadedModel](),
		publisher:     cfg.Publisher,
		loading:       xsync.NewMapOf[string, time.Time](),
		inflight:      xsync.NewMapOf[string, *atomic.Int64](),
		maxQueueDepth: cfg.MaxQueueDepth,
		maxWait:       cfg.MaxWait,
		startTime:     time.Now(),
	}
}

// Resolve validates name against the catalog and returns its descriptor.
func (m *Manager) Resolve(name string) (catalog.Descriptor, error) {
	return m.catalog.Resolve(name)
}

// ListConfigured returns every configured name in configuration order.
func (m *Manager) ListConfigured() []string { return m.catalog.Names() }

// Active returns the active model name, or "" when none is selected.
func (m *Manager) Active() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active
}

// Ready reports whether an active model is selected and loaded.
func (m *Manager) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed || m.active == "" {
		return false
	}
	_, ok := m.loaded.Load(m.active)
	return ok
}

// Loaded returns the names of loaded models, sorted.
func (m *Manager) Loaded() []string {
	var out []string
	m.loaded.Range(func(name string, _ *LoadedModel) bool {
		out = append(out, name)
		return true
	})
	sort.Strings(out)
	return out
}

// IsLoaded reports whether name currently has loaded weights.
func (m *Manager) IsLoaded(name string) bool {
	d, err := m.catalog.Resolve(name)
	if err != nil {
		return false
	}
	_, ok := m.loaded.Load(d.Name)
	return ok
}

// InFlight reports outstanding leases for name.
func (m *Manager) InFlight(name string) int64 {
	d, err := m.catalog.Resolve(name)
	if err != nil {
		return 0
	}
	if c, ok := m.inflight.Load(d.Name); ok {
		return c.Load()
	}
	return 0
}

func (m *Manager) counter(name string) *atomic.Int64 {
	c, _ := m.inflight.LoadOrCompute(name, func() *atomic.Int64 { return new(atomic.Int64) })
	return c
}

func (m *Manager) isClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

func (m *Manager) setLastError(err error) {
	s := err.Error()
	m.lastErr.Store(&s)
}

// LlamaBuilt reports whether the in-process llama backend is compiled in.
func LlamaBuilt() bool { return llamaBuilt }
