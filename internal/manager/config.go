package manager

import (
	"time"

	"github.com/rs/zerolog"

	"chatd/internal/catalog"
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultMaxQueueDepth = 32
	defaultMaxWait       = 30 * time.Second
)

// Config encapsulates all tunables for Manager construction.
type Config struct {
	Catalog *catalog.Catalog
	Backend Backend
	// MaxQueueDepth bounds requests admitted per model (running plus waiting).
	MaxQueueDepth int
	// MaxWait bounds how long a request waits for a generation slot.
	MaxWait   time.Duration
	Logger    *zerolog.Logger
	Publisher EventPublisher
}

func (c Config) withDefaults() Config {
	if c.MaxQueueDepth <= 0 {
		c.MaxQueueDepth = defaultMaxQueueDepth
	}
	if c.MaxWait <= 0 {
		c.MaxWait = defaultMaxWait
	}
	if c.Catalog == nil {
		c.Catalog, _ = catalog.New(nil)
	}
	if c.Backend == nil {
		c.Backend = NewLlamaBackend(0)
	}
	if c.Logger == nil {
		nop := zerolog.Nop()
		c.Logger = &nop
	}
	if c.Publisher == nil {
		c.Publisher = noopPublisher{}
	}
	return c
}
