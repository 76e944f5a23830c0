// Package catalog holds the static, read-only list of configured models.
//
// Names are unique case-insensitively and keep their configured order, which is
// the order reported by Names and by the HTTP model listing.
package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// Defaults applied to descriptors that leave the field unset.
const (
	DefaultContextSize  = 4096
	DefaultMaxInstances = 1
)

// Descriptor describes one configured model. It is never mutated after the
// catalog is built.
type Descriptor struct {
	Name         string `json:"name"`
	Path         string `json:"path"`
	ContextSize  int    `json:"context_size"`
	MaxInstances int    `json:"max_instances"`
	GPULayers    int    `json:"gpu_layers"`
	Preload      bool   `json:"preload,omitempty"`
}

// Catalog is an ordered set of descriptors keyed by case-insensitive name.
type Catalog struct {
	models []Descriptor
	index  map[string]int
}

// Key normalizes a model name for lookups. Surrounding whitespace is
// significant; names are trimmed once when the catalog is built.
func Key(name string) string { return strings.ToLower(name) }

// New builds a catalog from descriptors in the given order. Empty names, empty
// paths and case-insensitive duplicates are rejected.
func New(models []Descriptor) (*Catalog, error) {
	c := &Catalog{
		models: make([]Descriptor, 0, len(models)),
		index:  make(map[string]int, len(models)),
	}
	for i, d := range models {
		d.Name = strings.TrimSpace(d.Name)
		if d.Name == "" {
			return nil, fmt.Errorf("model #%d: empty name", i)
		}
		if strings.TrimSpace(d.Path) == "" {
			return nil, fmt.Errorf("model %q: empty path", d.Name)
		}
		k := Key(d.Name)
		if _, dup := c.index[k]; dup {
			return nil, fmt.Errorf("model %q: duplicate name", d.Name)
		}
		if d.ContextSize <= 0 {
			d.ContextSize = DefaultContextSize
		}
		if d.MaxInstances <= 0 {
			d.MaxInstances = DefaultMaxInstances
		}
		c.index[k] = len(c.models)
		c.models = append(c.models, d)
	}
	return c, nil
}

// Resolve looks name up by case-insensitive exact match.
func (c *Catalog) Resolve(name string) (Descriptor, error) {
	if i, ok := c.index[Key(name)]; ok {
		return c.models[i], nil
	}
	return Descriptor{}, NotFoundError{Name: name, Known: c.Names()}
}

// Names returns every configured name in configured order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.models))
	for i, d := range c.models {
		out[i] = d.Name
	}
	return out
}

// Descriptors returns a copy of all descriptors in configured order.
func (c *Catalog) Descriptors() []Descriptor {
	out := make([]Descriptor, len(c.models))
	copy(out, c.models)
	return out
}

// Len reports the number of configured models.
func (c *Catalog) Len() int { return len(c.models) }

// NotFoundError is returned for names absent from the catalog.
type NotFoundError struct {
	Name  string
	Known []string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("model %q not found (available: %s)", e.Name, strings.Join(e.Known, ", "))
}

// IsNotFound reports whether err (or anything it wraps) is a NotFoundError.
func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}
