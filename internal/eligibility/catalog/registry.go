package catalog

import (
	"errors"
	"sync/atomic"
)

// Loader produces a fresh catalog, typically LoadEmbedded or a LoadFile closure.
type Loader func() (*Catalog, error)

// Registry publishes the active catalog. Readers take one snapshot per
// screening with Current; reloads replace the whole catalog at once.
type Registry struct {
	current atomic.Pointer[Catalog]
}

// NewRegistry returns a registry serving c. c must not be nil.
func NewRegistry(c *Catalog) *Registry {
	if c == nil {
		panic("catalog: NewRegistry with nil catalog")
	}
	r := &Registry{}
	r.current.Store(c)
	return r
}

// Current returns the active catalog.
func (r *Registry) Current() *Catalog {
	return r.current.Load()
}

// Swap installs c and returns the catalog it replaced.
func (r *Registry) Swap(c *Catalog) (*Catalog, error) {
	if c == nil {
		return nil, errors.New("catalog: cannot swap in a nil catalog")
	}
	return r.current.Swap(c), nil
}

// Reload runs load and swaps in the result. On failure the active catalog is
// left untouched.
func (r *Registry) Reload(load Loader) (*Catalog, error) {
	c, err := load()
	if err != nil {
		return nil, err
	}
	if _, err := r.Swap(c); err != nil {
		return nil, err
	}
	return c, nil
}
