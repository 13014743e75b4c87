package container

import (
	"sync"
	"sync/atomic"

	"github.com/km-arc/go-inject/framework/types"
)

// deferral holds back a module until one of the types it provides is
// requested.
type deferral struct {
	provides []types.TypeIdentifier
	register func() (boot bool, err error)
	boot     func() error

	mu     sync.Mutex
	loaded atomic.Bool
}

func (d *deferral) covers(id types.TypeIdentifier) bool {
	for _, t := range d.provides {
		if id.IsAssignableFrom(t) {
			return true
		}
	}
	return false
}

// load registers the module once. A failed registration is retried on the
// next request. The caller that registered also boots, outside the lock, so
// Boot may resolve the module's own types.
func (d *deferral) load() error {
	if d.loaded.Load() {
		return nil
	}

	d.mu.Lock()
	if d.loaded.Load() {
		d.mu.Unlock()
		return nil
	}
	boot, err := d.register()
	if err != nil {
		d.mu.Unlock()
		return err
	}
	d.loaded.Store(true)
	d.mu.Unlock()

	if boot {
		return d.boot()
	}
	return nil
}

func (r *Registry) deferUntil(d *deferral) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deferred = append(r.deferred, d)
}

// loadDeferred registers every pending module providing something assignable
// to id.
func (r *Registry) loadDeferred(id types.TypeIdentifier) error {
	if id.IsZero() {
		return nil
	}

	r.mu.RLock()
	var due []*deferral
	for _, d := range r.deferred {
		if !d.loaded.Load() && d.covers(id) {
			due = append(due, d)
		}
	}
	r.mu.RUnlock()

	for _, d := range due {
		if err := d.load(); err != nil {
			return &ResolutionError{Kind: ErrInstantiation, Type: id, Err: err}
		}
	}
	return nil
}
