package market

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/mbeaufort/loadboard/core/model"
)

// StaticDirectory is an in-memory Directory fed from configuration or
// seeding. Profiles can be replaced wholesale but never mutated in place,
// matching the read-only contract of the engine.
type StaticDirectory struct {
	mu        sync.RWMutex
	providers map[string]model.Provider
}

// NewStaticDirectory creates a directory holding the given profiles.
func NewStaticDirectory(providers []model.Provider) *StaticDirectory {
	d := &StaticDirectory{providers: make(map[string]model.Provider, len(providers))}
	for _, p := range providers {
		d.providers[p.ID] = p
	}
	return d
}

// Put inserts or replaces a profile.
func (d *StaticDirectory) Put(p model.Provider) {
	d.mu.Lock()
	d.providers[p.ID] = p
	d.mu.Unlock()
}

func (d *StaticDirectory) Provider(_ context.Context, id string) (model.Provider, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.providers[id]
	if !ok {
		return model.Provider{}, fmt.Errorf("provider %s: %w", id, model.ErrNotFound)
	}
	return p, nil
}

func (d *StaticDirectory) List(_ context.Context) ([]model.Provider, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	res := make([]model.Provider, 0, len(d.providers))
	for _, p := range d.providers {
		res = append(res, p)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}
