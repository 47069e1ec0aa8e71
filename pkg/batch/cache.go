package batch

import (
	"sync"

	"github.com/menta2k/frame-compositor/pkg/types"
)

type loadFunc func(path string) (*types.Template, types.Stage, error)

// templateCache decodes and analyzes every template at most once. Cached
// templates are shared read-only; work units clone the raster.
type templateCache struct {
	mu      sync.Mutex
	entries map[string]*templateEntry
	load    loadFunc
}

type templateEntry struct {
	once  sync.Once
	tpl   *types.Template
	stage types.Stage
	err   error
}

func newTemplateCache(load loadFunc) *templateCache {
	return &templateCache{
		entries: make(map[string]*templateEntry),
		load:    load,
	}
}

func (c *templateCache) get(path string) (*types.Template, types.Stage, error) {
	c.mu.Lock()
	e, ok := c.entries[path]
	if !ok {
		e = &templateEntry{}
		c.entries[path] = e
	}
	c.mu.Unlock()

	e.once.Do(func() {
		e.tpl, e.stage, e.err = c.load(path)
	})
	return e.tpl, e.stage, e.err
}
