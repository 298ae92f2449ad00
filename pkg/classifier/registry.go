package classifier

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"DeSynth/pkg/models"
)

// Registry is a Classifier that dispatches to registered backends by model id
type Registry struct {
	backends map[string]Backend
	mu       sync.RWMutex
}

// NewRegistry creates a registry holding the given backends
func NewRegistry(backends ...Backend) *Registry {
	r := &Registry{
		backends: make(map[string]Backend),
	}
	for _, b := range backends {
		r.Register(b)
	}
	return r
}

// Register adds a backend, replacing any backend with the same name
func (r *Registry) Register(b Backend) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.backends[b.Name()] = b
}

// GetBackendByName finds the backend serving a model
func (r *Registry) GetBackendByName(name string) Backend {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.backends[name]
}

// Models returns the registered model ids, sorted
func (r *Registry) Models() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Classify dispatches to the named backend
func (r *Registry) Classify(ctx context.Context, model string, data []byte) (models.Vote, error) {
	b := r.GetBackendByName(model)
	if b == nil {
		return models.Vote{}, fmt.Errorf("%w: %s", ErrUnknownModel, model)
	}
	return b.Classify(ctx, data)
}
