package analyzer

import (
	"fmt"
	"sync"

	"DeSynth/pkg/models"
)

// Registry is a container for the analyzers of a pipeline
type Registry struct {
	analyzers map[models.Module]Analyzer
	mu        sync.RWMutex
}

// NewRegistry creates a new analyzer registry
func NewRegistry() *Registry {
	return &Registry{
		analyzers: make(map[models.Module]Analyzer),
	}
}

// Register adds an analyzer to the registry, replacing any analyzer of the same module
func (r *Registry) Register(a Analyzer) error {
	m := a.Module()
	if m == models.ModuleFinal || !m.Valid() {
		return fmt.Errorf("cannot register analyzer for module %q", m)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.analyzers[m] = a
	return nil
}

// Get returns the analyzer for a module
func (r *Registry) Get(m models.Module) (Analyzer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.analyzers[m]
	return a, ok
}

// Modules returns the registered modules in pipeline order
func (r *Registry) Modules() []models.Module {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var modules []models.Module
	for _, m := range models.AllModules {
		if _, ok := r.analyzers[m]; ok {
			modules = append(modules, m)
		}
	}
	return modules
}
