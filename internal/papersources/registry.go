package papersources

import (
	"sync"

	"github.com/Midirushi/paper-recommendation-system/internal/domain"
)

// Registry holds the configured paper sources. Registration and
// lookup are safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	sources map[domain.Source]PaperSource
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sources: make(map[domain.Source]PaperSource),
	}
}

// Register adds a source, replacing any existing source of the same
// identifier.
func (r *Registry) Register(source PaperSource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[source.Source()] = source
}

// Get returns a source by identifier, or nil when absent.
func (r *Registry) Get(id domain.Source) PaperSource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sources[id]
}

// EnabledSources returns a snapshot of the sources currently enabled.
func (r *Registry) EnabledSources() []PaperSource {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sources := make([]PaperSource, 0, len(r.sources))
	for _, source := range r.sources {
		if source.IsEnabled() {
			sources = append(sources, source)
		}
	}
	return sources
}

// EnabledIDs returns the identifiers of the enabled sources.
func (r *Registry) EnabledIDs() []domain.Source {
	sources := r.EnabledSources()
	ids := make([]domain.Source, len(sources))
	for i, source := range sources {
		ids[i] = source.Source()
	}
	return ids
}
