// Package sources defines the [Source] adapter contract and implements it for
// remote APIs, web pages, and local files.
//
// Adapters push discovered items into the channel supplied by the caller and
// never close it; the orchestrator owns channel lifecycle. Every send honours
// the context so a cancelled task never blocks an adapter goroutine.
package sources

import (
	"context"

	"github.com/textaudit/collector/internal/models"
)

// Source collects raw text items from one kind of target.
//
// Collect blocks until the source is exhausted, the configured item cap is
// reached, or ctx is cancelled. Implementations must not close out.
type Source interface {
	Kind() models.SourceKind
	Collect(ctx context.Context, src models.Source, config models.CollectionConfig, out chan<- models.RawItem) error
}

// Registry maps source kinds to their adapters.
type Registry struct {
	sources map[models.SourceKind]Source
}

// NewRegistry builds a registry from the given adapters.
func NewRegistry(sources ...Source) *Registry {
	m := make(map[models.SourceKind]Source, len(sources))
	for _, s := range sources {
		m[s.Kind()] = s
	}
	return &Registry{sources: m}
}

// Lookup returns the adapter registered for kind.
func (r *Registry) Lookup(kind models.SourceKind) (Source, bool) {
	s, ok := r.sources[kind]
	return s, ok
}

// Kinds returns the registered source kinds.
func (r *Registry) Kinds() []models.SourceKind {
	kinds := make([]models.SourceKind, 0, len(r.sources))
	for k := range r.sources {
		kinds = append(kinds, k)
	}
	return kinds
}

// push sends an item on out, giving up if ctx is cancelled first.
func push(ctx context.Context, out chan<- models.RawItem, item models.RawItem) error {
	select {
	case out <- item:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
