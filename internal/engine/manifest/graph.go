// Package manifest exposes package formulae as a cached dependency graph.
package manifest

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"go.trai.ch/keg/internal/core/domain"
	"go.trai.ch/keg/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/singleflight"
)

// Graph gives read-only access to package specs and their dependency edges.
// Specs are loaded once per name and cached for the life of the Graph.
type Graph struct {
	source ports.ManifestSource
	group  singleflight.Group

	mu    sync.RWMutex
	cache map[string]*entry
}

// entry holds every published version of one package, ascending.
type entry struct {
	specs     []domain.PackageSpec
	versions  []domain.Version
	byVersion map[string]int
	err       error
}

// NewGraph creates a Graph backed by source.
func NewGraph(source ports.ManifestSource) *Graph {
	return &Graph{
		source: source,
		cache:  make(map[string]*entry),
	}
}

// LoadSpec returns the highest version of name satisfying c.
//
// It fails with domain.ErrNotFound if no formula exists or no version
// satisfies c, and with domain.ErrMalformedManifest if the formula is invalid.
func (g *Graph) LoadSpec(ctx context.Context, name string, c domain.Constraint) (domain.PackageSpec, error) {
	candidates, err := g.Candidates(ctx, name, c)
	if err != nil {
		return domain.PackageSpec{}, err
	}
	if len(candidates) == 0 {
		versions, _ := g.Versions(ctx, name)
		available := make([]string, len(versions))
		for i, v := range versions {
			available[i] = v.String()
		}
		err := zerr.With(zerr.Wrap(domain.ErrNotFound, "no version of "+name+" satisfies "+c.String()), "package", name)
		err = zerr.With(err, "constraint", c.String())
		return domain.PackageSpec{}, zerr.With(err, "available", strings.Join(available, ", "))
	}
	return candidates[0], nil
}

// EdgesOf returns the declared dependencies of spec in declaration order.
func (g *Graph) EdgesOf(spec *domain.PackageSpec) []domain.Dependency {
	return slices.Clone(spec.Dependencies)
}

// Candidates returns the specs of name satisfying c, highest version first.
// An empty result is not an error.
func (g *Graph) Candidates(ctx context.Context, name string, c domain.Constraint) ([]domain.PackageSpec, error) {
	e, err := g.load(ctx, name)
	if err != nil {
		return nil, err
	}

	matching := c.Select(e.versions)
	out := make([]domain.PackageSpec, 0, len(matching))
	for _, v := range slices.Backward(matching) {
		out = append(out, e.specs[e.byVersion[v.String()]])
	}
	return out, nil
}

// Versions returns every published version of name, ascending.
func (g *Graph) Versions(ctx context.Context, name string) ([]domain.Version, error) {
	e, err := g.load(ctx, name)
	if err != nil {
		return nil, err
	}
	return slices.Clone(e.versions), nil
}

// Spec returns the spec of name at exactly v.
func (g *Graph) Spec(ctx context.Context, name string, v domain.Version) (domain.PackageSpec, bool, error) {
	e, err := g.load(ctx, name)
	if err != nil {
		return domain.PackageSpec{}, false, err
	}
	i, ok := e.byVersion[v.String()]
	if !ok {
		return domain.PackageSpec{}, false, nil
	}
	return e.specs[i], true, nil
}

func (g *Graph) load(ctx context.Context, name string) (*entry, error) {
	g.mu.RLock()
	e, ok := g.cache[name]
	g.mu.RUnlock()
	if ok {
		return e, e.err
	}

	v, err, _ := g.group.Do(name, func() (any, error) {
		specs, err := g.source.Load(ctx, name)
		if err != nil {
			// Cancellation says nothing about the formula, so it is not cached.
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			e := &entry{err: err}
			g.store(name, e)
			return e, nil
		}
		e := newEntry(specs)
		g.store(name, e)
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	e = v.(*entry) //nolint:forcetypeassert // only *entry is returned above
	return e, e.err
}

func (g *Graph) store(name string, e *entry) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cache[name] = e
}

func newEntry(specs []domain.PackageSpec) *entry {
	specs = slices.Clone(specs)
	slices.SortStableFunc(specs, func(a, b domain.PackageSpec) int {
		return a.Version.Compare(b.Version)
	})
	e := &entry{
		specs:     specs,
		versions:  make([]domain.Version, len(specs)),
		byVersion: make(map[string]int, len(specs)),
	}
	for i, s := range specs {
		e.versions[i] = s.Version
		e.byVersion[s.Version.String()] = i
	}
	return e
}
