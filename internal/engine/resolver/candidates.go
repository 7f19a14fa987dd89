package resolver

import (
	"context"
	"errors"
	"slices"

	"go.trai.ch/keg/internal/core/domain"
	"go.trai.ch/keg/internal/engine/manifest"
)

// candidateSet holds the versions of one package in preference order.
type candidateSet struct {
	specs    []*domain.PackageSpec
	notFound error
}

// candidates builds and memoizes candidate sets. The installed version of a
// package stays a candidate even when its formula no longer lists it.
type candidates struct {
	graph *manifest.Graph
	req   *Request
	sets  map[string]*candidateSet
}

func newCandidates(graph *manifest.Graph, req *Request) *candidates {
	return &candidates{graph: graph, req: req, sets: make(map[string]*candidateSet)}
}

func (c *candidates) get(ctx context.Context, name string) (*candidateSet, error) {
	if set, ok := c.sets[name]; ok {
		return set, nil
	}

	set := &candidateSet{}
	specs, err := c.graph.Candidates(ctx, name, domain.AnyConstraint())
	switch {
	case errors.Is(err, domain.ErrNotFound):
		set.notFound = err
	case err != nil:
		return nil, err
	}
	for i := range specs {
		set.specs = append(set.specs, &specs[i])
	}

	record, installed := c.req.Installed.Get(name)
	if installed {
		i := slices.IndexFunc(set.specs, func(s *domain.PackageSpec) bool { return s.Version.Equal(record.Version) })
		if i < 0 {
			kept, err := record.Spec()
			if err != nil {
				return nil, err
			}
			set.specs = append(set.specs, &kept)
			slices.SortStableFunc(set.specs, func(a, b *domain.PackageSpec) int { return b.Version.Compare(a.Version) })
			i = slices.IndexFunc(set.specs, func(s *domain.PackageSpec) bool { return s.Version.Equal(record.Version) })
		}
		if !c.req.prefersLatest(name) && i > 0 {
			current := set.specs[i]
			set.specs = slices.Delete(set.specs, i, i+1)
			set.specs = slices.Insert(set.specs, 0, current)
		}
	}
	if len(set.specs) > 0 {
		set.notFound = nil
	}

	c.sets[name] = set
	return set, nil
}

// satisfiable reports whether some candidate of name satisfies c.
func (c *candidates) satisfiable(ctx context.Context, name string, constraint domain.Constraint) (bool, error) {
	if constraint.IsEmpty() {
		return false, nil
	}
	set, err := c.get(ctx, name)
	if err != nil {
		return false, err
	}
	for _, s := range set.specs {
		if constraint.Satisfies(s.Version) {
			return true, nil
		}
	}
	return false, nil
}
