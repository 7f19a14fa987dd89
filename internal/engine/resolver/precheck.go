package resolver

import (
	"context"

	"go.trai.ch/keg/internal/core/domain"
)

// checkCycles rejects cycles of hard dependencies before the search starts.
// A package version takes part if some reachable spec (or a root) admits it,
// so the check is conservative: it may reject a cycle among versions that
// could never be chosen together.
func checkCycles(ctx context.Context, cands *candidates, roots []Root) error {
	g := domain.NewGraph()
	seen := make(map[string]bool)
	var queue []*domain.PackageSpec

	reach := func(name string, c domain.Constraint) error {
		set, err := cands.get(ctx, name)
		if err != nil {
			return err
		}
		g.AddNode(name)
		for _, s := range set.specs {
			if c.Satisfies(s.Version) && !seen[s.ID()] {
				seen[s.ID()] = true
				queue = append(queue, s)
			}
		}
		return nil
	}

	for _, root := range roots {
		if err := reach(root.Name, root.Constraint); err != nil {
			return err
		}
	}
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		s := queue[0]
		queue = queue[1:]
		for _, dep := range s.HardDependencies() {
			g.AddEdge(s.Name, dep.Name)
			if err := reach(dep.Name, dep.Constraint); err != nil {
				return err
			}
		}
	}

	return g.Validate()
}
