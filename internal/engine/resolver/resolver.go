// Package resolver computes installation and removal plans.
package resolver

import (
	"context"
	"maps"
	"slices"
	"strings"

	"go.trai.ch/keg/internal/core/domain"
	"go.trai.ch/keg/internal/engine/manifest"
	"go.trai.ch/zerr"
)

// Resolver turns requests into topologically ordered plans.
type Resolver struct {
	graph *manifest.Graph
}

// New creates a Resolver reading specs from graph.
func New(graph *manifest.Graph) *Resolver {
	return &Resolver{graph: graph}
}

// Resolve chooses a version for every requested package and its hard
// dependencies, consistent with every declared constraint, and returns the
// steps that bring the installed set to that choice.
//
// Installed explicit packages take part in the resolution so the result stays
// consistent with them. Implicit dependencies the new versions no longer need
// are removed at the end of the plan. Resolve never changes any state.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*domain.Plan, error) {
	if req.Installed == nil {
		req.Installed = domain.NewIndex()
	}
	if req.Policy == "" {
		req.Policy = domain.PolicyMinimalChurn
	}
	for _, root := range req.Roots {
		if err := domain.ValidatePackageName(root.Name); err != nil {
			return nil, err
		}
	}

	cands := newCandidates(r.graph, &req)
	for _, root := range req.Roots {
		if err := r.checkRoot(ctx, cands, root); err != nil {
			return nil, err
		}
	}

	roots := withInstalledRoots(req.Roots, req.Installed)
	if err := checkCycles(ctx, cands, roots); err != nil {
		return nil, err
	}

	selected, err := newSolver(ctx, cands, roots).solve()
	if err != nil {
		return nil, err
	}
	return buildPlan(selected, &req)
}

// checkRoot fails with domain.ErrNotFound if no version of root can satisfy
// its constraint.
func (r *Resolver) checkRoot(ctx context.Context, cands *candidates, root Root) error {
	set, err := cands.get(ctx, root.Name)
	if err != nil {
		return err
	}
	if set.notFound != nil {
		return set.notFound
	}
	for _, s := range set.specs {
		if root.Constraint.Satisfies(s.Version) {
			return nil
		}
	}
	if _, err := r.graph.LoadSpec(ctx, root.Name, root.Constraint); err != nil {
		return err
	}
	return zerr.With(zerr.Wrap(domain.ErrNotFound, "no version of "+root.Name+" satisfies "+root.Constraint.String()), "package", root.Name)
}

// withInstalledRoots appends installed explicit packages that were not
// requested, sorted by name.
func withInstalledRoots(requested []Root, installed *domain.Index) []Root {
	roots := slices.Clone(requested)
	for _, rec := range installed.Sorted() {
		if !rec.Explicit {
			continue
		}
		if slices.ContainsFunc(requested, func(r Root) bool { return r.Name == rec.Name }) {
			continue
		}
		roots = append(roots, Root{Name: rec.Name, Constraint: domain.AnyConstraint()})
	}
	return roots
}

func buildPlan(selected map[string]*domain.PackageSpec, req *Request) (*domain.Plan, error) {
	g := domain.NewGraph()
	for name, spec := range selected {
		g.AddNode(name)
		for _, dep := range spec.HardDependencies() {
			if _, ok := selected[dep.Name]; ok {
				g.AddEdge(name, dep.Name)
			}
		}
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}

	explicit := make(map[string]bool)
	for _, root := range req.Roots {
		explicit[root.Name] = explicit[root.Name] || root.Explicit
	}

	plan := &domain.Plan{}
	for name := range g.Walk() {
		spec := selected[name]
		rec, installed := req.Installed.Get(name)
		switch {
		case !installed:
			plan.Steps = append(plan.Steps, domain.Step{
				Action:   domain.ActionInstall,
				Name:     name,
				To:       spec.Version,
				Spec:     spec,
				Explicit: explicit[name],
			})
		case !rec.Version.Equal(spec.Version):
			plan.Steps = append(plan.Steps, domain.Step{
				Action:   domain.ActionUpgrade,
				Name:     name,
				From:     rec.Version,
				To:       spec.Version,
				Spec:     spec,
				Explicit: explicit[name] || rec.Explicit,
			})
		case explicit[name]:
			plan.Steps = append(plan.Steps, domain.Step{
				Action:   domain.ActionKeep,
				Name:     name,
				From:     rec.Version,
				To:       rec.Version,
				Spec:     spec,
				Explicit: true,
			})
		}
	}

	removals, err := orphanRemovals(selected, req.Installed)
	if err != nil {
		return nil, err
	}
	plan.Steps = append(plan.Steps, removals...)
	return plan, nil
}

// orphanRemovals returns remove steps, dependents first, for implicitly
// installed packages that the new selection no longer needs. A package is an
// orphan when every package depending on it is either selected or an orphan
// itself. Packages that had no dependents before the plan are left alone.
func orphanRemovals(selected map[string]*domain.PackageSpec, installed *domain.Index) ([]domain.Step, error) {
	orphans := make(map[string]bool)
	for changed := true; changed; {
		changed = false
		for _, rec := range installed.Sorted() {
			if rec.Explicit || selected[rec.Name] != nil || orphans[rec.Name] || !rec.HasDependents() {
				continue
			}
			dropped := !slices.ContainsFunc(rec.Dependents, func(d string) bool {
				return selected[d] == nil && !orphans[d]
			})
			if dropped {
				orphans[rec.Name] = true
				changed = true
			}
		}
	}
	if len(orphans) == 0 {
		return nil, nil
	}

	g := domain.NewGraph()
	for name := range orphans {
		g.AddNode(name)
		rec, _ := installed.Get(name)
		for _, dep := range rec.HardDependencyNames() {
			if orphans[dep] {
				g.AddEdge(name, dep)
			}
		}
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}

	var steps []domain.Step
	for name := range g.WalkReverse() {
		rec, _ := installed.Get(name)
		steps = append(steps, domain.Step{
			Action: domain.ActionRemove,
			Name:   name,
			From:   rec.Version,
		})
	}
	return steps, nil
}

// PlanRemoval returns the steps removing names from the installed set,
// dependents first. It fails with domain.ErrHasDependents if a package that
// stays installed depends on a target, unless opts.Force is set.
func (r *Resolver) PlanRemoval(installed *domain.Index, names []string, opts RemoveOptions) (*domain.Plan, error) {
	if installed == nil {
		installed = domain.NewIndex()
	}

	targets := make(map[string]bool, len(names))
	for _, name := range names {
		if _, ok := installed.Get(name); !ok {
			return nil, zerr.With(zerr.Wrap(domain.ErrNotInstalled, name), "package", name)
		}
		targets[name] = true
	}

	for _, name := range slices.Sorted(maps.Keys(targets)) {
		rec, _ := installed.Get(name)
		var live []string
		for _, dependent := range rec.Dependents {
			if !targets[dependent] {
				live = append(live, dependent)
			}
		}
		if len(live) > 0 && !opts.Force {
			err := zerr.With(zerr.Wrap(domain.ErrHasDependents, name+" is required by "+strings.Join(live, ", ")), "package", name)
			return nil, zerr.With(err, "dependents", live)
		}
	}

	if opts.Autoremove {
		autoremove(installed, targets)
	}

	g := domain.NewGraph()
	for name := range targets {
		g.AddNode(name)
		rec, _ := installed.Get(name)
		for _, dep := range rec.HardDependencyNames() {
			if targets[dep] {
				g.AddEdge(name, dep)
			}
		}
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}

	plan := &domain.Plan{}
	for name := range g.WalkReverse() {
		rec, _ := installed.Get(name)
		plan.Steps = append(plan.Steps, domain.Step{
			Action: domain.ActionRemove,
			Name:   name,
			From:   rec.Version,
		})
	}
	return plan, nil
}

// autoremove adds to targets every implicitly installed dependency whose
// dependents are all being removed.
func autoremove(installed *domain.Index, targets map[string]bool) {
	for changed := true; changed; {
		changed = false
		for _, name := range slices.Sorted(maps.Keys(targets)) {
			rec, _ := installed.Get(name)
			for _, dep := range rec.HardDependencyNames() {
				depRec, ok := installed.Get(dep)
				if !ok || targets[dep] || depRec.Explicit {
					continue
				}
				if !slices.ContainsFunc(depRec.Dependents, func(d string) bool { return !targets[d] }) {
					targets[dep] = true
					changed = true
				}
			}
		}
	}
}
