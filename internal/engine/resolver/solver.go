package resolver

import (
	"context"
	"maps"

	"go.trai.ch/keg/internal/core/domain"
	"go.trai.ch/zerr"
)

// frame is one decision: the package being decided and the state of the
// walk over its candidates.
type frame struct {
	name   string
	parent int // frame that introduced name, -1 for roots
	set    *candidateSet
	next   int
	chosen *domain.PackageSpec

	// conflicts holds the earlier decisions blamed for rejected candidates.
	conflicts map[string]bool
	// revisited is set once a later failure jumped back to this frame.
	revisited bool
	// last explains the most recent rejection.
	last *domain.Conflict
}

// solver runs a conflict-directed backjumping search. Packages are decided
// one at a time; when every candidate of a package is rejected, the search
// jumps back to the deepest decision that took part in the rejections
// instead of the chronologically previous one.
type solver struct {
	ctx   context.Context
	cands *candidates
	roots []Root

	rootConstraint map[string]domain.Constraint
	frames         []*frame
	level          map[string]int

	conflict *domain.Conflict
}

func newSolver(ctx context.Context, cands *candidates, roots []Root) *solver {
	s := &solver{
		ctx:            ctx,
		cands:          cands,
		roots:          roots,
		rootConstraint: make(map[string]domain.Constraint),
		level:          make(map[string]int),
	}
	for _, r := range roots {
		if c, ok := s.rootConstraint[r.Name]; ok {
			s.rootConstraint[r.Name] = c.Intersect(r.Constraint)
		} else {
			s.rootConstraint[r.Name] = r.Constraint
		}
	}
	return s
}

func (s *solver) solve() (map[string]*domain.PackageSpec, error) {
	for {
		if err := s.ctx.Err(); err != nil {
			return nil, err
		}

		if n := len(s.frames); n > 0 && s.frames[n-1].chosen == nil {
			ok, err := s.assign(s.frames[n-1])
			if err != nil {
				return nil, err
			}
			if !ok {
				if err := s.backjump(); err != nil {
					return nil, err
				}
			}
			continue
		}

		name, parent, ok := s.nextVariable()
		if !ok {
			return s.solution(), nil
		}
		set, err := s.cands.get(s.ctx, name)
		if err != nil {
			return nil, err
		}
		s.frames = append(s.frames, &frame{
			name:      name,
			parent:    parent,
			set:       set,
			conflicts: make(map[string]bool),
		})
	}
}

// nextVariable returns the first undecided package, looking at the roots in
// order and then at the hard dependencies of each decision in order.
func (s *solver) nextVariable() (string, int, bool) {
	for _, r := range s.roots {
		if _, ok := s.level[r.Name]; !ok {
			return r.Name, -1, true
		}
	}
	for i, f := range s.frames {
		for _, dep := range f.chosen.HardDependencies() {
			if _, ok := s.level[dep.Name]; !ok {
				return dep.Name, i, true
			}
		}
	}
	return "", 0, false
}

// assign picks the next consistent candidate for f.
func (s *solver) assign(f *frame) (bool, error) {
	idx := len(s.frames) - 1
	for f.next < len(f.set.specs) {
		c := f.set.specs[f.next]
		f.next++

		conflict, blame, err := s.check(f, c)
		if err != nil {
			return false, err
		}
		if conflict == nil {
			f.chosen = c
			s.level[f.name] = idx
			return true, nil
		}
		for _, name := range blame {
			f.conflicts[name] = true
		}
		f.last = conflict
	}
	return false, nil
}

// check tests candidate c of f against the decisions made so far and looks
// ahead at its undecided hard dependencies. On rejection it returns the
// conflict and the decisions responsible.
func (s *solver) check(f *frame, c *domain.PackageSpec) (*domain.Conflict, []string, error) {
	if rc, ok := s.rootConstraint[f.name]; ok && !rc.Satisfies(c.Version) {
		return s.conflictOn(f.name, nil), nil, nil
	}

	for _, g := range s.decided() {
		if dep, ok := dependencyOn(g.chosen, f.name); ok && !dep.Constraint.Satisfies(c.Version) {
			return s.conflictOn(f.name, nil), []string{g.name}, nil
		}
	}

	for _, dep := range c.Dependencies {
		gi, decided := s.level[dep.Name]
		if !decided {
			continue
		}
		g := s.frames[gi]
		if !dep.Constraint.Satisfies(g.chosen.Version) {
			return s.conflictOn(dep.Name, s.extra(f, c, dep)), []string{g.name}, nil
		}
	}

	for _, dep := range c.HardDependencies() {
		if _, decided := s.level[dep.Name]; decided {
			continue
		}
		constraint := s.constraintOn(dep.Name).Intersect(dep.Constraint)
		ok, err := s.cands.satisfiable(s.ctx, dep.Name, constraint)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			return s.conflictOn(dep.Name, s.extra(f, c, dep)), s.requirersOf(dep.Name, false), nil
		}
	}

	return nil, nil, nil
}

// backjump handles the exhaustion of the top frame.
func (s *solver) backjump() error {
	i := len(s.frames) - 1
	f := s.frames[i]

	if !f.revisited {
		if f.last != nil {
			s.conflict = f.last
		} else {
			s.conflict = s.conflictOn(f.name, nil)
		}
	}

	conf := maps.Clone(f.conflicts)
	for _, name := range s.requirersOf(f.name, true) {
		conf[name] = true
	}
	delete(conf, f.name)
	if len(conf) == 0 {
		return s.failure()
	}

	h := -1
	for name := range conf {
		h = max(h, s.level[name])
	}
	target := s.frames[h]
	for name := range conf {
		if name != target.name {
			target.conflicts[name] = true
		}
	}

	for _, g := range s.frames[h:] {
		if g.chosen != nil {
			delete(s.level, g.name)
		}
	}
	target.chosen = nil
	target.revisited = true
	s.frames = s.frames[:h+1]
	return nil
}

func (s *solver) failure() error {
	c := s.conflict
	if set := s.cands.sets[c.Package]; set != nil && set.notFound != nil {
		var requirers []string
		for _, r := range c.Requirements {
			requirers = append(requirers, r.Requirer)
		}
		return zerr.With(set.notFound, "required_by", requirers)
	}
	err := zerr.With(zerr.Wrap(domain.ErrUnsatisfiable, c.String()), "package", c.Package)
	return zerr.With(err, "conflict", *c)
}

func (s *solver) solution() map[string]*domain.PackageSpec {
	out := make(map[string]*domain.PackageSpec, len(s.frames))
	for _, f := range s.frames {
		out[f.name] = f.chosen
	}
	return out
}

// decided returns the frames with a chosen candidate.
func (s *solver) decided() []*frame {
	out := make([]*frame, 0, len(s.frames))
	for _, f := range s.frames {
		if f.chosen != nil {
			out = append(out, f)
		}
	}
	return out
}

// constraintOn intersects every constraint the roots and the decisions so
// far place on name.
func (s *solver) constraintOn(name string) domain.Constraint {
	c, ok := s.rootConstraint[name]
	if !ok {
		c = domain.AnyConstraint()
	}
	for _, g := range s.decided() {
		if dep, ok := dependencyOn(g.chosen, name); ok {
			c = c.Intersect(dep.Constraint)
		}
	}
	return c
}

// requirersOf returns the decisions that depend on name.
func (s *solver) requirersOf(name string, hardOnly bool) []string {
	var out []string
	for _, g := range s.decided() {
		if dep, ok := dependencyOn(g.chosen, name); ok && (!hardOnly || !dep.Optional) {
			out = append(out, g.name)
		}
	}
	return out
}

// conflictOn lists every requirement on name, plus extra if given.
func (s *solver) conflictOn(name string, extra *domain.Requirement) *domain.Conflict {
	conflict := &domain.Conflict{Package: name}
	for _, r := range s.roots {
		if r.Name == name {
			conflict.Requirements = append(conflict.Requirements, domain.Requirement{
				Requirer:   domain.RequestRequirer,
				Constraint: r.Constraint,
				Chain:      []string{domain.RequestRequirer},
			})
		}
	}
	for i, g := range s.frames {
		if g.chosen == nil {
			continue
		}
		if dep, ok := dependencyOn(g.chosen, name); ok {
			conflict.Requirements = append(conflict.Requirements, domain.Requirement{
				Requirer:   g.chosen.ID(),
				Constraint: dep.Constraint,
				Chain:      s.chain(i),
			})
		}
	}
	if extra != nil {
		conflict.Requirements = append(conflict.Requirements, *extra)
	}
	return conflict
}

// extra is the requirement candidate c of f would place through dep.
func (s *solver) extra(f *frame, c *domain.PackageSpec, dep domain.Dependency) *domain.Requirement {
	var chain []string
	if f.parent >= 0 {
		chain = s.chain(f.parent)
	}
	return &domain.Requirement{
		Requirer:   c.ID(),
		Constraint: dep.Constraint,
		Chain:      append(chain, c.ID()),
	}
}

// chain returns the decisions from a root down to frame i.
func (s *solver) chain(i int) []string {
	var out []string
	for ; i >= 0; i = s.frames[i].parent {
		out = append([]string{s.frames[i].chosen.ID()}, out...)
	}
	return out
}

func dependencyOn(spec *domain.PackageSpec, name string) (domain.Dependency, bool) {
	for _, d := range spec.Dependencies {
		if d.Name == name {
			return d, true
		}
	}
	return domain.Dependency{}, false
}
