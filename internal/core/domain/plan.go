package domain

import "strings"

// Action is the kind of change a plan step applies.
type Action string

const (
	// ActionInstall installs a package that is not installed.
	ActionInstall Action = "install"
	// ActionUpgrade replaces the installed version of a package.
	ActionUpgrade Action = "upgrade"
	// ActionRemove removes an installed package.
	ActionRemove Action = "remove"
	// ActionKeep leaves an installed package in place, marking it as explicitly requested.
	ActionKeep Action = "keep"
)

// Step is one operation of a plan.
type Step struct {
	Action Action
	Name   string

	// From is the installed version replaced or removed by the step.
	From Version

	// To is the version installed or kept by the step.
	To Version

	// Spec is the target spec of install, upgrade and keep steps.
	Spec *PackageSpec

	// Explicit marks packages requested by the user rather than pulled in as dependencies.
	Explicit bool
}

// String renders the step for reports, e.g. "upgrade b 1.0.0 -> 1.2.0".
func (s Step) String() string {
	var b strings.Builder
	b.WriteString(string(s.Action))
	b.WriteByte(' ')
	b.WriteString(s.Name)
	switch s.Action {
	case ActionInstall, ActionKeep:
		b.WriteString("@" + s.To.String())
	case ActionUpgrade:
		b.WriteString(" " + s.From.String() + " -> " + s.To.String())
	case ActionRemove:
		if !s.From.IsZero() {
			b.WriteString("@" + s.From.String())
		}
	}
	return b.String()
}

// Plan is an ordered sequence of steps. Installs and upgrades come after the
// steps of their dependencies; removals come before the removals of their
// dependencies.
type Plan struct {
	Steps []Step
}

// IsEmpty reports whether the plan has no steps.
func (p *Plan) IsEmpty() bool {
	return len(p.Steps) == 0
}

// Changes returns the number of steps that modify the store.
func (p *Plan) Changes() int {
	n := 0
	for _, s := range p.Steps {
		if s.Action != ActionKeep {
			n++
		}
	}
	return n
}

// Step returns the step for name, if any.
func (p *Plan) Step(name string) (Step, bool) {
	for _, s := range p.Steps {
		if s.Name == name {
			return s, true
		}
	}
	return Step{}, false
}

// Names returns the package names in step order.
func (p *Plan) Names() []string {
	out := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		out[i] = s.Name
	}
	return out
}
