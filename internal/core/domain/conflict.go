package domain

import (
	"strings"
)

// RequestRequirer names the user request as the source of a requirement.
const RequestRequirer = "<request>"

// Requirement is one constraint placed on a package during resolution.
type Requirement struct {
	// Requirer is "name@version" of the package that declared the dependency,
	// or RequestRequirer for the packages named on the command line.
	Requirer string

	// Constraint is the declared constraint.
	Constraint Constraint

	// Chain is the path of requirers from a requested package down to
	// Requirer, e.g. ["a@1.0.0", "b@1.2.0"].
	Chain []string
}

// String renders "a@1.0.0 requires c ==2.0".
func (r Requirement) String(pkg string) string {
	dep := Dependency{Name: pkg, Constraint: r.Constraint}
	return r.Requirer + " requires " + dep.String()
}

// Conflict explains why no version of Package could be chosen.
type Conflict struct {
	Package      string
	Requirements []Requirement
}

// String renders the conflict on one line, e.g.
// "c: a@1.0.0 requires c ==2.0; b@1.0.0 requires c ==1.0".
func (c Conflict) String() string {
	parts := make([]string, len(c.Requirements))
	for i, r := range c.Requirements {
		parts[i] = r.String(c.Package)
	}
	return c.Package + ": " + strings.Join(parts, "; ")
}

// Lines renders each requirement with its full requirer chain, one per line.
func (c Conflict) Lines() []string {
	lines := make([]string, len(c.Requirements))
	for i, r := range c.Requirements {
		chain := append(append([]string(nil), r.Chain...), c.Package)
		lines[i] = strings.Join(chain, " -> ") + " (" + r.Constraint.String() + ")"
	}
	return lines
}
