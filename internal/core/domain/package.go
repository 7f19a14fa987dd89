package domain

import (
	"regexp"
	"strconv"
	"strings"

	"go.trai.ch/zerr"
)

var packageNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._+-]*$`)

// ValidatePackageName returns ErrInvalidPackageName unless name is lower case
// and made of letters, digits, '.', '_', '+' and '-'.
func ValidatePackageName(name string) error {
	if !packageNamePattern.MatchString(name) {
		return zerr.With(zerr.Wrap(ErrInvalidPackageName, strconv.Quote(name)), "package", name)
	}
	return nil
}

// Dependency is a declared edge from a package to another package.
type Dependency struct {
	// Name is the name of the required package.
	Name string

	// Constraint restricts the acceptable versions of the required package.
	Constraint Constraint

	// Optional dependencies are never installed on their own account, but
	// when the package is part of a solution its version must satisfy Constraint.
	Optional bool
}

// ParseDependency parses "name constraint" (for example "openssl >=3.0, <4").
// A missing constraint accepts any version.
func ParseDependency(s string) (Dependency, error) {
	s = strings.TrimSpace(s)
	name, rest, _ := strings.Cut(s, " ")
	if i := strings.IndexAny(name, "<>=!^~"); i > 0 {
		name, rest = name[:i], name[i:]+" "+rest
	}
	if err := ValidatePackageName(name); err != nil {
		return Dependency{}, err
	}
	c, err := ParseConstraint(rest)
	if err != nil {
		return Dependency{}, zerr.With(err, "dependency", name)
	}
	return Dependency{Name: name, Constraint: c}, nil
}

// String returns "name constraint".
func (d Dependency) String() string {
	if d.Constraint.IsAny() {
		return d.Name
	}
	return d.Name + " " + d.Constraint.String()
}

// PackageSpec describes one published version of a package.
// It is immutable once loaded.
type PackageSpec struct {
	// Name is the canonical package name (e.g., "openssl").
	Name string

	// Version is the published version.
	Version Version

	// Description is a one-line summary shown by info.
	Description string

	// URL locates the artifact.
	URL string

	// Hash is the content digest of the artifact (e.g., "sha256:...").
	Hash string

	// Dependencies lists the declared dependencies in declaration order.
	Dependencies []Dependency
}

// ID returns "name@version".
func (s *PackageSpec) ID() string {
	return s.Name + "@" + s.Version.String()
}

// HardDependencies returns the non-optional dependencies in declaration order.
func (s *PackageSpec) HardDependencies() []Dependency {
	out := make([]Dependency, 0, len(s.Dependencies))
	for _, d := range s.Dependencies {
		if !d.Optional {
			out = append(out, d)
		}
	}
	return out
}
