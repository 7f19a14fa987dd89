package resolver

import (
	"slices"

	"go.trai.ch/keg/internal/core/domain"
)

// Root is a package the caller asks for.
type Root struct {
	Name       string
	Constraint domain.Constraint

	// Explicit marks the package as requested by the user. Explicit roots
	// that are already installed at the chosen version yield a Keep step.
	Explicit bool
}

// Request is the input of a resolution.
type Request struct {
	// Roots are the requested packages, in request order.
	Roots []Root

	// Installed is the current metadata index. Nil means nothing is installed.
	Installed *domain.Index

	// Policy selects the preferred version of packages that are not upgrade targets.
	Policy domain.Policy

	// Upgrade lists packages that prefer their newest satisfying version
	// regardless of Policy.
	Upgrade []string

	// UpgradeAll makes every package prefer its newest satisfying version.
	UpgradeAll bool
}

func (r *Request) prefersLatest(name string) bool {
	return r.Policy == domain.PolicyLatest || r.UpgradeAll || slices.Contains(r.Upgrade, name)
}

// RemoveOptions tunes removal planning.
type RemoveOptions struct {
	// Force removes packages even if other installed packages depend on them.
	Force bool

	// Autoremove also removes dependencies that were installed implicitly
	// and are needed by nothing else once the targets are gone.
	Autoremove bool
}
