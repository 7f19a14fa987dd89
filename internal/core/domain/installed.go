package domain

import (
	"slices"
	"time"
)

// DependencyRef is the persisted form of a Dependency.
type DependencyRef struct {
	Name       string `json:"name"`
	Constraint string `json:"constraint,omitzero"`
	Optional   bool   `json:"optional,omitzero"`
}

// InstalledRecord is the metadata of one installed package.
type InstalledRecord struct {
	Name        string          `json:"name"`
	Version     Version         `json:"version"`
	ContentHash string          `json:"content_hash"`
	TreeHash    string          `json:"tree_hash,omitzero"`
	InstallPath string          `json:"install_path"`
	InstalledAt time.Time       `json:"installed_at,omitzero"`
	Explicit    bool            `json:"explicit,omitzero"`
	Depends     []DependencyRef `json:"dependencies,omitzero"`
	Dependents  []string        `json:"dependents,omitzero"`
}

// NewInstalledRecord builds the record of spec installed at path.
func NewInstalledRecord(spec *PackageSpec, path, treeHash string, explicit bool, at time.Time) InstalledRecord {
	refs := make([]DependencyRef, 0, len(spec.Dependencies))
	for _, d := range spec.Dependencies {
		ref := DependencyRef{Name: d.Name, Optional: d.Optional}
		if !d.Constraint.IsAny() {
			ref.Constraint = d.Constraint.String()
		}
		refs = append(refs, ref)
	}
	return InstalledRecord{
		Name:        spec.Name,
		Version:     spec.Version,
		ContentHash: spec.Hash,
		TreeHash:    treeHash,
		InstallPath: path,
		InstalledAt: at,
		Explicit:    explicit,
		Depends:     refs,
	}
}

// HardDependencyNames returns the names of non-optional dependencies, sorted.
func (r *InstalledRecord) HardDependencyNames() []string {
	names := make([]string, 0, len(r.Depends))
	for _, d := range r.Depends {
		if !d.Optional {
			names = append(names, d.Name)
		}
	}
	slices.Sort(names)
	return slices.Compact(names)
}

// HasDependents reports whether other installed packages depend on r.
func (r *InstalledRecord) HasDependents() bool {
	return len(r.Dependents) > 0
}

// AddDependent inserts name into the dependents set.
func (r *InstalledRecord) AddDependent(name string) {
	i, found := slices.BinarySearch(r.Dependents, name)
	if !found {
		r.Dependents = slices.Insert(r.Dependents, i, name)
	}
}

// RemoveDependent deletes name from the dependents set.
func (r *InstalledRecord) RemoveDependent(name string) {
	if i, found := slices.BinarySearch(r.Dependents, name); found {
		r.Dependents = slices.Delete(r.Dependents, i, i+1)
	}
}

// Spec reconstructs the PackageSpec the record was installed from. The
// result has no URL and can only be kept, never reinstalled.
func (r *InstalledRecord) Spec() (PackageSpec, error) {
	deps := make([]Dependency, 0, len(r.Depends))
	for _, ref := range r.Depends {
		c, err := ParseConstraint(ref.Constraint)
		if err != nil {
			return PackageSpec{}, err
		}
		deps = append(deps, Dependency{Name: ref.Name, Constraint: c, Optional: ref.Optional})
	}
	return PackageSpec{
		Name:         r.Name,
		Version:      r.Version,
		Hash:         r.ContentHash,
		Dependencies: deps,
	}, nil
}

// clone returns a deep copy of r.
func (r InstalledRecord) clone() InstalledRecord {
	r.Depends = slices.Clone(r.Depends)
	r.Dependents = slices.Clone(r.Dependents)
	return r
}
