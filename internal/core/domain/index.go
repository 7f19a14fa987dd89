package domain

import (
	"maps"
	"slices"
)

// IndexFormatVersion is the current metadata index format.
const IndexFormatVersion = 1

// Index is the metadata index of a store: every installed package by name.
// It is the single source of truth for what is installed.
type Index struct {
	// Version is the index format version.
	// This allows for future schema migrations and backward compatibility.
	Version int `json:"version"`

	// Packages maps package names to their installed records.
	Packages map[string]InstalledRecord `json:"packages"`
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{
		Version:  IndexFormatVersion,
		Packages: make(map[string]InstalledRecord),
	}
}

// Get returns the record for name.
func (ix *Index) Get(name string) (InstalledRecord, bool) {
	r, ok := ix.Packages[name]
	return r, ok
}

// Put stores r, replacing any previous record with the same name.
func (ix *Index) Put(r InstalledRecord) {
	if ix.Packages == nil {
		ix.Packages = make(map[string]InstalledRecord)
	}
	ix.Packages[r.Name] = r
}

// Delete removes the record for name.
func (ix *Index) Delete(name string) {
	delete(ix.Packages, name)
}

// Len returns the number of installed packages.
func (ix *Index) Len() int {
	return len(ix.Packages)
}

// Names returns the installed package names, sorted.
func (ix *Index) Names() []string {
	return slices.Sorted(maps.Keys(ix.Packages))
}

// Sorted returns the records ordered by name.
func (ix *Index) Sorted() []InstalledRecord {
	out := make([]InstalledRecord, 0, len(ix.Packages))
	for _, name := range ix.Names() {
		out = append(out, ix.Packages[name])
	}
	return out
}

// Clone returns a deep copy of the index.
func (ix *Index) Clone() *Index {
	c := &Index{Version: ix.Version, Packages: make(map[string]InstalledRecord, len(ix.Packages))}
	for name, r := range ix.Packages {
		c.Packages[name] = r.clone()
	}
	return c
}

// ReferencesHash reports whether any record other than except points at hash.
func (ix *Index) ReferencesHash(hash, except string) bool {
	for name, r := range ix.Packages {
		if name != except && r.ContentHash == hash {
			return true
		}
	}
	return false
}

// Attach stores r and links it into the dependents sets: r is added as a
// dependent of every installed hard dependency, dependencies it no longer has
// forget it, and r's own dependents are recomputed from the other records.
func (ix *Index) Attach(r InstalledRecord) {
	if old, ok := ix.Packages[r.Name]; ok {
		for _, dep := range old.HardDependencyNames() {
			ix.updateRecord(dep, func(d *InstalledRecord) { d.RemoveDependent(r.Name) })
		}
	}

	r.Dependents = nil
	for name, other := range ix.Packages {
		if name != r.Name && slices.Contains(other.HardDependencyNames(), r.Name) {
			r.AddDependent(name)
		}
	}
	ix.Put(r)

	for _, dep := range r.HardDependencyNames() {
		ix.updateRecord(dep, func(d *InstalledRecord) { d.AddDependent(r.Name) })
	}
}

// Detach removes the record for name and drops name from the dependents sets
// of its dependencies. Records that depended on name keep their declared
// dependencies.
func (ix *Index) Detach(name string) {
	r, ok := ix.Packages[name]
	if !ok {
		return
	}
	for _, dep := range r.HardDependencyNames() {
		ix.updateRecord(dep, func(d *InstalledRecord) { d.RemoveDependent(name) })
	}
	ix.Delete(name)
}

func (ix *Index) updateRecord(name string, fn func(*InstalledRecord)) {
	r, ok := ix.Packages[name]
	if !ok {
		return
	}
	r = r.clone()
	fn(&r)
	ix.Packages[name] = r
}

// Why returns every dependency chain that leads from an explicitly installed
// package to name. Each chain starts at the explicit package and ends at
// name. Chains are sorted for stable output.
func (ix *Index) Why(name string) [][]string {
	var chains [][]string
	var walk func(cur string, path []string)
	walk = func(cur string, path []string) {
		r, ok := ix.Packages[cur]
		if !ok {
			return
		}
		path = append([]string{cur}, path...)
		if r.Explicit {
			chains = append(chains, path)
		}
		for _, parent := range r.Dependents {
			if slices.Contains(path, parent) {
				continue
			}
			walk(parent, path)
		}
	}
	walk(name, nil)

	slices.SortFunc(chains, func(a, b []string) int {
		if c := len(a) - len(b); c != 0 {
			return c
		}
		return slices.Compare(a, b)
	})
	return chains
}
