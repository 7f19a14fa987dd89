package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/keg/internal/core/domain"
)

func record(name, version string, explicit bool, deps ...string) domain.InstalledRecord {
	refs := make([]domain.DependencyRef, 0, len(deps))
	for _, d := range deps {
		refs = append(refs, domain.DependencyRef{Name: d})
	}
	return domain.InstalledRecord{
		Name:        name,
		Version:     domain.MustParseVersion(version),
		ContentHash: "sha256:" + name + version,
		Explicit:    explicit,
		Depends:     refs,
	}
}

func TestIndex_AttachMaintainsDependents(t *testing.T) {
	ix := domain.NewIndex()
	ix.Attach(record("c", "2.0.0", false))
	ix.Attach(record("b", "1.2.0", false, "c"))
	ix.Attach(record("a", "1.0.0", true, "b"))

	c, _ := ix.Get("c")
	b, _ := ix.Get("b")
	a, _ := ix.Get("a")
	assert.Equal(t, []string{"b"}, c.Dependents)
	assert.Equal(t, []string{"a"}, b.Dependents)
	assert.Empty(t, a.Dependents)
	assert.Equal(t, []string{"a", "b", "c"}, ix.Names())
}

func TestIndex_AttachBeforeDependency(t *testing.T) {
	ix := domain.NewIndex()
	ix.Attach(record("a", "1.0.0", true, "b"))
	ix.Attach(record("b", "1.0.0", false))

	b, _ := ix.Get("b")
	assert.Equal(t, []string{"a"}, b.Dependents)
}

func TestIndex_AttachReplacesDependencies(t *testing.T) {
	ix := domain.NewIndex()
	ix.Attach(record("c", "1.0.0", false))
	ix.Attach(record("d", "1.0.0", false))
	ix.Attach(record("b", "1.0.0", false, "c"))

	// the upgraded b depends on d instead of c
	ix.Attach(record("b", "2.0.0", false, "d"))

	c, _ := ix.Get("c")
	d, _ := ix.Get("d")
	assert.Empty(t, c.Dependents)
	assert.Equal(t, []string{"b"}, d.Dependents)
}

func TestIndex_AttachIgnoresOptional(t *testing.T) {
	ix := domain.NewIndex()
	ix.Attach(record("e", "1.0.0", false))
	r := record("a", "1.0.0", true)
	r.Depends = []domain.DependencyRef{{Name: "e", Constraint: ">=1", Optional: true}}
	ix.Attach(r)

	e, _ := ix.Get("e")
	assert.False(t, e.HasDependents())
}

func TestIndex_Detach(t *testing.T) {
	ix := domain.NewIndex()
	ix.Attach(record("c", "1.0.0", false))
	ix.Attach(record("b", "1.0.0", true, "c"))

	ix.Detach("b")
	ix.Detach("missing")

	_, ok := ix.Get("b")
	assert.False(t, ok)
	c, _ := ix.Get("c")
	assert.Empty(t, c.Dependents)
}

func TestIndex_CloneIsDeep(t *testing.T) {
	ix := domain.NewIndex()
	ix.Attach(record("c", "1.0.0", false))
	snapshot := ix.Clone()

	ix.Attach(record("b", "1.0.0", true, "c"))

	c, _ := snapshot.Get("c")
	assert.Empty(t, c.Dependents)
	assert.Equal(t, 1, snapshot.Len())
}

func TestIndex_ReferencesHash(t *testing.T) {
	ix := domain.NewIndex()
	a := record("a", "1.0.0", true)
	b := record("b", "1.0.0", true)
	b.ContentHash = a.ContentHash
	ix.Put(a)
	ix.Put(b)

	assert.True(t, ix.ReferencesHash(a.ContentHash, "a"))
	ix.Delete("b")
	assert.False(t, ix.ReferencesHash(a.ContentHash, "a"))
}

func TestIndex_Why(t *testing.T) {
	ix := domain.NewIndex()
	ix.Attach(record("c", "1.0.0", false))
	ix.Attach(record("b", "1.0.0", false, "c"))
	ix.Attach(record("a", "1.0.0", true, "b"))
	ix.Attach(record("x", "1.0.0", true, "c"))

	assert.Equal(t, [][]string{
		{"x", "c"},
		{"a", "b", "c"},
	}, ix.Why("c"))
	assert.Equal(t, [][]string{{"a"}}, ix.Why("a"))
	assert.Empty(t, ix.Why("missing"))
}

func TestInstalledRecord_Spec(t *testing.T) {
	spec := &domain.PackageSpec{
		Name:    "b",
		Version: domain.MustParseVersion("1.2.0"),
		Hash:    "sha256:abc",
		Dependencies: []domain.Dependency{
			{Name: "c", Constraint: domain.MustParseConstraint(">=2.0")},
			{Name: "e", Optional: true},
		},
	}
	r := domain.NewInstalledRecord(spec, "/store/payload/abc", "tree", false, time.Time{})

	assert.Equal(t, []string{"c"}, r.HardDependencyNames())
	assert.Equal(t, []domain.DependencyRef{
		{Name: "c", Constraint: ">=2.0"},
		{Name: "e", Optional: true},
	}, r.Depends)

	back, err := r.Spec()
	require.NoError(t, err)
	assert.Equal(t, spec.ID(), back.ID())
	assert.Equal(t, "sha256:abc", back.Hash)
	require.Len(t, back.Dependencies, 2)
	assert.True(t, back.Dependencies[0].Constraint.Satisfies(domain.MustParseVersion("2.1")))
	assert.True(t, back.Dependencies[1].Constraint.IsAny())
	assert.True(t, back.Dependencies[1].Optional)
}
