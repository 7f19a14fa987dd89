package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/keg/internal/core/domain"
)

func TestParseDependency(t *testing.T) {
	tests := []struct {
		input      string
		name       string
		constraint string
	}{
		{"openssl", "openssl", "*"},
		{"c >=2.0, <3", "c", ">=2.0, <3"},
		{"c>=2.0", "c", ">=2.0"},
		{"  zlib ^1.2  ", "zlib", "^1.2"},
		{"lib-foo_bar+x ==1.0", "lib-foo_bar+x", "==1.0"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			d, err := domain.ParseDependency(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.name, d.Name)
			assert.Equal(t, tt.constraint, d.Constraint.String())
			assert.False(t, d.Optional)
		})
	}
}

func TestParseDependency_Invalid(t *testing.T) {
	_, err := domain.ParseDependency("Bad")
	assert.ErrorIs(t, err, domain.ErrInvalidPackageName)

	_, err = domain.ParseDependency("c >=oops")
	require.ErrorIs(t, err, domain.ErrInvalidConstraint)
	dep, ok := domain.MetadataValue(err, "dependency")
	require.True(t, ok)
	assert.Equal(t, "c", dep)
}

func TestDependency_String(t *testing.T) {
	assert.Equal(t, "c", domain.Dependency{Name: "c"}.String())
	assert.Equal(t, "c >=2", domain.Dependency{Name: "c", Constraint: domain.MustParseConstraint(">=2")}.String())
}

func TestPackageSpec(t *testing.T) {
	spec := domain.PackageSpec{
		Name:    "a",
		Version: domain.MustParseVersion("1.0"),
		Dependencies: []domain.Dependency{
			{Name: "b"},
			{Name: "e", Optional: true},
			{Name: "c"},
		},
	}

	assert.Equal(t, "a@1.0.0", spec.ID())
	hard := spec.HardDependencies()
	require.Len(t, hard, 2)
	assert.Equal(t, "b", hard[0].Name)
	assert.Equal(t, "c", hard[1].Name)
}

func TestValidatePackageName(t *testing.T) {
	for _, name := range []string{"a", "openssl", "python3.12", "gtk+", "lib_x-y"} {
		assert.NoError(t, domain.ValidatePackageName(name), name)
	}
	for _, name := range []string{"", "A", "-a", "a/b", "../x", "a b"} {
		assert.ErrorIs(t, domain.ValidatePackageName(name), domain.ErrInvalidPackageName, name)
	}
}

func TestIsResolutionError_Sentinels(t *testing.T) {
	assert.True(t, domain.IsResolutionError(domain.ErrNotFound))
	assert.True(t, domain.IsResolutionError(zerrWrap(domain.ErrUnsatisfiable)))
	assert.False(t, domain.IsResolutionError(domain.ErrIntegrity))
	assert.False(t, domain.IsResolutionError(nil))
}
