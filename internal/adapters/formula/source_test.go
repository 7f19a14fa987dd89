package formula_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/keg/internal/adapters/formula"
	"go.trai.ch/keg/internal/core/domain"
)

const hashA = "sha256:2c26b46b68ffc68ff99b453c1d30413413422d706483bfa0f98a5e886266e7ae"

func writeFormula(t *testing.T, dir, file, content string) string {
	t.Helper()
	path := filepath.Join(dir, file)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestSource_LoadYAML(t *testing.T) {
	tap := t.TempDir()
	writeFormula(t, tap, "b.yaml", `
name: b
description: B library
versions:
  - version: 1.2.0
    url: https://example.com/b-1.2.0.tar.gz
    hash: `+hashA+`
    dependencies: ["c >=2.0, <3", "d ^1.1"]
    optional: ["e >=1"]
  - version: "1.0"
    url: b-1.0.0.tar.gz
    hash: `+hashA+`
`)

	specs, err := formula.NewSource(tap).Load(context.Background(), "b")
	require.NoError(t, err)
	require.Len(t, specs, 2)

	assert.Equal(t, "1.0.0", specs[0].Version.String())
	assert.Equal(t, filepath.Join(tap, "b-1.0.0.tar.gz"), specs[0].URL)
	assert.Empty(t, specs[0].Dependencies)

	latest := specs[1]
	assert.Equal(t, "b@1.2.0", latest.ID())
	assert.Equal(t, "B library", latest.Description)
	assert.Equal(t, "https://example.com/b-1.2.0.tar.gz", latest.URL)
	assert.Equal(t, hashA, latest.Hash)
	require.Len(t, latest.Dependencies, 3)
	assert.Equal(t, "c", latest.Dependencies[0].Name)
	assert.True(t, latest.Dependencies[0].Constraint.Satisfies(domain.MustParseVersion("2.5.0")))
	assert.False(t, latest.Dependencies[0].Constraint.Satisfies(domain.MustParseVersion("3.0.0")))
	assert.Equal(t, "d", latest.Dependencies[1].Name)
	assert.False(t, latest.Dependencies[1].Optional)
	assert.Equal(t, "e", latest.Dependencies[2].Name)
	assert.True(t, latest.Dependencies[2].Optional)
}

func TestSource_LoadTOML(t *testing.T) {
	tap := t.TempDir()
	writeFormula(t, tap, "jq.toml", `
name = "jq"
description = "JSON processor"

[[versions]]
version = "1.7.1"
url = "/srv/artifacts/jq-1.7.1.tar.zst"
hash = "`+hashA+`"
dependencies = ["oniguruma ~6.9"]
`)

	specs, err := formula.NewSource(tap).Load(context.Background(), "jq")
	require.NoError(t, err)
	require.Len(t, specs, 1)
	assert.Equal(t, "/srv/artifacts/jq-1.7.1.tar.zst", specs[0].URL)
	require.Len(t, specs[0].Dependencies, 1)
	assert.Equal(t, "oniguruma", specs[0].Dependencies[0].Name)
}

func TestSource_TapOrder(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	writeFormula(t, first, "a.yml", "name: a\nversions:\n  - {version: 2.0.0, url: x, hash: "+hashA+"}\n")
	writeFormula(t, second, "a.yaml", "name: a\nversions:\n  - {version: 1.0.0, url: x, hash: "+hashA+"}\n")
	writeFormula(t, second, "z.yaml", "name: z\nversions:\n  - {version: 0.1.0, url: x, hash: "+hashA+"}\n")

	src := formula.NewSource(first, second)
	assert.Equal(t, []string{first, second}, src.Taps())

	specs, err := src.Load(context.Background(), "a")
	require.NoError(t, err)
	require.Len(t, specs, 1)
	assert.Equal(t, "2.0.0", specs[0].Version.String())

	specs, err = src.Load(context.Background(), "z")
	require.NoError(t, err)
	require.Len(t, specs, 1)
}

func TestSource_NotFound(t *testing.T) {
	src := formula.NewSource(t.TempDir(), filepath.Join(t.TempDir(), "missing-tap"))

	for _, name := range []string{"nope", "../etc/passwd", "Upper"} {
		_, err := src.Load(context.Background(), name)
		require.ErrorIs(t, err, domain.ErrNotFound, name)
		pkg, ok := domain.MetadataValue(err, "package")
		require.True(t, ok)
		assert.Equal(t, name, pkg)
	}
}

func TestSource_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := formula.NewSource(t.TempDir()).Load(ctx, "a")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSource_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		field   string
	}{
		{
			name:    "syntax error",
			file:    "a.yaml",
			content: "name: [a\n",
		},
		{
			name:    "unknown field",
			file:    "a.yaml",
			content: "name: a\nhomepage: x\nversions:\n  - {version: 1.0.0, url: x, hash: " + hashA + "}\n",
		},
		{
			name:    "unknown toml field",
			file:    "a.toml",
			content: "name = \"a\"\nhomepage = \"x\"\n[[versions]]\nversion = \"1.0.0\"\nurl = \"x\"\nhash = \"" + hashA + "\"\n",
		},
		{
			name:    "empty file",
			file:    "a.yaml",
			content: "",
			field:   "name",
		},
		{
			name:    "no versions",
			file:    "a.yaml",
			content: "name: a\nversions: []\n",
			field:   "versions",
		},
		{
			name:    "missing url",
			file:    "a.yaml",
			content: "name: a\nversions:\n  - {version: 1.0.0, hash: " + hashA + "}\n",
			field:   "versions[0].url",
		},
		{
			name:    "bad version",
			file:    "a.yaml",
			content: "name: a\nversions:\n  - {version: one, url: x, hash: " + hashA + "}\n",
			field:   "versions[0].version",
		},
		{
			name:    "bad digest",
			file:    "a.yaml",
			content: "name: a\nversions:\n  - {version: 1.0.0, url: x, hash: md5-abc}\n",
			field:   "versions[0].hash",
		},
		{
			name:    "name mismatch",
			file:    "a.yaml",
			content: "name: b\nversions:\n  - {version: 1.0.0, url: x, hash: " + hashA + "}\n",
			field:   "name",
		},
		{
			name:    "duplicate version",
			file:    "a.yaml",
			content: "name: a\nversions:\n  - {version: 1.0.0, url: x, hash: " + hashA + "}\n  - {version: '1.0', url: y, hash: " + hashA + "}\n",
			field:   "versions[1].version",
		},
		{
			name:    "bad constraint",
			file:    "a.yaml",
			content: "name: a\nversions:\n  - {version: 1.0.0, url: x, hash: " + hashA + ", dependencies: ['b >>2']}\n",
			field:   "versions[0].dependencies[0]",
		},
		{
			name:    "duplicate dependency",
			file:    "a.yaml",
			content: "name: a\nversions:\n  - {version: 1.0.0, url: x, hash: " + hashA + ", dependencies: [b], optional: ['b >=1']}\n",
			field:   "versions[0].optional[0]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tap := t.TempDir()
			path := writeFormula(t, tap, tt.file, tt.content)

			_, err := formula.NewSource(tap).Load(context.Background(), "a")
			require.ErrorIs(t, err, domain.ErrMalformedManifest)
			assert.True(t, domain.IsResolutionError(err))

			file, ok := domain.MetadataValue(err, "file")
			require.True(t, ok)
			assert.Equal(t, path, file)

			field, ok := domain.MetadataValue(err, "field")
			if tt.field == "" {
				assert.False(t, ok, "unexpected field %v", field)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.field, field)
		})
	}
}
