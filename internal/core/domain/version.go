package domain

import (
	"strconv"
	"strings"

	"go.trai.ch/zerr"
	"golang.org/x/mod/semver"
)

// Version is a semantic version. The zero value is not a valid version and
// reports IsZero.
type Version struct {
	canonical string
}

// ParseVersion parses a semantic version. The leading "v" is optional and
// missing minor or patch components default to zero, so "1.2" equals "1.2.0".
func ParseVersion(s string) (Version, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return Version{}, zerr.With(zerr.Wrap(ErrInvalidVersion, "empty version"), "version", s)
	}
	if raw[0] != 'v' {
		raw = "v" + raw
	}
	if !semver.IsValid(raw) {
		return Version{}, zerr.With(zerr.Wrap(ErrInvalidVersion, "not a semantic version"), "version", s)
	}
	return Version{canonical: semver.Canonical(raw)}, nil
}

// MustParseVersion is like ParseVersion but panics on error.
// It is intended for tests and constant tables.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the version without the leading "v".
func (v Version) String() string {
	return strings.TrimPrefix(v.canonical, "v")
}

// IsZero reports whether v is the zero Version.
func (v Version) IsZero() bool {
	return v.canonical == ""
}

// Compare returns -1, 0 or +1 depending on whether v < o, v == o or v > o.
// The zero Version sorts before every valid version.
func (v Version) Compare(o Version) int {
	return semver.Compare(v.canonical, o.canonical)
}

// Less reports whether v sorts before o.
func (v Version) Less(o Version) bool {
	return v.Compare(o) < 0
}

// Equal reports whether v and o denote the same version.
func (v Version) Equal(o Version) bool {
	return v.Compare(o) == 0
}

// Prerelease returns the prerelease suffix including the leading "-", or "".
func (v Version) Prerelease() string {
	return semver.Prerelease(v.canonical)
}

// Major returns the major component.
func (v Version) Major() int {
	n, _ := v.component(0)
	return n
}

// Minor returns the minor component.
func (v Version) Minor() int {
	n, _ := v.component(1)
	return n
}

// Patch returns the patch component.
func (v Version) Patch() int {
	n, _ := v.component(2)
	return n
}

func (v Version) component(i int) (int, error) {
	core := strings.TrimPrefix(v.canonical, "v")
	if idx := strings.IndexAny(core, "-+"); idx >= 0 {
		core = core[:idx]
	}
	parts := strings.Split(core, ".")
	if i >= len(parts) {
		return 0, nil
	}
	return strconv.Atoi(parts[i])
}

// MarshalText implements encoding.TextMarshaler.
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Version) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*v = Version{}
		return nil
	}
	parsed, err := ParseVersion(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// newVersion builds a release version from numeric components.
func newVersion(major, minor, patch int) Version {
	return Version{canonical: "v" + strconv.Itoa(major) + "." + strconv.Itoa(minor) + "." + strconv.Itoa(patch)}
}
