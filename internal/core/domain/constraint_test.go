package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/keg/internal/core/domain"
)

func TestConstraint_Satisfies(t *testing.T) {
	tests := []struct {
		constraint string
		version    string
		expected   bool
	}{
		{"", "0.0.1", true},
		{"*", "9.9.9", true},
		{"latest", "1.0.0", true},
		{">=1.0, <2.0", "1.0.0", true},
		{">=1.0, <2.0", "1.5.3", true},
		{">=1.0, <2.0", "2.0.0", false},
		{">=1.0, <2.0", "0.9.0", false},
		{">= 1.0 < 2.0", "1.9.9", true},
		{"^1.2.3", "1.2.3", true},
		{"^1.2.3", "1.9.0", true},
		{"^1.2.3", "1.2.2", false},
		{"^1.2.3", "2.0.0", false},
		{"^0.2.3", "0.2.9", true},
		{"^0.2.3", "0.3.0", false},
		{"~1.2.3", "1.2.9", true},
		{"~1.2.3", "1.3.0", false},
		{"~1", "1.9.0", true},
		{"1.2.*", "1.2.7", true},
		{"1.2.*", "1.3.0", false},
		{"1.x", "1.99.0", true},
		{"1.x", "2.0.0", false},
		{"==2.0", "2.0.0", true},
		{"==2.0", "2.0.1", false},
		{"2.0", "2.0.0", true},
		{"!=1.5", "1.5.0", false},
		{"!=1.5", "1.4.0", true},
		{">1.0", "1.0.0", false},
		{"<=1.0", "1.0.0", true},
		{"<1.0 || >=2.0", "1.5.0", false},
		{"<1.0 || >=2.0", "0.5.0", true},
		{"<1.0 || >=2.0", "2.1.0", true},
		{">=1.0", "2.0.0-rc.1", false},
		{">=2.0.0-rc.1", "2.0.0-rc.1", true},
	}

	for _, tt := range tests {
		t.Run(tt.constraint+"/"+tt.version, func(t *testing.T) {
			c, err := domain.ParseConstraint(tt.constraint)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, c.Satisfies(domain.MustParseVersion(tt.version)))
		})
	}
}

func TestParseConstraint_Invalid(t *testing.T) {
	for _, input := range []string{">=", "abc", ">=foo", "1.2.3.4", "<1 ||"} {
		t.Run(input, func(t *testing.T) {
			_, err := domain.ParseConstraint(input)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidConstraint)
		})
	}
}

func TestConstraint_Intersect(t *testing.T) {
	t.Run("overlapping ranges", func(t *testing.T) {
		c := domain.MustParseConstraint(">=1.0").Intersect(domain.MustParseConstraint("<2.0"))
		assert.False(t, c.IsEmpty())
		assert.True(t, c.Satisfies(domain.MustParseVersion("1.5")))
		assert.False(t, c.Satisfies(domain.MustParseVersion("2.0")))
		assert.Equal(t, ">=1.0, <2.0", c.String())
	})

	t.Run("disjoint ranges", func(t *testing.T) {
		c := domain.MustParseConstraint(">=2.0").Intersect(domain.MustParseConstraint("<1.0"))
		assert.True(t, c.IsEmpty())
		assert.False(t, c.Satisfies(domain.MustParseVersion("1.5")))
	})

	t.Run("exact against exact", func(t *testing.T) {
		c := domain.MustParseConstraint("==2.0").Intersect(domain.MustParseConstraint("==1.0"))
		assert.True(t, c.IsEmpty())
	})

	t.Run("any is identity", func(t *testing.T) {
		other := domain.MustParseConstraint("^1.2")
		assert.Equal(t, other, domain.AnyConstraint().Intersect(other))
		assert.Equal(t, other, other.Intersect(domain.AnyConstraint()))
	})

	t.Run("or clauses are parenthesized", func(t *testing.T) {
		c := domain.MustParseConstraint("<1 || >=2").Intersect(domain.MustParseConstraint("!=2.5"))
		assert.Equal(t, "(<1 || >=2), !=2.5", c.String())
		assert.False(t, c.Satisfies(domain.MustParseVersion("2.5")))
		assert.True(t, c.Satisfies(domain.MustParseVersion("3.0")))
	})
}

func TestConstraint_Select(t *testing.T) {
	var sorted []domain.Version
	for _, s := range []string{"1.0.0", "1.1.0", "1.2.0", "2.0.0-rc.1", "2.0.0", "2.1.0"} {
		sorted = append(sorted, domain.MustParseVersion(s))
	}

	versions := func(c string) []string {
		var out []string
		for _, v := range domain.MustParseConstraint(c).Select(sorted) {
			out = append(out, v.String())
		}
		return out
	}

	assert.Equal(t, []string{"1.1.0", "1.2.0", "2.0.0"}, versions(">=1.1, <2.1"))
	assert.Equal(t, []string{"1.0.0", "2.1.0"}, versions("<1.1 || >=2.1"))
	assert.Equal(t, []string{"1.0.0", "1.1.0", "1.2.0", "2.0.0", "2.1.0"}, versions("*"))
	assert.Equal(t, []string{"2.0.0-rc.1", "2.0.0", "2.1.0"}, versions(">=2.0.0-rc.1"))
	assert.Empty(t, versions(">=3"))
}

func TestConstraint_String(t *testing.T) {
	assert.Equal(t, "*", domain.AnyConstraint().String())
	assert.Equal(t, "==1.2.0", domain.ExactConstraint(domain.MustParseVersion("1.2")).String())
	assert.True(t, domain.AnyConstraint().IsAny())
	assert.False(t, domain.MustParseConstraint(">=1").IsAny())
}
