package domain

import (
	"slices"
	"sort"
	"strings"

	"go.trai.ch/zerr"
)

// Constraint is a predicate over versions, stored as a sorted set of disjoint
// intervals. The zero value accepts every release version.
//
// Supported syntax: clauses separated by "||" are OR-ed; comparators inside a
// clause, separated by "," or whitespace, are AND-ed. Comparators are =, ==, !=,
// >, >=, <, <=, ^v, ~v, wildcards such as 1.2.* or 1.x, a bare version (exact)
// and "*", "latest" or the empty string (any).
type Constraint struct {
	raw        string
	intervals  []interval
	none       bool
	prerelease bool
}

type bound struct {
	v         Version
	inclusive bool
	unbounded bool
}

type interval struct {
	lo, hi bound
}

var anyIntervals = []interval{{lo: bound{unbounded: true}, hi: bound{unbounded: true}}}

// AnyConstraint returns a constraint satisfied by every release version.
func AnyConstraint() Constraint {
	return Constraint{}
}

// ExactConstraint returns a constraint satisfied only by v.
func ExactConstraint(v Version) Constraint {
	return Constraint{
		raw:        "==" + v.String(),
		intervals:  []interval{point(v)},
		prerelease: v.Prerelease() != "",
	}
}

// ParseConstraint parses a constraint expression.
func ParseConstraint(s string) (Constraint, error) {
	raw := strings.TrimSpace(s)
	if isAnyLiteral(raw) {
		return Constraint{raw: raw}, nil
	}

	var (
		set        []interval
		prerelease bool
	)
	for clause := range strings.SplitSeq(raw, "||") {
		clauseSet, pre, err := parseClause(clause)
		if err != nil {
			return Constraint{}, zerr.With(err, "constraint", s)
		}
		prerelease = prerelease || pre
		set = append(set, clauseSet...)
	}

	set = normalize(set)
	return Constraint{
		raw:        raw,
		intervals:  set,
		none:       len(set) == 0,
		prerelease: prerelease,
	}, nil
}

// MustParseConstraint is like ParseConstraint but panics on error.
func MustParseConstraint(s string) Constraint {
	c, err := ParseConstraint(s)
	if err != nil {
		panic(err)
	}
	return c
}

// String returns the textual form of the constraint.
func (c Constraint) String() string {
	if c.raw == "" {
		if c.none {
			return "<none>"
		}
		return "*"
	}
	return c.raw
}

// IsAny reports whether the constraint accepts every version.
func (c Constraint) IsAny() bool {
	return !c.none && c.intervals == nil
}

// IsEmpty reports whether no version can satisfy the constraint.
func (c Constraint) IsEmpty() bool {
	return c.none
}

func (c Constraint) set() []interval {
	if c.none {
		return nil
	}
	if c.intervals == nil {
		return anyIntervals
	}
	return c.intervals
}

// Satisfies reports whether v satisfies the constraint.
// Prerelease versions only match constraints that mention a prerelease.
func (c Constraint) Satisfies(v Version) bool {
	if v.IsZero() {
		return false
	}
	if v.Prerelease() != "" && !c.prerelease {
		return false
	}
	set := c.set()
	i := sort.Search(len(set), func(i int) bool { return !set[i].below(v) })
	return i < len(set) && set[i].contains(v)
}

// Select returns the versions of sorted (ascending) that satisfy the constraint,
// in ascending order. Each interval is located by binary search.
func (c Constraint) Select(sorted []Version) []Version {
	var out []Version
	for _, iv := range c.set() {
		start := sort.Search(len(sorted), func(i int) bool { return !iv.lo.above(sorted[i]) })
		end := sort.Search(len(sorted), func(i int) bool { return iv.hi.below(sorted[i]) })
		for _, v := range sorted[start:max(start, end)] {
			if v.Prerelease() != "" && !c.prerelease {
				continue
			}
			out = append(out, v)
		}
	}
	return out
}

// Intersect returns a constraint satisfied by versions satisfying both c and o.
func (c Constraint) Intersect(o Constraint) Constraint {
	switch {
	case c.IsAny():
		return o
	case o.IsAny():
		return c
	}

	var set []interval
	for _, a := range c.set() {
		for _, b := range o.set() {
			if iv := a.intersect(b); !iv.empty() {
				set = append(set, iv)
			}
		}
	}
	set = normalize(set)

	return Constraint{
		raw:        joinRaw(c.String(), o.String()),
		intervals:  set,
		none:       len(set) == 0,
		prerelease: c.prerelease || o.prerelease,
	}
}

func joinRaw(a, b string) string {
	if strings.Contains(a, "||") {
		a = "(" + a + ")"
	}
	if strings.Contains(b, "||") {
		b = "(" + b + ")"
	}
	return a + ", " + b
}

func isAnyLiteral(s string) bool {
	switch strings.ToLower(s) {
	case "", "*", "latest", "x", "any":
		return true
	}
	return false
}

func parseClause(clause string) ([]interval, bool, error) {
	tokens := tokenize(clause)
	if len(tokens) == 0 {
		return nil, false, zerr.Wrap(ErrInvalidConstraint, "empty clause")
	}

	set := anyIntervals
	prerelease := false
	for _, tok := range tokens {
		cmp, pre, err := parseComparator(tok)
		if err != nil {
			return nil, false, err
		}
		prerelease = prerelease || pre
		set = intersectSets(set, cmp)
	}
	return set, prerelease, nil
}

// tokenize splits a clause into comparators, joining operators that are
// separated from their version by whitespace (">= 1.0").
func tokenize(clause string) []string {
	fields := strings.FieldsFunc(clause, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})

	var tokens []string
	for i := 0; i < len(fields); i++ {
		f := fields[i]
		if isOperator(f) && i+1 < len(fields) {
			f += fields[i+1]
			i++
		}
		tokens = append(tokens, f)
	}
	return tokens
}

func isOperator(s string) bool {
	switch s {
	case "=", "==", "!=", ">", ">=", "<", "<=", "^", "~":
		return true
	}
	return false
}

func parseComparator(tok string) ([]interval, bool, error) {
	if isAnyLiteral(tok) {
		return anyIntervals, false, nil
	}

	for _, op := range []string{">=", "<=", "==", "!=", ">", "<", "=", "^", "~"} {
		rest, ok := strings.CutPrefix(tok, op)
		if !ok {
			continue
		}
		if op == "=" || op == "==" {
			return parseBare(rest)
		}
		v, parts, err := parsePartial(rest)
		if err != nil {
			return nil, false, err
		}
		pre := v.Prerelease() != ""
		switch op {
		case ">=":
			return []interval{{lo: bound{v: v, inclusive: true}, hi: bound{unbounded: true}}}, pre, nil
		case ">":
			return []interval{{lo: bound{v: v}, hi: bound{unbounded: true}}}, pre, nil
		case "<=":
			return []interval{{lo: bound{unbounded: true}, hi: bound{v: v, inclusive: true}}}, pre, nil
		case "<":
			return []interval{{lo: bound{unbounded: true}, hi: bound{v: v}}}, pre, nil
		case "!=":
			return []interval{
				{lo: bound{unbounded: true}, hi: bound{v: v}},
				{lo: bound{v: v}, hi: bound{unbounded: true}},
			}, pre, nil
		case "^":
			return []interval{{lo: bound{v: v, inclusive: true}, hi: bound{v: caretUpper(v)}}}, pre, nil
		case "~":
			return []interval{{lo: bound{v: v, inclusive: true}, hi: bound{v: tildeUpper(v, parts)}}}, pre, nil
		}
	}

	return parseBare(tok)
}

// parseBare handles exact versions and wildcards such as 1.2.* or 1.x.
func parseBare(s string) ([]interval, bool, error) {
	parts := strings.Split(strings.TrimPrefix(s, "v"), ".")
	for i, p := range parts {
		if p != "*" && p != "x" && p != "X" {
			continue
		}
		if i == 0 {
			return anyIntervals, false, nil
		}
		lo, _, err := parsePartial(strings.Join(parts[:i], "."))
		if err != nil {
			return nil, false, err
		}
		var hi Version
		if i == 1 {
			hi = newVersion(lo.Major()+1, 0, 0)
		} else {
			hi = newVersion(lo.Major(), lo.Minor()+1, 0)
		}
		return []interval{{lo: bound{v: lo, inclusive: true}, hi: bound{v: hi}}}, false, nil
	}

	v, _, err := parsePartial(s)
	if err != nil {
		return nil, false, err
	}
	return []interval{point(v)}, v.Prerelease() != "", nil
}

// parsePartial parses a version that may omit minor and patch, reporting how
// many numeric components were written.
func parsePartial(s string) (Version, int, error) {
	if s == "" {
		return Version{}, 0, zerr.Wrap(ErrInvalidConstraint, "missing version after operator")
	}
	core := strings.TrimPrefix(s, "v")
	if idx := strings.IndexAny(core, "-+"); idx >= 0 {
		core = core[:idx]
	}
	v, err := ParseVersion(s)
	if err != nil {
		return Version{}, 0, zerr.Wrap(ErrInvalidConstraint, err.Error())
	}
	return v, strings.Count(core, ".") + 1, nil
}

func caretUpper(v Version) Version {
	switch {
	case v.Major() > 0:
		return newVersion(v.Major()+1, 0, 0)
	case v.Minor() > 0:
		return newVersion(0, v.Minor()+1, 0)
	default:
		return newVersion(0, 0, v.Patch()+1)
	}
}

func tildeUpper(v Version, parts int) Version {
	if parts == 1 {
		return newVersion(v.Major()+1, 0, 0)
	}
	return newVersion(v.Major(), v.Minor()+1, 0)
}

func point(v Version) interval {
	return interval{lo: bound{v: v, inclusive: true}, hi: bound{v: v, inclusive: true}}
}

// below reports whether the whole interval lies below v.
func (iv interval) below(v Version) bool {
	return iv.hi.below(v)
}

func (iv interval) contains(v Version) bool {
	return !iv.lo.above(v) && !iv.hi.below(v)
}

func (iv interval) empty() bool {
	if iv.lo.unbounded || iv.hi.unbounded {
		return false
	}
	switch iv.lo.v.Compare(iv.hi.v) {
	case 1:
		return true
	case 0:
		return !iv.lo.inclusive || !iv.hi.inclusive
	}
	return false
}

func (iv interval) intersect(o interval) interval {
	return interval{lo: maxLower(iv.lo, o.lo), hi: minUpper(iv.hi, o.hi)}
}

// above reports whether a lower bound excludes v (v lies below it).
func (b bound) above(v Version) bool {
	if b.unbounded {
		return false
	}
	c := v.Compare(b.v)
	return c < 0 || (c == 0 && !b.inclusive)
}

// below reports whether an upper bound excludes v (v lies above it).
func (b bound) below(v Version) bool {
	if b.unbounded {
		return false
	}
	c := v.Compare(b.v)
	return c > 0 || (c == 0 && !b.inclusive)
}

func compareLower(a, b bound) int {
	switch {
	case a.unbounded && b.unbounded:
		return 0
	case a.unbounded:
		return -1
	case b.unbounded:
		return 1
	}
	if c := a.v.Compare(b.v); c != 0 {
		return c
	}
	switch {
	case a.inclusive == b.inclusive:
		return 0
	case a.inclusive:
		return -1
	default:
		return 1
	}
}

func compareUpper(a, b bound) int {
	switch {
	case a.unbounded && b.unbounded:
		return 0
	case a.unbounded:
		return 1
	case b.unbounded:
		return -1
	}
	if c := a.v.Compare(b.v); c != 0 {
		return c
	}
	switch {
	case a.inclusive == b.inclusive:
		return 0
	case a.inclusive:
		return 1
	default:
		return -1
	}
}

func maxLower(a, b bound) bound {
	if compareLower(a, b) >= 0 {
		return a
	}
	return b
}

func minUpper(a, b bound) bound {
	if compareUpper(a, b) <= 0 {
		return a
	}
	return b
}

func intersectSets(a, b []interval) []interval {
	var out []interval
	for _, x := range a {
		for _, y := range b {
			if iv := x.intersect(y); !iv.empty() {
				out = append(out, iv)
			}
		}
	}
	return normalize(out)
}

// normalize sorts intervals and merges overlapping or touching ones.
func normalize(set []interval) []interval {
	set = slices.DeleteFunc(set, interval.empty)
	if len(set) == 0 {
		return nil
	}
	slices.SortFunc(set, func(a, b interval) int { return compareLower(a.lo, b.lo) })

	out := []interval{set[0]}
	for _, iv := range set[1:] {
		last := &out[len(out)-1]
		if touches(last.hi, iv.lo) {
			if compareUpper(iv.hi, last.hi) > 0 {
				last.hi = iv.hi
			}
			continue
		}
		out = append(out, iv)
	}
	return out
}

// touches reports whether an interval ending at hi overlaps or abuts one
// starting at lo.
func touches(hi, lo bound) bool {
	if hi.unbounded || lo.unbounded {
		return true
	}
	switch hi.v.Compare(lo.v) {
	case 1:
		return true
	case 0:
		return hi.inclusive || lo.inclusive
	}
	return false
}
