package domain_test

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/keg/internal/core/domain"
	"go.trai.ch/zerr"
)

func TestGraph_AddEdge(t *testing.T) {
	g := domain.NewGraph()
	g.AddEdge("a", "c")
	g.AddEdge("a", "b")
	g.AddEdge("a", "b")

	assert.Equal(t, 3, g.Len())
	assert.True(t, g.Has("c"))
	assert.False(t, g.Has("d"))
	assert.Equal(t, []string{"b", "c"}, g.DependenciesOf("a"))
}

func TestGraph_Validate_Cycle(t *testing.T) {
	g := domain.NewGraph()
	g.AddEdge("a", "b")
	g.AddEdge("b", "c")
	g.AddEdge("c", "a")

	err := g.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCyclicDependency)

	zErr, ok := err.(*zerr.Error)
	require.True(t, ok, "expected *zerr.Error, got %T", err)

	meta := zErr.Metadata()
	assert.Equal(t, "a -> b -> c -> a", meta["cycle"])
	assert.Equal(t, []string{"a", "b", "c", "a"}, meta["packages"])
}

func TestGraph_Validate_SelfLoop(t *testing.T) {
	g := domain.NewGraph()
	g.AddEdge("a", "a")

	err := g.Validate()
	require.Error(t, err)
	cycle, ok := domain.MetadataValue(err, "cycle")
	require.True(t, ok)
	assert.Equal(t, "a -> a", cycle)
}

func TestGraph_Walk(t *testing.T) {
	g := domain.NewGraph()
	// a -> b -> c
	g.AddEdge("a", "b")
	g.AddEdge("b", "c")

	require.NoError(t, g.Validate())
	assert.Equal(t, []string{"c", "b", "a"}, slices.Collect(g.Walk()))
	assert.Equal(t, []string{"a", "b", "c"}, slices.Collect(g.WalkReverse()))
	assert.Equal(t, []string{"c", "b", "a"}, g.Order())
}

func TestGraph_Walk_TieBreakByName(t *testing.T) {
	g := domain.NewGraph()
	// Diamond: app -> {zlib, openssl} -> libc, plus an unrelated node.
	g.AddEdge("app", "zlib")
	g.AddEdge("app", "openssl")
	g.AddEdge("zlib", "libc")
	g.AddEdge("openssl", "libc")
	g.AddNode("jq")

	require.NoError(t, g.Validate())
	assert.Equal(t, []string{"jq", "libc", "openssl", "zlib", "app"}, slices.Collect(g.Walk()))
	assert.Equal(t, []string{"app", "jq", "openssl", "zlib", "libc"}, slices.Collect(g.WalkReverse()))
}

func TestGraph_Walk_EarlyStop(t *testing.T) {
	g := domain.NewGraph()
	g.AddEdge("a", "b")
	g.AddEdge("b", "c")
	require.NoError(t, g.Validate())

	var seen []string
	for name := range g.Walk() {
		seen = append(seen, name)
		if name == "b" {
			break
		}
	}
	assert.Equal(t, []string{"c", "b"}, seen)
}
