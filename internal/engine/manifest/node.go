package manifest

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/keg/internal/adapters/formula" //nolint:depguard // Wired in engine wiring
	"go.trai.ch/keg/internal/core/ports"
)

// NodeID is the unique identifier for the manifest graph node.
const NodeID graft.ID = "engine.manifest"

func init() {
	graft.Register(graft.Node[*Graph]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{formula.NodeID},
		Run: func(ctx context.Context) (*Graph, error) {
			source, err := graft.Dep[ports.ManifestSource](ctx)
			if err != nil {
				return nil, err
			}
			return NewGraph(source), nil
		},
	})
}
