package resolver

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/keg/internal/engine/manifest"
)

// NodeID is the unique identifier for the resolver node.
const NodeID graft.ID = "engine.resolver"

func init() {
	graft.Register(graft.Node[*Resolver]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{manifest.NodeID},
		Run: func(ctx context.Context) (*Resolver, error) {
			graph, err := graft.Dep[*manifest.Graph](ctx)
			if err != nil {
				return nil, err
			}
			return New(graph), nil
		},
	})
}
