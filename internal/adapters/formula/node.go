package formula

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/keg/internal/adapters/config"
	"go.trai.ch/keg/internal/core/domain"
	"go.trai.ch/keg/internal/core/ports"
)

// NodeID is the unique identifier for the formula source node.
const NodeID graft.ID = "adapter.formula"

func init() {
	graft.Register(graft.Node[ports.ManifestSource]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{config.NodeID},
		Run: func(ctx context.Context) (ports.ManifestSource, error) {
			settings, err := graft.Dep[domain.Settings](ctx)
			if err != nil {
				return nil, err
			}
			return NewSource(settings.Taps...), nil
		},
	})
}
