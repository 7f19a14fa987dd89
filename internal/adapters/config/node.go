package config

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/keg/internal/core/domain"
)

// NodeID is the unique identifier for the settings node.
const NodeID graft.ID = "adapter.config"

func init() {
	graft.Register(graft.Node[domain.Settings]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (domain.Settings, error) {
			return Load("")
		},
	})
}
