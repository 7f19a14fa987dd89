package transaction

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/keg/internal/adapters/archive"
	"go.trai.ch/keg/internal/adapters/cas"
	"go.trai.ch/keg/internal/adapters/fetch"
	"go.trai.ch/keg/internal/adapters/fs"
	"go.trai.ch/keg/internal/adapters/logger"
	"go.trai.ch/keg/internal/adapters/telemetry/progrock"
	"go.trai.ch/keg/internal/core/ports"
)

// NodeID is the unique identifier for the transaction engine node.
const NodeID graft.ID = "engine.transaction"

func init() {
	graft.Register(graft.Node[*Engine]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			cas.NodeID,
			fetch.NodeID,
			archive.NodeID,
			fs.HasherNodeID,
			progrock.NodeID,
			logger.NodeID,
		},
		Run: runNode,
	})
}

func runNode(ctx context.Context) (*Engine, error) {
	store, err := graft.Dep[ports.Store](ctx)
	if err != nil {
		return nil, err
	}
	fetcher, err := graft.Dep[ports.Fetcher](ctx)
	if err != nil {
		return nil, err
	}
	extractor, err := graft.Dep[ports.Extractor](ctx)
	if err != nil {
		return nil, err
	}
	hasher, err := graft.Dep[ports.TreeHasher](ctx)
	if err != nil {
		return nil, err
	}
	tel, err := graft.Dep[ports.Telemetry](ctx)
	if err != nil {
		return nil, err
	}
	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}
	return New(store, fetcher, extractor, hasher, tel, log), nil
}
