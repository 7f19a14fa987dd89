package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/keg/internal/adapters/cas"                //nolint:depguard // Wired in app layer
	"go.trai.ch/keg/internal/adapters/config"             //nolint:depguard // Wired in app layer
	"go.trai.ch/keg/internal/adapters/fs"                 //nolint:depguard // Wired in app layer
	"go.trai.ch/keg/internal/adapters/logger"             //nolint:depguard // Wired in app layer
	"go.trai.ch/keg/internal/adapters/telemetry/progrock" //nolint:depguard // Wired in app layer
	"go.trai.ch/keg/internal/core/domain"
	"go.trai.ch/keg/internal/core/ports"
	"go.trai.ch/keg/internal/engine/manifest"
	"go.trai.ch/keg/internal/engine/resolver"
	"go.trai.ch/keg/internal/engine/transaction"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

func init() {
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.NodeID,
			manifest.NodeID,
			resolver.NodeID,
			transaction.NodeID,
			cas.NodeID,
			fs.HasherNodeID,
			logger.NodeID,
		},
		Run: runAppNode,
	})

	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			logger.NodeID,
			progrock.NodeID,
		},
		Run: runComponentsNode,
	})
}

func runAppNode(ctx context.Context) (*App, error) {
	settings, err := graft.Dep[domain.Settings](ctx)
	if err != nil {
		return nil, err
	}
	graph, err := graft.Dep[*manifest.Graph](ctx)
	if err != nil {
		return nil, err
	}
	res, err := graft.Dep[*resolver.Resolver](ctx)
	if err != nil {
		return nil, err
	}
	engine, err := graft.Dep[*transaction.Engine](ctx)
	if err != nil {
		return nil, err
	}
	store, err := graft.Dep[ports.Store](ctx)
	if err != nil {
		return nil, err
	}
	hasher, err := graft.Dep[ports.TreeHasher](ctx)
	if err != nil {
		return nil, err
	}
	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}
	return New(settings, graph, res, engine, store, hasher, log), nil
}

func runComponentsNode(ctx context.Context) (*Components, error) {
	app, err := graft.Dep[*App](ctx)
	if err != nil {
		return nil, err
	}
	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}
	tel, err := graft.Dep[ports.Telemetry](ctx)
	if err != nil {
		return nil, err
	}
	return &Components{
		App:       app,
		Logger:    log,
		Telemetry: tel,
	}, nil
}
