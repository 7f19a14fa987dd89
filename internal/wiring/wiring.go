// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/keg/internal/adapters/archive"
	_ "go.trai.ch/keg/internal/adapters/cas"
	_ "go.trai.ch/keg/internal/adapters/config"
	_ "go.trai.ch/keg/internal/adapters/fetch"
	_ "go.trai.ch/keg/internal/adapters/formula"
	_ "go.trai.ch/keg/internal/adapters/fs"
	_ "go.trai.ch/keg/internal/adapters/logger"
	_ "go.trai.ch/keg/internal/adapters/telemetry/progrock"
	// Register app and engine nodes.
	_ "go.trai.ch/keg/internal/app"
	_ "go.trai.ch/keg/internal/engine/manifest"
	_ "go.trai.ch/keg/internal/engine/resolver"
	_ "go.trai.ch/keg/internal/engine/transaction"
)
