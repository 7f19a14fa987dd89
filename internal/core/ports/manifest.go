// Package ports defines the core interfaces for the application.
package ports

import (
	"context"

	"go.trai.ch/keg/internal/core/domain"
)

// ManifestSource loads package formulae.
//
//go:generate go run go.uber.org/mock/mockgen -source=manifest.go -destination=mocks/mock_manifest.go -package=mocks
type ManifestSource interface {
	// Load returns every published version of name.
	//
	// It returns domain.ErrNotFound if no formula for name exists and
	// domain.ErrMalformedManifest if the formula is structurally invalid.
	Load(ctx context.Context, name string) ([]domain.PackageSpec, error)
}
