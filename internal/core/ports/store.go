package ports

import (
	"context"

	"go.trai.ch/keg/internal/core/domain"
)

// Store is the content-addressed package store and its metadata index.
//
//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks
type Store interface {
	// Lock acquires the exclusive store lock. With noWait it fails with
	// domain.ErrStoreLocked instead of blocking.
	Lock(ctx context.Context, noWait bool) (release func() error, err error)

	// Put writes an artifact to the blob cache under its content hash.
	Put(hash string, data []byte) error

	// Get reads a cached artifact. Returns domain.ErrNotFound if absent.
	Get(hash string) ([]byte, error)

	// Stage creates an empty staging directory. cleanup removes it and is
	// safe to call after Commit.
	Stage() (dir string, cleanup func(), err error)

	// Commit atomically moves a staging directory to the payload of hash and
	// returns the payload path. Committing a hash that already has a payload
	// keeps the existing payload.
	Commit(staging, hash string) (string, error)

	// HasPayload reports whether a payload for hash exists.
	HasPayload(hash string) bool

	// PayloadPath returns the payload directory of hash.
	PayloadPath(hash string) string

	// RemovePayload deletes the payload of hash. Missing payloads are ignored.
	RemovePayload(hash string) error

	// Link points the stable name link of a package at target.
	Link(name, target string) error

	// Unlink removes the name link of a package. Missing links are ignored.
	Unlink(name string) error

	// MetadataSnapshot returns a copy of the metadata index.
	MetadataSnapshot() (*domain.Index, error)

	// Update applies fn to the index and persists the result atomically.
	// If fn returns an error nothing is written.
	Update(fn func(*domain.Index) error) error

	// RecordInstall stores r in the index and maintains dependents sets.
	RecordInstall(r domain.InstalledRecord) error

	// RecordRemove deletes the record for name and maintains dependents sets.
	RecordRemove(name string) error

	// ListInstalled returns every installed record ordered by name.
	ListInstalled() ([]domain.InstalledRecord, error)

	// Prune removes staging leftovers and payloads and blobs no record references.
	Prune(ctx context.Context) (domain.PruneReport, error)
}
