package ports

import "context"

// Fetcher retrieves package artifacts.
//
//go:generate go run go.uber.org/mock/mockgen -source=fetcher.go -destination=mocks/mock_fetcher.go -package=mocks
type Fetcher interface {
	// Fetch downloads the artifact at url. declaredHash is the digest the
	// source publishes next to the artifact, or "" if it publishes none.
	Fetch(ctx context.Context, url string) (data []byte, declaredHash string, err error)
}

// Extractor unpacks artifacts.
type Extractor interface {
	// Extract unpacks data into dest. It returns domain.ErrCorruptArchive if
	// data is not a readable archive.
	Extract(ctx context.Context, data []byte, dest string) error
}

// TreeHasher fingerprints extracted payloads.
type TreeHasher interface {
	// HashTree returns a deterministic fingerprint of every file under root.
	HashTree(root string) (string, error)
}
