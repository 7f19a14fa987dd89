package cas

import (
	"path/filepath"

	"github.com/opencontainers/go-digest"
	"go.trai.ch/keg/internal/core/domain"
	"go.trai.ch/zerr"
)

// parseHash validates a content hash such as "sha256:<hex>".
func parseHash(hash string) (digest.Digest, error) {
	d, err := digest.Parse(hash)
	if err != nil {
		return "", zerr.With(zerr.Wrap(err, "invalid content hash"), "hash", hash)
	}
	return d, nil
}

func (s *Store) indexPath() string {
	return filepath.Join(s.root, domain.IndexFileName)
}

func (s *Store) lockPath() string {
	return filepath.Join(s.root, domain.LockFileName)
}

func (s *Store) payloadDir() string {
	return filepath.Join(s.root, domain.PayloadDirName)
}

func (s *Store) blobDir() string {
	return filepath.Join(s.root, domain.BlobDirName)
}

func (s *Store) stagingDir() string {
	return filepath.Join(s.root, domain.StagingDirName)
}

func (s *Store) linkDir() string {
	return filepath.Join(s.root, domain.LinkDirName)
}

// PayloadPath returns the payload directory of hash. Invalid hashes map to a
// path that never exists.
func (s *Store) PayloadPath(hash string) string {
	d, err := parseHash(hash)
	if err != nil {
		return filepath.Join(s.payloadDir(), "invalid")
	}
	return filepath.Join(s.payloadDir(), d.Encoded())
}

// LinkPath returns the stable link of a package.
func (s *Store) LinkPath(name string) string {
	return filepath.Join(s.linkDir(), name)
}

func (s *Store) blobPath(d digest.Digest) string {
	return filepath.Join(s.blobDir(), d.Encoded())
}
