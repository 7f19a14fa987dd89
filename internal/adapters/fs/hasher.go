package fs

import (
	"encoding/binary"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/keg/internal/core/domain"
	"go.trai.ch/keg/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.TreeHasher = (*Hasher)(nil)

// Hasher fingerprints directory trees.
type Hasher struct {
	walker  *Walker
	ignores []string
}

// NewHasher creates a new Hasher. Entries matching ignores are left out of
// every fingerprint.
func NewHasher(walker *Walker, ignores ...string) *Hasher {
	return &Hasher{walker: walker, ignores: ignores}
}

// ComputeFileHash computes the XXHash of a file's content.
func (h *Hasher) ComputeFileHash(path string) (uint64, error) {
	f, err := os.Open(path) //nolint:gosec // Path is controlled by caller
	if err != nil {
		return 0, domain.WrapIO(err, "failed to open file", path)
	}
	defer f.Close() //nolint:errcheck // Best effort close in defer

	hasher := xxhash.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return 0, domain.WrapIO(err, "failed to hash file content", path)
	}

	return hasher.Sum64(), nil
}

// HashTree returns a fingerprint over the relative path, type, executable bit
// and content of every entry under root. Symlinks contribute their target.
func (h *Hasher) HashTree(root string) (string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return "", domain.WrapIO(err, "failed to stat tree root", root)
	}
	if !info.IsDir() {
		return "", zerr.With(zerr.Wrap(domain.ErrIO, "tree root is not a directory"), "path", root)
	}

	hasher := xxhash.New()
	for path, err := range h.walker.WalkFiles(root, h.ignores) {
		if err != nil {
			return "", domain.WrapIO(err, "failed to walk tree", root)
		}
		if err := h.hashEntry(root, path, hasher); err != nil {
			return "", err
		}
	}

	return fmt.Sprintf("%016x", hasher.Sum64()), nil
}

func (h *Hasher) hashEntry(root, path string, mainHasher io.Writer) error {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to relativize path"), "path", path)
	}
	_, _ = mainHasher.Write([]byte(filepath.ToSlash(rel)))
	_, _ = mainHasher.Write([]byte{0})

	info, err := os.Lstat(path)
	if err != nil {
		return domain.WrapIO(err, "failed to stat file", path)
	}

	switch {
	case info.Mode()&iofs.ModeSymlink != 0:
		target, err := os.Readlink(path)
		if err != nil {
			return domain.WrapIO(err, "failed to read link", path)
		}
		_, _ = mainHasher.Write([]byte{'l'})
		_, _ = mainHasher.Write([]byte(target))
		_, _ = mainHasher.Write([]byte{0})
		return nil
	case info.Mode()&0o111 != 0:
		_, _ = mainHasher.Write([]byte{'x'})
	default:
		_, _ = mainHasher.Write([]byte{'f'})
	}

	hash, err := h.ComputeFileHash(path)
	if err != nil {
		return err
	}
	if err := binary.Write(mainHasher, binary.LittleEndian, hash); err != nil {
		return zerr.Wrap(err, "failed to write hash to digest")
	}
	return nil
}
