// Package cas implements the content-addressed package store: artifact
// blobs and extracted payloads keyed by content hash, the metadata index and
// the store lock.
package cas

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"go.trai.ch/keg/internal/core/domain"
	"go.trai.ch/keg/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Store = (*Store)(nil)

const lockRetryDelay = 100 * time.Millisecond

// Store implements ports.Store on a directory tree.
type Store struct {
	root string
	// mu serializes index rewrites within the process; the file lock
	// serializes transactions across processes.
	mu sync.Mutex
}

// NewStore opens the store rooted at root, creating its directories.
func NewStore(root string) (*Store, error) {
	s := &Store{root: filepath.Clean(root)}
	for _, dir := range []string{s.root, s.payloadDir(), s.blobDir(), s.stagingDir(), s.linkDir()} {
		if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
			return nil, domain.WrapIO(err, "failed to create store directory", dir)
		}
	}
	return s, nil
}

// Root returns the store directory.
func (s *Store) Root() string {
	return s.root
}

// Lock acquires the exclusive store lock.
func (s *Store) Lock(ctx context.Context, noWait bool) (func() error, error) {
	path := s.lockPath()
	fl := flock.New(path)

	var (
		locked bool
		err    error
	)
	if noWait {
		locked, err = fl.TryLock()
	} else {
		locked, err = fl.TryLockContext(ctx, lockRetryDelay)
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, domain.WrapIO(err, "failed to acquire store lock", path)
	}
	if !locked {
		return nil, zerr.With(zerr.Wrap(domain.ErrStoreLocked, "store lock is held"), "path", path)
	}

	return fl.Unlock, nil
}

// Put writes data to the blob cache. The content must match hash.
func (s *Store) Put(hash string, data []byte) error {
	d, err := parseHash(hash)
	if err != nil {
		return err
	}
	if actual := d.Algorithm().FromBytes(data); actual != d {
		return zerr.With(zerr.With(zerr.Wrap(domain.ErrIntegrity, "blob content does not match its hash"),
			"expected", d.String()), "actual", actual.String())
	}

	path := s.blobPath(d)
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	return writeFileAtomic(path, data, domain.FilePerm)
}

// Get reads a cached artifact and checks it against hash.
func (s *Store) Get(hash string) ([]byte, error) {
	d, err := parseHash(hash)
	if err != nil {
		return nil, err
	}

	path := s.blobPath(d)
	data, err := os.ReadFile(path) //nolint:gosec // Path derived from a validated digest
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, zerr.With(zerr.Wrap(domain.ErrNotFound, "blob not cached"), "hash", hash)
		}
		return nil, domain.WrapIO(err, "failed to read blob", path)
	}

	if actual := d.Algorithm().FromBytes(data); actual != d {
		return nil, zerr.With(zerr.With(zerr.Wrap(domain.ErrIntegrity, "cached blob is corrupt"),
			"expected", d.String()), "actual", actual.String())
	}
	return data, nil
}

// Stage creates a fresh staging directory.
func (s *Store) Stage() (string, func(), error) {
	dir := filepath.Join(s.stagingDir(), uuid.NewString())
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return "", nil, domain.WrapIO(err, "failed to create staging directory", dir)
	}
	return dir, func() { _ = os.RemoveAll(dir) }, nil
}

// Commit moves staging to the payload directory of hash.
func (s *Store) Commit(staging, hash string) (string, error) {
	d, err := parseHash(hash)
	if err != nil {
		return "", err
	}

	dest := filepath.Join(s.payloadDir(), d.Encoded())
	if _, err := os.Stat(dest); err == nil {
		// identical content is already committed
		_ = os.RemoveAll(staging)
		return dest, nil
	}

	if err := os.Rename(staging, dest); err != nil {
		return "", domain.WrapIO(err, "failed to commit payload", dest)
	}
	if err := syncDir(s.payloadDir()); err != nil {
		return "", err
	}
	return dest, nil
}

// HasPayload reports whether the payload of hash exists.
func (s *Store) HasPayload(hash string) bool {
	info, err := os.Stat(s.PayloadPath(hash))
	return err == nil && info.IsDir()
}

// RemovePayload deletes the payload of hash.
func (s *Store) RemovePayload(hash string) error {
	d, err := parseHash(hash)
	if err != nil {
		return err
	}
	dir := filepath.Join(s.payloadDir(), d.Encoded())
	if err := os.RemoveAll(dir); err != nil {
		return domain.WrapIO(err, "failed to remove payload", dir)
	}
	return nil
}

// Link atomically points opt/<name> at target by renaming a fresh symlink
// over the old one.
func (s *Store) Link(name, target string) error {
	if err := domain.ValidatePackageName(name); err != nil {
		return err
	}

	link := s.LinkPath(name)
	tmp := filepath.Join(s.linkDir(), "."+name+"."+uuid.NewString())
	if err := os.Symlink(target, tmp); err != nil {
		return domain.WrapIO(err, "failed to create link", tmp)
	}
	if err := os.Rename(tmp, link); err != nil {
		_ = os.Remove(tmp)
		return domain.WrapIO(err, "failed to replace link", link)
	}
	return nil
}

// Unlink removes opt/<name>.
func (s *Store) Unlink(name string) error {
	if err := domain.ValidatePackageName(name); err != nil {
		return err
	}
	link := s.LinkPath(name)
	if err := os.Remove(link); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return domain.WrapIO(err, "failed to remove link", link)
	}
	return nil
}

// MetadataSnapshot reads the metadata index.
func (s *Store) MetadataSnapshot() (*domain.Index, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readIndex()
}

// Update applies fn to the index and rewrites it atomically.
func (s *Store) Update(fn func(*domain.Index) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ix, err := s.readIndex()
	if err != nil {
		return err
	}
	if err := fn(ix); err != nil {
		return err
	}
	return s.writeIndex(ix)
}

// RecordInstall stores r and links it into the dependents sets.
func (s *Store) RecordInstall(r domain.InstalledRecord) error {
	return s.Update(func(ix *domain.Index) error {
		ix.Attach(r)
		return nil
	})
}

// RecordRemove deletes the record for name. Removing an absent record is a no-op.
func (s *Store) RecordRemove(name string) error {
	return s.Update(func(ix *domain.Index) error {
		ix.Detach(name)
		return nil
	})
}

// ListInstalled returns the installed records ordered by name.
func (s *Store) ListInstalled() ([]domain.InstalledRecord, error) {
	ix, err := s.MetadataSnapshot()
	if err != nil {
		return nil, err
	}
	return ix.Sorted(), nil
}

func (s *Store) readIndex() (*domain.Index, error) {
	path := s.indexPath()
	data, err := os.ReadFile(path) //nolint:gosec // Path is inside the store root
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.NewIndex(), nil
		}
		return nil, domain.WrapIO(err, "failed to read metadata index", path)
	}
	if len(data) == 0 {
		return domain.NewIndex(), nil
	}

	ix := domain.NewIndex()
	if err := json.Unmarshal(data, ix); err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrIO, "metadata index is corrupt: "+err.Error()), "path", path)
	}
	if ix.Version > domain.IndexFormatVersion {
		return nil, zerr.With(zerr.With(zerr.Wrap(domain.ErrIO, "metadata index was written by a newer keg"),
			"path", path), "version", ix.Version)
	}
	if ix.Packages == nil {
		ix.Packages = make(map[string]domain.InstalledRecord)
	}
	ix.Version = domain.IndexFormatVersion
	return ix, nil
}

func (s *Store) writeIndex(ix *domain.Index) error {
	ix.Version = domain.IndexFormatVersion
	data, err := json.MarshalIndent(ix, "", "  ")
	if err != nil {
		return zerr.Wrap(err, "failed to marshal metadata index")
	}
	return writeFileAtomic(s.indexPath(), data, domain.FilePerm)
}
