package cas_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/keg/internal/adapters/cas"
	"go.trai.ch/keg/internal/core/domain"
)

func newStore(t *testing.T) *cas.Store {
	t.Helper()
	store, err := cas.NewStore(filepath.Join(t.TempDir(), "keg"))
	require.NoError(t, err)
	return store
}

func installedRecord(name, version, hash string, deps ...string) domain.InstalledRecord {
	refs := make([]domain.DependencyRef, 0, len(deps))
	for _, d := range deps {
		refs = append(refs, domain.DependencyRef{Name: d})
	}
	return domain.InstalledRecord{
		Name:        name,
		Version:     domain.MustParseVersion(version),
		ContentHash: hash,
		Depends:     refs,
	}
}

func TestNewStore_CreatesLayout(t *testing.T) {
	store := newStore(t)
	for _, dir := range []string{domain.PayloadDirName, domain.BlobDirName, domain.StagingDirName, domain.LinkDirName} {
		info, err := os.Stat(filepath.Join(store.Root(), dir))
		require.NoError(t, err, dir)
		assert.True(t, info.IsDir())
	}
}

func TestStore_PutAndGet(t *testing.T) {
	store := newStore(t)
	data := []byte("artifact bytes")
	hash := digest.FromBytes(data).String()

	require.NoError(t, store.Put(hash, data))
	// writing the same content twice is a no-op
	require.NoError(t, store.Put(hash, data))

	got, err := store.Get(hash)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestStore_PutRejectsMismatch(t *testing.T) {
	store := newStore(t)
	hash := digest.FromString("something else").String()

	err := store.Put(hash, []byte("artifact bytes"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrIntegrity)

	_, err = store.Get(hash)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_GetDetectsCorruptBlob(t *testing.T) {
	store := newStore(t)
	data := []byte("artifact bytes")
	d := digest.FromBytes(data)
	require.NoError(t, store.Put(d.String(), data))

	blob := filepath.Join(store.Root(), domain.BlobDirName, d.Encoded())
	require.NoError(t, os.WriteFile(blob, []byte("tampered"), 0o600))

	_, err := store.Get(d.String())
	assert.ErrorIs(t, err, domain.ErrIntegrity)
}

func TestStore_InvalidHash(t *testing.T) {
	store := newStore(t)
	_, err := store.Get("md5:nothex")
	require.Error(t, err)
	assert.False(t, store.HasPayload("garbage"))
}

func TestStore_StageAndCommit(t *testing.T) {
	store := newStore(t)
	hash := digest.FromString("payload").String()

	dir, cleanup, err := store.Stage()
	require.NoError(t, err)
	defer cleanup()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bin"), []byte("#!/bin/sh\n"), 0o600))

	path, err := store.Commit(dir, hash)
	require.NoError(t, err)
	assert.Equal(t, store.PayloadPath(hash), path)
	assert.True(t, store.HasPayload(hash))
	assert.FileExists(t, filepath.Join(path, "bin"))
	assert.NoDirExists(t, dir)

	// a second commit of the same content keeps the first payload
	dir2, cleanup2, err := store.Stage()
	require.NoError(t, err)
	defer cleanup2()
	path2, err := store.Commit(dir2, hash)
	require.NoError(t, err)
	assert.Equal(t, path, path2)
	assert.FileExists(t, filepath.Join(path2, "bin"))
	assert.NoDirExists(t, dir2)

	require.NoError(t, store.RemovePayload(hash))
	assert.False(t, store.HasPayload(hash))
	require.NoError(t, store.RemovePayload(hash))
}

func TestStore_LinkSwap(t *testing.T) {
	store := newStore(t)
	first := t.TempDir()
	second := t.TempDir()

	require.NoError(t, store.Link("jq", first))
	target, err := os.Readlink(store.LinkPath("jq"))
	require.NoError(t, err)
	assert.Equal(t, first, target)

	require.NoError(t, store.Link("jq", second))
	target, err = os.Readlink(store.LinkPath("jq"))
	require.NoError(t, err)
	assert.Equal(t, second, target)

	require.NoError(t, store.Unlink("jq"))
	require.NoError(t, store.Unlink("jq"))
	_, err = os.Lstat(store.LinkPath("jq"))
	assert.True(t, errors.Is(err, os.ErrNotExist))

	assert.ErrorIs(t, store.Link("../escape", first), domain.ErrInvalidPackageName)
}

func TestStore_IndexPersistence(t *testing.T) {
	root := filepath.Join(t.TempDir(), "keg")
	store1, err := cas.NewStore(root)
	require.NoError(t, err)

	require.NoError(t, store1.RecordInstall(installedRecord("c", "2.0.0", "sha256:c")))
	require.NoError(t, store1.RecordInstall(installedRecord("b", "1.2.0", "sha256:b", "c")))

	store2, err := cas.NewStore(root)
	require.NoError(t, err)
	records, err := store2.ListInstalled()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "b", records[0].Name)
	assert.Equal(t, "c", records[1].Name)
	assert.Equal(t, []string{"b"}, records[1].Dependents)
	assert.Equal(t, "1.2.0", records[0].Version.String())

	require.NoError(t, store2.RecordRemove("b"))
	require.NoError(t, store2.RecordRemove("b"))
	ix, err := store1.MetadataSnapshot()
	require.NoError(t, err)
	c, ok := ix.Get("c")
	require.True(t, ok)
	assert.Empty(t, c.Dependents)
}

func TestStore_UpdateErrorWritesNothing(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.RecordInstall(installedRecord("a", "1.0.0", "sha256:a")))

	boom := errors.New("boom")
	err := store.Update(func(ix *domain.Index) error {
		ix.Delete("a")
		return boom
	})
	assert.ErrorIs(t, err, boom)

	ix, err := store.MetadataSnapshot()
	require.NoError(t, err)
	_, ok := ix.Get("a")
	assert.True(t, ok)
}

func TestStore_IndexIsWrittenAtomically(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.RecordInstall(installedRecord("a", "1.0.0", "sha256:a")))

	entries, err := os.ReadDir(store.Root())
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp", "temporary file left behind")
	}
	assert.FileExists(t, filepath.Join(store.Root(), domain.IndexFileName))
}

func TestStore_CorruptIndex(t *testing.T) {
	store := newStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(store.Root(), domain.IndexFileName), []byte("{not json"), 0o600))

	_, err := store.MetadataSnapshot()
	assert.ErrorIs(t, err, domain.ErrIO)
}

func TestStore_Lock(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	release, err := store.Lock(ctx, true)
	require.NoError(t, err)

	// a second acquisition contends even within one process
	_, err = store.Lock(ctx, true)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStoreLocked)

	waitCtx, cancel := context.WithTimeout(ctx, 250*time.Millisecond)
	defer cancel()
	_, err = store.Lock(waitCtx, false)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, release())

	release2, err := store.Lock(ctx, true)
	require.NoError(t, err)
	require.NoError(t, release2())
}

func TestStore_LockWaitsForRelease(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	release, err := store.Lock(ctx, false)
	require.NoError(t, err)

	go func() {
		time.Sleep(150 * time.Millisecond)
		_ = release()
	}()

	release2, err := store.Lock(ctx, false)
	require.NoError(t, err)
	require.NoError(t, release2())
}

func TestStore_Prune(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	kept := []byte("kept")
	dropped := []byte("dropped")
	keptHash := digest.FromBytes(kept).String()
	droppedHash := digest.FromBytes(dropped).String()

	for _, c := range []struct {
		hash string
		data []byte
	}{{keptHash, kept}, {droppedHash, dropped}} {
		require.NoError(t, store.Put(c.hash, c.data))
		dir, _, err := store.Stage()
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, "file"), c.data, 0o600))
		_, err = store.Commit(dir, c.hash)
		require.NoError(t, err)
	}
	require.NoError(t, store.RecordInstall(installedRecord("kept", "1.0.0", keptHash)))
	require.NoError(t, store.Link("kept", store.PayloadPath(keptHash)))
	require.NoError(t, store.Link("ghost", store.PayloadPath(droppedHash)))
	leftover, _, err := store.Stage()
	require.NoError(t, err)

	report, err := store.Prune(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{filepath.Base(leftover)}, report.StagingDirs)
	assert.Equal(t, []string{digest.Digest(droppedHash).Encoded()}, report.Payloads)
	assert.Equal(t, []string{digest.Digest(droppedHash).Encoded()}, report.Blobs)
	assert.Equal(t, []string{"ghost"}, report.Links)
	assert.Equal(t, 4, report.Removed())
	assert.Positive(t, report.Bytes)

	assert.True(t, store.HasPayload(keptHash))
	assert.False(t, store.HasPayload(droppedHash))
	_, err = store.Get(keptHash)
	assert.NoError(t, err)
}
