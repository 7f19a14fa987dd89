package cas

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"go.trai.ch/keg/internal/core/domain"
)

// Prune removes staging leftovers, payloads and blobs no installed record
// references, and links of packages that are no longer installed. The caller
// must hold the store lock.
func (s *Store) Prune(ctx context.Context) (domain.PruneReport, error) {
	var report domain.PruneReport

	ix, err := s.MetadataSnapshot()
	if err != nil {
		return report, err
	}
	referenced := make(map[string]bool, ix.Len())
	for _, r := range ix.Packages {
		if d, err := parseHash(r.ContentHash); err == nil {
			referenced[d.Encoded()] = true
		}
	}

	steps := []struct {
		dir  string
		keep func(name string) bool
		out  *[]string
	}{
		{s.stagingDir(), func(string) bool { return false }, &report.StagingDirs},
		{s.payloadDir(), func(name string) bool { return referenced[name] }, &report.Payloads},
		{s.blobDir(), func(name string) bool { return referenced[name] }, &report.Blobs},
		{s.linkDir(), func(name string) bool {
			_, ok := ix.Get(name)
			return ok
		}, &report.Links},
	}

	for _, step := range steps {
		entries, err := os.ReadDir(step.dir)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return report, domain.WrapIO(err, "failed to list store directory", step.dir)
		}
		for _, e := range entries {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			name := e.Name()
			if step.keep(name) {
				continue
			}
			path := filepath.Join(step.dir, name)
			report.Bytes += diskUsage(path)
			if err := os.RemoveAll(path); err != nil {
				return report, domain.WrapIO(err, "failed to remove unreferenced entry", path)
			}
			*step.out = append(*step.out, name)
		}
	}

	return report, nil
}

// diskUsage returns the total size of the regular files under path.
func diskUsage(path string) int64 {
	var total int64
	_ = filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // Best effort accounting
		}
		if d.Type().IsRegular() {
			if info, err := d.Info(); err == nil {
				total += info.Size()
			}
		}
		return nil
	})
	return total
}
