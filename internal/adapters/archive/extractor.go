// Package archive unpacks package artifacts.
package archive

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"go.trai.ch/keg/internal/core/domain"
	"go.trai.ch/keg/internal/core/ports"
	"go.trai.ch/zerr"
)

// Format is a recognised artifact encoding.
type Format string

const (
	// FormatTar is an uncompressed tar stream.
	FormatTar Format = "tar"
	// FormatGzip is a gzip-compressed tar stream.
	FormatGzip Format = "tar.gz"
	// FormatZstd is a zstd-compressed tar stream.
	FormatZstd Format = "tar.zst"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

var _ ports.Extractor = (*Extractor)(nil)

// Extractor implements ports.Extractor for tar, tar.gz and tar.zst artifacts.
type Extractor struct{}

// NewExtractor creates a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Detect returns the format of data from its leading magic bytes.
func Detect(data []byte) Format {
	switch {
	case bytes.HasPrefix(data, gzipMagic):
		return FormatGzip
	case bytes.HasPrefix(data, zstdMagic):
		return FormatZstd
	default:
		return FormatTar
	}
}

// Extract unpacks data into dest. Every entry is created through an os.Root
// opened at dest, entries below a symlink are refused, and every symlink must
// resolve inside dest once the archive is unpacked. Violations are rejected
// with domain.ErrCorruptArchive.
func (e *Extractor) Extract(ctx context.Context, data []byte, dest string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(dest, domain.DirPerm); err != nil {
		return domain.WrapIO(err, "failed to create extraction directory", dest)
	}
	root, err := os.OpenRoot(dest)
	if err != nil {
		return domain.WrapIO(err, "failed to open extraction directory", dest)
	}
	defer func() { _ = root.Close() }()

	r, closeFn, err := decompress(data)
	if err != nil {
		return corrupt(err.Error())
	}
	defer closeFn()

	tr := tar.NewReader(&ctxReader{ctx: ctx, r: r})
	entries := 0
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return corrupt(err.Error())
		}
		entries++

		if err := extractEntry(ctx, tr, hdr, root); err != nil {
			return err
		}
	}

	if entries == 0 {
		return corrupt("archive has no entries")
	}
	return checkLinks(root)
}

func decompress(data []byte) (io.Reader, func(), error) {
	switch Detect(data) {
	case FormatGzip:
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, nil, err
		}
		return zr, func() { _ = zr.Close() }, nil
	case FormatZstd:
		zr, err := zstd.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, nil, err
		}
		return zr, zr.Close, nil
	default:
		return bytes.NewReader(data), func() {}, nil
	}
}

func extractEntry(ctx context.Context, tr *tar.Reader, hdr *tar.Header, root *os.Root) error {
	name, ok := localName(hdr.Name)
	if !ok {
		return zerr.With(corrupt("entry escapes destination"), "entry", hdr.Name)
	}
	if name == "." {
		return nil
	}
	if err := checkParents(root, name); err != nil {
		return zerr.With(err, "entry", hdr.Name)
	}

	switch hdr.Typeflag {
	case tar.TypeDir:
		if err := root.MkdirAll(name, hdr.FileInfo().Mode().Perm()|0o700); err != nil {
			return domain.WrapIO(err, "failed to create directory", name)
		}
		return nil

	case tar.TypeReg:
		if err := mkParent(root, name); err != nil {
			return err
		}
		return writeFile(ctx, tr, root, name, hdr.FileInfo().Mode().Perm()|0o600)

	case tar.TypeSymlink:
		if !linkStaysInside(name, hdr.Linkname) {
			return zerr.With(corrupt("symlink escapes destination"), "entry", hdr.Name)
		}
		if err := mkParent(root, name); err != nil {
			return err
		}
		if err := root.Symlink(hdr.Linkname, name); err != nil {
			return domain.WrapIO(err, "failed to create symlink", name)
		}
		return nil

	case tar.TypeLink:
		linked, ok := localName(hdr.Linkname)
		if !ok || linked == "." {
			return zerr.With(corrupt("hard link escapes destination"), "entry", hdr.Name)
		}
		if err := checkParents(root, linked); err != nil {
			return zerr.With(err, "entry", hdr.Name)
		}
		if err := mkParent(root, name); err != nil {
			return err
		}
		if err := root.Link(linked, name); err != nil {
			return domain.WrapIO(err, "failed to create hard link", name)
		}
		return nil

	default:
		// Devices, fifos and global headers carry nothing a package needs.
		return nil
	}
}

func mkParent(root *os.Root, name string) error {
	dir := filepath.Dir(name)
	if dir == "." {
		return nil
	}
	if err := root.MkdirAll(dir, domain.DirPerm); err != nil {
		return domain.WrapIO(err, "failed to create directory", dir)
	}
	return nil
}

// checkParents refuses name if any of its parent directories is a symlink.
// With no symlinked parents the textual parent of an entry is its real
// parent, which is what linkStaysInside relies on.
func checkParents(root *os.Root, name string) error {
	dir := filepath.Dir(name)
	if dir == "." {
		return nil
	}
	prefix := ""
	for part := range strings.SplitSeq(dir, string(filepath.Separator)) {
		prefix = filepath.Join(prefix, part)
		info, err := root.Lstat(prefix)
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if err != nil {
			return domain.WrapIO(err, "failed to inspect directory", prefix)
		}
		if info.Mode()&fs.ModeSymlink != 0 {
			return zerr.With(corrupt("entry is below a symlink"), "symlink", prefix)
		}
	}
	return nil
}

// checkLinks resolves every symlink under root. A link whose resolution
// leaves root, or loops, is rejected. Dangling links are allowed.
func checkLinks(root *os.Root) error {
	return fs.WalkDir(root.FS(), ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return domain.WrapIO(err, "failed to walk extracted tree", path)
		}
		if d.Type()&fs.ModeSymlink == 0 {
			return nil
		}
		name := filepath.FromSlash(path)
		if _, err := root.Stat(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return zerr.With(corrupt("symlink resolves outside destination"), "entry", path)
		}
		return nil
	})
}

func writeFile(ctx context.Context, r io.Reader, root *os.Root, name string, mode os.FileMode) error {
	f, err := root.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return domain.WrapIO(err, "failed to create file", name)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, tar.ErrHeader) {
			return zerr.With(corrupt("truncated entry"), "path", name)
		}
		return domain.WrapIO(err, "failed to write file", name)
	}
	if err := f.Close(); err != nil {
		return domain.WrapIO(err, "failed to close file", name)
	}
	return nil
}

// localName cleans an entry name and reports whether it stays below the
// extraction root.
func localName(name string) (string, bool) {
	name = strings.TrimPrefix(filepath.FromSlash(name), "."+string(filepath.Separator))
	if name == "" || name == "." {
		return ".", true
	}
	name = filepath.Clean(name)
	return name, filepath.IsLocal(name)
}

// linkStaysInside reports whether a symlink at name pointing at target
// resolves below the extraction root.
func linkStaysInside(name, target string) bool {
	if filepath.IsAbs(target) {
		return false
	}
	resolved := filepath.Join(filepath.Dir(name), filepath.FromSlash(target))
	return filepath.IsLocal(resolved)
}

func corrupt(msg string) error {
	return zerr.Wrap(domain.ErrCorruptArchive, msg)
}

// ctxReader stops reading once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, fmt.Errorf("read interrupted: %w", err)
	}
	return c.r.Read(p)
}
