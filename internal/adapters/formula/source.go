// Package formula loads package formulae from tap directories.
package formula

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"go.trai.ch/keg/internal/core/domain"
	"go.trai.ch/keg/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// Extensions lists the recognised formula file extensions in lookup order.
var Extensions = []string{".yaml", ".yml", ".toml"}

var _ ports.ManifestSource = (*Source)(nil)

// Source implements ports.ManifestSource over a list of tap directories.
// The first tap holding a formula for a name wins.
type Source struct {
	taps     []string
	validate *validator.Validate
}

// NewSource creates a Source searching taps in order.
func NewSource(taps ...string) *Source {
	return &Source{
		taps:     slices.Clone(taps),
		validate: newValidator(),
	}
}

// Taps returns the searched tap directories.
func (s *Source) Taps() []string {
	return slices.Clone(s.taps)
}

// Load returns every published version of name, lowest first.
func (s *Source) Load(ctx context.Context, name string) ([]domain.PackageSpec, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if domain.ValidatePackageName(name) != nil {
		return nil, notFound(name)
	}

	path, err := s.find(name)
	if err != nil {
		return nil, err
	}
	return s.LoadFile(path, name)
}

// LoadFile parses and validates the formula at path. If want is not empty the
// formula must be named want.
func (s *Source) LoadFile(path, want string) ([]domain.PackageSpec, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is inside a configured tap
	if err != nil {
		return nil, domain.WrapIO(err, "failed to read formula", path)
	}

	var f Formula
	if err := decode(path, data, &f); err != nil {
		return nil, malformed(path, "", "failed to parse formula: "+err.Error())
	}
	if err := s.validate.Struct(&f); err != nil {
		field, msg := describeValidation(err)
		return nil, malformed(path, field, msg)
	}
	if want != "" && f.Name != want {
		return nil, malformed(path, "name", fmt.Sprintf("formula declares %q, expected %q", f.Name, want))
	}

	return toSpecs(path, &f)
}

func (s *Source) find(name string) (string, error) {
	for _, tap := range s.taps {
		for _, ext := range Extensions {
			path := filepath.Join(tap, name+ext)
			info, err := os.Stat(path)
			switch {
			case err == nil && info.Mode().IsRegular():
				return path, nil
			case err == nil, errors.Is(err, os.ErrNotExist):
				continue
			default:
				return "", domain.WrapIO(err, "failed to stat formula", path)
			}
		}
	}
	return "", notFound(name)
}

func decode(path string, data []byte, f *Formula) error {
	if filepath.Ext(path) == ".toml" {
		md, err := toml.Decode(string(data), f)
		if err != nil {
			return err
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("unknown field %q", undecoded[0].String())
		}
		return nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(f); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func toSpecs(path string, f *Formula) ([]domain.PackageSpec, error) {
	specs := make([]domain.PackageSpec, 0, len(f.Versions))
	seen := make(map[string]bool, len(f.Versions))

	for i, dto := range f.Versions {
		field := fmt.Sprintf("versions[%d]", i)

		// Already validated.
		v, _ := domain.ParseVersion(dto.Version)
		if seen[v.String()] {
			return nil, malformed(path, field+".version", fmt.Sprintf("duplicate version %s", v))
		}
		seen[v.String()] = true

		spec := domain.PackageSpec{
			Name:        f.Name,
			Version:     v,
			Description: f.Description,
			URL:         resolveURL(filepath.Dir(path), dto.URL),
			Hash:        dto.Hash,
		}

		names := make(map[string]bool)
		add := func(list []string, key string, optional bool) error {
			for j, raw := range list {
				dep, err := domain.ParseDependency(raw)
				if err != nil {
					return malformed(path, fmt.Sprintf("%s.%s[%d]", field, key, j), err.Error())
				}
				if names[dep.Name] {
					return malformed(path, fmt.Sprintf("%s.%s[%d]", field, key, j), fmt.Sprintf("duplicate dependency %q", dep.Name))
				}
				names[dep.Name] = true
				dep.Optional = optional
				spec.Dependencies = append(spec.Dependencies, dep)
			}
			return nil
		}
		if err := add(dto.Dependencies, "dependencies", false); err != nil {
			return nil, err
		}
		if err := add(dto.Optional, "optional", true); err != nil {
			return nil, err
		}

		specs = append(specs, spec)
	}

	slices.SortFunc(specs, func(a, b domain.PackageSpec) int {
		return a.Version.Compare(b.Version)
	})
	return specs, nil
}

// resolveURL makes relative artifact paths relative to the formula's tap.
func resolveURL(dir, raw string) string {
	if u, err := url.Parse(raw); err == nil && u.Scheme != "" && len(u.Scheme) > 1 {
		return raw
	}
	if filepath.IsAbs(raw) || strings.HasPrefix(raw, "~") {
		return raw
	}
	return filepath.Join(dir, raw)
}

func notFound(name string) error {
	return zerr.With(zerr.Wrap(domain.ErrNotFound, fmt.Sprintf("no formula for %q", name)), "package", name)
}

func malformed(path, field, msg string) error {
	err := zerr.With(zerr.Wrap(domain.ErrMalformedManifest, msg), "file", path)
	if field != "" {
		err = zerr.With(err, "field", field)
	}
	return err
}
