package app

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.trai.ch/keg/internal/core/domain"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// List prints every installed package.
func (a *App) List(_ context.Context) error {
	records, err := a.store.ListInstalled()
	if err != nil {
		return zerr.Wrap(err, "failed to read installed packages")
	}
	if len(records) == 0 {
		a.printf("No packages installed.\n")
		return nil
	}
	renderList(a.out, records)
	return nil
}

// Why prints the dependency chains through which name is installed.
func (a *App) Why(_ context.Context, name string) error {
	index, err := a.store.MetadataSnapshot()
	if err != nil {
		return zerr.Wrap(err, "failed to read installed packages")
	}
	rec, ok := index.Get(name)
	if !ok {
		return zerr.With(zerr.Wrap(domain.ErrNotInstalled, name+" is not installed"), "package", name)
	}

	if rec.Explicit {
		a.printf("%s@%s was installed explicitly.\n", name, rec.Version)
	}
	for _, chain := range index.Why(name) {
		if len(chain) < 2 {
			continue
		}
		a.printf("%s\n", strings.Join(chain, " -> "))
	}
	return nil
}

// Info prints the published versions of name, the dependencies of its newest
// version and its installed state.
func (a *App) Info(ctx context.Context, name string) error {
	if err := domain.ValidatePackageName(name); err != nil {
		return err
	}
	latest, err := a.graph.LoadSpec(ctx, name, domain.AnyConstraint())
	if err != nil {
		return err
	}
	versions, err := a.graph.Versions(ctx, name)
	if err != nil {
		return err
	}
	index, err := a.store.MetadataSnapshot()
	if err != nil {
		return zerr.Wrap(err, "failed to read installed packages")
	}

	var installed *domain.InstalledRecord
	if rec, ok := index.Get(name); ok {
		installed = &rec
	}
	renderInfo(a.out, &latest, versions, installed)
	return nil
}

// Verify re-fingerprints every installed payload and checks that every hard
// dependency of an installed package is installed at a satisfying version.
// It fails with domain.ErrIntegrity if it finds problems.
func (a *App) Verify(ctx context.Context) error {
	index, err := a.store.MetadataSnapshot()
	if err != nil {
		return zerr.Wrap(err, "failed to read installed packages")
	}
	records := index.Sorted()
	problems := make([][]string, len(records))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(a.settings.Parallelism, 1))
	for i, rec := range records {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			problems[i] = a.verifyRecord(index, &rec)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	total := 0
	for i, rec := range records {
		for _, p := range problems[i] {
			a.printf("%s: %s\n", rec.Name, p)
			total++
		}
	}
	if total > 0 {
		return zerr.With(zerr.Wrap(domain.ErrIntegrity, fmt.Sprintf("verification found %d problem(s)", total)), "problems", total)
	}
	a.printf("%d package(s) verified.\n", len(records))
	return nil
}

func (a *App) verifyRecord(index *domain.Index, rec *domain.InstalledRecord) []string {
	var problems []string
	if !a.store.HasPayload(rec.ContentHash) {
		problems = append(problems, "payload "+rec.ContentHash+" is missing")
	} else if treeHash, err := a.hasher.HashTree(rec.InstallPath); err != nil {
		problems = append(problems, "cannot fingerprint payload: "+err.Error())
	} else if rec.TreeHash != "" && treeHash != rec.TreeHash {
		problems = append(problems, fmt.Sprintf("payload was modified (tree hash %s, recorded %s)", treeHash, rec.TreeHash))
	}

	for _, ref := range rec.Depends {
		if ref.Optional {
			continue
		}
		dep, ok := index.Get(ref.Name)
		if !ok {
			problems = append(problems, "dependency "+ref.Name+" is not installed")
			continue
		}
		c, err := domain.ParseConstraint(ref.Constraint)
		if err != nil {
			problems = append(problems, "dependency "+ref.Name+" has an invalid constraint: "+err.Error())
			continue
		}
		if !c.Satisfies(dep.Version) {
			problems = append(problems, fmt.Sprintf("dependency %s@%s does not satisfy %s", ref.Name, dep.Version, c))
		}
	}
	slices.Sort(problems)
	return problems
}

// CleanupOptions configuration for the Cleanup method.
type CleanupOptions struct {
	NoWait bool
}

// Cleanup removes staging leftovers and payloads and blobs no installed
// package references. It holds the store lock while pruning.
func (a *App) Cleanup(ctx context.Context, opts CleanupOptions) error {
	release, err := a.store.Lock(ctx, opts.NoWait)
	if err != nil {
		return &domain.TransactionError{Err: err}
	}
	defer func() {
		if err := release(); err != nil {
			a.logger.Warn("failed to release store lock: " + err.Error())
		}
	}()

	report, err := a.store.Prune(ctx)
	if err != nil {
		return &domain.TransactionError{Err: err}
	}
	renderPrune(a.out, report)
	return nil
}

func (a *App) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(a.out, format, args...)
}
