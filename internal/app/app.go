// Package app implements the application layer for keg.
package app

import (
	"context"
	"io"
	"os"

	"go.trai.ch/keg/internal/core/domain"
	"go.trai.ch/keg/internal/core/ports"
	"go.trai.ch/keg/internal/engine/manifest"
	"go.trai.ch/keg/internal/engine/resolver"
	"go.trai.ch/keg/internal/engine/transaction"
	"go.trai.ch/zerr"
)

// App represents the main application logic.
type App struct {
	settings domain.Settings
	graph    *manifest.Graph
	resolver *resolver.Resolver
	engine   *transaction.Engine
	store    ports.Store
	hasher   ports.TreeHasher
	logger   ports.Logger
	out      io.Writer
}

// New creates a new App instance.
func New(
	settings domain.Settings,
	graph *manifest.Graph,
	res *resolver.Resolver,
	engine *transaction.Engine,
	store ports.Store,
	hasher ports.TreeHasher,
	log ports.Logger,
) *App {
	return &App{
		settings: settings,
		graph:    graph,
		resolver: res,
		engine:   engine,
		store:    store,
		hasher:   hasher,
		logger:   log,
		out:      os.Stdout,
	}
}

// WithOutput redirects user-facing output, which goes to stdout by default.
func (a *App) WithOutput(w io.Writer) *App {
	a.out = w
	return a
}

// InstallOptions configuration for the Install method.
type InstallOptions struct {
	// Constraint restricts the installed version; empty means any.
	Constraint string
	// Policy overrides the configured resolution policy.
	Policy string
	DryRun bool
	NoWait bool
}

// Install resolves name and its dependencies and applies the plan.
func (a *App) Install(ctx context.Context, name string, opts InstallOptions) error {
	c, err := domain.ParseConstraint(opts.Constraint)
	if err != nil {
		return err
	}
	policy, err := a.policy(opts.Policy)
	if err != nil {
		return err
	}

	index, err := a.store.MetadataSnapshot()
	if err != nil {
		return zerr.Wrap(err, "failed to read installed packages")
	}
	if rec, ok := index.Get(name); ok && rec.Explicit && c.Satisfies(rec.Version) && policy != domain.PolicyLatest {
		a.printf("%s is already installed.\n", name)
		return nil
	}

	plan, err := a.resolver.Resolve(ctx, resolver.Request{
		Roots:     []resolver.Root{{Name: name, Constraint: c, Explicit: true}},
		Installed: index,
		Policy:    policy,
	})
	if err != nil {
		return zerr.Wrap(err, "failed to resolve "+name)
	}
	if _, ok := index.Get(name); ok && plan.Changes() == 0 && !hasPromotion(plan, index) {
		a.printf("%s is already installed.\n", name)
		return nil
	}
	return a.apply(ctx, plan, index, opts.DryRun, transaction.Options{NoWait: opts.NoWait})
}

// RemoveOptions configuration for the Remove method.
type RemoveOptions struct {
	// Force removes packages other installed packages still depend on.
	Force bool
	// Autoremove also removes dependencies nothing needs anymore.
	Autoremove bool
	DryRun     bool
	NoWait     bool
}

// Remove uninstalls names.
func (a *App) Remove(ctx context.Context, names []string, opts RemoveOptions) error {
	if len(names) == 0 {
		return domain.ErrNoTargetsSpecified
	}
	index, err := a.store.MetadataSnapshot()
	if err != nil {
		return zerr.Wrap(err, "failed to read installed packages")
	}

	var targets []string
	for _, name := range names {
		if _, ok := index.Get(name); !ok {
			a.printf("%s is not installed.\n", name)
			continue
		}
		targets = append(targets, name)
	}
	if len(targets) == 0 {
		return nil
	}

	plan, err := a.resolver.PlanRemoval(index, targets, resolver.RemoveOptions{
		Force:      opts.Force,
		Autoremove: opts.Autoremove,
	})
	if err != nil {
		return err
	}
	return a.apply(ctx, plan, index, opts.DryRun, transaction.Options{NoWait: opts.NoWait, Force: opts.Force})
}

// UpgradeOptions configuration for the Upgrade method.
type UpgradeOptions struct {
	// All upgrades every installed package.
	All    bool
	Policy string
	DryRun bool
	NoWait bool
}

// Upgrade re-resolves the installed packages, preferring the newest
// versions of names (or of every package with All).
func (a *App) Upgrade(ctx context.Context, names []string, opts UpgradeOptions) error {
	if len(names) == 0 && !opts.All {
		return domain.ErrNoTargetsSpecified
	}
	policy, err := a.policy(opts.Policy)
	if err != nil {
		return err
	}
	index, err := a.store.MetadataSnapshot()
	if err != nil {
		return zerr.Wrap(err, "failed to read installed packages")
	}

	req := resolver.Request{
		Installed:  index,
		Policy:     policy,
		Upgrade:    names,
		UpgradeAll: opts.All,
	}
	for _, name := range names {
		rec, ok := index.Get(name)
		if !ok {
			return zerr.With(zerr.Wrap(domain.ErrNotInstalled, name+" is not installed"), "package", name)
		}
		req.Roots = append(req.Roots, resolver.Root{Name: name, Constraint: domain.AnyConstraint(), Explicit: rec.Explicit})
	}

	plan, err := a.resolver.Resolve(ctx, req)
	if err != nil {
		return zerr.Wrap(err, "failed to resolve upgrade")
	}
	return a.apply(ctx, plan, index, opts.DryRun, transaction.Options{NoWait: opts.NoWait})
}

// apply prints plan and, unless dryRun, executes it and prints the report.
func (a *App) apply(ctx context.Context, plan *domain.Plan, index *domain.Index, dryRun bool, opts transaction.Options) error {
	if plan.Changes() == 0 && !hasPromotion(plan, index) {
		a.printf("Nothing to do.\n")
		return nil
	}
	if dryRun {
		renderPlan(a.out, plan)
		return nil
	}

	base := transaction.OptionsFromSettings(a.settings)
	base.NoWait = opts.NoWait
	base.Force = opts.Force

	report, err := a.engine.Execute(ctx, plan, base)
	renderReport(a.out, report)
	return err
}

// hasPromotion reports whether a keep step will mark an installed dependency
// as explicitly requested.
func hasPromotion(plan *domain.Plan, index *domain.Index) bool {
	for _, step := range plan.Steps {
		if step.Action != domain.ActionKeep || !step.Explicit {
			continue
		}
		if rec, ok := index.Get(step.Name); ok && !rec.Explicit {
			return true
		}
	}
	return false
}

func (a *App) policy(override string) (domain.Policy, error) {
	if override == "" {
		if a.settings.Policy == "" {
			return domain.PolicyMinimalChurn, nil
		}
		return a.settings.Policy, nil
	}
	return domain.ParsePolicy(override)
}
