package transaction

import (
	"context"

	"go.trai.ch/keg/internal/core/domain"
	"go.trai.ch/zerr"
)

// install applies an install or upgrade step. The new record is written only
// after the payload is committed, so a failure leaves the previous record in
// place.
func (r *run) install(ctx context.Context, step domain.Step, fetches *fetchSet) (bool, error) {
	spec := step.Spec
	if spec == nil {
		return false, zerr.With(zerr.Wrap(domain.ErrNotFound, "step carries no package spec"), "package", step.Name)
	}

	index, err := r.store.MetadataSnapshot()
	if err != nil {
		return false, err
	}
	old, installed := index.Get(step.Name)
	if installed && old.Version.Equal(spec.Version) && old.ContentHash == spec.Hash && r.store.HasPayload(spec.Hash) {
		// an interrupted run may have recorded the package without linking it
		if err := r.store.Link(step.Name, old.InstallPath); err != nil {
			return false, err
		}
		if step.Explicit && !old.Explicit {
			return true, r.markExplicit(step.Name)
		}
		return false, nil
	}

	path, treeHash, err := r.materialize(ctx, spec, fetches)
	if err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	record := domain.NewInstalledRecord(spec, path, treeHash, step.Explicit || (installed && old.Explicit), r.now())
	if err := r.store.RecordInstall(record); err != nil {
		return false, err
	}
	if err := r.store.Link(step.Name, path); err != nil {
		return false, err
	}

	if installed && old.ContentHash != spec.Hash {
		r.releasePayload(old.ContentHash)
	}
	return true, nil
}

// materialize makes sure the payload of spec exists and returns its path and
// tree hash.
func (r *run) materialize(ctx context.Context, spec *domain.PackageSpec, fetches *fetchSet) (string, string, error) {
	if r.store.HasPayload(spec.Hash) {
		path := r.store.PayloadPath(spec.Hash)
		treeHash, err := r.hasher.HashTree(path)
		if err != nil {
			return "", "", err
		}
		return path, treeHash, nil
	}

	data, err := fetches.artifact(ctx, spec.Hash)
	if err != nil {
		return "", "", err
	}
	if err := r.store.Put(spec.Hash, data); err != nil {
		return "", "", err
	}

	staging, cleanup, err := r.store.Stage()
	if err != nil {
		return "", "", err
	}
	defer cleanup()

	extractCtx, cancel := withTimeout(ctx, r.opts.ExtractTimeout)
	defer cancel()
	if err := r.extractor.Extract(extractCtx, data, staging); err != nil {
		return "", "", zerr.With(deadline(ctx, extractCtx, err, "extract", r.opts.ExtractTimeout), "package", spec.ID())
	}

	treeHash, err := r.hasher.HashTree(staging)
	if err != nil {
		return "", "", err
	}
	path, err := r.store.Commit(staging, spec.Hash)
	if err != nil {
		return "", "", err
	}
	return path, treeHash, nil
}

// remove applies a remove step. The record goes first so that no record ever
// points at a deleted payload.
func (r *run) remove(step domain.Step) (bool, error) {
	index, err := r.store.MetadataSnapshot()
	if err != nil {
		return false, err
	}
	rec, ok := index.Get(step.Name)
	if !ok {
		return false, nil
	}
	if rec.HasDependents() && !r.opts.Force {
		return false, zerr.With(zerr.With(zerr.Wrap(domain.ErrHasDependents, step.Name+" is required by other packages"),
			"package", step.Name), "dependents", rec.Dependents)
	}

	if err := r.store.RecordRemove(step.Name); err != nil {
		return false, err
	}
	if err := r.store.Unlink(step.Name); err != nil {
		return false, err
	}
	r.releasePayload(rec.ContentHash)
	return true, nil
}

// keep marks an already installed package as explicitly requested.
func (r *run) keep(step domain.Step) (bool, error) {
	index, err := r.store.MetadataSnapshot()
	if err != nil {
		return false, err
	}
	rec, ok := index.Get(step.Name)
	if !ok {
		return false, zerr.With(zerr.Wrap(domain.ErrNotInstalled, "cannot keep "+step.Name), "package", step.Name)
	}
	if rec.Explicit || !step.Explicit {
		return false, nil
	}
	return true, r.markExplicit(step.Name)
}

func (r *run) markExplicit(name string) error {
	return r.store.Update(func(ix *domain.Index) error {
		rec, ok := ix.Get(name)
		if !ok {
			return zerr.With(zerr.Wrap(domain.ErrNotInstalled, "cannot mark "+name+" as requested"), "package", name)
		}
		rec.Explicit = true
		ix.Put(rec)
		return nil
	})
}

// releasePayload deletes the payload of hash unless a record still uses it.
// Failures only leave garbage behind for cleanup, so they are logged.
func (r *run) releasePayload(hash string) {
	index, err := r.store.MetadataSnapshot()
	if err != nil {
		r.logger.Warn("failed to read index, keeping payload " + hash + ": " + err.Error())
		return
	}
	if index.ReferencesHash(hash, "") {
		return
	}
	if err := r.store.RemovePayload(hash); err != nil {
		r.logger.Warn("failed to remove payload " + hash + ": " + err.Error())
	}
}
