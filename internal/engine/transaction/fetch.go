package transaction

import (
	"context"
	"errors"
	"time"

	"github.com/opencontainers/go-digest"
	"go.trai.ch/keg/internal/core/domain"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// fetchResult is the outcome of one artifact download. data and err are set
// before done is closed.
type fetchResult struct {
	done chan struct{}
	data []byte
	err  error
}

// fetchSet downloads the artifacts of a plan in the background.
type fetchSet struct {
	results  map[string]*fetchResult
	group    errgroup.Group
	launched chan struct{}
}

// prefetch starts downloading the artifact of every install and upgrade step
// whose payload is not in the store yet, at most opts.Parallelism at a time,
// in plan order.
func (r *run) prefetch(ctx context.Context, steps []domain.Step) *fetchSet {
	fs := &fetchSet{
		results:  make(map[string]*fetchResult),
		launched: make(chan struct{}),
	}
	fs.group.SetLimit(r.opts.Parallelism)

	var pending []*domain.PackageSpec
	for _, step := range steps {
		if step.Spec == nil || (step.Action != domain.ActionInstall && step.Action != domain.ActionUpgrade) {
			continue
		}
		if _, dup := fs.results[step.Spec.Hash]; dup || r.store.HasPayload(step.Spec.Hash) {
			continue
		}
		fs.results[step.Spec.Hash] = &fetchResult{done: make(chan struct{})}
		pending = append(pending, step.Spec)
	}

	go func() {
		defer close(fs.launched)
		for _, spec := range pending {
			res := fs.results[spec.Hash]
			fs.group.Go(func() error {
				defer close(res.done)
				res.data, res.err = r.fetch(ctx, spec)
				return nil
			})
		}
	}()
	return fs
}

// artifact waits for the download of hash.
func (fs *fetchSet) artifact(ctx context.Context, hash string) ([]byte, error) {
	res, ok := fs.results[hash]
	if !ok {
		return nil, zerr.With(zerr.Wrap(domain.ErrNotFound, "artifact was not scheduled for download"), "hash", hash)
	}
	select {
	case <-res.done:
		return res.data, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (fs *fetchSet) wait() {
	<-fs.launched
	_ = fs.group.Wait()
}

// fetch returns the verified artifact of spec, from the blob cache when it
// holds a valid copy.
func (r *run) fetch(ctx context.Context, spec *domain.PackageSpec) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if data, err := r.store.Get(spec.Hash); err == nil {
		return data, nil
	}
	if spec.URL == "" {
		return nil, zerr.With(zerr.Wrap(domain.ErrNotFound, "no artifact url for "+spec.ID()), "package", spec.Name)
	}

	ctx, vertex := r.telemetry.Record(ctx, "fetch "+spec.ID())
	fetchCtx, cancel := withTimeout(ctx, r.opts.FetchTimeout)
	defer cancel()

	data, declared, err := r.fetcher.Fetch(fetchCtx, spec.URL)
	if err == nil {
		err = verifyArtifact(spec, data, declared)
	} else {
		err = zerr.With(deadline(ctx, fetchCtx, err, "fetch", r.opts.FetchTimeout), "url", spec.URL)
	}
	vertex.Complete(err)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// verifyArtifact checks data against the hash of spec and against the digest
// published next to the artifact, if any.
func verifyArtifact(spec *domain.PackageSpec, data []byte, declared string) error {
	expected, err := digest.Parse(spec.Hash)
	if err != nil {
		return zerr.With(zerr.With(zerr.Wrap(domain.ErrIntegrity, "formula hash is not a valid digest"),
			"package", spec.ID()), "hash", spec.Hash)
	}
	if declared != "" && declared != expected.String() {
		return zerr.With(zerr.With(zerr.With(zerr.Wrap(domain.ErrIntegrity, "published digest differs from formula"),
			"package", spec.ID()), "expected", expected.String()), "declared", declared)
	}
	if actual := expected.Algorithm().FromBytes(data); actual != expected {
		return zerr.With(zerr.With(zerr.With(zerr.Wrap(domain.ErrIntegrity, "artifact does not match its hash"),
			"package", spec.ID()), "expected", expected.String()), "actual", actual.String())
	}
	return nil
}

func withTimeout(ctx context.Context, limit time.Duration) (context.Context, context.CancelFunc) {
	if limit <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, limit)
}

// deadline reports err as domain.ErrTimeout when the operation ran out of its
// own time budget rather than being canceled from outside.
func deadline(parent, opCtx context.Context, err error, op string, limit time.Duration) error {
	if parent.Err() == nil && errors.Is(opCtx.Err(), context.DeadlineExceeded) {
		return zerr.With(zerr.Wrap(domain.ErrTimeout, op+" exceeded "+limit.String()), "timeout", limit.String())
	}
	return err
}
