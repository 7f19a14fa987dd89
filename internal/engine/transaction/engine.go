// Package transaction applies plans to the package store.
package transaction

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.trai.ch/keg/internal/adapters/telemetry"
	"go.trai.ch/keg/internal/core/domain"
	"go.trai.ch/keg/internal/core/ports"
)

// Options tune one transaction.
type Options struct {
	// NoWait fails with domain.ErrStoreLocked instead of waiting for the store lock.
	NoWait bool

	// FetchTimeout bounds each artifact download. Zero means no limit.
	FetchTimeout time.Duration

	// ExtractTimeout bounds each archive extraction. Zero means no limit.
	ExtractTimeout time.Duration

	// Parallelism is the number of concurrent fetches.
	Parallelism int

	// Force removes packages even if installed packages still depend on them.
	Force bool
}

// OptionsFromSettings returns the options configured in s.
func OptionsFromSettings(s domain.Settings) Options {
	return Options{
		FetchTimeout:   s.FetchTimeout,
		ExtractTimeout: s.ExtractTimeout,
		Parallelism:    s.Parallelism,
	}
}

func (o Options) withDefaults() Options {
	if o.Parallelism < 1 {
		o.Parallelism = 1
	}
	return o
}

// Engine executes plans against a store. Artifacts are fetched concurrently;
// every change to the store is applied serially, in plan order, while the
// store lock is held.
type Engine struct {
	store     ports.Store
	fetcher   ports.Fetcher
	extractor ports.Extractor
	hasher    ports.TreeHasher
	telemetry ports.Telemetry
	logger    ports.Logger
	now       func() time.Time
}

// New creates a new Engine. A nil tel records nothing.
func New(
	store ports.Store,
	fetcher ports.Fetcher,
	extractor ports.Extractor,
	hasher ports.TreeHasher,
	tel ports.Telemetry,
	logger ports.Logger,
) *Engine {
	if tel == nil {
		tel = telemetry.NewNoOp()
	}
	return &Engine{
		store:     store,
		fetcher:   fetcher,
		extractor: extractor,
		hasher:    hasher,
		telemetry: tel,
		logger:    logger,
		now:       time.Now,
	}
}

// Execute applies plan. The returned report lists every step in plan order.
//
// A failing step halts the transaction: the steps after it are reported as
// not run and the error is a *domain.TransactionError wrapping the cause.
// The store is left as it was after the last completed step, so executing
// the same plan again resumes where the failed run stopped. Steps whose
// target state already holds are skipped.
func (e *Engine) Execute(ctx context.Context, plan *domain.Plan, opts Options) (*domain.ExecutionReport, error) {
	report := &domain.ExecutionReport{
		TransactionID: uuid.NewString(),
		StartedAt:     e.now(),
	}

	tel := e.telemetry
	if s, ok := tel.(ports.TransactionScoper); ok {
		tel = s.WithTransaction(report.TransactionID)
	}

	r := &run{
		Engine:    e,
		opts:      opts.withDefaults(),
		report:    report,
		telemetry: tel,
	}
	err := r.execute(ctx, plan)
	report.FinishedAt = e.now()
	return report, err
}

// run is the state of one Execute call.
type run struct {
	*Engine
	opts      Options
	report    *domain.ExecutionReport
	telemetry ports.Telemetry
}

func (r *run) execute(ctx context.Context, plan *domain.Plan) error {
	release, err := r.store.Lock(ctx, r.opts.NoWait)
	if err != nil {
		r.notRun(plan.Steps)
		return r.fail(domain.Step{}, err)
	}
	defer func() {
		if err := release(); err != nil {
			r.logger.Warn("failed to release store lock: " + err.Error())
		}
	}()

	fetchCtx, cancel := context.WithCancel(ctx)
	fetches := r.prefetch(fetchCtx, plan.Steps)
	defer func() {
		cancel()
		fetches.wait()
	}()

	for i, step := range plan.Steps {
		if err := ctx.Err(); err != nil {
			r.notRun(plan.Steps[i:])
			return r.fail(domain.Step{}, err)
		}
		if err := r.step(ctx, step, fetches); err != nil {
			r.notRun(plan.Steps[i+1:])
			return r.fail(step, err)
		}
	}
	return nil
}

// step applies a single step and records its outcome.
func (r *run) step(ctx context.Context, step domain.Step, fetches *fetchSet) error {
	start := r.now()
	ctx, vertex := r.telemetry.Record(ctx, step.String())

	var (
		changed bool
		err     error
	)
	switch step.Action {
	case domain.ActionInstall, domain.ActionUpgrade:
		changed, err = r.install(ctx, step, fetches)
	case domain.ActionRemove:
		changed, err = r.remove(step)
	case domain.ActionKeep:
		changed, err = r.keep(step)
	}

	res := domain.StepResult{Step: step, Duration: r.now().Sub(start)}
	switch {
	case err != nil:
		res.Status, res.Err = domain.StepFailed, err
		vertex.Log(res.Status.Level(), err.Error())
		vertex.Complete(err)
	case changed:
		res.Status = domain.StepCompleted
		vertex.Complete(nil)
	default:
		res.Status = domain.StepSkipped
		vertex.Cached()
	}
	r.report.Record(res)
	r.logger.Debug(step.String() + ": " + string(res.Status))
	return err
}

func (r *run) notRun(steps []domain.Step) {
	for _, step := range steps {
		r.report.Record(domain.StepResult{Step: step, Status: domain.StepNotRun})
	}
}

func (r *run) fail(step domain.Step, err error) error {
	return &domain.TransactionError{
		TransactionID: r.report.TransactionID,
		Step:          step,
		Err:           err,
	}
}
