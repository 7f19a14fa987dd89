package domain

import "time"

// StepStatus is the outcome of a plan step.
type StepStatus string

const (
	// StepCompleted indicates the step changed the store.
	StepCompleted StepStatus = "completed"
	// StepSkipped indicates the target state already held, so nothing was done.
	StepSkipped StepStatus = "skipped"
	// StepFailed indicates the step failed; the store is as it was before the step.
	StepFailed StepStatus = "failed"
	// StepNotRun indicates the step was never attempted because an earlier step failed.
	StepNotRun StepStatus = "not-run"
)

// StepResult records the outcome of one step.
type StepResult struct {
	Step     Step
	Status   StepStatus
	Err      error
	Duration time.Duration
}

// ExecutionReport enumerates what a transaction did, in plan order.
type ExecutionReport struct {
	TransactionID string
	StartedAt     time.Time
	FinishedAt    time.Time
	Results       []StepResult
}

// Record appends res.
func (r *ExecutionReport) Record(res StepResult) {
	r.Results = append(r.Results, res)
}

// OK reports whether every step either completed or was skipped.
func (r *ExecutionReport) OK() bool {
	for _, res := range r.Results {
		if res.Status == StepFailed || res.Status == StepNotRun {
			return false
		}
	}
	return true
}

// Completed returns the steps that modified the store.
func (r *ExecutionReport) Completed() []StepResult {
	return r.filter(StepCompleted)
}

// Skipped returns the steps whose target state already held.
func (r *ExecutionReport) Skipped() []StepResult {
	return r.filter(StepSkipped)
}

// NotRun returns the steps never attempted.
func (r *ExecutionReport) NotRun() []StepResult {
	return r.filter(StepNotRun)
}

// Failed returns the failed step, if any.
func (r *ExecutionReport) Failed() (StepResult, bool) {
	for _, res := range r.Results {
		if res.Status == StepFailed {
			return res, true
		}
	}
	return StepResult{}, false
}

// Changed returns the number of steps that modified the store.
func (r *ExecutionReport) Changed() int {
	return len(r.Completed())
}

func (r *ExecutionReport) filter(status StepStatus) []StepResult {
	var out []StepResult
	for _, res := range r.Results {
		if res.Status == status {
			out = append(out, res)
		}
	}
	return out
}
