package domain

import (
	"errors"

	"go.trai.ch/zerr"
)

var (
	// ErrNotFound is returned when a package or a version satisfying a constraint does not exist.
	ErrNotFound = zerr.New("package not found")

	// ErrMalformedManifest is returned when a formula is structurally invalid.
	ErrMalformedManifest = zerr.New("malformed manifest")

	// ErrCyclicDependency is returned when hard dependencies form a cycle.
	ErrCyclicDependency = zerr.New("cyclic dependency")

	// ErrUnsatisfiable is returned when no assignment of versions satisfies every constraint.
	ErrUnsatisfiable = zerr.New("unsatisfiable constraints")

	// ErrIntegrity is returned when an artifact does not match its declared content hash.
	ErrIntegrity = zerr.New("integrity check failed")

	// ErrCorruptArchive is returned when an artifact cannot be unpacked.
	ErrCorruptArchive = zerr.New("corrupt archive")

	// ErrTimeout is returned when a fetch or extract exceeds its deadline.
	ErrTimeout = zerr.New("operation timed out")

	// ErrStoreLocked is returned when another process holds the store lock and waiting is disabled.
	ErrStoreLocked = zerr.New("store is locked by another process")

	// ErrIO is returned for filesystem failures such as a full disk or denied permission.
	ErrIO = zerr.New("i/o failure")

	// ErrHasDependents is returned when removing a package that other installed packages depend on.
	ErrHasDependents = zerr.New("package has installed dependents")

	// ErrNotInstalled is returned when an operation targets a package that is not installed.
	ErrNotInstalled = zerr.New("package is not installed")

	// ErrTransactionFailed is returned when a step of a transaction fails.
	ErrTransactionFailed = zerr.New("transaction failed")

	// ErrInvalidVersion is returned when a version string is not a semantic version.
	ErrInvalidVersion = zerr.New("invalid version")

	// ErrInvalidConstraint is returned when a constraint expression cannot be parsed.
	ErrInvalidConstraint = zerr.New("invalid version constraint")

	// ErrInvalidPackageName is returned when a package name contains forbidden characters.
	ErrInvalidPackageName = zerr.New("invalid package name")

	// ErrInvalidPolicy is returned when a resolution policy name is unknown.
	ErrInvalidPolicy = zerr.New("invalid resolution policy, expected 'latest' or 'minimal-churn'")

	// ErrNoTargetsSpecified is returned when an upgrade names no packages and --all is not set.
	ErrNoTargetsSpecified = zerr.New("no packages specified")
)

// IsResolutionError reports whether err was raised while computing a plan,
// before any change to the store was attempted.
func IsResolutionError(err error) bool {
	for _, target := range []error{
		ErrNotFound,
		ErrMalformedManifest,
		ErrCyclicDependency,
		ErrUnsatisfiable,
		ErrHasDependents,
		ErrInvalidConstraint,
		ErrInvalidVersion,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// MetadataValue returns the first value stored under key anywhere in the
// error chain of err.
func MetadataValue(err error, key string) (any, bool) {
	for ; err != nil; err = errors.Unwrap(err) {
		md, ok := err.(interface{ Metadata() map[string]any })
		if !ok {
			continue
		}
		if v, ok := md.Metadata()[key]; ok {
			return v, true
		}
	}
	return nil, false
}

// WrapIO classifies a filesystem failure as ErrIO, keeping the original
// message and the affected path.
func WrapIO(err error, msg, path string) error {
	if err == nil {
		return nil
	}
	return zerr.With(zerr.Wrap(ErrIO, msg+": "+err.Error()), "path", path)
}

// TransactionError reports the step that halted a transaction. It matches
// ErrTransactionFailed and unwraps to the failure of the step.
type TransactionError struct {
	TransactionID string

	// Step is the failed step. It is the zero Step when the transaction
	// failed before or between steps.
	Step Step

	Err error
}

// Error implements error.
func (e *TransactionError) Error() string {
	return e.Message() + ": " + e.Err.Error()
}

// Message returns the message of this layer without its cause.
func (e *TransactionError) Message() string {
	if e.Step.Name == "" {
		return "transaction failed"
	}
	return "transaction failed at " + e.Step.String()
}

// Metadata returns the transaction id and the failed step.
func (e *TransactionError) Metadata() map[string]any {
	meta := map[string]any{}
	if e.TransactionID != "" {
		meta["transaction"] = e.TransactionID
	}
	if e.Step.Name != "" {
		meta["step"] = e.Step.String()
	}
	return meta
}

// Unwrap returns the step failure.
func (e *TransactionError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrTransactionFailed.
func (e *TransactionError) Is(target error) bool {
	return target == ErrTransactionFailed
}
