package domain

import (
	"strings"
	"time"

	"go.trai.ch/zerr"
)

// Policy decides which version the resolver tries first.
type Policy string

const (
	// PolicyLatest prefers the newest satisfying version of every package.
	PolicyLatest Policy = "latest"

	// PolicyMinimalChurn prefers the installed version of a package when it
	// still satisfies every constraint, and the newest version otherwise.
	PolicyMinimalChurn Policy = "minimal-churn"
)

// ParsePolicy converts a policy name. The empty string selects PolicyMinimalChurn.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(PolicyMinimalChurn):
		return PolicyMinimalChurn, nil
	case string(PolicyLatest):
		return PolicyLatest, nil
	}
	return "", zerr.With(zerr.Wrap(ErrInvalidPolicy, s), "policy", s)
}

// Settings is the resolved configuration of a keg invocation.
type Settings struct {
	// Root is the store directory.
	Root string

	// Taps are the formula directories searched in order.
	Taps []string

	// Policy is the default resolution policy.
	Policy Policy

	// FetchTimeout bounds each artifact download.
	FetchTimeout time.Duration

	// ExtractTimeout bounds each archive extraction.
	ExtractTimeout time.Duration

	// Parallelism is the number of concurrent fetches.
	Parallelism int

	// LogLevel is the minimum level of diagnostic output.
	LogLevel LogLevel

	// Progress prints transaction steps to stderr as they run.
	Progress bool

	// Debug enables debug logging regardless of LogLevel.
	Debug bool
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		Root:           DefaultRoot(),
		Policy:         PolicyMinimalChurn,
		FetchTimeout:   5 * time.Minute,
		ExtractTimeout: 5 * time.Minute,
		Parallelism:    4,
	}
}
