package domain

import (
	"errors"
	"fmt"
)

var (
	ErrFetch               = errors.New("fetch failed")
	ErrNoItems             = errors.New("no items collected")
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrProviderRejected    = errors.New("provider rejected request")
	ErrConfiguration       = errors.New("configuration error")
	ErrMissingDependency   = errors.New("missing dependency")
	ErrEncoding            = errors.New("encoding failed")
	ErrNotFound            = errors.New("artifact not found")
)

// FetchError is a per-source collection failure. It never fails the
// collect stage on its own.
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() []error {
	return []error{ErrFetch, e.Err}
}

// StageError names the stage that halted a run.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// ConfigError builds an error matching ErrConfiguration.
func ConfigError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// MissingDependency builds an error matching ErrMissingDependency for an
// absent upstream artifact.
func MissingDependency(stage Stage, artifact string, cause error) error {
	if cause == nil {
		return fmt.Errorf("%w: %s needs %s", ErrMissingDependency, stage, artifact)
	}
	return fmt.Errorf("%w: %s needs %s: %v", ErrMissingDependency, stage, artifact, cause)
}
