package camera

import (
	"errors"
	"fmt"

	"github.com/apambalik/RR-Traffic-Analysis-System/internal/models"
)

var (
	ErrLineNotConfigured   = errors.New("counting line not configured")
	ErrConfigurationLocked = errors.New("configuration locked while running")
	ErrSourceNotConfigured = errors.New("no source attached")
	ErrInvalidTransition   = errors.New("invalid state transition")
	ErrUnknownRole         = errors.New("unknown camera role")
)

// JobError is the unrecoverable failure that moved a job to Failed
type JobError struct {
	Kind models.ErrorKind
	Err  error
}

func (e *JobError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *JobError) Unwrap() error {
	return e.Err
}

func sourceError(err error) *JobError {
	return &JobError{Kind: models.ErrorKindSource, Err: err}
}

func trackerError(err error) *JobError {
	return &JobError{Kind: models.ErrorKindTracker, Err: err}
}
