package errors

import (
	"fmt"
	"time"
)

type UploadReason string

const (
	UploadReasonEmpty    UploadReason = "empty"
	UploadReasonTooLarge UploadReason = "too_large"
	UploadReasonProvider UploadReason = "provider"
	UploadReasonLocal    UploadReason = "local"
)

// UploadError is returned by the upload pipeline. Attempts is zero when the
// failure happened before the provider was contacted.
type UploadError struct {
	Filename string
	Size     int64
	Limit    int64
	Attempts int
	Reason   UploadReason
	Cause    error
}

func (e *UploadError) Error() string {
	switch e.Reason {
	case UploadReasonEmpty:
		return fmt.Sprintf("upload %q: invalid or empty file buffer", e.Filename)
	case UploadReasonTooLarge:
		return fmt.Sprintf("upload %q: file size %d exceeds the limit of %dMB", e.Filename, e.Size, e.Limit/(1024*1024))
	case UploadReasonProvider:
		return fmt.Sprintf("upload %q: failed after %d attempts: %v", e.Filename, e.Attempts, e.Cause)
	default:
		return fmt.Sprintf("upload %q: %v", e.Filename, e.Cause)
	}
}

func (e *UploadError) Unwrap() []error {
	errs := []error{ErrUploadFailed}
	switch e.Reason {
	case UploadReasonEmpty:
		errs = append(errs, ErrEmptyFile)
	case UploadReasonTooLarge:
		errs = append(errs, ErrFileTooLarge)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// RunFailure reports a run that did not reach the completed status. TimedOut
// is set when the deadline passed before any terminal status was observed; in
// that case Status is the last status seen.
type RunFailure struct {
	RunID     string
	Status    string
	TimedOut  bool
	Elapsed   time.Duration
	LastError string
	Cause     error
}

func (e *RunFailure) Error() string {
	msg := fmt.Sprintf("assistant run %s failed with status: %s", e.RunID, e.Status)
	if e.TimedOut {
		msg = fmt.Sprintf("assistant run %s timed out after %s with status: %s", e.RunID, e.Elapsed, e.Status)
	}
	if e.LastError != "" {
		msg += ": " + e.LastError
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *RunFailure) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrRunFailed, e.Cause}
	}
	return []error{ErrRunFailed}
}

// GroundingError is non-fatal for callers: the file stays recorded but
// unattached until a reconciliation pass repairs it.
type GroundingError struct {
	AssistantID string
	FileID      string
	Cause       error
}

func (e *GroundingError) Error() string {
	return fmt.Sprintf("attach file %s to assistant %s: %v", e.FileID, e.AssistantID, e.Cause)
}

func (e *GroundingError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrGroundingFail, e.Cause}
	}
	return []error{ErrGroundingFail}
}

// RotationError never leaves the thread package; it only shapes the log line.
type RotationError struct {
	ProjectID string
	ThreadID  string
	Cause     error
}

func (e *RotationError) Error() string {
	return fmt.Sprintf("rotate thread %s of project %s: %v", e.ThreadID, e.ProjectID, e.Cause)
}

func (e *RotationError) Unwrap() error {
	return e.Cause
}
