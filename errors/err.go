package errors

import (
	"fmt"
)

var (
	ErrInvalidConfig   = fmt.Errorf("aichatmanager: invalid config")
	ErrNotFound        = fmt.Errorf("aichatmanager: not found")
	ErrInvalidParams   = fmt.Errorf("aichatmanager: invalid params")
	ErrInternal        = fmt.Errorf("aichatmanager: internal error")
	ErrNoValidResponse = fmt.Errorf("aichatmanager: assistant did not produce a valid text response")
	ErrInvalidResponse = fmt.Errorf("aichatmanager: assistant response could not be parsed")

	ErrRunFailed     = fmt.Errorf("aichatmanager: assistant run failed")
	ErrUploadFailed  = fmt.Errorf("aichatmanager: file upload failed")
	ErrFileTooLarge  = fmt.Errorf("aichatmanager: file too large")
	ErrEmptyFile     = fmt.Errorf("aichatmanager: empty file")
	ErrGroundingFail = fmt.Errorf("aichatmanager: file grounding failed")
)
