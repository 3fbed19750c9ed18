package seeker

import "errors"

var (
	// Store errors.
	ErrNoStore     = errors.New("seeker: no store configured")
	ErrNoRunner    = errors.New("seeker: no runner configured")
	ErrStoreClosed = errors.New("seeker: store closed")

	// Not found errors.
	ErrJobNotFound = errors.New("seeker: job not found")

	// Conflict errors.
	ErrJobAlreadyExists = errors.New("seeker: job already exists")

	// State errors.
	ErrJobTerminal   = errors.New("seeker: job already in a terminal state")
	ErrInvalidStatus = errors.New("seeker: invalid status transition")

	// Submission errors.
	ErrEmptyQuery      = errors.New("seeker: query must not be empty")
	ErrUnknownJobType  = errors.New("seeker: unknown job type")
	ErrAdmissionDenied = errors.New("seeker: admission limit exceeded")
	ErrNotRunning      = errors.New("seeker: orchestrator not running")
)
