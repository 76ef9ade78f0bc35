package ptl

import "errors"

// Sentinel errors returned from Init/Start.
var (
	ErrNilConfig          = errors.New("ptl: nil or invalid configuration")
	ErrInvalidTaskCount   = errors.New("ptl: invalid task count or task configuration")
	ErrNilEntry           = errors.New("ptl: task entry must not be nil")
	ErrAlreadyInitialized = errors.New("ptl: already initialized")
	ErrNotInitialized     = errors.New("ptl: not initialized")
	ErrTaskCreateFailed   = errors.New("ptl: kernel task creation failed")
)
