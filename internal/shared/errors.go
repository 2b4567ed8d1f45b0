package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid collection config")

	// Request validation errors
	ErrInvalidSource   = fmt.Errorf("invalid source kind")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")

	// Task lifecycle errors
	ErrTaskNotFound   = fmt.Errorf("task not found")
	ErrCancelled      = fmt.Errorf("task cancelled")
	ErrAdapterFailure = fmt.Errorf("source adapter failed")
	ErrTimeout        = fmt.Errorf("operation timed out")

	// Persistence errors
	ErrPersistence = fmt.Errorf("persistence failed")
)
