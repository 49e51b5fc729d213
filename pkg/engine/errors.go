package engine

import (
	"errors"
	"fmt"
)

// ErrorClass represents the classification of an engine error.
type ErrorClass string

const (
	// ErrorClassDefinition indicates an invalid workflow definition:
	// an undefined graph, an empty job, or a dependency cycle. Definition
	// errors surface during graph construction, before any task executes.
	ErrorClassDefinition ErrorClass = "definition"

	// ErrorClassContract indicates caller misuse: running a non-PENDING
	// task or workflow, or mutating a job after it started. Contract
	// violations are fatal and never recovered.
	ErrorClassContract ErrorClass = "contract"

	// ErrorClassExecution indicates a failure raised by a task callable.
	// Execution errors are captured at the task boundary as a TaskError;
	// they do not propagate out of Run.
	ErrorClassExecution ErrorClass = "execution"
)

// EngineError represents a classified error with context.
type EngineError struct {
	// Class is the error classification.
	Class ErrorClass `json:"class"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Code is an optional error code for programmatic handling.
	Code string `json:"code,omitempty"`

	// Task is the task name that caused the error, if applicable.
	Task string `json:"task,omitempty"`

	// Job is the job name that caused the error, if applicable.
	Job string `json:"job,omitempty"`

	// Err is the underlying error that caused this error.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Class, e.Message)
	if e.Job != "" && e.Task != "" {
		msg = fmt.Sprintf("%s (job=%s, task=%s)", msg, e.Job, e.Task)
	} else if e.Job != "" {
		msg = fmt.Sprintf("%s (job=%s)", msg, e.Job)
	} else if e.Task != "" {
		msg = fmt.Sprintf("%s (task=%s)", msg, e.Task)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %s", msg, e.Err.Error())
	}
	return msg
}

// Unwrap returns the underlying error for error chain inspection.
func (e *EngineError) Unwrap() error {
	return e.Err
}

// Is implements error equality checking for errors.Is.
func (e *EngineError) Is(target error) bool {
	t, ok := target.(*EngineError)
	if !ok {
		return false
	}
	return e.Class == t.Class && e.Code == t.Code
}

// NewDefinitionError creates a new definition error.
func NewDefinitionError(message string, err error) *EngineError {
	return &EngineError{
		Class:   ErrorClassDefinition,
		Message: message,
		Err:     err,
	}
}

// NewContractError creates a new contract violation error.
func NewContractError(message string, err error) *EngineError {
	return &EngineError{
		Class:   ErrorClassContract,
		Message: message,
		Err:     err,
	}
}

// WithCode adds an error code to an error.
func (e *EngineError) WithCode(code string) *EngineError {
	e.Code = code
	return e
}

// WithTask adds task context to an error.
func (e *EngineError) WithTask(task string) *EngineError {
	e.Task = task
	return e
}

// WithJob adds job context to an error.
func (e *EngineError) WithJob(job string) *EngineError {
	e.Job = job
	return e
}

// IsDefinition returns true if the error is classified as a definition error.
func IsDefinition(err error) bool {
	var e *EngineError
	if errors.As(err, &e) {
		return e.Class == ErrorClassDefinition
	}
	return false
}

// IsContract returns true if the error is classified as a contract violation.
func IsContract(err error) bool {
	var e *EngineError
	if errors.As(err, &e) {
		return e.Class == ErrorClassContract
	}
	return false
}

// Common error codes.
const (
	ErrCodeGraphUndefined = "GRAPH_UNDEFINED"
	ErrCodeEmptyJob       = "EMPTY_JOB"
	ErrCodeGraphCycle     = "GRAPH_CYCLE"
	ErrCodeUnknownTask    = "UNKNOWN_TASK"
	ErrCodeDuplicateTask  = "DUPLICATE_TASK"
	ErrCodeNotPending     = "NOT_PENDING"
	ErrCodeJobLocked      = "JOB_LOCKED"
)
