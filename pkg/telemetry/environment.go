package telemetry

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Level is the severity of a message written through the output sink.
type Level string

const (
	// LevelInfo is the default severity for progress messages.
	LevelInfo Level = "info"

	// LevelWarning marks non-fatal anomalies.
	LevelWarning Level = "warning"

	// LevelError marks captured task failures and fatal conditions.
	LevelError Level = "error"
)

// Validate checks if the level is one of the enumerated severities.
func (l Level) Validate() error {
	switch l {
	case LevelInfo, LevelWarning, LevelError:
		return nil
	default:
		return fmt.Errorf("invalid output level: %q", l)
	}
}

// flusher is implemented by sinks that buffer writes (e.g. *bufio.Writer).
type flusher interface {
	Flush() error
}

// Environment is the mutable introspection record shared by the engine and
// its collaborators. It holds the output sink and the identity of whatever
// is currently executing. The engine writes to it before each task runs; it
// has no effect on scheduling.
//
// An Environment is always passed explicitly. DefaultEnvironment returns a
// process-wide instance for simple callers that do not want to wire one.
type Environment struct {
	mu              sync.Mutex
	out             io.Writer
	currentTask     string
	currentJob      string
	currentWorkflow string
}

// NewEnvironment creates an environment writing to the given sink.
// A nil sink defaults to standard output.
func NewEnvironment(out io.Writer) *Environment {
	if out == nil {
		out = os.Stdout
	}
	return &Environment{out: out}
}

var defaultEnv = NewEnvironment(os.Stdout)

// DefaultEnvironment returns the shared process-wide environment.
func DefaultEnvironment() *Environment {
	return defaultEnv
}

// Emit writes a single "[<level>] <message>" line to the output sink,
// flushing if the sink supports it. It fails if level is not one of the
// enumerated severities.
func (e *Environment) Emit(msg string, level Level) error {
	if err := level.Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := fmt.Fprintf(e.out, "[%s] %s\n", level, msg); err != nil {
		return err
	}
	if f, ok := e.out.(flusher); ok {
		return f.Flush()
	}
	return nil
}

// SetOutput replaces the output sink. A nil sink resets to standard output.
func (e *Environment) SetOutput(out io.Writer) {
	if out == nil {
		out = os.Stdout
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.out = out
}

// SetCurrent records the identity of the task, job and workflow that is
// about to execute.
func (e *Environment) SetCurrent(task, job, workflow string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.currentTask = task
	e.currentJob = job
	e.currentWorkflow = workflow
}

// Current returns the recorded task, job and workflow names. All three are
// empty until the first task of a run is about to execute.
func (e *Environment) Current() (task, job, workflow string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentTask, e.currentJob, e.currentWorkflow
}
