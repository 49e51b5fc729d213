package engine

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/lightflow/lightflow/pkg/telemetry"
)

// newTestContext returns a run context writing output to the given buffer.
func newTestContext(buf *bytes.Buffer) *RunContext {
	return NewRunContext(nil, NewTaskData(), telemetry.NewEnvironment(buf))
}

func TestTask_Run_Success(t *testing.T) {
	rc := newTestContext(&bytes.Buffer{})

	var order []string
	task := NewTask("build", func(rc *RunContext) error {
		order = append(order, "callback")
		rc.Data.Set("built", true)
		return nil
	}).WithSetup(func(rc *RunContext) error {
		order = append(order, "setup")
		return nil
	}).WithTeardown(func(rc *RunContext) error {
		order = append(order, "teardown")
		return nil
	})

	if err := task.run(rc, TeardownRecord); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if task.State() != TaskSuccess {
		t.Errorf("Expected state %s, got %s", TaskSuccess, task.State())
	}
	if got := strings.Join(order, ","); got != "setup,callback,teardown" {
		t.Errorf("Expected lifecycle order setup,callback,teardown, got %s", got)
	}
	if v, _ := rc.Data.Get("built"); v != true {
		t.Error("Expected callback to mutate the shared data")
	}
	if h := rc.Data.History(); len(h) != 1 || h[0] != "build" {
		t.Errorf("Expected history [build], got %v", h)
	}
}

func TestTask_Run_SetupFailureSkipsCallback(t *testing.T) {
	rc := newTestContext(&bytes.Buffer{})

	callbackRan := false
	teardownRan := false
	task := NewTask("build", func(rc *RunContext) error {
		callbackRan = true
		return nil
	}).WithSetup(func(rc *RunContext) error {
		return errors.New("no workspace")
	}).WithTeardown(func(rc *RunContext) error {
		teardownRan = true
		return nil
	})

	if err := task.run(rc, TeardownRecord); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if task.State() != TaskFailure {
		t.Errorf("Expected state %s, got %s", TaskFailure, task.State())
	}
	if callbackRan {
		t.Error("Expected callback to be skipped after setup failure")
	}
	if !teardownRan {
		t.Error("Expected teardown to run after setup failure")
	}
	if task.Err() == nil || task.Err().Phase != PhaseSetup {
		t.Errorf("Expected captured setup failure, got %+v", task.Err())
	}
	if h := rc.Data.History(); len(h) != 1 {
		t.Errorf("Expected exactly one history entry, got %v", h)
	}
}

func TestTask_Run_PanicCaptured(t *testing.T) {
	rc := newTestContext(&bytes.Buffer{})

	teardownRan := false
	task := NewTask("explode", func(rc *RunContext) error {
		panic("boom")
	}).WithTeardown(func(rc *RunContext) error {
		teardownRan = true
		return nil
	})

	if err := task.run(rc, TeardownRecord); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if task.State() != TaskFailure {
		t.Errorf("Expected state %s, got %s", TaskFailure, task.State())
	}
	if !teardownRan {
		t.Error("Expected teardown to run after a panic")
	}
	terr := task.Err()
	if terr == nil {
		t.Fatal("Expected captured failure")
	}
	if terr.Kind != "panic" || terr.Message != "boom" {
		t.Errorf("Expected panic/boom, got %s/%s", terr.Kind, terr.Message)
	}
	if terr.Stack == "" {
		t.Error("Expected a captured call stack")
	}
}

func TestTask_Run_TeardownPolicy(t *testing.T) {
	tdFail := func(rc *RunContext) error { return errors.New("cleanup failed") }

	// Record: a lone teardown failure fails the task.
	rc := newTestContext(&bytes.Buffer{})
	task := NewTask("t", nil).WithTeardown(tdFail)
	if err := task.run(rc, TeardownRecord); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if task.State() != TaskFailure {
		t.Errorf("Expected state %s under record policy, got %s", TaskFailure, task.State())
	}
	if task.Err().Phase != PhaseTeardown {
		t.Errorf("Expected teardown phase, got %s", task.Err().Phase)
	}

	// Record: an earlier failure wins; the teardown error is appended.
	rc = newTestContext(&bytes.Buffer{})
	task = NewTask("t", func(rc *RunContext) error {
		return errors.New("primary")
	}).WithTeardown(tdFail)
	if err := task.run(rc, TeardownRecord); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if task.Err().Phase != PhaseCallback {
		t.Errorf("Expected callback failure to win, got phase %s", task.Err().Phase)
	}
	if !strings.Contains(task.Err().Trace(), "teardown also failed") {
		t.Error("Expected teardown failure appended to the trace")
	}

	// Suppress: teardown failures are ignored.
	rc = newTestContext(&bytes.Buffer{})
	task = NewTask("t", nil).WithTeardown(tdFail)
	if err := task.run(rc, TeardownSuppress); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if task.State() != TaskSuccess {
		t.Errorf("Expected state %s under suppress policy, got %s", TaskSuccess, task.State())
	}
}

func TestTask_Run_Skip(t *testing.T) {
	rc := newTestContext(&bytes.Buffer{})

	ran := false
	task := NewTask("skipme", func(rc *RunContext) error {
		ran = true
		return nil
	}).WithSetup(func(rc *RunContext) error {
		ran = true
		return nil
	}).WithTeardown(func(rc *RunContext) error {
		ran = true
		return nil
	})
	task.SetSkip(true)

	if err := task.run(rc, TeardownRecord); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if task.State() != TaskSkipped {
		t.Errorf("Expected state %s, got %s", TaskSkipped, task.State())
	}
	if ran {
		t.Error("Expected no callable to run for a skipped task")
	}
	if h := rc.Data.History(); len(h) != 1 || h[0] != "skipme" {
		t.Errorf("Expected history [skipme], got %v", h)
	}
}

func TestTask_Run_NotPending(t *testing.T) {
	rc := newTestContext(&bytes.Buffer{})

	task := NewTask("once", nil)
	if err := task.run(rc, TeardownRecord); err != nil {
		t.Fatalf("Expected first run to succeed, got: %v", err)
	}

	err := task.run(rc, TeardownRecord)
	if err == nil {
		t.Fatal("Expected error for second run")
	}
	if !IsContract(err) {
		t.Errorf("Expected contract violation, got: %v", err)
	}
	if task.State() != TaskSuccess {
		t.Errorf("Expected rejected run to leave state %s, got %s", TaskSuccess, task.State())
	}
	if h := rc.Data.History(); len(h) != 1 {
		t.Errorf("Expected rejected run to leave history untouched, got %v", h)
	}

	// The skip path is guarded by the same state machine.
	task.SetSkip(true)
	if err := task.run(rc, TeardownRecord); err == nil || !IsContract(err) {
		t.Errorf("Expected contract violation for skipping a completed task, got: %v", err)
	}
}

func TestTask_QualifiedName(t *testing.T) {
	task := NewTask("compile", nil)
	if task.QualifiedName() != "compile" {
		t.Errorf("Expected compile, got %s", task.QualifiedName())
	}

	job := NewJob("build")
	if err := job.AddTask(task); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if task.QualifiedName() != "build/compile" {
		t.Errorf("Expected build/compile, got %s", task.QualifiedName())
	}
}

func TestTask_Run_NilCallback(t *testing.T) {
	rc := newTestContext(&bytes.Buffer{})
	task := NewTask("noop", nil)
	if err := task.run(rc, TeardownRecord); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if task.State() != TaskSuccess {
		t.Errorf("Expected state %s, got %s", TaskSuccess, task.State())
	}
}
