package engine

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/lightflow/lightflow/pkg/telemetry"
)

// newTestWorkflow builds a workflow writing progress to buf.
func newTestWorkflow(t *testing.T, buf *bytes.Buffer, jobs ...*Job) *Workflow {
	t.Helper()
	w := NewWorkflow("wf", WithEnvironment(telemetry.NewEnvironment(buf)))
	if err := w.AddJob(jobs...); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	return w
}

func TestWorkflow_Run_Success(t *testing.T) {
	var buf bytes.Buffer
	job := NewJob("build")
	for _, name := range []string{"fetch", "compile"} {
		name := name
		task := NewTask(name, func(rc *RunContext) error {
			rc.Data.Set(name, "done")
			return nil
		})
		if err := job.AddTask(task); err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
	}
	w := newTestWorkflow(t, &buf, job)

	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if w.State() != WorkflowSuccess {
		t.Errorf("Expected state %s, got %s", WorkflowSuccess, w.State())
	}
	if job.State() != JobSuccess {
		t.Errorf("Expected job state %s, got %s", JobSuccess, job.State())
	}
	if w.RunID() == "" {
		t.Error("Expected a run ID to be assigned")
	}

	want := []string{"fetch", "compile"}
	if got := w.Data().History(); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected history %v, got %v", want, got)
	}
	if v, _ := w.Data().Get("compile"); v != "done" {
		t.Error("Expected task mutations to survive the run")
	}
}

func TestWorkflow_Run_ProgressOutput(t *testing.T) {
	var buf bytes.Buffer
	w := newTestWorkflow(t, &buf, newTestJob(t, "build", "fetch", "compile"))

	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"[info] [Task 1/2] wf/build/fetch: success",
		"[info] [Task 2/2] wf/build/compile: success",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestWorkflow_Run_AbortsOnFailure(t *testing.T) {
	var buf bytes.Buffer
	job := NewJob("build")
	ranAfter := false
	tasks := []*Task{
		NewTask("ok", nil),
		NewTask("bad", func(rc *RunContext) error {
			return errors.New("broken input")
		}),
		NewTask("never", func(rc *RunContext) error {
			ranAfter = true
			return nil
		}),
	}
	for _, task := range tasks {
		if err := job.AddTask(task); err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
	}
	w := newTestWorkflow(t, &buf, job)

	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("Expected no error from an aborted run, got: %v", err)
	}
	if w.State() != WorkflowFailure {
		t.Errorf("Expected state %s, got %s", WorkflowFailure, w.State())
	}
	if ranAfter {
		t.Error("Expected no task to run after the failure")
	}
	if tasks[2].State() != TaskPending {
		t.Errorf("Expected trailing task to stay %s, got %s", TaskPending, tasks[2].State())
	}
	if job.State() != JobFailure {
		t.Errorf("Expected job state %s, got %s", JobFailure, job.State())
	}

	// History covers exactly the tasks that executed.
	want := []string{"ok", "bad"}
	if got := w.Data().History(); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected history %v, got %v", want, got)
	}

	out := buf.String()
	if !strings.Contains(out, "[error] [Task 2/3] wf/build/bad: failure") {
		t.Errorf("Expected failure progress line, got:\n%s", out)
	}
	if !strings.Contains(out, "broken input") {
		t.Errorf("Expected failure trace in output, got:\n%s", out)
	}
}

func TestWorkflow_Run_SkippedTasksRecorded(t *testing.T) {
	var buf bytes.Buffer
	job := newTestJob(t, "build", "a", "b")
	job.SkipAll()
	w := newTestWorkflow(t, &buf, job)

	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if w.State() != WorkflowSuccess {
		t.Errorf("Expected state %s, got %s", WorkflowSuccess, w.State())
	}
	if job.State() != JobSkipped {
		t.Errorf("Expected job state %s, got %s", JobSkipped, job.State())
	}

	want := []string{"a", "b"}
	if got := w.Data().History(); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected skipped tasks in history, got %v", got)
	}
	if !strings.Contains(buf.String(), "wf/build/a: skipped") {
		t.Errorf("Expected skipped progress line, got:\n%s", buf.String())
	}
}

func TestWorkflow_Run_CrossJobOrder(t *testing.T) {
	var buf bytes.Buffer
	a := newTestJob(t, "A", "a1", "a2")
	b := newTestJob(t, "B", "b1", "b2")
	w := newTestWorkflow(t, &buf, a, b)
	w.AddDependency(a.Task(0), b.Task(0))
	w.AddDependency(a.Task(1), b.Task(0))

	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	want := []string{"b1", "a1", "a2", "b2"}
	if got := w.Data().History(); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected execution order %v, got %v", want, got)
	}
}

func TestWorkflow_Run_InProgressDuringExecution(t *testing.T) {
	var buf bytes.Buffer

	var w *Workflow
	var observed WorkflowState
	job := NewJob("build")
	task := NewTask("probe", func(rc *RunContext) error {
		observed = w.State()
		return nil
	})
	if err := job.AddTask(task); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	w = NewWorkflow("wf", WithEnvironment(telemetry.NewEnvironment(&buf)))
	if err := w.AddJob(job); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if observed != WorkflowInProgress {
		t.Errorf("Expected state %s while a task runs, got %s", WorkflowInProgress, observed)
	}
	if w.State() != WorkflowSuccess {
		t.Errorf("Expected final state %s, got %s", WorkflowSuccess, w.State())
	}
}

func TestWorkflow_Run_DefinitionError(t *testing.T) {
	var buf bytes.Buffer
	w := NewWorkflow("wf", WithEnvironment(telemetry.NewEnvironment(&buf)))

	err := w.Run(context.Background())
	if err == nil {
		t.Fatal("Expected error for workflow with no jobs")
	}
	if !IsDefinition(err) {
		t.Errorf("Expected definition error, got: %v", err)
	}
	if w.State() != WorkflowFailure {
		t.Errorf("Expected state %s, got %s", WorkflowFailure, w.State())
	}
	if buf.Len() != 0 {
		t.Errorf("Expected no output for a rejected run, got:\n%s", buf.String())
	}
}

func TestWorkflow_Run_RejectsRerun(t *testing.T) {
	var buf bytes.Buffer
	w := newTestWorkflow(t, &buf, newTestJob(t, "build", "a"))

	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	err := w.Run(context.Background())
	if err == nil {
		t.Fatal("Expected error for re-running a finished workflow")
	}
	if !IsContract(err) {
		t.Errorf("Expected contract violation, got: %v", err)
	}
}

func TestWorkflow_Run_EnvironmentCurrent(t *testing.T) {
	var buf bytes.Buffer
	env := telemetry.NewEnvironment(&buf)

	var seenTask, seenJob, seenWorkflow string
	job := NewJob("build")
	task := NewTask("probe", func(rc *RunContext) error {
		seenTask, seenJob, seenWorkflow = rc.Env.Current()
		return nil
	})
	if err := job.AddTask(task); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	w := NewWorkflow("wf", WithEnvironment(env))
	if err := w.AddJob(job); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if seenTask != "probe" || seenJob != "build" || seenWorkflow != "wf" {
		t.Errorf("Expected probe/build/wf, got %s/%s/%s", seenTask, seenJob, seenWorkflow)
	}
}

func TestWorkflow_Run_PublishesEvents(t *testing.T) {
	var buf bytes.Buffer
	events := telemetry.NewEventPublisher(telemetry.EventsConfig{Enabled: true})
	var types []string
	events.Subscribe(func(e telemetry.Event) {
		types = append(types, e.Type)
	})

	job := NewJob("build")
	if err := job.AddTask(NewTask("ok", nil)); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if err := job.AddTask(NewTask("bad", func(rc *RunContext) error {
		return errors.New("nope")
	})); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	w := NewWorkflow("wf",
		WithEnvironment(telemetry.NewEnvironment(&buf)),
		WithEvents(events),
	)
	if err := w.AddJob(job); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	want := []string{
		telemetry.EventTypeRunStarted,
		telemetry.EventTypeTaskFinished,
		telemetry.EventTypeTaskFailed,
		telemetry.EventTypeRunFailed,
	}
	if !reflect.DeepEqual(types, want) {
		t.Errorf("Expected events %v, got %v", want, types)
	}
}

func TestWorkflow_AddJob_RejectedAfterRun(t *testing.T) {
	var buf bytes.Buffer
	w := newTestWorkflow(t, &buf, newTestJob(t, "build", "a"))
	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if err := w.AddJob(newTestJob(t, "late", "x")); err == nil {
		t.Fatal("Expected error adding a job to a finished workflow")
	}
}
