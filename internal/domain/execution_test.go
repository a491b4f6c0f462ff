package domain

import (
	"testing"

	"github.com/google/uuid"
)

func TestExecution_Complete(t *testing.T) {
	exec := NewExecution(uuid.New(), ActionConfiguration{Method: MethodGet, Path: "/"})
	if exec.Status != ExecutionStatusPending {
		t.Fatalf("expected PENDING, got %s", exec.Status)
	}

	result := NewSuccessResult(200, ObjectValue(Member{Key: "result", Value: StringValue("created")}))
	result.DurationMs = 12
	exec.Complete(result)

	if exec.Status != ExecutionStatusSucceeded {
		t.Errorf("expected SUCCEEDED, got %s", exec.Status)
	}
	if exec.FinishedAt == nil {
		t.Error("finished_at should be set")
	}
	if exec.DurationMs != 12 || exec.StatusCode != 200 {
		t.Errorf("unexpected duration/status: %d/%d", exec.DurationMs, exec.StatusCode)
	}

	restored := exec.Result()
	if !restored.IsExecutionSuccess {
		t.Error("restored result should be successful")
	}
	if s, _ := restored.Body.Get("result").AsString(); s != "created" {
		t.Errorf("expected body to survive, got %q", s)
	}
}

func TestExecution_CompleteFailure(t *testing.T) {
	exec := NewExecution(uuid.New(), ActionConfiguration{Method: MethodGet, Path: "/missing"})
	exec.Complete(NewFailureResult(ErrorKindBackend, 404, NullValue(), "HTTP 404"))

	if exec.Status != ExecutionStatusFailed {
		t.Errorf("expected FAILED, got %s", exec.Status)
	}
	if exec.ErrorKind != ErrorKindBackend || exec.Error != "HTTP 404" {
		t.Errorf("unexpected error fields: %s %q", exec.ErrorKind, exec.Error)
	}
	if !exec.Status.IsTerminal() {
		t.Error("FAILED should be terminal")
	}
	if ExecutionStatusPending.IsTerminal() {
		t.Error("PENDING should not be terminal")
	}
}

func TestExecution_MarkRunning(t *testing.T) {
	exec := NewExecution(uuid.New(), ActionConfiguration{Method: MethodPost, Path: "/planets/_doc"})
	exec.MarkRunning()

	if exec.Status != ExecutionStatusRunning {
		t.Errorf("expected RUNNING, got %s", exec.Status)
	}
	if exec.StartedAt == nil {
		t.Error("started_at should be set")
	}
	if exec.Status.IsTerminal() {
		t.Error("RUNNING should not be terminal")
	}
	if !exec.Status.IsValid() {
		t.Error("RUNNING should be a valid status")
	}
}
