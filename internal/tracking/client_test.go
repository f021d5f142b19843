package tracking

import (
	"context"
	"strings"
	"testing"

	"github.com/stellarlinkco/mltrack/internal/dataset"
)

func newTestClient(t *testing.T) (*Client, *SQLiteStore) {
	t.Helper()
	st := newTestStore(t)
	c, err := NewClient(st)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c, st
}

func TestClient_RunLifecycle(t *testing.T) {
	t.Parallel()

	c, st := newTestClient(t)
	ctx := context.Background()

	run, err := c.StartRun(ctx, "exp-1")
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	if run.ID == "" {
		t.Fatalf("empty run id")
	}
	if c.ActiveRunID() != run.ID {
		t.Fatalf("ActiveRunID: got %q want %q", c.ActiveRunID(), run.ID)
	}

	// Empty run id falls back to the active run.
	if err := c.LogMetric(ctx, "", "accuracy_score", 0.5, "m-1"); err != nil {
		t.Fatalf("LogMetric: %v", err)
	}
	metrics, err := st.GetMetrics(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetMetrics: %v", err)
	}
	if len(metrics) != 1 || metrics[0].ModelID != "m-1" {
		t.Fatalf("metrics: got %+v", metrics)
	}

	if err := c.EndRun(ctx, run.ID, ""); err != nil {
		t.Fatalf("EndRun: %v", err)
	}
	if c.ActiveRunID() != "" {
		t.Fatalf("active run not cleared")
	}
	got, err := st.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Status != StatusFinished {
		t.Fatalf("Status: got %q", got.Status)
	}

	if err := c.LogMetric(ctx, "", "x", 1, ""); err == nil {
		t.Fatalf("LogMetric without active run: expected error")
	}
}

func TestClient_LogDatasetTag(t *testing.T) {
	t.Parallel()

	c, st := newTestClient(t)
	ctx := context.Background()

	run, err := c.StartRun(ctx, "exp-2")
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}

	first := dataset.Metadata{Hash: "abc123", Name: "train"}
	if err := c.LogDatasetTag(ctx, run.ID, first); err != nil {
		t.Fatalf("LogDatasetTag: %v", err)
	}

	raw, ok, err := st.GetTag(ctx, run.ID, DatasetTagKey)
	if err != nil || !ok {
		t.Fatalf("GetTag: ok=%v err=%v", ok, err)
	}
	want := `[{"hash":"abc123","name":"train"}]`
	if raw != want {
		t.Fatalf("tag value: got %s want %s", raw, want)
	}
	if strings.ContainsAny(raw, " \n\t") {
		t.Fatalf("tag value contains whitespace: %q", raw)
	}

	// Same hash again: unchanged.
	if err := c.LogDatasetTag(ctx, run.ID, dataset.Metadata{Hash: "abc123", Name: "renamed"}); err != nil {
		t.Fatalf("LogDatasetTag dup: %v", err)
	}
	raw, _, err = st.GetTag(ctx, run.ID, DatasetTagKey)
	if err != nil {
		t.Fatalf("GetTag: %v", err)
	}
	if raw != want {
		t.Fatalf("dup changed tag: got %s", raw)
	}

	// A new hash appends.
	second := dataset.Metadata{Hash: "def456", Name: "eval", Path: "/data/eval.csv"}
	if err := c.LogDatasetTag(ctx, run.ID, second); err != nil {
		t.Fatalf("LogDatasetTag append: %v", err)
	}
	entries, err := c.DatasetTag(ctx, run.ID)
	if err != nil {
		t.Fatalf("DatasetTag: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries: got %d want 2", len(entries))
	}
	if entries[0].Hash != "abc123" || entries[1].Hash != "def456" {
		t.Fatalf("order: got %+v", entries)
	}
	if entries[1].Path != "/data/eval.csv" {
		t.Fatalf("path lost: %+v", entries[1])
	}

	if err := c.LogDatasetTag(ctx, run.ID, dataset.Metadata{Name: "nohash"}); err == nil {
		t.Fatalf("LogDatasetTag without hash: expected error")
	}
}

func TestClient_LogModel(t *testing.T) {
	t.Parallel()

	c, st := newTestClient(t)
	ctx := context.Background()

	run, err := c.StartRun(ctx, "exp-3")
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	id, err := c.LogModel(ctx, run.ID, "models:/demo/2")
	if err != nil {
		t.Fatalf("LogModel: %v", err)
	}
	if !strings.HasPrefix(id, "m-") {
		t.Fatalf("model id: got %q", id)
	}
	got, err := st.GetModelByURI(ctx, "models:/demo/2")
	if err != nil {
		t.Fatalf("GetModelByURI: %v", err)
	}
	if got == nil || got.ID != id || got.RunID != run.ID {
		t.Fatalf("model: got %+v", got)
	}
}

func TestClient_ActiveModel(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t)
	if c.ActiveModelID() != "" {
		t.Fatalf("ActiveModelID: got %q want empty", c.ActiveModelID())
	}
	c.SetActiveModel("  m-7 ")
	if c.ActiveModelID() != "m-7" {
		t.Fatalf("ActiveModelID: got %q want %q", c.ActiveModelID(), "m-7")
	}
	c.SetActiveModel("")
	if c.ActiveModelID() != "" {
		t.Fatalf("ActiveModelID after clear: got %q", c.ActiveModelID())
	}
}
