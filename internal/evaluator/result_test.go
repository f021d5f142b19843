package evaluator

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stellarlinkco/mltrack/internal/dataset"
)

func TestResult_MergeLastWriterWins(t *testing.T) {
	t.Parallel()

	a := NewResult()
	a.Metrics["accuracy_score"] = 0.5
	a.Metrics["only_a"] = 1
	a.Artifacts["shared"] = &TextArtifact{Text: "from a"}

	b := NewResult()
	b.Metrics["accuracy_score"] = 0.9
	b.Artifacts["shared"] = &TextArtifact{Text: "from b"}
	b.Tables["eval_results_table"] = dataset.MustTable(dataset.Column{Name: "outputs", Values: []any{1}})

	a.Merge(b)
	if a.Metrics["accuracy_score"] != 0.9 {
		t.Fatalf("metric not overwritten: %v", a.Metrics["accuracy_score"])
	}
	if a.Metrics["only_a"] != 1 {
		t.Fatalf("unrelated metric lost")
	}
	if got := a.Artifacts["shared"].(*TextArtifact).Text; got != "from b" {
		t.Fatalf("artifact not overwritten: %q", got)
	}
	if _, ok := a.Tables["eval_results_table"]; !ok {
		t.Fatalf("table not merged")
	}

	a.Merge(nil) // no-op
}

func TestResult_SaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	res := NewResult()
	res.Metrics["accuracy_score"] = 0.75
	res.Metrics["f1_score"] = 0.5
	res.Artifacts["feature_importance"] = &JSONArtifact{Value: map[string]any{"x1": 0.2}}
	res.Artifacts["notes"] = &TextArtifact{Text: "hello"}
	res.Artifacts["confusion_matrix"] = &TableArtifact{Table: dataset.MustTable(
		dataset.Column{Name: "true_label", Values: []any{"0", "1"}},
		dataset.Column{Name: "predicted_0", Values: []any{"1", "0"}},
	)}

	if err := res.Save(dir); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := LoadResult(dir)
	if err != nil {
		t.Fatalf("LoadResult: %v", err)
	}
	if loaded.Metrics["accuracy_score"] != 0.75 || loaded.Metrics["f1_score"] != 0.5 {
		t.Fatalf("metrics: got %v", loaded.Metrics)
	}

	fi, ok := loaded.Artifacts["feature_importance"].(*JSONArtifact)
	if !ok {
		t.Fatalf("feature_importance: got %T", loaded.Artifacts["feature_importance"])
	}
	m, ok := fi.Value.(map[string]any)
	if !ok || m["x1"] != 0.2 {
		t.Fatalf("json artifact content: got %#v", fi.Value)
	}

	notes, ok := loaded.Artifacts["notes"].(*TextArtifact)
	if !ok || notes.Text != "hello" {
		t.Fatalf("text artifact: got %#v", loaded.Artifacts["notes"])
	}
	if notes.URI() == "" {
		t.Fatalf("loaded artifact lost its uri")
	}

	cm, ok := loaded.Artifacts["confusion_matrix"].(*TableArtifact)
	if !ok {
		t.Fatalf("confusion_matrix: got %T", loaded.Artifacts["confusion_matrix"])
	}
	if cm.Table.NumRows() != 2 || cm.Table.NumCols() != 2 {
		t.Fatalf("table artifact shape: %dx%d", cm.Table.NumRows(), cm.Table.NumCols())
	}
}

func TestLoadResult_UnknownArtifactClass(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	res := NewResult()
	res.Metrics["m"] = 1
	if err := res.Save(dir); err != nil {
		t.Fatalf("Save: %v", err)
	}

	meta := map[string]artifactMeta{
		"custom": {URI: "s3://bucket/custom.bin", ClassName: "plugin.CustomArtifact"},
	}
	b, err := json.Marshal(meta)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, artifactMetadataFile), b, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	loaded, err := LoadResult(dir)
	if err != nil {
		t.Fatalf("LoadResult: %v", err)
	}
	art, ok := loaded.Artifacts["custom"]
	if !ok {
		t.Fatalf("unknown-class artifact dropped")
	}
	if art.URI() != "s3://bucket/custom.bin" || art.ClassName() != "plugin.CustomArtifact" {
		t.Fatalf("identity not preserved: uri=%q class=%q", art.URI(), art.ClassName())
	}
}
