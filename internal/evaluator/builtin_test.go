package evaluator

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stellarlinkco/mltrack/internal/dataset"
)

type predictorFunc func(ctx context.Context, features *dataset.Table) ([]any, error)

func (f predictorFunc) Predict(ctx context.Context, features *dataset.Table) ([]any, error) {
	return f(ctx, features)
}

func classifierInput(t *testing.T) *Input {
	t.Helper()
	ds, err := dataset.New(
		dataset.MustTable(
			dataset.Column{Name: "x", Values: []any{1, 2, 3, 4}},
			dataset.Column{Name: "yhat", Values: []any{1, 0, 1, 0}},
		),
		dataset.Options{Targets: []int{1, 0, 0, 0}, Predictions: "yhat"},
	)
	if err != nil {
		t.Fatalf("dataset.New: %v", err)
	}
	return &Input{ModelType: ModelTypeClassifier, Dataset: ds}
}

func TestClassifierEvaluator(t *testing.T) {
	t.Parallel()

	e := &ClassifierEvaluator{}
	if e.CanEvaluate(ModelTypeRegressor, nil) {
		t.Fatalf("CanEvaluate(regressor): want false")
	}
	if !e.CanEvaluate(ModelTypeClassifier, nil) {
		t.Fatalf("CanEvaluate(classifier): want true")
	}

	res, err := e.Evaluate(context.Background(), classifierInput(t))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if got := res.Metrics["accuracy_score"]; got != 0.75 {
		t.Fatalf("accuracy_score: got %v want 0.75", got)
	}
	for _, key := range []string{"precision_score", "recall_score", "f1_score"} {
		if _, ok := res.Metrics[key]; !ok {
			t.Fatalf("missing metric %q", key)
		}
	}
	if _, ok := res.Artifacts["confusion_matrix"]; !ok {
		t.Fatalf("missing confusion_matrix artifact")
	}
	if _, ok := res.Tables["eval_results_table"]; !ok {
		t.Fatalf("missing eval_results_table")
	}
}

func TestClassifierEvaluator_MetricPrefix(t *testing.T) {
	t.Parallel()

	in := classifierInput(t)
	in.Config = Config{"metric_prefix": "val_"}
	res, err := (&ClassifierEvaluator{}).Evaluate(context.Background(), in)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if _, ok := res.Metrics["val_accuracy_score"]; !ok {
		t.Fatalf("prefixed metric missing: %v", res.Metrics)
	}
	if _, ok := res.Metrics["accuracy_score"]; ok {
		t.Fatalf("unprefixed metric present: %v", res.Metrics)
	}
}

func TestClassifierEvaluator_RequiresTargets(t *testing.T) {
	t.Parallel()

	ds, err := dataset.New([][]float64{{1}, {2}}, dataset.Options{Predictions: []float64{1, 2}})
	if err != nil {
		t.Fatalf("dataset.New: %v", err)
	}
	_, err = (&ClassifierEvaluator{}).Evaluate(context.Background(), &Input{
		ModelType: ModelTypeClassifier,
		Dataset:   ds,
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "the targets argument must be specified for classifier models") {
		t.Fatalf("error: %v", err)
	}
}

func TestRegressorEvaluator(t *testing.T) {
	t.Parallel()

	ds, err := dataset.New([][]float64{{1}, {2}, {3}}, dataset.Options{
		Targets:     []float64{1, 2, 3},
		Predictions: []float64{1, 2, 5},
	})
	if err != nil {
		t.Fatalf("dataset.New: %v", err)
	}
	res, err := (&RegressorEvaluator{}).Evaluate(context.Background(), &Input{
		ModelType: ModelTypeRegressor,
		Dataset:   ds,
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if got := res.Metrics["mean_squared_error"]; math.Abs(got-4.0/3.0) > 1e-9 {
		t.Fatalf("mse: got %v", got)
	}
	for _, key := range []string{"mean_absolute_error", "root_mean_squared_error", "r2_score"} {
		if _, ok := res.Metrics[key]; !ok {
			t.Fatalf("missing metric %q", key)
		}
	}
}

func TestDefaultEvaluator_RoutesByModelType(t *testing.T) {
	t.Parallel()

	e := &DefaultEvaluator{}
	if !e.CanEvaluate("anything", nil) {
		t.Fatalf("CanEvaluate: want true for every model type")
	}

	res, err := e.Evaluate(context.Background(), classifierInput(t))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if _, ok := res.Metrics["accuracy_score"]; !ok {
		t.Fatalf("classifier metrics missing: %v", res.Metrics)
	}

	// Text-like model types get only the results table.
	ds, err := dataset.New([]string{"q1", "q2"}, dataset.Options{Predictions: []string{"a1", "a2"}})
	if err != nil {
		t.Fatalf("dataset.New: %v", err)
	}
	res, err = e.Evaluate(context.Background(), &Input{ModelType: ModelTypeText, Dataset: ds})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(res.Metrics) != 0 {
		t.Fatalf("unexpected metrics: %v", res.Metrics)
	}
	if _, ok := res.Tables["eval_results_table"]; !ok {
		t.Fatalf("missing eval_results_table")
	}
}

func TestDefaultEvaluator_ExtraMetrics(t *testing.T) {
	t.Parallel()

	in := classifierInput(t)
	in.ExtraMetrics = []Metric{
		{
			Name: "accuracy_score", // overrides the built-in by name
			Compute: func(targets, predictions []any) (float64, error) {
				return 42, nil
			},
		},
		{
			Name: "count",
			Compute: func(targets, predictions []any) (float64, error) {
				return float64(len(predictions)), nil
			},
		},
	}
	in.CustomArtifacts = []CustomArtifact{
		{
			Name: "summary",
			Build: func(targets, predictions []any) (Artifact, error) {
				return &TextArtifact{Text: "ok"}, nil
			},
		},
	}

	res, err := (&DefaultEvaluator{}).Evaluate(context.Background(), in)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if res.Metrics["accuracy_score"] != 42 {
		t.Fatalf("extra metric did not override: %v", res.Metrics["accuracy_score"])
	}
	if res.Metrics["count"] != 4 {
		t.Fatalf("count: got %v", res.Metrics["count"])
	}
	if _, ok := res.Artifacts["summary"]; !ok {
		t.Fatalf("custom artifact missing")
	}
}

func TestShapEvaluator_FeatureImportance(t *testing.T) {
	t.Parallel()

	// The model echoes the first feature column, so cycling that column
	// destroys accuracy while the second column is irrelevant.
	model := predictorFunc(func(_ context.Context, features *dataset.Table) ([]any, error) {
		vals, ok := features.Column(features.ColumnNames()[0])
		if !ok {
			return nil, errors.New("missing column")
		}
		out := make([]any, len(vals))
		copy(out, vals)
		return out, nil
	})

	ds, err := dataset.New(
		dataset.MustTable(
			dataset.Column{Name: "signal", Values: []any{0, 1, 0, 1}},
			dataset.Column{Name: "noise", Values: []any{7, 7, 7, 7}},
		),
		dataset.Options{Targets: []int{0, 1, 0, 1}},
	)
	if err != nil {
		t.Fatalf("dataset.New: %v", err)
	}

	res, err := (&ShapEvaluator{}).Evaluate(context.Background(), &Input{
		Model:     model,
		ModelType: ModelTypeClassifier,
		Dataset:   ds,
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	art, ok := res.Artifacts["feature_importance"].(*JSONArtifact)
	if !ok {
		t.Fatalf("feature_importance: got %T", res.Artifacts["feature_importance"])
	}
	imp, ok := art.Value.(map[string]float64)
	if !ok {
		t.Fatalf("importance: got %T", art.Value)
	}
	if imp["signal"] <= imp["noise"] {
		t.Fatalf("importance: signal=%v noise=%v", imp["signal"], imp["noise"])
	}
	if imp["noise"] != 0 {
		t.Fatalf("irrelevant feature importance: got %v", imp["noise"])
	}
}

func TestShapEvaluator_NoModel(t *testing.T) {
	t.Parallel()

	ds, err := dataset.New([][]float64{{1}, {2}}, dataset.Options{
		Targets:     []float64{1, 2},
		Predictions: []float64{1, 2},
	})
	if err != nil {
		t.Fatalf("dataset.New: %v", err)
	}
	res, err := (&ShapEvaluator{}).Evaluate(context.Background(), &Input{
		ModelType: ModelTypeClassifier,
		Dataset:   ds,
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if res != nil {
		t.Fatalf("static predictions should be declined, got %v %v", res.Metrics, res.Artifacts)
	}
}
