// Package evaluator defines the evaluator capability interface, the
// name-keyed registry, and the built-in evaluators.
package evaluator

import (
	"context"

	"github.com/stellarlinkco/mltrack/internal/dataset"
	"github.com/stellarlinkco/mltrack/internal/evalerr"
)

// Model type families. A model type is a coarse task category driving which
// fixed evaluator chain applies by default.
const (
	ModelTypeClassifier        = "classifier"
	ModelTypeRegressor         = "regressor"
	ModelTypeQuestionAnswering = "question-answering"
	ModelTypeText              = "text"
)

// Config is the effective configuration mapping for one evaluator.
type Config map[string]any

// Predictor is the minimal model surface an evaluator consumes. Loaded
// models, plain functions, and served subprocess models all satisfy it.
type Predictor interface {
	Predict(ctx context.Context, features *dataset.Table) ([]any, error)
}

// Metric is a pluggable scoring function with a fixed signature.
type Metric struct {
	Name    string
	Compute func(targets, predictions []any) (float64, error)
}

// CustomArtifact builds an additional artifact from targets and predictions.
type CustomArtifact struct {
	Name  string
	Build func(targets, predictions []any) (Artifact, error)
}

// Input is the uniform invocation contract shared by every evaluator.
type Input struct {
	// Model is the loaded predictor, or nil when static predictions are
	// supplied via Predictions or the dataset's prediction column.
	Model           Predictor
	ModelType       string
	ModelID         string
	Dataset         *dataset.Dataset
	RunID           string
	Config          Config
	ExtraMetrics    []Metric
	CustomArtifacts []CustomArtifact
	// Predictions holds static predictions taking precedence over Model.
	Predictions []any
}

// Evaluator is the two-operation capability trait every built-in and
// third-party evaluator implements.
type Evaluator interface {
	// CanEvaluate reports whether this evaluator handles the model type
	// under the given config. False means skip, never an error.
	CanEvaluate(modelType string, config Config) bool
	// Evaluate scores the dataset and returns metrics and artifacts. A nil
	// result with a nil error declines the input without being counted as
	// either a success or a failure.
	Evaluate(ctx context.Context, in *Input) (*Result, error)
}

// resolvePredictions produces the prediction vector for in: explicit static
// predictions win, then the dataset's prediction column, then a model call.
func resolvePredictions(ctx context.Context, in *Input) ([]any, error) {
	if in.Predictions != nil {
		return in.Predictions, nil
	}
	if in.Dataset != nil && in.Dataset.HasPredictions() {
		return in.Dataset.Predictions(), nil
	}
	if in.Model != nil {
		preds, err := in.Model.Predict(ctx, in.Dataset.Features())
		if err != nil {
			return nil, evalerr.Wrap(evalerr.KindEvaluatorFailure, err, "evaluator: model predict")
		}
		if got, want := len(preds), in.Dataset.Features().NumRows(); got != want {
			return nil, evalerr.New(evalerr.KindEvaluatorFailure,
				"evaluator: model returned %d predictions for %d rows", got, want)
		}
		return preds, nil
	}
	return nil, evalerr.New(evalerr.KindInvalidArgument,
		"evaluator: either the model argument or a predictions column/vector must be provided")
}

// requireTargets returns the label vector or an error naming the model type.
func requireTargets(in *Input, modelType string) ([]any, error) {
	if in.Dataset == nil || !in.Dataset.HasTargets() {
		return nil, evalerr.New(evalerr.KindInvalidArgument,
			"evaluator: the targets argument must be specified for %s models", modelType)
	}
	return in.Dataset.Labels(), nil
}

// applyExtras runs caller-supplied extra metrics and custom artifacts and
// merges them into res. Extra metrics overwrite built-in metrics by name.
func applyExtras(res *Result, in *Input, targets, predictions []any) error {
	for _, m := range in.ExtraMetrics {
		if m.Compute == nil {
			continue
		}
		v, err := m.Compute(targets, predictions)
		if err != nil {
			return evalerr.Wrap(evalerr.KindEvaluatorFailure, err, "evaluator: extra metric %q", m.Name)
		}
		res.Metrics[m.Name] = v
	}
	for _, a := range in.CustomArtifacts {
		if a.Build == nil {
			continue
		}
		art, err := a.Build(targets, predictions)
		if err != nil {
			return evalerr.Wrap(evalerr.KindEvaluatorFailure, err, "evaluator: custom artifact %q", a.Name)
		}
		res.Artifacts[a.Name] = art
	}
	return nil
}
