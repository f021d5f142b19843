package evaluator

import (
	"context"

	"github.com/stellarlinkco/mltrack/internal/evalerr"
)

// DefaultEvaluator is the generic fallback. It handles every model type:
// classifier and regressor datasets get the corresponding built-in metric
// set; everything else runs only the caller's extra metrics and artifacts.
type DefaultEvaluator struct{}

func (*DefaultEvaluator) CanEvaluate(string, Config) bool { return true }

func (e *DefaultEvaluator) Evaluate(ctx context.Context, in *Input) (*Result, error) {
	res := NewResult()
	predictions, err := resolvePredictions(ctx, in)
	if err != nil {
		return nil, err
	}

	var targets []any
	if in.Dataset != nil && in.Dataset.HasTargets() {
		targets = in.Dataset.Labels()
	}

	prefix := metricPrefix(in.Config)
	switch in.ModelType {
	case ModelTypeClassifier:
		if targets == nil {
			return nil, evalTargetsRequired(ModelTypeClassifier)
		}
		metrics, err := classifierMetrics(targets, predictions, prefix)
		if err != nil {
			return nil, err
		}
		for k, v := range metrics {
			res.Metrics[k] = v
		}
	case ModelTypeRegressor:
		if targets == nil {
			return nil, evalTargetsRequired(ModelTypeRegressor)
		}
		metrics, err := regressorMetrics(targets, predictions, prefix)
		if err != nil {
			return nil, err
		}
		for k, v := range metrics {
			res.Metrics[k] = v
		}
	}

	res.Tables["eval_results_table"] = resultsTable(targets, predictions)
	if err := applyExtras(res, in, targets, predictions); err != nil {
		return nil, err
	}
	return res, nil
}

func evalTargetsRequired(modelType string) error {
	return evalerr.New(evalerr.KindInvalidArgument,
		"evaluator: the targets argument must be specified for %s models", modelType)
}
