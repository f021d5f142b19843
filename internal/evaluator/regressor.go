package evaluator

import "context"

// RegressorEvaluator scores regression predictions: MAE, MSE, RMSE, and R².
type RegressorEvaluator struct{}

func (*RegressorEvaluator) CanEvaluate(modelType string, _ Config) bool {
	return modelType == ModelTypeRegressor
}

func (e *RegressorEvaluator) Evaluate(ctx context.Context, in *Input) (*Result, error) {
	targets, err := requireTargets(in, ModelTypeRegressor)
	if err != nil {
		return nil, err
	}
	predictions, err := resolvePredictions(ctx, in)
	if err != nil {
		return nil, err
	}

	res := NewResult()
	prefix := metricPrefix(in.Config)
	metrics, err := regressorMetrics(targets, predictions, prefix)
	if err != nil {
		return nil, err
	}
	for k, v := range metrics {
		res.Metrics[k] = v
	}

	res.Tables["eval_results_table"] = resultsTable(targets, predictions)
	if err := applyExtras(res, in, targets, predictions); err != nil {
		return nil, err
	}
	return res, nil
}

func regressorMetrics(targets, predictions []any, prefix string) (map[string]float64, error) {
	mae, err := MeanAbsoluteError(targets, predictions)
	if err != nil {
		return nil, err
	}
	mse, err := MeanSquaredError(targets, predictions)
	if err != nil {
		return nil, err
	}
	rmse, err := RootMeanSquaredError(targets, predictions)
	if err != nil {
		return nil, err
	}
	r2, err := R2Score(targets, predictions)
	if err != nil {
		return nil, err
	}
	return map[string]float64{
		prefix + "mean_absolute_error":     mae,
		prefix + "mean_squared_error":      mse,
		prefix + "root_mean_squared_error": rmse,
		prefix + "r2_score":                r2,
	}, nil
}
