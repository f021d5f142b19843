package evaluator

import (
	"context"

	"github.com/stellarlinkco/mltrack/internal/dataset"
)

// ShapEvaluator explains classifier and regressor models with a
// permutation-style feature-importance approximation: each feature column is
// cycled by one row and the drop in score against the baseline predictions
// is attributed to that feature. The cycle keeps the probe deterministic.
type ShapEvaluator struct{}

func (*ShapEvaluator) CanEvaluate(modelType string, _ Config) bool {
	return modelType == ModelTypeClassifier || modelType == ModelTypeRegressor
}

func (e *ShapEvaluator) Evaluate(ctx context.Context, in *Input) (*Result, error) {
	if in.Model == nil {
		// Static predictions cannot be probed per-feature; decline so the
		// dispatcher does not count an empty explanation as a success.
		return nil, nil
	}
	targets, err := requireTargets(in, in.ModelType)
	if err != nil {
		return nil, err
	}

	features := in.Dataset.Features()
	baselinePreds, err := resolvePredictions(ctx, in)
	if err != nil {
		return nil, err
	}
	baseline, err := explainScore(in.ModelType, targets, baselinePreds)
	if err != nil {
		return nil, err
	}

	res := NewResult()
	names := in.Dataset.FeatureNames()
	importance := make(map[string]float64, len(names))
	for i, col := range features.ColumnNames() {
		probed, err := cycleColumn(features, col)
		if err != nil {
			return nil, err
		}
		preds, err := in.Model.Predict(ctx, probed)
		if err != nil {
			return nil, err
		}
		score, err := explainScore(in.ModelType, targets, preds)
		if err != nil {
			return nil, err
		}
		name := col
		if i < len(names) {
			name = names[i]
		}
		importance[name] = baseline - score
	}

	res.Artifacts["feature_importance"] = &JSONArtifact{Value: importance}
	return res, nil
}

// explainScore scores predictions with a model-type-appropriate statistic:
// accuracy for classifiers, negative MSE for regressors, so that a larger
// value is always better.
func explainScore(modelType string, targets, predictions []any) (float64, error) {
	if modelType == ModelTypeClassifier {
		return AccuracyScore(targets, predictions)
	}
	mse, err := MeanSquaredError(targets, predictions)
	if err != nil {
		return 0, err
	}
	return -mse, nil
}

// cycleColumn returns a copy of t with the named column's values rotated by
// one position.
func cycleColumn(t *dataset.Table, name string) (*dataset.Table, error) {
	cols := make([]dataset.Column, 0, t.NumCols())
	for _, colName := range t.ColumnNames() {
		vals, _ := t.Column(colName)
		if colName == name && len(vals) > 1 {
			rotated := make([]any, len(vals))
			copy(rotated, vals[1:])
			rotated[len(vals)-1] = vals[0]
			vals = rotated
		}
		cols = append(cols, dataset.Column{Name: colName, Values: vals})
	}
	return dataset.NewTable(cols...)
}
