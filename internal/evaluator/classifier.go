package evaluator

import (
	"context"
	"strconv"

	"github.com/stellarlinkco/mltrack/internal/dataset"
)

// ClassifierEvaluator scores classification predictions: accuracy,
// macro-averaged precision/recall/F1, and a confusion-matrix artifact.
type ClassifierEvaluator struct{}

func (*ClassifierEvaluator) CanEvaluate(modelType string, _ Config) bool {
	return modelType == ModelTypeClassifier
}

func (e *ClassifierEvaluator) Evaluate(ctx context.Context, in *Input) (*Result, error) {
	targets, err := requireTargets(in, ModelTypeClassifier)
	if err != nil {
		return nil, err
	}
	predictions, err := resolvePredictions(ctx, in)
	if err != nil {
		return nil, err
	}

	res := NewResult()
	prefix := metricPrefix(in.Config)

	metrics, err := classifierMetrics(targets, predictions, prefix)
	if err != nil {
		return nil, err
	}
	for k, v := range metrics {
		res.Metrics[k] = v
	}

	labels, matrix, err := ConfusionMatrix(targets, predictions)
	if err != nil {
		return nil, err
	}
	res.Artifacts[prefix+"confusion_matrix"] = &TableArtifact{Table: confusionTable(labels, matrix)}

	res.Tables["eval_results_table"] = resultsTable(targets, predictions)
	if err := applyExtras(res, in, targets, predictions); err != nil {
		return nil, err
	}
	return res, nil
}

func classifierMetrics(targets, predictions []any, prefix string) (map[string]float64, error) {
	acc, err := AccuracyScore(targets, predictions)
	if err != nil {
		return nil, err
	}
	p, r, f1, err := PrecisionRecallF1(targets, predictions)
	if err != nil {
		return nil, err
	}
	return map[string]float64{
		prefix + "accuracy_score":  acc,
		prefix + "precision_score": p,
		prefix + "recall_score":    r,
		prefix + "f1_score":        f1,
	}, nil
}

// metricPrefix reads the optional metric_prefix config entry.
func metricPrefix(cfg Config) string {
	if cfg == nil {
		return ""
	}
	if s, ok := cfg["metric_prefix"].(string); ok {
		return s
	}
	return ""
}

// confusionTable lays the count matrix out with true labels as the first
// column and one predicted-label column per class.
func confusionTable(labels []string, matrix [][]int) *dataset.Table {
	cols := make([]dataset.Column, 0, len(labels)+1)
	trueCol := make([]any, len(labels))
	for i, l := range labels {
		trueCol[i] = l
	}
	cols = append(cols, dataset.Column{Name: "true_label", Values: trueCol})
	for j, l := range labels {
		vals := make([]any, len(labels))
		for i := range labels {
			vals[i] = strconv.Itoa(matrix[i][j])
		}
		cols = append(cols, dataset.Column{Name: "predicted_" + l, Values: vals})
	}
	return dataset.MustTable(cols...)
}

func resultsTable(targets, predictions []any) *dataset.Table {
	if targets == nil {
		return dataset.MustTable(dataset.Column{Name: "outputs", Values: predictions})
	}
	return dataset.MustTable(
		dataset.Column{Name: "targets", Values: targets},
		dataset.Column{Name: "outputs", Values: predictions},
	)
}
