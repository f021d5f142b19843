package evaluator

import (
	"fmt"
	"math"
	"sort"

	"github.com/stellarlinkco/mltrack/internal/evalerr"
)

// asFloat converts a numeric cell to float64.
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// classLabel folds a cell to a canonical class key so integer and float
// encodings of the same class compare equal.
func classLabel(v any) string {
	if f, ok := asFloat(v); ok {
		return fmt.Sprintf("%g", f)
	}
	return fmt.Sprintf("%v", v)
}

func floatVector(vals []any, what string) ([]float64, error) {
	out := make([]float64, len(vals))
	for i, v := range vals {
		f, ok := asFloat(v)
		if !ok {
			return nil, evalerr.New(evalerr.KindInvalidArgument,
				"evaluator: %s[%d] is %T, want a numeric value", what, i, v)
		}
		out[i] = f
	}
	return out, nil
}

func checkSameLength(targets, predictions []any) error {
	if len(targets) != len(predictions) {
		return evalerr.New(evalerr.KindInvalidArgument,
			"evaluator: got %d targets and %d predictions, want equal lengths", len(targets), len(predictions))
	}
	if len(targets) == 0 {
		return evalerr.New(evalerr.KindInvalidArgument, "evaluator: targets and predictions are empty")
	}
	return nil
}

// AccuracyScore is the fraction of predictions equal to their targets.
func AccuracyScore(targets, predictions []any) (float64, error) {
	if err := checkSameLength(targets, predictions); err != nil {
		return 0, err
	}
	hits := 0
	for i := range targets {
		if classLabel(targets[i]) == classLabel(predictions[i]) {
			hits++
		}
	}
	return float64(hits) / float64(len(targets)), nil
}

// classCounts tallies true positives, false positives, and false negatives
// per class label.
type classCounts struct {
	tp, fp, fn int
}

func tallyClasses(targets, predictions []any) (map[string]*classCounts, []string) {
	counts := make(map[string]*classCounts)
	get := func(label string) *classCounts {
		c, ok := counts[label]
		if !ok {
			c = &classCounts{}
			counts[label] = c
		}
		return c
	}
	for i := range targets {
		t := classLabel(targets[i])
		p := classLabel(predictions[i])
		if t == p {
			get(t).tp++
			continue
		}
		get(t).fn++
		get(p).fp++
	}
	labels := make([]string, 0, len(counts))
	for l := range counts {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return counts, labels
}

// PrecisionRecallF1 computes macro-averaged precision, recall, and F1.
func PrecisionRecallF1(targets, predictions []any) (precision, recall, f1 float64, err error) {
	if err := checkSameLength(targets, predictions); err != nil {
		return 0, 0, 0, err
	}
	counts, labels := tallyClasses(targets, predictions)
	var pSum, rSum, fSum float64
	for _, l := range labels {
		c := counts[l]
		var p, r float64
		if c.tp+c.fp > 0 {
			p = float64(c.tp) / float64(c.tp+c.fp)
		}
		if c.tp+c.fn > 0 {
			r = float64(c.tp) / float64(c.tp+c.fn)
		}
		pSum += p
		rSum += r
		if p+r > 0 {
			fSum += 2 * p * r / (p + r)
		}
	}
	n := float64(len(labels))
	return pSum / n, rSum / n, fSum / n, nil
}

// ConfusionMatrix returns the sorted class labels and the count matrix
// indexed [true][predicted].
func ConfusionMatrix(targets, predictions []any) ([]string, [][]int, error) {
	if err := checkSameLength(targets, predictions); err != nil {
		return nil, nil, err
	}
	seen := make(map[string]struct{})
	for i := range targets {
		seen[classLabel(targets[i])] = struct{}{}
		seen[classLabel(predictions[i])] = struct{}{}
	}
	labels := make([]string, 0, len(seen))
	for l := range seen {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	index := make(map[string]int, len(labels))
	for i, l := range labels {
		index[l] = i
	}
	matrix := make([][]int, len(labels))
	for i := range matrix {
		matrix[i] = make([]int, len(labels))
	}
	for i := range targets {
		matrix[index[classLabel(targets[i])]][index[classLabel(predictions[i])]]++
	}
	return labels, matrix, nil
}

// MeanAbsoluteError is the mean of |target - prediction|.
func MeanAbsoluteError(targets, predictions []any) (float64, error) {
	y, yhat, err := regressionVectors(targets, predictions)
	if err != nil {
		return 0, err
	}
	var sum float64
	for i := range y {
		sum += math.Abs(y[i] - yhat[i])
	}
	return sum / float64(len(y)), nil
}

// MeanSquaredError is the mean of (target - prediction)^2.
func MeanSquaredError(targets, predictions []any) (float64, error) {
	y, yhat, err := regressionVectors(targets, predictions)
	if err != nil {
		return 0, err
	}
	var sum float64
	for i := range y {
		d := y[i] - yhat[i]
		sum += d * d
	}
	return sum / float64(len(y)), nil
}

// RootMeanSquaredError is sqrt(MeanSquaredError).
func RootMeanSquaredError(targets, predictions []any) (float64, error) {
	mse, err := MeanSquaredError(targets, predictions)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// R2Score is the coefficient of determination. A constant target vector
// yields NaN, matching the undefined statistic rather than guessing.
func R2Score(targets, predictions []any) (float64, error) {
	y, yhat, err := regressionVectors(targets, predictions)
	if err != nil {
		return 0, err
	}
	var mean float64
	for _, v := range y {
		mean += v
	}
	mean /= float64(len(y))

	var ssRes, ssTot float64
	for i := range y {
		d := y[i] - yhat[i]
		ssRes += d * d
		t := y[i] - mean
		ssTot += t * t
	}
	if ssTot == 0 {
		return math.NaN(), nil
	}
	return 1 - ssRes/ssTot, nil
}

func regressionVectors(targets, predictions []any) ([]float64, []float64, error) {
	if err := checkSameLength(targets, predictions); err != nil {
		return nil, nil, err
	}
	y, err := floatVector(targets, "targets")
	if err != nil {
		return nil, nil, err
	}
	yhat, err := floatVector(predictions, "predictions")
	if err != nil {
		return nil, nil, err
	}
	return y, yhat, nil
}
