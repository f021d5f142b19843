package model

import (
	"context"
	"errors"
	"testing"

	"github.com/stellarlinkco/mltrack/internal/dataset"
)

func TestServed_PredictDelegates(t *testing.T) {
	t.Parallel()

	s := NewServed("m-1", "models:/demo/1", 0, func(_ context.Context, features *dataset.Table) ([]any, error) {
		return make([]any, features.NumRows()), nil
	})
	features := dataset.MustTable(dataset.Column{Name: "x", Values: []any{1, 2, 3}})
	preds, err := s.Predict(context.Background(), features)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if len(preds) != 3 {
		t.Fatalf("predictions: got %d want 3", len(preds))
	}

	var empty *Served
	if _, err := empty.Predict(context.Background(), features); err == nil {
		t.Fatalf("nil served: expected error")
	}
}

func TestServed_StopSignalsOnce(t *testing.T) {
	t.Parallel()

	calls := 0
	s := NewServed("", "models:/demo/1", 4242, nil)
	s.Signal = func(pid int) error {
		calls++
		if pid != 4242 {
			t.Fatalf("pid: got %d want 4242", pid)
		}
		return nil
	}

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop again: %v", err)
	}
	if calls != 1 {
		t.Fatalf("signal calls: got %d want 1", calls)
	}
}

func TestServed_StopKeepsFirstError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	s := NewServed("", "", 7, nil)
	s.Signal = func(int) error { return boom }

	if err := s.Stop(); !errors.Is(err, boom) {
		t.Fatalf("Stop: %v", err)
	}
	if err := s.Stop(); !errors.Is(err, boom) {
		t.Fatalf("Stop again: %v", err)
	}
}

func TestServed_StopWithoutPID(t *testing.T) {
	t.Parallel()

	s := NewServed("", "", 0, nil)
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	var empty *Served
	if err := empty.Stop(); err != nil {
		t.Fatalf("nil Stop: %v", err)
	}
}

func TestURIKinds(t *testing.T) {
	t.Parallel()

	if !IsModelURI("models:/demo/1") || IsModelURI("endpoints:/chat") || IsModelURI("") {
		t.Fatalf("IsModelURI misclassified")
	}
	if !IsDeploymentEndpointURI("endpoints:/chat") || IsDeploymentEndpointURI("models:/demo/1") {
		t.Fatalf("IsDeploymentEndpointURI misclassified")
	}
	if !IsModelURI("  models:/padded ") {
		t.Fatalf("IsModelURI should trim surrounding space")
	}
}

func TestPredictFunc_Nil(t *testing.T) {
	t.Parallel()

	var f PredictFunc
	if _, err := f.Predict(context.Background(), nil); err == nil {
		t.Fatalf("expected error")
	}
}
