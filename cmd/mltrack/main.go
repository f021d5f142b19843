package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/stellarlinkco/mltrack/internal/config"
	"github.com/stellarlinkco/mltrack/internal/dataset"
	"github.com/stellarlinkco/mltrack/internal/evaluation"
	"github.com/stellarlinkco/mltrack/internal/evaluator"
	"github.com/stellarlinkco/mltrack/internal/llm"
	"github.com/stellarlinkco/mltrack/internal/tracking"
)

// main wires the tracking store, evaluator registry, and runner together and
// evaluates the demo dataset named by MLTRACK_DEMO_DATA. It exists to verify
// a deployment end to end; the evaluation API is consumed as a library.
func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if err := run(context.Background(), logger); err != nil {
		logger.Error("evaluation failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfgPath := strings.TrimSpace(os.Getenv("MLTRACK_CONFIG"))
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	store, err := tracking.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	tracker, err := tracking.NewClient(store)
	if err != nil {
		return err
	}

	registry := evaluator.NewBuiltinRegistry()
	if provider, err := llm.DefaultProviderFromConfig(cfg); err == nil {
		registry.Register("judge", &evaluator.JudgeEvaluator{Provider: provider})
	} else {
		logger.Warn("judge evaluator disabled", "error", err)
	}

	runner, err := evaluation.NewRunner(registry,
		evaluation.WithTracker(tracker),
		evaluation.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	data, opts, err := loadDemoData()
	if err != nil {
		return err
	}

	run, err := tracker.StartRun(ctx, "demo")
	if err != nil {
		return err
	}

	result, err := runner.Evaluate(ctx, &evaluation.Request{
		ModelType:   evaluator.ModelTypeClassifier,
		Data:        data,
		DatasetOpts: opts,
		RunID:       run.ID,
	})
	if err != nil {
		_ = tracker.EndRun(ctx, run.ID, tracking.StatusFailed)
		return err
	}
	if err := tracker.EndRun(ctx, run.ID, tracking.StatusFinished); err != nil {
		return err
	}

	out, err := json.MarshalIndent(result.Metrics, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

type demoRecord struct {
	Features   []float64 `json:"features"`
	Target     any       `json:"target"`
	Prediction any       `json:"prediction"`
}

// loadDemoData reads a JSON array of labeled, pre-scored rows.
func loadDemoData() (*dataset.Table, dataset.Options, error) {
	path := strings.TrimSpace(os.Getenv("MLTRACK_DEMO_DATA"))
	if path == "" {
		return nil, dataset.Options{}, fmt.Errorf("MLTRACK_DEMO_DATA is not set")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, dataset.Options{}, err
	}
	var records []demoRecord
	if err := json.Unmarshal(b, &records); err != nil {
		return nil, dataset.Options{}, fmt.Errorf("parse %q: %w", path, err)
	}
	if len(records) == 0 {
		return nil, dataset.Options{}, fmt.Errorf("%q has no records", path)
	}

	width := len(records[0].Features)
	cols := make([]dataset.Column, width)
	for j := range cols {
		vals := make([]any, len(records))
		for i, rec := range records {
			if len(rec.Features) != width {
				return nil, dataset.Options{}, fmt.Errorf("%q row %d: got %d features, want %d", path, i, len(rec.Features), width)
			}
			vals[i] = rec.Features[j]
		}
		cols[j] = dataset.Column{Name: fmt.Sprintf("f%d", j+1), Values: vals}
	}

	targets := make([]any, len(records))
	preds := make([]any, len(records))
	for i, rec := range records {
		targets[i] = rec.Target
		preds[i] = rec.Prediction
	}

	t, err := dataset.NewTable(cols...)
	if err != nil {
		return nil, dataset.Options{}, err
	}
	return t, dataset.Options{
		Targets:     targets,
		Predictions: preds,
		Name:        "demo",
		Path:        path,
	}, nil
}
