package evaluation

import (
	"context"
	"log/slog"

	"github.com/stellarlinkco/mltrack/internal/dataset"
	"github.com/stellarlinkco/mltrack/internal/evalerr"
	"github.com/stellarlinkco/mltrack/internal/evaluator"
	"github.com/stellarlinkco/mltrack/internal/model"
	"github.com/stellarlinkco/mltrack/internal/tracking"
)

// agentModelType is accepted only when an agent harness is installed, which
// this build does not ship.
const agentModelType = "databricks-agent"

// Runner dispatches evaluation requests across registered evaluators and
// records the outcome with the tracker.
type Runner struct {
	registry *evaluator.Registry
	tracker  *tracking.Client
	loader   model.Loader
	logger   *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithTracker attaches a tracking client. Metrics and dataset tags are
// recorded on the evaluated run when set.
func WithTracker(c *tracking.Client) Option {
	return func(r *Runner) { r.tracker = c }
}

// WithLoader attaches a model loader for models:/ URIs.
func WithLoader(l model.Loader) Option {
	return func(r *Runner) { r.loader = l }
}

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

func NewRunner(reg *evaluator.Registry, opts ...Option) (*Runner, error) {
	if reg == nil {
		return nil, evalerr.New(evalerr.KindInvalidArgument, "evaluation: nil evaluator registry")
	}
	r := &Runner{
		registry: reg,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r, nil
}

// Request describes one evaluation.
type Request struct {
	// Model is the subject under evaluation: an evaluator.Predictor, a
	// models:/ URI string, or nil when Data already carries predictions.
	Model any

	// ModelID optionally attributes logged metrics to a logged model. It
	// must agree with the id associated with a model URI.
	ModelID string

	ModelType string

	// Data is the evaluation dataset input, in any form dataset.New
	// accepts. Required.
	Data        any
	DatasetOpts dataset.Options

	// Evaluator selects a single evaluator by name. Evaluators selects an
	// explicit ordered list and takes precedence. With neither set, the
	// model type's default chain runs.
	Evaluator       string
	Evaluators      []string
	EvaluatorConfig map[string]any

	RunID string

	ExtraMetrics    []evaluator.Metric
	CustomArtifacts []evaluator.CustomArtifact

	// OutputDir, when set, receives the saved result files.
	OutputDir string
}

// Evaluate resolves the model and evaluators for the request, runs every
// capable evaluator in order, and returns the merged result. Metrics and
// artifacts from later evaluators overwrite earlier ones on name collision.
func (r *Runner) Evaluate(ctx context.Context, req *Request) (*evaluator.Result, error) {
	if r == nil || r.registry == nil {
		return nil, evalerr.New(evalerr.KindInvalidArgument, "evaluation: nil runner")
	}
	if req == nil {
		return nil, evalerr.New(evalerr.KindInvalidArgument, "evaluation: nil request")
	}
	if req.Data == nil {
		return nil, evalerr.New(evalerr.KindInvalidArgument, "evaluation: the data argument cannot be nil")
	}
	if req.ModelType == agentModelType {
		return nil, evalerr.New(evalerr.KindDependencyMissing,
			"evaluation: model type %q requires the agent evaluation harness, which is not installed", agentModelType)
	}

	ds, err := dataset.New(req.Data, req.DatasetOpts)
	if err != nil {
		return nil, err
	}
	if (req.ModelType == evaluator.ModelTypeClassifier || req.ModelType == evaluator.ModelTypeRegressor) && !ds.HasTargets() {
		return nil, evalerr.New(evalerr.KindInvalidArgument,
			"evaluation: the targets argument must be specified for %s models", req.ModelType)
	}

	predictor, modelID, stop, err := r.resolveModel(ctx, req)
	if err != nil {
		return nil, err
	}
	// The serving subprocess must not outlive the evaluation, whatever the
	// exit path.
	defer stop()

	// Explicit id, then the id associated with the loaded model, then the
	// tracker's active model.
	if modelID == "" && r.tracker != nil {
		modelID = r.tracker.ActiveModelID()
	}

	resolved, err := resolveEvaluators(r.registry, req.Evaluator, req.Evaluators, req.EvaluatorConfig, req.ModelType)
	if err != nil {
		return nil, err
	}

	merged, err := r.dispatch(ctx, req, ds, predictor, modelID, resolved)
	if err != nil {
		return nil, err
	}

	if err := r.record(ctx, req, ds, modelID, merged); err != nil {
		return nil, err
	}
	return merged, nil
}

// resolveModel turns the request's model argument into a predictor, the
// effective model id, and a teardown function.
func (r *Runner) resolveModel(ctx context.Context, req *Request) (evaluator.Predictor, string, func(), error) {
	noop := func() {}

	switch m := req.Model.(type) {
	case nil:
		return nil, req.ModelID, noop, nil
	case evaluator.Predictor:
		return m, req.ModelID, noop, nil
	case string:
		if model.IsDeploymentEndpointURI(m) {
			return nil, "", noop, evalerr.New(evalerr.KindDependencyMissing,
				"evaluation: endpoint URI %q requires a deployment client, which is not configured", m)
		}
		if !model.IsModelURI(m) {
			return nil, "", noop, evalerr.New(evalerr.KindInvalidArgument,
				"evaluation: unsupported model URI %q", m)
		}
		if r.loader == nil {
			return nil, "", noop, evalerr.New(evalerr.KindDependencyMissing,
				"evaluation: model URI %q given but no model loader is configured", m)
		}
		served, err := r.loader.Load(ctx, m)
		if err != nil {
			return nil, "", noop, err
		}
		stop := func() {
			if err := served.Stop(); err != nil {
				r.logger.Error("stopping served model", "uri", m, "pid", served.PID, "error", err)
			}
		}
		modelID := req.ModelID
		if served.ID != "" {
			if modelID != "" && modelID != served.ID {
				stop()
				return nil, "", noop, evalerr.New(evalerr.KindInvalidArgument,
					"evaluation: the model id %q associated with %q contradicts the model_id argument %q", served.ID, m, modelID)
			}
			modelID = served.ID
		}
		return served, modelID, stop, nil
	default:
		return nil, "", noop, evalerr.New(evalerr.KindInvalidArgument,
			"evaluation: model must be a predictor or a model URI, got %T", req.Model)
	}
}

func (r *Runner) dispatch(ctx context.Context, req *Request, ds *dataset.Dataset, predictor evaluator.Predictor, modelID string, resolved []Resolved) (*evaluator.Result, error) {
	merged := evaluator.NewResult()
	capable := 0
	succeeded := 0
	var lastErr error

	for _, res := range resolved {
		if !res.Evaluator.CanEvaluate(req.ModelType, res.Config) {
			r.logger.Debug("evaluator skipped", "evaluator", res.Name, "model_type", req.ModelType)
			continue
		}

		in := &evaluator.Input{
			Model:           predictor,
			ModelType:       req.ModelType,
			ModelID:         modelID,
			Dataset:         ds,
			RunID:           req.RunID,
			Config:          res.Config,
			ExtraMetrics:    req.ExtraMetrics,
			CustomArtifacts: req.CustomArtifacts,
		}

		out, err := res.Evaluator.Evaluate(ctx, in)
		if err != nil {
			capable++
			if len(resolved) == 1 {
				return nil, evalerr.Wrap(evalerr.KindEvaluatorFailure, err, "evaluation: evaluator %q", res.Name)
			}
			lastErr = err
			r.logger.Error("evaluator failed", "evaluator", res.Name, "error", err)
			continue
		}
		if out == nil {
			// The evaluator declined this input after inspecting it, so it
			// does not count toward the capability check.
			r.logger.Debug("evaluator declined", "evaluator", res.Name, "model_type", req.ModelType)
			continue
		}
		capable++
		succeeded++
		merged.Merge(out)
	}

	if capable == 0 {
		return nil, evalerr.New(evalerr.KindNoCapableEvaluator,
			"evaluation: the model could not be evaluated by any of the registered evaluators")
	}
	if succeeded == 0 {
		return nil, evalerr.Wrap(evalerr.KindEvaluatorFailure, lastErr, "evaluation: every capable evaluator failed")
	}
	return merged, nil
}

// record persists the merged result against the tracked run.
func (r *Runner) record(ctx context.Context, req *Request, ds *dataset.Dataset, modelID string, merged *evaluator.Result) error {
	if req.OutputDir != "" {
		if err := merged.Save(req.OutputDir); err != nil {
			return err
		}
	}
	if r.tracker == nil {
		return nil
	}
	runID := req.RunID
	if runID == "" && r.tracker.ActiveRunID() == "" {
		return nil
	}

	for key, value := range merged.Metrics {
		if err := r.tracker.LogMetric(ctx, runID, key, value, modelID); err != nil {
			return err
		}
	}
	meta := ds.Metadata()
	meta.Model = modelID
	if err := r.tracker.LogDatasetTag(ctx, runID, meta); err != nil {
		return err
	}
	if req.OutputDir != "" {
		store := r.tracker.Store()
		for name, art := range merged.Artifacts {
			rec := &tracking.ArtifactRecord{
				RunID:     runID,
				Name:      name,
				Path:      art.URI(),
				ClassName: art.ClassName(),
			}
			if rec.RunID == "" {
				rec.RunID = r.tracker.ActiveRunID()
			}
			if err := store.LogArtifact(ctx, rec); err != nil {
				return err
			}
		}
	}
	return nil
}
