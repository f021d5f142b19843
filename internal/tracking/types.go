package tracking

import (
	"context"
	"time"
)

// DatasetTagKey is the run tag holding the JSON array of dataset metadata.
const DatasetTagKey = "mltrack.datasets"

// RunWriter defines persistence for runs, metrics, and tags.
type RunWriter interface {
	CreateRun(ctx context.Context, run *RunRecord) error
	UpdateRunStatus(ctx context.Context, runID, status string) error
	LogMetric(ctx context.Context, m *MetricRecord) error
	LogParam(ctx context.Context, runID, key, value string) error
	SetTag(ctx context.Context, runID, key, value string) error
	LogArtifact(ctx context.Context, a *ArtifactRecord) error
	SaveModel(ctx context.Context, m *ModelRecord) error
}

// RunReader defines read access to run data.
type RunReader interface {
	GetRun(ctx context.Context, id string) (*RunRecord, error)
	GetTag(ctx context.Context, runID, key string) (string, bool, error)
	GetMetrics(ctx context.Context, runID string) ([]*MetricRecord, error)
	GetParams(ctx context.Context, runID string) (map[string]string, error)
	ListArtifacts(ctx context.Context, runID string) ([]*ArtifactRecord, error)
	GetModelByURI(ctx context.Context, uri string) (*ModelRecord, error)
	GetModel(ctx context.Context, id string) (*ModelRecord, error)
}

// Store defines persistence for evaluation runs.
type Store interface {
	RunWriter
	RunReader
	Close() error
}

// Run lifecycle states.
const (
	StatusRunning  = "RUNNING"
	StatusFinished = "FINISHED"
	StatusFailed   = "FAILED"
)

// RunRecord stores a single tracked run.
type RunRecord struct {
	ID        string
	Name      string
	Status    string
	StartedAt time.Time
	EndedAt   time.Time
}

// MetricRecord stores one logged metric value. ModelID is empty for metrics
// not attributed to a specific logged model.
type MetricRecord struct {
	RunID    string
	Key      string
	Value    float64
	ModelID  string
	Step     int
	LoggedAt time.Time
}

// ArtifactRecord stores a named artifact location for a run.
type ArtifactRecord struct {
	RunID     string
	Name      string
	Path      string
	ClassName string
}

// ModelRecord associates a logged model id with its URI and owning run.
type ModelRecord struct {
	ID        string
	RunID     string
	URI       string
	CreatedAt time.Time
}
