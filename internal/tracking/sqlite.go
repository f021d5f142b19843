package tracking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB

	insertRunStmt      *sql.Stmt
	updateRunStmt      *sql.Stmt
	getRunStmt         *sql.Stmt
	insertMetricStmt   *sql.Stmt
	metricsByRunStmt   *sql.Stmt
	insertParamStmt    *sql.Stmt
	paramsByRunStmt    *sql.Stmt
	upsertTagStmt      *sql.Stmt
	getTagStmt         *sql.Stmt
	insertArtifactStmt *sql.Stmt
	artifactsByRunStmt *sql.Stmt
	insertModelStmt    *sql.Stmt
	getModelStmt       *sql.Stmt
	modelByURIStmt     *sql.Stmt
}

var (
	sqliteOpen              = sql.Open
	sqlitePrepareStatements = (*SQLiteStore).prepareStatements
)

// NewSQLiteStore opens or creates a SQLite store at the given path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("tracking: empty sqlite path")
	}
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("tracking: create sqlite dir: %w", err)
			}
		}
	}

	db, err := sqliteOpen("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("tracking: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("tracking: ping sqlite: %w", err)
	}

	if err := initSQLiteSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	st := &SQLiteStore{db: db}
	if err := sqlitePrepareStatements(st); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

func initSQLiteSchema(db *sql.DB) error {
	stmts := []string{
		`PRAGMA foreign_keys = ON`,
		`PRAGMA journal_mode = WAL`,
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			status TEXT NOT NULL,
			started_at INTEGER NOT NULL,
			ended_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS metrics (
			run_id TEXT NOT NULL,
			key TEXT NOT NULL,
			value REAL NOT NULL,
			model_id TEXT NOT NULL DEFAULT '',
			step INTEGER NOT NULL DEFAULT 0,
			logged_at INTEGER NOT NULL,
			FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS params (
			run_id TEXT NOT NULL,
			key TEXT NOT NULL,
			value TEXT NOT NULL,
			PRIMARY KEY(run_id, key),
			FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS tags (
			run_id TEXT NOT NULL,
			key TEXT NOT NULL,
			value TEXT NOT NULL,
			PRIMARY KEY(run_id, key),
			FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS artifacts (
			run_id TEXT NOT NULL,
			name TEXT NOT NULL,
			path TEXT NOT NULL,
			class_name TEXT NOT NULL DEFAULT '',
			PRIMARY KEY(run_id, name),
			FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS models (
			id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			uri TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_metrics_run_id ON metrics(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_models_uri ON models(uri)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("tracking: init schema: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) prepareStatements() error {
	if s == nil || s.db == nil {
		return errors.New("tracking: nil sqlite store")
	}

	ctx := context.Background()
	type stmtSpec struct {
		dst    **sql.Stmt
		query  string
		errFmt string
	}

	specs := []stmtSpec{
		{
			dst:    &s.insertRunStmt,
			query:  `INSERT INTO runs (id, name, status, started_at, ended_at) VALUES (?, ?, ?, ?, ?)`,
			errFmt: "tracking: prepare insert run: %w",
		},
		{
			dst:    &s.updateRunStmt,
			query:  `UPDATE runs SET status = ?, ended_at = ? WHERE id = ?`,
			errFmt: "tracking: prepare update run: %w",
		},
		{
			dst:    &s.getRunStmt,
			query:  `SELECT id, name, status, started_at, ended_at FROM runs WHERE id = ?`,
			errFmt: "tracking: prepare get run: %w",
		},
		{
			dst: &s.insertMetricStmt,
			query: `
				INSERT INTO metrics (run_id, key, value, model_id, step, logged_at)
				VALUES (?, ?, ?, ?, ?, ?)
			`,
			errFmt: "tracking: prepare insert metric: %w",
		},
		{
			dst: &s.metricsByRunStmt,
			query: `
				SELECT run_id, key, value, model_id, step, logged_at
				FROM metrics
				WHERE run_id = ?
				ORDER BY logged_at ASC, key ASC
			`,
			errFmt: "tracking: prepare get metrics: %w",
		},
		{
			dst: &s.insertParamStmt,
			query: `
				INSERT INTO params (run_id, key, value) VALUES (?, ?, ?)
				ON CONFLICT(run_id, key) DO UPDATE SET value = excluded.value
			`,
			errFmt: "tracking: prepare insert param: %w",
		},
		{
			dst:    &s.paramsByRunStmt,
			query:  `SELECT key, value FROM params WHERE run_id = ? ORDER BY key ASC`,
			errFmt: "tracking: prepare get params: %w",
		},
		{
			dst: &s.upsertTagStmt,
			query: `
				INSERT INTO tags (run_id, key, value) VALUES (?, ?, ?)
				ON CONFLICT(run_id, key) DO UPDATE SET value = excluded.value
			`,
			errFmt: "tracking: prepare upsert tag: %w",
		},
		{
			dst:    &s.getTagStmt,
			query:  `SELECT value FROM tags WHERE run_id = ? AND key = ?`,
			errFmt: "tracking: prepare get tag: %w",
		},
		{
			dst: &s.insertArtifactStmt,
			query: `
				INSERT INTO artifacts (run_id, name, path, class_name) VALUES (?, ?, ?, ?)
				ON CONFLICT(run_id, name) DO UPDATE SET path = excluded.path, class_name = excluded.class_name
			`,
			errFmt: "tracking: prepare insert artifact: %w",
		},
		{
			dst: &s.artifactsByRunStmt,
			query: `
				SELECT run_id, name, path, class_name
				FROM artifacts
				WHERE run_id = ?
				ORDER BY name ASC
			`,
			errFmt: "tracking: prepare get artifacts: %w",
		},
		{
			dst:    &s.insertModelStmt,
			query:  `INSERT INTO models (id, run_id, uri, created_at) VALUES (?, ?, ?, ?)`,
			errFmt: "tracking: prepare insert model: %w",
		},
		{
			dst:    &s.getModelStmt,
			query:  `SELECT id, run_id, uri, created_at FROM models WHERE id = ?`,
			errFmt: "tracking: prepare get model: %w",
		},
		{
			dst: &s.modelByURIStmt,
			query: `
				SELECT id, run_id, uri, created_at FROM models
				WHERE uri = ?
				ORDER BY created_at DESC
				LIMIT 1
			`,
			errFmt: "tracking: prepare model by uri: %w",
		},
	}

	for _, spec := range specs {
		stmt, err := s.db.PrepareContext(ctx, spec.query)
		if err != nil {
			return fmt.Errorf(spec.errFmt, err)
		}
		*spec.dst = stmt
	}

	return nil
}

// Close releases database resources.
func (s *SQLiteStore) Close() error {
	if s == nil {
		return nil
	}
	stmts := []*sql.Stmt{
		s.insertRunStmt,
		s.updateRunStmt,
		s.getRunStmt,
		s.insertMetricStmt,
		s.metricsByRunStmt,
		s.insertParamStmt,
		s.paramsByRunStmt,
		s.upsertTagStmt,
		s.getTagStmt,
		s.insertArtifactStmt,
		s.artifactsByRunStmt,
		s.insertModelStmt,
		s.getModelStmt,
		s.modelByURIStmt,
	}
	for _, stmt := range stmts {
		if stmt != nil {
			_ = stmt.Close()
		}
	}
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// CreateRun persists a new run row.
func (s *SQLiteStore) CreateRun(ctx context.Context, run *RunRecord) error {
	if s == nil {
		return errors.New("tracking: nil sqlite store")
	}
	if ctx == nil {
		return errors.New("tracking: nil context")
	}
	if run == nil {
		return errors.New("tracking: nil run")
	}

	id := strings.TrimSpace(run.ID)
	if id == "" {
		return errors.New("tracking: empty run id")
	}
	status := strings.TrimSpace(run.Status)
	if status == "" {
		status = StatusRunning
	}
	startedAt := run.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now().UTC()
	}

	_, err := s.insertRunStmt.ExecContext(
		ctx,
		id,
		run.Name,
		status,
		startedAt.UTC().UnixMilli(),
		run.EndedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("tracking: insert run: %w", err)
	}
	return nil
}

// UpdateRunStatus transitions the run to the given lifecycle state.
func (s *SQLiteStore) UpdateRunStatus(ctx context.Context, runID, status string) error {
	if s == nil {
		return errors.New("tracking: nil sqlite store")
	}
	if strings.TrimSpace(runID) == "" {
		return errors.New("tracking: empty run id")
	}
	res, err := s.updateRunStmt.ExecContext(ctx, status, time.Now().UTC().UnixMilli(), runID)
	if err != nil {
		return fmt.Errorf("tracking: update run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("tracking: update run rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("tracking: run %q not found", runID)
	}
	return nil
}

// GetRun loads a run by id.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	if s == nil {
		return nil, errors.New("tracking: nil sqlite store")
	}
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("tracking: empty run id")
	}

	var (
		run       RunRecord
		startedAt int64
		endedAt   int64
	)
	err := s.getRunStmt.QueryRowContext(ctx, id).Scan(&run.ID, &run.Name, &run.Status, &startedAt, &endedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("tracking: run %q not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("tracking: get run: %w", err)
	}
	run.StartedAt = time.UnixMilli(startedAt).UTC()
	run.EndedAt = time.UnixMilli(endedAt).UTC()
	return &run, nil
}

// LogMetric appends one metric value.
func (s *SQLiteStore) LogMetric(ctx context.Context, m *MetricRecord) error {
	if s == nil {
		return errors.New("tracking: nil sqlite store")
	}
	if m == nil {
		return errors.New("tracking: nil metric")
	}
	if strings.TrimSpace(m.RunID) == "" {
		return errors.New("tracking: empty run id")
	}
	if strings.TrimSpace(m.Key) == "" {
		return errors.New("tracking: empty metric key")
	}
	loggedAt := m.LoggedAt
	if loggedAt.IsZero() {
		loggedAt = time.Now().UTC()
	}
	_, err := s.insertMetricStmt.ExecContext(
		ctx,
		m.RunID,
		m.Key,
		m.Value,
		m.ModelID,
		m.Step,
		loggedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("tracking: insert metric: %w", err)
	}
	return nil
}

// GetMetrics returns all metrics logged for a run in log order.
func (s *SQLiteStore) GetMetrics(ctx context.Context, runID string) ([]*MetricRecord, error) {
	if s == nil {
		return nil, errors.New("tracking: nil sqlite store")
	}
	if strings.TrimSpace(runID) == "" {
		return nil, errors.New("tracking: empty run id")
	}

	rows, err := s.metricsByRunStmt.QueryContext(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("tracking: get metrics: %w", err)
	}
	defer rows.Close()

	var out []*MetricRecord
	for rows.Next() {
		var (
			m        MetricRecord
			loggedAt int64
		)
		if err := rows.Scan(&m.RunID, &m.Key, &m.Value, &m.ModelID, &m.Step, &loggedAt); err != nil {
			return nil, fmt.Errorf("tracking: scan metric: %w", err)
		}
		m.LoggedAt = time.UnixMilli(loggedAt).UTC()
		out = append(out, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("tracking: iterate metrics: %w", err)
	}
	return out, nil
}

// LogParam records or overwrites one run parameter.
func (s *SQLiteStore) LogParam(ctx context.Context, runID, key, value string) error {
	if s == nil {
		return errors.New("tracking: nil sqlite store")
	}
	if strings.TrimSpace(runID) == "" {
		return errors.New("tracking: empty run id")
	}
	if strings.TrimSpace(key) == "" {
		return errors.New("tracking: empty param key")
	}
	if _, err := s.insertParamStmt.ExecContext(ctx, runID, key, value); err != nil {
		return fmt.Errorf("tracking: insert param: %w", err)
	}
	return nil
}

// GetParams returns all parameters recorded for a run.
func (s *SQLiteStore) GetParams(ctx context.Context, runID string) (map[string]string, error) {
	if s == nil {
		return nil, errors.New("tracking: nil sqlite store")
	}
	if strings.TrimSpace(runID) == "" {
		return nil, errors.New("tracking: empty run id")
	}

	rows, err := s.paramsByRunStmt.QueryContext(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("tracking: get params: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("tracking: scan param: %w", err)
		}
		out[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("tracking: iterate params: %w", err)
	}
	return out, nil
}

// SetTag records or overwrites one run tag.
func (s *SQLiteStore) SetTag(ctx context.Context, runID, key, value string) error {
	if s == nil {
		return errors.New("tracking: nil sqlite store")
	}
	if strings.TrimSpace(runID) == "" {
		return errors.New("tracking: empty run id")
	}
	if strings.TrimSpace(key) == "" {
		return errors.New("tracking: empty tag key")
	}
	if _, err := s.upsertTagStmt.ExecContext(ctx, runID, key, value); err != nil {
		return fmt.Errorf("tracking: upsert tag: %w", err)
	}
	return nil
}

// GetTag returns the tag value and whether it is set.
func (s *SQLiteStore) GetTag(ctx context.Context, runID, key string) (string, bool, error) {
	if s == nil {
		return "", false, errors.New("tracking: nil sqlite store")
	}
	var value string
	err := s.getTagStmt.QueryRowContext(ctx, runID, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("tracking: get tag: %w", err)
	}
	return value, true, nil
}

// LogArtifact records an artifact location for a run.
func (s *SQLiteStore) LogArtifact(ctx context.Context, a *ArtifactRecord) error {
	if s == nil {
		return errors.New("tracking: nil sqlite store")
	}
	if a == nil {
		return errors.New("tracking: nil artifact")
	}
	if strings.TrimSpace(a.RunID) == "" {
		return errors.New("tracking: empty run id")
	}
	if strings.TrimSpace(a.Name) == "" {
		return errors.New("tracking: empty artifact name")
	}
	if _, err := s.insertArtifactStmt.ExecContext(ctx, a.RunID, a.Name, a.Path, a.ClassName); err != nil {
		return fmt.Errorf("tracking: insert artifact: %w", err)
	}
	return nil
}

// ListArtifacts returns all artifacts logged for a run sorted by name.
func (s *SQLiteStore) ListArtifacts(ctx context.Context, runID string) ([]*ArtifactRecord, error) {
	if s == nil {
		return nil, errors.New("tracking: nil sqlite store")
	}
	if strings.TrimSpace(runID) == "" {
		return nil, errors.New("tracking: empty run id")
	}

	rows, err := s.artifactsByRunStmt.QueryContext(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("tracking: get artifacts: %w", err)
	}
	defer rows.Close()

	var out []*ArtifactRecord
	for rows.Next() {
		var a ArtifactRecord
		if err := rows.Scan(&a.RunID, &a.Name, &a.Path, &a.ClassName); err != nil {
			return nil, fmt.Errorf("tracking: scan artifact: %w", err)
		}
		out = append(out, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("tracking: iterate artifacts: %w", err)
	}
	return out, nil
}

// SaveModel records a logged model and its URI.
func (s *SQLiteStore) SaveModel(ctx context.Context, m *ModelRecord) error {
	if s == nil {
		return errors.New("tracking: nil sqlite store")
	}
	if m == nil {
		return errors.New("tracking: nil model")
	}
	if strings.TrimSpace(m.ID) == "" {
		return errors.New("tracking: empty model id")
	}
	createdAt := m.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.insertModelStmt.ExecContext(ctx, m.ID, m.RunID, m.URI, createdAt.UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("tracking: insert model: %w", err)
	}
	return nil
}

// GetModel loads a logged model by id.
func (s *SQLiteStore) GetModel(ctx context.Context, id string) (*ModelRecord, error) {
	if s == nil {
		return nil, errors.New("tracking: nil sqlite store")
	}
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("tracking: empty model id")
	}
	m, err := scanModel(s.getModelStmt.QueryRowContext(ctx, id))
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("tracking: model %q not found", id)
	}
	return m, nil
}

// GetModelByURI returns the most recently logged model with the given URI,
// or nil when no model matches.
func (s *SQLiteStore) GetModelByURI(ctx context.Context, uri string) (*ModelRecord, error) {
	if s == nil {
		return nil, errors.New("tracking: nil sqlite store")
	}
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return nil, errors.New("tracking: empty model uri")
	}
	return scanModel(s.modelByURIStmt.QueryRowContext(ctx, uri))
}

func scanModel(row *sql.Row) (*ModelRecord, error) {
	var (
		m         ModelRecord
		createdAt int64
	)
	err := row.Scan(&m.ID, &m.RunID, &m.URI, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("tracking: get model: %w", err)
	}
	m.CreatedAt = time.UnixMilli(createdAt).UTC()
	return &m, nil
}
