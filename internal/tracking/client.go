package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stellarlinkco/mltrack/internal/dataset"
)

// Client wraps a Store with run lifecycle helpers and an active-run default.
// Operations given an empty run id fall back to the active run.
type Client struct {
	store Store

	mu          sync.Mutex
	activeRun   string
	activeModel string
}

func NewClient(store Store) (*Client, error) {
	if store == nil {
		return nil, errors.New("tracking: nil store")
	}
	return &Client{store: store}, nil
}

// Store exposes the underlying store.
func (c *Client) Store() Store {
	if c == nil {
		return nil
	}
	return c.store
}

// StartRun creates a run and makes it the active run.
func (c *Client) StartRun(ctx context.Context, name string) (*RunRecord, error) {
	if c == nil || c.store == nil {
		return nil, errors.New("tracking: nil client")
	}
	run := &RunRecord{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(name),
		Status:    StatusRunning,
		StartedAt: time.Now().UTC(),
	}
	if run.Name == "" {
		run.Name = run.ID
	}
	if err := c.store.CreateRun(ctx, run); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.activeRun = run.ID
	c.mu.Unlock()
	return run, nil
}

// EndRun transitions the run to a terminal state and clears it as the
// active run if it still is.
func (c *Client) EndRun(ctx context.Context, runID, status string) error {
	if c == nil || c.store == nil {
		return errors.New("tracking: nil client")
	}
	runID, err := c.resolveRunID(runID)
	if err != nil {
		return err
	}
	if status == "" {
		status = StatusFinished
	}
	if err := c.store.UpdateRunStatus(ctx, runID, status); err != nil {
		return err
	}

	c.mu.Lock()
	if c.activeRun == runID {
		c.activeRun = ""
	}
	c.mu.Unlock()
	return nil
}

// ActiveRunID returns the current active run id, or empty.
func (c *Client) ActiveRunID() string {
	if c == nil {
		return ""
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeRun
}

// SetActiveModel records the model id attributed to subsequent metric logging
// when no explicit id is given. An empty id clears it.
func (c *Client) SetActiveModel(id string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.activeModel = strings.TrimSpace(id)
	c.mu.Unlock()
}

// ActiveModelID returns the current active model id, or empty.
func (c *Client) ActiveModelID() string {
	if c == nil {
		return ""
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeModel
}

func (c *Client) resolveRunID(runID string) (string, error) {
	if id := strings.TrimSpace(runID); id != "" {
		return id, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.activeRun == "" {
		return "", errors.New("tracking: no run id given and no active run")
	}
	return c.activeRun, nil
}

// LogMetric records one metric against the run. modelID may be empty.
func (c *Client) LogMetric(ctx context.Context, runID, key string, value float64, modelID string) error {
	if c == nil || c.store == nil {
		return errors.New("tracking: nil client")
	}
	runID, err := c.resolveRunID(runID)
	if err != nil {
		return err
	}
	return c.store.LogMetric(ctx, &MetricRecord{
		RunID:   runID,
		Key:     key,
		Value:   value,
		ModelID: modelID,
	})
}

// LogDatasetTag appends the dataset metadata to the run's dataset tag.
// Entries are deduplicated by hash, so re-logging the same dataset leaves
// the tag unchanged. The tag value is a compact JSON array.
func (c *Client) LogDatasetTag(ctx context.Context, runID string, meta dataset.Metadata) error {
	if c == nil || c.store == nil {
		return errors.New("tracking: nil client")
	}
	runID, err := c.resolveRunID(runID)
	if err != nil {
		return err
	}
	if strings.TrimSpace(meta.Hash) == "" {
		return errors.New("tracking: dataset metadata missing hash")
	}

	raw, ok, err := c.store.GetTag(ctx, runID, DatasetTagKey)
	if err != nil {
		return err
	}

	var entries []dataset.Metadata
	if ok && strings.TrimSpace(raw) != "" {
		if err := json.Unmarshal([]byte(raw), &entries); err != nil {
			return fmt.Errorf("tracking: parse dataset tag: %w", err)
		}
	}
	for _, e := range entries {
		if e.Hash == meta.Hash {
			return nil
		}
	}
	entries = append(entries, meta)

	// json.Marshal emits no insignificant whitespace.
	b, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("tracking: encode dataset tag: %w", err)
	}
	return c.store.SetTag(ctx, runID, DatasetTagKey, string(b))
}

// DatasetTag returns the datasets recorded on the run.
func (c *Client) DatasetTag(ctx context.Context, runID string) ([]dataset.Metadata, error) {
	if c == nil || c.store == nil {
		return nil, errors.New("tracking: nil client")
	}
	runID, err := c.resolveRunID(runID)
	if err != nil {
		return nil, err
	}
	raw, ok, err := c.store.GetTag(ctx, runID, DatasetTagKey)
	if err != nil || !ok {
		return nil, err
	}
	var entries []dataset.Metadata
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("tracking: parse dataset tag: %w", err)
	}
	return entries, nil
}

// LogModel records a model and returns its generated id.
func (c *Client) LogModel(ctx context.Context, runID, uri string) (string, error) {
	if c == nil || c.store == nil {
		return "", errors.New("tracking: nil client")
	}
	runID, err := c.resolveRunID(runID)
	if err != nil {
		return "", err
	}
	m := &ModelRecord{
		ID:        "m-" + uuid.NewString(),
		RunID:     runID,
		URI:       strings.TrimSpace(uri),
		CreatedAt: time.Now().UTC(),
	}
	if err := c.store.SaveModel(ctx, m); err != nil {
		return "", err
	}
	return m.ID, nil
}
