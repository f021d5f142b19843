package evaluator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/stellarlinkco/mltrack/internal/dataset"
)

const (
	metricsFile          = "metrics.json"
	artifactMetadataFile = "artifacts_metadata.json"
	artifactsDir         = "artifacts"
)

// Result aggregates an evaluation's metrics, artifacts, and named tables.
// Merge order matters: later evaluators overwrite earlier ones on name
// collision.
type Result struct {
	Metrics   map[string]float64
	Artifacts map[string]Artifact
	Tables    map[string]*dataset.Table
}

// NewResult creates an empty result.
func NewResult() *Result {
	return &Result{
		Metrics:   make(map[string]float64),
		Artifacts: make(map[string]Artifact),
		Tables:    make(map[string]*dataset.Table),
	}
}

// Merge folds other into r, last writer wins by name.
func (r *Result) Merge(other *Result) {
	if other == nil {
		return
	}
	for k, v := range other.Metrics {
		r.Metrics[k] = v
	}
	for k, v := range other.Artifacts {
		r.Artifacts[k] = v
	}
	for k, v := range other.Tables {
		r.Tables[k] = v
	}
}

type artifactMeta struct {
	URI       string `json:"uri"`
	ClassName string `json:"class_name"`
}

// Save persists the result: metrics.json, artifacts_metadata.json, and one
// file per artifact under artifacts/.
func (r *Result) Save(dir string) error {
	if err := os.MkdirAll(filepath.Join(dir, artifactsDir), 0o755); err != nil {
		return fmt.Errorf("evaluator: create result dir: %w", err)
	}

	mb, err := json.MarshalIndent(r.Metrics, "", "  ")
	if err != nil {
		return fmt.Errorf("evaluator: marshal metrics: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, metricsFile), mb, 0o644); err != nil {
		return fmt.Errorf("evaluator: write metrics: %w", err)
	}

	meta := make(map[string]artifactMeta, len(r.Artifacts))
	for name, a := range r.Artifacts {
		path := filepath.Join(dir, artifactsDir, name+"."+a.FileExt())
		if err := a.SaveContent(path); err != nil {
			return fmt.Errorf("evaluator: save artifact %q: %w", name, err)
		}
		if s, ok := a.(uriSetter); ok && a.URI() == "" {
			s.setURI(path)
		}
		meta[name] = artifactMeta{URI: a.URI(), ClassName: a.ClassName()}
	}
	ab, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("evaluator: marshal artifact metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, artifactMetadataFile), ab, 0o644); err != nil {
		return fmt.Errorf("evaluator: write artifact metadata: %w", err)
	}
	return nil
}

// LoadResult reads a persisted result back. Metrics and artifact identities
// (uri, class) round-trip exactly; artifact content is re-read from the
// saved files.
func LoadResult(dir string) (*Result, error) {
	out := NewResult()

	mb, err := os.ReadFile(filepath.Join(dir, metricsFile))
	if err != nil {
		return nil, fmt.Errorf("evaluator: read metrics: %w", err)
	}
	if err := json.Unmarshal(mb, &out.Metrics); err != nil {
		return nil, fmt.Errorf("evaluator: parse metrics: %w", err)
	}

	ab, err := os.ReadFile(filepath.Join(dir, artifactMetadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return nil, fmt.Errorf("evaluator: read artifact metadata: %w", err)
	}
	var meta map[string]artifactMeta
	if err := json.Unmarshal(ab, &meta); err != nil {
		return nil, fmt.Errorf("evaluator: parse artifact metadata: %w", err)
	}

	for name, m := range meta {
		art, ok := newArtifactForClass(m.ClassName, m.URI)
		if !ok {
			// Unknown third-party artifact class: keep identity, skip content.
			out.Artifacts[name] = &unknownArtifact{uri: m.URI, class: m.ClassName}
			continue
		}
		path := filepath.Join(dir, artifactsDir, name+"."+art.FileExt())
		if err := art.LoadContent(path); err != nil {
			return nil, fmt.Errorf("evaluator: load artifact %q: %w", name, err)
		}
		out.Artifacts[name] = art
	}
	return out, nil
}

// unknownArtifact preserves the identity of an artifact whose class is not
// registered in this process.
type unknownArtifact struct {
	uri   string
	class string
}

func (a *unknownArtifact) URI() string              { return a.uri }
func (a *unknownArtifact) ClassName() string        { return a.class }
func (a *unknownArtifact) Content() any             { return nil }
func (a *unknownArtifact) FileExt() string          { return "bin" }
func (a *unknownArtifact) SaveContent(string) error { return nil }
func (a *unknownArtifact) LoadContent(string) error { return nil }
