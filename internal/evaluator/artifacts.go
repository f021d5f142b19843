package evaluator

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/stellarlinkco/mltrack/internal/dataset"
)

// Artifact is a named evaluation output with a storage URI, lazily loadable
// content, and a serializable class identity used to reconstruct the right
// artifact type on load.
type Artifact interface {
	URI() string
	ClassName() string
	Content() any
	FileExt() string
	SaveContent(path string) error
	LoadContent(path string) error
}

// Artifact class identities persisted in artifacts_metadata.json.
const (
	classJSONArtifact  = "evaluator.JSONArtifact"
	classTableArtifact = "evaluator.TableArtifact"
	classTextArtifact  = "evaluator.TextArtifact"
)

// uriSetter lets Save stamp the storage location onto artifacts that were
// built without one.
type uriSetter interface {
	setURI(string)
}

// newArtifactForClass reconstructs an empty artifact of the persisted class.
func newArtifactForClass(className, uri string) (Artifact, bool) {
	switch className {
	case classJSONArtifact:
		return &JSONArtifact{Uri: uri}, true
	case classTableArtifact:
		return &TableArtifact{Uri: uri}, true
	case classTextArtifact:
		return &TextArtifact{Uri: uri}, true
	default:
		return nil, false
	}
}

// JSONArtifact stores any JSON-serializable value.
type JSONArtifact struct {
	Uri   string
	Value any
}

func (a *JSONArtifact) URI() string       { return a.Uri }
func (a *JSONArtifact) setURI(u string)   { a.Uri = u }
func (a *JSONArtifact) ClassName() string { return classJSONArtifact }
func (a *JSONArtifact) Content() any      { return a.Value }
func (a *JSONArtifact) FileExt() string   { return "json" }

func (a *JSONArtifact) SaveContent(path string) error {
	b, err := json.MarshalIndent(a.Value, "", "  ")
	if err != nil {
		return fmt.Errorf("evaluator: marshal json artifact: %w", err)
	}
	return os.WriteFile(path, b, 0o644)
}

func (a *JSONArtifact) LoadContent(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("evaluator: read json artifact: %w", err)
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("evaluator: parse json artifact %q: %w", path, err)
	}
	a.Value = v
	return nil
}

// TableArtifact stores a tabular value as CSV with a header row.
type TableArtifact struct {
	Uri   string
	Table *dataset.Table
}

func (a *TableArtifact) URI() string       { return a.Uri }
func (a *TableArtifact) setURI(u string)   { a.Uri = u }
func (a *TableArtifact) ClassName() string { return classTableArtifact }
func (a *TableArtifact) Content() any      { return a.Table }
func (a *TableArtifact) FileExt() string   { return "csv" }

func (a *TableArtifact) SaveContent(path string) error {
	if a.Table == nil {
		return errors.New("evaluator: table artifact has no content")
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("evaluator: create csv artifact: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(a.Table.ColumnNames()); err != nil {
		return fmt.Errorf("evaluator: write csv header: %w", err)
	}
	for i := 0; i < a.Table.NumRows(); i++ {
		row := a.Table.Row(i)
		rec := make([]string, len(row))
		for j, v := range row {
			rec[j] = fmt.Sprintf("%v", v)
		}
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("evaluator: write csv row %d: %w", i, err)
		}
	}
	w.Flush()
	return w.Error()
}

func (a *TableArtifact) LoadContent(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("evaluator: open csv artifact: %w", err)
	}
	defer f.Close()

	recs, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return fmt.Errorf("evaluator: parse csv artifact %q: %w", path, err)
	}
	if len(recs) == 0 {
		a.Table = dataset.MustTable()
		return nil
	}
	header := recs[0]
	cols := make([]dataset.Column, len(header))
	for j, name := range header {
		vals := make([]any, 0, len(recs)-1)
		for _, rec := range recs[1:] {
			vals = append(vals, rec[j])
		}
		cols[j] = dataset.Column{Name: name, Values: vals}
	}
	t, err := dataset.NewTable(cols...)
	if err != nil {
		return fmt.Errorf("evaluator: rebuild csv artifact table: %w", err)
	}
	a.Table = t
	return nil
}

// TextArtifact stores a plain string.
type TextArtifact struct {
	Uri  string
	Text string
}

func (a *TextArtifact) URI() string       { return a.Uri }
func (a *TextArtifact) setURI(u string)   { a.Uri = u }
func (a *TextArtifact) ClassName() string { return classTextArtifact }
func (a *TextArtifact) Content() any      { return a.Text }
func (a *TextArtifact) FileExt() string   { return "txt" }

func (a *TextArtifact) SaveContent(path string) error {
	return os.WriteFile(path, []byte(a.Text), 0o644)
}

func (a *TextArtifact) LoadContent(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("evaluator: read text artifact: %w", err)
	}
	a.Text = string(b)
	return nil
}
