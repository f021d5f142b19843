package dataset

import (
	"crypto/md5"
	"encoding/hex"
	"strconv"

	"github.com/stellarlinkco/mltrack/internal/evalerr"
)

// Options configures Dataset construction.
type Options struct {
	// Targets is either a column name (string, tabular data only) or a
	// label vector parallel to the feature rows.
	Targets any
	// Predictions is either a column name (string, tabular data only) or a
	// prediction vector parallel to the feature rows.
	Predictions any
	// FeatureNames overrides the derived feature names. For tabular data the
	// named columns are selected in the given order.
	FeatureNames []string
	// Name identifies the dataset; defaults to the content hash.
	Name string
	// Path records where the data came from, when known.
	Path string
	// SampleRows overrides the fingerprint sampling bound.
	SampleRows int
	// RowCap bounds partitioned-frame retrieval; DefaultRowCap when zero.
	RowCap int
}

// Dataset is an immutable evaluation dataset: a feature table, optional
// parallel labels and predictions, and a content-derived identity.
type Dataset struct {
	features     *Table
	labels       []any
	predictions  []any
	featureNames []string
	name         string
	path         string
	hash         string
	hasTargets   bool
	hasPreds     bool
}

// New constructs a Dataset from any supported representation: an in-memory
// table, a partitioned frame (sampled down to the row cap), a 2-D row slice,
// or a 1-D sequence treated as single-feature rows.
func New(data any, opts Options) (*Dataset, error) {
	if data == nil {
		return nil, evalerr.New(evalerr.KindInvalidArgument, "dataset: the data argument cannot be nil")
	}

	var (
		features *Table
		err      error
	)
	switch d := data.(type) {
	case *Table:
		features = d
	case PartitionedFrame:
		features, err = collectPartitioned(d, opts.RowCap)
		if err != nil {
			return nil, err
		}
	case [][]float64:
		features, err = tableFromRows(floatRows(d))
	case [][]any:
		features, err = tableFromRows(d)
	case []float64:
		features, err = tableFromRows(singleColumn(floatSeq(d)))
	case []string:
		features, err = tableFromRows(singleColumn(stringSeq(d)))
	case []any:
		features, err = tableFromRows(singleColumn(d))
	default:
		return nil, evalerr.New(evalerr.KindInvalidArgument,
			"dataset: unsupported data type %T; want a table, partitioned frame, row slice, or sequence", data)
	}
	if err != nil {
		return nil, err
	}

	ds := &Dataset{path: opts.Path}

	// Split named target/prediction columns out of the feature view before
	// applying feature-name selection.
	if col, ok := opts.Targets.(string); ok {
		vals, found := features.Column(col)
		if !found {
			return nil, evalerr.New(evalerr.KindInvalidArgument,
				"dataset: the data table does not contain the specified targets column %q", col)
		}
		ds.labels = vals
		ds.hasTargets = true
		features = features.Drop(col)
	}
	if col, ok := opts.Predictions.(string); ok {
		vals, found := features.Column(col)
		if !found {
			return nil, evalerr.New(evalerr.KindInvalidArgument,
				"dataset: the data table does not contain the specified predictions column %q", col)
		}
		ds.predictions = vals
		ds.hasPreds = true
		features = features.Drop(col)
	}

	if len(opts.FeatureNames) > 0 {
		if namesMatchColumns(features, opts.FeatureNames) {
			features, err = features.Select(opts.FeatureNames...)
			if err != nil {
				return nil, err
			}
			ds.featureNames = opts.FeatureNames
		} else if len(opts.FeatureNames) == features.NumCols() {
			ds.featureNames = opts.FeatureNames
		} else {
			return nil, evalerr.New(evalerr.KindInvalidArgument,
				"dataset: feature_names has %d entries for %d feature columns", len(opts.FeatureNames), features.NumCols())
		}
	} else if autoNamed(features) {
		ds.featureNames = genFeatureNames(features.NumCols())
	} else {
		ds.featureNames = features.ColumnNames()
	}
	ds.features = features

	if opts.Targets != nil && !ds.hasTargets {
		vals, ok := normalizeVector(opts.Targets)
		if !ok {
			return nil, evalerr.New(evalerr.KindInvalidArgument,
				"dataset: targets must be a column name or a label vector, got %T", opts.Targets)
		}
		if len(vals) != features.NumRows() {
			return nil, evalerr.New(evalerr.KindInvalidArgument,
				"dataset: features example rows must be the same length with labels array (%d rows, %d labels)",
				features.NumRows(), len(vals))
		}
		ds.labels = vals
		ds.hasTargets = true
	}
	if opts.Predictions != nil && !ds.hasPreds {
		vals, ok := normalizeVector(opts.Predictions)
		if !ok {
			return nil, evalerr.New(evalerr.KindInvalidArgument,
				"dataset: predictions must be a column name or a prediction vector, got %T", opts.Predictions)
		}
		if len(vals) != features.NumRows() {
			return nil, evalerr.New(evalerr.KindInvalidArgument,
				"dataset: features example rows must be the same length with predictions array (%d rows, %d predictions)",
				features.NumRows(), len(vals))
		}
		ds.predictions = vals
		ds.hasPreds = true
	}

	fp := Fingerprinter{SampleRows: opts.SampleRows}
	h := md5.New()
	if err := fp.Table(h, ds.features); err != nil {
		return nil, err
	}
	if ds.hasTargets {
		if err := fp.Sequence(h, ds.labels); err != nil {
			return nil, err
		}
	}
	if ds.hasPreds {
		if err := fp.Sequence(h, ds.predictions); err != nil {
			return nil, err
		}
	}
	ds.hash = hex.EncodeToString(h.Sum(nil))

	ds.name = opts.Name
	if ds.name == "" {
		ds.name = ds.hash
	}
	return ds, nil
}

// Features returns the tabular feature view.
func (d *Dataset) Features() *Table { return d.features }

// Labels returns the label vector, or nil when targets were not supplied.
func (d *Dataset) Labels() []any { return d.labels }

// HasTargets reports whether a label vector is present.
func (d *Dataset) HasTargets() bool { return d != nil && d.hasTargets }

// Predictions returns the static prediction vector, or nil.
func (d *Dataset) Predictions() []any { return d.predictions }

// HasPredictions reports whether static predictions are present.
func (d *Dataset) HasPredictions() bool { return d != nil && d.hasPreds }

// FeatureNames returns the ordered feature-name list.
func (d *Dataset) FeatureNames() []string { return d.featureNames }

// Name returns the dataset name (the hash when none was supplied).
func (d *Dataset) Name() string { return d.name }

// Path returns the source path, when known.
func (d *Dataset) Path() string { return d.path }

// Hash returns the hex content digest.
func (d *Dataset) Hash() string { return d.hash }

// Metadata is the per-run provenance record for a dataset.
type Metadata struct {
	Hash  string `json:"hash"`
	Name  string `json:"name"`
	Path  string `json:"path,omitempty"`
	Model string `json:"model,omitempty"`
}

// Metadata returns the {hash, name, path?} view used for run tagging.
func (d *Dataset) Metadata() Metadata {
	return Metadata{Hash: d.hash, Name: d.name, Path: d.path}
}

// tableFromRows builds a one-table feature view from row-major data with
// generated column names, requiring equal row lengths.
func tableFromRows(rows [][]any) (*Table, error) {
	width := 0
	for i, row := range rows {
		if i == 0 {
			width = len(row)
		} else if len(row) != width {
			return nil, evalerr.New(evalerr.KindInvalidArgument,
				"dataset: row %d has length %d, all elements must have the same length (%d)", i, len(row), width)
		}
	}
	names := genFeatureNames(width)
	cols := make([]Column, width)
	for j := 0; j < width; j++ {
		vals := make([]any, len(rows))
		for i := range rows {
			vals[i] = rows[i][j]
		}
		cols[j] = Column{Name: names[j], Values: vals}
	}
	return NewTable(cols...)
}

func singleColumn(vals []any) [][]any {
	rows := make([][]any, len(vals))
	for i, v := range vals {
		rows[i] = []any{v}
	}
	return rows
}

// genFeatureNames produces feature_1..feature_n with zero padding sized to
// the digit count of n (feature_9 for 9 columns, feature_001 for 100).
func genFeatureNames(n int) []string {
	width := len(strconv.Itoa(n))
	out := make([]string, n)
	for i := 0; i < n; i++ {
		num := strconv.Itoa(i + 1)
		for len(num) < width {
			num = "0" + num
		}
		out[i] = "feature_" + num
	}
	return out
}

// autoNamed reports whether t's columns were generated by genFeatureNames,
// meaning names should be regenerated for the final column count.
func autoNamed(t *Table) bool {
	names := t.ColumnNames()
	gen := genFeatureNames(len(names))
	if len(names) != len(gen) {
		return false
	}
	for i := range names {
		if names[i] != gen[i] {
			return false
		}
	}
	return true
}

func namesMatchColumns(t *Table, names []string) bool {
	for _, name := range names {
		if _, ok := t.Column(name); !ok {
			return false
		}
	}
	return true
}

// normalizeVector converts a supported vector representation to []any.
func normalizeVector(v any) ([]any, bool) {
	switch vec := v.(type) {
	case []any:
		return vec, true
	case []float64:
		return floatSeq(vec), true
	case []string:
		return stringSeq(vec), true
	case []int:
		out := make([]any, len(vec))
		for i, e := range vec {
			out[i] = e
		}
		return out, true
	default:
		return nil, false
	}
}
