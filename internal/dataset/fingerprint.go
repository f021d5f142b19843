package dataset

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"hash"
	"sort"
	"strconv"

	"github.com/stellarlinkco/mltrack/internal/evalerr"
)

// DefaultSampleRows bounds how many leading and trailing rows feed the
// content hash. Sequences longer than twice this fold only the first and
// last DefaultSampleRows elements, so the digest is an identity over a
// sample, not an exact-content hash.
const DefaultSampleRows = 10

// Canonicalizer lets structured cell values supply their own deterministic
// byte representation, so two structurally equal instances hash identically.
type Canonicalizer interface {
	CanonicalBytes() ([]byte, error)
}

// Fingerprinter folds dataset contents into an MD5 digest. MD5 is used as a
// cheap content identity, not for security.
type Fingerprinter struct {
	// SampleRows overrides DefaultSampleRows when positive.
	SampleRows int
}

func (f Fingerprinter) sampleRows() int {
	if f.SampleRows > 0 {
		return f.SampleRows
	}
	return DefaultSampleRows
}

// Sequence folds a 1-D sequence: the element count, then the sampled
// elements in order.
func (f Fingerprinter) Sequence(h hash.Hash, vals []any) error {
	foldInt(h, len(vals))
	for _, i := range sampleIndexes(len(vals), f.sampleRows()) {
		if err := foldCell(h, vals[i]); err != nil {
			return err
		}
	}
	return nil
}

// Rows folds a 2-D row sequence: the row count, then every cell of the
// sampled rows in row-major order. Ragged rows are rejected.
func (f Fingerprinter) Rows(h hash.Hash, rows [][]any) error {
	foldInt(h, len(rows))
	width := -1
	for i, row := range rows {
		if width == -1 {
			width = len(row)
		} else if len(row) != width {
			return evalerr.New(evalerr.KindInvalidArgument,
				"dataset: row %d has length %d, all elements must have the same length (%d)", i, len(row), width)
		}
	}
	for _, i := range sampleIndexes(len(rows), f.sampleRows()) {
		foldInt(h, len(rows[i]))
		for _, v := range rows[i] {
			if err := foldCell(h, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// Table folds a column-oriented frame: row and column counts, then the
// sampled rows' cells in row-major column order. Row labels are excluded.
func (f Fingerprinter) Table(h hash.Hash, t *Table) error {
	if t == nil {
		foldInt(h, 0)
		return nil
	}
	foldInt(h, t.NumRows())
	foldInt(h, t.NumCols())
	for _, i := range sampleIndexes(t.NumRows(), f.sampleRows()) {
		for _, v := range t.Row(i) {
			if err := foldCell(h, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// Fingerprint hashes any supported data representation into a hex digest.
// Supported: *Table, [][]any, [][]float64, []any, []float64, []string, and
// PartitionedFrame (first-RowCap rows only).
func (f Fingerprinter) Fingerprint(data any) (string, error) {
	h := md5.New()
	switch d := data.(type) {
	case *Table:
		if err := f.Table(h, d); err != nil {
			return "", err
		}
	case [][]any:
		if err := f.Rows(h, d); err != nil {
			return "", err
		}
	case [][]float64:
		if err := f.Rows(h, floatRows(d)); err != nil {
			return "", err
		}
	case []any:
		if err := f.Sequence(h, d); err != nil {
			return "", err
		}
	case []float64:
		if err := f.Sequence(h, floatSeq(d)); err != nil {
			return "", err
		}
	case []string:
		if err := f.Sequence(h, stringSeq(d)); err != nil {
			return "", err
		}
	default:
		return "", evalerr.New(evalerr.KindInvalidArgument,
			"dataset: cannot fingerprint data of type %T; want a table, row slice, or sequence", data)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// sampleIndexes returns the element indexes contributing to the digest:
// everything when n <= 2*limit, otherwise the first limit and last limit.
func sampleIndexes(n, limit int) []int {
	out := make([]int, 0, n)
	if n <= 2*limit {
		for i := 0; i < n; i++ {
			out = append(out, i)
		}
		return out
	}
	for i := 0; i < limit; i++ {
		out = append(out, i)
	}
	for i := n - limit; i < n; i++ {
		out = append(out, i)
	}
	return out
}

// cellSep keeps adjacent cell encodings from running together.
const cellSep = 0x1e

func foldInt(h hash.Hash, n int) {
	h.Write(strconv.AppendInt(nil, int64(n), 10))
	h.Write([]byte{cellSep})
}

// foldCell writes one scalar or object cell's canonical bytes. Non-numeric
// and object-typed cells degrade to a deterministic serialization; they
// never fail the hash outright unless their own canonicalization errors.
func foldCell(h hash.Hash, v any) error {
	b, err := canonicalBytes(v)
	if err != nil {
		return err
	}
	h.Write(b)
	h.Write([]byte{cellSep})
	return nil
}

func canonicalBytes(v any) ([]byte, error) {
	switch c := v.(type) {
	case nil:
		return []byte("nil"), nil
	case string:
		return []byte(c), nil
	case bool:
		return strconv.AppendBool(nil, c), nil
	case float64:
		return strconv.AppendFloat(nil, c, 'g', -1, 64), nil
	case float32:
		return strconv.AppendFloat(nil, float64(c), 'g', -1, 64), nil
	case int:
		return strconv.AppendInt(nil, int64(c), 10), nil
	case int8:
		return strconv.AppendInt(nil, int64(c), 10), nil
	case int16:
		return strconv.AppendInt(nil, int64(c), 10), nil
	case int32:
		return strconv.AppendInt(nil, int64(c), 10), nil
	case int64:
		return strconv.AppendInt(nil, c, 10), nil
	case uint:
		return strconv.AppendUint(nil, uint64(c), 10), nil
	case uint8:
		return strconv.AppendUint(nil, uint64(c), 10), nil
	case uint16:
		return strconv.AppendUint(nil, uint64(c), 10), nil
	case uint32:
		return strconv.AppendUint(nil, uint64(c), 10), nil
	case uint64:
		return strconv.AppendUint(nil, c, 10), nil
	case Canonicalizer:
		b, err := c.CanonicalBytes()
		if err != nil {
			return nil, fmt.Errorf("dataset: canonicalize %T cell: %w", v, err)
		}
		return b, nil
	case json.Marshaler:
		b, err := c.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("dataset: marshal %T cell: %w", v, err)
		}
		return b, nil
	case map[string]any:
		return canonicalMap(c)
	case []any:
		var out []byte
		for _, e := range c {
			eb, err := canonicalBytes(e)
			if err != nil {
				return nil, err
			}
			out = append(out, eb...)
			out = append(out, cellSep)
		}
		return out, nil
	default:
		// Last resort for rich cells without their own serialization.
		// json.Marshal sorts map keys, so the result is deterministic.
		b, err := json.Marshal(v)
		if err != nil {
			return []byte(fmt.Sprintf("%v", v)), nil
		}
		return b, nil
	}
}

func canonicalMap(m map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var out []byte
	for _, k := range keys {
		out = append(out, k...)
		out = append(out, '=')
		vb, err := canonicalBytes(m[k])
		if err != nil {
			return nil, err
		}
		out = append(out, vb...)
		out = append(out, cellSep)
	}
	return out, nil
}

func floatSeq(vals []float64) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}

func stringSeq(vals []string) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}

func floatRows(rows [][]float64) [][]any {
	out := make([][]any, len(rows))
	for i, row := range rows {
		out[i] = floatSeq(row)
	}
	return out
}
