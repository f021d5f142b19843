package dataset

import "github.com/stellarlinkco/mltrack/internal/evalerr"

// DefaultRowCap bounds how many rows are retrieved from a partitioned frame
// before hashing and evaluation. Hashing a partitioned frame is therefore an
// identity over its first rows, not over the full distributed contents.
const DefaultRowCap = 10000

// PartitionedFrame is the narrow view of a distributed, partitioned dataset.
// Implementations retrieve at most n rows; they never materialize the whole
// frame.
type PartitionedFrame interface {
	ColumnNames() []string
	// Take collects the first n rows into an in-memory table.
	Take(n int) (*Table, error)
}

// collectPartitioned materializes the leading rows of a partitioned frame,
// bounded by rowCap (DefaultRowCap when rowCap is not positive).
func collectPartitioned(f PartitionedFrame, rowCap int) (*Table, error) {
	if f == nil {
		return nil, evalerr.New(evalerr.KindInvalidArgument, "dataset: nil partitioned frame")
	}
	if rowCap <= 0 {
		rowCap = DefaultRowCap
	}
	t, err := f.Take(rowCap)
	if err != nil {
		return nil, evalerr.Wrap(evalerr.KindInvalidArgument, err, "dataset: collect first %d partitioned rows", rowCap)
	}
	if t == nil {
		return nil, evalerr.New(evalerr.KindInvalidArgument, "dataset: partitioned frame returned no table")
	}
	return t, nil
}

// SlicePartitionedFrame adapts an in-memory table to the PartitionedFrame
// interface, for tests and local runs.
type SlicePartitionedFrame struct {
	Table *Table
}

func (s SlicePartitionedFrame) ColumnNames() []string {
	if s.Table == nil {
		return nil
	}
	return s.Table.ColumnNames()
}

func (s SlicePartitionedFrame) Take(n int) (*Table, error) {
	if s.Table == nil {
		return nil, evalerr.New(evalerr.KindInvalidArgument, "dataset: nil backing table")
	}
	return s.Table.Head(n), nil
}
