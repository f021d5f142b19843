package dataset

import (
	"strings"
	"testing"
)

func seq(vals ...int) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}

func rangeSeq(from, to int) []any {
	out := make([]any, 0, to-from)
	for i := from; i < to; i++ {
		out = append(out, i)
	}
	return out
}

func mustFingerprint(t *testing.T, f Fingerprinter, data any) string {
	t.Helper()
	got, err := f.Fingerprint(data)
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	return got
}

func TestFingerprint_Deterministic(t *testing.T) {
	t.Parallel()

	var f Fingerprinter
	data := seq(1, 2, 3)
	first := mustFingerprint(t, f, data)
	second := mustFingerprint(t, f, data)
	if first != second {
		t.Fatalf("digest not stable: %q vs %q", first, second)
	}
	if len(first) != 32 {
		t.Fatalf("digest length: got %d want 32", len(first))
	}
}

func TestFingerprint_SamplesLongSequences(t *testing.T) {
	t.Parallel()

	var f Fingerprinter

	// 21 elements: only the first 10 and last 10 are folded, so the middle
	// element is invisible to the digest.
	a := append(append(rangeSeq(0, 10), 99), rangeSeq(10, 20)...)
	b := append(append(rangeSeq(0, 10), 100), rangeSeq(10, 20)...)
	if mustFingerprint(t, f, a) != mustFingerprint(t, f, b) {
		t.Fatalf("middle element changed the digest of a sampled sequence")
	}

	// A sampled element changing must change the digest.
	c := append([]any{}, a...)
	c[0] = -1
	if mustFingerprint(t, f, a) == mustFingerprint(t, f, c) {
		t.Fatalf("head element change did not change the digest")
	}

	// The count is folded even when the contents sample identically.
	d := append(append([]any{}, a...), 20)
	if mustFingerprint(t, f, a) == mustFingerprint(t, f, d) {
		t.Fatalf("length change did not change the digest")
	}
}

func TestFingerprint_DistinctVariants(t *testing.T) {
	t.Parallel()

	var f Fingerprinter
	inputs := []any{
		rangeSeq(0, 20),
		append(rangeSeq(0, 19), 99),
		rangeSeq(1, 21),
		seq(1, 2, 3),
	}
	seen := make(map[string]int)
	for i, in := range inputs {
		seen[mustFingerprint(t, f, in)] = i
	}
	if len(seen) != len(inputs) {
		t.Fatalf("distinct inputs within the sample window collided: %d digests for %d inputs", len(seen), len(inputs))
	}
}

func TestFingerprint_SampleRowsOverride(t *testing.T) {
	t.Parallel()

	f := Fingerprinter{SampleRows: 2}
	a := seq(1, 2, 0, 3, 4)
	b := seq(1, 2, 9, 3, 4)
	if mustFingerprint(t, f, a) != mustFingerprint(t, f, b) {
		t.Fatalf("middle element visible with SampleRows=2")
	}
	if mustFingerprint(t, f, a) == mustFingerprint(t, Fingerprinter{}, a) {
		t.Fatalf("sampling bound not part of the fold behavior")
	}
}

func TestFingerprint_RaggedRows(t *testing.T) {
	t.Parallel()

	var f Fingerprinter
	_, err := f.Fingerprint([][]any{{1, 2}, {3}})
	if err == nil {
		t.Fatalf("expected error for ragged rows")
	}
	if !strings.Contains(err.Error(), "all elements must have the same length") {
		t.Fatalf("error: %v", err)
	}
}

func TestFingerprint_TableIgnoresRowLabels(t *testing.T) {
	t.Parallel()

	var f Fingerprinter
	a := MustTable(Column{Name: "x", Values: seq(1, 2, 3)})
	b := MustTable(Column{Name: "x", Values: seq(1, 2, 3)})
	b.Labels = []any{"r1", "r2", "r3"}

	if mustFingerprint(t, f, a) != mustFingerprint(t, f, b) {
		t.Fatalf("row labels leaked into the digest")
	}
}

func TestFingerprint_StructuredCells(t *testing.T) {
	t.Parallel()

	var f Fingerprinter
	a := []any{map[string]any{"b": 2, "a": 1}}
	b := []any{map[string]any{"a": 1, "b": 2}}
	if mustFingerprint(t, f, a) != mustFingerprint(t, f, b) {
		t.Fatalf("map key order changed the digest")
	}

	c := []any{map[string]any{"a": 1, "b": 3}}
	if mustFingerprint(t, f, a) == mustFingerprint(t, f, c) {
		t.Fatalf("map value change did not change the digest")
	}
}

func TestFingerprint_UnsupportedType(t *testing.T) {
	t.Parallel()

	var f Fingerprinter
	if _, err := f.Fingerprint(42); err == nil {
		t.Fatalf("expected error for unsupported type")
	}
}
