package orbits

import (
	"bytes"
	"encoding/gob"
)

// Table is a typed, append-accumulated collection. Rows are stored as a list
// of blocks: every Concat appends the other table's blocks without copying,
// so repeated incremental concatenation stays cheap. A table with more than
// one block is fragmented; Defragment copies everything back into a single
// contiguous block. Merge cost across a long run of concatenations stays
// linear as long as callers defragment when Fragmented reports true.
type Table[T any] struct {
	blocks [][]T
}

// FromRows builds a single-block table from rows. The slice is retained.
func FromRows[T any](rows []T) Table[T] {
	if len(rows) == 0 {
		return Table[T]{}
	}
	return Table[T]{blocks: [][]T{rows}}
}

// Len returns the total row count across all blocks.
func (t *Table[T]) Len() int {
	n := 0
	for _, b := range t.blocks {
		n += len(b)
	}
	return n
}

// Concat appends the other table's blocks to this one. The other table's
// blocks are shared, not copied; callers must not mutate rows afterwards.
func (t *Table[T]) Concat(other *Table[T]) {
	for _, b := range other.blocks {
		if len(b) > 0 {
			t.blocks = append(t.blocks, b)
		}
	}
}

// Append adds rows as a new block.
func (t *Table[T]) Append(rows ...T) {
	if len(rows) > 0 {
		t.blocks = append(t.blocks, rows)
	}
}

// Fragmented reports whether the table's storage is split across more than
// one block.
func (t *Table[T]) Fragmented() bool {
	return len(t.blocks) > 1
}

// Defragment compacts the table back to a single contiguous block.
func (t *Table[T]) Defragment() {
	if !t.Fragmented() {
		return
	}
	flat := make([]T, 0, t.Len())
	for _, b := range t.blocks {
		flat = append(flat, b...)
	}
	t.blocks = [][]T{flat}
}

// Rows returns all rows in block order. When the table holds a single block
// the underlying slice is returned directly; callers must treat it as
// read-only.
func (t *Table[T]) Rows() []T {
	if len(t.blocks) == 0 {
		return []T{}
	}
	if len(t.blocks) == 1 {
		return t.blocks[0]
	}
	flat := make([]T, 0, t.Len())
	for _, b := range t.blocks {
		flat = append(flat, b...)
	}
	return flat
}

// GobEncode serializes the table as its flattened rows.
func (t Table[T]) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(t.Rows()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GobDecode restores a table from flattened rows.
func (t *Table[T]) GobDecode(data []byte) error {
	var rows []T
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&rows); err != nil {
		return err
	}
	*t = FromRows(rows)
	return nil
}
