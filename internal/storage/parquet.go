package storage

import (
	"bytes"
	"fmt"

	"github.com/parquet-go/parquet-go"
)

// EncodeParquet serializes rows into a parquet file in memory. Schemas are
// derived from the row type's parquet struct tags. An empty slice still
// produces a valid zero-row file so every published run carries all four
// tables.
func EncodeParquet[T any](rows []T) ([]byte, error) {
	var buf bytes.Buffer

	w := parquet.NewGenericWriter[T](&buf,
		parquet.Compression(&parquet.Zstd),
	)

	if len(rows) > 0 {
		if _, err := w.Write(rows); err != nil {
			return nil, fmt.Errorf("write parquet rows: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close parquet writer: %w", err)
	}

	return buf.Bytes(), nil
}

// DecodeParquet reads all rows from an in-memory parquet file.
func DecodeParquet[T any](data []byte) ([]T, error) {
	r := parquet.NewGenericReader[T](bytes.NewReader(data))
	defer r.Close()

	n := r.NumRows()
	if n == 0 {
		return nil, nil
	}

	rows := make([]T, n)
	read := 0
	for read < int(n) {
		k, err := r.Read(rows[read:])
		read += k
		if err != nil {
			if read == int(n) {
				break
			}
			return nil, fmt.Errorf("read parquet rows: %w", err)
		}
	}
	return rows[:read], nil
}
