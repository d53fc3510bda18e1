package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// readCSV reads one sample per row from column col (0-based). A first row
// that does not parse is treated as a header; blank rows are skipped.
func readCSV(r io.Reader, col int) ([]float64, error) {
	if col < 0 {
		return nil, fmt.Errorf("csv: negative column %d", col)
	}
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	var values []float64
	for row := 0; ; row++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv row %d: %w", row+1, err)
		}
		if len(rec) == 0 || (len(rec) == 1 && strings.TrimSpace(rec[0]) == "") {
			continue
		}
		if col >= len(rec) {
			return nil, fmt.Errorf("csv row %d: no column %d", row+1, col)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[col]), 64)
		if err != nil {
			if row == 0 {
				continue
			}
			return nil, fmt.Errorf("csv row %d: %w", row+1, err)
		}
		values = append(values, v)
	}
	return values, nil
}
