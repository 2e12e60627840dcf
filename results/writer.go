// Package results appends graded URLs to the output CSV.
package results

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"smishgrade/grading"
)

// Header is the column layout of the results file.
var Header = []string{"URL", "Ground_Truth", "Score", "Verdict", "Heuristics_Found", "Domain_Age_Days"}

// Writer appends one row per graded URL. The header row is written only
// when the file is new or empty, so interrupted runs can append to the
// same file.
type Writer struct {
	file *os.File
	csv  *csv.Writer
}

// Open opens (or creates) the results file for appending.
func Open(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open results file: %w", err)
	}
	w := &Writer{file: f, csv: csv.NewWriter(f)}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat results file: %w", err)
	}
	if info.Size() == 0 {
		if err := w.writeRow(Header); err != nil {
			f.Close()
			return nil, err
		}
	}
	return w, nil
}

// Write records one graded URL under the file's ground-truth label.
// Rows are flushed immediately so every completed URL is on disk.
func (w *Writer) Write(groundTruth string, r grading.Result) error {
	heuristics := make([]string, len(r.Heuristics))
	for i, h := range r.Heuristics {
		heuristics[i] = string(h)
	}
	return w.writeRow([]string{
		r.URL,
		groundTruth,
		strconv.Itoa(r.Score),
		string(r.Verdict),
		strings.Join(heuristics, "|"),
		strconv.Itoa(r.AgeDays),
	})
}

// Close closes the underlying file.
func (w *Writer) Close() error {
	return w.file.Close()
}

func (w *Writer) writeRow(row []string) error {
	w.csv.Write(row)
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return fmt.Errorf("failed to write results row: %w", err)
	}
	return nil
}
