// Package report measures framework effectiveness against the ground
// truth recorded in the results CSV. For the binary comparison the
// Suspicious and Malicious verdicts both count as the positive class.
package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"smishgrade/grading"
)

// Metrics is the confusion matrix over graded URLs. Rows with an error
// verdict carry no classification and are counted separately.
type Metrics struct {
	TruePositives  int
	FalsePositives int
	TrueNegatives  int
	FalseNegatives int
	ParseErrors    int
}

// Total is the number of URLs that received a real verdict.
func (m Metrics) Total() int {
	return m.TruePositives + m.FalsePositives + m.TrueNegatives + m.FalseNegatives
}

// Accuracy is the share of correctly classified URLs.
func (m Metrics) Accuracy() float64 {
	if m.Total() == 0 {
		return 0
	}
	return float64(m.TruePositives+m.TrueNegatives) / float64(m.Total())
}

// Precision is TP / (TP + FP).
func (m Metrics) Precision() float64 {
	if m.TruePositives+m.FalsePositives == 0 {
		return 0
	}
	return float64(m.TruePositives) / float64(m.TruePositives+m.FalsePositives)
}

// Recall is TP / (TP + FN).
func (m Metrics) Recall() float64 {
	if m.TruePositives+m.FalseNegatives == 0 {
		return 0
	}
	return float64(m.TruePositives) / float64(m.TruePositives+m.FalseNegatives)
}

// F1 is the harmonic mean of precision and recall.
func (m Metrics) F1() float64 {
	p, r := m.Precision(), m.Recall()
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}

// FromCSV folds a results file into a confusion matrix.
func FromCSV(path string) (Metrics, error) {
	f, err := os.Open(path)
	if err != nil {
		return Metrics{}, fmt.Errorf("failed to open results file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	if _, err := r.Read(); err != nil { // header
		return Metrics{}, fmt.Errorf("failed to read results header: %w", err)
	}

	var m Metrics
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if errors.Is(err, csv.ErrFieldCount) {
			// A mangled row should not sink the rest of the report.
			continue
		}
		if err != nil {
			return Metrics{}, fmt.Errorf("failed to read results row: %w", err)
		}

		truth := row[1]
		verdict := grading.Verdict(row[3])
		if verdict == grading.VerdictParseError || verdict == grading.VerdictNoHostname {
			m.ParseErrors++
			continue
		}

		positive := verdict == grading.VerdictSuspicious || verdict == grading.VerdictMalicious
		switch {
		case truth == "malicious" && positive:
			m.TruePositives++
		case truth == "malicious":
			m.FalseNegatives++
		case positive:
			m.FalsePositives++
		default:
			m.TrueNegatives++
		}
	}
	return m, nil
}

// WriteXLSX writes the confusion matrix and summary metrics to an Excel
// workbook at path.
func WriteXLSX(m Metrics, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Summary"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}

	rows := [][]interface{}{
		{"Metric", "Value"},
		{"URLs graded", m.Total()},
		{"Parse errors", m.ParseErrors},
		{"True positives", m.TruePositives},
		{"False positives", m.FalsePositives},
		{"True negatives", m.TrueNegatives},
		{"False negatives", m.FalseNegatives},
		{"Accuracy", m.Accuracy()},
		{"Precision", m.Precision()},
		{"Recall", m.Recall()},
		{"F1", m.F1()},
	}
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("failed to build report: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return fmt.Errorf("failed to build report: %w", err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// Run computes metrics for the results at csvPath, logs the summary and
// writes the workbook to xlsxPath.
func Run(csvPath, xlsxPath string) error {
	m, err := FromCSV(csvPath)
	if err != nil {
		return err
	}
	log.Info().
		Int("graded", m.Total()).
		Int("parse_errors", m.ParseErrors).
		Int("true_positives", m.TruePositives).
		Int("false_positives", m.FalsePositives).
		Int("true_negatives", m.TrueNegatives).
		Int("false_negatives", m.FalseNegatives).
		Float64("accuracy", m.Accuracy()).
		Float64("precision", m.Precision()).
		Float64("recall", m.Recall()).
		Float64("f1", m.F1()).
		Msg("performance summary")
	if err := WriteXLSX(m, xlsxPath); err != nil {
		return err
	}
	log.Info().Str("file", xlsxPath).Msg("report written")
	return nil
}
