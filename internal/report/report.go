// Package report writes batch extraction results as CSV or XLSX.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ProstoyVadila/ml-service/internal/domain"
	"github.com/ProstoyVadila/ml-service/internal/service"
)

// columns defines the header row.
var columns = []string{
	"File",
	"OCR Engine",
	"OCR Confidence",
	"Source",
	"Confidence",
	"Date",
	"Mileage",
	"Price",
	"Works",
	"Materials",
	"Error",
}

// Row is one image in a report.
type Row struct {
	File          string
	Engine        string
	OCRConfidence float64
	Source        string
	Confidence    float64
	Date          string
	Mileage       string
	Price         string
	Works         string
	Materials     string
	Error         string
}

// FromBatch converts batch results to rows, keeping their order.
func FromBatch(results []service.BatchResult) []Row {
	rows := make([]Row, len(results))
	for i, r := range results {
		row := Row{File: r.Key}
		if r.Err != nil {
			row.Error = r.Err.Error()
		}
		if r.ImageExtraction != nil {
			ex := r.Extraction
			row.Engine = r.OCR.Engine
			row.OCRConfidence = r.OCR.Confidence
			row.Source = ex.Source.String()
			row.Confidence = ex.Confidence
			row.Date = ex.Value(domain.FieldDate)
			row.Mileage = ex.Value(domain.FieldMileage)
			row.Price = ex.Value(domain.FieldPrice)
			row.Works = ex.Value(domain.FieldWorks)
			row.Materials = ex.Value(domain.FieldMaterials)
			if ex.Err != nil && row.Error == "" {
				row.Error = ex.Err.Error()
			}
		}
		rows[i] = row
	}
	return rows
}

func (r Row) strings() []string {
	return []string{
		r.File,
		r.Engine,
		formatConfidence(r.OCRConfidence),
		r.Source,
		formatConfidence(r.Confidence),
		r.Date,
		r.Mileage,
		r.Price,
		r.Works,
		r.Materials,
		r.Error,
	}
}

func formatConfidence(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// WriteFile writes rows to path, picking the format from its extension.
func WriteFile(path string, rows []Row) (err error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".csv" && ext != ".xlsx" {
		return fmt.Errorf("unsupported report format %q; allowed: .csv, .xlsx", ext)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if ext == ".csv" {
		return WriteCSV(f, rows)
	}
	return WriteXLSX(f, rows)
}
