package batch

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/segmentio/parquet-go"
)

// listSeparator joins list columns in CSV reports
const listSeparator = "|"

var csvHeader = []string{
	"document_id", "status", "redacted_fields", "kept_fields",
	"vendor_style", "colors", "sizes", "total_units",
	"units_per_carton", "total_cartons", "prepack_ratio", "error",
}

// Writer persists report rows
type Writer interface {
	Write(row *ReportRow) error
	Close() error
}

// CreateWriter creates path with the writer matching its extension
func CreateWriter(path string) (Writer, error) {
	format, err := DetectFileFormat(path)
	if err != nil {
		return nil, err
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s report: %w", format, err)
	}

	switch format {
	case FormatCSV:
		return newCSVWriter(file)
	case FormatJSON:
		return &jsonWriter{file: file, encoder: json.NewEncoder(file)}, nil
	default:
		return &parquetWriter{file: file, writer: parquet.NewGenericWriter[ReportRow](file)}, nil
	}
}

type csvWriter struct {
	file   *os.File
	writer *csv.Writer
}

func newCSVWriter(file *os.File) (*csvWriter, error) {
	w := &csvWriter{file: file, writer: csv.NewWriter(file)}
	if err := w.writer.Write(csvHeader); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}
	return w, nil
}

func (w *csvWriter) Write(row *ReportRow) error {
	return w.writer.Write([]string{
		row.DocumentID,
		row.Status,
		strings.Join(row.RedactedFields, listSeparator),
		strings.Join(row.KeptFields, listSeparator),
		row.VendorStyle,
		strings.Join(row.Colors, listSeparator),
		strings.Join(row.Sizes, listSeparator),
		row.TotalUnits,
		row.UnitsPerCarton,
		row.TotalCartons,
		row.PrepackRatio,
		row.Error,
	})
}

func (w *csvWriter) Close() error {
	w.writer.Flush()
	if err := w.writer.Error(); err != nil {
		w.file.Close()
		return fmt.Errorf("failed to flush CSV report: %w", err)
	}
	return w.file.Close()
}

type jsonWriter struct {
	file    *os.File
	encoder *json.Encoder
}

func (w *jsonWriter) Write(row *ReportRow) error {
	return w.encoder.Encode(row)
}

func (w *jsonWriter) Close() error { return w.file.Close() }

type parquetWriter struct {
	file   *os.File
	writer *parquet.GenericWriter[ReportRow]
}

func (w *parquetWriter) Write(row *ReportRow) error {
	_, err := w.writer.Write([]ReportRow{*row})
	return err
}

func (w *parquetWriter) Close() error {
	if err := w.writer.Close(); err != nil {
		w.file.Close()
		return fmt.Errorf("failed to finish Parquet report: %w", err)
	}
	return w.file.Close()
}
