// Package batch sanitizes whole datasets of packing list texts offline.
package batch

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Document is one input record
type Document struct {
	DocumentID string `csv:"document_id" parquet:"document_id" json:"document_id"`
	Text       string `csv:"text" parquet:"text" json:"text"`
}

// Report statuses
const (
	StatusOK      = "ok"
	StatusBlocked = "blocked"
)

// ReportRow is the outcome for one document. Blocked rows carry no facts.
type ReportRow struct {
	DocumentID     string   `parquet:"document_id" json:"document_id"`
	Status         string   `parquet:"status" json:"status"`
	RedactedFields []string `parquet:"redacted_fields" json:"redacted_fields"`
	KeptFields     []string `parquet:"kept_fields" json:"kept_fields"`
	VendorStyle    string   `parquet:"vendor_style" json:"vendor_style"`
	Colors         []string `parquet:"colors" json:"colors"`
	Sizes          []string `parquet:"sizes" json:"sizes"`
	TotalUnits     string   `parquet:"total_units" json:"total_units"`
	UnitsPerCarton string   `parquet:"units_per_carton" json:"units_per_carton"`
	TotalCartons   string   `parquet:"total_cartons" json:"total_cartons"`
	PrepackRatio   string   `parquet:"prepack_ratio" json:"prepack_ratio"`
	Error          string   `parquet:"error" json:"error,omitempty"`
}

// Result summarizes a processed dataset
type Result struct {
	TotalRecords int64         `json:"total_records"`
	OK           int64         `json:"ok"`
	Blocked      int64         `json:"blocked"`
	Skipped      int64         `json:"skipped"`
	Duration     time.Duration `json:"duration"`
	Errors       []string      `json:"errors,omitempty"`
}

// Config contains batch pipeline configuration
type Config struct {
	Workers        int `yaml:"workers" mapstructure:"workers"`                 // 4
	ProgressReport int `yaml:"progress_report" mapstructure:"progress_report"` // 1000
	MaxTextBytes   int `yaml:"max_text_bytes" mapstructure:"max_text_bytes"`   // 0 = unlimited
}

// ProcessingStats tracks real-time processing statistics
type ProcessingStats struct {
	StartTime      time.Time `json:"start_time"`
	RecordsRead    int64     `json:"records_read"`
	RecordsWritten int64     `json:"records_written"`
	ProcessingRate float64   `json:"processing_rate"` // records per second
}

// FileFormat represents supported file formats
type FileFormat string

const (
	FormatCSV     FileFormat = "csv"
	FormatParquet FileFormat = "parquet"
	FormatJSON    FileFormat = "json"
)

// DetectFileFormat detects file format from extension
func DetectFileFormat(filename string) (FileFormat, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return FormatCSV, nil
	case ".parquet":
		return FormatParquet, nil
	case ".json", ".jsonl", ".ndjson":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported file format: %q", filepath.Ext(filename))
	}
}
