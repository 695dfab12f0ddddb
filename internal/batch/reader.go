package batch

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/segmentio/parquet-go"
)

// ErrBadRecord marks a record that could not be decoded. Reading may
// continue after it.
var ErrBadRecord = errors.New("bad record")

// maxLineBytes bounds one JSON-lines record
const maxLineBytes = 64 << 20

// Reader yields documents until io.EOF
type Reader interface {
	Read() (*Document, error)
	Close() error
}

// OpenReader opens path with the reader matching its extension
func OpenReader(path string) (Reader, error) {
	format, err := DetectFileFormat(path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s file: %w", format, err)
	}

	var r Reader
	switch format {
	case FormatCSV:
		r, err = newCSVReader(file)
	case FormatJSON:
		r = newJSONReader(file)
	case FormatParquet:
		r, err = newParquetReader(file)
	}
	if err != nil {
		file.Close()
		return nil, err
	}
	return r, nil
}

type csvReader struct {
	file    *os.File
	reader  *csv.Reader
	idCol   int
	textCol int
}

func newCSVReader(file *os.File) (*csvReader, error) {
	reader := csv.NewReader(file)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	r := &csvReader{file: file, reader: reader, idCol: -1, textCol: -1}
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case "document_id":
			r.idCol = i
		case "text":
			r.textCol = i
		}
	}
	if r.textCol < 0 {
		return nil, fmt.Errorf("CSV header has no text column: %v", header)
	}
	return r, nil
}

func (r *csvReader) Read() (*Document, error) {
	record, err := r.reader.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			return nil, fmt.Errorf("%w: %v", ErrBadRecord, err)
		}
		return nil, err
	}

	doc := &Document{Text: record[r.textCol]}
	if r.idCol >= 0 {
		doc.DocumentID = strings.TrimSpace(record[r.idCol])
	}
	return doc, nil
}

func (r *csvReader) Close() error { return r.file.Close() }

type jsonReader struct {
	file    *os.File
	scanner *bufio.Scanner
	line    int
}

func newJSONReader(file *os.File) *jsonReader {
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &jsonReader{file: file, scanner: scanner}
}

func (r *jsonReader) Read() (*Document, error) {
	for r.scanner.Scan() {
		r.line++
		line := strings.TrimSpace(r.scanner.Text())
		if line == "" {
			continue
		}

		var doc Document
		if err := json.Unmarshal([]byte(line), &doc); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrBadRecord, r.line, err)
		}
		return &doc, nil
	}
	if err := r.scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read JSON lines: %w", err)
	}
	return nil, io.EOF
}

func (r *jsonReader) Close() error { return r.file.Close() }

type parquetReader struct {
	file   *os.File
	reader *parquet.Reader
}

func newParquetReader(file *os.File) (*parquetReader, error) {
	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat Parquet file: %w", err)
	}
	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open Parquet file: %w", err)
	}
	return &parquetReader{file: file, reader: parquet.NewReader(pf)}, nil
}

func (r *parquetReader) Read() (*Document, error) {
	var doc Document
	if err := r.reader.Read(&doc); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("failed to read Parquet record: %w", err)
	}
	return &doc, nil
}

func (r *parquetReader) Close() error {
	r.reader.Close()
	return r.file.Close()
}
