// Package textextract turns uploaded packing lists into plain text.
package textextract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/raaihank/packlist-sanitizer/internal/logger"
)

// PageBreak separates the pages of a multi-page document.
const PageBreak = "\n--- PAGE BREAK ---\n"

var (
	// ErrUnsupportedFormat is returned for files that are neither PDF nor text.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrNoText is returned when a file yields no text at all.
	ErrNoText = errors.New("no text could be extracted")
)

// Config configures the extractor
type Config struct {
	Pdftotext string        // binary name or absolute path; if empty -> "pdftotext"
	Timeout   time.Duration // per document; 0 = no limit
	TempDir   string        // where uploads are staged; empty = os.TempDir()
}

// Result is the text of one document
type Result struct {
	Text     string
	Pages    int
	Method   string // "pdf-text" | "plain-text"
	Duration time.Duration
}

// Extractor picks an extraction strategy by file extension.
type Extractor struct {
	cfg    Config
	runner Runner
	logger *logger.Logger
}

// New creates an extractor that shells out to pdftotext.
func New(cfg Config, log *logger.Logger) *Extractor {
	return NewWithRunner(cfg, execRunner{logger: log}, log)
}

// NewWithRunner creates an extractor with a custom command runner.
func NewWithRunner(cfg Config, runner Runner, log *logger.Logger) *Extractor {
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	return &Extractor{cfg: cfg, runner: runner, logger: log}
}

// Supported reports whether filename has an extension Extract accepts.
func Supported(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf", ".txt":
		return true
	}
	return false
}

// ExtractFile extracts the text of the file at path.
func (e *Extractor) ExtractFile(ctx context.Context, path string) (Result, error) {
	start := time.Now()
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	var (
		res Result
		err error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".pdf":
		res, err = e.extractPDF(ctx, path)
	case ".txt":
		res, err = extractPlain(path)
	default:
		return Result{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return Result{}, err
	}

	res.Duration = time.Since(start)
	if strings.TrimSpace(res.Text) == "" {
		return res, ErrNoText
	}

	e.logger.Debug("text extracted",
		zap.String("method", res.Method),
		zap.Int("pages", res.Pages),
		zap.Int("chars", utf8.RuneCountInString(res.Text)),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}

// Extract writes data to a private temp file named like filename and
// extracts it. The temp file is removed before returning.
func (e *Extractor) Extract(ctx context.Context, filename string, data []byte) (Result, error) {
	if !Supported(filename) {
		return Result{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(filename))
	}

	f, err := os.CreateTemp(e.cfg.TempDir, "packlist-*"+strings.ToLower(filepath.Ext(filename)))
	if err != nil {
		return Result{}, fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err := os.Remove(f.Name()); err != nil {
			e.logger.Warn("failed to remove temp file", zap.Error(err))
		}
	}()

	if _, err := f.Write(data); err != nil {
		f.Close()
		return Result{}, fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return Result{}, fmt.Errorf("close temp file: %w", err)
	}

	return e.ExtractFile(ctx, f.Name())
}

func (e *Extractor) extractPDF(ctx context.Context, path string) (Result, error) {
	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return Result{}, fmt.Errorf("pdftotext: %w: %s", err, truncate(strings.TrimSpace(string(errb)), 512))
	}

	text, pages := JoinPages(string(out))
	return Result{Text: text, Pages: pages, Method: "pdf-text"}, nil
}

func extractPlain(path string) (Result, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("read text file: %w", err)
	}
	if !utf8.Valid(b) {
		b = []byte(strings.ToValidUTF8(string(b), "�"))
	}
	return Result{Text: string(b), Pages: 1, Method: "plain-text"}, nil
}

// JoinPages splits pdftotext output on form feeds and re-joins the pages
// that carry text, each followed by PageBreak.
func JoinPages(raw string) (string, int) {
	var b strings.Builder
	pages := 0
	for _, page := range strings.Split(raw, "\f") {
		if strings.TrimSpace(page) == "" {
			continue
		}
		b.WriteString(page)
		b.WriteString(PageBreak)
		pages++
	}
	return b.String(), pages
}
