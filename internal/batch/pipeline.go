package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/raaihank/packlist-sanitizer/internal/audit"
	"github.com/raaihank/packlist-sanitizer/internal/guard"
	"github.com/raaihank/packlist-sanitizer/internal/logger"
	"github.com/raaihank/packlist-sanitizer/internal/sanitizer"
)

// withheldError is the only detail a blocked row carries
const withheldError = "withheld: confidential data could not be safely removed"

// maxErrors bounds Result.Errors
const maxErrors = 100

type job struct {
	index int
	doc   *Document
}

type outcome struct {
	index int
	row   *ReportRow
	start time.Time
}

// Pipeline sanitizes datasets with a pool of workers
type Pipeline struct {
	sanitizer *sanitizer.Sanitizer
	recorder  audit.Recorder
	config    *Config
	logger    *logger.Logger
	stats     *ProcessingStats
	mu        sync.RWMutex
}

// NewPipeline creates a new batch pipeline. A nil recorder disables auditing.
func NewPipeline(s *sanitizer.Sanitizer, recorder audit.Recorder, config *Config, log *logger.Logger) *Pipeline {
	if recorder == nil {
		recorder = audit.Noop{}
	}
	cfg := *config
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.ProgressReport <= 0 {
		cfg.ProgressReport = 1000
	}
	return &Pipeline{
		sanitizer: s,
		recorder:  recorder,
		config:    &cfg,
		logger:    log.WithComponent("batch"),
		stats:     &ProcessingStats{StartTime: time.Now()},
	}
}

// ProcessFile sanitizes the dataset at inputPath into a report at outputPath
func (p *Pipeline) ProcessFile(ctx context.Context, inputPath, outputPath string) (*Result, error) {
	p.logger.Info("Starting batch pipeline",
		zap.String("input", inputPath),
		zap.String("output", outputPath),
		zap.Int("workers", p.config.Workers))

	reader, err := OpenReader(inputPath)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	writer, err := CreateWriter(outputPath)
	if err != nil {
		return nil, err
	}

	result, err := p.Process(ctx, reader, writer)
	if cerr := writer.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return result, err
}

// Process reads every document from reader and writes one row per
// document to writer, in input order.
func (p *Pipeline) Process(ctx context.Context, reader Reader, writer Writer) (*Result, error) {
	start := time.Now()
	p.resetStats()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	result := &Result{}
	jobs := make(chan job, p.config.Workers*2)
	outcomes := make(chan outcome, p.config.Workers*2)

	var readErr error
	go func() {
		defer close(jobs)
		readErr = p.produce(ctx, reader, jobs, result)
	}()

	var wg sync.WaitGroup
	for i := 0; i < p.config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.work(ctx, jobs, outcomes)
		}()
	}
	go func() {
		wg.Wait()
		close(outcomes)
	}()

	// Rows come back out of order; hold them until their turn.
	pending := make(map[int]*ReportRow)
	next := 0
	var writeErr error
	for o := range outcomes {
		p.record(ctx, o)
		pending[o.index] = o.row
		for row, ok := pending[next]; ok; row, ok = pending[next] {
			delete(pending, next)
			next++
			if writeErr != nil {
				continue
			}
			if err := writer.Write(row); err != nil {
				writeErr = fmt.Errorf("failed to write report row: %w", err)
				cancel()
				continue
			}
			p.count(result, row)
		}
	}

	result.Duration = time.Since(start)

	p.logger.Info("Batch pipeline completed",
		zap.Int64("total_records", result.TotalRecords),
		zap.Int64("ok", result.OK),
		zap.Int64("blocked", result.Blocked),
		zap.Int64("skipped", result.Skipped),
		zap.Duration("total_duration", result.Duration))

	if writeErr != nil {
		return result, writeErr
	}
	if readErr != nil {
		return result, readErr
	}
	return result, ctx.Err()
}

// produce runs on its own goroutine; result.Skipped and result.Errors are
// only touched here until jobs is closed.
func (p *Pipeline) produce(ctx context.Context, reader Reader, jobs chan<- job, result *Result) error {
	index := 0
	for {
		doc, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			if errors.Is(err, ErrBadRecord) {
				p.logger.Warn("Skipping unreadable record", zap.Error(err))
				result.Skipped++
				if len(result.Errors) < maxErrors {
					result.Errors = append(result.Errors, err.Error())
				}
				continue
			}
			return fmt.Errorf("failed to read dataset: %w", err)
		}

		if doc.DocumentID == "" {
			doc.DocumentID = fmt.Sprintf("row-%d", index+1)
		}
		if p.config.MaxTextBytes > 0 && len(doc.Text) > p.config.MaxTextBytes {
			p.logger.Warn("Skipping oversized record",
				zap.String("document_id", doc.DocumentID),
				zap.Int("length", len(doc.Text)))
			result.Skipped++
			continue
		}

		p.mu.Lock()
		p.stats.RecordsRead++
		p.mu.Unlock()

		select {
		case jobs <- job{index: index, doc: doc}:
			index++
		case <-ctx.Done():
			return nil
		}
	}
}

func (p *Pipeline) work(ctx context.Context, jobs <-chan job, outcomes chan<- outcome) {
	for j := range jobs {
		started := time.Now()
		o := outcome{index: j.index, row: p.sanitize(j.doc), start: started}
		select {
		case outcomes <- o:
		case <-ctx.Done():
			// keep draining so the producer can exit
		}
	}
}

func (p *Pipeline) sanitize(doc *Document) *ReportRow {
	res, err := p.sanitizer.Sanitize(doc.Text)
	if err != nil {
		if !errors.Is(err, guard.ErrLeakageDetected) {
			p.logger.Error("Unexpected sanitize error", zap.String("document_id", doc.DocumentID), zap.Error(err))
		}
		return &ReportRow{
			DocumentID:     doc.DocumentID,
			Status:         StatusBlocked,
			RedactedFields: []string{},
			KeptFields:     []string{},
			Colors:         []string{},
			Sizes:          []string{},
			Error:          withheldError,
		}
	}

	f := res.Facts
	return &ReportRow{
		DocumentID:     doc.DocumentID,
		Status:         StatusOK,
		RedactedFields: res.Redacted,
		KeptFields:     res.Kept,
		VendorStyle:    f.VendorStyle,
		Colors:         nonNil(f.Colors),
		Sizes:          nonNil(f.Sizes),
		TotalUnits:     f.TotalUnits,
		UnitsPerCarton: f.UnitsPerCarton,
		TotalCartons:   f.TotalCartons,
		PrepackRatio:   f.PrepackRatio,
	}
}

func (p *Pipeline) record(ctx context.Context, o outcome) {
	status := audit.StatusOK
	if o.row.Status == StatusBlocked {
		status = audit.StatusBlocked
	}
	err := p.recorder.Record(ctx, &audit.Job{
		Source:         "batch",
		InternalPO:     o.row.DocumentID,
		Status:         status,
		RedactedFields: o.row.RedactedFields,
		KeptFields:     o.row.KeptFields,
		Pages:          1,
		DurationMs:     time.Since(o.start).Milliseconds(),
	})
	if err != nil {
		p.logger.Warn("Failed to record audit job", zap.String("document_id", o.row.DocumentID), zap.Error(err))
	}
}

func (p *Pipeline) count(result *Result, row *ReportRow) {
	result.TotalRecords++
	if row.Status == StatusBlocked {
		result.Blocked++
	} else {
		result.OK++
	}

	p.mu.Lock()
	p.stats.RecordsWritten++
	if elapsed := time.Since(p.stats.StartTime).Seconds(); elapsed > 0 {
		p.stats.ProcessingRate = float64(p.stats.RecordsWritten) / elapsed
	}
	p.mu.Unlock()

	if result.TotalRecords%int64(p.config.ProgressReport) == 0 {
		p.reportProgress(result)
	}
}

// reportProgress reports current processing progress
func (p *Pipeline) reportProgress(result *Result) {
	stats := p.GetStats()
	p.logger.Info("Processing progress",
		zap.Int64("records_processed", result.TotalRecords),
		zap.Int64("records_ok", result.OK),
		zap.Int64("records_blocked", result.Blocked),
		zap.Float64("rate_per_sec", stats.ProcessingRate),
		zap.Duration("elapsed", time.Since(stats.StartTime)))
}

// resetStats resets processing statistics
func (p *Pipeline) resetStats() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats = &ProcessingStats{
		StartTime: time.Now(),
	}
}

// GetStats returns current processing statistics
func (p *Pipeline) GetStats() *ProcessingStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	stats := *p.stats
	return &stats
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
