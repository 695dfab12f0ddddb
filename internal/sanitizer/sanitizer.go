// Package sanitizer runs the extraction pipeline for one document:
// classify, resolve, then verify that nothing confidential survived.
package sanitizer

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/raaihank/packlist-sanitizer/internal/classifier"
	"github.com/raaihank/packlist-sanitizer/internal/guard"
	"github.com/raaihank/packlist-sanitizer/internal/logger"
	"github.com/raaihank/packlist-sanitizer/internal/registry"
	"github.com/raaihank/packlist-sanitizer/internal/resolver"
)

// Sanitizer handles fact extraction and leakage verification
type Sanitizer struct {
	registry   *registry.Registry
	classifier *classifier.Classifier
	guard      *guard.Guard
	logger     *logger.Logger
}

// New creates a new sanitizer over reg. A nil reg selects the default catalog.
func New(reg *registry.Registry, log *logger.Logger) *Sanitizer {
	if reg == nil {
		reg = registry.Default()
	}

	s := &Sanitizer{
		registry:   reg,
		classifier: classifier.New(reg),
		guard:      guard.New(reg),
		logger:     log,
	}

	log.Info("Sanitizer initialized",
		zap.Int("confidential_fields", len(reg.Confidential())),
		zap.Int("keep_fields", len(reg.Keep())),
	)

	return s
}

// Registry returns the registry the sanitizer matches against
func (s *Sanitizer) Registry() *registry.Registry {
	return s.registry
}

// Sanitize extracts the canonical facts of text. Empty or unrecognizable
// text is not an error: every slot is simply unresolved. The only error is
// a leakage detected by the guard, which must abort artifact generation.
func (s *Sanitizer) Sanitize(text string) (*Result, error) {
	start := time.Now()

	info := s.classifier.Classify(text)
	facts := resolver.ResolveInfo(s.registry, info)

	verified, err := s.guard.Verify(facts, info.Confidential)
	if err != nil {
		s.logger.Error("Leakage detected, output withheld",
			zap.Error(err),
			zap.Int("text_length", len(text)),
		)
		return nil, fmt.Errorf("verify facts: %w", err)
	}

	result := &Result{
		Facts:    verified,
		Redacted: info.Confidential.Fields(),
		Kept:     info.Keep.Fields(),
		Findings: s.findings(info),
	}
	if result.Redacted == nil {
		result.Redacted = []string{}
	}
	if result.Kept == nil {
		result.Kept = []string{}
	}

	s.logger.Debug("Document sanitized",
		zap.Strings("redacted_fields", result.Redacted),
		zap.Strings("kept_fields", result.Kept),
		zap.Int("colors", len(verified.Colors)),
		zap.Int("sizes", len(verified.Sizes)),
		zap.Duration("duration", time.Since(start)),
	)

	return result, nil
}

func (s *Sanitizer) findings(info *classifier.Info) []Finding {
	findings := make([]Finding, 0, info.Confidential.Len()+info.Keep.Len())
	for _, c := range []registry.Category{registry.Confidential, registry.Keep} {
		values := info.Keep
		if c == registry.Confidential {
			values = info.Confidential
		}
		for _, f := range s.registry.Fields(c) {
			n := len(values.Get(f.Name))
			if n == 0 {
				continue
			}
			findings = append(findings, Finding{
				Field:    f.Name,
				Label:    registry.Label(f.Name),
				Category: c,
				Kind:     c.String(),
				Count:    n,
			})
		}
	}
	return findings
}
