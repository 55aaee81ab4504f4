package domain

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
)

// BatchProgress counts concluded items against the raw line count of the list.
// Blank lines count toward Total but are never attempted.
type BatchProgress struct {
	Completed int
	Total     int
}

// Increment records one concluded item
func (p *BatchProgress) Increment() {
	p.Completed++
}

// Percent returns Completed as a percentage of Total
func (p BatchProgress) Percent() float64 {
	if p.Total == 0 {
		return 0
	}
	return float64(p.Completed) / float64(p.Total) * 100
}

// String renders the progress with two decimals, e.g. "66.67%"
func (p BatchProgress) String() string {
	return fmt.Sprintf("%.2f%%", p.Percent())
}

// BatchItemResult is the outcome of one attempted list line
type BatchItemResult struct {
	LineIndex  int
	URL        string
	Identifier string
	FilePath   string
	Err        error
}

// Success reports whether the item was written to disk
func (r BatchItemResult) Success() bool {
	return r.Err == nil
}

// BatchSummary describes a finished batch run
type BatchSummary struct {
	BatchID   string
	Progress  BatchProgress
	Attempted int
	Succeeded int
	Failed    int
	Skipped   int // blank lines
	Duration  time.Duration
	Results   []BatchItemResult
}

// Record appends an item outcome and updates the counters
func (s *BatchSummary) Record(result BatchItemResult) {
	s.Results = append(s.Results, result)
	s.Attempted++
	if result.Success() {
		s.Succeeded++
	} else {
		s.Failed++
	}
}

// Err aggregates every item failure. It is nil when all attempted items succeeded.
func (s *BatchSummary) Err() error {
	var result *multierror.Error
	for _, r := range s.Results {
		if r.Err != nil {
			result = multierror.Append(result, fmt.Errorf("line %d (%s): %w", r.LineIndex, r.Identifier, r.Err))
		}
	}
	return result.ErrorOrNil()
}
