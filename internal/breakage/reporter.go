package breakage

import (
	"log/slog"
	"sync"
)

// ErrorReporter is the non-fatal runtime error channel.
// Handlers report per-event failures here instead of returning them, so one
// bad event never stops a flush.
type ErrorReporter interface {
	Report(err error)
}

// LogReporter reports runtime errors to a structured logger at WARN level.
type LogReporter struct {
	Logger *slog.Logger
}

// Report implements ErrorReporter.
func (r LogReporter) Report(err error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn("bond breakage runtime error",
		"code", string(CodeOf(err)),
		"error", err,
	)
}

// ErrorCollector accumulates reported errors until they are drained.
//
// Thread-safety: safe for concurrent use via internal mutex, so a collector
// can be shared by several worker subsystems and checked once per step.
type ErrorCollector struct {
	mu   sync.Mutex
	errs []error
}

// NewErrorCollector creates an empty collector.
func NewErrorCollector() *ErrorCollector {
	return &ErrorCollector{}
}

// Report implements ErrorReporter.
func (c *ErrorCollector) Report(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs = append(c.errs, err)
}

// Errors returns a copy of the collected errors in report order.
func (c *ErrorCollector) Errors() []error {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]error, len(c.errs))
	copy(out, c.errs)
	return out
}

// Len returns the number of collected errors.
func (c *ErrorCollector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.errs)
}

// Drain returns the collected errors and resets the collector.
func (c *ErrorCollector) Drain() []error {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.errs
	c.errs = nil
	return out
}

// flushReporter forwards to the subsystem reporter and remembers what was
// reported during a single flush for the FlushReport.
type flushReporter struct {
	next ErrorReporter
	errs []error
}

func (r *flushReporter) Report(err error) {
	r.errs = append(r.errs, err)
	if r.next != nil {
		r.next.Report(err)
	}
}
