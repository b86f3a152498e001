package breakage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/roach88/bondbreak/internal/ir"
)

// StatusOff is the status token for an empty chain.
const StatusOff = "off"

// Subsystem is one bond-breakage instance: a queue, an active chain, and
// the registry the chain is configured from.
//
// A simulation constructs one Subsystem per worker and passes it to the
// producers and the configuration layer. There is no global instance.
//
// Thread-safety model:
//   - All methods must be called from the owning control goroutine
//   - AddHandlerByName / ClearHandlers must not run during Flush
//
// INVARIANTS:
//   - The chain is empty after New (breakage disabled)
//   - Flush dispatches every pending event to the whole chain before
//     clearing it
type Subsystem struct {
	registry  *Registry
	queue     *Queue
	chain     *Chain
	topology  Topology
	reporter  ErrorReporter
	out       io.Writer
	logger    *slog.Logger
	clock     StepClock
	tokens    StepTokenGenerator
	bondTypes *BondTypes
}

// Option configures a Subsystem.
type Option func(*Subsystem)

// WithRegistry sets the handler registry. Default: DefaultRegistry().
func WithRegistry(r *Registry) Option {
	return func(s *Subsystem) {
		s.registry = r
	}
}

// WithReporter sets the runtime error channel. Default: LogReporter.
func WithReporter(r ErrorReporter) Option {
	return func(s *Subsystem) {
		s.reporter = r
	}
}

// WithOutput sets the writer diagnostic handlers print to. Default: os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(s *Subsystem) {
		s.out = w
	}
}

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Subsystem) {
		s.logger = l
	}
}

// WithClock sets the step clock, e.g. to resume numbering after a restart.
func WithClock(c StepClock) Option {
	return func(s *Subsystem) {
		s.clock = c
	}
}

// WithStepTokens sets the flush token generator. Default: UUIDv7Generator.
func WithStepTokens(g StepTokenGenerator) Option {
	return func(s *Subsystem) {
		s.tokens = g
	}
}

// WithBondTypes sets the bond type table consulted by ReportOverstretch.
func WithBondTypes(bt *BondTypes) Option {
	return func(s *Subsystem) {
		s.bondTypes = bt
	}
}

// New creates a Subsystem over topo with an empty queue and chain.
func New(topo Topology, opts ...Option) *Subsystem {
	s := &Subsystem{
		registry:  DefaultRegistry(),
		queue:     NewQueue(),
		chain:     &Chain{},
		topology:  topo,
		out:       os.Stdout,
		clock:     NewClock(),
		tokens:    UUIDv7Generator{},
		bondTypes: NewBondTypes(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.reporter == nil {
		s.reporter = LogReporter{Logger: s.logger}
	}

	return s
}

// Enqueue queues ev for the next flush.
func (s *Subsystem) Enqueue(ev ir.BreakEvent) {
	s.queue.Enqueue(ev)
}

// EnqueueBreak queues a break of the bond of type t between id1 and id2.
func (s *Subsystem) EnqueueBreak(t ir.BondType, id1, id2 ir.ParticleID) {
	s.queue.Enqueue(ir.BreakEvent{Type: t, ID1: id1, ID2: id2})
}

// ReportOverstretch is called by bonded force code when a bond exceeds its
// range. Breakable bond types are queued for removal and true is returned.
// Other types produce an UNBREAKABLE_BOND runtime error and nothing is
// queued.
func (s *Subsystem) ReportOverstretch(ev ir.BreakEvent) bool {
	if !s.bondTypes.Breakable(ev.Type) {
		s.reporter.Report(NewUnbreakableBondError(ev))
		return false
	}
	s.queue.Enqueue(ev)
	return true
}

// Pending returns a copy of the queued events in enqueue order.
func (s *Subsystem) Pending() []ir.BreakEvent {
	return s.queue.Events()
}

// QueueLen returns the number of queued events.
func (s *Subsystem) QueueLen() int {
	return s.queue.Len()
}

// FlushReport summarizes one flush.
type FlushReport struct {
	// Step is the monotonic flush number.
	Step int64

	// Token correlates this flush across logs and the journal.
	Token string

	// Events are the events processed, in dispatch order.
	Events []ir.BreakEvent

	// Handlers are the chain names at flush time.
	Handlers []string

	// Dispatches is the number of handler invocations (events × chain length).
	Dispatches int

	// Errors are the runtime errors reported during this flush.
	Errors []error
}

// Record converts the report into a journal entry. hashBefore and
// hashAfter are topology hashes taken around the flush.
func (r FlushReport) Record(hashBefore, hashAfter string) ir.FlushRecord {
	rec := ir.FlushRecord{
		Step:       r.Step,
		Token:      r.Token,
		Handlers:   r.Handlers,
		Events:     r.Events,
		Dispatches: r.Dispatches,
		HashBefore: hashBefore,
		HashAfter:  hashAfter,
	}
	for _, err := range r.Errors {
		rec.Errors = append(rec.Errors, ir.FlushError{
			Code:    string(CodeOf(err)),
			Message: errorMessage(err),
		})
	}
	return rec
}

// errorMessage returns the RuntimeError message without its code prefix.
func errorMessage(err error) string {
	var rerr *RuntimeError
	if errors.As(err, &rerr) {
		return rerr.Message
	}
	return err.Error()
}

// Flush applies the active chain to every queued event and empties the
// queue. It always runs to completion; ctx is only passed to the topology.
func (s *Subsystem) Flush(ctx context.Context) FlushReport {
	report := FlushReport{
		Step:     s.clock.Next(),
		Token:    s.tokens.Generate(),
		Handlers: s.ActiveHandlersByName(),
	}

	rep := &flushReporter{next: s.reporter}
	env := &Env{
		Topology: s.topology,
		Reporter: rep,
		Out:      s.out,
		Logger:   s.logger.With("step", report.Step, "token", report.Token),
	}

	report.Events, report.Dispatches = s.queue.Flush(ctx, env, s.chain)
	report.Errors = rep.errs

	level := slog.LevelDebug
	if len(report.Events) > 0 {
		level = slog.LevelInfo
	}
	s.logger.Log(ctx, level, "bond breakage queue flushed",
		"step", report.Step,
		"token", report.Token,
		"events", len(report.Events),
		"dispatches", report.Dispatches,
		"errors", len(report.Errors),
	)

	return report
}

// AddHandlerByName appends the named handler to the chain.
// Unknown names return an error satisfying IsHandlerNotFound and leave the
// chain unchanged.
func (s *Subsystem) AddHandlerByName(name string) error {
	h, err := s.registry.Lookup(name)
	if err != nil {
		return err
	}
	s.chain.Append(h)
	return nil
}

// AddHandlers appends handlers by name in order. It stops at the first
// unknown name and returns its error; handlers before it stay added.
func (s *Subsystem) AddHandlers(names ...string) error {
	for _, name := range names {
		if err := s.AddHandlerByName(name); err != nil {
			return err
		}
	}
	return nil
}

// ClearHandlers empties the chain. Flush still drains the queue.
func (s *Subsystem) ClearHandlers() {
	s.chain.Clear()
}

// ActiveHandlersByName returns the chain as names, in chain order.
// An entry the current registry does not know is reported as
// UnknownHandlerName rather than failing the call.
func (s *Subsystem) ActiveHandlersByName() []string {
	handlers := s.chain.Handlers()
	names := make([]string, len(handlers))
	for i, h := range handlers {
		name, ok := s.registry.NameOf(h)
		if !ok {
			name = UnknownHandlerName
		}
		names[i] = name
	}
	return names
}

// AvailableHandlers returns every registered handler name.
func (s *Subsystem) AvailableHandlers() []string {
	return s.registry.Names()
}

// Status returns "off" for an empty chain, otherwise the space-separated
// chain names.
func (s *Subsystem) Status() string {
	if s.chain.Len() == 0 {
		return StatusOff
	}
	return strings.Join(s.ActiveHandlersByName(), " ")
}

// Registry returns the registry used for name lookups.
func (s *Subsystem) Registry() *Registry {
	return s.registry
}

// ReplaceRegistry swaps the registry used for future lookups. The chain
// keeps the handlers it already holds; entries the new registry does not
// contain are reported as UnknownHandlerName.
func (s *Subsystem) ReplaceRegistry(r *Registry) {
	s.registry = r
}

// BondTypes returns the bond type table.
func (s *Subsystem) BondTypes() *BondTypes {
	return s.bondTypes
}
