package harness

import "github.com/roach88/bondbreak/internal/ir"

// TraceEvent records one executed flow step.
// Only the fields relevant to Kind are set.
type TraceEvent struct {
	// Kind is the step action (enqueue, overstretch, flush, add_handlers,
	// clear_handlers).
	Kind string `json:"kind"`

	// Event is the break event (enqueue, overstretch).
	Event *ir.BreakEvent `json:"event,omitempty"`

	// Queued reports whether an overstretch was queued.
	Queued bool `json:"queued,omitempty"`

	// Step and Token identify a flush.
	Step  int64  `json:"step,omitempty"`
	Token string `json:"token,omitempty"`

	// Events and Dispatches count a flush's work.
	Events     int `json:"events,omitempty"`
	Dispatches int `json:"dispatches,omitempty"`

	// Handlers is the chain at flush time, or the names requested by
	// add_handlers.
	Handlers []string `json:"handlers,omitempty"`

	// Errors are the runtime error codes reported during a flush or
	// overstretch.
	Errors []string `json:"errors,omitempty"`

	// Error is the configuration error returned by add_handlers.
	Error string `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every assertion and expect_error matched.
	Pass bool `json:"pass"`

	// Trace contains every executed step in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failed assertion messages.
	Errors []string `json:"errors,omitempty"`

	// Output is the diagnostic text printed by handlers, one entry per line.
	Output []string `json:"output"`

	// RuntimeErrors are all non-fatal errors reported during the run.
	RuntimeErrors []error `json:"-"`

	// QueueLen is the number of events still queued after the flow.
	QueueLen int `json:"queue_len"`

	// Chain is the active handler chain after the flow.
	Chain []string `json:"chain"`

	// Bonds is the final topology.
	Bonds []ir.Bond `json:"bonds"`

	// HashBefore and HashAfter are topology hashes around the flow.
	HashBefore string `json:"hash_before"`
	HashAfter  string `json:"hash_after"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		Output: []string{},
		Chain:  []string{},
		Bonds:  []ir.Bond{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step to the trace.
func (r *Result) AddTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}
