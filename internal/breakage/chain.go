package breakage

import "slices"

// Chain is the ordered list of enabled handlers.
//
// The chain stores handler references, not names: once a handler is added
// it keeps running even if the registry it came from is replaced. The same
// handler may appear more than once.
type Chain struct {
	handlers []Handler
}

// Append adds h at the end of the chain.
func (c *Chain) Append(h Handler) {
	c.handlers = append(c.handlers, h)
}

// Clear empties the chain.
func (c *Chain) Clear() {
	c.handlers = nil
}

// Len returns the number of handlers in the chain.
func (c *Chain) Len() int {
	return len(c.handlers)
}

// Handlers returns a copy of the chain in order.
func (c *Chain) Handlers() []Handler {
	return slices.Clone(c.handlers)
}
