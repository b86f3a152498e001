package ir

// FlushRecord is the journal entry for one flush, as persisted by the store.
type FlushRecord struct {
	Step       int64        `json:"step"`
	Token      string       `json:"token"`
	Handlers   []string     `json:"handlers"`
	Events     []BreakEvent `json:"events"`
	Dispatches int          `json:"dispatches"`
	Errors     []FlushError `json:"errors,omitempty"`
	HashBefore string       `json:"hash_before"`
	HashAfter  string       `json:"hash_after"`
}

// FlushError is one runtime error reported during a flush.
type FlushError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
