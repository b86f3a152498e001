package ir

// Version constants for snapshots and the flush journal.
const (
	// IRVersion is the snapshot schema version.
	IRVersion = "1"

	// EngineVersion is the bondbreak version.
	EngineVersion = "0.1.0"
)
