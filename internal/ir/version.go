package ir

// Version constants for the snapshot format and engine.
const (
	// SnapshotVersion is the project snapshot schema version understood by the engine.
	SnapshotVersion = "1"

	// EngineVersion is the rulekit engine version recorded with every session.
	EngineVersion = "0.1.0"
)
