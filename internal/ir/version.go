package ir

// Version constants for the cppcell binary and its journal schema.
const (
	// Version is the cppcell release version.
	Version = "0.1.0"

	// JournalVersion is written into every journal row so old journals can
	// be told apart from new ones.
	JournalVersion = "1"
)
