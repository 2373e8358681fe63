package config

// Default locations for hub state
const (
	// DefaultDataDir holds the hub and category database files
	DefaultDataDir = "./data"

	// DefaultPatchesDir holds exported and uploaded patch files
	DefaultPatchesDir = "./patches"
)
