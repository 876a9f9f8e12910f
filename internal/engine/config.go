package engine

import "time"

// Config controls how engines are launched and searched.
type Config struct {
	// BinaryPath is the engine executable, e.g. a Stockfish binary.
	BinaryPath string

	// MoveTime is the search budget per position.
	MoveTime time.Duration

	// MultiPV is how many principal variations to request. Mistake
	// categorization needs at least 2 to measure the gap between best and
	// second-best.
	MultiPV int

	// PoolSize is how many engine processes run concurrently.
	PoolSize int

	// Threads is the per-engine search thread count. Zero leaves the
	// engine default.
	Threads int
}

// DefaultConfig returns the settings used for batch game analysis: a fast
// shallow search over many positions rather than a deep search of one.
func DefaultConfig(binaryPath string) Config {
	return Config{
		BinaryPath: binaryPath,
		MoveTime:   100 * time.Millisecond,
		MultiPV:    2,
		PoolSize:   2,
	}
}
