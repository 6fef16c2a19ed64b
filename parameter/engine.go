package parameter

import "time"

// Engine Timing
const (
	// DefaultTickInterval is the fixed simulation step
	DefaultTickInterval = 50 * time.Millisecond

	// DefaultFrameInterval is the render presentation pace (~60 FPS)
	DefaultFrameInterval = 16 * time.Millisecond
)

// Transport Capacities
const (
	// DefaultRingCapacity is the command ring data region in bytes
	DefaultRingCapacity = 64 * 1024

	// DefaultMaxEntities bounds the reference simulation's entity tables
	// and the snapshot buffers sized from them
	DefaultMaxEntities = 4096

	// DrainBudgetPerTick caps commands decoded in one simulation step so a
	// flooding producer cannot starve the tick deadline
	DrainBudgetPerTick = 8192
)
