package bridge

import (
	"runtime"
)

// Topology is one of the three fixed thread layouts the engine can assemble.
// Chosen once at construction and never changed mid-session
type Topology uint8

const (
	// Auto defers the choice to the capability probe
	Auto Topology = iota

	// SingleThread runs simulation, rendering and the caller on one
	// goroutine; writes and ticks execute synchronously in the call stack
	SingleThread

	// PartialIsolation runs the simulation on its own goroutine; rendering
	// shares the caller's goroutine and reads the state channel directly
	PartialIsolation

	// FullIsolation gives both the simulation and the renderer dedicated
	// goroutines; snapshots are forwarded point-to-point to the renderer
	// so presentation never contends with caller work
	FullIsolation
)

func (t Topology) String() string {
	switch t {
	case Auto:
		return "auto"
	case SingleThread:
		return "single"
	case PartialIsolation:
		return "partial"
	case FullIsolation:
		return "full"
	default:
		return "invalid"
	}
}

// Capabilities is the probe result the selection policy works from
type Capabilities struct {
	// SharedMemory reports whether a second execution context can observe
	// the ring's atomic cursors in parallel
	SharedMemory bool

	// OffThreadSurface reports whether frame presentation can run off the
	// caller's thread of control
	OffThreadSurface bool
}

// Probe inspects the host runtime. Parallelism below two means an isolated
// simulation would only time-slice against the caller, so it degrades the
// same way a missing shared-memory primitive would
func Probe() Capabilities {
	n := runtime.GOMAXPROCS(0)
	return Capabilities{
		SharedMemory:     n >= 2,
		OffThreadSurface: n >= 3,
	}
}

// Select maps a capability tuple and an optional override to the topology.
// Pure function: the same inputs always yield the same choice. An explicit
// override wins; otherwise the richest layout the capabilities support
func Select(caps Capabilities, override Topology) Topology {
	if override != Auto {
		return override
	}
	switch {
	case caps.SharedMemory && caps.OffThreadSurface:
		return FullIsolation
	case caps.SharedMemory:
		return PartialIsolation
	default:
		return SingleThread
	}
}
