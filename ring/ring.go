// Package ring carries encoded commands from a single producer to a single
// consumer over a fixed-capacity byte ring without locks.
//
// Thread-Safety:
//   - Write: producer only, never blocks, rejects on insufficient space
//   - Drain: consumer only, bounded per call
//   - Cursors are the only shared state; the final cursor store in Write is
//     the publication point, the consumer never observes partial commands
//
// One byte of slack is always reserved so a full ring is distinguishable
// from an empty one without a separate flag
package ring

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/lixenwraith/tickbridge/command"
)

var (
	// ErrCapacity means the requested capacity cannot hold even the
	// smallest command plus the slack byte
	ErrCapacity = errors.New("ring: capacity too small")

	// ErrMalformed means the consumer found bytes that do not decode as a
	// command; the producer and consumer disagree on the protocol and the
	// channel is dead
	ErrMalformed = errors.New("ring: malformed command stream")
)

// MinCapacity holds one header-only command plus the slack byte
const MinCapacity = command.HeaderSize + 1

// Ring is the command transport. Exactly one goroutine may call Write and
// exactly one may call Drain; the two may be the same goroutine
type Ring struct {
	data []byte

	writeHead atomic.Uint32 // Producer cursor, mod capacity
	readHead  atomic.Uint32 // Consumer cursor, mod capacity

	overflows *atomic.Int64 // Rejected write counter, shared with caller metrics
}

// New creates a ring with the given data capacity in bytes. overflows may be
// a cached metrics pointer; nil allocates a private counter
func New(capacity int, overflows *atomic.Int64) (*Ring, error) {
	if capacity < MinCapacity {
		return nil, fmt.Errorf("%w: %d bytes, need at least %d", ErrCapacity, capacity, MinCapacity)
	}
	if overflows == nil {
		overflows = &atomic.Int64{}
	}
	return &Ring{
		data:      make([]byte, capacity),
		overflows: overflows,
	}, nil
}

// Capacity returns the data region size in bytes
func (r *Ring) Capacity() int { return len(r.data) }

// Occupied returns the bytes currently queued
func (r *Ring) Occupied() int {
	w := r.writeHead.Load()
	rd := r.readHead.Load()
	return int((w - rd + uint32(len(r.data))) % uint32(len(r.data)))
}

// Free returns the bytes available to the producer, net of the slack byte
func (r *Ring) Free() int {
	return len(r.data) - 1 - r.Occupied()
}

// Overflows returns the count of rejected writes so far
func (r *Ring) Overflows() int64 { return r.overflows.Load() }

// Write encodes cmd into the ring. Returns false and changes nothing when
// the encoded size does not fit the current free space; the rejection is
// counted so the host can degrade gracefully instead of crashing
func (r *Ring) Write(cmd command.Command) bool {
	var staged [command.MaxEncodedSize]byte
	n, err := command.Encode(staged[:], cmd)
	if err != nil {
		// Unknown opcode never comes from the typed constructors; count it
		// with the rejections rather than corrupting the stream
		r.overflows.Add(1)
		return false
	}

	w := r.writeHead.Load()
	rd := r.readHead.Load()
	cap32 := uint32(len(r.data))
	occupied := (w - rd + cap32) % cap32
	if int(occupied)+n >= len(r.data) {
		r.overflows.Add(1)
		return false
	}

	// Stage bytes fully in place, splitting across the wraparound boundary,
	// before the cursor store publishes them
	first := copy(r.data[w:], staged[:n])
	if first < n {
		copy(r.data, staged[first:n])
	}
	r.writeHead.Store((w + uint32(n)) % cap32)
	return true
}

// Drain decodes up to max commands in FIFO order, invoking fn for each.
// fn returning false stops early without consuming further commands.
// The write cursor is loaded once per call, so a drain does bounded work
// even while the producer keeps writing.
//
// A decode failure halts consumption permanently for this ring and is
// returned wrapped in ErrMalformed; resynchronization is not attempted
func (r *Ring) Drain(max int, fn func(command.Command) bool) (int, error) {
	rd := r.readHead.Load()
	w := r.writeHead.Load()
	cap32 := uint32(len(r.data))
	avail := (w - rd + cap32) % cap32

	var staged [command.MaxEncodedSize]byte
	drained := 0
	for drained < max && avail > 0 {
		if avail < command.HeaderSize {
			return drained, fmt.Errorf("%w: %d stray bytes", ErrMalformed, avail)
		}
		op := command.Opcode(r.data[rd])
		size, ok := command.EncodedSize(op)
		if !ok {
			return drained, fmt.Errorf("%w: opcode %d at cursor %d", ErrMalformed, op, rd)
		}
		if uint32(size) > avail {
			return drained, fmt.Errorf("%w: %s spans past write head", ErrMalformed, op)
		}

		// Contiguous view of the command, copying only on wraparound
		span := r.data[rd:min32(rd+uint32(size), cap32)]
		if len(span) < size {
			n := copy(staged[:size], span)
			copy(staged[n:size], r.data)
			span = staged[:size]
		}
		cmd, consumed, err := command.Decode(span[:size])
		if err != nil {
			return drained, fmt.Errorf("%w: %v", ErrMalformed, err)
		}

		rd = (rd + uint32(consumed)) % cap32
		avail -= uint32(consumed)
		r.readHead.Store(rd)
		drained++

		if !fn(cmd) {
			break
		}
	}
	return drained, nil
}

func min32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}
