package snapshot

import (
	"sync/atomic"
)

// Channel is the latest-wins publication slot between the simulation and
// its readers. Unlike the command ring it keeps no history: every Publish
// fully replaces the previous snapshot.
//
// Thread-Safety:
//   - Publish: single writer (the simulation side)
//   - Latest: any number of readers, never blocks, never sees a torn write
//
// Each slot carries a seqlock: odd while a write is in progress, even when
// stable. The writer alternates slots so a reader holding the previous slot
// is disturbed at most one publish later, and the sequence check catches it
type Channel struct {
	slots [2]slot
	// current packs (slot index, publish count); zero means nothing
	// published yet
	current atomic.Uint64
}

type slot struct {
	seq  atomic.Uint32
	snap Snapshot
}

// NewChannel returns an empty channel; Latest reports false until the
// first Publish
func NewChannel() *Channel {
	return &Channel{}
}

// Publish copies src into the inactive slot and flips the current marker.
// Writer-only
func (ch *Channel) Publish(src *Snapshot) {
	cur := ch.current.Load()
	idx := 0
	if cur != 0 && cur&1 == 0 {
		idx = 1 // Previous publish landed in slot 0
	}

	s := &ch.slots[idx]
	s.seq.Add(1) // Odd: write in progress
	s.snap.CopyFrom(src)
	s.seq.Add(1) // Even: write complete

	ch.current.Store(uint64(idx&1) | (cur>>1+1)<<1)
}

// Latest copies the freshest complete snapshot into dst and reports whether
// anything has been published. dst's backing arrays are reused across calls
func (ch *Channel) Latest(dst *Snapshot) bool {
	for {
		cur := ch.current.Load()
		if cur == 0 {
			return false
		}
		s := &ch.slots[cur&1]

		seq := s.seq.Load()
		if seq&1 != 0 {
			continue // Publish in progress on this slot, re-resolve
		}
		dst.CopyFrom(&s.snap)
		if s.seq.Load() == seq && ch.current.Load() == cur {
			return true
		}
		// Writer moved underneath us; retry against the new current slot
	}
}
