package ring

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/lixenwraith/tickbridge/command"
)

func mustRing(t *testing.T, capacity int) *Ring {
	t.Helper()
	r, err := New(capacity, nil)
	if err != nil {
		t.Fatalf("New(%d): %v", capacity, err)
	}
	return r
}

func drainAll(t *testing.T, r *Ring) []command.Command {
	t.Helper()
	var out []command.Command
	n, err := r.Drain(1<<20, func(c command.Command) bool {
		out = append(out, c)
		return true
	})
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if n != len(out) {
		t.Fatalf("drain reported %d, callback saw %d", n, len(out))
	}
	return out
}

func TestWriteDrainOrderFidelity(t *testing.T) {
	r := mustRing(t, 1024)
	want := []command.Command{
		command.Spawn(1),
		command.SetPosition(1, 1, 2, 3),
		command.SetRotation(1, 0, 0, 0, 1),
		command.SetParent(1, command.UnparentSentinel),
		command.SetVelocity(1, -1, -2, -3),
		command.Despawn(1),
	}
	for i, c := range want {
		if !r.Write(c) {
			t.Fatalf("write %d rejected with free space %d", i, r.Free())
		}
	}

	got := drainAll(t, r)
	if len(got) != len(want) {
		t.Fatalf("drained %d commands, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("command %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestSpawnThenSetPositionCursorAdvance(t *testing.T) {
	r := mustRing(t, 256)
	if !r.Write(command.Spawn(42)) {
		t.Fatal("spawn rejected")
	}
	if !r.Write(command.SetPosition(42, 1.0, 2.0, 3.0)) {
		t.Fatal("set position rejected")
	}

	// 5 header bytes for the spawn, 5+12 for the position
	if got := r.Occupied(); got != 22 {
		t.Errorf("occupied = %d, want 22", got)
	}

	got := drainAll(t, r)
	if len(got) != 2 {
		t.Fatalf("drained %d commands, want 2", len(got))
	}
	if got[0] != command.Spawn(42) {
		t.Errorf("first command = %+v", got[0])
	}
	want := command.SetPosition(42, 1.0, 2.0, 3.0)
	if got[1] != want {
		t.Errorf("second command = %+v, want %+v", got[1], want)
	}
}

func TestRejectWhenCommandExceedsFreeSpace(t *testing.T) {
	// 8 data bytes can hold a header-only command but never a SetPosition
	r := mustRing(t, 8)
	if r.Write(command.SetPosition(1, 1, 2, 3)) {
		t.Fatal("17-byte command accepted into an 8-byte ring")
	}
	if got := r.Occupied(); got != 0 {
		t.Errorf("occupied after rejected write = %d, want 0", got)
	}
	if got := r.Overflows(); got != 1 {
		t.Errorf("overflows = %d, want 1", got)
	}
	// The rejected command must not surface on the consumer side
	if got := drainAll(t, r); len(got) != 0 {
		t.Errorf("drain yielded %d commands after a rejected write", len(got))
	}
}

func TestRejectLeavesOccupiedUnchanged(t *testing.T) {
	r := mustRing(t, 32)
	if !r.Write(command.SetRotation(1, 0, 0, 0, 1)) { // 21 bytes
		t.Fatal("first write rejected")
	}
	before := r.Occupied()
	if r.Write(command.SetRotation(2, 0, 0, 0, 1)) { // 21 > 31-21 free
		t.Fatal("second write should not fit")
	}
	if after := r.Occupied(); after != before {
		t.Errorf("occupied changed across rejected write: %d -> %d", before, after)
	}
	got := drainAll(t, r)
	if len(got) != 1 || got[0].Entity != 1 {
		t.Errorf("consumer saw %d commands, want only entity 1", len(got))
	}
}

func TestSlackInvariantAfterDrain(t *testing.T) {
	r := mustRing(t, 128)
	for i := 0; i < 5; i++ {
		if !r.Write(command.SetScale(uint32(i), 1, 1, 1)) {
			t.Fatalf("write %d rejected", i)
		}
	}
	drainAll(t, r)
	if got := r.Free(); got != 127 {
		t.Errorf("free after drain = %d, want capacity-1 = 127", got)
	}
}

func TestWraparoundBoundary(t *testing.T) {
	// Capacity chosen so repeated 17-byte commands straddle the boundary
	r := mustRing(t, 40)
	next := uint32(0)
	for round := 0; round < 50; round++ {
		for r.Write(command.SetPosition(next, float32(next), 0, 0)) {
			next++
		}
		want := next - uint32(r.Occupied()/17)
		for _, c := range drainAll(t, r) {
			if c.Entity != want {
				t.Fatalf("round %d: got entity %d, want %d", round, c.Entity, want)
			}
			if c.Vec[0] != float32(want) {
				t.Fatalf("round %d: payload %f, want %f", round, c.Vec[0], float32(want))
			}
			want++
		}
	}
	if next < 50 {
		t.Fatalf("test never exercised the boundary, only %d writes", next)
	}
}

func TestDrainBoundsWorkPerCall(t *testing.T) {
	r := mustRing(t, 1024)
	for i := 0; i < 10; i++ {
		r.Write(command.Spawn(uint32(i)))
	}
	n, err := r.Drain(3, func(command.Command) bool { return true })
	if err != nil || n != 3 {
		t.Fatalf("Drain(3) = %d, %v", n, err)
	}
	rest := drainAll(t, r)
	if len(rest) != 7 || rest[0].Entity != 3 {
		t.Errorf("remaining drain = %d commands starting at %d, want 7 starting at 3",
			len(rest), rest[0].Entity)
	}
}

func TestMalformedStreamHaltsConsumption(t *testing.T) {
	r := mustRing(t, 64)
	r.Write(command.Spawn(1))
	// Corrupt the second command's opcode byte in place
	r.Write(command.Spawn(2))
	r.data[5] = 0x77

	var seen []command.Command
	n, err := r.Drain(10, func(c command.Command) bool {
		seen = append(seen, c)
		return true
	})
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("err = %v, want ErrMalformed", err)
	}
	if n != 1 || len(seen) != 1 || seen[0].Entity != 1 {
		t.Errorf("consumed %d commands before halt, want exactly the intact one", n)
	}
}

func TestCapacityTooSmall(t *testing.T) {
	if _, err := New(3, nil); !errors.Is(err, ErrCapacity) {
		t.Errorf("New(3) err = %v, want ErrCapacity", err)
	}
}

func TestSharedOverflowCounter(t *testing.T) {
	var counter atomic.Int64
	r, err := New(8, &counter)
	if err != nil {
		t.Fatal(err)
	}
	r.Write(command.SetPosition(1, 0, 0, 0))
	r.Write(command.SetPosition(2, 0, 0, 0))
	if counter.Load() != 2 {
		t.Errorf("shared counter = %d, want 2", counter.Load())
	}
}

// Producer and consumer on separate goroutines, verifying FIFO order and
// payload fidelity under the race detector
func TestConcurrentProducerConsumer(t *testing.T) {
	r := mustRing(t, 256)
	const total = 20000

	done := make(chan error, 1)
	go func() {
		expect := uint32(0)
		for expect < total {
			_, err := r.Drain(64, func(c command.Command) bool {
				if c.Entity != expect || c.Vec[0] != float32(expect) {
					done <- errors.New("out of order or corrupt command")
					return false
				}
				expect++
				return true
			})
			if err != nil {
				done <- err
				return
			}
		}
		done <- nil
	}()

	for i := uint32(0); i < total; {
		if r.Write(command.SetPosition(i, float32(i), 0, 0)) {
			i++
		}
	}
	if err := <-done; err != nil {
		t.Fatal(err)
	}
}
