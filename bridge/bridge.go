// Package bridge assembles the command ring and the render-state channel
// into one of three thread topologies behind a uniform producer interface.
//
// The caller never branches on topology after construction: writes, latest
// reads, ticks and teardown behave identically whether the simulation ends
// up colocated with the caller or on its own goroutine.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lixenwraith/tickbridge/command"
	"github.com/lixenwraith/tickbridge/parameter"
	"github.com/lixenwraith/tickbridge/ring"
	"github.com/lixenwraith/tickbridge/snapshot"
	"github.com/lixenwraith/tickbridge/status"
)

var (
	// ErrNoSimulator means Options carried no simulation to drive
	ErrNoSimulator = errors.New("bridge: simulator is required")

	// ErrRendererUnavailable is terminal: the chosen topology needs an
	// off-thread presentation surface and none could be started. The
	// bridge never retries with a different topology
	ErrRendererUnavailable = errors.New("bridge: renderer unavailable")

	// ErrRingCapacity means the configured ring cannot hold the largest
	// encodable command; reported at construction, not at write time
	ErrRingCapacity = errors.New("bridge: ring capacity below largest command")
)

// Simulator is the external collaborator owning command semantics: apply
// commands in order, advance one step, produce the next snapshot. The
// returned snapshot may be reused by the next Tick call
type Simulator interface {
	Tick(dt time.Duration, cmds []command.Command) *snapshot.Snapshot
}

// RenderSink consumes presented snapshots on FullIsolation's render
// goroutine. It emits nothing back into the core
type RenderSink interface {
	Present(*snapshot.Snapshot)
}

// StartableSink is an optional RenderSink extension whose Start runs on the
// render goroutine before the ready handshake; a failure there is surfaced
// from Ready as ErrRendererUnavailable
type StartableSink interface {
	RenderSink
	Start() error
}

// Bridge is the uniform producer-facing interface over any topology
type Bridge interface {
	// Per-opcode writes. false means the transport rejected the command
	// (buffer full, or the bridge is destroyed); the caller may retry or
	// degrade, the command was not partially written
	Spawn(entity uint32) bool
	Despawn(entity uint32) bool
	SetPosition(entity uint32, x, y, z float32) bool
	SetVelocity(entity uint32, x, y, z float32) bool
	SetRotation(entity uint32, x, y, z, w float32) bool
	SetScale(entity uint32, x, y, z float32) bool
	SetTextureLayer(entity uint32, layer uint32) bool
	SetMeshHandle(entity uint32, mesh uint32) bool
	SetRenderPrimitive(entity uint32, prim uint32) bool
	SetParent(entity uint32, parent uint32) bool
	SetPrimParams0(entity uint32, a, b, c, d float32) bool
	SetPrimParams1(entity uint32, a, b, c, d float32) bool
	SetListenerPosition(x, y, z float32) bool

	// Tick advances the simulation by dt. Fire-and-forget on isolated
	// topologies; synchronous on SingleThread
	Tick(dt time.Duration)

	// Latest copies the freshest complete snapshot into dst; false before
	// the first completed tick. Never blocks
	Latest(dst *snapshot.Snapshot) bool

	// Ready blocks until the topology's background contexts acknowledge
	// initialization. An error is terminal for this bridge instance
	Ready(ctx context.Context) error

	// Err reports a fatal consumer-side condition (malformed command
	// stream); nil while the channel is healthy
	Err() error

	// Overflows counts writes rejected for lack of ring space
	Overflows() int64

	// Mode reports the topology fixed at construction
	Mode() Topology

	// Destroy tears the bridge down; idempotent. Background contexts are
	// joined before Destroy returns, so no goroutine is left spinning on
	// the channels
	Destroy()
}

// Options configures construction. Zero values fall back to parameter
// defaults; Sim is mandatory
type Options struct {
	Capabilities Capabilities
	Override     Topology

	RingCapacity  int
	DrainBudget   int
	FrameInterval time.Duration

	Sim    Simulator
	Sink   RenderSink // Required by FullIsolation
	Status *status.Registry
}

// New probes nothing itself: capabilities and override arrive in opts and
// the choice is fixed for the bridge's lifetime
func New(opts Options) (Bridge, error) {
	if opts.Sim == nil {
		return nil, ErrNoSimulator
	}
	if opts.RingCapacity == 0 {
		opts.RingCapacity = parameter.DefaultRingCapacity
	}
	if opts.RingCapacity <= command.MaxEncodedSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrRingCapacity, opts.RingCapacity)
	}
	if opts.DrainBudget == 0 {
		opts.DrainBudget = parameter.DrainBudgetPerTick
	}
	if opts.FrameInterval == 0 {
		opts.FrameInterval = parameter.DefaultFrameInterval
	}
	if opts.Status == nil {
		opts.Status = status.NewRegistry()
	}

	mode := Select(opts.Capabilities, opts.Override)
	if mode == FullIsolation && opts.Sink == nil {
		return nil, fmt.Errorf("%w: full isolation requires a render sink", ErrRendererUnavailable)
	}

	rg, err := ring.New(opts.RingCapacity, opts.Status.Ints.Get("ring.overflows"))
	if err != nil {
		return nil, err
	}

	base := &engineBase{
		mode:    mode,
		ring:    rg,
		channel: snapshot.NewChannel(),
		stopCh:  make(chan struct{}),
	}
	opts.Status.Ints.Get("bridge.topology").Store(int64(mode))

	switch mode {
	case SingleThread:
		return newSingleThread(base, opts), nil
	case PartialIsolation:
		return newPartialIsolation(base, opts), nil
	default:
		return newFullIsolation(base, opts), nil
	}
}

// engineBase carries the state every topology shares
type engineBase struct {
	mode    Topology
	ring    *ring.Ring
	channel *snapshot.Channel

	destroyed atomic.Bool
	stopCh    chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup

	errVal atomic.Value // errBox

	readyCh  chan error
	acksNeed int
	readyMu  sync.Mutex
	acksGot  int
	readyErr error
}

func (b *engineBase) Mode() Topology { return b.mode }

func (b *engineBase) Overflows() int64 { return b.ring.Overflows() }

func (b *engineBase) Latest(dst *snapshot.Snapshot) bool {
	return b.channel.Latest(dst)
}

// errBox keeps atomic.Value stores consistently typed across different
// concrete error types
type errBox struct{ err error }

func (b *engineBase) Err() error {
	if box, ok := b.errVal.Load().(errBox); ok {
		return box.err
	}
	return nil
}

func (b *engineBase) setErr(err error) {
	b.errVal.CompareAndSwap(nil, errBox{err})
}

// Ready waits for every background context to acknowledge init. Init
// failures latch; a caller-side context expiry does not, so a later call
// with a fresh context picks up waiting where the timed-out one stopped
func (b *engineBase) Ready(ctx context.Context) error {
	b.readyMu.Lock()
	defer b.readyMu.Unlock()
	if b.readyErr != nil {
		return b.readyErr
	}
	for b.acksGot < b.acksNeed {
		select {
		case err := <-b.readyCh:
			b.acksGot++
			if err != nil {
				b.readyErr = err
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Destroy stops background contexts and joins them. The shutdown marker
// travels in-band through the ring; closing stopCh covers the case where
// the ring was too full to accept it. Must be invoked from the producer
// context, like every write
func (b *engineBase) Destroy() {
	b.stopOnce.Do(func() {
		b.destroyed.Store(true)
		b.ring.Write(command.Command{Op: command.OpShutdown})
		close(b.stopCh)
		b.wg.Wait()
	})
}

// write is the single producer path shared by all per-opcode methods
func (b *engineBase) write(c command.Command) bool {
	if b.destroyed.Load() {
		return false
	}
	return b.ring.Write(c)
}

func (b *engineBase) Spawn(entity uint32) bool {
	return b.write(command.Spawn(entity))
}

func (b *engineBase) Despawn(entity uint32) bool {
	return b.write(command.Despawn(entity))
}

func (b *engineBase) SetPosition(entity uint32, x, y, z float32) bool {
	return b.write(command.SetPosition(entity, x, y, z))
}

func (b *engineBase) SetVelocity(entity uint32, x, y, z float32) bool {
	return b.write(command.SetVelocity(entity, x, y, z))
}

func (b *engineBase) SetRotation(entity uint32, x, y, z, w float32) bool {
	return b.write(command.SetRotation(entity, x, y, z, w))
}

func (b *engineBase) SetScale(entity uint32, x, y, z float32) bool {
	return b.write(command.SetScale(entity, x, y, z))
}

func (b *engineBase) SetTextureLayer(entity uint32, layer uint32) bool {
	return b.write(command.SetTextureLayer(entity, layer))
}

func (b *engineBase) SetMeshHandle(entity uint32, mesh uint32) bool {
	return b.write(command.SetMeshHandle(entity, mesh))
}

func (b *engineBase) SetRenderPrimitive(entity uint32, prim uint32) bool {
	return b.write(command.SetRenderPrimitive(entity, prim))
}

func (b *engineBase) SetParent(entity uint32, parent uint32) bool {
	return b.write(command.SetParent(entity, parent))
}

func (b *engineBase) SetPrimParams0(entity uint32, a, c2, c3, c4 float32) bool {
	return b.write(command.SetPrimParams0(entity, a, c2, c3, c4))
}

func (b *engineBase) SetPrimParams1(entity uint32, a, c2, c3, c4 float32) bool {
	return b.write(command.SetPrimParams1(entity, a, c2, c3, c4))
}

func (b *engineBase) SetListenerPosition(x, y, z float32) bool {
	return b.write(command.SetListenerPosition(0, x, y, z))
}
