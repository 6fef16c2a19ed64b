package bridge

import (
	"sync/atomic"
	"time"

	"github.com/lixenwraith/tickbridge/command"
	"github.com/lixenwraith/tickbridge/status"
)

// singleThread keeps simulation, rendering and the caller on one goroutine.
// The ring and channel are still real so the producer interface, the
// backpressure semantics and the tests behave identically to the isolated
// layouts; drain and tick simply run synchronously in the calling stack
type singleThread struct {
	*engineBase
	sim    Simulator
	sink   RenderSink
	budget int
	cmds   []command.Command

	statTicks  *atomic.Int64
	statTickMs *status.AtomicFloat
}

func newSingleThread(base *engineBase, opts Options) *singleThread {
	base.readyCh = make(chan error)
	base.acksNeed = 0 // No background contexts to wait for
	return &singleThread{
		engineBase: base,
		sim:        opts.Sim,
		sink:       opts.Sink,
		budget:     opts.DrainBudget,
		cmds:       make([]command.Command, 0, 256),
		statTicks:  opts.Status.Ints.Get("sim.ticks"),
		statTickMs: opts.Status.Floats.Get("sim.tick_ms"),
	}
}

// Tick drains, simulates and publishes synchronously
func (s *singleThread) Tick(dt time.Duration) {
	if s.destroyed.Load() || s.Err() != nil {
		return
	}

	s.cmds = s.cmds[:0]
	_, err := s.ring.Drain(s.budget, func(c command.Command) bool {
		if c.Op == command.OpShutdown {
			return false
		}
		s.cmds = append(s.cmds, c)
		return true
	})
	if err != nil {
		s.setErr(err)
		return
	}

	start := time.Now()
	snap := s.sim.Tick(dt, s.cmds)
	s.channel.Publish(snap)
	s.statTicks.Add(1)
	s.statTickMs.Store(float64(time.Since(start)) / float64(time.Millisecond))
	if s.sink != nil {
		s.sink.Present(snap)
	}
}
