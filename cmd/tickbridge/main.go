package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime/debug"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/lixenwraith/tickbridge/audio"
	"github.com/lixenwraith/tickbridge/bridge"
	"github.com/lixenwraith/tickbridge/config"
	"github.com/lixenwraith/tickbridge/inspect"
	"github.com/lixenwraith/tickbridge/overlay"
	"github.com/lixenwraith/tickbridge/render"
	"github.com/lixenwraith/tickbridge/sim"
	"github.com/lixenwraith/tickbridge/snapshot"
	"github.com/lixenwraith/tickbridge/status"
)

var (
	configFlag   = flag.String("config", "tickbridge.yaml", "Path to the engine config file")
	topologyFlag = flag.String("topology", "", "Override topology: single, partial, full")
	headlessFlag = flag.Bool("headless", false, "Run the scripted scene without a screen")
	durationFlag = flag.Duration("duration", 10*time.Second, "Headless run duration")
	noAudioFlag  = flag.Bool("no-audio", false, "Disable the listener hum")
	inspectFlag  = flag.String("inspect", "", "Enable the inspector feed on this address")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *topologyFlag != "" {
		cfg.Topology = *topologyFlag
	}
	if *noAudioFlag {
		cfg.Audio.Enabled = false
	}
	if *inspectFlag != "" {
		cfg.Inspector.Enabled = true
		cfg.Inspector.Addr = *inspectFlag
	}
	override, err := cfg.TopologyOverride()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	if *headlessFlag {
		if err := runHeadless(cfg, override); err != nil {
			fmt.Fprintf(os.Stderr, "tickbridge: %v\n", err)
			os.Exit(1)
		}
		return
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "screen: %v\n", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "screen: %v\n", err)
		os.Exit(1)
	}

	// Panic recovery: restore the terminal before the stack trace prints
	defer func() {
		if r := recover(); r != nil {
			screen.Fini()
			fmt.Fprintf(os.Stderr, "\nTICKBRIDGE CRASHED: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack Trace:\n%s\n", debug.Stack())
			os.Exit(1)
		}
	}()
	defer screen.Fini()

	if err := runInteractive(cfg, override, screen); err != nil {
		screen.Fini()
		fmt.Fprintf(os.Stderr, "tickbridge: %v\n", err)
		os.Exit(1)
	}
}

func buildBridge(cfg config.Config, override bridge.Topology, sink bridge.RenderSink, reg *status.Registry) (bridge.Bridge, error) {
	caps := bridge.Probe()
	eng, err := bridge.New(bridge.Options{
		Capabilities:  caps,
		Override:      override,
		RingCapacity:  cfg.RingCapacity,
		FrameInterval: cfg.FrameInterval(),
		Sim:           sim.NewWorld(cfg.MaxEntities),
		Sink:          sink,
		Status:        reg,
	})
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := eng.Ready(ctx); err != nil {
		eng.Destroy()
		return nil, err
	}
	return eng, nil
}

func runInteractive(cfg config.Config, override bridge.Topology, screen tcell.Screen) error {
	reg := status.NewRegistry()
	ov := overlay.New()
	renderer := render.NewTerminalRenderer(screen, ov)

	caps := bridge.Probe()
	mode := bridge.Select(caps, override)
	var sink bridge.RenderSink
	if mode == bridge.FullIsolation {
		sink = renderer // Presentation runs off the caller's goroutine
	}

	eng, err := buildBridge(cfg, override, sink, reg)
	if err != nil {
		return err
	}
	defer eng.Destroy()

	var inspector *inspect.Server
	if cfg.Inspector.Enabled {
		inspector = inspect.NewServer(cfg.Inspector.Addr, eng.Latest, reg)
		if err := inspector.Start(); err != nil {
			return err
		}
		defer inspector.Stop()
	}

	listener := audio.NewListener()
	if cfg.Audio.Enabled {
		if err := listener.Start(); err == nil {
			defer listener.Stop()
		}
	}

	screen.EnableMouse()
	spawnScene(eng)

	events := make(chan tcell.Event, 16)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			events <- ev
		}
	}()

	tickTicker := time.NewTicker(cfg.TickInterval())
	defer tickTicker.Stop()
	frameTicker := time.NewTicker(cfg.FrameInterval())
	defer frameTicker.Stop()

	var snap snapshot.Snapshot
	var dragging uint32
	dragActive := false
	listenerX, listenerY := float32(0), float32(0)

	for {
		select {
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				switch {
				case ev.Key() == tcell.KeyEscape || ev.Rune() == 'q':
					return nil
				case ev.Key() == tcell.KeyLeft:
					listenerX--
				case ev.Key() == tcell.KeyRight:
					listenerX++
				case ev.Key() == tcell.KeyUp:
					listenerY++
				case ev.Key() == tcell.KeyDown:
					listenerY--
				}
				eng.SetListenerPosition(listenerX, listenerY, 0)
			case *tcell.EventMouse:
				x, y := ev.Position()
				switch {
				case ev.Buttons()&tcell.Button1 != 0 && !dragActive:
					if id, hit := renderer.Pick(x, y); hit {
						dragging = id
						dragActive = true
					}
				case ev.Buttons()&tcell.Button1 != 0 && dragActive:
					wx, wy := renderer.CellToWorld(x, y)
					// Overlay first so this frame's draw and pick already
					// agree with the pointer; the command catches the
					// simulation up a tick later
					ov.Set(dragging, wx, wy, 0)
					eng.SetPosition(dragging, wx, wy, 0)
				case ev.Buttons()&tcell.Button1 == 0 && dragActive:
					ov.Clear(dragging)
					dragActive = false
				}
			}

		case <-tickTicker.C:
			if err := eng.Err(); err != nil {
				return err
			}
			eng.Tick(cfg.TickInterval())

		case <-frameTicker.C:
			if eng.Mode() != bridge.FullIsolation {
				if eng.Latest(&snap) {
					renderer.Present(&snap)
				}
			}
			if cfg.Audio.Enabled && eng.Latest(&snap) {
				listener.SetPosition(snap.ListenerX, snap.ListenerY)
			}
		}
	}
}

// spawnScene issues the initial drifting entities
func spawnScene(eng bridge.Bridge) {
	type seed struct {
		id     uint32
		x, y   float32
		vx, vy float32
		scale  float32
		mesh   uint32
	}
	seeds := []seed{
		{1, -6, -3, 0.8, 0.4, 1, 0},
		{2, 5, 2, -0.5, -0.7, 1.5, 1},
		{3, 0, 6, 0.3, -0.9, 1, 2},
		{4, -3, 4, 0.6, 0.2, 0.7, 3},
		{5, 7, -5, -0.9, 0.5, 1.2, 4},
	}
	for _, s := range seeds {
		eng.Spawn(s.id)
		eng.SetPosition(s.id, s.x, s.y, 0)
		eng.SetVelocity(s.id, s.vx, s.vy, 0)
		eng.SetScale(s.id, s.scale, s.scale, s.scale)
		eng.SetMeshHandle(s.id, s.mesh)
	}
}

// nopSink satisfies FullIsolation's sink requirement when there is no
// screen; frames are produced and dropped so the topology still exercises
// its render goroutine
type nopSink struct{}

func (nopSink) Present(*snapshot.Snapshot) {}

// runHeadless drives the scripted scene with no screen and prints transport
// statistics, useful for profiling topologies over ssh
func runHeadless(cfg config.Config, override bridge.Topology) error {
	reg := status.NewRegistry()
	eng, err := buildBridge(cfg, override, nopSink{}, reg)
	if err != nil {
		return err
	}
	defer eng.Destroy()

	var inspector *inspect.Server
	if cfg.Inspector.Enabled {
		inspector = inspect.NewServer(cfg.Inspector.Addr, eng.Latest, reg)
		if err := inspector.Start(); err != nil {
			return err
		}
		defer inspector.Stop()
		fmt.Fprintf(os.Stderr, "inspector on %s\n", inspector.Addr())
	}

	spawnScene(eng)

	ticker := time.NewTicker(cfg.TickInterval())
	defer ticker.Stop()
	deadline := time.After(*durationFlag)

	var snap snapshot.Snapshot
	for {
		select {
		case <-ticker.C:
			if err := eng.Err(); err != nil {
				return err
			}
			eng.Tick(cfg.TickInterval())
			bounceScene(eng, &snap)
		case <-deadline:
			eng.Latest(&snap)
			fmt.Fprintf(os.Stderr, "topology=%s ticks=%d entities=%d overflows=%d tick_ms=%.3f\n",
				eng.Mode(), snap.Tick, snap.Count, eng.Overflows(),
				reg.ExportFloats()["sim.tick_ms"])
			return nil
		}
	}
}

// bounceScene reverses velocities at the world edge so entities stay in view
func bounceScene(eng bridge.Bridge, snap *snapshot.Snapshot) {
	if !eng.Latest(snap) {
		return
	}
	for i := 0; i < snap.Count; i++ {
		x := snap.Transforms[i*snapshot.TransformStride+12]
		y := snap.Transforms[i*snapshot.TransformStride+13]
		if x < -9 || x > 9 {
			eng.SetVelocity(snap.Entities[i], -sign(x), 0, 0)
		}
		if y < -9 || y > 9 {
			eng.SetVelocity(snap.Entities[i], 0, -sign(y), 0)
		}
	}
}

func sign(f float32) float32 {
	if f < 0 {
		return -1
	}
	return 1
}
