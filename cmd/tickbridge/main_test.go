package main

import (
	"testing"
	"time"

	"github.com/lixenwraith/tickbridge/bridge"
	"github.com/lixenwraith/tickbridge/config"
	"github.com/lixenwraith/tickbridge/snapshot"
	"github.com/lixenwraith/tickbridge/status"
)

// Headless runs hand the bridge a frame-dropping sink, so forcing
// FullIsolation must construct and tick with no screen attached
func TestHeadlessBridgeSupportsFullIsolation(t *testing.T) {
	eng, err := buildBridge(config.Default(), bridge.FullIsolation, nopSink{}, status.NewRegistry())
	if err != nil {
		t.Fatalf("buildBridge: %v", err)
	}
	defer eng.Destroy()

	if eng.Mode() != bridge.FullIsolation {
		t.Fatalf("mode = %s, want full", eng.Mode())
	}

	eng.Spawn(1)
	var snap snapshot.Snapshot
	deadline := time.After(5 * time.Second)
	for snap.Tick == 0 {
		eng.Tick(10 * time.Millisecond)
		select {
		case <-deadline:
			t.Fatal("no tick completed")
		case <-time.After(time.Millisecond):
		}
		eng.Latest(&snap)
	}
	if snap.Count != 1 || snap.Entities[0] != 1 {
		t.Fatalf("snapshot = %+v", snap)
	}
}
