package inspect

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/zstd"

	"github.com/lixenwraith/tickbridge/snapshot"
	"github.com/lixenwraith/tickbridge/status"
)

func testSource() func(*snapshot.Snapshot) bool {
	src := &snapshot.Snapshot{}
	src.Tick = 9
	src.Reset(1)
	src.Entities[0] = 42
	src.Bounds[3] = 1
	src.ListenerX = 2.5
	return func(dst *snapshot.Snapshot) bool {
		dst.CopyFrom(src)
		return true
	}
}

func TestFeedDeliversCompressedFrames(t *testing.T) {
	reg := status.NewRegistry()
	reg.Ints.Get("sim.ticks").Store(9)
	reg.Floats.Get("sim.tick_ms").Store(1.25)

	srv := NewServer("127.0.0.1:0", testSource(), reg)
	if err := srv.Start(); err != nil {
		t.Fatal(err)
	}
	defer srv.Stop()

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+srv.Addr()+"/feed", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	kind, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if kind != websocket.BinaryMessage {
		t.Fatalf("message type = %d, want binary", kind)
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer dec.Close()
	raw, err := dec.DecodeAll(payload, nil)
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}

	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if frame.Tick != 9 || frame.Count != 1 || frame.Entities[0] != 42 {
		t.Errorf("frame = %+v", frame)
	}
	if frame.ListenerX != 2.5 {
		t.Errorf("listener_x = %f", frame.ListenerX)
	}
	if frame.Metrics["sim.ticks"] != 9 {
		t.Errorf("metrics = %v", frame.Metrics)
	}
	if frame.Timings["sim.tick_ms"] != 1.25 {
		t.Errorf("timings = %v", frame.Timings)
	}
}

func TestStartStopIdempotence(t *testing.T) {
	srv := NewServer("127.0.0.1:0", testSource(), nil)
	if err := srv.Start(); err != nil {
		t.Fatal(err)
	}
	if err := srv.Start(); err == nil {
		t.Error("second Start succeeded")
	}
	srv.Stop()
	srv.Stop() // Must not panic
}

// Stop must tear down live feeds, not just the listener; a connected client
// whose tick never advances would otherwise hold its goroutine forever
func TestStopClosesLiveFeeds(t *testing.T) {
	// Source that never produces, so the feed loop never writes and the
	// only exit path is the shutdown signal
	silent := func(*snapshot.Snapshot) bool { return false }

	srv := NewServer("127.0.0.1:0", silent, nil)
	if err := srv.Start(); err != nil {
		t.Fatal(err)
	}

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+srv.Addr()+"/feed", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	srv.Stop()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("read succeeded after Stop; feed connection still alive")
	}
}
