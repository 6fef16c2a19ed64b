// Package audio is the listener-position collaborator: a hum whose stereo
// pan and gain follow the snapshot's listener coordinates, giving audible
// feedback for SetListenerPosition without feeding anything back into the
// core.
package audio

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
)

const (
	sampleRate = beep.SampleRate(48000)
	humFreq    = 110.0 // A2, unobtrusive under terminal bell range

	// panRange is the |x| at which the hum sits fully in one ear
	panRange = 10.0
	// falloffRange is the |y| at which gain reaches zero
	falloffRange = 20.0
)

// Listener owns the speaker and a single positional oscillator
// Thread-Safety: SetPosition may be called from any goroutine; the streamer
// reads position from atomics on the speaker's mixing goroutine
type Listener struct {
	osc     *positionalOscillator
	ctrl    *beep.Ctrl
	running atomic.Bool
}

// NewListener creates a stopped listener; Start brings up the speaker
func NewListener() *Listener {
	osc := &positionalOscillator{rate: sampleRate}
	osc.gainBits.Store(math.Float64bits(0.2))
	return &Listener{
		osc:  osc,
		ctrl: &beep.Ctrl{Streamer: osc},
	}
}

// Start initializes the speaker and begins streaming. Failure leaves the
// listener silent but usable; callers may continue without audio
func (l *Listener) Start() error {
	if !l.running.CompareAndSwap(false, true) {
		return nil
	}
	if err := speaker.Init(sampleRate, sampleRate.N(50*time.Millisecond)); err != nil {
		l.running.Store(false)
		return err
	}
	speaker.Play(l.ctrl)
	return nil
}

// SetPosition retargets the hum from the latest snapshot's listener fields
func (l *Listener) SetPosition(x, y float32) {
	pan := clamp(float64(x)/panRange, -1, 1)
	gain := 0.2 * (1 - clamp(math.Abs(float64(y))/falloffRange, 0, 1))
	l.osc.panBits.Store(math.Float64bits(pan))
	l.osc.gainBits.Store(math.Float64bits(gain))
}

// Mute pauses streaming without tearing the speaker down
func (l *Listener) Mute(muted bool) {
	if !l.running.Load() {
		return
	}
	speaker.Lock()
	l.ctrl.Paused = muted
	speaker.Unlock()
}

// Stop silences and detaches the oscillator; idempotent
func (l *Listener) Stop() {
	if !l.running.CompareAndSwap(true, false) {
		return
	}
	speaker.Clear()
}

// positionalOscillator is a sine generator with atomically retargetable
// stereo placement, streamed by the speaker goroutine
type positionalOscillator struct {
	phase    float64
	rate     beep.SampleRate
	panBits  atomic.Uint64
	gainBits atomic.Uint64
}

func (o *positionalOscillator) Stream(samples [][2]float64) (n int, ok bool) {
	pan := math.Float64frombits(o.panBits.Load())
	gain := math.Float64frombits(o.gainBits.Load())

	// Equal-power panning keeps perceived loudness stable while moving
	left := gain * math.Cos((pan+1)*math.Pi/4)
	right := gain * math.Sin((pan+1)*math.Pi/4)

	for i := range samples {
		val := math.Sin(2 * math.Pi * o.phase)
		samples[i][0] = val * left
		samples[i][1] = val * right

		o.phase += humFreq / float64(o.rate)
		o.phase -= math.Floor(o.phase) // Keep in [0, 1)
	}
	return len(samples), true
}

func (o *positionalOscillator) Err() error { return nil }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
