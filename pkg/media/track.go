package media

import (
	"sync"
	"sync/atomic"

	"github.com/pion/webrtc/v3"
	"github.com/pion/webrtc/v3/pkg/media"
)

type Source string

const (
	Camera     Source = "camera"
	Microphone Source = "mic"
	Screen     Source = "screen"
)

// Track is a local media track with an enabled flag and a lifetime.
// A disabled track keeps its identity and its senders, it just stops
// writing samples.
type Track struct {
	local  *webrtc.TrackLocalStaticSample
	source Source

	enabled atomic.Bool

	done    chan struct{}
	stop    sync.Once
	mu      sync.Mutex
	onEnded func()
	ended   bool
}

func NewTrack(source Source, codec webrtc.RTPCodecCapability) (*Track, error) {
	local, err := webrtc.NewTrackLocalStaticSample(codec, string(source), "roomcall")
	if err != nil {
		return nil, err
	}
	t := &Track{local: local, source: source, done: make(chan struct{})}
	t.enabled.Store(true)
	return t, nil
}

func (t *Track) Local() webrtc.TrackLocal { return t.local }
func (t *Track) Source() Source           { return t.source }
func (t *Track) Kind() webrtc.RTPCodecType {
	if t.source == Microphone {
		return webrtc.RTPCodecTypeAudio
	}
	return webrtc.RTPCodecTypeVideo
}

func (t *Track) Enabled() bool     { return t.enabled.Load() }
func (t *Track) SetEnabled(v bool) { t.enabled.Store(v) }

// Done is closed when the track stops.
func (t *Track) Done() <-chan struct{} { return t.done }

func (t *Track) IsLive() bool {
	select {
	case <-t.done:
		return false
	default:
		return true
	}
}

// WriteSample sends a sample unless the track is disabled or stopped.
func (t *Track) WriteSample(s media.Sample) error {
	if !t.Enabled() || !t.IsLive() {
		return nil
	}
	return t.local.WriteSample(s)
}

// OnEnded sets a hook that runs once when the source of the track
// ends on its own (e.g. the user stops sharing the screen).
// A source that has already ended runs fn right away.
func (t *Track) OnEnded(fn func()) {
	t.mu.Lock()
	if t.ended {
		t.mu.Unlock()
		fn()
		return
	}
	t.onEnded = fn
	t.mu.Unlock()
}

// Stop stops the track without the ended hook.
func (t *Track) Stop() { t.stop.Do(func() { close(t.done) }) }

// End stops the track as if its source has ended, the hook runs at most once.
func (t *Track) End() {
	ended := false
	t.stop.Do(func() { close(t.done); ended = true })
	if !ended {
		return
	}
	t.mu.Lock()
	t.ended = true
	fn := t.onEnded
	t.onEnded = nil
	t.mu.Unlock()
	if fn != nil {
		fn()
	}
}
