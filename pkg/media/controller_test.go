package media

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pion/webrtc/v3"
	"github.com/pion/webrtc/v3/pkg/media"
	"github.com/voicehub/roomcall/pkg/logger"
)

type replacement struct{ old, new webrtc.TrackLocal }

type tBus struct {
	calls []replacement
}

func (b *tBus) BroadcastTrackReplacement(old, new webrtc.TrackLocal) int {
	b.calls = append(b.calls, replacement{old, new})
	return 1
}

func newController(t *testing.T, capturer *SyntheticCapturer) (*Controller, *tBus, *[]func()) {
	t.Helper()
	bus := &tBus{}
	var loop []func()
	c := NewController(capturer, bus, func(fn func()) { loop = append(loop, fn) }, logger.Nop())
	t.Cleanup(c.Release)
	return c, bus, &loop
}

func TestAcquire(t *testing.T) {
	c, _, _ := newController(t, &SyntheticCapturer{})

	if _, err := c.OutboundTracks(); !errors.Is(err, ErrMediaUnavailable) {
		t.Errorf("tracks before acquire: %v", err)
	}
	if err := c.Acquire(context.Background()); err != nil {
		t.Fatal(err)
	}
	camera := c.Camera()
	if err := c.Acquire(context.Background()); err != nil || c.Camera() != camera {
		t.Errorf("second acquire replaced the camera")
	}
	tracks, err := c.OutboundTracks()
	if err != nil || len(tracks) != 2 || tracks[0] != camera.Local() || tracks[1] != c.Mic().Local() {
		t.Errorf("OutboundTracks() = %v, %v", tracks, err)
	}
}

func TestAcquireDenied(t *testing.T) {
	c, _, _ := newController(t, &SyntheticCapturer{DenyCamera: true})
	if err := c.Acquire(context.Background()); !errors.Is(err, ErrMediaUnavailable) {
		t.Errorf("got %v", err)
	}
	if _, err := c.ToggleMic(); !errors.Is(err, ErrMediaUnavailable) {
		t.Errorf("toggle without a mic: %v", err)
	}
}

func TestAcquireCanceled(t *testing.T) {
	c, _, _ := newController(t, &SyntheticCapturer{Delay: time.Minute})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.Acquire(ctx); !errors.Is(err, ErrMediaUnavailable) {
		t.Errorf("got %v", err)
	}
}

func TestToggleKeepsIdentity(t *testing.T) {
	c, bus, _ := newController(t, &SyntheticCapturer{})
	_ = c.Acquire(context.Background())
	before, _ := c.OutboundTracks()

	on, err := c.ToggleMic()
	if err != nil || on {
		t.Fatalf("ToggleMic() = %v, %v", on, err)
	}
	on, _ = c.ToggleCam()
	if on || c.Camera().Enabled() {
		t.Errorf("camera is still on")
	}
	on, _ = c.ToggleMic()
	if !on {
		t.Errorf("mic is still off")
	}

	after, _ := c.OutboundTracks()
	if before[0] != after[0] || before[1] != after[1] {
		t.Errorf("toggle changed the tracks")
	}
	if len(bus.calls) != 0 {
		t.Errorf("toggle caused a track replacement")
	}
}

func TestScreenShare(t *testing.T) {
	c, bus, _ := newController(t, &SyntheticCapturer{})
	_ = c.Acquire(context.Background())
	camera := c.Camera()

	if err := c.StartScreenShare(context.Background()); err != nil {
		t.Fatal(err)
	}
	screen := c.Video()
	if screen == camera || !c.IsSharing() {
		t.Fatalf("screen is not active")
	}
	if len(bus.calls) != 1 || bus.calls[0].old != camera.Local() || bus.calls[0].new != screen.Local() {
		t.Errorf("broadcast %+v", bus.calls)
	}
	// new sessions get the screen
	tracks, _ := c.OutboundTracks()
	if tracks[0] != screen.Local() {
		t.Errorf("new sessions would get the camera")
	}

	_ = c.StartScreenShare(context.Background())
	if c.Video() != screen || len(bus.calls) != 1 {
		t.Errorf("second share replaced the screen")
	}

	c.StopScreenShare()
	if c.IsSharing() || c.Video() != camera || screen.IsLive() {
		t.Errorf("camera is not restored")
	}
	if len(bus.calls) != 2 || bus.calls[1].old != screen.Local() || bus.calls[1].new != camera.Local() {
		t.Errorf("broadcast %+v", bus.calls)
	}
	if !camera.IsLive() {
		t.Errorf("camera was stopped")
	}
}

func TestScreenShareDenied(t *testing.T) {
	c, bus, _ := newController(t, &SyntheticCapturer{DenyScreen: true})
	_ = c.Acquire(context.Background())

	if err := c.StartScreenShare(context.Background()); !errors.Is(err, ErrMediaUnavailable) {
		t.Errorf("got %v", err)
	}
	if c.IsSharing() || len(bus.calls) != 0 {
		t.Errorf("denied share touched the sessions")
	}
}

func TestScreenEndedByUser(t *testing.T) {
	c, bus, loop := newController(t, &SyntheticCapturer{})
	_ = c.Acquire(context.Background())
	_ = c.StartScreenShare(context.Background())
	screen := c.Video()

	screen.End()
	screen.End()
	if len(*loop) != 1 {
		t.Fatalf("ended hook ran %v times", len(*loop))
	}
	if !c.IsSharing() {
		t.Errorf("restore should wait for the loop")
	}
	(*loop)[0]()
	if c.IsSharing() || c.Video() != c.Camera() || len(bus.calls) != 2 {
		t.Errorf("camera is not restored")
	}
}

func TestStaleScreenEnd(t *testing.T) {
	c, bus, loop := newController(t, &SyntheticCapturer{})
	_ = c.Acquire(context.Background())
	_ = c.StartScreenShare(context.Background())
	first := c.Video()
	c.StopScreenShare()
	_ = c.StartScreenShare(context.Background())
	second := c.Video()

	// the hook of a stopped track never fires
	first.End()
	if len(*loop) != 0 {
		t.Fatalf("stopped track fired its hook")
	}
	// a late restore for the first screen is ignored
	c.stopScreen(first)
	if c.Video() != second || len(bus.calls) != 3 {
		t.Errorf("old screen end broke the current share")
	}
}

func TestScreenEndedBeforeUse(t *testing.T) {
	c, bus, loop := newController(t, &SyntheticCapturer{})
	_ = c.Acquire(context.Background())
	screen, err := c.Capturer().DisplayMedia(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	// the user stops sharing while the capture is on its way
	screen.End()
	if err := c.UseScreen(screen); !errors.Is(err, ErrMediaUnavailable) {
		t.Errorf("UseScreen() = %v", err)
	}
	if c.IsSharing() || c.Video() != c.Camera() || len(bus.calls) != 0 || len(*loop) != 0 {
		t.Errorf("ended screen was shared")
	}
}

func TestOnEndedAfterEnd(t *testing.T) {
	tests := []struct {
		name string
		stop func(*Track)
		want int
	}{
		{name: "ended", stop: (*Track).End, want: 1},
		{name: "stopped", stop: (*Track).Stop, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			track, err := NewTrack(Screen, VideoCodec)
			if err != nil {
				t.Fatal(err)
			}
			tt.stop(track)
			calls := 0
			track.OnEnded(func() { calls++ })
			track.End()
			if calls != tt.want {
				t.Errorf("hook ran %v times, want %v", calls, tt.want)
			}
		})
	}
}

func TestRelease(t *testing.T) {
	c, _, _ := newController(t, &SyntheticCapturer{})
	_ = c.Acquire(context.Background())
	_ = c.StartScreenShare(context.Background())
	camera, mic, screen := c.Camera(), c.Mic(), c.Video()

	c.Release()
	for _, tr := range []*Track{camera, mic, screen} {
		if tr.IsLive() {
			t.Errorf("%v is live", tr.Source())
		}
	}
	if c.HasUserMedia() || c.IsSharing() {
		t.Errorf("tracks were kept")
	}
}

func TestTrackWriteSample(t *testing.T) {
	tr, err := NewTrack(Microphone, AudioCodec)
	if err != nil {
		t.Fatal(err)
	}
	if tr.Kind() != webrtc.RTPCodecTypeAudio {
		t.Errorf("kind %v", tr.Kind())
	}
	tr.SetEnabled(false)
	if err := tr.WriteSample(media.Sample{Data: []byte{1}, Duration: time.Millisecond}); err != nil {
		t.Errorf("disabled write: %v", err)
	}
	tr.Stop()
	if err := tr.WriteSample(media.Sample{Data: []byte{1}, Duration: time.Millisecond}); err != nil {
		t.Errorf("stopped write: %v", err)
	}
}
