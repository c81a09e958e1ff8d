package media

import (
	"context"
	"fmt"

	"github.com/pion/webrtc/v3"
	"github.com/voicehub/roomcall/pkg/logger"
)

// Broadcaster swaps an outbound track in every live session.
type Broadcaster interface {
	BroadcastTrackReplacement(old, new webrtc.TrackLocal) int
}

// Controller owns the local tracks of a call: camera, microphone and
// an optional screen that replaces the camera while it is shared.
//
// It is not safe for concurrent use. Blocking capture is split from
// the state change, so an owner loop can capture with the Capturer
// on another goroutine and apply the result with UseUserMedia or UseScreen.
type Controller struct {
	capturer Capturer
	bus      Broadcaster
	// schedule runs fn on the owner loop
	schedule func(fn func())

	camera *Track
	mic    *Track
	screen *Track

	onScreenEnded func()

	log *logger.Logger
}

func NewController(capturer Capturer, bus Broadcaster, schedule func(func()), log *logger.Logger) *Controller {
	if schedule == nil {
		schedule = func(fn func()) { fn() }
	}
	return &Controller{
		capturer: capturer,
		bus:      bus,
		schedule: schedule,
		log:      log.Extend(log.With().Str(logger.ModField, "media")),
	}
}

func (c *Controller) Capturer() Capturer { return c.capturer }

// SetBroadcaster sets the sessions to update on screen share.
func (c *Controller) SetBroadcaster(bus Broadcaster) { c.bus = bus }

// OnScreenEnded sets a hook that runs in the owner loop after the camera
// has been restored because the screen capture ended on its own.
func (c *Controller) OnScreenEnded(fn func()) { c.onScreenEnded = fn }

// Acquire opens the camera and the microphone once.
func (c *Controller) Acquire(ctx context.Context) error {
	if c.HasUserMedia() {
		return nil
	}
	video, audio, err := c.capturer.UserMedia(ctx)
	if err != nil {
		return err
	}
	c.UseUserMedia(video, audio)
	return nil
}

// UseUserMedia keeps the tracks of a finished capture.
// Tracks of a second capture are stopped.
func (c *Controller) UseUserMedia(video, audio *Track) {
	if c.HasUserMedia() {
		video.Stop()
		audio.Stop()
		return
	}
	c.camera, c.mic = video, audio
	c.log.Info().Msg("Camera and microphone are on")
}

func (c *Controller) HasUserMedia() bool { return c.camera != nil && c.mic != nil }

// ToggleMic flips the microphone and returns its new state.
// The track stays the same so no session needs a renegotiation.
func (c *Controller) ToggleMic() (bool, error) { return toggle(c.mic) }

// ToggleCam flips the camera and returns its new state.
func (c *Controller) ToggleCam() (bool, error) { return toggle(c.camera) }

func toggle(t *Track) (bool, error) {
	if t == nil {
		return false, fmt.Errorf("%w: no track", ErrMediaUnavailable)
	}
	t.SetEnabled(!t.Enabled())
	return t.Enabled(), nil
}

func (c *Controller) IsSharing() bool { return c.screen != nil }

// StartScreenShare captures the screen and puts it instead of the camera
// in every session. Failed capture leaves the sessions untouched.
func (c *Controller) StartScreenShare(ctx context.Context) error {
	if c.IsSharing() {
		return nil
	}
	screen, err := c.capturer.DisplayMedia(ctx)
	if err != nil {
		return err
	}
	return c.UseScreen(screen)
}

// UseScreen puts a captured screen instead of the camera.
// When the screen capture ends on its own the camera is restored
// through the owner loop.
func (c *Controller) UseScreen(screen *Track) error {
	if c.IsSharing() {
		screen.Stop()
		return nil
	}
	if !c.HasUserMedia() {
		screen.Stop()
		return fmt.Errorf("%w: no camera to replace", ErrMediaUnavailable)
	}
	if !screen.IsLive() {
		return fmt.Errorf("%w: screen capture has ended", ErrMediaUnavailable)
	}
	c.screen = screen
	n := c.broadcast(c.camera, screen)
	screen.OnEnded(func() {
		c.schedule(func() {
			if c.stopScreen(screen) && c.onScreenEnded != nil {
				c.onScreenEnded()
			}
		})
	})
	c.log.Info().Msgf("Screen sharing is on for %v sessions", n)
	return nil
}

// StopScreenShare puts the camera back.
func (c *Controller) StopScreenShare() { c.stopScreen(c.screen) }

func (c *Controller) stopScreen(screen *Track) bool {
	// an old screen may end after a new share has started
	if screen == nil || c.screen != screen {
		return false
	}
	c.screen = nil
	n := c.broadcast(screen, c.camera)
	screen.Stop()
	c.log.Info().Msgf("Screen sharing is off for %v sessions", n)
	return true
}

func (c *Controller) broadcast(old, new *Track) int {
	if c.bus == nil {
		return 0
	}
	return c.bus.BroadcastTrackReplacement(old.Local(), new.Local())
}

// Video returns the active video track: the screen while sharing.
func (c *Controller) Video() *Track {
	if c.screen != nil {
		return c.screen
	}
	return c.camera
}

func (c *Controller) Mic() *Track    { return c.mic }
func (c *Controller) Camera() *Track { return c.camera }

// OutboundTracks returns the tracks a new session should send.
func (c *Controller) OutboundTracks() ([]webrtc.TrackLocal, error) {
	if !c.HasUserMedia() {
		return nil, fmt.Errorf("%w: no camera or microphone", ErrMediaUnavailable)
	}
	return []webrtc.TrackLocal{c.Video().Local(), c.mic.Local()}, nil
}

// Release stops every local track.
func (c *Controller) Release() {
	for _, t := range []*Track{c.screen, c.camera, c.mic} {
		if t != nil {
			t.Stop()
		}
	}
	c.screen, c.camera, c.mic = nil, nil, nil
}
