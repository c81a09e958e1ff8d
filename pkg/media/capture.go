package media

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/pion/webrtc/v3"
	"github.com/pion/webrtc/v3/pkg/media"
	"github.com/voicehub/roomcall/pkg/logger"
)

// ErrMediaUnavailable means a capture device is missing or denied.
var ErrMediaUnavailable = errors.New("media unavailable")

// Capturer opens local capture devices.
type Capturer interface {
	// UserMedia opens a camera and a microphone.
	UserMedia(ctx context.Context) (video, audio *Track, err error)
	// DisplayMedia opens a screen capture.
	DisplayMedia(ctx context.Context) (*Track, error)
}

var (
	VideoCodec = webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8, ClockRate: 90000}
	AudioCodec = webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2}
)

const (
	audioFrame     = 20 * time.Millisecond
	videoFrameSize = 1200
	// the synthetic microphone plays a tone at the rate of a common sound
	// card, its frames are stretched to the sample rate of the call
	deviceRate = 44100
	toneHz     = 440
)

// SyntheticCapturer makes tracks filled with generated samples.
// It stands in for real devices in headless peers.
type SyntheticCapturer struct {
	Fps int
	// SampleRate of the microphone frames, 48000 when not set.
	SampleRate int
	// DenyCamera and DenyScreen emulate a denied permission.
	DenyCamera bool
	DenyScreen bool
	// Delay emulates the time a user takes to answer a permission prompt.
	Delay time.Duration

	Log *logger.Logger
}

func (c *SyntheticCapturer) UserMedia(ctx context.Context) (*Track, *Track, error) {
	if err := c.prompt(ctx); err != nil {
		return nil, nil, err
	}
	if c.DenyCamera {
		return nil, nil, fmt.Errorf("%w: camera permission denied", ErrMediaUnavailable)
	}
	video, err := NewTrack(Camera, VideoCodec)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMediaUnavailable, err)
	}
	audio, err := NewTrack(Microphone, AudioCodec)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMediaUnavailable, err)
	}
	go c.generate(video, c.frameTime(), videoFrameSize)
	go c.generateAudio(audio)
	return video, audio, nil
}

func (c *SyntheticCapturer) DisplayMedia(ctx context.Context) (*Track, error) {
	if err := c.prompt(ctx); err != nil {
		return nil, err
	}
	if c.DenyScreen {
		return nil, fmt.Errorf("%w: screen capture denied", ErrMediaUnavailable)
	}
	screen, err := NewTrack(Screen, VideoCodec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMediaUnavailable, err)
	}
	go c.generate(screen, c.frameTime(), videoFrameSize)
	return screen, nil
}

func (c *SyntheticCapturer) prompt(ctx context.Context) error {
	if c.Delay == 0 {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrMediaUnavailable, err)
		}
		return nil
	}
	select {
	case <-time.After(c.Delay):
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrMediaUnavailable, ctx.Err())
	}
}

func (c *SyntheticCapturer) frameTime() time.Duration {
	fps := c.Fps
	if fps <= 0 {
		fps = 30
	}
	return time.Second / time.Duration(fps)
}

func (c *SyntheticCapturer) sampleRate() int {
	if c.SampleRate <= 0 {
		return 48000
	}
	return c.SampleRate
}

// generateAudio plays a tone into the track until it stops. The device
// samples are stretched to the sample rate and cut into 20ms frames.
func (c *SyntheticCapturer) generateAudio(t *Track) {
	ticker := time.NewTicker(audioFrame)
	defer ticker.Stop()

	frame := c.sampleRate() / 50 * 2
	buf := NewBuffer(frame)
	tone := NewTone(toneHz, deviceRate)
	onFrame := func(s Samples) {
		if err := t.WriteSample(media.Sample{Data: s.Mono8(), Duration: audioFrame}); err != nil && c.Log != nil {
			c.Log.Debug().Err(err).Msgf("%v sample", t.Source())
		}
	}
	for {
		select {
		case <-ticker.C:
			pcm := tone.Read(deviceRate / 50 * 2)
			if len(pcm) != frame {
				pcm = ResampleStretch(pcm, frame)
			}
			buf.Write(pcm, onFrame)
		case <-t.Done():
			return
		}
	}
}

// generate writes random payloads until the track stops.
func (c *SyntheticCapturer) generate(t *Track, every time.Duration, size int) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	data := make([]byte, size)
	for {
		select {
		case <-ticker.C:
			_, _ = rand.Read(data)
			if err := t.WriteSample(media.Sample{Data: data, Duration: every}); err != nil && c.Log != nil {
				c.Log.Debug().Err(err).Msgf("%v sample", t.Source())
			}
		case <-t.Done():
			return
		}
	}
}
