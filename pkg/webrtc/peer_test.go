package webrtc

import (
	"sync"
	"testing"
	"time"

	"github.com/pion/webrtc/v3"
	"github.com/voicehub/roomcall/pkg/call"
	conf "github.com/voicehub/roomcall/pkg/config/webrtc"
	"github.com/voicehub/roomcall/pkg/logger"
)

var _ call.Transport = (*Peer)(nil)

func newVideo(t *testing.T, id string) webrtc.TrackLocal {
	t.Helper()
	tr, err := webrtc.NewTrackLocalStaticSample(webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8}, id, "test")
	if err != nil {
		t.Fatal(err)
	}
	return tr
}

func newPeers(t *testing.T) (*Peer, *Peer) {
	t.Helper()
	api, err := NewApiFactory(conf.Webrtc{LogLevel: int(logger.Disabled)}, logger.Nop(), WithLoopback())
	if err != nil {
		t.Fatal(err)
	}
	a, err := NewPeer(api, logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewPeer(api, logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = a.Close(); _ = b.Close() })
	return a, b
}

func TestPeerNegotiation(t *testing.T) {
	if testing.Short() {
		t.Skip("real ICE")
	}
	a, b := newPeers(t)

	camera := newVideo(t, "camera")
	if err := a.AddTrack(camera); err != nil {
		t.Fatal(err)
	}
	if err := b.AddTrack(newVideo(t, "camera-b")); err != nil {
		t.Fatal(err)
	}

	connected := make(chan struct{})
	var once sync.Once
	b.OnConnectionState(func(s webrtc.PeerConnectionState) {
		if s == webrtc.PeerConnectionStateConnected {
			once.Do(func() { close(connected) })
		}
	})
	a.OnConnectionState(func(webrtc.PeerConnectionState) {})
	a.OnTrack(func(string) {})
	b.OnTrack(func(string) {})

	toA, toB := make(chan webrtc.ICECandidateInit, 32), make(chan webrtc.ICECandidateInit, 32)
	a.OnICECandidate(func(c webrtc.ICECandidateInit) { toB <- c })
	b.OnICECandidate(func(c webrtc.ICECandidateInit) { toA <- c })

	offer, err := a.CreateOffer()
	if err != nil {
		t.Fatal(err)
	}
	if err = a.SetLocalDescription(offer); err != nil {
		t.Fatal(err)
	}
	if err = b.SetRemoteDescription(offer); err != nil {
		t.Fatal(err)
	}
	answer, err := b.CreateAnswer()
	if err != nil {
		t.Fatal(err)
	}
	if err = b.SetLocalDescription(answer); err != nil {
		t.Fatal(err)
	}
	if err = a.SetRemoteDescription(answer); err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	defer close(done)
	pump := func(p *Peer, in chan webrtc.ICECandidateInit) {
		for {
			select {
			case c := <-in:
				_ = p.AddICECandidate(c)
			case <-done:
				return
			}
		}
	}
	go pump(a, toA)
	go pump(b, toB)

	select {
	case <-connected:
	case <-time.After(15 * time.Second):
		t.Fatalf("no connection, state %v", b.ConnectionState())
	}

	screen := newVideo(t, "screen")
	ok, err := a.ReplaceTrack(camera, screen)
	if err != nil || !ok {
		t.Errorf("ReplaceTrack() = %v, %v", ok, err)
	}
	ok, err = a.ReplaceTrack(camera, screen)
	if err != nil || ok {
		t.Errorf("camera is still in a sender: %v, %v", ok, err)
	}
}

func TestPeerClose(t *testing.T) {
	a, _ := newPeers(t)
	for i := 0; i < 2; i++ {
		if err := a.Close(); err != nil {
			t.Errorf("Close() #%v = %v", i, err)
		}
	}
	if a.ConnectionState() != webrtc.PeerConnectionStateClosed {
		t.Errorf("state %v", a.ConnectionState())
	}
}

func TestReplaceMissingTrack(t *testing.T) {
	a, _ := newPeers(t)
	_ = a.AddTrack(newVideo(t, "camera"))
	ok, err := a.ReplaceTrack(newVideo(t, "other"), newVideo(t, "screen"))
	if ok || err != nil {
		t.Errorf("ReplaceTrack() = %v, %v", ok, err)
	}
}
