// Package calltest provides in-memory transports for tests of the call stack.
package calltest

import (
	"errors"
	"fmt"
	"sync"

	"github.com/pion/webrtc/v3"
	"github.com/voicehub/roomcall/pkg/api"
	"github.com/voicehub/roomcall/pkg/call"
)

var ErrInjected = errors.New("injected failure")

// BadCandidate is rejected by AddICECandidate.
const BadCandidate = "bad"

// Transport records everything done to it.
// Fail lists the methods that should return ErrInjected.
type Transport struct {
	Peer api.Address
	Fail map[string]bool

	mu          sync.Mutex
	tracks      []webrtc.TrackLocal
	applied     []webrtc.ICECandidateInit
	local       []webrtc.SessionDescription
	remote      []webrtc.SessionDescription
	closed      int
	muted       bool
	onCandidate func(webrtc.ICECandidateInit)
	onState     func(webrtc.PeerConnectionState)
	onTrack     func(string)
}

func (t *Transport) fails(method string) error {
	if t.Fail[method] {
		return fmt.Errorf("%w: %v", ErrInjected, method)
	}
	return nil
}

func (t *Transport) CreateOffer() (webrtc.SessionDescription, error) {
	if err := t.fails("CreateOffer"); err != nil {
		return webrtc.SessionDescription{}, err
	}
	return webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "offer-to-" + string(t.Peer)}, nil
}

func (t *Transport) CreateAnswer() (webrtc.SessionDescription, error) {
	if err := t.fails("CreateAnswer"); err != nil {
		return webrtc.SessionDescription{}, err
	}
	return webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "answer-to-" + string(t.Peer)}, nil
}

func (t *Transport) SetLocalDescription(d webrtc.SessionDescription) error {
	if err := t.fails("SetLocalDescription"); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.local = append(t.local, d)
	return nil
}

func (t *Transport) SetRemoteDescription(d webrtc.SessionDescription) error {
	if err := t.fails("SetRemoteDescription"); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.remote = append(t.remote, d)
	return nil
}

func (t *Transport) AddICECandidate(c webrtc.ICECandidateInit) error {
	if c.Candidate == BadCandidate {
		return fmt.Errorf("%w: candidate", ErrInjected)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.applied = append(t.applied, c)
	return nil
}

func (t *Transport) AddTrack(track webrtc.TrackLocal) error {
	if err := t.fails("AddTrack"); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tracks = append(t.tracks, track)
	return nil
}

func (t *Transport) ReplaceTrack(old, new webrtc.TrackLocal) (bool, error) {
	if err := t.fails("ReplaceTrack"); err != nil {
		return false, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, tr := range t.tracks {
		if tr == old {
			t.tracks[i] = new
			return true, nil
		}
	}
	return false, nil
}

func (t *Transport) OnICECandidate(fn func(webrtc.ICECandidateInit)) {
	t.mu.Lock()
	t.onCandidate = fn
	t.mu.Unlock()
}

func (t *Transport) OnConnectionState(fn func(webrtc.PeerConnectionState)) {
	t.mu.Lock()
	t.onState = fn
	t.mu.Unlock()
}

func (t *Transport) OnTrack(fn func(string)) {
	t.mu.Lock()
	t.onTrack = fn
	t.mu.Unlock()
}

func (t *Transport) MuteRemote(v bool) {
	t.mu.Lock()
	t.muted = v
	t.mu.Unlock()
}

func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed++
	return nil
}

// EmitCandidate plays a local candidate as the transport would.
func (t *Transport) EmitCandidate(c webrtc.ICECandidateInit) {
	t.mu.Lock()
	fn := t.onCandidate
	t.mu.Unlock()
	if fn != nil {
		fn(c)
	}
}

func (t *Transport) EmitState(s webrtc.PeerConnectionState) {
	t.mu.Lock()
	fn := t.onState
	t.mu.Unlock()
	if fn != nil {
		fn(s)
	}
}

func (t *Transport) EmitTrack(kind string) {
	t.mu.Lock()
	fn := t.onTrack
	t.mu.Unlock()
	if fn != nil {
		fn(kind)
	}
}

func (t *Transport) Tracks() []webrtc.TrackLocal {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]webrtc.TrackLocal(nil), t.tracks...)
}

func (t *Transport) Applied() []webrtc.ICECandidateInit {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]webrtc.ICECandidateInit(nil), t.applied...)
}

func (t *Transport) Remote() []webrtc.SessionDescription {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]webrtc.SessionDescription(nil), t.remote...)
}

func (t *Transport) Local() []webrtc.SessionDescription {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]webrtc.SessionDescription(nil), t.local...)
}

func (t *Transport) Closed() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func (t *Transport) Muted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.muted
}

// Factory makes fake transports and remembers them by peer.
type Factory struct {
	// Fail is copied into every new transport.
	Fail map[string]bool
	// Err fails the factory itself.
	Err error

	mu   sync.Mutex
	made map[api.Address][]*Transport
}

func (f *Factory) New(peer api.Address) (call.Transport, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.made == nil {
		f.made = make(map[api.Address][]*Transport)
	}
	t := &Transport{Peer: peer, Fail: f.Fail}
	f.made[peer] = append(f.made[peer], t)
	return t, nil
}

// Last returns the latest transport made for the peer.
func (f *Factory) Last(peer api.Address) *Transport {
	f.mu.Lock()
	defer f.mu.Unlock()
	tt := f.made[peer]
	if len(tt) == 0 {
		return nil
	}
	return tt[len(tt)-1]
}

// Count returns how many transports were made for the peer.
func (f *Factory) Count(peer api.Address) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.made[peer])
}

// Tracks is a fixed TrackSource.
type Tracks struct {
	List []webrtc.TrackLocal
	Err  error
}

func (t *Tracks) OutboundTracks() ([]webrtc.TrackLocal, error) { return t.List, t.Err }
