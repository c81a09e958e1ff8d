package webrtc

import (
	"io"
	"sync/atomic"

	"github.com/pion/webrtc/v3"
	"github.com/voicehub/roomcall/pkg/logger"
)

// Peer is a pion PeerConnection toward one remote participant.
type Peer struct {
	conn  *webrtc.PeerConnection
	log   *logger.Logger
	muted atomic.Bool

	// bytes of remote media consumed, for stats
	received atomic.Uint64
}

func NewPeer(api *ApiFactory, log *logger.Logger) (*Peer, error) {
	conn, err := api.NewPeerConnection()
	if err != nil {
		return nil, err
	}
	return &Peer{conn: conn, log: log}, nil
}

func (p *Peer) CreateOffer() (webrtc.SessionDescription, error) { return p.conn.CreateOffer(nil) }

func (p *Peer) CreateAnswer() (webrtc.SessionDescription, error) { return p.conn.CreateAnswer(nil) }

func (p *Peer) SetLocalDescription(d webrtc.SessionDescription) error {
	return p.conn.SetLocalDescription(d)
}

func (p *Peer) SetRemoteDescription(d webrtc.SessionDescription) error {
	if err := p.conn.SetRemoteDescription(d); err != nil {
		p.log.Error().Err(err).Msgf("Set remote %v failed", d.Type)
		return err
	}
	p.log.Debug().Msgf("Set remote %v", d.Type)
	return nil
}

func (p *Peer) AddICECandidate(c webrtc.ICECandidateInit) error {
	if err := p.conn.AddICECandidate(c); err != nil {
		return err
	}
	p.log.Debug().Str("candidate", c.Candidate).Msg("ICE")
	return nil
}

// AddTrack adds a local track with its own sender.
func (p *Peer) AddTrack(t webrtc.TrackLocal) error {
	sender, err := p.conn.AddTrack(t)
	if err != nil {
		return err
	}
	// Read incoming RTCP packets
	go func() {
		rtcpBuf := make([]byte, 1500)
		for {
			if _, _, err := sender.Read(rtcpBuf); err != nil {
				return
			}
		}
	}()
	p.log.Debug().Msgf("Added [%s] track", t.Kind())
	return nil
}

// ReplaceTrack puts new into the sender that carries old.
func (p *Peer) ReplaceTrack(old, new webrtc.TrackLocal) (bool, error) {
	for _, sender := range p.conn.GetSenders() {
		if sender.Track() != old {
			continue
		}
		if err := sender.ReplaceTrack(new); err != nil {
			return false, err
		}
		p.log.Debug().Msgf("Replaced [%s] track %v → %v", new.Kind(), old.ID(), new.ID())
		return true, nil
	}
	return false, nil
}

func (p *Peer) OnICECandidate(fn func(webrtc.ICECandidateInit)) {
	p.conn.OnICECandidate(func(ice *webrtc.ICECandidate) {
		// ICE gathering finish condition
		if ice == nil {
			p.log.Debug().Msg("ICE gathering was complete probably")
			return
		}
		fn(ice.ToJSON())
	})
}

func (p *Peer) OnConnectionState(fn func(webrtc.PeerConnectionState)) {
	p.conn.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		p.log.Debug().Str(logger.StateField, state.String()).Msg("WebRTC")
		fn(state)
	})
}

// OnTrack reports remote tracks. Their media is consumed and dropped,
// playback belongs to a UI.
func (p *Peer) OnTrack(fn func(kind string)) {
	p.conn.OnTrack(func(remote *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		kind := remote.Kind().String()
		p.log.Debug().Msgf("Remote [%s] track %v", kind, remote.Codec().MimeType)
		fn(kind)
		go p.consume(remote)
	})
}

func (p *Peer) consume(remote *webrtc.TrackRemote) {
	buf := make([]byte, 1500)
	audio := remote.Kind() == webrtc.RTPCodecTypeAudio
	for {
		n, _, err := remote.Read(buf)
		if err != nil {
			if err != io.EOF {
				p.log.Debug().Err(err).Msg("remote track")
			}
			return
		}
		if audio && p.muted.Load() {
			continue
		}
		p.received.Add(uint64(n))
	}
}

// MuteRemote stops the local playback of the remote audio.
func (p *Peer) MuteRemote(v bool) { p.muted.Store(v) }

func (p *Peer) Received() uint64 { return p.received.Load() }

func (p *Peer) ConnectionState() webrtc.PeerConnectionState { return p.conn.ConnectionState() }

func (p *Peer) Close() error {
	if p.conn == nil {
		return nil
	}
	if p.conn.ConnectionState() == webrtc.PeerConnectionStateClosed {
		return nil
	}
	return p.conn.Close()
}
