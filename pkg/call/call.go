// Package call keeps one negotiated transport session per remote participant.
//
// Sessions are not safe for concurrent use. They are owned by a single
// event loop and every transport callback has to be posted back into it,
// see Registry.
package call

import (
	"errors"

	"github.com/pion/webrtc/v3"
	"github.com/voicehub/roomcall/pkg/api"
)

var (
	// ErrSignalingProtocol marks malformed or out-of-sequence signals.
	// Such signals are logged and dropped, the session is kept.
	ErrSignalingProtocol = errors.New("signaling protocol error")
	// ErrNegotiationFailure marks a transport that rejected a description.
	// The session is evicted after it.
	ErrNegotiationFailure = errors.New("negotiation failure")
	// ErrTransportClosed marks an event for a session that is already gone.
	ErrTransportClosed = errors.New("transport closed")
)

// Transport is a negotiable peer-to-peer media connection.
type Transport interface {
	CreateOffer() (webrtc.SessionDescription, error)
	CreateAnswer() (webrtc.SessionDescription, error)
	SetLocalDescription(webrtc.SessionDescription) error
	SetRemoteDescription(webrtc.SessionDescription) error
	AddICECandidate(webrtc.ICECandidateInit) error
	AddTrack(webrtc.TrackLocal) error
	// ReplaceTrack swaps the track of the sender that carries old,
	// false means there is no such sender.
	ReplaceTrack(old, new webrtc.TrackLocal) (bool, error)
	OnICECandidate(func(webrtc.ICECandidateInit))
	OnConnectionState(func(webrtc.PeerConnectionState))
	OnTrack(func(kind string))
	MuteRemote(bool)
	Close() error
}

// TransportFactory makes a new transport toward a peer.
type TransportFactory func(peer api.Address) (Transport, error)

// TrackSource gives the local tracks every new session should send.
type TrackSource interface {
	OutboundTracks() ([]webrtc.TrackLocal, error)
}

// Signaler sends signals to peers.
type Signaler interface {
	Send(to api.Address, m api.Message) error
}

// Listener receives session lifecycle events on the owner loop.
type Listener interface {
	OnSessionConnected(s *Session)
	OnSessionFailed(s *Session, err error)
	OnRemoteTrack(s *Session, kind string)
}

type Role uint8

const (
	Responder Role = iota
	Initiator
)

func (r Role) String() string {
	if r == Initiator {
		return "initiator"
	}
	return "responder"
}

type State uint8

const (
	Idle State = iota
	OfferSent
	// AnswerAwaited is an initiator that buffers candidates of the peer
	// while its offer is still unanswered.
	AnswerAwaited
	OfferReceived
	AnswerSent
	Connected
	Closed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case OfferSent:
		return "offer-sent"
	case AnswerAwaited:
		return "answer-awaited"
	case OfferReceived:
		return "offer-received"
	case AnswerSent:
		return "answer-sent"
	case Connected:
		return "connected"
	case Closed:
		return "closed"
	}
	return "unknown"
}

// IsOfferOutstanding tells if our own offer is still unanswered.
func (s State) IsOfferOutstanding() bool { return s == OfferSent || s == AnswerAwaited }
