package call

import (
	"fmt"

	"github.com/pion/webrtc/v3"
	"github.com/voicehub/roomcall/pkg/api"
	"github.com/voicehub/roomcall/pkg/logger"
	"github.com/voicehub/roomcall/pkg/monitoring"
)

// Session negotiates one transport with one remote participant.
type Session struct {
	peer      api.Address
	role      Role
	state     State
	transport Transport
	signal    Signaler

	// remote candidates that came before the remote description
	pending   []webrtc.ICECandidateInit
	remoteSet bool
	connected bool

	log *logger.Logger
}

func NewSession(peer api.Address, role Role, t Transport, signal Signaler, log *logger.Logger) *Session {
	return &Session{
		peer:      peer,
		role:      role,
		transport: t,
		signal:    signal,
		log:       log.Extend(log.With().Str(logger.PeerField, peer.Short())),
	}
}

func (s *Session) Peer() api.Address    { return s.peer }
func (s *Session) Role() Role           { return s.role }
func (s *Session) State() State         { return s.state }
func (s *Session) Pending() int         { return len(s.pending) }
func (s *Session) Transport() Transport { return s.transport }
func (s *Session) IsClosed() bool       { return s.state == Closed }

func (s *Session) String() string { return fmt.Sprintf("%v/%v/%v", s.peer.Short(), s.role, s.state) }

func (s *Session) setState(state State) {
	if s.state == state {
		return
	}
	s.log.Debug().Str(logger.StateField, state.String()).Msgf("%v → %v", s.state, state)
	s.state = state
}

// Initiate sends our offer to the peer.
func (s *Session) Initiate() error {
	if s.state != Idle {
		return s.outOfSequence("initiate")
	}
	offer, err := s.transport.CreateOffer()
	if err != nil {
		return s.failed("create offer", err)
	}
	if err = s.transport.SetLocalDescription(offer); err != nil {
		return s.failed("set local offer", err)
	}
	s.role = Initiator
	s.setState(OfferSent)
	return s.signal.Send(s.peer, api.Offer{Sdp: offer.SDP})
}

// HandleOffer answers an offer of the peer.
// An offer for an established session is a renegotiation
// that is answered in place.
func (s *Session) HandleOffer(sdp string) error {
	renegotiation := false
	switch s.state {
	case Idle:
	case Connected, AnswerSent:
		renegotiation = true
	default:
		return s.outOfSequence("offer")
	}

	if err := s.transport.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: sdp}); err != nil {
		return s.failed("set remote offer", err)
	}
	s.remoteSet = true
	if !renegotiation {
		s.role = Responder
		s.setState(OfferReceived)
	}
	s.flush()

	answer, err := s.transport.CreateAnswer()
	if err != nil {
		return s.failed("create answer", err)
	}
	if err = s.transport.SetLocalDescription(answer); err != nil {
		return s.failed("set local answer", err)
	}
	if !renegotiation {
		s.setState(AnswerSent)
		if s.connected {
			s.setState(Connected)
		}
	}
	return s.signal.Send(s.peer, api.Answer{Sdp: answer.SDP})
}

// HandleAnswer applies the answer to our offer.
func (s *Session) HandleAnswer(sdp string) error {
	if !s.state.IsOfferOutstanding() {
		return s.outOfSequence("answer")
	}
	if err := s.transport.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: sdp}); err != nil {
		return s.failed("set remote answer", err)
	}
	s.remoteSet = true
	s.flush()
	s.setState(Connected)
	return nil
}

// HandleCandidate applies a remote candidate or keeps it
// until the remote description is set.
func (s *Session) HandleCandidate(c webrtc.ICECandidateInit) error {
	if s.state == Closed {
		return fmt.Errorf("%w: candidate for %v", ErrTransportClosed, s.peer)
	}
	if !s.remoteSet {
		s.pending = append(s.pending, c)
		monitoring.Candidates.WithLabelValues(monitoring.DirBuffered).Inc()
		if s.state == OfferSent {
			s.setState(AnswerAwaited)
		}
		return nil
	}
	if err := s.transport.AddICECandidate(c); err != nil {
		return fmt.Errorf("%w: bad candidate: %v", ErrSignalingProtocol, err)
	}
	monitoring.Candidates.WithLabelValues(monitoring.DirApplied).Inc()
	return nil
}

// flush applies buffered candidates in the order of arrival.
func (s *Session) flush() {
	if len(s.pending) == 0 {
		return
	}
	s.log.Debug().Msgf("Applying %v buffered candidates", len(s.pending))
	for _, c := range s.pending {
		if err := s.transport.AddICECandidate(c); err != nil {
			s.log.Warn().Err(err).Msg("buffered candidate")
			continue
		}
		monitoring.Candidates.WithLabelValues(monitoring.DirApplied).Inc()
	}
	s.pending = nil
}

// SendCandidate forwards a local candidate to the peer.
func (s *Session) SendCandidate(c webrtc.ICECandidateInit) error {
	if s.state == Closed {
		return fmt.Errorf("%w: local candidate for %v", ErrTransportClosed, s.peer)
	}
	monitoring.Candidates.WithLabelValues(monitoring.DirLocal).Inc()
	return s.signal.Send(s.peer, api.Candidate{Candidate: c})
}

// HandleTransportState tracks the state reported by the transport.
// Returns ErrNegotiationFailure when the transport is lost.
func (s *Session) HandleTransportState(state webrtc.PeerConnectionState) error {
	if s.state == Closed {
		return nil
	}
	switch state {
	case webrtc.PeerConnectionStateConnected:
		if s.connected {
			return nil
		}
		s.connected = true
		monitoring.Negotiations.WithLabelValues(monitoring.ResultConnected).Inc()
		if s.state == AnswerSent {
			s.setState(Connected)
		}
		s.log.Info().Msg("Connected")
	case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed:
		monitoring.Negotiations.WithLabelValues(monitoring.ResultFailed).Inc()
		return fmt.Errorf("%w: transport %v", ErrNegotiationFailure, state)
	default:
		s.log.Debug().Msgf("transport %v", state)
	}
	return nil
}

// IsTransportConnected tells if the transport has reported connected at least once.
func (s *Session) IsTransportConnected() bool { return s.connected }

// Close closes the transport. It is safe to call it more than once.
func (s *Session) Close() error {
	if s.state == Closed {
		return nil
	}
	s.setState(Closed)
	s.pending = nil
	return s.transport.Close()
}

func (s *Session) outOfSequence(what string) error {
	if s.state == Closed {
		return fmt.Errorf("%w: %v for %v", ErrTransportClosed, what, s.peer)
	}
	return fmt.Errorf("%w: %v in %v", ErrSignalingProtocol, what, s.state)
}

func (s *Session) failed(what string, err error) error {
	return fmt.Errorf("%w: %v: %v", ErrNegotiationFailure, what, err)
}
