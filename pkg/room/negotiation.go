package room

import (
	"errors"

	"github.com/voicehub/roomcall/pkg/api"
	"github.com/voicehub/roomcall/pkg/call"
	"github.com/voicehub/roomcall/pkg/com"
	conf "github.com/voicehub/roomcall/pkg/config/peer"
	"github.com/voicehub/roomcall/pkg/logger"
	"github.com/voicehub/roomcall/pkg/media"
	"github.com/voicehub/roomcall/pkg/monitoring"
)

// roleFor picks our role toward a peer.
// fromRoster tells that we have got the peer in the room roster,
// the legacy rule makes that side offer.
func (c *Coordinator) roleFor(peer api.Address, fromRoster bool) call.Role {
	if c.opts.Tiebreak == conf.TiebreakRoster || c.self.IsEmpty() {
		if fromRoster {
			return call.Initiator
		}
		return call.Responder
	}
	if c.self.Less(peer) {
		return call.Initiator
	}
	return call.Responder
}

// winsGlare tells if our offer beats the offer of the peer.
// Addresses give the same answer on both sides whatever the policy.
func (c *Coordinator) winsGlare(peer api.Address) bool {
	if c.self.IsEmpty() {
		return false
	}
	return c.self.Less(peer)
}

func (c *Coordinator) onRoster(users []api.Participant) {
	if c.roomId == "" {
		c.log.Warn().Err(call.ErrSignalingProtocol).Msg("roster outside of a room")
		return
	}
	for _, u := range users {
		if u.Address == c.self {
			continue
		}
		c.participants[u.Address] = u
		c.connect(u.Address, c.roleFor(u.Address, true))
	}
	c.participantsChanged()
}

func (c *Coordinator) onJoined(p api.Participant) {
	if p.Address == c.self || c.roomId == "" {
		return
	}
	c.participants[p.Address] = p
	c.participantsChanged()
	c.connect(p.Address, c.roleFor(p.Address, false))
}

func (c *Coordinator) onLeft(peer api.Address) {
	_, known := c.participants[peer]
	delete(c.participants, peer)
	delete(c.roles, peer)
	delete(c.retries, peer)
	delete(c.remoteMuted, peer)
	c.registry.Remove(peer)
	if known {
		c.participantsChanged()
	}
}

// connect makes a session with the role, initiators send their offer
// right away and responders wait for one.
func (c *Coordinator) connect(peer api.Address, role call.Role) {
	c.roles[peer] = role
	s, _, err := c.ensure(peer, role)
	if err != nil || role != call.Initiator {
		return
	}
	// an idle session with buffered candidates waits for an offer that is on its way
	if s.State() == call.Idle && s.Pending() == 0 {
		c.check(s, s.Initiate())
	}
}

func (c *Coordinator) ensure(peer api.Address, role call.Role) (*call.Session, bool, error) {
	s, created, err := c.registry.Ensure(peer, role)
	if err != nil {
		if errors.Is(err, media.ErrMediaUnavailable) {
			c.emit(Event{Type: MediaUnavailable, Peer: peer, Err: err})
		}
		c.log.Warn().Err(err).Str(logger.PeerField, peer.Short()).Msg("no session")
		return nil, false, err
	}
	if created && c.remoteMuted[peer] {
		s.Transport().MuteRemote(true)
	}
	return s, created, nil
}

func (c *Coordinator) onOffer(peer api.Address, sdp string) {
	if !c.isMember(peer, "offer") {
		return
	}
	if s, ok := c.registry.Get(peer); ok && s.State().IsOfferOutstanding() {
		if c.winsGlare(peer) {
			c.log.Info().Str(logger.PeerField, peer.Short()).Msg("Glare, keeping our offer")
			return
		}
		c.log.Info().Str(logger.PeerField, peer.Short()).Msg("Glare, answering their offer")
		c.registry.Remove(peer)
		c.roles[peer] = call.Responder
	}
	s, _, err := c.ensure(peer, call.Responder)
	if err != nil {
		return
	}
	c.check(s, s.HandleOffer(sdp))
}

func (c *Coordinator) onAnswer(peer api.Address, sdp string) {
	s, ok := c.registry.Get(peer)
	if !ok {
		c.log.Warn().Err(call.ErrSignalingProtocol).Str(logger.PeerField, peer.Short()).Msg("answer without a session")
		return
	}
	c.check(s, s.HandleAnswer(sdp))
}

// isMember tells if peer signals may touch a session: the sender has to
// be a participant of our room. Signals of strangers and of peers
// that have left are dropped.
func (c *Coordinator) isMember(peer api.Address, what string) bool {
	if peer.IsEmpty() {
		c.log.Warn().Err(call.ErrSignalingProtocol).Msgf("%v without a sender", what)
		return false
	}
	if _, ok := c.participants[peer]; !ok || c.roomId == "" {
		c.log.Warn().Err(call.ErrSignalingProtocol).Str(logger.PeerField, peer.Short()).Msgf("%v from a stranger", what)
		return false
	}
	return true
}

// onCandidate keeps candidates of a peer whose offer hasn't come yet
// in a fresh responder session.
func (c *Coordinator) onCandidate(peer api.Address, m api.Candidate) {
	if !c.isMember(peer, "candidate") {
		return
	}
	s, ok := c.registry.Get(peer)
	if !ok {
		var err error
		if s, _, err = c.ensure(peer, call.Responder); err != nil {
			return
		}
	}
	c.check(s, s.HandleCandidate(m.Candidate))
}

// check sorts out an error of a session operation.
func (c *Coordinator) check(s *call.Session, err error) {
	if err == nil {
		return
	}
	log := c.log.Warn().Err(err).Str(logger.PeerField, s.Peer().Short())
	switch {
	case errors.Is(err, call.ErrNegotiationFailure):
		log.Msg("negotiation")
		c.onFailure(s, err)
	case errors.Is(err, call.ErrTransportClosed):
		c.log.Debug().Err(err).Str(logger.PeerField, s.Peer().Short()).Msg("late signal")
	case errors.Is(err, com.ErrClosed):
		log.Msg("signal")
	default:
		log.Msg("dropped signal")
	}
}

// onFailure evicts a failed session. The offering side of the pair
// starts over with a fresh offer while it has retries left, the other
// side waits for it with a fresh responder.
func (c *Coordinator) onFailure(s *call.Session, err error) {
	peer := s.Peer()
	if cur, ok := c.registry.Get(peer); !ok || cur != s {
		return
	}
	c.registry.Remove(peer)
	c.emit(Event{Type: PeerFailed, Peer: peer, Err: err})

	if _, present := c.participants[peer]; !present {
		return
	}
	role, ok := c.roles[peer]
	if !ok {
		role = s.Role()
	}
	if role == call.Responder {
		_, _, _ = c.ensure(peer, call.Responder)
		return
	}
	if c.retries[peer] >= c.opts.Retries {
		c.log.Error().Str(logger.PeerField, peer.Short()).Msg("Negotiation retries are exhausted")
		return
	}
	c.retries[peer]++
	monitoring.Negotiations.WithLabelValues(monitoring.ResultRetried).Inc()
	c.log.Info().Str(logger.PeerField, peer.Short()).Msgf("Renegotiation #%v", c.retries[peer])
	c.connect(peer, call.Initiator)
}

func (c *Coordinator) OnSessionConnected(s *call.Session) {
	delete(c.retries, s.Peer())
	c.emit(Event{Type: PeerConnected, Peer: s.Peer()})
}

func (c *Coordinator) OnSessionFailed(s *call.Session, err error) { c.onFailure(s, err) }

func (c *Coordinator) OnRemoteTrack(s *call.Session, kind string) {
	c.emit(Event{Type: RemoteTrack, Peer: s.Peer(), Kind: kind})
}
