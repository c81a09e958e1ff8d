package call

import (
	"errors"
	"fmt"
	"sort"

	"github.com/pion/webrtc/v3"
	"github.com/voicehub/roomcall/pkg/api"
	"github.com/voicehub/roomcall/pkg/logger"
	"github.com/voicehub/roomcall/pkg/monitoring"
)

// Registry holds at most one session per remote participant.
//
// Transport callbacks come from foreign goroutines, so the registry posts
// them into the owner loop with the post function. Events of a session
// that has been replaced or removed by then are dropped.
type Registry struct {
	sessions map[api.Address]*Session

	factory  TransportFactory
	tracks   TrackSource
	signal   Signaler
	listener Listener
	post     func(func())

	log *logger.Logger
}

type RegistryOption func(r *Registry)

func WithListener(l Listener) RegistryOption { return func(r *Registry) { r.listener = l } }

// WithPost sets the function that runs transport events in the owner loop.
// By default, events are run in place.
func WithPost(post func(func())) RegistryOption { return func(r *Registry) { r.post = post } }

func NewRegistry(factory TransportFactory, tracks TrackSource, signal Signaler, log *logger.Logger, opts ...RegistryOption) *Registry {
	r := &Registry{
		sessions: make(map[api.Address]*Session),
		factory:  factory,
		tracks:   tracks,
		signal:   signal,
		post:     func(fn func()) { fn() },
		log:      log,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Ensure returns the session of a peer, creating it with the role
// when there is none. The bool result tells if the session is new.
// A new session sends the current outbound tracks.
func (r *Registry) Ensure(peer api.Address, role Role) (*Session, bool, error) {
	if s, ok := r.sessions[peer]; ok {
		return s, false, nil
	}
	tracks, err := r.tracks.OutboundTracks()
	if err != nil {
		return nil, false, err
	}
	t, err := r.factory(peer)
	if err != nil {
		return nil, false, fmt.Errorf("%w: new transport: %v", ErrNegotiationFailure, err)
	}
	for _, track := range tracks {
		if err = t.AddTrack(track); err != nil {
			_ = t.Close()
			return nil, false, fmt.Errorf("%w: add track: %v", ErrNegotiationFailure, err)
		}
	}
	s := NewSession(peer, role, t, r.signal, r.log)
	r.wire(s)
	r.sessions[peer] = s
	monitoring.Sessions.Inc()
	s.log.Debug().Msgf("New %v session", role)
	return s, true, nil
}

func (r *Registry) wire(s *Session) {
	t := s.transport
	t.OnICECandidate(func(c webrtc.ICECandidateInit) {
		r.post(func() {
			if !r.isCurrent(s) {
				return
			}
			if err := s.SendCandidate(c); err != nil {
				s.log.Debug().Err(err).Msg("local candidate")
			}
		})
	})
	t.OnConnectionState(func(state webrtc.PeerConnectionState) {
		r.post(func() {
			if !r.isCurrent(s) {
				s.log.Debug().Err(ErrTransportClosed).Msgf("stale transport %v", state)
				return
			}
			err := s.HandleTransportState(state)
			if r.listener == nil {
				return
			}
			switch {
			case err != nil:
				r.listener.OnSessionFailed(s, err)
			case state == webrtc.PeerConnectionStateConnected:
				r.listener.OnSessionConnected(s)
			}
		})
	})
	t.OnTrack(func(kind string) {
		r.post(func() {
			if r.isCurrent(s) && r.listener != nil {
				r.listener.OnRemoteTrack(s, kind)
			}
		})
	})
}

func (r *Registry) isCurrent(s *Session) bool {
	cur, ok := r.sessions[s.peer]
	return ok && cur == s && !s.IsClosed()
}

// Remove closes and forgets the session of a peer.
// Local tracks are never stopped here.
func (r *Registry) Remove(peer api.Address) {
	s, ok := r.sessions[peer]
	if !ok {
		return
	}
	delete(r.sessions, peer)
	monitoring.Sessions.Dec()
	if err := s.Close(); err != nil {
		s.log.Warn().Err(err).Msg("close")
	}
	s.log.Debug().Msg("Session removed")
}

// BroadcastTrackReplacement swaps old for new on the outbound video of
// every live session. Sessions without the old track are skipped and
// a failing session doesn't stop the rest.
// Returns the number of updated sessions.
func (r *Registry) BroadcastTrackReplacement(old, new webrtc.TrackLocal) int {
	n := 0
	for _, s := range r.sessions {
		if s.IsClosed() {
			continue
		}
		ok, err := s.transport.ReplaceTrack(old, new)
		if err != nil {
			s.log.Warn().Err(err).Msg("track replacement")
			continue
		}
		if ok {
			n++
		}
	}
	r.log.Debug().Msgf("Replaced a track in %v/%v sessions", n, len(r.sessions))
	return n
}

func (r *Registry) Get(peer api.Address) (*Session, bool) {
	s, ok := r.sessions[peer]
	return s, ok
}

func (r *Registry) Len() int { return len(r.sessions) }

// Peers returns the addresses of all sessions in order.
func (r *Registry) Peers() []api.Address {
	peers := make([]api.Address, 0, len(r.sessions))
	for p := range r.sessions {
		peers = append(peers, p)
	}
	sort.Slice(peers, func(i, j int) bool { return peers[i].Less(peers[j]) })
	return peers
}

// Each calls fn for every session in the address order.
func (r *Registry) Each(fn func(s *Session)) {
	for _, p := range r.Peers() {
		fn(r.sessions[p])
	}
}

// Clear removes all sessions.
func (r *Registry) Clear() {
	for _, p := range r.Peers() {
		r.Remove(p)
	}
}

// IsNegotiationFailure tells if an error should evict a session.
func IsNegotiationFailure(err error) bool { return errors.Is(err, ErrNegotiationFailure) }
