// Package room runs a multi-party call: it turns relay notices and
// peer signals into per-peer negotiation sessions.
//
// Every piece of call state (sessions, local tracks, participants) is
// owned by the goroutine of Coordinator.Run. Signals, UI intents and
// transport callbacks are all serialized through it.
package room

import (
	"context"
	"errors"
	"sort"

	"github.com/voicehub/roomcall/pkg/api"
	"github.com/voicehub/roomcall/pkg/call"
	"github.com/voicehub/roomcall/pkg/com"
	conf "github.com/voicehub/roomcall/pkg/config/peer"
	"github.com/voicehub/roomcall/pkg/logger"
	"github.com/voicehub/roomcall/pkg/media"
)

var (
	ErrStopped = errors.New("coordinator is stopped")
	ErrNoRoom  = errors.New("not in a room")
)

const (
	taskBuffer  = 256
	eventBuffer = 256
)

type Options struct {
	Username string
	// Self is our address when it is known before registration.
	Self api.Address
	// Tiebreak is conf.TiebreakAddress or conf.TiebreakRoster.
	Tiebreak string
	// Retries is the number of fresh offers after a failed negotiation.
	Retries int
}

type Coordinator struct {
	signal   com.SignalChannel
	registry *call.Registry
	media    *media.Controller

	tasks  chan func()
	events chan Event
	done   chan struct{}
	ctx    context.Context

	opts     Options
	self     api.Address
	username string
	roomId   string

	participants map[api.Address]api.Participant
	// roles keeps the role decided for each peer, retries reuse it
	roles       map[api.Address]call.Role
	retries     map[api.Address]int
	remoteMuted map[api.Address]bool
	invitations map[string]api.InvitationNotice
	online      []string

	acquiring    bool
	afterAcquire []func()

	log *logger.Logger
}

func New(signal com.SignalChannel, factory call.TransportFactory, capturer media.Capturer, opts Options, log *logger.Logger) *Coordinator {
	if opts.Tiebreak == "" {
		opts.Tiebreak = conf.TiebreakAddress
	}
	c := &Coordinator{
		signal:       signal,
		tasks:        make(chan func(), taskBuffer),
		events:       make(chan Event, eventBuffer),
		done:         make(chan struct{}),
		ctx:          context.Background(),
		opts:         opts,
		self:         opts.Self,
		username:     opts.Username,
		participants: make(map[api.Address]api.Participant),
		roles:        make(map[api.Address]call.Role),
		retries:      make(map[api.Address]int),
		remoteMuted:  make(map[api.Address]bool),
		invitations:  make(map[string]api.InvitationNotice),
		log:          log,
	}
	c.media = media.NewController(capturer, nil, c.schedule, log)
	c.registry = call.NewRegistry(factory, c.media, signal, log, call.WithListener(c), call.WithPost(c.schedule))
	c.media.SetBroadcaster(c.registry)
	c.media.OnScreenEnded(func() { c.emit(Event{Type: MediaChanged, Media: c.mediaState()}) })
	return c
}

// Events returns notifications for the UI.
// Slow readers lose events rather than stall the call.
func (c *Coordinator) Events() <-chan Event { return c.events }

// Run processes everything until the context is done or the signaling
// link is gone. All sessions are closed and local tracks are stopped
// on exit.
func (c *Coordinator) Run(ctx context.Context) error {
	c.ctx = ctx
	defer close(c.done)
	defer c.teardown()

	inbound := c.signal.Inbound()
	for {
		select {
		case env, ok := <-inbound:
			if !ok {
				c.log.Warn().Msg("Signaling is closed")
				return com.ErrClosed
			}
			c.handle(env)
		case fn := <-c.tasks:
			fn()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Coordinator) teardown() {
	c.registry.Clear()
	c.media.Release()
}

// post queues fn into the loop, false when the loop is gone.
func (c *Coordinator) post(fn func()) bool {
	select {
	case c.tasks <- fn:
		return true
	case <-c.done:
		return false
	}
}

func (c *Coordinator) schedule(fn func()) { c.post(fn) }

// do runs fn in the loop and waits for it.
func (c *Coordinator) do(fn func()) error {
	finished := make(chan struct{})
	if !c.post(func() { fn(); close(finished) }) {
		return ErrStopped
	}
	select {
	case <-finished:
		return nil
	case <-c.done:
		return ErrStopped
	}
}

func (c *Coordinator) emit(e Event) {
	select {
	case c.events <- e:
	default:
		c.log.Warn().Msgf("Event %v was dropped", e.Type)
	}
}

func (c *Coordinator) handle(env api.Envelope) {
	switch m := env.Message.(type) {
	case api.RegisteredResponse:
		c.self, c.username = m.Address, m.Username
		c.log.Info().Msgf("Registered as %v (%v)", m.Username, m.Address)
		c.emit(Event{Type: Registered, Peer: m.Address, Username: m.Username})
	case api.OnlineUsersNotice:
		c.online = m.Users
		c.emit(Event{Type: OnlineUsersChanged, Users: m.Users})
	case api.InvitationNotice:
		c.invitations[m.RoomId] = m
		c.emit(Event{Type: InvitationReceived, RoomId: m.RoomId, From: m.From})
	case api.UserNotAvailableNotice:
		c.emit(Event{Type: UserNotAvailable, Username: m.Username})
	case api.AllUsersNotice:
		c.onRoster(m.Users)
	case api.UserJoinedNotice:
		c.onJoined(m.Participant)
	case api.UserLeftNotice:
		c.onLeft(m.Address)
	case api.Offer:
		c.onOffer(env.From, m.Sdp)
	case api.Answer:
		c.onAnswer(env.From, m.Sdp)
	case api.Candidate:
		c.onCandidate(env.From, m)
	default:
		c.log.Warn().Err(call.ErrSignalingProtocol).Msgf("unexpected %v", env.Message.Type())
	}
}

func (c *Coordinator) participantList() []api.Participant {
	list := make([]api.Participant, 0, len(c.participants))
	for _, p := range c.participants {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Address.Less(list[j].Address) })
	return list
}

func (c *Coordinator) participantsChanged() {
	c.emit(Event{Type: ParticipantsChanged, RoomId: c.roomId, Participants: c.participantList()})
}

func (c *Coordinator) mediaState() MediaState {
	s := MediaState{Screen: c.media.IsSharing()}
	if mic := c.media.Mic(); mic != nil {
		s.Mic = mic.Enabled()
	}
	if cam := c.media.Camera(); cam != nil {
		s.Camera = cam.Enabled()
	}
	return s
}
