package room

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/voicehub/roomcall/pkg/api"
	"github.com/voicehub/roomcall/pkg/call"
	"github.com/voicehub/roomcall/pkg/call/calltest"
	"github.com/voicehub/roomcall/pkg/com"
	"github.com/voicehub/roomcall/pkg/logger"
	"github.com/voicehub/roomcall/pkg/media"
)

const waitTime = 5 * time.Second

// tServer plays the room part of the relay.
type tServer struct {
	relay *com.MemRelay

	mu    sync.Mutex
	rooms map[string][]api.Participant
}

func newServer() *tServer {
	s := &tServer{relay: com.NewMemRelay(), rooms: make(map[string][]api.Participant)}
	s.relay.OnServer = s.handle
	return s
}

func (s *tServer) handle(from api.Address, m api.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch m := m.(type) {
	case api.CreateRoomRequest:
		s.rooms[m.RoomId] = []api.Participant{{Address: from, Username: m.Username}}
	case api.JoinRoomRequest:
		members := s.rooms[m.RoomId]
		s.relay.Deliver(from, "", api.AllUsersNotice{Users: append([]api.Participant(nil), members...)})
		me := api.Participant{Address: from, Username: m.Username}
		for _, p := range members {
			s.relay.Deliver(p.Address, "", api.UserJoinedNotice{Participant: me})
		}
		s.rooms[m.RoomId] = append(members, me)
	}
}

type harness struct {
	t        *testing.T
	self     api.Address
	c        *Coordinator
	ep       *com.MemEndpoint
	relay    *com.MemRelay
	factory  *calltest.Factory
	capturer *media.SyntheticCapturer
	marker   int
}

func start(t *testing.T, self api.Address, opts Options, mods ...func(h *harness)) *harness {
	t.Helper()
	return startOn(t, com.NewMemRelay(), self, opts, mods...)
}

func startOn(t *testing.T, relay *com.MemRelay, self api.Address, opts Options, mods ...func(h *harness)) *harness {
	t.Helper()
	h := &harness{
		t:        t,
		self:     self,
		ep:       relay.Endpoint(self),
		relay:    relay,
		factory:  &calltest.Factory{},
		capturer: &media.SyntheticCapturer{Fps: 5},
	}
	for _, mod := range mods {
		mod(h)
	}
	opts.Self = self
	if opts.Username == "" {
		opts.Username = "user-" + string(self)
	}
	h.c = New(h.ep, h.factory.New, h.capturer, opts, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- h.c.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := <-errc; !errors.Is(err, context.Canceled) {
			t.Errorf("Run() = %v", err)
		}
	})
	return h
}

// notice delivers a message from the relay itself.
func (h *harness) notice(m api.Message) { h.relay.Deliver(h.self, "", m) }

// signal delivers a message from a peer.
func (h *harness) signal(from api.Address, m api.Message) { h.relay.Deliver(h.self, from, m) }

// sync waits until everything delivered before is handled.
func (h *harness) sync() {
	h.t.Helper()
	h.marker++
	mark := fmt.Sprintf("sync-%v", h.marker)
	h.notice(api.OnlineUsersNotice{Users: []string{mark}})
	h.eventually("sync", func() bool { return len(h.c.online) == 1 && h.c.online[0] == mark })
}

// loop runs fn inside the coordinator loop.
func (h *harness) loop(fn func()) {
	h.t.Helper()
	if err := h.c.do(fn); err != nil {
		h.t.Fatal(err)
	}
}

func (h *harness) eventually(what string, cond func() bool) {
	h.t.Helper()
	deadline := time.Now().Add(waitTime)
	for time.Now().Before(deadline) {
		ok := false
		h.loop(func() { ok = cond() })
		if ok {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	h.t.Fatalf("%v: timeout", what)
}

func (h *harness) join(roomId string) {
	h.t.Helper()
	if err := h.c.Join(roomId); err != nil {
		h.t.Fatal(err)
	}
	h.eventually("join", func() bool { return h.c.roomId == roomId })
}

func (h *harness) session(peer api.Address) *call.Session {
	h.t.Helper()
	var s *call.Session
	h.loop(func() { s, _ = h.c.registry.Get(peer) })
	return s
}

func (h *harness) state(peer api.Address) call.State {
	h.t.Helper()
	var st call.State = 255
	h.loop(func() {
		if s, ok := h.c.registry.Get(peer); ok {
			st = s.State()
		}
	})
	return st
}

func (h *harness) sessions() int {
	h.t.Helper()
	n := 0
	h.loop(func() { n = h.c.registry.Len() })
	return n
}

func (h *harness) sentTo(t api.PT, to api.Address) int {
	n := 0
	for _, e := range h.ep.SentOf(t) {
		if e.To == to {
			n++
		}
	}
	return n
}

func (h *harness) waitEvent(typ EventType) Event {
	h.t.Helper()
	timeout := time.After(waitTime)
	for {
		select {
		case e := <-h.c.Events():
			if e.Type == typ {
				return e
			}
		case <-timeout:
			h.t.Fatalf("no %v event", typ)
			return Event{}
		}
	}
}
