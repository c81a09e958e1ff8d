package com

import (
	"sync"

	"github.com/voicehub/roomcall/pkg/api"
)

// MemRelay is an in-process relay for peers living in one process.
// Peer signals are delivered to the addressed endpoint, messages for
// the relay itself go to the OnServer handler.
type MemRelay struct {
	mu    sync.Mutex
	peers map[api.Address]*MemEndpoint

	OnServer func(from api.Address, m api.Message)
}

func NewMemRelay() *MemRelay { return &MemRelay{peers: make(map[api.Address]*MemEndpoint)} }

// Endpoint registers a new endpoint or returns the existing one.
func (r *MemRelay) Endpoint(addr api.Address) *MemEndpoint {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.peers[addr]; ok {
		return e
	}
	e := &MemEndpoint{addr: addr, relay: r, in: make(chan api.Envelope, 1024)}
	r.peers[addr] = e
	return e
}

// Deliver puts a message into the inbound of the addressed endpoint.
// Unknown addresses are dropped like a real relay does.
func (r *MemRelay) Deliver(to, from api.Address, m api.Message) bool {
	r.mu.Lock()
	e, ok := r.peers[to]
	r.mu.Unlock()
	if !ok {
		return false
	}
	return e.push(api.Envelope{From: from, To: to, Message: m})
}

// Drop closes and forgets an endpoint.
func (r *MemRelay) Drop(addr api.Address) {
	r.mu.Lock()
	e, ok := r.peers[addr]
	delete(r.peers, addr)
	r.mu.Unlock()
	if ok {
		e.Close()
	}
}

type MemEndpoint struct {
	addr  api.Address
	relay *MemRelay
	in    chan api.Envelope

	mu     sync.Mutex
	sent   []api.Envelope
	closed bool
}

func (e *MemEndpoint) Address() api.Address { return e.addr }

func (e *MemEndpoint) Send(to api.Address, m api.Message) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	e.sent = append(e.sent, api.Envelope{From: e.addr, To: to, Message: m})
	e.mu.Unlock()

	if to.IsEmpty() {
		if h := e.relay.OnServer; h != nil {
			h(e.addr, m)
		}
		return nil
	}
	e.relay.Deliver(to, e.addr, m)
	return nil
}

func (e *MemEndpoint) Inbound() <-chan api.Envelope { return e.in }

// Sent returns a copy of everything this endpoint has sent.
func (e *MemEndpoint) Sent() []api.Envelope {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]api.Envelope(nil), e.sent...)
}

// SentOf filters sent envelopes by the message type.
func (e *MemEndpoint) SentOf(t api.PT) []api.Envelope {
	var out []api.Envelope
	for _, s := range e.Sent() {
		if s.Message.Type() == t {
			out = append(out, s)
		}
	}
	return out
}

func (e *MemEndpoint) push(env api.Envelope) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return false
	}
	e.in <- env
	return true
}

func (e *MemEndpoint) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.closed {
		e.closed = true
		close(e.in)
	}
}
