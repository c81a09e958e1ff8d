// Package com carries signaling messages between peer apps and the relay.
package com

import (
	"errors"

	"github.com/voicehub/roomcall/pkg/api"
)

// SignalChannel is the external signaling link of a peer.
// Messages to an empty address go to the relay itself.
// Inbound envelopes keep the order of arrival and the channel
// is closed when the link is gone.
type SignalChannel interface {
	Send(to api.Address, m api.Message) error
	Inbound() <-chan api.Envelope
}

var ErrClosed = errors.New("signal channel is closed")
