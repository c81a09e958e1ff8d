package com

import (
	"context"
	"time"

	"github.com/voicehub/roomcall/pkg/api"
	"github.com/voicehub/roomcall/pkg/logger"
	"github.com/voicehub/roomcall/pkg/monitoring"
	"github.com/voicehub/roomcall/pkg/network"
)

const inboundBuffer = 128

// Client is the WebSocket signaling link of a peer app.
type Client struct {
	sock *Socket
	in   chan api.Envelope
	log  *logger.Logger
}

// Connect dials the relay and starts receiving.
func Connect(ctx context.Context, address string, log *logger.Logger) (*Client, error) {
	sock, err := Dial(ctx, address, log)
	if err != nil {
		return nil, err
	}
	c := &Client{sock: sock, in: make(chan api.Envelope, inboundBuffer), log: log}
	sock.OnMessage = c.handleMessage
	sock.OnClose = func() { close(c.in) }
	sock.Listen()
	log.Info().Msgf("Connected to %v", address)
	return c, nil
}

// ConnectRetry dials the relay up to attempts times, each dial is
// limited by the timeout.
func ConnectRetry(ctx context.Context, address string, attempts int, timeout time.Duration, log *logger.Logger) (*Client, error) {
	retry := network.NewRetry(time.Second, 10*time.Second)
	for i := 1; ; i++ {
		dctx, cancel := context.WithTimeout(ctx, timeout)
		c, err := Connect(dctx, address, log)
		cancel()
		if err == nil {
			return c, nil
		}
		if i >= attempts {
			return nil, err
		}
		log.Warn().Err(err).Msgf("No relay at %v, retry in %v", address, retry.Time())
		if err := retry.Wait(ctx); err != nil {
			return nil, err
		}
	}
}

func (c *Client) handleMessage(message []byte) {
	env, err := api.Decode(message)
	if err != nil {
		c.log.Warn().Err(err).Msg("dropped a signal")
		return
	}
	monitoring.SignalMessages.WithLabelValues(env.Message.Type().String(), monitoring.DirIn).Inc()
	c.log.Debug().Str(logger.PeerField, env.From.Short()).Msgf("← %v", env.Message.Type())
	select {
	case c.in <- env:
	case <-c.sock.Done():
	}
}

func (c *Client) Send(to api.Address, m api.Message) error {
	data, err := api.Encode(to, "", m)
	if err != nil {
		return err
	}
	if !c.sock.Write(data) {
		return ErrClosed
	}
	monitoring.SignalMessages.WithLabelValues(m.Type().String(), monitoring.DirOut).Inc()
	c.log.Debug().Str(logger.PeerField, to.Short()).Msgf("→ %v", m.Type())
	return nil
}

func (c *Client) Inbound() <-chan api.Envelope { return c.in }

func (c *Client) Done() <-chan struct{} { return c.sock.Done() }

func (c *Client) Close() { c.sock.Close() }
