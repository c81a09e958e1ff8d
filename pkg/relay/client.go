package relay

import (
	"github.com/voicehub/roomcall/pkg/api"
	"github.com/voicehub/roomcall/pkg/com"
	"github.com/voicehub/roomcall/pkg/logger"
	"github.com/voicehub/roomcall/pkg/monitoring"
)

// Client is one connected socket. Its address is the socket id.
// username and room are guarded by the hub lock.
type Client struct {
	Addr api.Address

	sock     *com.Socket
	username string
	room     string
	log      *logger.Logger
}

func NewClient(sock *com.Socket, log *logger.Logger) *Client {
	addr := api.Address(sock.Id.String())
	return &Client{
		Addr: addr,
		sock: sock,
		log:  log.Extend(log.With().Str(logger.PeerField, addr.Short())),
	}
}

// Send writes a message to the client stamped with the sender.
func (c *Client) Send(from api.Address, m api.Message) {
	data, err := api.Encode(c.Addr, from, m)
	if err != nil {
		c.log.Error().Err(err).Msgf("%v encode", m.Type())
		return
	}
	if !c.sock.Write(data) {
		c.log.Debug().Msgf("%v to a closed socket", m.Type())
		return
	}
	monitoring.SignalMessages.WithLabelValues(m.Type().String(), monitoring.DirOut).Inc()
}

func (c *Client) participant() api.Participant {
	return api.Participant{Address: c.Addr, Username: c.username}
}

func (c *Client) Close() { c.sock.Close() }

func (c *Client) String() string { return c.Addr.String() }
