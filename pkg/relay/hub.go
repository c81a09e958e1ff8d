// Package relay is the signaling server: it keeps the online users
// and the rooms and passes peer signals between sockets untouched.
package relay

import (
	"net/http"
	"sort"
	"sync"

	"github.com/voicehub/roomcall/pkg/api"
	"github.com/voicehub/roomcall/pkg/com"
	"github.com/voicehub/roomcall/pkg/logger"
	"github.com/voicehub/roomcall/pkg/monitoring"
)

type Hub struct {
	clients *com.Map[api.Address, *Client]

	mu    sync.Mutex
	rooms map[string][]*Client

	log *logger.Logger
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients: com.NewMap[api.Address, *Client](),
		rooms:   make(map[string][]*Client),
		log:     log.Extend(log.With().Str(logger.ModField, "hub")),
	}
}

// ServeWs upgrades a request into a client socket.
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	sock, err := com.Upgrade(w, r, h.log)
	if err != nil {
		h.log.Error().Err(err).Msg("socket upgrade")
		return
	}
	c := NewClient(sock, h.log)
	sock.OnMessage = func(data []byte) { h.route(c, data) }
	sock.OnClose = func() { h.disconnect(c) }
	h.connect(c)
	sock.Listen()
}

func (h *Hub) connect(c *Client) {
	h.clients.Put(c.Addr, c)
	monitoring.RelayClients.Inc()
	c.log.Info().Msg("Connected")
}

func (h *Hub) disconnect(c *Client) {
	h.mu.Lock()
	h.leave(c)
	c.username = ""
	h.mu.Unlock()

	h.clients.RemoveByKey(c.Addr)
	monitoring.RelayClients.Dec()
	c.log.Info().Msg("Disconnected")
	h.broadcastOnline()
}

func (h *Hub) route(c *Client, data []byte) {
	env, err := api.Decode(data)
	if err != nil {
		c.log.Warn().Err(err).Msg("dropped a packet")
		return
	}
	monitoring.SignalMessages.WithLabelValues(env.Message.Type().String(), monitoring.DirIn).Inc()

	if env.Message.Type().IsPeerSignal() {
		h.forward(c, env)
		return
	}

	switch m := env.Message.(type) {
	case api.RegisterRequest:
		h.register(c, m.Username)
	case api.CreateRoomRequest:
		h.mu.Lock()
		h.leave(c)
		c.room = m.RoomId
		h.rooms[m.RoomId] = append(h.rooms[m.RoomId], c)
		h.mu.Unlock()
		c.log.Info().Str(logger.RoomField, m.RoomId).Msg("Room is created")
	case api.JoinRoomRequest:
		h.join(c, m.RoomId)
	case api.LeaveRoomRequest:
		h.mu.Lock()
		h.leave(c)
		h.mu.Unlock()
	case api.InviteUsersRequest:
		h.invite(c, m)
	default:
		c.log.Warn().Msgf("%v is not for the relay", m.Type())
	}
}

// forward passes a peer signal on with the sender stamped in.
func (h *Hub) forward(c *Client, env api.Envelope) {
	to, err := h.clients.Find(env.To)
	if err != nil {
		c.log.Debug().Str("to", env.To.Short()).Msgf("%v to nowhere", env.Message.Type())
		return
	}
	to.Send(c.Addr, env.Message)
}

func (h *Hub) register(c *Client, username string) {
	h.mu.Lock()
	c.username = username
	h.mu.Unlock()
	c.log.Info().Msgf("Registered as %v", username)
	c.Send("", api.RegisteredResponse{Address: c.Addr, Username: username})
	h.broadcastOnline()
}

// join sends the room roster to the client and tells the members
// about it. Unknown rooms are made on the fly.
func (h *Hub) join(c *Client, roomId string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c.room == roomId {
		return
	}
	h.leave(c)

	members := h.rooms[roomId]
	roster := make([]api.Participant, 0, len(members))
	for _, m := range members {
		roster = append(roster, m.participant())
	}
	c.Send("", api.AllUsersNotice{Users: roster})
	joined := api.UserJoinedNotice{Participant: c.participant()}
	for _, m := range members {
		m.Send("", joined)
	}
	h.rooms[roomId] = append(members, c)
	c.room = roomId
	c.log.Info().Str(logger.RoomField, roomId).Msgf("Joined with %v others", len(members))
}

// leave takes the client out of its room, the lock must be held.
func (h *Hub) leave(c *Client) {
	if c.room == "" {
		return
	}
	roomId := c.room
	c.room = ""
	members := h.rooms[roomId]
	rest := members[:0]
	for _, m := range members {
		if m != c {
			rest = append(rest, m)
		}
	}
	if len(rest) == 0 {
		delete(h.rooms, roomId)
	} else {
		h.rooms[roomId] = rest
	}
	left := api.UserLeftNotice{Participant: c.participant()}
	for _, m := range rest {
		m.Send("", left)
	}
	c.log.Info().Str(logger.RoomField, roomId).Msg("Left")
}

func (h *Hub) invite(c *Client, m api.InviteUsersRequest) {
	from := m.From
	if from == "" {
		from = c.username
	}
	for _, name := range m.Invited {
		u, err := h.clients.FindBy(func(v *Client) bool { return h.usernameOf(v) == name })
		if err != nil || u == c {
			c.Send("", api.UserNotAvailableNotice{Username: name})
			continue
		}
		u.Send("", api.InvitationNotice{RoomId: m.RoomId, From: from})
	}
}

func (h *Hub) usernameOf(c *Client) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return c.username
}

// Online returns the registered usernames in order.
func (h *Hub) Online() []string {
	var users []string
	for _, c := range h.clients.Values() {
		if name := h.usernameOf(c); name != "" {
			users = append(users, name)
		}
	}
	sort.Strings(users)
	return users
}

func (h *Hub) broadcastOnline() {
	notice := api.OnlineUsersNotice{Users: h.Online()}
	for _, c := range h.clients.Values() {
		c.Send("", notice)
	}
}

// Rooms returns the number of rooms with somebody in.
func (h *Hub) Rooms() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms)
}

// Close drops every client.
func (h *Hub) Close() {
	for _, c := range h.clients.Values() {
		c.Close()
	}
}
