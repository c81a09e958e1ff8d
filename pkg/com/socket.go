package com

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/xid"
	"github.com/voicehub/roomcall/pkg/logger"
)

const (
	maxMessageSize = 64 * 1024
	pingTime       = pongTime * 9 / 10
	pongTime       = 60 * time.Second
	writeWait      = 10 * time.Second
	sendBuffer     = 64
)

// Socket is a WebSocket connection with serialized reads and writes.
// Reads are pumped into OnMessage, writes are queued with Write.
type Socket struct {
	Id   xid.ID
	conn *websocket.Conn
	send chan []byte

	OnMessage func(message []byte)
	// OnClose is called by the reader after it stops,
	// no OnMessage calls happen after it.
	OnClose func()

	pingPong bool
	done     chan struct{}
	once     sync.Once
	log      *logger.Logger
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	WriteBufferPool: &sync.Pool{},
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Upgrade makes a server side socket from an HTTP request.
func Upgrade(w http.ResponseWriter, r *http.Request, log *logger.Logger) (*Socket, error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	return newSocket(conn, true, log), nil
}

// Dial makes a client side socket.
func Dial(ctx context.Context, address string, log *logger.Logger) (*Socket, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, address, nil)
	if err != nil {
		return nil, err
	}
	return newSocket(conn, false, log), nil
}

func newSocket(conn *websocket.Conn, pingPong bool, log *logger.Logger) *Socket {
	id := xid.New()
	return &Socket{
		Id:       id,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		pingPong: pingPong,
		done:     make(chan struct{}),
		log:      log.Extend(log.With().Str("ws", id.String())),
	}
}

// Listen starts the pumps. Handlers should be set before.
func (s *Socket) Listen() {
	go s.writer()
	go s.reader()
}

// reader pumps messages from the websocket connection to the OnMessage callback.
// Blocking, must be called as goroutine. Serializes all websocket reads.
func (s *Socket) reader() {
	defer func() {
		s.close()
		if s.OnClose != nil {
			s.OnClose()
		}
		s.log.Debug().Msg("reader closed")
	}()
	s.conn.SetReadLimit(maxMessageSize)
	if s.pingPong {
		_ = s.conn.SetReadDeadline(time.Now().Add(pongTime))
		s.conn.SetPongHandler(func(string) error { return s.conn.SetReadDeadline(time.Now().Add(pongTime)) })
	}
	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn().Err(err).Msg("read")
			}
			return
		}
		if s.OnMessage != nil {
			s.OnMessage(message)
		}
	}
}

// writer pumps messages from the send channel to the websocket connection.
// Blocking, must be called as goroutine. Serializes all websocket writes.
func (s *Socket) writer() {
	var ping <-chan time.Time
	if s.pingPong {
		ticker := time.NewTicker(pingTime)
		defer ticker.Stop()
		ping = ticker.C
	}
	for {
		select {
		case message := <-s.send:
			if err := s.write(websocket.TextMessage, message); err != nil {
				s.log.Warn().Err(err).Msg("write")
				s.close()
				return
			}
		case <-ping:
			if err := s.write(websocket.PingMessage, nil); err != nil {
				s.close()
				return
			}
		case <-s.done:
			return
		}
	}
}

func (s *Socket) write(t int, message []byte) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return s.conn.WriteMessage(t, message)
}

// Write queues a message, false means the socket is closed.
func (s *Socket) Write(data []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.send <- data:
		return true
	case <-s.done:
		return false
	}
}

func (s *Socket) Done() <-chan struct{} { return s.done }

// Close sends a close frame and drops the connection.
func (s *Socket) Close() { s.close() }

func (s *Socket) close() {
	s.once.Do(func() {
		close(s.done)
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = s.conn.Close()
	})
}
