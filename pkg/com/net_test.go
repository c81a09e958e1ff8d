package com

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/voicehub/roomcall/pkg/api"
	"github.com/voicehub/roomcall/pkg/logger"
)

func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sock, err := Upgrade(w, r, logger.Nop())
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		sock.OnMessage = func(m []byte) { sock.Write(m) }
		sock.Listen()
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsUrl(srv *httptest.Server) string { return "ws" + strings.TrimPrefix(srv.URL, "http") }

func TestClientEcho(t *testing.T) {
	srv := echoServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := Connect(ctx, wsUrl(srv), logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if err := c.Send("b", api.Offer{Sdp: "v=0"}); err != nil {
		t.Fatal(err)
	}
	select {
	case env := <-c.Inbound():
		if env.To != "b" || env.Message != (api.Offer{Sdp: "v=0"}) {
			t.Errorf("got %+v", env)
		}
	case <-ctx.Done():
		t.Fatal("no echo")
	}
}

func TestClientDropsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sock, err := Upgrade(w, r, logger.Nop())
		if err != nil {
			return
		}
		sock.Listen()
		sock.Write([]byte(`{"t":"dance"}`))
		sock.Write([]byte(`{"t":"user-joined","p":{"socketId":"x1","username":"eve"}}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := Connect(ctx, wsUrl(srv), logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	select {
	case env := <-c.Inbound():
		if _, ok := env.Message.(api.UserJoinedNotice); !ok {
			t.Errorf("the malformed packet went through: %+v", env)
		}
	case <-ctx.Done():
		t.Fatal("no message")
	}
}

func TestClientClose(t *testing.T) {
	srv := echoServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := Connect(ctx, wsUrl(srv), logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	c.Close()

	select {
	case _, ok := <-c.Inbound():
		if ok {
			t.Errorf("inbound should be closed")
		}
	case <-ctx.Done():
		t.Fatal("inbound was not closed")
	}
	if err := c.Send("b", api.Answer{Sdp: "v=0"}); err != ErrClosed {
		t.Errorf("Send() after close = %v", err)
	}
}

func TestMemRelay(t *testing.T) {
	r := NewMemRelay()
	var server []api.Message
	r.OnServer = func(_ api.Address, m api.Message) { server = append(server, m) }

	a, b := r.Endpoint("a"), r.Endpoint("b")
	if r.Endpoint("a") != a {
		t.Errorf("endpoint is not reused")
	}

	_ = a.Send("b", api.Offer{Sdp: "x"})
	_ = a.Send("", api.JoinRoomRequest{Room: api.Room{RoomId: "r"}})
	_ = a.Send("nobody", api.Answer{Sdp: "y"})

	env := <-b.Inbound()
	if env.From != "a" || env.Message != (api.Offer{Sdp: "x"}) {
		t.Errorf("got %+v", env)
	}
	if len(server) != 1 {
		t.Errorf("relay got %v messages", len(server))
	}
	if len(a.Sent()) != 3 || len(a.SentOf(api.WebrtcOffer)) != 1 {
		t.Errorf("sent log is wrong: %v", a.Sent())
	}

	r.Drop("b")
	if _, ok := <-b.Inbound(); ok {
		t.Errorf("dropped endpoint is open")
	}
	if r.Deliver("b", "a", api.Offer{Sdp: "x"}) {
		t.Errorf("delivered to a dropped endpoint")
	}
}

func TestConnectRetry(t *testing.T) {
	srv := echoServer(t)
	c, err := ConnectRetry(context.Background(), wsUrl(srv), 1, time.Second, logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	c.Close()

	dead := httptest.NewServer(http.NotFoundHandler())
	url := wsUrl(dead)
	dead.Close()
	if _, err = ConnectRetry(context.Background(), url, 1, time.Second, logger.Nop()); err == nil {
		t.Errorf("connected to nowhere")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err = ConnectRetry(ctx, url, 3, time.Second, logger.Nop()); err == nil {
		t.Errorf("retried after cancel")
	}
}
