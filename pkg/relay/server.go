package relay

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	conf "github.com/voicehub/roomcall/pkg/config/relay"
	"github.com/voicehub/roomcall/pkg/logger"
	"github.com/voicehub/roomcall/pkg/network/httpx"
)

type Server struct {
	hub  *Hub
	http *httpx.Server
	log  *logger.Logger
}

func New(c conf.Config, log *logger.Logger) (*Server, error) {
	s := &Server{hub: NewHub(log), log: log}

	address, opts := c.Address, []httpx.Option{httpx.WithLogger(log)}
	if c.Tls.IsEnabled() {
		address = c.Tls.Address
		opts = append(opts, httpx.WithAutoCert(c.Tls.Domain, c.Tls.CacheDir), httpx.WithRedirect(c.Address))
	}
	srv, err := httpx.NewServer(address, func(*httpx.Server) http.Handler { return s.Router() }, opts...)
	if err != nil {
		return nil, err
	}
	s.http = srv
	return s, nil
}

// Router serves the signaling socket at /ws.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/ws", s.hub.ServeWs)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("ok")) })
	return r
}

func (s *Server) Hub() *Hub { return s.hub }

func (s *Server) Run() {
	s.log.Info().Msgf("Relay is listening at %v/ws", s.http)
	s.http.Run()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	return s.http.Shutdown(ctx)
}

func (s *Server) String() string { return "relay " + s.http.String() }
