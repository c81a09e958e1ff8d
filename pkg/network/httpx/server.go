// Package httpx runs HTTP servers with optional automatic TLS.
package httpx

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/voicehub/roomcall/pkg/logger"
	"golang.org/x/crypto/acme/autocert"
)

type Options struct {
	// Domain turns on HTTPS with autocert certificates for it.
	Domain   string
	CacheDir string
	// RedirectAddress serves HTTP to HTTPS redirects and ACME challenges.
	RedirectAddress string
	PortRoll        bool
	IdleTimeout     time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	Logger          *logger.Logger
}

type Option func(*Options)

func WithPortRoll(roll bool) Option        { return func(o *Options) { o.PortRoll = roll } }
func WithLogger(log *logger.Logger) Option { return func(o *Options) { o.Logger = log } }
func WithRedirect(address string) Option   { return func(o *Options) { o.RedirectAddress = address } }
func WithAutoCert(domain, cache string) Option {
	return func(o *Options) { o.Domain, o.CacheDir = domain, cache }
}

func (o *Options) IsHttps() bool { return o.Domain != "" }

type Server struct {
	http.Server

	autoCert *autocert.Manager
	opts     Options
	listener *Listener
	redirect *Server
	log      *logger.Logger
}

func NewServer(address string, handler func(*Server) http.Handler, options ...Option) (*Server, error) {
	opts := Options{
		IdleTimeout:  120 * time.Second,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		CacheDir:     "assets/cache",
	}
	for _, opt := range options {
		opt(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logger.Default()
	}

	server := &Server{
		Server: http.Server{
			Addr:              address,
			IdleTimeout:       opts.IdleTimeout,
			ReadTimeout:       opts.ReadTimeout,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      opts.WriteTimeout,
		},
		opts: opts,
		log:  opts.Logger,
	}
	if opts.IsHttps() {
		server.autoCert = NewCertManager(opts.Domain, opts.CacheDir)
		server.TLSConfig = server.autoCert.TLSConfig()
	}
	server.Handler = handler(server)

	addr := server.Addr
	if addr == "" {
		addr = ":http"
		if opts.IsHttps() {
			addr = ":https"
		}
		server.log.Warn().Msgf("Empty server address has been changed to %v", addr)
	}
	listener, err := NewListener(addr, opts.PortRoll, server.log)
	if err != nil {
		return nil, err
	}
	server.listener = listener
	server.Addr = listener.Addr().String()
	server.log.Info().Msgf("httpx %v://%v", server.GetProtocol(), server.Addr)
	return server, nil
}

func (s *Server) Run() { go s.run() }

func (s *Server) run() {
	protocol := s.GetProtocol()
	s.log.Debug().Msgf("Starting %s server on %s", protocol, s.Addr)

	if s.opts.IsHttps() && s.opts.RedirectAddress != "" {
		rdr, err := s.redirection()
		if err != nil {
			s.log.Error().Err(err).Msg("couldn't init redirection server")
		} else {
			s.redirect = rdr
			rdr.Run()
		}
	}

	var err error
	if s.opts.IsHttps() {
		err = s.ServeTLS(s.listener, "", "")
	} else {
		err = s.Serve(s.listener)
	}
	if errors.Is(err, http.ErrServerClosed) {
		s.log.Debug().Msgf("%s server was closed", protocol)
		return
	}
	s.log.Error().Err(err).Msgf("%s server", protocol)
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.redirect != nil {
		_ = s.redirect.Shutdown(ctx)
	}
	return s.Server.Shutdown(ctx)
}

func (s *Server) GetProtocol() string {
	if s.opts.IsHttps() {
		return "https"
	}
	return "http"
}

func (s *Server) GetPort() int { return s.listener.GetPort() }

func (s *Server) String() string { return s.GetProtocol() + "://" + s.Addr }

// redirection sends plain HTTP clients to the HTTPS server and answers
// the ACME HTTP-01 challenges.
func (s *Server) redirection() (*Server, error) {
	host := s.opts.Domain
	if port := s.GetPort(); port != 443 {
		host = net.JoinHostPort(host, strconv.Itoa(port))
	}
	return NewServer(s.opts.RedirectAddress, func(*Server) http.Handler {
		h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			to := url.URL{Scheme: "https", Host: host, Path: r.URL.Path, RawQuery: r.URL.RawQuery}
			http.Redirect(w, r, to.String(), http.StatusFound)
		})
		return s.autoCert.HTTPHandler(h)
	}, WithLogger(s.log))
}
