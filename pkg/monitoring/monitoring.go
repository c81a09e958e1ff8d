package monitoring

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/voicehub/roomcall/pkg/config/monitoring"
	"github.com/voicehub/roomcall/pkg/logger"
)

type Monitoring struct {
	conf   monitoring.Config
	server *http.Server
	log    *logger.Logger
}

// New creates new monitoring service.
func New(conf monitoring.Config, log *logger.Logger) *Monitoring {
	m := &Monitoring{
		conf: conf,
		log:  log.Extend(log.With().Str(logger.ModField, "monitoring")),
	}
	m.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", conf.Port),
		ReadHeaderTimeout: 10 * time.Second,
	}
	m.server.Handler = m.handler()
	return m
}

func (m *Monitoring) handler() http.Handler {
	h := http.NewServeMux()
	if m.conf.ProfilingEnabled {
		prefix := fmt.Sprintf("%s/debug/pprof", m.conf.URLPrefix)
		m.log.Info().Msgf("Profiling is enabled at %v", m.server.Addr+prefix)
		h.HandleFunc(prefix+"/", pprof.Index)
		h.HandleFunc(prefix+"/cmdline", pprof.Cmdline)
		h.HandleFunc(prefix+"/profile", pprof.Profile)
		h.HandleFunc(prefix+"/symbol", pprof.Symbol)
		h.HandleFunc(prefix+"/trace", pprof.Trace)
		// named profiles are not served by the index under a custom prefix
		for _, p := range []string{"allocs", "block", "goroutine", "heap", "mutex", "threadcreate"} {
			h.Handle(prefix+"/"+p, pprof.Handler(p))
		}
	}
	if m.conf.MetricEnabled {
		metricPath := fmt.Sprintf("%s/metrics", m.conf.URLPrefix)
		m.log.Info().Msgf("Prometheus metrics are enabled at %v", m.server.Addr+metricPath)
		h.Handle(metricPath, promhttp.Handler())
	}
	return h
}

func (m *Monitoring) Run() {
	ln, err := net.Listen("tcp", m.server.Addr)
	if err != nil {
		m.log.Error().Err(err).Msg("monitoring server failed to start")
		return
	}
	m.log.Info().Msgf("Starting monitoring server at %v", ln.Addr())
	go func() {
		if err := m.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.log.Error().Err(err).Msg("monitoring server")
		}
	}()
}

func (m *Monitoring) Shutdown(ctx context.Context) error {
	m.log.Info().Msg("Shutting down monitoring server")
	return m.server.Shutdown(ctx)
}

func (m *Monitoring) String() string {
	return fmt.Sprintf("monitoring::%s:%d", m.conf.URLPrefix, m.conf.Port)
}
