package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "roomcall"

var (
	Sessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sessions",
		Help:      "The number of live negotiation sessions.",
	})
	Negotiations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "negotiations_total",
		Help:      "Finished negotiations by result.",
	}, []string{"result"})
	Candidates = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "candidates_total",
		Help:      "ICE candidates by direction (local, applied, buffered).",
	}, []string{"direction"})
	SignalMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signal_messages_total",
		Help:      "Signaling messages by type and direction.",
	}, []string{"type", "direction"})
	RtpPackets = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rtp_packets_total",
		Help:      "RTP packets by media kind and direction.",
	}, []string{"kind", "direction"})
	RtpBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rtp_bytes_total",
		Help:      "RTP bytes by media kind and direction.",
	}, []string{"kind", "direction"})
	RelayClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "relay_clients",
		Help:      "The number of sockets connected to the relay.",
	})
)

// Negotiation results.
const (
	ResultConnected = "connected"
	ResultFailed    = "failed"
	ResultRetried   = "retried"
)

// Candidate and message directions.
const (
	DirIn       = "in"
	DirOut      = "out"
	DirLocal    = "local"
	DirApplied  = "applied"
	DirBuffered = "buffered"
)
