package peer

import (
	"time"

	"github.com/spf13/pflag"
	"github.com/voicehub/roomcall/pkg/config"
	"github.com/voicehub/roomcall/pkg/config/monitoring"
	"github.com/voicehub/roomcall/pkg/config/webrtc"
)

// Tie-break policies for picking the offering side of a pair.
const (
	// TiebreakAddress makes the side with the smaller address offer.
	TiebreakAddress = "address"
	// TiebreakRoster makes the side that got the roster snapshot offer.
	TiebreakRoster = "roster"
)

type Config struct {
	Debug       bool
	Username    string
	Signal      Signal
	Negotiation Negotiation
	Media       Media
	Webrtc      webrtc.Webrtc
	Monitoring  monitoring.Config
}

type Signal struct {
	Url         string
	DialTimeout time.Duration
	// Attempts to reach the relay before giving up.
	Attempts int
}

type Negotiation struct {
	Tiebreak string
	// Retries is the number of fresh offers sent to a peer
	// after a failed negotiation.
	Retries int
}

type Media struct {
	Fps        int
	SampleRate int
	// NoCamera emulates a denied camera permission.
	NoCamera bool
	// NoScreen emulates a denied screen capture permission.
	NoScreen bool
}

func NewDefaultConfig() Config {
	return Config{
		Signal:      Signal{Url: "ws://localhost:8000/ws", DialTimeout: 10 * time.Second, Attempts: 5},
		Negotiation: Negotiation{Tiebreak: TiebreakAddress, Retries: 1},
		Media:       Media{Fps: 30, SampleRate: 48000},
		Webrtc:      webrtc.NewDefault(),
		Monitoring:  monitoring.Config{Port: 6602, URLPrefix: "/peer"},
	}
}

// NewConfig loads the configuration of a peer app.
// Flags are parsed after the file so they always win.
func NewConfig(fs *pflag.FlagSet, args []string) (Config, error) {
	conf := NewDefaultConfig()
	conf.AddFlags(fs)
	path := ""
	fs.StringVarP(&path, "conf", "c", "", "Set custom configuration file path")
	if err := fs.Parse(args); err != nil {
		return conf, err
	}
	if err := config.LoadConfig(&conf, path); err != nil {
		return conf, err
	}
	if err := fs.Parse(args); err != nil {
		return conf, err
	}
	return conf, conf.Validate()
}

func (c *Config) AddFlags(fs *pflag.FlagSet) *Config {
	fs.BoolVarP(&c.Debug, "debug", "d", c.Debug, "Enable debug logs")
	fs.StringVarP(&c.Username, "user", "u", c.Username, "Username to register with")
	fs.StringVarP(&c.Signal.Url, "signal", "s", c.Signal.Url, "Signaling relay WebSocket URL")
	fs.StringVar(&c.Negotiation.Tiebreak, "tiebreak", c.Negotiation.Tiebreak, "Offering side policy: [address, roster]")
	fs.IntVar(&c.Negotiation.Retries, "retries", c.Negotiation.Retries, "Renegotiation attempts after a failure")
	fs.BoolVar(&c.Media.NoCamera, "no-camera", c.Media.NoCamera, "Emulate a denied camera")
	fs.BoolVar(&c.Media.NoScreen, "no-screen", c.Media.NoScreen, "Emulate a denied screen capture")
	fs.IntVar(&c.Monitoring.Port, "monitoring", c.Monitoring.Port, "Monitoring server port")
	fs.BoolVar(&c.Monitoring.MetricEnabled, "metrics", c.Monitoring.MetricEnabled, "Enable Prometheus metrics")
	return c
}

func (c *Config) Validate() error {
	switch c.Negotiation.Tiebreak {
	case TiebreakAddress, TiebreakRoster:
	default:
		return config.ErrBadValue("negotiation.tiebreak", c.Negotiation.Tiebreak)
	}
	if c.Negotiation.Retries < 0 {
		return config.ErrBadValue("negotiation.retries", c.Negotiation.Retries)
	}
	if c.Signal.Attempts < 1 {
		return config.ErrBadValue("signal.attempts", c.Signal.Attempts)
	}
	if c.Media.Fps <= 0 {
		return config.ErrBadValue("media.fps", c.Media.Fps)
	}
	return c.Webrtc.Validate()
}
