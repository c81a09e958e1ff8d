package relay

import (
	"github.com/spf13/pflag"
	"github.com/voicehub/roomcall/pkg/config"
	"github.com/voicehub/roomcall/pkg/config/monitoring"
)

type Config struct {
	Debug      bool
	Address    string
	Tls        Tls
	Monitoring monitoring.Config
}

// Tls enables HTTPS with Let's Encrypt certificates when Domain is set.
type Tls struct {
	Address  string
	Domain   string
	CacheDir string
}

func (t *Tls) IsEnabled() bool { return t.Domain != "" }

func NewDefaultConfig() Config {
	return Config{
		Address:    ":8000",
		Tls:        Tls{Address: ":443", CacheDir: "assets/cache"},
		Monitoring: monitoring.Config{Port: 6601, URLPrefix: "/relay"},
	}
}

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
	return conf, fs.Parse(args)
}

func (c *Config) AddFlags(fs *pflag.FlagSet) *Config {
	fs.BoolVarP(&c.Debug, "debug", "d", c.Debug, "Enable debug logs")
	fs.StringVarP(&c.Address, "address", "a", c.Address, "HTTP listen address")
	fs.StringVar(&c.Tls.Domain, "domain", c.Tls.Domain, "Public domain for autocert TLS")
	fs.IntVar(&c.Monitoring.Port, "monitoring", c.Monitoring.Port, "Monitoring server port")
	fs.BoolVar(&c.Monitoring.MetricEnabled, "metrics", c.Monitoring.MetricEnabled, "Enable Prometheus metrics")
	fs.BoolVar(&c.Monitoring.ProfilingEnabled, "pprof", c.Monitoring.ProfilingEnabled, "Enable pprof handlers")
	return c
}
