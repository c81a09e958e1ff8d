package webrtc

import (
	"github.com/pion/interceptor"
	"github.com/pion/webrtc/v3"
	conf "github.com/voicehub/roomcall/pkg/config/webrtc"
	"github.com/voicehub/roomcall/pkg/logger"
	itc "github.com/voicehub/roomcall/pkg/webrtc/interceptor"
)

type ApiFactory struct {
	api  *webrtc.API
	conf webrtc.Configuration
	log  *logger.Logger
}

// ModApiFun changes the pion engines before the API is built.
type ModApiFun func(m *webrtc.MediaEngine, i *interceptor.Registry, s *webrtc.SettingEngine)

// WithLoopback lets ICE use loopback addresses, peers in one host need it.
func WithLoopback() ModApiFun {
	return func(_ *webrtc.MediaEngine, _ *interceptor.Registry, s *webrtc.SettingEngine) {
		s.SetIncludeLoopbackCandidate(true)
		s.SetNetworkTypes([]webrtc.NetworkType{webrtc.NetworkTypeUDP4})
	}
}

func NewApiFactory(conf conf.Webrtc, log *logger.Logger, mods ...ModApiFun) (api *ApiFactory, err error) {
	m := &webrtc.MediaEngine{}
	if err = m.RegisterDefaultCodecs(); err != nil {
		return
	}
	i := &interceptor.Registry{}
	if !conf.DisableDefaultInterceptors {
		if err = webrtc.RegisterDefaultInterceptors(m, i); err != nil {
			return
		}
	}
	i.Add(itc.StatsFactory{})
	customLogger := logger.NewPionLogger(log, conf.LogLevel)
	s := webrtc.SettingEngine{LoggerFactory: customLogger}
	if conf.HasPortRange() {
		if err = s.SetEphemeralUDPPortRange(conf.IcePorts.Min, conf.IcePorts.Max); err != nil {
			return
		}
	}
	if conf.HasIceIpMap() {
		s.SetNAT1To1IPs([]string{conf.IceIpMap}, webrtc.ICECandidateTypeHost)
		log.Info().Msgf("The NAT mapping is active for %v", conf.IceIpMap)
	}

	for _, mod := range mods {
		mod(m, i, &s)
	}

	c := webrtc.Configuration{ICEServers: []webrtc.ICEServer{}}
	for _, server := range conf.IceServers {
		c.ICEServers = append(c.ICEServers, webrtc.ICEServer{
			URLs:       []string{server.Urls},
			Username:   server.Username,
			Credential: server.Credential,
		})
	}

	return &ApiFactory{
		api:  webrtc.NewAPI(webrtc.WithMediaEngine(m), webrtc.WithInterceptorRegistry(i), webrtc.WithSettingEngine(s)),
		conf: c,
		log:  log,
	}, err
}

func (a *ApiFactory) NewPeerConnection() (*webrtc.PeerConnection, error) {
	return a.api.NewPeerConnection(a.conf)
}
