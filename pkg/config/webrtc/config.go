package webrtc

import (
	"fmt"
	"strings"
)

type Webrtc struct {
	DisableDefaultInterceptors bool
	IceServers                 []IceServer
	IcePorts                   struct {
		Min uint16
		Max uint16
	}
	IceIpMap string
	LogLevel int
}

type IceServer struct {
	Urls       string `json:"urls,omitempty"`
	Username   string `json:"username,omitempty"`
	Credential string `json:"credential,omitempty"`
}

func NewDefault() Webrtc {
	return Webrtc{
		IceServers: []IceServer{{Urls: "stun:stun.l.google.com:19302"}},
		// zerolog warn, pion is chatty
		LogLevel: 2,
	}
}

func (w *Webrtc) HasPortRange() bool { return w.IcePorts.Min > 0 && w.IcePorts.Max > 0 }
func (w *Webrtc) HasIceIpMap() bool  { return w.IceIpMap != "" }

// Validate checks that TURN servers come with credentials
// and that the port range makes sense.
func (w *Webrtc) Validate() error {
	for _, ice := range w.IceServers {
		if strings.HasPrefix(ice.Urls, "turn:") || strings.HasPrefix(ice.Urls, "turns:") {
			if ice.Username == "" || ice.Credential == "" {
				return fmt.Errorf("TURN or TURNS servers should have both username and credential: %+v", ice)
			}
		}
	}
	if w.HasPortRange() && w.IcePorts.Min > w.IcePorts.Max {
		return fmt.Errorf("bad ICE port range [%v, %v]", w.IcePorts.Min, w.IcePorts.Max)
	}
	return nil
}
