package config

import (
	"errors"
	"testing"
)

type testConf struct {
	Negotiation struct {
		Tiebreak string
		Retries  int
	}
	Webrtc struct {
		IceIpMap string
	}
}

func TestConfigEnv(t *testing.T) {
	t.Setenv("ROOMCALL_NEGOTIATION_RETRIES", "3")
	t.Setenv("ROOMCALL_WEBRTC_ICEIPMAP", "10.0.0.1")

	conf := testConf{}
	conf.Negotiation.Tiebreak = "address"
	if err := LoadConfigEnv(&conf); err != nil {
		t.Fatal(err)
	}
	if conf.Negotiation.Retries != 3 {
		t.Errorf("retries %v is not 3", conf.Negotiation.Retries)
	}
	if conf.Webrtc.IceIpMap != "10.0.0.1" {
		t.Errorf("ice map %v is not 10.0.0.1", conf.Webrtc.IceIpMap)
	}
	if conf.Negotiation.Tiebreak != "address" {
		t.Errorf("default tiebreak was lost: %v", conf.Negotiation.Tiebreak)
	}
}

func TestErrBadValue(t *testing.T) {
	err := ErrBadValue("media.fps", 0)
	if !errors.Is(err, ErrConfig) {
		t.Errorf("%v is not a config error", err)
	}
}
