package httpx

import (
	"testing"

	"github.com/voicehub/roomcall/pkg/logger"
)

func TestListenerCreation(t *testing.T) {
	tests := []struct {
		addr   string
		random bool
		error  bool
	}{
		{addr: "127.0.0.1:0", random: true},
		{addr: ":0", random: true},
		{addr: "https://garbage.com:99a9a", error: true},
		{addr: "localhost:abc1", error: true},
	}

	for _, test := range tests {
		ls, err := NewListener(test.addr, false, logger.Nop())
		if test.error {
			if err == nil {
				t.Errorf("expected error for %v, but got none", test.addr)
			}
			continue
		}
		if err != nil {
			t.Errorf("unexpected error %v", err)
			continue
		}
		if test.random && ls.GetPort() <= 0 {
			t.Errorf("expected a random port, got %v", ls.GetPort())
		}
		_ = ls.Close()
	}
}

func TestListenerPortRoll(t *testing.T) {
	a, err := NewListener("127.0.0.1:0", false, logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = a.Close() }()
	busy := a.Addr().String()

	if _, err = NewListener(busy, false, logger.Nop()); err == nil {
		t.Errorf("expected busy port error, but got none")
	}
	b, err := NewListener(busy, true, logger.Nop())
	if err != nil {
		t.Fatalf("expected no port error, but got %v", err)
	}
	defer func() { _ = b.Close() }()
	if b.GetPort() == a.GetPort() {
		t.Errorf("port was not rolled")
	}
}
