package main

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/pflag"
	"github.com/voicehub/roomcall/pkg/api"
	"github.com/voicehub/roomcall/pkg/call"
	"github.com/voicehub/roomcall/pkg/com"
	config "github.com/voicehub/roomcall/pkg/config/peer"
	"github.com/voicehub/roomcall/pkg/logger"
	"github.com/voicehub/roomcall/pkg/media"
	"github.com/voicehub/roomcall/pkg/monitoring"
	xos "github.com/voicehub/roomcall/pkg/os"
	"github.com/voicehub/roomcall/pkg/room"
	"github.com/voicehub/roomcall/pkg/service"
	"github.com/voicehub/roomcall/pkg/webrtc"
)

var Version = "?"

func main() {
	conf, err := config.NewConfig(pflag.CommandLine, os.Args[1:])
	log := logger.NewConsole(conf.Debug, "p", false)
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	pterm.Info.Printfln("roomcall peer v%s", Version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signal, err := com.ConnectRetry(ctx, conf.Signal.Url, conf.Signal.Attempts, conf.Signal.DialTimeout, log)
	if err != nil {
		log.Fatal().Err(err).Msgf("no relay at %v", conf.Signal.Url)
	}
	defer signal.Close()

	pcs, err := webrtc.NewApiFactory(conf.Webrtc, log)
	if err != nil {
		log.Fatal().Err(err).Msg("webrtc")
	}
	factory := func(peer api.Address) (call.Transport, error) {
		p, err := webrtc.NewPeer(pcs, log.Extend(log.With().Str(logger.PeerField, peer.Short())))
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	capturer := &media.SyntheticCapturer{
		Fps:        conf.Media.Fps,
		SampleRate: conf.Media.SampleRate,
		DenyCamera: conf.Media.NoCamera,
		DenyScreen: conf.Media.NoScreen,
		Log:        log,
	}
	coordinator := room.New(signal, factory, capturer, room.Options{
		Username: conf.Username,
		Tiebreak: conf.Negotiation.Tiebreak,
		Retries:  conf.Negotiation.Retries,
	}, log)

	services := service.Group{}
	if conf.Monitoring.IsEnabled() {
		services.Add(monitoring.New(conf.Monitoring, log))
	}
	services.Start()
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		if err := services.Shutdown(sctx); err != nil {
			log.Error().Err(err).Msg("service shutdown errors")
		}
	}()

	done := make(chan error, 1)
	go func() { done <- coordinator.Run(ctx) }()

	username := conf.Username
	for strings.TrimSpace(username) == "" {
		username, _ = pterm.DefaultInteractiveTextInput.WithDefaultText("Username").Show()
	}
	if err := coordinator.Register(strings.TrimSpace(username)); err != nil {
		log.Fatal().Err(err).Msg("register")
	}

	console := NewConsole(coordinator, os.Stdout)
	go console.Events(ctx)
	go console.Read(ctx, os.Stdin, cancel)

	select {
	case <-xos.ExpectTermination():
	case <-ctx.Done():
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("call is over")
		}
		return
	}
	cancel()
	<-done
}
