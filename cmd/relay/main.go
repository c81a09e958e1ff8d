package main

import (
	"context"
	"os"
	"time"

	"github.com/spf13/pflag"
	config "github.com/voicehub/roomcall/pkg/config/relay"
	"github.com/voicehub/roomcall/pkg/logger"
	"github.com/voicehub/roomcall/pkg/monitoring"
	xos "github.com/voicehub/roomcall/pkg/os"
	"github.com/voicehub/roomcall/pkg/relay"
	"github.com/voicehub/roomcall/pkg/service"
)

var Version = "?"

func main() {
	conf, err := config.NewConfig(pflag.CommandLine, os.Args[1:])
	log := logger.NewConsole(conf.Debug, "r", false)
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	log.Info().Msgf("version %s", Version)
	if log.GetLevel() < logger.InfoLevel {
		log.Debug().Msgf("config: %+v", conf)
	}

	server, err := relay.New(conf, log)
	if err != nil {
		log.Fatal().Err(err).Msg("relay server")
	}
	services := service.Group{}
	services.Add(server)
	if conf.Monitoring.IsEnabled() {
		services.Add(monitoring.New(conf.Monitoring, log))
	}
	services.Start()

	<-xos.ExpectTermination()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := services.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("service shutdown errors")
	}
}
