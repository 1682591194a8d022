// widgetd is the rendering service: it turns upstream widget data into
// item lists and 6-color indexed images for the frame.
package main

import (
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/sixcolor/photoframe/internal/config"
	"github.com/sixcolor/photoframe/internal/render"
	"github.com/sixcolor/photoframe/internal/server"
	"github.com/sixcolor/photoframe/internal/source"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.LoadServer(*configPath)
	if err != nil {
		boot := zerolog.New(os.Stderr)
		boot.Fatal().Err(err).Msg("loading config")
	}

	level, lerr := zerolog.ParseLevel(cfg.LogLevel)
	if lerr != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()

	pipeline, err := render.New()
	if err != nil {
		log.Fatal().Err(err).Msg("initializing render pipeline")
	}

	httpClient := &http.Client{Timeout: cfg.UpstreamTimeout}
	concerts := source.NewConcerts(source.ConcertsConfig{
		BaseURL: cfg.ConcertsAPI,
		UserID:  cfg.ConcertsUserID,
		Limit:   cfg.ConcertsLimit,
	}, httpClient, pipeline, log)

	srv := server.New(source.NewRegistry(concerts), log)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info().Msg("shutting down")
		if err := srv.Shutdown(); err != nil {
			log.Error().Err(err).Msg("shutdown failed")
		}
	}()

	if err := srv.Listen(cfg.Listen); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
