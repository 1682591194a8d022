// framed is the device-side daemon: it drives the e-paper panel, the
// button and the on-card widget cache against a widgetd service.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"
	"periph.io/x/host/v3"

	"github.com/sixcolor/photoframe/internal/cache"
	"github.com/sixcolor/photoframe/internal/config"
	"github.com/sixcolor/photoframe/internal/device"
	"github.com/sixcolor/photoframe/internal/epd"
	"github.com/sixcolor/photoframe/internal/httpclient"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.LoadDevice(*configPath)
	if err != nil {
		boot := zerolog.New(os.Stderr)
		boot.Fatal().Err(err).Msg("loading config")
	}

	level, lerr := zerolog.ParseLevel(cfg.LogLevel)
	if lerr != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()

	if _, err := host.Init(); err != nil {
		log.Fatal().Err(err).Msg("initializing host drivers")
	}

	storage := cache.NewDirStorage(cfg.StoragePath)
	mgr := cache.NewManager(storage, cfg.PruneInactive, log)
	client := httpclient.New(cfg.ServerURL, cfg.Widget, cfg.NetTimeout, log)

	var panel epd.Panel
	if cfg.NoPanel {
		log.Warn().Msg("running without panel hardware")
		panel = &epd.NopPanel{}
	} else {
		p, err := epd.Open(cfg.SPIPort, epd.Pins{
			Reset: cfg.ResetPin,
			DC:    cfg.DCPin,
			Busy:  cfg.BusyPin,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("opening panel")
		}
		defer p.Close()
		panel = p
	}

	var button device.Button
	if b, err := device.OpenButton(cfg.ButtonDevice, log); err != nil {
		log.Warn().Err(err).Msg("button unavailable, running on timer only")
		button = device.NewChanButton()
	} else {
		button = b
	}

	seed := cfg.ShuffleSeed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	machine := device.NewMachine(device.Config{
		SleepInterval: cfg.SleepInterval,
		InputWindow:   cfg.InputWindow,
		NetTimeout:    cfg.NetTimeout,
		DeepSleep:     cfg.DeepSleep,
		Shuffle:       cfg.Shuffle,
		ShuffleSeed:   seed,
		ServerURL:     cfg.ServerURL,
		BatteryPath:   cfg.BatteryPath,
	}, mgr, client, panel, button, device.OpenLED(cfg.LEDPin), log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sup := suture.NewSimple("framed")
	sup.Add(machine)

	log.Info().Str("server", cfg.ServerURL).Str("widget", cfg.Widget).Msg("starting")
	if err := sup.Serve(ctx); err != nil && ctx.Err() == nil {
		log.Fatal().Err(err).Msg("supervisor exited")
	}
	log.Info().Msg("shut down")
}
