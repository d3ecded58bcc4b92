// Command openclawd runs the openclaw gateway daemon.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/messixukejia/openclaw/internal/app"
	"github.com/messixukejia/openclaw/internal/config"
	"github.com/messixukejia/openclaw/internal/logging"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		base := logging.Base()
		base.Fatal().Err(err).Msg("load config")
	}
	logging.Configure(logging.Config{Level: cfg.LogLevel, Service: "openclawd"})
	log := logging.WithComponent("main")

	application, err := app.New(cfg, *configPath, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("init")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()
	if err := application.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("run")
	}
}
