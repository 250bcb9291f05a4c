package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/flokli/monitor-agent/config"
	"github.com/flokli/monitor-agent/server"
	"github.com/flokli/monitor-agent/vcp"
	log "github.com/sirupsen/logrus"
)

var configPath = flag.String("config", "", "Path to the YAML configuration file")

func main() {
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Error("Unable to load config")
		os.Exit(1)
	}

	if err := setupLogging(cfg.Logging); err != nil {
		log.WithError(err).Error("Unable to set up logging")
		os.Exit(1)
	}

	// get machine id
	machineID, err := GetMachineID()
	if err != nil {
		log.WithError(err).Error("Unable to get machine id")
		os.Exit(1)
	}

	// register additional feature codes, before anything reads the registry
	registry := vcp.NewRegistry()
	features, err := cfg.RegisterFeatures(registry)
	if err != nil {
		log.WithError(err).Error("Unable to register features")
		os.Exit(1)
	}
	registry.Freeze()

	s := server.New(machineID, cfg.MQTT.TopicPrefix)

	go func() {
		if err := s.Run(ctx, cfg, registry, features); err != nil {
			log.WithError(err).Errorf("Server failed")
			stop()
		}
	}()

	// Listen for the interrupt signal
	<-ctx.Done()
	s.Close()
}

func setupLogging(cfg config.Logging) error {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		return err
	}
	log.SetLevel(level)

	if cfg.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return nil
}
