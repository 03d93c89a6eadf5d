package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/gommon/log"
	"github.com/pairline/pairline/config"
	"github.com/pairline/pairline/daemon"

	// pipeline components register themselves on import
	_ "github.com/pairline/pairline/pipeline/sinks"
	_ "github.com/pairline/pairline/pipeline/sources"
	_ "github.com/pairline/pairline/pipeline/transforms"
)

var (
	GitCommit = "live"
	Version   = ""
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	d := daemon.NewDaemon(cfg, Version, GitCommit)
	if err := d.Run(); err != nil {
		log.Fatal(err)
	}

	// wait here before closing all workers
	termChan := make(chan os.Signal, 1)
	signal.Notify(termChan, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	<-termChan
	log.Info("SIGTERM received, initiating shutdown now")
	d.Close()
}
