package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	log "github.com/golang/glog"
	"github.com/ohowland/lno_core/internal/pkg/colgen"
	"github.com/ohowland/lno_core/internal/pkg/config"
)

var (
	configPath = flag.String("config", "", "JSON run configuration")
	factsPath  = flag.String("facts", "", "instance fact file, overrides FactsPath")
	dualsPath  = flag.String("out", "", "dual fact file to write, overrides DualsPath")
)

func main() {
	flag.Parse()
	defer log.Flush()
	log.Info("[Main] Starting LNO_Core v0.1.0")

	log.Info("[Main] Loading Configuration")
	cfg, err := loadConfig()
	if err != nil {
		log.Exitf("[Main] %v", err)
	}
	if cfg.FactsPath == "" {
		log.Exit("[Main] no fact file given, use -facts or FactsPath")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case s := <-sigs:
			log.Warningf("[Main] %v received, stopping", s)
			cancel()
		case <-ctx.Done():
		}
	}()

	log.Info("[Main] Building Runner")
	runner, err := colgen.New(cfg)
	if err != nil {
		log.Exitf("[Main] %v", err)
	}

	log.Infof("[Main] Running Iteration over %s", cfg.FactsPath)
	stop := colgen.Watch(runner.Events)
	it, err := runner.RunFile(ctx, cfg.FactsPath, cfg.DualsPath)
	log.V(1).Infof("[Main] %d stage events", stop())
	if err != nil {
		log.Exitf("[Main] %v", err)
	}

	log.Infof("[Main] Iteration %s: objective %g, %d duals, %d dropped facts, %d precision warnings",
		it.ID, it.Response.Objective, it.Response.Duals.Len(), len(it.Parse.Dropped), len(it.Warnings))
	log.Info("[Main] Stopping")
}

func loadConfig() (config.Config, error) {
	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.New(*configPath); err != nil {
			return cfg, err
		}
	}
	if *factsPath != "" {
		cfg.FactsPath = *factsPath
	}
	if *dualsPath != "" {
		cfg.DualsPath = *dualsPath
	}
	return cfg, nil
}
