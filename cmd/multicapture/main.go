package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/TanaroSch/multi-capture/internal/app"
	"github.com/TanaroSch/multi-capture/internal/config"
	"github.com/TanaroSch/multi-capture/internal/logging"
)

const version = "v0.3.0"

var log = logging.For("main")

func main() {
	configPath := flag.String("config", "config.json", "config file path")
	logDir := flag.String("log-dir", "", "directory for multicapture.log (default: next to the config file)")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	if exe, err := os.Executable(); err == nil {
		if err := config.LoadDotEnv(filepath.Dir(exe)); err != nil {
			log.Warn().Err(err).Msg("Ignoring environment file next to the executable")
		}
	}
	if err := config.LoadDotEnv("."); err != nil {
		log.Warn().Err(err).Msg("Ignoring environment file in the working directory")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	dir := *logDir
	if dir == "" {
		dir = filepath.Dir(*configPath)
	}
	if err := logging.Init(dir, *debug || cfg.Debug); err != nil {
		log.Warn().Err(err).Msg("Logging to stderr only")
	}
	defer logging.Close()

	log.Info().Str("version", version).Str("config", *configPath).Strs("env_overrides", cfg.Overridden()).Msg("Multi Capture starting")
	if err := config.ValidateOutputDir(cfg.OutputDir); err != nil {
		log.Warn().Err(err).Msg("Output directory is not usable, captures will fail until it is fixed")
	}

	application := app.New(cfg, version)

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Fatal error")
			logging.Close()
			fmt.Fprintf(os.Stderr, "Fatal error: %v\n", r)
			os.Exit(1)
		}
	}()

	application.Run()
}
