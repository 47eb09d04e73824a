package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cometbft/cometbft/abci/server"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/cyotee/manamesh-sub000/internal/app"
)

// config is the optional YAML file; flags override whatever it sets.
type config struct {
	Home      string `yaml:"home"`
	Addr      string `yaml:"addr"`
	Transport string `yaml:"transport"`
}

func defaultConfig() config {
	return config{
		Home:      ".manamesh",
		Addr:      "tcp://127.0.0.1:26658",
		Transport: "socket",
	}
}

func loadConfig(path string) (config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	body, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(body, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

func main() {
	var (
		configPath = flag.String("config", "", "path to YAML config file")
		home       = flag.String("home", "", "app home directory (state lives under <home>/app)")
		addr       = flag.String("addr", "", "ABCI listen address")
		transport  = flag.String("transport", "", "ABCI transport (socket|grpc)")
	)
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if *home != "" {
		cfg.Home = *home
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *transport != "" {
		cfg.Transport = *transport
	}

	a, err := app.New(cfg.Home)
	if err != nil {
		log.Fatal().Err(err).Msg("init app")
	}

	srv, err := server.NewServer(cfg.Addr, cfg.Transport, a)
	if err != nil {
		log.Fatal().Err(err).Msg("build abci server")
	}
	if err := srv.Start(); err != nil {
		log.Fatal().Err(err).Msg("start abci server")
	}
	defer func() { _ = srv.Stop() }()

	log.Info().Str("addr", cfg.Addr).Str("home", cfg.Home).Msg("manameshd listening")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info().Msg("shutting down")
}
