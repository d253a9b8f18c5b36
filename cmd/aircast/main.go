package main

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"aircast/pkg/audio"
	"aircast/pkg/bluetooth"
	"aircast/pkg/config"
	"aircast/pkg/session"
	"aircast/pkg/store"
)

// @title           Aircast API
// @version         1.0
// @description     REST API for system audio capture and Bluetooth audio routing

// @host      localhost:8080
// @BasePath  /api
// @schemes   http https

var (
	cfgPath string
	addr    string
	dbPath  string
	inMem   bool
)

func main() {
	// Logging must go to stderr — stdout is the MCP transport when the
	// mcp subcommand runs
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	root := &cobra.Command{
		Use:   "aircast",
		Short: "System audio capture and Bluetooth audio routing",
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "Path to YAML config file")
	root.PersistentFlags().StringVar(&dbPath, "db", "", "Path to database file (default: ~/.config/aircast/aircast.db)")
	root.PersistentFlags().BoolVar(&inMem, "mem", false, "Use the in-memory store instead of SQLite")

	root.AddCommand(newServeCmd(), newMCPCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig merges flags over the config file.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return cfg, err
	}
	if addr != "" {
		cfg.Listen = addr
	}
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}
	if inMem {
		cfg.Database.InMemory = true
	}
	return cfg, nil
}

func applyLogLevel(cfg config.Config) {
	if cfg.LogLevel == "" {
		return
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("Unknown log level, keeping default")
		return
	}
	zerolog.SetGlobalLevel(level)
}

// openStore selects the persistence backend from config and brings the
// schema up to date.
func openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	if cfg.Database.InMemory {
		log.Info().Msg("Using in-memory store")
		return store.NewMemStore(), nil
	}

	st, err := store.OpenSQLite(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	log.Info().Str("path", st.Path()).Msg("Database opened")

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

// buildCoordinator wires the engine, registry and store together.
func buildCoordinator(cfg config.Config, st store.Store) (*session.Coordinator, *bluetooth.Registry) {
	registry := bluetooth.NewRegistry(bluetooth.NewLogTransport())
	engine := audio.NewEngine(audio.NewSystemSource())

	coordinator := session.New(engine, registry, st, session.LogNotifier{}, session.Options{
		AudioQuality: cfg.Capture.AudioQuality,
		BufferSize:   cfg.Capture.BufferSize,
	})
	coordinator.Start()

	return coordinator, registry
}
