package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"aircast/pkg/api"
	"aircast/pkg/api/schema"

	_ "aircast/docs"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the REST API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (default :8080)")
	return cmd
}

func runServe() error {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	applyLogLevel(cfg)

	ctx := context.Background()

	st, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close store")
		}
	}()

	coordinator, registry := buildCoordinator(cfg, st)
	defer coordinator.Close()

	validator, err := schema.NewValidator()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to compile validation schemas")
	}

	router := api.NewRouter(st, coordinator, registry, validator)

	// Handle shutdown gracefully
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info().Msg("Shutting down...")
		coordinator.Close()
		if err := st.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close store")
		}
		os.Exit(0)
	}()

	log.Info().Str("address", cfg.Listen).Msg("Starting API server")

	if err := router.Run(cfg.Listen); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
	return nil
}
