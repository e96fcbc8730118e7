package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vitalia/teleconsulta/internal/adapters/bedrock"
	router "github.com/vitalia/teleconsulta/internal/adapters/http"
	"github.com/vitalia/teleconsulta/internal/adapters/meet"
	wssignal "github.com/vitalia/teleconsulta/internal/adapters/signal"
	"github.com/vitalia/teleconsulta/internal/adapters/transcribe"
	"github.com/vitalia/teleconsulta/internal/agent"
	"github.com/vitalia/teleconsulta/internal/app"
	"github.com/vitalia/teleconsulta/internal/config"
	"github.com/vitalia/teleconsulta/internal/core"
	"github.com/vitalia/teleconsulta/internal/history"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load AWS config")
	}

	meetings := meet.New(awsCfg)
	transcriber := transcribe.New(awsCfg)
	invoker := bedrock.New(awsCfg, cfg.Bedrock.AgentID, cfg.Bedrock.AgentAliasID)

	rooms := app.NewRegistry()
	streams := app.NewStreamManager(transcriber, core.StreamConfig{
		SampleRate: cfg.Transcribe.SampleRate,
		Language:   cfg.Transcribe.Language,
	})
	patientHistory := history.NewProvider()
	gateway := agent.NewGateway(invoker)

	ctl := wssignal.NewController(rooms, streams, patientHistory, gateway)
	ctl.ReadLimit = cfg.ReadLimit
	ctl.PingPeriod = cfg.PingPeriod

	r := router.SetupRouter(ctx, cfg, meetings, patientHistory, ctl)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("teleconsulta server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
