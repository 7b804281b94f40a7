package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/teresa-solution/email-tracking-service/internal/api"
	"github.com/teresa-solution/email-tracking-service/internal/config"
	"github.com/teresa-solution/email-tracking-service/internal/crypto"
	"github.com/teresa-solution/email-tracking-service/internal/monitoring"
	"github.com/teresa-solution/email-tracking-service/internal/service"
	"github.com/teresa-solution/email-tracking-service/internal/store"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

var version = "0.1.0"

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(cfg.Level())
	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := []store.Option{}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("Redis unreachable, cache reads will fall through")
		}
		opts = append(opts, store.WithCache(rdb, cfg.CacheTTL))
	}
	if cfg.RecipientKey != "" {
		cipher, err := crypto.New([]byte(cfg.RecipientKey))
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid recipient key")
		}
		opts = append(opts, store.WithRecipientCipher(cipher))
	}

	repo, err := store.Open(ctx, cfg.DatabaseURL, opts...)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer repo.Close()

	monitoring.InitMetrics()

	trackingService := service.NewTrackingService(repo, cfg.BaseURL)
	handler, err := api.NewHandler(trackingService, repo, cfg.BaseURL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build HTTP handler")
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler.Routes(log.Logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Msgf("Starting Email Tracking Service on port %d", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	var grpcServer *grpc.Server
	healthServer := health.NewServer()
	if cfg.GRPCPort != 0 {
		lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to listen")
		}

		grpcServer = grpc.NewServer()
		healthpb.RegisterHealthServer(grpcServer, healthServer)
		reflection.Register(grpcServer)
		healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

		go func() {
			log.Info().Msgf("gRPC health server listening at %v", lis.Addr())
			if err := grpcServer.Serve(lis); err != nil {
				log.Fatal().Err(err).Msg("Failed to start gRPC server")
			}
		}()
	}

	<-ctx.Done()
	log.Info().Msg("Shutting down server...")

	healthServer.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	log.Info().Msg("Server exiting")
}
