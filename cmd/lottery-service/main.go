package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LavaJover/shvark-lottery-service/internal/app/background"
	"github.com/LavaJover/shvark-lottery-service/internal/app/setup"
	"github.com/LavaJover/shvark-lottery-service/internal/config"
	"github.com/LavaJover/shvark-lottery-service/internal/delivery/grpcapi"
	"github.com/LavaJover/shvark-lottery-service/internal/delivery/grpcapi/basketv1"
	"github.com/LavaJover/shvark-lottery-service/internal/delivery/http/handlers"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("lottery service: %v", err)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := setup.InitializeDependencies(ctx)
	if err != nil {
		return err
	}
	defer deps.Close()

	ucs, err := setup.InitializeUseCases(ctx, deps)
	if err != nil {
		return err
	}

	cfg := deps.Config
	logger := deps.Logger
	logger.Info("starting lottery service", zap.Strings("roles", cfg.Roles))

	g, ctx := errgroup.WithContext(ctx)

	// gRPC: basket API for the sales role, health for every role
	var basketServer basketv1.BasketServiceServer
	if cfg.HasRole(config.RoleSales) {
		basketServer = grpcapi.NewBasketHandler(ucs.BasketUsecase)
	}
	grpcServer, healthServer := grpcapi.NewServer(basketServer, logger.Named("grpc"))
	grpcAddr := fmt.Sprintf("%s:%s", cfg.GRPCServer.Host, cfg.GRPCServer.Port)
	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", grpcAddr, err)
	}
	g.Go(func() error {
		logger.Info("gRPC server started", zap.String("addr", grpcAddr))
		return grpcServer.Serve(lis)
	})
	g.Go(func() error {
		<-ctx.Done()
		healthServer.Shutdown()
		grpcServer.GracefulStop()
		return nil
	})

	// HTTP: ops endpoints and the leaderboard read API
	var board *handlers.LeaderboardHandler
	if cfg.HasRole(config.RoleLeaderboard) {
		board = handlers.NewLeaderboardHandler(ucs.LeaderboardUsecase, logger.Named("http"))
	}
	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.HTTPServer.Host, cfg.HTTPServer.Port),
		Handler:           handlers.NewRouter(board, deps.Registry, logger.Named("http")),
		ReadHeaderTimeout: 5 * time.Second,
	}
	g.Go(func() error {
		logger.Info("HTTP server started", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	// Kafka importers and dead-letter monitors
	consumers := background.NewConsumers(
		cfg,
		background.ImportTopics(cfg),
		ucs.ImportUsecase,
		ucs.DeadLetterMonitor,
		deps.Publisher,
		deps.Metrics,
		logger.Named("kafka"),
		false,
	)
	g.Go(func() error { return consumers.Run(ctx) })

	// Scheduled jobs
	tasks := background.NewBackgroundTasks(
		ucs.InventoryUsecase,
		ucs.BasketUsecase,
		ucs.SettlementUsecase,
		ucs.ExportUsecase,
		cfg,
		deps.Metrics,
		logger.Named("jobs"),
	)
	g.Go(func() error { return tasks.Run(ctx) })

	err = g.Wait()
	logger.Info("lottery service stopped", zap.Error(err))
	return err
}
