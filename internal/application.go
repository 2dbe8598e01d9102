package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rocketscienceinc/gato-backend/internal/config"
	"github.com/rocketscienceinc/gato-backend/internal/repository"
	"github.com/rocketscienceinc/gato-backend/internal/repository/storage"
	"github.com/rocketscienceinc/gato-backend/internal/service"
	"github.com/rocketscienceinc/gato-backend/internal/usecase"
	"github.com/rocketscienceinc/gato-backend/transport/rest"
	"github.com/rocketscienceinc/gato-backend/transport/tcp"
	"github.com/rocketscienceinc/gato-backend/transport/websocket"
)

const shutdownTimeout = 10 * time.Second

var ErrAddrNotFound = errors.New("redis address string is empty")

// RunApp - runs the application until SIGINT or SIGTERM.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	go func() {
		select {
		case sig := <-sigs:
			log.Info("Received signal, shutting down", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	resultRepo, closeRepo, err := newResultRepository(ctx, log, conf.Redis)
	if err != nil {
		return err
	}
	defer closeRepo()

	resultService := service.NewResultService(logger, resultRepo)
	manager := usecase.NewSessionManager(logger, usecase.SessionOptions{
		BoardSize:      conf.Game.BoardSize,
		MoveTimeout:    conf.Session.MoveTimeout,
		RematchTimeout: conf.Session.RematchTimeout,
	}, resultService)

	tcpServer := tcp.New(logger, manager, conf.Session.WriteTimeout)
	wsServer := websocket.New(logger, manager, conf.Session.WriteTimeout)
	router := rest.NewRouter(logger, manager, resultService, wsServer)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("Starting TCP server", "address", conf.ListenAddress)
		if tcpErr := tcpServer.Start(groupCtx, conf.ListenAddress); tcpErr != nil {
			return fmt.Errorf("TCP server error: %w", tcpErr)
		}
		return nil
	})

	group.Go(func() error {
		log.Info("Starting HTTP server", "address", conf.HTTPAddress)
		if httpErr := rest.Start(groupCtx, logger, conf.HTTPAddress, router); httpErr != nil {
			return fmt.Errorf("HTTP server error: %w", httpErr)
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()

		return manager.Shutdown(shutdownCtx)
	})

	if err = group.Wait(); err != nil {
		return err
	}

	log.Info("Application stopped")

	return nil
}

// newResultRepository - redis when enabled, process memory otherwise.
func newResultRepository(ctx context.Context, log *slog.Logger, conf config.Redis) (repository.ResultRepository, func(), error) {
	if !conf.Enabled {
		log.Info("Redis disabled, keeping results in memory")
		return repository.NewMemoryResultRepository(), func() {}, nil
	}

	redisAddrString := conf.GetRedisAddr()
	if redisAddrString == ":" {
		return nil, nil, ErrAddrNotFound
	}

	client, err := storage.NewRedisStorage(ctx, storage.RedisOptions{
		Addr:     redisAddrString,
		Password: conf.Password,
		DB:       conf.DB,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("could not connect to redis storage: %w", err)
	}

	closeFn := func() {
		if closeErr := client.Close(); closeErr != nil {
			log.Error("could not close redis storage", "error", closeErr)
		}
	}

	return repository.NewResultRepository(client), closeFn, nil
}
