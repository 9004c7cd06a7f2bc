// Command workers starts a local task-execution backend server: the RPC
// listener, the scheduler loop, and (unless disabled) the admin
// observability HTTP server.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/maumercado/localtaskd/internal/admin"
	adminMiddleware "github.com/maumercado/localtaskd/internal/admin/middleware"
	"github.com/maumercado/localtaskd/internal/config"
	"github.com/maumercado/localtaskd/internal/events"
	"github.com/maumercado/localtaskd/internal/logger"
	"github.com/maumercado/localtaskd/internal/logmanager"
	"github.com/maumercado/localtaskd/internal/rpc"
	"github.com/maumercado/localtaskd/internal/scheduler"
)

func main() {
	cores := flag.Int("n", 0, "number of cores available to the scheduler (0 = all CPUs)")
	logDir := flag.String("log-dir", filepath.Join(".gwf", "logs"), "directory for per-task stdout/stderr logs")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *cores > 0 {
		cfg.Executor.MaxCores = *cores
	}

	logger.Init(cfg.LogLevel, os.Getenv("ENV") != "production")
	log := logger.Get()
	log.Info().Msg("starting workers")

	logManager, err := logmanager.NewFileLogManager(*logDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create log manager")
	}

	var publisher *events.RedisPubSub
	if cfg.Events.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:         cfg.Events.Addr,
			Password:     cfg.Events.Password,
			DB:           cfg.Events.DB,
			DialTimeout:  cfg.Events.DialTimeout,
			ReadTimeout:  cfg.Events.ReadTimeout,
			WriteTimeout: cfg.Events.WriteTimeout,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Warn().Err(err).Msg("event bus unreachable, admin websocket will run degraded")
		} else {
			publisher = events.NewRedisPubSub(redisClient)
			defer publisher.Close()
		}
	}

	// Submission counts, finished-task counts/durations, and the queue/
	// executor/core gauges are recorded by the scheduler itself on every
	// transition; this callback only relays status changes onward to the
	// admin websocket feed.
	sched := scheduler.New(cfg.Executor.MaxCores, cfg.Executor.KillTimeout, logManager,
		scheduler.WithOnChange(func(change scheduler.StatusChange) {
			if publisher != nil {
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				if err := publisher.PublishTaskEvent(ctx, change.TaskID, change.Status.String(), nil); err != nil {
					logger.Warn().Err(err).Str("task_id", change.TaskID).Msg("failed to publish task event")
				}
			}
		}),
	)

	rpcAddr := fmt.Sprintf("%s:%d", cfg.RPC.Host, cfg.RPC.Port)
	rpcServer := rpc.New(rpcAddr, sched)
	if err := rpcServer.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start rpc server")
	}

	schedulerDone := make(chan struct{})
	go func() {
		defer close(schedulerDone)
		sched.ScheduleForever()
	}()

	var httpServer *http.Server
	var adminServer *admin.Server
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if cfg.Admin.Enabled {
		adminServer = admin.NewServer(sched, admin.Config{
			Auth: adminMiddleware.AuthConfig{
				Enabled:   cfg.Auth.Enabled,
				JWTSecret: cfg.Auth.JWTSecret,
			},
			Publisher: publisher,
		})
		adminServer.Start(ctx)
		adminAddr := fmt.Sprintf("%s:%d", cfg.Admin.Host, cfg.Admin.Port)
		httpServer = admin.ListenAndServe(adminAddr, adminServer)
		log.Info().Str("addr", adminAddr).Msg("admin http server listening")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down workers")

	if err := rpcServer.Shutdown(); err != nil {
		log.Error().Err(err).Msg("rpc server shutdown error")
	}

	sched.Shutdown()
	sched.Wait()
	<-schedulerDone

	if adminServer != nil {
		adminServer.Stop()
	}
	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("admin http server shutdown error")
		}
	}

	log.Info().Msg("workers stopped")
}
