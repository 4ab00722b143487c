package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/nikhil/eaven-routing/internal/config"
	"github.com/nikhil/eaven-routing/internal/database"
	"github.com/nikhil/eaven-routing/internal/handlers"
	"github.com/nikhil/eaven-routing/internal/logger"
	"github.com/nikhil/eaven-routing/internal/realtime"
	"github.com/nikhil/eaven-routing/internal/routes"
	channelService "github.com/nikhil/eaven-routing/internal/service/channels"
	"github.com/nikhil/eaven-routing/internal/service/routing"
	teamService "github.com/nikhil/eaven-routing/internal/service/team"
	ticketService "github.com/nikhil/eaven-routing/internal/service/tickets"
	userService "github.com/nikhil/eaven-routing/internal/service/users"
	workspaceService "github.com/nikhil/eaven-routing/internal/service/workspace"
)

func main() {
	var (
		addr    string
		envFile string
	)
	pflag.StringVar(&addr, "addr", "", "HTTP listen address (overrides HTTP_ADDR)")
	pflag.StringVar(&envFile, "env-file", ".env", "optional dotenv file to load before reading the environment")
	pflag.Parse()

	if err := run(addr, envFile); err != nil {
		fmt.Fprintln(os.Stderr, "eaven-routing:", err)
		os.Exit(1)
	}
}

func run(addr, envFile string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.HTTPAddr = addr
	}

	log := logger.NewLogger("eaven-routing", cfg.Env)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.DSN())
	if err != nil {
		return err
	}
	defer db.Close()
	log.Info("Connected to database", "host", cfg.DBHost, "name", cfg.DBName)

	hub := realtime.NewHub(log)
	hubDone := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(hubDone)
	}()

	sinks := []realtime.Sink{{Name: "websocket", Publisher: hub}}

	if cfg.RedisURL != "" {
		rdb, err := realtime.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rdb.Close()
		sinks = append(sinks, realtime.Sink{Name: "redis", Publisher: realtime.NewRedisPublisher(rdb)})
		log.Info("Redis notifications enabled")
	}

	if cfg.AMQPURL != "" {
		amqpPub, err := realtime.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange, log)
		if err != nil {
			return err
		}
		defer amqpPub.Close()
		sinks = append(sinks, realtime.Sink{Name: "amqp", Publisher: amqpPub})
		log.Info("AMQP notifications enabled", "exchange", cfg.AMQPExchange)
	}

	tickets := ticketService.NewTicketService(db, log)
	channels := channelService.NewChannelService(db, log)

	router := routing.NewRouter(routing.Dependencies{
		Teams:    teamService.NewTeamService(db, log),
		Channels: channels,
		Policy:   workspaceService.NewSettingsService(db, log),
		Users:    userService.NewUserService(db, log),
		History:  tickets,
		Tickets:  tickets,
		Notifier: realtime.NewFanout(log, sinks...),
	}, cfg.RoutingTimeout, log.Named("router"))

	handler := routes.RegisterAllRoutes(routes.Deps{
		JWTSecret: cfg.JWTSecret,
		Tickets:   handlers.NewTicketHandler(tickets, router, log),
		WebSocket: handlers.NewWebSocketHandler(hub, log),
		Ping:      db.PingContext,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Server is running", "addr", cfg.HTTPAddr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		log.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", "error", err)
	}

	stop()
	<-hubDone
	return nil
}
