package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/laurikarhu/sxmproxy/internal/config"
	"github.com/laurikarhu/sxmproxy/internal/handlers"
	"github.com/laurikarhu/sxmproxy/internal/metrics"
	"github.com/laurikarhu/sxmproxy/internal/middleware"
	"github.com/laurikarhu/sxmproxy/internal/sxm"
	"github.com/laurikarhu/sxmproxy/internal/telemetry"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	app := &cli.Command{
		Name:  "sxmproxy",
		Usage: "local HLS proxy for the SiriusXM web player",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "secrets",
				Usage: "path to a TOML secrets file (default: read SXM_USERNAME/SXM_PASSWORD from the environment)",
			},
		},
		Commands: []*cli.Command{
			channelsCommand(),
		},
		Action: serveAction,
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatal().Err(err).Msg("sxmproxy: fatal error")
	}
}

func loadSecrets(cmd *cli.Command) config.Secrets {
	if path := cmd.String("secrets"); path != "" {
		return config.TOMLSecrets{Path: path}
	}
	return config.EnvSecrets{}
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(loadSecrets(cmd))
	if err != nil {
		return fmt.Errorf("sxmproxy: %w", err)
	}

	collector := metrics.NewCollector()

	client, err := sxm.NewClient()
	if err != nil {
		return fmt.Errorf("sxmproxy: failed to build sxm client: %w", err)
	}

	session := sxm.NewSessionManager(client, cfg.Username, cfg.Password, collector)
	catalog := sxm.NewCatalog(client, session)

	var sink sxm.Sink = sxm.NoopSink{}
	if cfg.RedisURL != "" {
		redisSink, err := telemetry.NewRedisSink(ctx, cfg.RedisURL)
		if err != nil {
			log.Warn().Err(err).Msg("sxmproxy: telemetry disabled, failed to connect to redis")
		} else {
			defer redisSink.Close()
			sink = redisSink
		}
	}

	resolver := sxm.NewPlaylistResolver(client, session, catalog, sink, collector)

	proxy := handlers.NewProxy(resolver, collector)
	debugGuard := middleware.NewDebugGuard(cfg)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      proxy.Routes(debugGuard),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("sxmproxy: listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("sxmproxy: server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("sxmproxy: shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("sxmproxy: forced shutdown")
	}
	log.Info().Msg("sxmproxy: exited")
	return nil
}

func channelsCommand() *cli.Command {
	return &cli.Command{
		Name:  "channels",
		Usage: "list the SiriusXM channel catalog and exit",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := config.Load(loadSecrets(cmd))
			if err != nil {
				return fmt.Errorf("sxmproxy: %w", err)
			}

			client, err := sxm.NewClient()
			if err != nil {
				return fmt.Errorf("sxmproxy: failed to build sxm client: %w", err)
			}
			session := sxm.NewSessionManager(client, cfg.Username, cfg.Password, nil)
			catalog := sxm.NewCatalog(client, session)

			channels, err := catalog.Channels(ctx)
			if err != nil {
				return fmt.Errorf("sxmproxy: failed to list channels: %w", err)
			}

			sort.Slice(channels, func(i, j int) bool {
				if channels[i].IsFavorite != channels[j].IsFavorite {
					return channels[i].IsFavorite
				}
				ni, errI := strconv.Atoi(channels[i].SiriusChannelNumber)
				nj, errJ := strconv.Atoi(channels[j].SiriusChannelNumber)
				if errI == nil && errJ == nil {
					return ni < nj
				}
				return channels[i].SiriusChannelNumber < channels[j].SiriusChannelNumber
			})

			fmt.Printf("%-8s %-6s %s\n", "ID", "NUM", "NAME")
			for _, ch := range channels {
				fmt.Printf("%-8s %-6s %s\n", ch.ChannelID, ch.SiriusChannelNumber, ch.Name)
			}
			return nil
		},
	}
}
