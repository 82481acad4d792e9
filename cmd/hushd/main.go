package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/hushmod/hush/moderation/engine"
	"github.com/hushmod/hush/moderation/ratestore"
	"github.com/hushmod/hush/util/cliutil"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	cli "github.com/urfave/cli/v2"
	_ "go.uber.org/automaxprocs"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "hushd",
		Usage:   "chat moderation daemon (mutes, rate limits, content rules)",
		Version: versioninfo.Short(),
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "log verbosity level (eg: warn, info, debug)",
			EnvVars: []string{"HUSH_LOG_LEVEL", "LOG_LEVEL"},
		},
		&cli.StringFlag{
			Name:    "log-format",
			Usage:   "log output format (text or json)",
			EnvVars: []string{"HUSH_LOG_FMT"},
		},
	}

	app.Commands = []*cli.Command{
		runCmd,
	}

	return app.Run(args)
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "run the service",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "bind",
			Usage:   "IP or address, and port, to listen on for HTTP APIs and the websocket gateway",
			Value:   ":3999",
			EnvVars: []string{"HUSH_BIND"},
		},
		&cli.StringFlag{
			Name:    "metrics-listen",
			Usage:   "IP or address, and port, to listen on for metrics APIs",
			Value:   ":3998",
			EnvVars: []string{"HUSH_METRICS_LISTEN"},
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "redis connection URL for shared moderation state; in-process memory if not set",
			EnvVars: []string{"HUSH_REDIS_URL"},
		},
		&cli.StringFlag{
			Name:    "patterns-file",
			Usage:   "JSON file with content rules (words, phrases, regexes); built-in defaults if not set",
			EnvVars: []string{"HUSH_PATTERNS_FILE"},
		},
		&cli.BoolFlag{
			Name:    "fold-diacritics",
			Usage:   "strip diacritics from messages before content matching",
			EnvVars: []string{"HUSH_FOLD_DIACRITICS"},
		},
		&cli.StringFlag{
			Name:    "admin-password",
			Usage:   "password for admin API (HTTP basic auth, user 'admin'); admin API is open if not set",
			EnvVars: []string{"HUSH_ADMIN_PASSWORD"},
		},
		&cli.IntFlag{
			Name:    "max-msgs-per-window",
			Usage:   "number of messages a user may send within the rate window",
			Value:   ratestore.DefaultMaxMessages,
			EnvVars: []string{"HUSH_MAX_MSGS_PER_WINDOW"},
		},
		&cli.DurationFlag{
			Name:    "rate-window",
			Usage:   "length of the sliding rate limit window",
			Value:   ratestore.DefaultWindow,
			EnvVars: []string{"HUSH_RATE_WINDOW"},
		},
		&cli.DurationFlag{
			Name:    "rate-mute-duration",
			Usage:   "temporary mute applied when a user exceeds the rate limit",
			Value:   engine.DefaultRateMuteDuration,
			EnvVars: []string{"HUSH_RATE_MUTE_DURATION"},
		},
		&cli.DurationFlag{
			Name:    "content-mute-duration",
			Usage:   "temporary mute applied when a message matches a content rule",
			Value:   engine.DefaultContentMuteDuration,
			EnvVars: []string{"HUSH_CONTENT_MUTE_DURATION"},
		},
	},
	Action: func(cctx *cli.Context) error {
		logger, err := cliutil.SetupSlog(cliutil.LogOptions{
			LogLevel:  cctx.String("log-level"),
			LogFormat: cctx.String("log-format"),
		})
		if err != nil {
			return err
		}

		// Enable OTLP HTTP exporter
		// For relevant environment variables:
		// https://pkg.go.dev/go.opentelemetry.io/otel/exporters/otlp/otlptrace#readme-environment-variables
		// At a minimum, you need to set
		// OTEL_EXPORTER_OTLP_ENDPOINT=http://localhost:4318
		if ep := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); ep != "" {
			logger.Info("setting up trace exporter", "endpoint", ep)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			exp, err := otlptracehttp.New(ctx)
			if err != nil {
				return fmt.Errorf("failed to create trace exporter: %w", err)
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				if err := exp.Shutdown(ctx); err != nil {
					logger.Error("failed to shutdown trace exporter", "error", err)
				}
			}()

			tp := tracesdk.NewTracerProvider(
				tracesdk.WithBatcher(exp),
				tracesdk.WithResource(resource.NewWithAttributes(
					semconv.SchemaURL,
					semconv.ServiceNameKey.String("hushd"),
					attribute.String("env", os.Getenv("ENVIRONMENT")),
					attribute.String("environment", os.Getenv("ENVIRONMENT")),
				)),
			)
			otel.SetTracerProvider(tp)
		}

		srv, err := NewServer(Config{
			Logger:         logger,
			Bind:           cctx.String("bind"),
			RedisURL:       cctx.String("redis-url"),
			PatternsFile:   cctx.String("patterns-file"),
			FoldDiacritics: cctx.Bool("fold-diacritics"),
			AdminPassword:  cctx.String("admin-password"),
			Rate: ratestore.Config{
				MaxMessages: cctx.Int("max-msgs-per-window"),
				Window:      cctx.Duration("rate-window"),
			},
			Engine: engine.Config{
				RateMuteDuration:    cctx.Duration("rate-mute-duration"),
				ContentMuteDuration: cctx.Duration("content-mute-duration"),
			},
		})
		if err != nil {
			return err
		}

		go func() {
			if err := srv.RunMetrics(cctx.String("metrics-listen")); err != nil {
				logger.Error("failed to start metrics endpoint", "error", err)
				panic(fmt.Errorf("failed to start metrics endpoint: %w", err))
			}
		}()

		if err := srv.RunAPI(); err != nil {
			return fmt.Errorf("failed to run hushd service: %w", err)
		}
		return nil
	},
}
