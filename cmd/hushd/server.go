package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hushmod/hush/moderation/countstore"
	"github.com/hushmod/hush/moderation/engine"
	"github.com/hushmod/hush/moderation/keyword"
	"github.com/hushmod/hush/moderation/mutestore"
	"github.com/hushmod/hush/moderation/ratestore"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	slogecho "github.com/samber/slog-echo"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
)

type Server struct {
	engine *engine.Engine
	echo   *echo.Echo
	httpd  *http.Server
	logger *slog.Logger
	hub    *Hub
	// redis clients etc, closed on shutdown
	closers []io.Closer
}

type Config struct {
	Logger         *slog.Logger
	Bind           string
	RedisURL       string
	PatternsFile   string
	FoldDiacritics bool
	// if set, the admin API requires HTTP basic auth (user "admin")
	AdminPassword string
	Rate          ratestore.Config
	Engine        engine.Config
}

func NewServer(config Config) (*Server, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	if err := config.Engine.Validate(); err != nil {
		return nil, err
	}

	rules := keyword.DefaultPatterns()
	if config.PatternsFile != "" {
		loaded, err := keyword.LoadPatternsFileJSON(config.PatternsFile)
		if err != nil {
			return nil, fmt.Errorf("loading content patterns: %w", err)
		}
		rules = loaded
		logger.Info("loaded content patterns from JSON", "path", config.PatternsFile, "count", len(rules))
	}
	var opts []keyword.Option
	if config.FoldDiacritics {
		opts = append(opts, keyword.WithFoldDiacritics())
	}
	patterns, err := keyword.NewPatternSet(rules, opts...)
	if err != nil {
		return nil, fmt.Errorf("compiling content patterns: %w", err)
	}

	var mutes mutestore.MuteStore
	var rates ratestore.RateLimiter
	var counters countstore.CountStore
	var closers []io.Closer
	if config.RedisURL != "" {
		ms, err := mutestore.NewRedisMuteStore(config.RedisURL, nil)
		if err != nil {
			return nil, fmt.Errorf("initializing redis mutestore: %v", err)
		}
		rl, err := ratestore.NewRedisRateLimiter(config.RedisURL, config.Rate, nil)
		if err != nil {
			return nil, fmt.Errorf("initializing redis ratestore: %v", err)
		}
		cnt, err := countstore.NewRedisCountStore(config.RedisURL, nil)
		if err != nil {
			return nil, fmt.Errorf("initializing redis countstore: %v", err)
		}
		mutes, rates, counters = ms, rl, cnt
		closers = append(closers, ms, rl, cnt)
		logger.Info("using redis for moderation state")
	} else {
		rl, err := ratestore.NewMemRateLimiter(config.Rate, nil)
		if err != nil {
			return nil, fmt.Errorf("initializing ratestore: %v", err)
		}
		mutes = mutestore.NewMemMuteStore(nil)
		rates = rl
		counters = countstore.NewMemCountStore(nil)
		logger.Info("using in-process memory for moderation state (not persisted)")
	}

	eng := engine.Engine{
		Logger:   logger,
		Mutes:    mutes,
		Rates:    rates,
		Patterns: patterns,
		Counters: counters,
		Config:   config.Engine,
	}

	srv := newServer(&eng, logger, config)
	srv.closers = closers
	// registers collectors on the default registry, so only once per process
	srv.echo.Use(echoprometheus.NewMiddleware("hushd"))
	return srv, nil
}

// wires HTTP routes around an already-constructed engine
func newServer(eng *engine.Engine, logger *slog.Logger, config Config) *Server {
	e := echo.New()

	// httpd
	var (
		httpTimeout        = 1 * time.Minute
		httpMaxHeaderBytes = 1 * (1024 * 1024)
	)

	srv := &Server{
		engine: eng,
		echo:   e,
		logger: logger,
		hub:    NewHub(logger),
	}
	srv.httpd = &http.Server{
		Handler:        srv,
		Addr:           config.Bind,
		WriteTimeout:   httpTimeout,
		ReadTimeout:    httpTimeout,
		MaxHeaderBytes: httpMaxHeaderBytes,
	}

	e.HideBanner = true
	e.Use(slogecho.New(logger))
	e.Use(middleware.Recover())
	e.Use(otelecho.Middleware("hushd"))
	e.Use(middleware.BodyLimit("64K"))
	e.HTTPErrorHandler = srv.errorHandler

	e.GET("/_health", srv.HandleHealthCheck)
	e.POST("/v1/messages/check", srv.HandleCheckMessage)
	e.GET("/ws", srv.HandleGatewayWebsocket)

	admin := e.Group("/admin")
	if config.AdminPassword != "" {
		admin.Use(middleware.BasicAuth(func(username, password string, c echo.Context) (bool, error) {
			userOK := subtle.ConstantTimeCompare([]byte(username), []byte("admin")) == 1
			passOK := subtle.ConstantTimeCompare([]byte(password), []byte(config.AdminPassword)) == 1
			return userOK && passOK, nil
		}))
	}
	admin.POST("/mute", srv.HandleAdminMute)
	admin.POST("/unmute", srv.HandleAdminUnmute)
	admin.POST("/tempmute", srv.HandleAdminTempMute)
	admin.GET("/status", srv.HandleAdminStatus)

	return srv
}

func (srv *Server) ServeHTTP(rw http.ResponseWriter, req *http.Request) {
	srv.echo.ServeHTTP(rw, req)
}

func (srv *Server) RunAPI() error {
	srv.logger.Info("starting server", "bind", srv.httpd.Addr)
	go func() {
		if err := srv.httpd.ListenAndServe(); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				srv.logger.Error("HTTP server shutting down unexpectedly", "err", err)
			}
		}
	}()

	// Wait for a signal to exit.
	srv.logger.Info("registering OS exit signal handler")
	quit := make(chan struct{})
	exitSignals := make(chan os.Signal, 1)
	signal.Notify(exitSignals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-exitSignals
		srv.logger.Info("received OS exit signal", "signal", sig)

		if err := srv.Shutdown(); err != nil {
			srv.logger.Error("HTTP server shutdown error", "err", err)
		}

		// Trigger the return that causes an exit.
		close(quit)
	}()
	<-quit
	srv.logger.Info("graceful shutdown complete")
	return nil
}

func (srv *Server) RunMetrics(listen string) error {
	http.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(listen, nil)
}

func (srv *Server) Shutdown() error {
	srv.logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := srv.httpd.Shutdown(ctx)
	srv.hub.CloseAll()
	for _, c := range srv.closers {
		if cerr := c.Close(); cerr != nil {
			srv.logger.Warn("failed to close store", "err", cerr)
		}
	}
	return err
}
