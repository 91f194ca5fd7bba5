package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/yousuf/jsstack/internal/config"
	"github.com/yousuf/jsstack/internal/logs"
	"github.com/yousuf/jsstack/internal/server"
	"github.com/yousuf/jsstack/internal/session"
)

func main() {
	configPath := pflag.StringP("config", "c", os.Getenv("CONFIG_PATH"), "Path to config file (env CONFIG_PATH)")
	port := pflag.StringP("port", "p", os.Getenv("PORT"), "Port to listen on, overrides server.port (env PORT)")
	pflag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *port != "" {
		cfg.Server.Port = *port
	}

	logger, err := logs.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	sessionMgr := session.NewManager(cfg)

	srv, err := server.New(cfg, sessionMgr)
	if err != nil {
		logger.Fatal("failed to create server", zap.Error(err))
	}

	httpServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      newHandler(srv, cfg),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("jsstack MCP server listening", zap.String("port", cfg.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	stopExpiry := expireSessions(sessionMgr, cfg.Server.SessionTimeout.Duration)

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down server")
	stopExpiry()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}

	if err := sessionMgr.CloseAll(); err != nil {
		logger.Error("error closing sessions", zap.Error(err))
	}

	logger.Info("server stopped")
}

// newHandler serves MCP over streamable HTTP, one MCP server per session
func newHandler(srv *server.Server, cfg *config.Config) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(req *http.Request) *mcp.Server {
		return srv.NewMcpServer()
	}, &mcp.StreamableHTTPOptions{
		Stateless:      false,
		JSONResponse:   false,
		SessionTimeout: cfg.Server.SessionTimeout.Duration,
	})
}

// expireSessions drops idle sessions every timeout/2 until the returned
// function is called
func expireSessions(sessionMgr *session.Manager, timeout time.Duration) func() {
	if timeout <= 0 {
		return func() {}
	}

	done := make(chan struct{})
	ticker := time.NewTicker(timeout / 2)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := sessionMgr.ExpireIdle(timeout); n > 0 {
					zap.L().Named(logs.Server).Info("expired idle sessions", zap.Int("count", n))
				}
			case <-done:
				return
			}
		}
	}()
	return func() { close(done) }
}
