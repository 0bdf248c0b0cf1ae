package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/kovanov/redline/internal/api"
	"github.com/kovanov/redline/internal/artifact"
	"github.com/kovanov/redline/internal/config"
	"github.com/kovanov/redline/internal/session"
	"github.com/kovanov/redline/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the redline web demo server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running redline server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show redline system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the grammar tools over MCP on stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMCP()
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "redline.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func setupLogging(cfg config.Config) {
	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))
}

func runServe() error {
	fmt.Fprintf(os.Stderr, "redline version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg)

	// Write PID file. Check if the server is already running via the health
	// endpoint first.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("redline is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("redline is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// One shared session backs every request; AutoRestart covers an engine
	// crash without taking the demo down.
	opts := sessionOptions(cfg)
	opts.AutoRestart = true
	sess, err := session.New(ctx, opts)
	if err != nil {
		return fmt.Errorf("starting engine: %w", err)
	}
	defer func() {
		if err := sess.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing session: %v\n", err)
		}
	}()
	slog.Info("engine ready", "url", sess.URL(), "language", sess.Language())

	// Open storage.
	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	handler := api.NewHandler(api.Deps{
		Session: sess,
		Store:   store,
		Words:   api.NewWordsClient(cfg.Words.BaseURL),
		Token:   cfg.Server.Token,
		Version: version,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Start server in a goroutine.
	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "redline listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for signal or server error.
	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	// Graceful shutdown with timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("redline is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop redline (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to redline (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		// Still show partial status even if config fails.
		printError("config error: %v", err)
		return nil
	}

	// Check server health.
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port))
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == 200 {
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	printStatus("Language", "%s", cfg.Check.Language)
	printStatus("Engine version", "%s", cfg.Engine.Version)

	// Show cached engine installations.
	r := artifact.NewResolver()
	if cfg.Engine.CacheDir != "" {
		r.CacheDir = cfg.Engine.CacheDir
	}
	if installed, err := r.Installed(); err == nil {
		if len(installed) == 0 {
			printStatus("Installed", "none (run 'redline download')")
		}
		for _, inst := range installed {
			printStatus("Installed", "%s (%s)", inst.Version, inst.Dir)
		}
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	printStatus("Cache dir", "%s", r.CacheDir)
	return nil
}

func runMCP() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	// stdout carries the MCP transport, so all logging stays on stderr.
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := sessionOptions(cfg)
	opts.AutoRestart = true
	sess, err := session.New(ctx, opts)
	if err != nil {
		return fmt.Errorf("starting engine: %w", err)
	}
	defer sess.Close()
	slog.Info("engine ready", "url", sess.URL(), "language", sess.Language())

	mcpSrv := api.NewMCPServer(api.MCPDeps{Session: sess, Version: version})
	stdioSrv := server.NewStdioServer(mcpSrv)
	slog.Info("MCP server started (stdio transport)")
	if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
