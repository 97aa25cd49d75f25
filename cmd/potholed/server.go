package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/UmarMaaz/pot-hole-detector/internal/api"
	"github.com/UmarMaaz/pot-hole-detector/internal/candidate"
	"github.com/UmarMaaz/pot-hole-detector/internal/config"
	"github.com/UmarMaaz/pot-hole-detector/internal/embedding"
	"github.com/UmarMaaz/pot-hole-detector/internal/inference"
	"github.com/UmarMaaz/pot-hole-detector/internal/pipeline"
	"github.com/UmarMaaz/pot-hole-detector/internal/samples"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the potholed server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Run the matching loop over a directory of frame images",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWatch(args[0])
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show potholed system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

// components is everything the server, watch loop, and MCP surface share.
type components struct {
	cfg       config.Config
	store     *samples.Store
	mirror    *samples.SQLiteMirror
	processor *pipeline.Processor
	trainer   *pipeline.Trainer
}

func buildComponents(ctx context.Context, cfg config.Config) (*components, error) {
	inf := inference.New(cfg.Inference.BaseURL)
	if !inf.IsRunning(ctx) {
		printWarning("inference sidecar not reachable at %s; detection will fail until it is up", cfg.Inference.BaseURL)
	}

	mirror, err := samples.OpenSQLite(cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening local mirror: %w", err)
	}

	var remote samples.RemoteBackend
	if cfg.Remote.BaseURL != "" {
		remote = samples.NewRemoteClient(cfg.Remote.BaseURL, cfg.Remote.APIToken)
	}
	store := samples.Open(ctx, remote, mirror)

	generator := candidate.NewGenerator(inf, cfg.Inference.DetectModel)
	embedder := embedding.NewRegionEmbedder(inf, cfg.Inference.EmbedModel, cfg.Inference.PatchSize)
	processor := pipeline.NewProcessor(generator, embedder, store, cfg.Match.Threshold, cfg.Match.Parallelism)
	trainer := pipeline.NewTrainer(embedder, store)

	return &components{
		cfg:       cfg,
		store:     store,
		mirror:    mirror,
		processor: processor,
		trainer:   trainer,
	}, nil
}

func (c *components) close() {
	if err := c.mirror.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: closing local mirror: %v\n", err)
	}
}

func setupLogging(cfg config.Config) {
	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "potholed version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	comps, err := buildComponents(ctx, cfg)
	if err != nil {
		return err
	}
	defer comps.close()

	if cfg.API.Token == "" {
		slog.Warn("no API token configured; endpoints are unauthenticated (set POTHOLE_API_TOKEN)")
	}

	handler := api.NewHandler(api.Deps{
		Store:     comps.store,
		Trainer:   comps.trainer,
		Processor: comps.processor,
		Token:     cfg.API.Token,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// MCP server on stdio transport.
	mcpSrv := api.NewMCPServer(api.MCPDeps{
		Store:     comps.store,
		Trainer:   comps.trainer,
		Processor: comps.processor,
	})
	stdioSrv := server.NewStdioServer(mcpSrv)
	go func() {
		if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("MCP stdio server error", "error", err)
		}
	}()
	slog.Info("MCP server started (stdio transport)")

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "potholed listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// terminalRenderer prints each pass's detections to stderr.
type terminalRenderer struct {
	frame int
}

func (r *terminalRenderer) Render(detections []candidate.Detection, bank []samples.Sample) {
	r.frame++
	printStep("frame %d: %d detections (%d learned samples)", r.frame, len(detections), len(bank))
	for _, d := range detections {
		line := fmt.Sprintf("%-14s %-16s score=%.2f dist=%.1fm", d.Type, d.Label, d.Score, d.Distance)
		if d.Type == candidate.TypeLearned {
			line += fmt.Sprintf(" match=%.2f", d.MatchScore)
			fmt.Fprintln(os.Stderr, "  "+colorize(colorRed, line))
			continue
		}
		fmt.Fprintln(os.Stderr, "  "+line)
	}
}

func runWatch(dir string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	comps, err := buildComponents(ctx, cfg)
	if err != nil {
		return err
	}
	defer comps.close()

	source, err := pipeline.NewDirSource(dir)
	if err != nil {
		return err
	}

	loop := pipeline.NewLoop(source, comps.processor, &terminalRenderer{})
	if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		var health struct {
			Status  string `json:"status"`
			Store   string `json:"store"`
			Samples int    `json:"samples"`
		}
		if json.NewDecoder(resp.Body).Decode(&health) == nil {
			printStatus("Server", "running on port %d", cfg.Server.Port)
			printStatus("Store", "%s (%d samples)", health.Store, health.Samples)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
		resp.Body.Close()
	}

	infResp, err := client.Get(strings.TrimRight(cfg.Inference.BaseURL, "/") + "/api/health")
	if err != nil {
		printStatus("Inference", "not running")
	} else {
		infResp.Body.Close()
		printStatus("Inference", "running at %s", cfg.Inference.BaseURL)
	}

	printStatus("Detect model", "%s", cfg.Inference.DetectModel)
	printStatus("Embed model", "%s", cfg.Inference.EmbedModel)
	if cfg.Remote.BaseURL != "" {
		printStatus("Remote backend", "%s", cfg.Remote.BaseURL)
	} else {
		printStatus("Remote backend", "not configured (local-only)")
	}
	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}
