package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/couckoo/couckoo/internal/dedupe"
	"github.com/couckoo/couckoo/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run deduplication and serve the results over HTTP",
	Long: `Run the deduplication pipeline once, then expose the results through a
read-only JSON API:

  GET /api/v1/health
  GET /api/v1/labels   filename -> label rows
  GET /api/v1/groups   label classes with their member files
  GET /api/v1/scores   per-pair similarities (when --scores is set)

Example:
  couckoo serve --input-dir ~/photos --scores --port 8080`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("input-dir", "i", "", "Directory containing image files")
	serveCmd.Flags().Float64P("threshold", "t", 0, "Similarity threshold for near duplicates, in [0,1]")
	serveCmd.Flags().IntP("hash-size", "s", 0, "Size of the image hash (signature is hash-size² bits)")
	serveCmd.Flags().IntP("bands", "b", 0, "Number of LSH bands")
	serveCmd.Flags().BoolP("scores", "c", false, "Collect and serve per-pair similarities")
	serveCmd.Flags().Int("concurrency", 0, "Number of parallel fingerprint workers")
	serveCmd.Flags().Int("port", 0, "Port to listen on")
	serveCmd.Flags().String("host", "", "Host to bind to")
}

func runServe(cmd *cobra.Command, args []string) error {
	collectScores := mustGetBool(cmd, "scores")

	cfg, err := dedupeConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = mustGetInt(cmd, "port")
	}
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = mustGetString(cmd, "host")
	}

	result, err := dedupe.Run(cfg.Dedupe.InputDir, dedupe.Options{
		HashSize:      cfg.Dedupe.HashSize,
		Bands:         cfg.Dedupe.Bands,
		Threshold:     cfg.Dedupe.Threshold,
		CollectScores: collectScores,
		Concurrency:   cfg.Dedupe.Concurrency,
		Progress:      true,
	})
	if err != nil {
		return err
	}
	printSummary(result)

	server := web.NewServer(result, cfg.Server.Host, cfg.Server.Port)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	fmt.Printf("Serving results on http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}
