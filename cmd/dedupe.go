package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/couckoo/couckoo/internal/config"
	"github.com/couckoo/couckoo/internal/dedupe"
	"github.com/couckoo/couckoo/internal/results"
	"github.com/couckoo/couckoo/internal/results/postgres"
)

var dedupeCmd = &cobra.Command{
	Use:   "dedupe",
	Short: "Find near-duplicate images in a directory",
	Long: `Scan a directory for images (.png, .jpg, .jpeg), fingerprint them and
group near-duplicates under shared labels.

Writes labels.csv (filename,label ordered by label) to the output directory,
plus scores.csv (imageA,imageB,similarity) when --scores is set.

Examples:
  # Defaults: ./data, 16x16 hash, 16 bands, threshold 0.8
  couckoo dedupe

  # Stricter matching with a score table
  couckoo dedupe --input-dir ~/photos --threshold 0.95 --scores

  # Persist the run to PostgreSQL (requires DATABASE_URL)
  couckoo dedupe --input-dir ~/photos --save`,
	RunE: runDedupe,
}

func init() {
	rootCmd.AddCommand(dedupeCmd)

	dedupeCmd.Flags().StringP("input-dir", "i", "", "Directory containing image files")
	dedupeCmd.Flags().Float64P("threshold", "t", 0, "Similarity threshold for near duplicates, in [0,1]")
	dedupeCmd.Flags().IntP("hash-size", "s", 0, "Size of the image hash (signature is hash-size² bits)")
	dedupeCmd.Flags().IntP("bands", "b", 0, "Number of LSH bands")
	dedupeCmd.Flags().BoolP("scores", "c", false, "Also write scores.csv with per-pair similarities")
	dedupeCmd.Flags().StringP("output-dir", "o", "", "Directory for result CSV files")
	dedupeCmd.Flags().Int("concurrency", 0, "Number of parallel fingerprint workers")
	dedupeCmd.Flags().Bool("save", false, "Persist the run to PostgreSQL (DATABASE_URL)")
}

// dedupeConfig resolves the effective parameters: flags override the
// config file, which overrides environment variables and defaults.
func dedupeConfig(cmd *cobra.Command) (*config.Config, error) {
	var cfg *config.Config
	if configFile != "" {
		loaded, err := config.LoadFile(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = config.Load()
	}

	if cmd.Flags().Changed("input-dir") {
		cfg.Dedupe.InputDir = mustGetString(cmd, "input-dir")
	}
	if cmd.Flags().Changed("output-dir") {
		cfg.Dedupe.OutputDir = mustGetString(cmd, "output-dir")
	}
	if cmd.Flags().Changed("threshold") {
		cfg.Dedupe.Threshold = mustGetFloat64(cmd, "threshold")
	}
	if cmd.Flags().Changed("hash-size") {
		cfg.Dedupe.HashSize = mustGetInt(cmd, "hash-size")
	}
	if cmd.Flags().Changed("bands") {
		cfg.Dedupe.Bands = mustGetInt(cmd, "bands")
	}
	if cmd.Flags().Changed("concurrency") {
		cfg.Dedupe.Concurrency = mustGetInt(cmd, "concurrency")
	}
	return cfg, nil
}

func runDedupe(cmd *cobra.Command, args []string) error {
	collectScores := mustGetBool(cmd, "scores")
	save := mustGetBool(cmd, "save")

	cfg, err := dedupeConfig(cmd)
	if err != nil {
		return err
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

	labelsPath := filepath.Join(cfg.Dedupe.OutputDir, "labels.csv")
	if err := results.SaveLabels(labelsPath, result.Labels); err != nil {
		return err
	}
	fmt.Printf("Labels written to %s\n", labelsPath)

	if collectScores {
		scoresPath := filepath.Join(cfg.Dedupe.OutputDir, "scores.csv")
		if err := results.SaveScores(scoresPath, result.Scores); err != nil {
			return err
		}
		fmt.Printf("Scores written to %s\n", scoresPath)
	}

	if save {
		if err := saveRun(cmd.Context(), cfg, result); err != nil {
			return err
		}
	}
	return nil
}

func printSummary(result *dedupe.Result) {
	groups := make(map[int]int)
	for _, label := range result.Labels {
		groups[label]++
	}
	duplicateGroups := 0
	for _, size := range groups {
		if size > 1 {
			duplicateGroups++
		}
	}

	fmt.Printf("Labeled %d images into %d classes (%d duplicate groups)\n",
		len(result.Labels), len(groups), duplicateGroups)
	if result.Skipped > 0 {
		fmt.Printf("Skipped %d unreadable images\n", result.Skipped)
	}
}

func saveRun(ctx context.Context, cfg *config.Config, result *dedupe.Result) error {
	if cfg.Database.URL == "" {
		return fmt.Errorf("--save requires DATABASE_URL to be configured")
	}

	pool, err := postgres.NewPool(postgres.Config{
		URL:          cfg.Database.URL,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		return fmt.Errorf("connecting to results database: %w", err)
	}
	defer pool.Close()

	if err := pool.Migrate(ctx); err != nil {
		return fmt.Errorf("migrating results database: %w", err)
	}

	id, err := postgres.NewRunRepository(pool).Save(ctx, &postgres.Run{
		InputDir:  cfg.Dedupe.InputDir,
		HashSize:  cfg.Dedupe.HashSize,
		Bands:     cfg.Dedupe.Bands,
		Threshold: cfg.Dedupe.Threshold,
		Labels:    result.Labels,
		Scores:    result.Scores,
	})
	if err != nil {
		return fmt.Errorf("saving run: %w", err)
	}

	fmt.Printf("Run saved as %s\n", id)
	return nil
}
