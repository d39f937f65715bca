package main

import (
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sriharsha8991/adv-attack-simulation/internal/ability"
	"github.com/sriharsha8991/adv-attack-simulation/internal/batch"
)

var (
	batchCategories []string
	batchResume     bool
	batchDryRun     bool
	batchOutputDir  string
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run the technique-driven generation sweep",
	Long: `Batch discovers every technique × platform target from the knowledge
graph, enriches each directly (no tool-loop exploration), and composes
one ability per target with bounded parallelism.

Output lands under the configured output directory, one folder per
category with a _manifest.json index. With --resume, categories whose
manifest exists are skipped.`,
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().StringSliceVar(&batchCategories, "category", nil, "Restrict the sweep to specific categories (repeatable)")
	batchCmd.Flags().BoolVar(&batchResume, "resume", false, "Skip categories that already have a manifest")
	batchCmd.Flags().BoolVar(&batchDryRun, "dry-run", false, "Print the discovery manifest without generating")
	batchCmd.Flags().StringVar(&batchOutputDir, "output-dir", "", "Override the configured output directory")
}

func runBatch(cmd *cobra.Command, args []string) error {
	categories := make([]ability.AttackCategory, 0, len(batchCategories))
	for _, raw := range batchCategories {
		cat := ability.AttackCategory(raw)
		if !cat.IsValid() {
			return usageErrorf("unknown attack category: %q", raw)
		}
		categories = append(categories, cat)
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	outputDir := batchOutputDir
	if outputDir == "" {
		outputDir = cfg.Batch.OutputDir
	}

	gen := batch.NewGenerator(a.store, a.aggregator, a.client, batch.Options{
		OutputDir:   outputDir,
		Concurrency: cfg.Batch.Concurrency,
		Validator:   a.validator,
		Galaxy:      a.galaxy,
		Logger:      a.logger,
	})

	stats, err := gen.Run(ctx, batch.RunOptions{
		Categories: categories,
		Resume:     batchResume,
		DryRun:     batchDryRun,
	})
	if err != nil {
		return err
	}

	if batchDryRun {
		return nil
	}

	color.Green("Generated %d abilities (%d blocked, %d failed, %d categories skipped) in %s",
		stats.Generated, stats.Blocked, stats.Failed, stats.SkippedCategories,
		stats.Elapsed.Round(time.Second))
	return stats.Err()
}
