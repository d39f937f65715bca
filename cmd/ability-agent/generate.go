package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sriharsha8991/adv-attack-simulation/internal/ability"
)

var (
	generateCategory string
	generatePlatform string
	generateCount    int
	generateOutput   string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate abilities through the two-phase reasoning pipeline",
	Long: `Generate runs the interactive pipeline for one category and platform:
the model explores the knowledge graph with tools, then composes each
ability as validated structured output.`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&generateCategory, "category", "", "Attack category (e.g. credential_access)")
	generateCmd.Flags().StringVar(&generatePlatform, "platform", "", "Target platform (e.g. windows)")
	generateCmd.Flags().IntVar(&generateCount, "count", 3, "Number of abilities to generate")
	generateCmd.Flags().StringVarP(&generateOutput, "output", "o", "", "Write abilities JSON to file instead of stdout")
	_ = generateCmd.MarkFlagRequired("category")
	_ = generateCmd.MarkFlagRequired("platform")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	category := ability.AttackCategory(generateCategory)
	if !category.IsValid() {
		return usageErrorf("unknown attack category: %q", generateCategory)
	}
	platform := ability.Platform(generatePlatform)
	if !platform.IsValid() {
		return usageErrorf("unknown platform: %q", generatePlatform)
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	abilities, err := a.engine().GenerateAbilities(ctx, category, platform, generateCount)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(abilities, "", "  ")
	if err != nil {
		return err
	}

	if generateOutput != "" {
		if err := os.WriteFile(generateOutput, data, 0o644); err != nil {
			return err
		}
		color.Green("Wrote %d abilities to %s", len(abilities), generateOutput)
		return nil
	}

	fmt.Println(string(data))
	if len(abilities) < generateCount {
		color.Yellow("Produced %d of %d requested abilities", len(abilities), generateCount)
	}
	return nil
}
