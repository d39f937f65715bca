package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"golang.org/x/sync/errgroup"

	"github.com/sriharsha8991/adv-attack-simulation/internal/ability"
	"github.com/sriharsha8991/adv-attack-simulation/internal/cti"
	"github.com/sriharsha8991/adv-attack-simulation/internal/galaxy"
	"github.com/sriharsha8991/adv-attack-simulation/internal/intel"
	"github.com/sriharsha8991/adv-attack-simulation/internal/llm"
	"github.com/sriharsha8991/adv-attack-simulation/internal/reasoning"
	"github.com/sriharsha8991/adv-attack-simulation/internal/safety"
)

// DefaultConcurrency is the parallel LLM call cap for a sweep.
const DefaultConcurrency = 100

// manifestName is the per-category index file; its presence marks a
// category as complete for resume purposes.
const manifestName = "_manifest.json"

// GalaxySource is the slice of the galaxy index the generator needs.
type GalaxySource interface {
	Context(techniqueID string) (*galaxy.TechniqueContext, error)
}

// maxStatErrors bounds the per-target error strings kept on Stats; failures
// beyond the cap are still counted, just not itemized.
const maxStatErrors = 20

// Stats accumulates the outcome of one sweep.
type Stats struct {
	TotalTargets      int
	Generated         int
	Failed            int
	Blocked           int
	SkippedCategories int
	Elapsed           time.Duration
	Errors            []string
	ErrorsDropped     int
}

// recordError tallies one target failure, keeping at most maxStatErrors
// error strings. The caller must hold the stats lock.
func (s *Stats) recordError(msg string) {
	s.Failed++
	if len(s.Errors) < maxStatErrors {
		s.Errors = append(s.Errors, msg)
		return
	}
	s.ErrorsDropped++
}

// Err reports the sweep outcome as an error: non-nil when any target
// failed, so the CLI can exit nonzero.
func (s *Stats) Err() error {
	if s.Failed > 0 {
		return fmt.Errorf("%d of %d targets failed", s.Failed, s.TotalTargets)
	}
	return nil
}

// Options configures a Generator.
type Options struct {
	OutputDir   string
	Concurrency int
	Validator   *safety.Validator
	Galaxy      GalaxySource
	Logger      *slog.Logger
}

// Generator runs the technique-driven generation sweep. It shares no state
// with the interactive engine: one graph store, one enrichment path, one
// LLM client, all reused across every target.
type Generator struct {
	store       *cti.Store
	aggregator  *intel.Aggregator
	galaxy      GalaxySource
	client      *llm.Client
	validator   *safety.Validator
	outputDir   string
	concurrency int
	logger      *slog.Logger
}

// NewGenerator creates a Generator around a graph store and LLM client.
func NewGenerator(store *cti.Store, aggregator *intel.Aggregator, client *llm.Client, opts Options) *Generator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	outputDir := opts.OutputDir
	if outputDir == "" {
		outputDir = filepath.Join("output", "abilities")
	}
	return &Generator{
		store:       store,
		aggregator:  aggregator,
		galaxy:      opts.Galaxy,
		client:      client,
		validator:   opts.Validator,
		outputDir:   outputDir,
		concurrency: concurrency,
		logger:      logger,
	}
}

// RunOptions controls one sweep invocation.
type RunOptions struct {
	Categories []ability.AttackCategory
	Resume     bool
	DryRun     bool
}

// Run executes the sweep: discover targets, then generate category by
// category with up to the configured concurrency of parallel LLM calls.
// With Resume set, categories whose manifest already exists are skipped.
// With DryRun set, the discovery manifest is printed and nothing is
// generated.
func (g *Generator) Run(ctx context.Context, opts RunOptions) (*Stats, error) {
	stats := &Stats{}
	start := time.Now()

	targets, err := g.DiscoverTargets(ctx, opts.Categories)
	if err != nil {
		return nil, err
	}
	stats.TotalTargets = len(targets)

	if opts.DryRun {
		printManifest(targets)
		stats.Elapsed = time.Since(start)
		return stats, nil
	}

	byCategory := make(map[ability.AttackCategory][]Target)
	for _, t := range targets {
		byCategory[t.Category] = append(byCategory[t.Category], t)
	}
	ordered := make([]ability.AttackCategory, 0, len(byCategory))
	for cat := range byCategory {
		ordered = append(ordered, cat)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })

	for idx, category := range ordered {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		catTargets := byCategory[category]
		catDir := filepath.Join(g.outputDir, string(category))
		manifestPath := filepath.Join(catDir, manifestName)

		if opts.Resume {
			if _, err := os.Stat(manifestPath); err == nil {
				g.logger.InfoContext(ctx, "skipping category, manifest exists",
					"category", category, "index", idx+1, "total", len(ordered))
				stats.SkippedCategories++
				continue
			}
		}

		g.logger.InfoContext(ctx, "generating category",
			"category", category,
			"index", idx+1,
			"total", len(ordered),
			"targets", len(catTargets),
		)

		abilities := g.generateCategory(ctx, catTargets, stats)
		if err := g.saveCategory(category, abilities, catDir); err != nil {
			return stats, err
		}

		g.logger.InfoContext(ctx, "category complete",
			"category", category, "abilities", len(abilities))
	}

	stats.Elapsed = time.Since(start)
	g.logSummary(ctx, stats)
	return stats, nil
}

// generateCategory composes one ability per target with bounded
// parallelism. Individual failures are tallied, never fatal.
func (g *Generator) generateCategory(ctx context.Context, targets []Target, stats *Stats) []*ability.Ability {
	var (
		mu        sync.Mutex
		abilities []*ability.Ability
	)

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(g.concurrency)

	for _, target := range targets {
		group.Go(func() error {
			a, err := g.composeAbility(gctx, target)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				stats.recordError(fmt.Sprintf("%s/%s: %v", target.TechniqueID, target.Platform, err))
				g.logger.WarnContext(gctx, "target failed",
					"technique_id", target.TechniqueID, "platform", target.Platform, "error", err)
			case a == nil:
				stats.recordError(fmt.Sprintf("%s/%s: composition produced nothing", target.TechniqueID, target.Platform))
			default:
				abilities = append(abilities, a)
				stats.Generated++
				if a.ApprovalStatus == ability.ApprovalBlocked {
					stats.Blocked++
				}
				g.logger.InfoContext(gctx, "target generated",
					"technique_id", target.TechniqueID,
					"platform", target.Platform,
					"name", a.Name,
				)
			}
			return nil
		})
	}

	// Workers never return errors; Wait only observes ctx cancellation.
	_ = group.Wait()
	return abilities
}

// composeAbility generates one ability for a target: direct graph + galaxy
// enrichment, one schema-mode LLM call, provenance enforcement, and
// optional safety validation.
func (g *Generator) composeAbility(ctx context.Context, target Target) (*ability.Ability, error) {
	bundle, err := g.store.TechniqueIntel(ctx, target.TechniqueID)
	if err != nil {
		return nil, err
	}

	var galaxyCtx *galaxy.TechniqueContext
	if g.galaxy != nil {
		galaxyCtx, err = g.galaxy.Context(target.TechniqueID)
		if err != nil {
			g.logger.WarnContext(ctx, "galaxy enrichment failed",
				"technique_id", target.TechniqueID, "error", err)
			galaxyCtx = nil
		}
	}

	prompt := buildCompositionPrompt(target, formatEnrichment(bundle, galaxyCtx))

	result, err := g.client.Generate(ctx, llm.GenerateRequest{
		Messages: []llm.Message{
			llm.NewSystemMessage(reasoning.SystemPrompt),
			llm.NewUserMessage(prompt),
		},
		Schema: reasoning.AbilitySchema(),
	})
	if err != nil {
		return nil, err
	}

	a, ok := result.Parsed.(*ability.Ability)
	if !ok || a == nil {
		return nil, nil
	}

	a.EnforceProvenance(time.Now())

	// The model sometimes returns an empty intel block. We hold the ground
	// truth, so backfill from the enrichment bundle rather than re-asking.
	if len(a.ThreatIntelContext.AssociatedGroups) == 0 && len(a.ThreatIntelContext.AssociatedTools) == 0 {
		if enriched := g.aggregator.EnrichIntel(ctx, target.TechniqueID, bundle); enriched != nil {
			a.ThreatIntelContext = *enriched
		}
	}

	var warnings []string
	if g.validator != nil {
		validation := g.validator.Validate(ctx, a)
		if !validation.Passed {
			a.ApprovalStatus = ability.ApprovalBlocked
			failed := make([]string, 0, len(validation.HardFailures))
			for _, f := range validation.HardFailures {
				failed = append(failed, f.RuleName)
			}
			g.logger.WarnContext(ctx, "ability blocked",
				"technique_id", target.TechniqueID,
				"platform", target.Platform,
				"rules", failed,
			)
		}
		for _, w := range validation.Warnings {
			warnings = append(warnings, w.Detail)
		}
	}

	a.GenerationTrace = &ability.GenerationTrace{
		Model:              g.client.Model(),
		ToolsCalled:        []string{"get_technique_intel", "enrich_technique_context"},
		ReasoningSteps:     0,
		TotalTokens:        result.TotalTokens,
		BlocklistVersion:   ability.BlocklistVersion,
		ValidationWarnings: warnings,
	}

	return a, nil
}

// manifest is the lightweight per-category index written after a sweep.
type manifest struct {
	Category          string         `json:"category"`
	GeneratedAt       string         `json:"generated_at"`
	Model             string         `json:"model"`
	TotalAbilities    int            `json:"total_abilities"`
	TechniquesCovered []string       `json:"techniques_covered"`
	Files             []manifestFile `json:"files"`
}

type manifestFile struct {
	File        string `json:"file"`
	TechniqueID string `json:"technique_id"`
	Platform    string `json:"platform"`
	Name        string `json:"name"`
}

// saveCategory writes one JSON file per ability plus the category manifest.
//
// Layout:
//
//	<output>/<category>/<technique_id>_<platform>.json
//	<output>/<category>/_manifest.json
func (g *Generator) saveCategory(category ability.AttackCategory, abilities []*ability.Ability, catDir string) error {
	if err := os.MkdirAll(catDir, 0o755); err != nil {
		return err
	}

	covered := make(map[string]bool)
	files := make([]manifestFile, 0, len(abilities))

	for _, a := range abilities {
		plat := "unknown"
		if len(a.Executors) > 0 {
			plat = string(a.Executors[0].Platform)
		}

		tid := a.TechniqueID()
		safeTID := strings.ReplaceAll(tid, "/", "_")
		filename := fmt.Sprintf("%s_%s.json", safeTID, plat)

		data, err := json.MarshalIndent(a, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(catDir, filename), data, 0o644); err != nil {
			return err
		}

		covered[a.MitreMapping.Technique] = true
		if a.MitreMapping.SubTechnique != "" {
			covered[a.MitreMapping.SubTechnique] = true
		}

		files = append(files, manifestFile{
			File:        filename,
			TechniqueID: tid,
			Platform:    plat,
			Name:        a.Name,
		})
	}

	coveredList := make([]string, 0, len(covered))
	for tid := range covered {
		coveredList = append(coveredList, tid)
	}
	sort.Strings(coveredList)

	m := manifest{
		Category:          string(category),
		GeneratedAt:       time.Now().UTC().Format(time.RFC3339),
		Model:             g.client.Model(),
		TotalAbilities:    len(abilities),
		TechniquesCovered: coveredList,
		Files:             files,
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(catDir, manifestName), data, 0o644)
}

// printManifest renders the dry-run discovery summary.
func printManifest(targets []Target) {
	byCat := make(map[ability.AttackCategory]map[ability.Platform][]string)
	for _, t := range targets {
		if byCat[t.Category] == nil {
			byCat[t.Category] = make(map[ability.Platform][]string)
		}
		byCat[t.Category][t.Platform] = append(byCat[t.Category][t.Platform], t.TechniqueID)
	}

	cats := make([]ability.AttackCategory, 0, len(byCat))
	for cat := range byCat {
		cats = append(cats, cat)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })

	header := color.New(color.FgCyan, color.Bold)
	fmt.Println()
	fmt.Println(strings.Repeat("=", 72))
	header.Println("  BATCH GENERATION MANIFEST (dry run)")
	fmt.Println(strings.Repeat("=", 72))

	grandTotal := 0
	for _, cat := range cats {
		platDict := byCat[cat]
		catTotal := 0
		for _, ids := range platDict {
			catTotal += len(ids)
		}
		grandTotal += catTotal

		color.New(color.Bold).Printf("\n  %s (%d targets)\n", cat, catTotal)

		plats := make([]ability.Platform, 0, len(platDict))
		for plat := range platDict {
			plats = append(plats, plat)
		}
		sort.Slice(plats, func(i, j int) bool { return plats[i] < plats[j] })

		for _, plat := range plats {
			ids := platDict[plat]
			fmt.Printf("    %-15s  %3d techniques  [%s..%s]\n",
				plat, len(ids), ids[0], ids[len(ids)-1])
		}
	}

	fmt.Println()
	fmt.Println(strings.Repeat("-", 72))
	fmt.Printf("  TOTAL: %d technique×platform targets\n", grandTotal)
	fmt.Printf("  Estimated LLM calls: %d\n", grandTotal)
	fmt.Println(strings.Repeat("=", 72))
	fmt.Println()
}

func (g *Generator) logSummary(ctx context.Context, stats *Stats) {
	g.logger.InfoContext(ctx, "batch generation complete",
		"total_targets", stats.TotalTargets,
		"generated", stats.Generated,
		"blocked", stats.Blocked,
		"failed", stats.Failed,
		"skipped_categories", stats.SkippedCategories,
		"elapsed", stats.Elapsed.Round(time.Second),
	)
	for _, err := range stats.Errors {
		g.logger.InfoContext(ctx, "target error", "error", err)
	}
	if stats.ErrorsDropped > 0 {
		g.logger.InfoContext(ctx, "further errors omitted", "remaining", stats.ErrorsDropped)
	}
}
