// Package reasoning implements the two-phase generation pipeline: a
// tool-augmented exploration pass over the ATT&CK knowledge graph followed
// by per-ability structured composition.
package reasoning

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/sriharsha8991/adv-attack-simulation/internal/ability"
	"github.com/sriharsha8991/adv-attack-simulation/internal/llm"
	"github.com/sriharsha8991/adv-attack-simulation/internal/safety"
)

// Engine drives the two-phase ability generation pipeline.
//
// Phase A explores the knowledge graph through the tool loop and produces a
// research summary. Phase B composes one ability at a time from that
// summary in schema mode. Partial failure is expected: the result slice may
// be shorter than the requested count.
type Engine struct {
	client    *llm.Client
	tools     llm.ToolSet
	validator *safety.Validator

	maxToolIterations int
	safetyEnabled     bool
	logger            *slog.Logger
	tracer            trace.Tracer
}

// EngineOption is a functional option for configuring the Engine.
type EngineOption func(*Engine)

// WithSafetyValidator enables the validation pipeline on generated output.
func WithSafetyValidator(v *safety.Validator) EngineOption {
	return func(e *Engine) {
		e.validator = v
		e.safetyEnabled = v != nil
	}
}

// WithMaxToolIterations caps the phase A tool loop.
func WithMaxToolIterations(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxToolIterations = n
		}
	}
}

// WithEngineLogger sets the structured logger.
func WithEngineLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = logger }
}

// WithEngineTracer enables span creation around each generation.
func WithEngineTracer(tracer trace.Tracer) EngineOption {
	return func(e *Engine) { e.tracer = tracer }
}

// NewEngine creates an Engine around a generation client and tool set.
func NewEngine(client *llm.Client, tools llm.ToolSet, opts ...EngineOption) *Engine {
	e := &Engine{
		client:            client,
		tools:             tools,
		maxToolIterations: llm.DefaultMaxToolIterations,
		logger:            slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Model returns the model identifier used for generation.
func (e *Engine) Model() string {
	return e.client.Model()
}

// GenerateAbilities runs the two-phase pipeline for one category × platform
// request. A category without a tactic mapping or a failed exploration pass
// yields an empty slice, not an error; per-ability composition failures are
// skipped. The error return covers context cancellation only.
func (e *Engine) GenerateAbilities(ctx context.Context, category ability.AttackCategory, platform ability.Platform, count int) ([]*ability.Ability, error) {
	if e.tracer != nil {
		var span trace.Span
		ctx, span = e.tracer.Start(ctx, "reasoning.generate",
			trace.WithAttributes(
				attribute.String("category", string(category)),
				attribute.String("platform", string(platform)),
				attribute.Int("count", count),
			),
		)
		defer span.End()
	}

	tactics := ability.TacticsFor(category)
	if len(tactics) == 0 {
		e.logger.ErrorContext(ctx, "no tactic mapping for category", "category", category)
		return nil, nil
	}

	e.logger.InfoContext(ctx, "generating abilities",
		"count", count,
		"category", category,
		"platform", platform,
		"tactics", tactics,
	)

	exploration, err := e.explore(ctx, string(category), string(platform), tactics, count)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		e.logger.ErrorContext(ctx, "exploration phase failed", "error", err)
		return nil, nil
	}

	e.logger.InfoContext(ctx, "exploration complete",
		"tool_calls", len(exploration.ToolCalls),
		"tokens", exploration.TotalTokens,
		"context_chars", len(exploration.Text),
	)

	toolsCalled := make([]string, 0, len(exploration.ToolCalls))
	for _, call := range exploration.ToolCalls {
		toolsCalled = append(toolsCalled, call.Name)
	}

	abilities := make([]*ability.Ability, 0, count)
	totalTokens := exploration.TotalTokens

	for i := 1; i <= count; i++ {
		a, tokens := e.compose(ctx, exploration.Text, string(category), string(platform), i, count)
		totalTokens += tokens
		if a == nil {
			if ctx.Err() != nil {
				return abilities, ctx.Err()
			}
			e.logger.WarnContext(ctx, "ability composition failed, skipping",
				"index", i, "count", count)
			continue
		}

		a.EnforceProvenance(time.Now())
		warnings := e.applySafety(ctx, a, i, count)

		a.GenerationTrace = &ability.GenerationTrace{
			Model:              e.client.Model(),
			ToolsCalled:        toolsCalled,
			ReasoningSteps:     len(exploration.ToolCalls),
			TotalTokens:        totalTokens,
			BlocklistVersion:   ability.BlocklistVersion,
			ValidationWarnings: warnings,
		}

		abilities = append(abilities, a)
		e.logger.InfoContext(ctx, "ability generated",
			"index", i,
			"count", count,
			"name", a.Name,
			"technique", a.MitreMapping.Technique,
		)
	}

	e.logger.InfoContext(ctx, "generation complete",
		"produced", len(abilities),
		"requested", count,
		"total_tokens", totalTokens,
	)
	return abilities, nil
}

// explore runs phase A: tool-augmented research over the knowledge graph.
func (e *Engine) explore(ctx context.Context, category, platform string, tactics []string, count int) (*llm.GenerateResult, error) {
	return e.client.Generate(ctx, llm.GenerateRequest{
		Messages: []llm.Message{
			llm.NewSystemMessage(SystemPrompt),
			llm.NewUserMessage(buildExplorationPrompt(category, platform, tactics, count)),
		},
		Tools:         e.tools,
		MaxIterations: e.maxToolIterations,
	})
}

// compose runs phase B for a single ability. Failures return a nil ability
// and whatever tokens were consumed.
func (e *Engine) compose(ctx context.Context, researchContext, category, platform string, index, total int) (*ability.Ability, int) {
	result, err := e.client.Generate(ctx, llm.GenerateRequest{
		Messages: []llm.Message{
			llm.NewSystemMessage(SystemPrompt),
			llm.NewUserMessage(buildCompositionPrompt(researchContext, category, platform, index, total)),
		},
		Schema: AbilitySchema(),
	})
	if err != nil {
		e.logger.ErrorContext(ctx, "composition failed",
			"index", index, "total", total, "error", err)
		// Failed attempts still consumed tokens; keep them in the totals.
		if result != nil {
			return nil, result.TotalTokens
		}
		return nil, 0
	}

	a, ok := result.Parsed.(*ability.Ability)
	if !ok {
		return nil, result.TotalTokens
	}
	return a, result.TotalTokens
}

// applySafety runs the validation pipeline when enabled and returns the
// soft-rule warnings for the generation trace. Hard failures flip the
// ability to BLOCKED.
func (e *Engine) applySafety(ctx context.Context, a *ability.Ability, index, total int) []string {
	if !e.safetyEnabled {
		e.logger.InfoContext(ctx, "safety layer disabled, skipping validation",
			"index", index, "total", total)
		return nil
	}

	validation := e.validator.Validate(ctx, a)
	if !validation.Passed {
		a.ApprovalStatus = ability.ApprovalBlocked
		failed := make([]string, 0, len(validation.HardFailures))
		for _, f := range validation.HardFailures {
			failed = append(failed, f.RuleName)
		}
		e.logger.WarnContext(ctx, "ability blocked by safety rules",
			"index", index, "total", total, "rules", failed)
	}

	warnings := make([]string, 0, len(validation.Warnings))
	for _, w := range validation.Warnings {
		warnings = append(warnings, w.Detail)
	}
	return warnings
}
