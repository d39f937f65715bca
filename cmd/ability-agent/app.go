package main

import (
	"context"
	"log/slog"

	"github.com/sriharsha8991/adv-attack-simulation/internal/config"
	"github.com/sriharsha8991/adv-attack-simulation/internal/cti"
	"github.com/sriharsha8991/adv-attack-simulation/internal/galaxy"
	"github.com/sriharsha8991/adv-attack-simulation/internal/graph"
	"github.com/sriharsha8991/adv-attack-simulation/internal/intel"
	"github.com/sriharsha8991/adv-attack-simulation/internal/llm"
	"github.com/sriharsha8991/adv-attack-simulation/internal/llm/providers"
	"github.com/sriharsha8991/adv-attack-simulation/internal/reasoning"
	"github.com/sriharsha8991/adv-attack-simulation/internal/safety"
)

// app holds the shared resources every subcommand needs: graph store,
// galaxy index, generation client, and optional safety validator.
type app struct {
	cfg        *config.Config
	logger     *slog.Logger
	graph      *graph.Neo4jClient
	store      *cti.Store
	galaxy     *galaxy.Index
	aggregator *intel.Aggregator
	client     *llm.Client
	validator  *safety.Validator
}

// newApp connects every shared resource. Callers must Close.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	logger := slog.Default()

	graphClient, err := graph.NewNeo4jClient(cfg.Graph)
	if err != nil {
		return nil, err
	}
	if err := graphClient.Connect(ctx); err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "graph connection ready", "uri", cfg.Graph.URI)

	store := cti.NewStore(graphClient, logger)

	galaxyOpts := []galaxy.Option{galaxy.WithLogger(logger)}
	if cfg.Galaxy.BaseURL != "" {
		galaxyOpts = append(galaxyOpts, galaxy.WithBaseURL(cfg.Galaxy.BaseURL))
	}
	index := galaxy.NewIndex(cfg.Galaxy.CacheDir, galaxyOpts...)
	if err := index.Load(ctx, false); err != nil {
		_ = graphClient.Close(ctx)
		return nil, err
	}
	logger.InfoContext(ctx, "galaxy data loaded")

	provider, err := providers.New(ctx, cfg.LLM.Provider, llm.ProviderConfig{
		APIKey:       cfg.LLM.APIKey,
		DefaultModel: cfg.LLM.Model,
		BaseURL:      cfg.LLM.BaseURL,
	})
	if err != nil {
		_ = graphClient.Close(ctx)
		return nil, err
	}
	client := llm.NewClient(provider,
		llm.WithClientLogger(logger),
		llm.WithRetryPolicy(cfg.LLM.MaxRetries, cfg.LLM.RetryBaseDelay, cfg.LLM.RetryMaxDelay),
		llm.WithMaxValidationRetries(cfg.LLM.MaxValidationRetries),
	)
	logger.InfoContext(ctx, "llm client ready", "provider", provider.Name(), "model", client.Model())

	var validator *safety.Validator
	if cfg.Safety.Enabled {
		validator = safety.NewValidator(
			safety.WithTechniqueChecker(store),
			safety.WithBlocklistPatterns(cfg.Safety.BlocklistPatterns),
			safety.WithAuditLog(safety.NewAuditLog(cfg.Safety.AuditLogPath)),
			safety.WithLogger(logger),
		)
	} else {
		logger.InfoContext(ctx, "safety layer disabled")
	}

	return &app{
		cfg:        cfg,
		logger:     logger,
		graph:      graphClient,
		store:      store,
		galaxy:     index,
		aggregator: intel.NewAggregator(store, index, logger),
		client:     client,
		validator:  validator,
	}, nil
}

// engine builds the two-phase generation engine over the app's resources.
func (a *app) engine() *reasoning.Engine {
	opts := []reasoning.EngineOption{
		reasoning.WithEngineLogger(a.logger),
		reasoning.WithMaxToolIterations(a.cfg.LLM.MaxToolIterations),
	}
	if a.validator != nil {
		opts = append(opts, reasoning.WithSafetyValidator(a.validator))
	}
	tools := reasoning.NewGraphToolSet(a.store, a.galaxy, a.logger)
	return reasoning.NewEngine(a.client, tools, opts...)
}

func (a *app) Close(ctx context.Context) {
	if err := a.graph.Close(ctx); err != nil {
		a.logger.WarnContext(ctx, "graph close failed", "error", err)
	}
}
