// Package intel merges knowledge-graph CTI with MISP galaxy context into the
// ThreatIntelContext attached to generated abilities.
package intel

import (
	"context"
	"log/slog"
	"strings"

	"github.com/sriharsha8991/adv-attack-simulation/internal/ability"
	"github.com/sriharsha8991/adv-attack-simulation/internal/cti"
	"github.com/sriharsha8991/adv-attack-simulation/internal/galaxy"
)

// GalaxySource is the slice of the galaxy index the aggregator needs.
type GalaxySource interface {
	Context(techniqueID string) (*galaxy.TechniqueContext, error)
}

// Aggregator merges graph and galaxy intelligence for a technique.
type Aggregator struct {
	store  *cti.Store
	galaxy GalaxySource
	logger *slog.Logger
}

// NewAggregator creates an Aggregator. The galaxy source may be nil, in
// which case enrichment uses graph data alone.
func NewAggregator(store *cti.Store, galaxySource GalaxySource, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{store: store, galaxy: galaxySource, logger: logger}
}

// Enrich builds a complete ThreatIntelContext for a technique by merging
// graph groups/tools/detection/campaigns with galaxy groups, tools, and
// malware. Galaxy failures are tolerated; graph intel alone is returned.
// A missing technique surfaces as a CTI_TECHNIQUE_NOT_FOUND error.
func (a *Aggregator) Enrich(ctx context.Context, techniqueID string) (*ability.ThreatIntelContext, error) {
	intel, err := a.store.TechniqueIntel(ctx, techniqueID)
	if err != nil {
		return nil, err
	}
	return a.merge(ctx, techniqueID, intel), nil
}

// EnrichIntel merges an already-fetched intel bundle with galaxy context.
// Used by the batch path, which fetches the bundle once and reuses it for
// both enrichment and prompt assembly.
func (a *Aggregator) EnrichIntel(ctx context.Context, techniqueID string, intel *cti.TechniqueIntel) *ability.ThreatIntelContext {
	return a.merge(ctx, techniqueID, intel)
}

func (a *Aggregator) merge(ctx context.Context, techniqueID string, intel *cti.TechniqueIntel) *ability.ThreatIntelContext {
	graphGroups := make([]string, 0, len(intel.Groups))
	for _, g := range intel.Groups {
		graphGroups = append(graphGroups, g.GroupName)
	}
	graphTools := make([]string, 0, len(intel.Tools))
	for _, t := range intel.Tools {
		graphTools = append(graphTools, t.Name)
	}
	mitigationNames := make([]string, 0, len(intel.Mitigations))
	for _, m := range intel.Mitigations {
		mitigationNames = append(mitigationNames, m.Name)
	}

	var galaxyGroups, galaxyTools, galaxyMalware []string
	if a.galaxy != nil {
		gctx, err := a.galaxy.Context(techniqueID)
		if err != nil {
			a.logger.WarnContext(ctx, "galaxy enrichment unavailable",
				"technique_id", techniqueID, "error", err)
		} else {
			for _, e := range gctx.Groups {
				galaxyGroups = append(galaxyGroups, e.Name)
			}
			for _, e := range gctx.Tools {
				galaxyTools = append(galaxyTools, e.Name)
			}
			for _, e := range gctx.Malware {
				galaxyMalware = append(galaxyMalware, e.Name)
			}
		}
	}

	allGroups := dedupe(append(graphGroups, galaxyGroups...))
	allTools := dedupe(append(append(graphTools, galaxyTools...), galaxyMalware...))

	return &ability.ThreatIntelContext{
		AssociatedGroups:  allGroups,
		AssociatedTools:   allTools,
		RecentCampaigns:   BuildCampaignUsages(intel.Campaigns),
		DetectionGuidance: BuildDetectionGuidance(intel.Detection.DetectionText, intel.Detection.DataSources, mitigationNames),
	}
}

// dedupe removes duplicates preserving order, skipping empty strings.
func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	result := make([]string, 0, len(items))
	for _, item := range items {
		if item != "" && !seen[item] {
			seen[item] = true
			result = append(result, item)
		}
	}
	return result
}

// BuildCampaignUsages converts campaign records into CampaignUsage entries,
// skipping unnamed or duplicate campaigns and capping description snippets.
func BuildCampaignUsages(records []cti.CampaignRecord) []ability.CampaignUsage {
	campaigns := make([]ability.CampaignUsage, 0, len(records))
	seen := make(map[string]bool, len(records))

	for _, rec := range records {
		if rec.CampaignName == "" || seen[rec.CampaignName] {
			continue
		}
		seen[rec.CampaignName] = true

		var snippet string
		if rec.Description != "" {
			snippet = rec.Description
			if len(snippet) > ability.MaxSnippetLen {
				snippet = strings.TrimRight(snippet[:ability.MaxSnippetLen], " \t\n") + "..."
			} else {
				snippet = strings.TrimRight(snippet, " \t\n")
			}
		}

		campaigns = append(campaigns, ability.CampaignUsage{
			CampaignName:       rec.CampaignName,
			FirstSeen:          rec.FirstSeen,
			LastSeen:           rec.LastSeen,
			AttributedGroups:   rec.AttributedGroups,
			DescriptionSnippet: snippet,
		})
	}

	return campaigns
}

// BuildDetectionGuidance assembles the detection guidance string from
// detection text, data sources, and mitigation names. Returns "" when all
// parts are empty.
func BuildDetectionGuidance(detectionText string, dataSources, mitigations []string) string {
	var parts []string

	if detectionText != "" {
		text := detectionText
		if len(text) > ability.MaxDetectionLen {
			text = strings.TrimRight(text[:ability.MaxDetectionLen], " \t\n") + "..."
		}
		parts = append(parts, text)
	}
	if len(dataSources) > 0 {
		parts = append(parts, "Data sources: "+strings.Join(dataSources, ", ")+".")
	}
	if len(mitigations) > 0 {
		parts = append(parts, "Mitigations: "+strings.Join(mitigations, ", ")+".")
	}

	return strings.Join(parts, " ")
}
