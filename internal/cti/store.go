package cti

import (
	"context"
	"log/slog"
	"sync"

	"github.com/sriharsha8991/adv-attack-simulation/internal/graph"
	"github.com/sriharsha8991/adv-attack-simulation/internal/types"
)

// CTI error codes.
const (
	ErrCodeTechniqueNotFound types.ErrorCode = "CTI_TECHNIQUE_NOT_FOUND"
	ErrCodeQueryFailed       types.ErrorCode = "CTI_QUERY_FAILED"
)

// Store provides typed CTI lookups over a graph client.
type Store struct {
	client graph.Client
	logger *slog.Logger
}

// NewStore creates a Store. A nil logger falls back to slog.Default().
func NewStore(client graph.Client, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{client: client, logger: logger}
}

// TechniquesByTactic returns all parent techniques under a tactic shortname.
func (s *Store) TechniquesByTactic(ctx context.Context, tactic string) ([]TechniqueRecord, error) {
	result, err := s.client.Query(ctx, graph.QueryTechniquesByTactic, map[string]any{"tactic": tactic})
	if err != nil {
		return nil, types.WrapError(ErrCodeQueryFailed, "techniques-by-tactic query failed", err)
	}
	return decodeTechniques(result), nil
}

// TechniquesForPlatform returns parent techniques under a tactic that list
// the given ATT&CK platform string.
func (s *Store) TechniquesForPlatform(ctx context.Context, tactic, platform string) ([]TechniqueRecord, error) {
	result, err := s.client.Query(ctx, graph.QueryTechniquesForPlatform, map[string]any{
		"tactic":   tactic,
		"platform": platform,
	})
	if err != nil {
		return nil, types.WrapError(ErrCodeQueryFailed, "techniques-for-platform query failed", err)
	}
	return decodeTechniques(result), nil
}

// Subtechniques returns the sub-techniques of a parent technique.
func (s *Store) Subtechniques(ctx context.Context, techniqueID string) ([]TechniqueRecord, error) {
	result, err := s.client.Query(ctx, graph.QuerySubtechniquesForTechnique, map[string]any{"technique_id": techniqueID})
	if err != nil {
		return nil, types.WrapError(ErrCodeQueryFailed, "subtechniques query failed", err)
	}
	return decodeTechniques(result), nil
}

// RandomTechniquesByTactic samples up to count parent techniques from a tactic.
func (s *Store) RandomTechniquesByTactic(ctx context.Context, tactic string, count int) ([]TechniqueRecord, error) {
	result, err := s.client.Query(ctx, graph.QueryRandomTechniquesByTactic, map[string]any{
		"tactic": tactic,
		"count":  count,
	})
	if err != nil {
		return nil, types.WrapError(ErrCodeQueryFailed, "random-techniques query failed", err)
	}
	return decodeTechniques(result), nil
}

// IntrusionSets returns the groups known to use a technique.
func (s *Store) IntrusionSets(ctx context.Context, techniqueID string) ([]GroupRecord, error) {
	result, err := s.client.Query(ctx, graph.QueryIntrusionSetsForTechnique, map[string]any{"technique_id": techniqueID})
	if err != nil {
		return nil, types.WrapError(ErrCodeQueryFailed, "intrusion-sets query failed", err)
	}
	return decodeGroups(result), nil
}

// Tools returns the tools and malware known to use a technique.
func (s *Store) Tools(ctx context.Context, techniqueID string) ([]ToolRecord, error) {
	result, err := s.client.Query(ctx, graph.QueryToolsForTechnique, map[string]any{"technique_id": techniqueID})
	if err != nil {
		return nil, types.WrapError(ErrCodeQueryFailed, "tools query failed", err)
	}
	return decodeTools(result), nil
}

// Detection returns the detection text and data sources for a technique.
func (s *Store) Detection(ctx context.Context, techniqueID string) (DetectionRecord, error) {
	result, err := s.client.Query(ctx, graph.QueryDetectionForTechnique, map[string]any{"technique_id": techniqueID})
	if err != nil {
		return DetectionRecord{}, types.WrapError(ErrCodeQueryFailed, "detection query failed", err)
	}
	if len(result.Records) == 0 {
		return DetectionRecord{}, nil
	}
	rec := result.Records[0]
	return DetectionRecord{
		DetectionText: asString(rec["detection_text"]),
		DataSources:   asStringSlice(rec["data_sources"]),
	}, nil
}

// Mitigations returns the mitigations for a technique.
func (s *Store) Mitigations(ctx context.Context, techniqueID string) ([]MitigationRecord, error) {
	result, err := s.client.Query(ctx, graph.QueryMitigationsForTechnique, map[string]any{"technique_id": techniqueID})
	if err != nil {
		return nil, types.WrapError(ErrCodeQueryFailed, "mitigations query failed", err)
	}
	return decodeMitigations(result), nil
}

// CampaignsForTechnique returns the campaigns that used a technique.
func (s *Store) CampaignsForTechnique(ctx context.Context, techniqueID string) ([]CampaignRecord, error) {
	result, err := s.client.Query(ctx, graph.QueryCampaignsForTechnique, map[string]any{"technique_id": techniqueID})
	if err != nil {
		return nil, types.WrapError(ErrCodeQueryFailed, "campaigns query failed", err)
	}
	return decodeCampaigns(result), nil
}

// CampaignsForGroup returns the campaigns attributed to an intrusion set.
func (s *Store) CampaignsForGroup(ctx context.Context, groupName string) ([]CampaignRecord, error) {
	result, err := s.client.Query(ctx, graph.QueryCampaignsForGroup, map[string]any{"group_name": groupName})
	if err != nil {
		return nil, types.WrapError(ErrCodeQueryFailed, "group-campaigns query failed", err)
	}
	return decodeCampaigns(result), nil
}

// TechniqueExists reports whether a technique ID is present in the graph.
func (s *Store) TechniqueExists(ctx context.Context, techniqueID string) (bool, error) {
	result, err := s.client.Query(ctx, graph.QueryFullTechniqueContext, map[string]any{"technique_id": techniqueID})
	if err != nil {
		return false, types.WrapError(ErrCodeQueryFailed, "full-context query failed", err)
	}
	return len(result.Records) > 0, nil
}

// TechniqueIntel returns the omnibus intelligence bundle for a technique.
// The full-context row is required; a missing technique yields a
// CTI_TECHNIQUE_NOT_FOUND error. Detail sub-queries run concurrently and
// degrade to empty slices on failure rather than failing the whole lookup.
func (s *Store) TechniqueIntel(ctx context.Context, techniqueID string) (*TechniqueIntel, error) {
	result, err := s.client.Query(ctx, graph.QueryFullTechniqueContext, map[string]any{"technique_id": techniqueID})
	if err != nil {
		return nil, types.WrapError(ErrCodeQueryFailed, "full-context query failed", err)
	}
	if len(result.Records) == 0 {
		return nil, types.NewError(ErrCodeTechniqueNotFound,
			"technique "+techniqueID+" not found in knowledge graph")
	}

	base := result.Records[0]
	intel := &TechniqueIntel{
		Name:        asString(base["name"]),
		AttackID:    asString(base["attack_id"]),
		Description: asString(base["description"]),
		Platforms:   asStringSlice(base["platforms"]),
		Tactics:     asStringSlice(base["tactics"]),
		Detection: DetectionRecord{
			DetectionText: asString(base["detection_text"]),
			DataSources:   asStringSlice(base["data_sources"]),
		},
	}

	var wg sync.WaitGroup
	wg.Add(4)

	go func() {
		defer wg.Done()
		groups, err := s.IntrusionSets(ctx, techniqueID)
		if err != nil {
			s.logger.WarnContext(ctx, "group lookup failed", "technique_id", techniqueID, "error", err)
			return
		}
		intel.Groups = groups
	}()
	go func() {
		defer wg.Done()
		tools, err := s.Tools(ctx, techniqueID)
		if err != nil {
			s.logger.WarnContext(ctx, "tool lookup failed", "technique_id", techniqueID, "error", err)
			return
		}
		intel.Tools = tools
	}()
	go func() {
		defer wg.Done()
		mitigations, err := s.Mitigations(ctx, techniqueID)
		if err != nil {
			s.logger.WarnContext(ctx, "mitigation lookup failed", "technique_id", techniqueID, "error", err)
			return
		}
		intel.Mitigations = mitigations
	}()
	go func() {
		defer wg.Done()
		campaigns, err := s.CampaignsForTechnique(ctx, techniqueID)
		if err != nil {
			s.logger.WarnContext(ctx, "campaign lookup failed", "technique_id", techniqueID, "error", err)
			return
		}
		intel.Campaigns = campaigns
	}()

	wg.Wait()
	return intel, nil
}
