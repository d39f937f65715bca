package cti

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sriharsha8991/adv-attack-simulation/internal/graph"
	"github.com/sriharsha8991/adv-attack-simulation/internal/types"
)

func fullContextRecord() map[string]any {
	return map[string]any{
		"name":           "Boot or Logon Autostart Execution",
		"attack_id":      "T1547",
		"description":    "Adversaries may configure system settings to automatically execute a program.",
		"platforms":      []any{"Windows", "Linux", "macOS"},
		"tactics":        []any{"persistence", "privilege-escalation"},
		"detection_text": "Monitor registry run keys.",
		"data_sources":   []any{"Windows Registry"},
	}
}

func TestTechniquesByTactic(t *testing.T) {
	client := graph.NewMockClient()
	client.OnRecords(graph.QueryTechniquesByTactic, []map[string]any{
		{"name": "OS Credential Dumping", "attack_id": "T1003", "description": "Dump creds.", "platforms": []any{"Windows"}},
		{"name": "Brute Force", "attack_id": "T1110", "description": "Guess creds.", "platforms": []any{"Windows", "Linux"}},
	})
	store := NewStore(client, nil)

	techniques, err := store.TechniquesByTactic(context.Background(), "credential-access")
	require.NoError(t, err)
	require.Len(t, techniques, 2)
	assert.Equal(t, "T1003", techniques[0].AttackID)
	assert.Equal(t, []string{"Windows", "Linux"}, techniques[1].Platforms)

	queries := client.Queries()
	require.Len(t, queries, 1)
	assert.Equal(t, "credential-access", queries[0].Params["tactic"])
}

func TestTechniquesByTacticQueryFailure(t *testing.T) {
	client := graph.NewMockClient()
	client.On(graph.QueryTechniquesByTactic, func(map[string]any) (graph.QueryResult, error) {
		return graph.QueryResult{}, errors.New("session expired")
	})
	store := NewStore(client, nil)

	_, err := store.TechniquesByTactic(context.Background(), "persistence")
	assert.True(t, types.HasCode(err, ErrCodeQueryFailed))
}

func TestSubtechniques(t *testing.T) {
	client := graph.NewMockClient()
	client.OnRecords(graph.QuerySubtechniquesForTechnique, []map[string]any{
		{"name": "Registry Run Keys", "attack_id": "T1547.001", "platforms": []any{"Windows"}},
	})
	store := NewStore(client, nil)

	subs, err := store.Subtechniques(context.Background(), "T1547")
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "T1547.001", subs[0].AttackID)
	assert.Equal(t, "T1547", client.Queries()[0].Params["technique_id"])
}

func TestTechniqueExists(t *testing.T) {
	client := graph.NewMockClient()
	client.OnRecords(graph.QueryFullTechniqueContext, []map[string]any{fullContextRecord()})
	store := NewStore(client, nil)

	exists, err := store.TechniqueExists(context.Background(), "T1547")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestTechniqueExistsMissing(t *testing.T) {
	store := NewStore(graph.NewMockClient(), nil)

	exists, err := store.TechniqueExists(context.Background(), "T9999")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestTechniqueIntel(t *testing.T) {
	client := graph.NewMockClient()
	client.OnRecords(graph.QueryFullTechniqueContext, []map[string]any{fullContextRecord()})
	client.OnRecords(graph.QueryIntrusionSetsForTechnique, []map[string]any{
		{"group_name": "APT28", "aliases": []any{"Fancy Bear"}, "usage_description": "Used run keys."},
	})
	client.OnRecords(graph.QueryToolsForTechnique, []map[string]any{
		{"name": "Empire", "type": "Tool", "description": "Post-exploitation framework."},
	})
	client.OnRecords(graph.QueryMitigationsForTechnique, []map[string]any{
		{"mitigation_name": "Restrict Registry Permissions", "description": "Lock down keys."},
	})
	client.OnRecords(graph.QueryCampaignsForTechnique, []map[string]any{
		{"campaign_name": "SolarWinds Compromise", "first_seen": "2019-08", "last_seen": "2021-01", "attributed_groups": []any{"APT29"}},
	})
	store := NewStore(client, nil)

	intel, err := store.TechniqueIntel(context.Background(), "T1547")
	require.NoError(t, err)

	assert.Equal(t, "T1547", intel.AttackID)
	assert.Equal(t, []string{"persistence", "privilege-escalation"}, intel.Tactics)
	assert.Equal(t, "Monitor registry run keys.", intel.Detection.DetectionText)

	require.Len(t, intel.Groups, 1)
	assert.Equal(t, "APT28", intel.Groups[0].GroupName)
	assert.Equal(t, []string{"Fancy Bear"}, intel.Groups[0].Aliases)

	require.Len(t, intel.Tools, 1)
	assert.Equal(t, "Empire", intel.Tools[0].Name)

	require.Len(t, intel.Mitigations, 1)
	assert.Equal(t, "Restrict Registry Permissions", intel.Mitigations[0].Name)

	require.Len(t, intel.Campaigns, 1)
	assert.Equal(t, []string{"APT29"}, intel.Campaigns[0].AttributedGroups)
}

func TestTechniqueIntelNotFound(t *testing.T) {
	store := NewStore(graph.NewMockClient(), nil)

	_, err := store.TechniqueIntel(context.Background(), "T9999")
	require.Error(t, err)
	assert.True(t, types.HasCode(err, ErrCodeTechniqueNotFound))
	assert.Contains(t, err.Error(), "T9999")
}

func TestTechniqueIntelDegradesOnSubQueryFailure(t *testing.T) {
	client := graph.NewMockClient()
	client.OnRecords(graph.QueryFullTechniqueContext, []map[string]any{fullContextRecord()})
	client.On(graph.QueryIntrusionSetsForTechnique, func(map[string]any) (graph.QueryResult, error) {
		return graph.QueryResult{}, errors.New("transient failure")
	})
	client.OnRecords(graph.QueryToolsForTechnique, []map[string]any{
		{"name": "Empire", "type": "Tool"},
	})
	store := NewStore(client, nil)

	intel, err := store.TechniqueIntel(context.Background(), "T1547")
	require.NoError(t, err)
	assert.Empty(t, intel.Groups)
	require.Len(t, intel.Tools, 1)
}

func TestDetectionEmptyResult(t *testing.T) {
	store := NewStore(graph.NewMockClient(), nil)

	detection, err := store.Detection(context.Background(), "T1547")
	require.NoError(t, err)
	assert.Empty(t, detection.DetectionText)
	assert.Empty(t, detection.DataSources)
}

func TestCampaignsForGroup(t *testing.T) {
	client := graph.NewMockClient()
	client.OnRecords(graph.QueryCampaignsForGroup, []map[string]any{
		{"campaign_name": "Operation Ghost", "external_id": "C0023", "techniques_used": []any{"T1547", "T1003"}},
	})
	store := NewStore(client, nil)

	campaigns, err := store.CampaignsForGroup(context.Background(), "APT29")
	require.NoError(t, err)
	require.Len(t, campaigns, 1)
	assert.Equal(t, []string{"T1547", "T1003"}, campaigns[0].TechniquesUsed)
	assert.Equal(t, "APT29", client.Queries()[0].Params["group_name"])
}
