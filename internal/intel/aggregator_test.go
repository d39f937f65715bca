package intel

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sriharsha8991/adv-attack-simulation/internal/ability"
	"github.com/sriharsha8991/adv-attack-simulation/internal/cti"
	"github.com/sriharsha8991/adv-attack-simulation/internal/galaxy"
)

type stubGalaxy struct {
	ctx *galaxy.TechniqueContext
	err error
}

func (s *stubGalaxy) Context(string) (*galaxy.TechniqueContext, error) {
	return s.ctx, s.err
}

func sampleIntel() *cti.TechniqueIntel {
	return &cti.TechniqueIntel{
		Name:     "Boot or Logon Autostart Execution",
		AttackID: "T1547",
		Groups: []cti.GroupRecord{
			{GroupName: "APT28"},
			{GroupName: "FIN7"},
		},
		Tools: []cti.ToolRecord{
			{Name: "Mimikatz"},
		},
		Mitigations: []cti.MitigationRecord{
			{Name: "User Account Management"},
		},
		Detection: cti.DetectionRecord{
			DetectionText: "Monitor registry run key modifications.",
			DataSources:   []string{"Windows Registry", "Process Creation"},
		},
		Campaigns: []cti.CampaignRecord{
			{CampaignName: "SolarWinds Compromise", FirstSeen: "2019-08", LastSeen: "2021-01", AttributedGroups: []string{"APT29"}, Description: "Supply chain intrusion."},
		},
	}
}

func TestEnrichIntelMergesGraphAndGalaxy(t *testing.T) {
	g := &stubGalaxy{ctx: &galaxy.TechniqueContext{
		TechniqueID: "T1547",
		Groups:      []galaxy.Entry{{Name: "APT28"}, {Name: "Lazarus Group"}},
		Tools:       []galaxy.Entry{{Name: "Empire"}},
		Malware:     []galaxy.Entry{{Name: "XAgent"}},
	}}
	agg := NewAggregator(nil, g, nil)

	tic := agg.EnrichIntel(context.Background(), "T1547", sampleIntel())
	require.NotNil(t, tic)

	// Graph entries first, galaxy appended, duplicates dropped.
	assert.Equal(t, []string{"APT28", "FIN7", "Lazarus Group"}, tic.AssociatedGroups)
	assert.Equal(t, []string{"Mimikatz", "Empire", "XAgent"}, tic.AssociatedTools)

	require.Len(t, tic.RecentCampaigns, 1)
	assert.Equal(t, "SolarWinds Compromise", tic.RecentCampaigns[0].CampaignName)
	assert.Equal(t, []string{"APT29"}, tic.RecentCampaigns[0].AttributedGroups)

	assert.Contains(t, tic.DetectionGuidance, "Monitor registry run key modifications.")
	assert.Contains(t, tic.DetectionGuidance, "Data sources: Windows Registry, Process Creation.")
	assert.Contains(t, tic.DetectionGuidance, "Mitigations: User Account Management.")
}

func TestEnrichIntelToleratesGalaxyFailure(t *testing.T) {
	agg := NewAggregator(nil, &stubGalaxy{err: errors.New("not loaded")}, nil)

	tic := agg.EnrichIntel(context.Background(), "T1547", sampleIntel())
	require.NotNil(t, tic)
	assert.Equal(t, []string{"APT28", "FIN7"}, tic.AssociatedGroups)
	assert.Equal(t, []string{"Mimikatz"}, tic.AssociatedTools)
}

func TestEnrichIntelWithoutGalaxySource(t *testing.T) {
	agg := NewAggregator(nil, nil, nil)

	tic := agg.EnrichIntel(context.Background(), "T1547", sampleIntel())
	require.NotNil(t, tic)
	assert.Equal(t, []string{"APT28", "FIN7"}, tic.AssociatedGroups)
}

func TestBuildCampaignUsages(t *testing.T) {
	long := strings.Repeat("a", ability.MaxSnippetLen+50)
	records := []cti.CampaignRecord{
		{CampaignName: "Operation Alpha", Description: long},
		{CampaignName: "Operation Alpha", Description: "duplicate, dropped"},
		{CampaignName: "", Description: "unnamed, dropped"},
		{CampaignName: "Operation Beta", Description: "short note "},
	}

	usages := BuildCampaignUsages(records)
	require.Len(t, usages, 2)

	assert.Equal(t, "Operation Alpha", usages[0].CampaignName)
	assert.True(t, strings.HasSuffix(usages[0].DescriptionSnippet, "..."))
	assert.LessOrEqual(t, len(usages[0].DescriptionSnippet), ability.MaxSnippetLen+3)

	assert.Equal(t, "Operation Beta", usages[1].CampaignName)
	assert.Equal(t, "short note", usages[1].DescriptionSnippet)
}

func TestBuildDetectionGuidance(t *testing.T) {
	t.Run("all parts joined", func(t *testing.T) {
		guidance := BuildDetectionGuidance("Watch the logs.", []string{"Auth Logs"}, []string{"MFA"})
		assert.Equal(t, "Watch the logs. Data sources: Auth Logs. Mitigations: MFA.", guidance)
	})

	t.Run("long text truncated", func(t *testing.T) {
		long := strings.Repeat("x", ability.MaxDetectionLen+100)
		guidance := BuildDetectionGuidance(long, nil, nil)
		assert.True(t, strings.HasSuffix(guidance, "..."))
		assert.LessOrEqual(t, len(guidance), ability.MaxDetectionLen+3)
	})

	t.Run("empty inputs", func(t *testing.T) {
		assert.Empty(t, BuildDetectionGuidance("", nil, nil))
	})
}

func TestDedupe(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, dedupe([]string{"a", "b", "a", "", "c", "b"}))
	assert.Empty(t, dedupe(nil))
}
