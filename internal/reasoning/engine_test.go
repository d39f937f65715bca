package reasoning

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sriharsha8991/adv-attack-simulation/internal/ability"
	"github.com/sriharsha8991/adv-attack-simulation/internal/cti"
	"github.com/sriharsha8991/adv-attack-simulation/internal/graph"
	"github.com/sriharsha8991/adv-attack-simulation/internal/llm"
	"github.com/sriharsha8991/adv-attack-simulation/internal/safety"
)

const abilityJSON = `{
  "name": "Registry Run Key Persistence",
  "description": "Creates a registry run key so a benign payload launches at logon, exercising autorun detection telemetry.",
  "attack_category": "persistence",
  "mitre_mapping": {"tactic": "persistence", "technique": "T1547"},
  "threat_intel_context": {"associated_groups": ["APT28"], "associated_tools": ["Empire"]},
  "executors": [{
    "name": "powershell",
    "platform": "windows",
    "privilege_required": "user",
    "command": "reg.exe add HKCU\\Software\\Microsoft\\Windows\\CurrentVersion\\Run /v SimTest /t REG_SZ /d notepad.exe /f",
    "payload_description": "Adds a run key pointing at notepad.exe.",
    "cleanup_procedure": "reg.exe delete HKCU\\Software\\Microsoft\\Windows\\CurrentVersion\\Run /v SimTest /f"
  }]
}`

func newTestToolSet() *GraphToolSet {
	client := graph.NewMockClient()
	client.OnRecords(graph.QueryTechniquesByTactic, []map[string]any{
		{"name": "Boot or Logon Autostart Execution", "attack_id": "T1547", "platforms": []any{"Windows"}},
	})
	client.OnRecords(graph.QueryFullTechniqueContext, []map[string]any{
		{"name": "Boot or Logon Autostart Execution", "attack_id": "T1547", "tactics": []any{"persistence"}},
	})
	return NewGraphToolSet(cti.NewStore(client, nil), nil, nil)
}

func TestGenerateAbilitiesTwoPhase(t *testing.T) {
	provider := llm.NewMockProvider("test-model")
	// Phase A: one tool round, then the research summary.
	provider.EnqueueToolCalls([]llm.ToolCall{
		{ID: "call-1", Name: ToolTechniquesByTactic, Arguments: `{"tactic":"persistence"}`},
	}, 10)
	provider.EnqueueText("Research: T1547 run keys, used by APT28.", 20)
	// Phase B: one composition per requested ability.
	provider.EnqueueText(abilityJSON, 30)
	provider.EnqueueText(abilityJSON, 40)

	engine := NewEngine(llm.NewClient(provider), newTestToolSet())

	abilities, err := engine.GenerateAbilities(context.Background(),
		ability.CategoryPersistence, ability.PlatformWindows, 2)
	require.NoError(t, err)
	require.Len(t, abilities, 2)

	first := abilities[0]
	assert.Equal(t, "Registry Run Key Persistence", first.Name)
	assert.Equal(t, ability.ApprovalPending, first.ApprovalStatus)
	assert.Equal(t, ability.CreatedByAgent, first.CreatedBy)
	assert.True(t, first.SimulationOnly)
	assert.NotEmpty(t, first.GeneratedAt)

	require.NotNil(t, first.GenerationTrace)
	assert.Equal(t, "test-model", first.GenerationTrace.Model)
	assert.Equal(t, []string{ToolTechniquesByTactic}, first.GenerationTrace.ToolsCalled)
	assert.Equal(t, 1, first.GenerationTrace.ReasoningSteps)
	// Exploration (10+20) plus first composition (30).
	assert.Equal(t, 60, first.GenerationTrace.TotalTokens)
	// Second trace accumulates the second composition too.
	assert.Equal(t, 100, abilities[1].GenerationTrace.TotalTokens)

	// Phase B requests carry the research context, not the tool transcript.
	reqs := provider.Requests()
	require.Len(t, reqs, 4)
	assert.Contains(t, reqs[2].Request.Messages[1].Content, "Research: T1547 run keys")
	assert.Contains(t, reqs[2].Request.Messages[1].Content, "ability **1 of 2**")
	assert.Empty(t, reqs[2].Tools)
}

func TestGenerateAbilitiesUnmappedCategory(t *testing.T) {
	provider := llm.NewMockProvider("test-model")
	engine := NewEngine(llm.NewClient(provider), newTestToolSet())

	abilities, err := engine.GenerateAbilities(context.Background(),
		ability.AttackCategory("ransomware"), ability.PlatformWindows, 2)
	require.NoError(t, err)
	assert.Empty(t, abilities)
	assert.Empty(t, provider.Requests())
}

func TestGenerateAbilitiesExplorationFailure(t *testing.T) {
	provider := llm.NewMockProvider("test-model")
	// Empty queue: exploration fails outright; the engine reports no
	// abilities rather than an error.
	engine := NewEngine(llm.NewClient(provider), newTestToolSet())

	abilities, err := engine.GenerateAbilities(context.Background(),
		ability.CategoryPersistence, ability.PlatformWindows, 2)
	require.NoError(t, err)
	assert.Empty(t, abilities)
}

func TestGenerateAbilitiesSkipsFailedCompositions(t *testing.T) {
	provider := llm.NewMockProvider("test-model")
	provider.EnqueueText("Research summary.", 10)
	provider.EnqueueText(abilityJSON, 20)
	// Second composition: three invalid responses exhaust the schema retries.
	provider.EnqueueText("not json", 1)
	provider.EnqueueText("still not json", 1)
	provider.EnqueueText("nope", 1)

	engine := NewEngine(llm.NewClient(provider), newTestToolSet())

	abilities, err := engine.GenerateAbilities(context.Background(),
		ability.CategoryPersistence, ability.PlatformWindows, 2)
	require.NoError(t, err)
	require.Len(t, abilities, 1)
	assert.Equal(t, "Registry Run Key Persistence", abilities[0].Name)
}

func TestGenerateAbilitiesCountsTokensOfFailedCompositions(t *testing.T) {
	provider := llm.NewMockProvider("test-model")
	provider.EnqueueText("Research summary.", 10)
	// First composition exhausts the schema retries.
	provider.EnqueueText("not json", 1)
	provider.EnqueueText("still not json", 1)
	provider.EnqueueText("nope", 1)
	provider.EnqueueText(abilityJSON, 20)

	engine := NewEngine(llm.NewClient(provider), newTestToolSet())

	abilities, err := engine.GenerateAbilities(context.Background(),
		ability.CategoryPersistence, ability.PlatformWindows, 2)
	require.NoError(t, err)
	require.Len(t, abilities, 1)

	// Exploration (10) plus the failed composition's attempts (3) plus the
	// successful composition (20) all land in the running total.
	require.NotNil(t, abilities[0].GenerationTrace)
	assert.Equal(t, 33, abilities[0].GenerationTrace.TotalTokens)
}

func TestGenerateAbilitiesAppliesSafety(t *testing.T) {
	provider := llm.NewMockProvider("test-model")
	provider.EnqueueText("Research summary.", 10)
	provider.EnqueueText(abilityJSON, 20)

	validator := safety.NewValidator(
		safety.WithBlocklistPatterns([]string{`reg\.exe\s+add`}),
	)
	engine := NewEngine(llm.NewClient(provider), newTestToolSet(),
		WithSafetyValidator(validator))

	abilities, err := engine.GenerateAbilities(context.Background(),
		ability.CategoryPersistence, ability.PlatformWindows, 1)
	require.NoError(t, err)
	require.Len(t, abilities, 1)
	assert.Equal(t, ability.ApprovalBlocked, abilities[0].ApprovalStatus)
}

func TestToolSetDispatch(t *testing.T) {
	tools := newTestToolSet()

	t.Run("techniques by tactic", func(t *testing.T) {
		result, err := tools.Dispatch(context.Background(), ToolTechniquesByTactic, []byte(`{"tactic":"persistence"}`))
		require.NoError(t, err)
		techniques, ok := result.([]cti.TechniqueRecord)
		require.True(t, ok)
		require.Len(t, techniques, 1)
		assert.Equal(t, "T1547", techniques[0].AttackID)
	})

	t.Run("technique intel", func(t *testing.T) {
		result, err := tools.Dispatch(context.Background(), ToolTechniqueIntel, []byte(`{"technique_id":"T1547"}`))
		require.NoError(t, err)
		intel, ok := result.(techniqueIntelResult)
		require.True(t, ok)
		assert.Equal(t, "T1547", intel.AttackID)
		assert.Nil(t, intel.MISPGalaxy)
	})

	t.Run("unknown tool", func(t *testing.T) {
		_, err := tools.Dispatch(context.Background(), "nonexistent", []byte(`{}`))
		require.Error(t, err)
	})

	t.Run("bad arguments", func(t *testing.T) {
		_, err := tools.Dispatch(context.Background(), ToolSubtechniques, []byte(`{broken`))
		require.Error(t, err)
	})
}

func TestToolSetDefs(t *testing.T) {
	defs := newTestToolSet().Defs()
	require.Len(t, defs, 4)

	names := make([]string, 0, len(defs))
	for _, def := range defs {
		require.NoError(t, def.Validate())
		names = append(names, def.Name)
	}
	assert.Equal(t, []string{
		ToolTechniquesByTactic, ToolTechniquesForPlatform,
		ToolSubtechniques, ToolTechniqueIntel,
	}, names)
}

func TestAbilitySchemaDecode(t *testing.T) {
	schema := AbilitySchema()

	t.Run("valid with defaults applied", func(t *testing.T) {
		parsed, err := schema.Decode([]byte(abilityJSON))
		require.NoError(t, err)

		a, ok := parsed.(*ability.Ability)
		require.True(t, ok)
		assert.NotEmpty(t, a.ID)
		assert.Equal(t, ability.ApprovalPending, a.ApprovalStatus)
		assert.Equal(t, ability.CreatedByAgent, a.CreatedBy)
		assert.True(t, a.SimulationOnly)
		assert.Equal(t, ability.SchemaVersion, a.SchemaVersion)
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := schema.Decode([]byte("not json"))
		require.Error(t, err)
	})

	t.Run("schema violation", func(t *testing.T) {
		_, err := schema.Decode([]byte(`{"name": "xx"}`))
		require.Error(t, err)
	})
}

func TestBuildExplorationPrompt(t *testing.T) {
	prompt := buildExplorationPrompt("persistence", "windows", []string{"persistence"}, 3)

	assert.Contains(t, prompt, "Generate 3 persistence abilities targeting windows.")
	assert.Contains(t, prompt, "Primary tactic(s): persistence.")
	assert.Contains(t, prompt, "Select 3 DIFFERENT techniques")
}

func TestBuildExplorationPromptMultipleTactics(t *testing.T) {
	prompt := buildExplorationPrompt("cloud_iam_abuse", "cloud_aws",
		[]string{"credential-access", "privilege-escalation"}, 2)
	assert.Contains(t, prompt, "Primary tactic(s): credential-access, privilege-escalation.")
}

func TestBuildCompositionPrompt(t *testing.T) {
	prompt := buildCompositionPrompt("RESEARCH", "persistence", "windows", 2, 5)

	assert.Contains(t, prompt, "RESEARCH")
	assert.Contains(t, prompt, "ability **2 of 5**")
	assert.Contains(t, prompt, "this is ability #2")
	assert.Contains(t, prompt, fmt.Sprintf("**attack_category** must be `%s`", "persistence"))
	assert.Contains(t, prompt, "**approval_status** must be `PENDING`")
}
