package ability

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validAbility() *Ability {
	return &Ability{
		ID:             uuid.NewString(),
		Name:           "Registry Run Key Persistence",
		Description:    "Creates a registry run key so a benign payload launches at logon, exercising autorun detection telemetry on Windows endpoints.",
		AttackCategory: CategoryPersistence,
		MitreMapping: MitreMapping{
			Tactic:       "persistence",
			Technique:    "T1547",
			SubTechnique: "T1547.001",
		},
		Executors: []Executor{
			{
				Name:               ExecutorPowerShell,
				Platform:           PlatformWindows,
				PrivilegeRequired:  PrivilegeUser,
				Command:            `reg.exe add HKCU\Software\Microsoft\Windows\CurrentVersion\Run /v SimTest /t REG_SZ /d notepad.exe /f`,
				PayloadDescription: "Adds a run key pointing at notepad.exe.",
				CleanupProcedure:   `reg.exe delete HKCU\Software\Microsoft\Windows\CurrentVersion\Run /v SimTest /f`,
			},
		},
		ApprovalStatus: ApprovalPending,
		CreatedBy:      CreatedByAgent,
		SimulationOnly: true,
		SchemaVersion:  SchemaVersion,
		AgentVersion:   AgentVersion,
	}
}

func TestAbilityValidate(t *testing.T) {
	t.Run("valid ability passes", func(t *testing.T) {
		require.NoError(t, validAbility().Validate())
	})

	t.Run("short name fails", func(t *testing.T) {
		a := validAbility()
		a.Name = "xx"
		assert.Error(t, a.Validate())
	})

	t.Run("short description fails", func(t *testing.T) {
		a := validAbility()
		a.Description = "too short"
		assert.Error(t, a.Validate())
	})

	t.Run("no executors fails", func(t *testing.T) {
		a := validAbility()
		a.Executors = nil
		assert.Error(t, a.Validate())
	})

	t.Run("invalid uuid fails", func(t *testing.T) {
		a := validAbility()
		a.ID = "not-a-uuid"
		assert.Error(t, a.Validate())
	})

	t.Run("unknown executor type fails", func(t *testing.T) {
		a := validAbility()
		a.Executors[0].Name = "fish"
		assert.Error(t, a.Validate())
	})

	t.Run("unknown category fails", func(t *testing.T) {
		a := validAbility()
		a.AttackCategory = "ransomware"
		assert.Error(t, a.Validate())
	})
}

func TestEnforceProvenance(t *testing.T) {
	a := validAbility()
	a.ID = ""
	a.ApprovalStatus = ApprovalApproved
	a.CreatedBy = "human"
	a.SimulationOnly = false
	a.SchemaVersion = "9.9"
	a.AgentVersion = "9.9.9"

	now := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	a.EnforceProvenance(now)

	assert.NotEmpty(t, a.ID)
	_, err := uuid.Parse(a.ID)
	assert.NoError(t, err)
	assert.Equal(t, ApprovalPending, a.ApprovalStatus)
	assert.Equal(t, CreatedByAgent, a.CreatedBy)
	assert.True(t, a.SimulationOnly)
	assert.Equal(t, SchemaVersion, a.SchemaVersion)
	assert.Equal(t, AgentVersion, a.AgentVersion)
	assert.Equal(t, "2026-03-14T09:26:53Z", a.GeneratedAt)
}

func TestEnforceProvenanceKeepsExistingID(t *testing.T) {
	a := validAbility()
	id := a.ID
	a.EnforceProvenance(time.Now())
	assert.Equal(t, id, a.ID)
}

func TestTechniqueID(t *testing.T) {
	a := validAbility()
	assert.Equal(t, "T1547.001", a.TechniqueID())

	a.MitreMapping.SubTechnique = ""
	assert.Equal(t, "T1547", a.TechniqueID())
}

func TestEnumUnmarshalRejectsUnknown(t *testing.T) {
	var p Platform
	assert.Error(t, json.Unmarshal([]byte(`"solaris"`), &p))
	require.NoError(t, json.Unmarshal([]byte(`"windows"`), &p))
	assert.Equal(t, PlatformWindows, p)

	var e ExecutorType
	assert.Error(t, json.Unmarshal([]byte(`"fish"`), &e))
	require.NoError(t, json.Unmarshal([]byte(`"aws_cli"`), &e))
	assert.Equal(t, ExecutorAWSCLI, e)

	var s ApprovalStatus
	assert.Error(t, json.Unmarshal([]byte(`"MAYBE"`), &s))
	require.NoError(t, json.Unmarshal([]byte(`"PENDING"`), &s))
	assert.Equal(t, ApprovalPending, s)
}

func TestTacticsFor(t *testing.T) {
	tests := []struct {
		category AttackCategory
		want     []string
	}{
		{CategoryCredentialAccess, []string{"credential-access"}},
		{CategoryCloudIAMAbuse, []string{"credential-access", "privilege-escalation"}},
		{CategoryADAbuse, []string{"credential-access", "lateral-movement"}},
		{CategoryWebAppSimulation, []string{"initial-access"}},
		{CategoryNetworkSignaling, []string{"command-and-control"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TacticsFor(tt.category), "category %s", tt.category)
	}

	assert.Empty(t, TacticsFor("no_such_category"))
}

func TestAllCategoriesHaveTactics(t *testing.T) {
	for _, cat := range AllCategories {
		assert.NotEmpty(t, TacticsFor(cat), "category %s has no tactic mapping", cat)
	}
}
