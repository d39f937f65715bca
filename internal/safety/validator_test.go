package safety

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sriharsha8991/adv-attack-simulation/internal/ability"
)

func cleanAbility() *ability.Ability {
	return &ability.Ability{
		ID:             uuid.NewString(),
		Name:           "Registry Run Key Persistence",
		Description:    "Creates a registry run key so a benign payload launches at logon, exercising autorun detection telemetry on Windows endpoints.",
		AttackCategory: ability.CategoryPersistence,
		MitreMapping: ability.MitreMapping{
			Tactic:    "persistence",
			Technique: "T1547",
		},
		Executors: []ability.Executor{
			{
				Name:               ability.ExecutorPowerShell,
				Platform:           ability.PlatformWindows,
				PrivilegeRequired:  ability.PrivilegeUser,
				Command:            `reg.exe add HKCU\Software\Microsoft\Windows\CurrentVersion\Run /v SimTest /t REG_SZ /d notepad.exe /f`,
				PayloadDescription: "Adds a run key pointing at notepad.exe.",
				CleanupProcedure:   `reg.exe delete HKCU\Software\Microsoft\Windows\CurrentVersion\Run /v SimTest /f`,
			},
		},
		ApprovalStatus: ability.ApprovalPending,
		CreatedBy:      ability.CreatedByAgent,
		SimulationOnly: true,
		SchemaVersion:  ability.SchemaVersion,
		AgentVersion:   ability.AgentVersion,
	}
}

type stubChecker struct {
	exists bool
	err    error
	seen   []string
}

func (s *stubChecker) TechniqueExists(_ context.Context, techniqueID string) (bool, error) {
	s.seen = append(s.seen, techniqueID)
	return s.exists, s.err
}

func failureNames(results []RuleResult) []string {
	names := make([]string, 0, len(results))
	for _, r := range results {
		names = append(names, r.RuleName)
	}
	return names
}

func TestValidateCleanAbilityPasses(t *testing.T) {
	v := NewValidator()
	result := v.Validate(context.Background(), cleanAbility())

	assert.True(t, result.Passed)
	assert.Equal(t, ability.ApprovalPending, result.Status)
	assert.Empty(t, result.HardFailures)
	assert.Empty(t, result.Warnings)
	assert.False(t, result.NeedsHumanReview())
}

func TestValidateHardFailureBlocks(t *testing.T) {
	v := NewValidator()

	a := cleanAbility()
	a.ApprovalStatus = ability.ApprovalApproved
	result := v.Validate(context.Background(), a)

	assert.False(t, result.Passed)
	assert.Equal(t, ability.ApprovalBlocked, result.Status)
	assert.Contains(t, failureNames(result.HardFailures), "approval_status")
}

func TestValidateProvenanceRules(t *testing.T) {
	v := NewValidator()

	t.Run("simulation flag", func(t *testing.T) {
		a := cleanAbility()
		a.SimulationOnly = false
		result := v.Validate(context.Background(), a)
		assert.Contains(t, failureNames(result.HardFailures), "simulation_flag")
	})

	t.Run("creator tag", func(t *testing.T) {
		a := cleanAbility()
		a.CreatedBy = "human"
		result := v.Validate(context.Background(), a)
		assert.Contains(t, failureNames(result.HardFailures), "creator_tag")
	})

	t.Run("identity uuid", func(t *testing.T) {
		a := cleanAbility()
		a.ID = "not-a-uuid"
		result := v.Validate(context.Background(), a)
		assert.Contains(t, failureNames(result.HardFailures), "identity_check")
	})

	t.Run("identity timestamp", func(t *testing.T) {
		a := cleanAbility()
		a.GeneratedAt = "yesterday"
		result := v.Validate(context.Background(), a)
		assert.Contains(t, failureNames(result.HardFailures), "identity_check")
	})
}

func TestValidateMitreMapping(t *testing.T) {
	t.Run("no checker skips with note", func(t *testing.T) {
		v := NewValidator()
		result := v.checkMitreMapping(context.Background(), cleanAbility())
		assert.True(t, result.Passed)
		assert.Contains(t, result.Detail, "no graph connection")
	})

	t.Run("technique found", func(t *testing.T) {
		checker := &stubChecker{exists: true}
		v := NewValidator(WithTechniqueChecker(checker))
		result := v.Validate(context.Background(), cleanAbility())
		assert.True(t, result.Passed)
		assert.Equal(t, []string{"T1547"}, checker.seen)
	})

	t.Run("technique missing fails", func(t *testing.T) {
		v := NewValidator(WithTechniqueChecker(&stubChecker{exists: false}))
		result := v.Validate(context.Background(), cleanAbility())
		assert.False(t, result.Passed)
		assert.Contains(t, failureNames(result.HardFailures), "mitre_mapping")
	})

	t.Run("lookup error passes with note", func(t *testing.T) {
		v := NewValidator(WithTechniqueChecker(&stubChecker{err: errors.New("neo4j down")}))
		result := v.checkMitreMapping(context.Background(), cleanAbility())
		assert.True(t, result.Passed)
		assert.Contains(t, result.Detail, "neo4j down")
	})
}

func TestValidateCommandBlocklist(t *testing.T) {
	v := NewValidator(WithBlocklistPatterns([]string{`rm\s+-rf\s+/`, `format\s+c:`}))

	t.Run("clean command passes", func(t *testing.T) {
		result := v.Validate(context.Background(), cleanAbility())
		assert.True(t, result.Passed)
	})

	t.Run("blocked command fails", func(t *testing.T) {
		a := cleanAbility()
		a.Executors[0].Command = "echo hi; RM -RF /tmp/../"
		result := v.Validate(context.Background(), a)
		assert.Contains(t, failureNames(result.HardFailures), "command_blocklist")
	})

	t.Run("blocked cleanup fails", func(t *testing.T) {
		a := cleanAbility()
		a.Executors[0].CleanupProcedure = "format c: /q"
		result := v.Validate(context.Background(), a)
		require.Len(t, result.HardFailures, 1)
		assert.Contains(t, result.HardFailures[0].Detail, "cleanup_procedure")
	})
}

func TestWithBlocklistPatternsPanicsOnBadPattern(t *testing.T) {
	assert.Panics(t, func() {
		NewValidator(WithBlocklistPatterns([]string{`[unclosed`}))
	})
}

func TestValidatePlatformCoherence(t *testing.T) {
	v := NewValidator()

	t.Run("powershell on linux fails", func(t *testing.T) {
		a := cleanAbility()
		a.Executors[0].Platform = ability.PlatformLinux
		result := v.Validate(context.Background(), a)
		assert.Contains(t, failureNames(result.HardFailures), "platform_coherence")
	})

	t.Run("bash with powershell syntax fails", func(t *testing.T) {
		a := cleanAbility()
		a.Executors[0].Name = ability.ExecutorBash
		a.Executors[0].Platform = ability.PlatformLinux
		a.Executors[0].Command = `Get-Process | whoami`
		result := v.Validate(context.Background(), a)
		assert.Contains(t, failureNames(result.HardFailures), "platform_coherence")
	})

	t.Run("aws cli on linux passes", func(t *testing.T) {
		a := cleanAbility()
		a.AttackCategory = ability.CategoryCloudIAMAbuse
		a.MitreMapping.Tactic = "credential-access"
		a.Executors[0].Name = ability.ExecutorAWSCLI
		a.Executors[0].Platform = ability.PlatformLinux
		a.Executors[0].Command = "aws sts get-caller-identity"
		a.Executors[0].CleanupProcedure = "true"
		result := v.Validate(context.Background(), a)
		assert.True(t, result.Passed)
	})
}

func TestValidateCleanupAndContent(t *testing.T) {
	v := NewValidator()

	t.Run("whitespace cleanup fails", func(t *testing.T) {
		a := cleanAbility()
		a.Executors[0].CleanupProcedure = "   \n"
		result := v.Validate(context.Background(), a)
		assert.Contains(t, failureNames(result.HardFailures), "cleanup_present")
	})

	t.Run("short name reported by schema and content", func(t *testing.T) {
		a := cleanAbility()
		a.Name = "xx"
		result := v.Validate(context.Background(), a)
		names := failureNames(result.HardFailures)
		assert.Contains(t, names, "schema_valid")
		assert.Contains(t, names, "content_check")
	})
}

func TestValidateSoftRulesWarnOnly(t *testing.T) {
	v := NewValidator()

	a := cleanAbility()
	a.Executors[0].Command = `reg.exe query "HKCU\Software |`
	result := v.Validate(context.Background(), a)

	assert.True(t, result.Passed)
	assert.Equal(t, ability.ApprovalPending, result.Status)
	assert.True(t, result.NeedsHumanReview())
	assert.Contains(t, failureNames(result.Warnings), "command_syntax")
}

func TestValidateUnknownBinaryWarns(t *testing.T) {
	v := NewValidator()

	a := cleanAbility()
	a.Executors[0].Command = `mimikatz.exe "sekurlsa::logonpasswords" exit`
	result := v.Validate(context.Background(), a)

	assert.True(t, result.Passed)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, "known_binaries", result.Warnings[0].RuleName)
	assert.Contains(t, result.Warnings[0].Detail, "mimikatz.exe")
}

func TestKnownBinariesSkipsCommentsAndPaths(t *testing.T) {
	v := NewValidator()

	a := cleanAbility()
	a.Executors[0].Name = ability.ExecutorBash
	a.Executors[0].Platform = ability.PlatformLinux
	a.Executors[0].Command = "# enumerate users\n/usr/bin/cat /etc/passwd"
	result := v.Validate(context.Background(), a)

	assert.Empty(t, result.Warnings)
}

func TestValidateBatch(t *testing.T) {
	v := NewValidator()

	bad := cleanAbility()
	bad.SimulationOnly = false

	results := v.ValidateBatch(context.Background(), []*ability.Ability{cleanAbility(), bad})
	require.Len(t, results, 2)
	assert.True(t, results[0].Passed)
	assert.False(t, results[1].Passed)
}

func TestAuditLogRecordsEveryRule(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit", "safety_audit.jsonl")
	v := NewValidator(WithAuditLog(NewAuditLog(path)))

	a := cleanAbility()
	a.SimulationOnly = false
	v.Validate(context.Background(), a)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var entries []auditEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry auditEntry
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		entries = append(entries, entry)
	}
	require.NoError(t, scanner.Err())

	// 12 hard rules + 2 soft rules, one line each.
	require.Len(t, entries, 14)

	failed := 0
	for _, entry := range entries {
		assert.Equal(t, a.ID, entry.AbilityID)
		assert.Equal(t, entries[0].Timestamp, entry.Timestamp)
		if entry.Result == "FAIL" {
			failed++
			assert.Equal(t, "simulation_flag", entry.Rule)
		}
	}
	assert.Equal(t, 1, failed)
}

func TestCompileBlocklistRejectsInvalid(t *testing.T) {
	_, err := CompileBlocklist([]string{`valid`, `[broken`})
	assert.Error(t, err)

	compiled, err := CompileBlocklist([]string{`Rm\s+-Rf`})
	require.NoError(t, err)
	require.Len(t, compiled, 1)
	assert.True(t, compiled[0].MatchString("rm -rf /"))
}
