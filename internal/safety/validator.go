// Package safety implements the deterministic validation pipeline every
// generated ability passes before it leaves the engine. Twelve hard rules
// block on failure; two soft rules warn for human reviewers. All rules
// always run so the audit trail is complete.
package safety

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/sriharsha8991/adv-attack-simulation/internal/ability"
)

// TechniqueChecker verifies that a technique ID exists in the knowledge
// graph. A nil checker skips graph-backed rules.
type TechniqueChecker interface {
	TechniqueExists(ctx context.Context, techniqueID string) (bool, error)
}

// Validator runs the safety rule pipeline.
type Validator struct {
	checker   TechniqueChecker
	blocklist []*blocklistPattern
	audit     *AuditLog
	logger    *slog.Logger
	tracer    trace.Tracer
}

type blocklistPattern struct {
	raw string
	re  *regexp.Regexp
}

// ValidatorOption is a functional option for configuring the Validator.
type ValidatorOption func(*Validator)

// WithTechniqueChecker enables graph-backed MITRE mapping validation.
func WithTechniqueChecker(checker TechniqueChecker) ValidatorOption {
	return func(v *Validator) { v.checker = checker }
}

// WithBlocklistPatterns sets the command blocklist. Patterns must compile;
// invalid patterns cause a panic at construction, which is intentional:
// a half-loaded blocklist is worse than a crash at startup.
func WithBlocklistPatterns(patterns []string) ValidatorOption {
	return func(v *Validator) {
		compiled, err := CompileBlocklist(patterns)
		if err != nil {
			panic("safety: invalid blocklist pattern: " + err.Error())
		}
		v.blocklist = v.blocklist[:0]
		for i, re := range compiled {
			v.blocklist = append(v.blocklist, &blocklistPattern{raw: patterns[i], re: re})
		}
	}
}

// WithAuditLog enables the JSONL audit trail.
func WithAuditLog(audit *AuditLog) ValidatorOption {
	return func(v *Validator) { v.audit = audit }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) ValidatorOption {
	return func(v *Validator) { v.logger = logger }
}

// WithTracer enables span creation around each validation.
func WithTracer(tracer trace.Tracer) ValidatorOption {
	return func(v *Validator) { v.tracer = tracer }
}

// NewValidator creates a Validator. Defaults: no graph checker, empty
// blocklist, no audit log, slog.Default().
func NewValidator(opts ...ValidatorOption) *Validator {
	v := &Validator{logger: slog.Default()}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate runs all rules against the ability. Hard failures set status
// BLOCKED; soft failures only warn. The audit batch is written regardless;
// audit write errors are logged, never surfaced as validation failures.
func (v *Validator) Validate(ctx context.Context, a *ability.Ability) ValidationResult {
	if v.tracer != nil {
		var span trace.Span
		ctx, span = v.tracer.Start(ctx, "safety.validate",
			trace.WithAttributes(
				attribute.String("ability.id", a.ID),
				attribute.String("ability.category", string(a.AttackCategory)),
			),
		)
		defer span.End()
	}

	hardRules := []func(context.Context, *ability.Ability) RuleResult{
		v.checkSchema,
		v.checkStatus,
		v.checkSimulationFlag,
		v.checkCreator,
		v.checkMitreMapping,
		v.checkExecutorPresent,
		v.checkCommandBlocklist,
		v.checkPlatformCoherence,
		v.checkExecutorNameEnum,
		v.checkCleanupPresent,
		v.checkContent,
		v.checkIdentity,
	}
	softRules := []func(context.Context, *ability.Ability) RuleResult{
		v.checkCommandSyntax,
		v.checkKnownBinaries,
	}

	var hardFailures, warnings []RuleResult
	allResults := make([]RuleResult, 0, len(hardRules)+len(softRules))

	for _, rule := range hardRules {
		result := rule(ctx, a)
		allResults = append(allResults, result)
		if !result.Passed {
			hardFailures = append(hardFailures, result)
		}
	}
	for _, rule := range softRules {
		result := rule(ctx, a)
		allResults = append(allResults, result)
		if !result.Passed {
			warnings = append(warnings, result)
		}
	}

	if v.audit != nil {
		if err := v.audit.WriteBatch(a.ID, allResults); err != nil {
			v.logger.WarnContext(ctx, "audit log write failed", "error", err)
		}
	}

	passed := len(hardFailures) == 0
	status := ability.ApprovalPending
	if !passed {
		status = ability.ApprovalBlocked
	}

	return ValidationResult{
		Passed:       passed,
		AbilityID:    a.ID,
		Status:       status,
		HardFailures: hardFailures,
		Warnings:     warnings,
	}
}

// ValidateBatch validates a list of abilities.
func (v *Validator) ValidateBatch(ctx context.Context, abilities []*ability.Ability) []ValidationResult {
	results := make([]ValidationResult, 0, len(abilities))
	for _, a := range abilities {
		results = append(results, v.Validate(ctx, a))
	}
	return results
}

// Hard rules. Ordering is fixed and mirrors the audit trail.

func (v *Validator) checkSchema(_ context.Context, a *ability.Ability) RuleResult {
	if err := a.Validate(); err != nil {
		return RuleResult{RuleName: "schema_valid", Detail: err.Error()}
	}
	return RuleResult{RuleName: "schema_valid", Passed: true}
}

func (v *Validator) checkStatus(_ context.Context, a *ability.Ability) RuleResult {
	if a.ApprovalStatus != ability.ApprovalPending {
		return RuleResult{
			RuleName: "approval_status",
			Detail:   fmt.Sprintf("Expected PENDING, got %s", a.ApprovalStatus),
		}
	}
	return RuleResult{RuleName: "approval_status", Passed: true}
}

func (v *Validator) checkSimulationFlag(_ context.Context, a *ability.Ability) RuleResult {
	if !a.SimulationOnly {
		return RuleResult{RuleName: "simulation_flag", Detail: "simulation_only is not true"}
	}
	return RuleResult{RuleName: "simulation_flag", Passed: true}
}

func (v *Validator) checkCreator(_ context.Context, a *ability.Ability) RuleResult {
	if a.CreatedBy != ability.CreatedByAgent {
		return RuleResult{
			RuleName: "creator_tag",
			Detail:   fmt.Sprintf("Expected %q, got %q", ability.CreatedByAgent, a.CreatedBy),
		}
	}
	return RuleResult{RuleName: "creator_tag", Passed: true}
}

// checkMitreMapping verifies the technique exists in the graph. Without a
// checker the rule passes with a note; transient lookup errors also pass
// with a note rather than blocking on infrastructure trouble.
func (v *Validator) checkMitreMapping(ctx context.Context, a *ability.Ability) RuleResult {
	if v.checker == nil {
		return RuleResult{
			RuleName: "mitre_mapping",
			Passed:   true,
			Detail:   "Skipped: no graph connection",
		}
	}

	techniqueID := a.MitreMapping.Technique
	exists, err := v.checker.TechniqueExists(ctx, techniqueID)
	if err != nil {
		v.logger.WarnContext(ctx, "MITRE graph lookup failed", "technique_id", techniqueID, "error", err)
		return RuleResult{
			RuleName: "mitre_mapping",
			Passed:   true,
			Detail:   "Graph lookup error, skipped: " + err.Error(),
		}
	}
	if !exists {
		return RuleResult{
			RuleName: "mitre_mapping",
			Detail:   fmt.Sprintf("Technique %s not found in graph", techniqueID),
		}
	}
	return RuleResult{RuleName: "mitre_mapping", Passed: true}
}

func (v *Validator) checkExecutorPresent(_ context.Context, a *ability.Ability) RuleResult {
	if len(a.Executors) < 1 {
		return RuleResult{RuleName: "executor_present", Detail: "No executors defined"}
	}
	return RuleResult{RuleName: "executor_present", Passed: true}
}

func (v *Validator) checkCommandBlocklist(_ context.Context, a *ability.Ability) RuleResult {
	for _, executor := range a.Executors {
		fields := []struct {
			name string
			text string
		}{
			{"command", executor.Command},
			{"cleanup_procedure", executor.CleanupProcedure},
		}
		for _, f := range fields {
			for _, pattern := range v.blocklist {
				if pattern.re.MatchString(f.text) {
					return RuleResult{
						RuleName: "command_blocklist",
						Detail: fmt.Sprintf("Executor %q %s matched blocklist pattern: %s",
							executor.Name, f.name, pattern.raw),
					}
				}
			}
		}
	}
	return RuleResult{RuleName: "command_blocklist", Passed: true}
}

func (v *Validator) checkPlatformCoherence(_ context.Context, a *ability.Ability) RuleResult {
	for _, executor := range a.Executors {
		rule, ok := platformCoherenceRules[executor.Name]
		if !ok {
			continue
		}

		if len(rule.platformMustBe) > 0 {
			allowed := false
			for _, platform := range rule.platformMustBe {
				if executor.Platform == platform {
					allowed = true
					break
				}
			}
			if !allowed {
				return RuleResult{
					RuleName: "platform_coherence",
					Detail: fmt.Sprintf("Executor %q requires platform %v, got %q",
						executor.Name, rule.platformMustBe, executor.Platform),
				}
			}
		}

		for _, pattern := range rule.mustNotContain {
			if pattern.MatchString(executor.Command) {
				return RuleResult{
					RuleName: "platform_coherence",
					Detail: fmt.Sprintf("Executor %q command contains cross-platform syntax matching: %s",
						executor.Name, pattern.String()),
				}
			}
		}
	}
	return RuleResult{RuleName: "platform_coherence", Passed: true}
}

func (v *Validator) checkExecutorNameEnum(_ context.Context, a *ability.Ability) RuleResult {
	for _, executor := range a.Executors {
		if !executor.Name.IsValid() {
			return RuleResult{
				RuleName: "executor_name_enum",
				Detail:   "Invalid executor name: " + string(executor.Name),
			}
		}
	}
	return RuleResult{RuleName: "executor_name_enum", Passed: true}
}

func (v *Validator) checkCleanupPresent(_ context.Context, a *ability.Ability) RuleResult {
	for _, executor := range a.Executors {
		if strings.TrimSpace(executor.CleanupProcedure) == "" {
			return RuleResult{
				RuleName: "cleanup_present",
				Detail:   fmt.Sprintf("Executor %q has empty cleanup_procedure", executor.Name),
			}
		}
	}
	return RuleResult{RuleName: "cleanup_present", Passed: true}
}

func (v *Validator) checkContent(_ context.Context, a *ability.Ability) RuleResult {
	if len(a.Name) < ability.MinNameLen {
		return RuleResult{
			RuleName: "content_check",
			Detail:   fmt.Sprintf("Name too short (%d chars, need >= %d)", len(a.Name), ability.MinNameLen),
		}
	}
	if len(a.Description) < ability.MinDescLen {
		return RuleResult{
			RuleName: "content_check",
			Detail:   fmt.Sprintf("Description too short (%d chars, need >= %d)", len(a.Description), ability.MinDescLen),
		}
	}
	return RuleResult{RuleName: "content_check", Passed: true}
}

func (v *Validator) checkIdentity(_ context.Context, a *ability.Ability) RuleResult {
	if _, err := uuid.Parse(a.ID); err != nil {
		return RuleResult{
			RuleName: "identity_check",
			Detail:   fmt.Sprintf("Invalid UUID: %q", a.ID),
		}
	}
	if a.GeneratedAt != "" {
		if _, err := time.Parse(time.RFC3339, a.GeneratedAt); err != nil {
			return RuleResult{
				RuleName: "identity_check",
				Detail:   fmt.Sprintf("Invalid RFC 3339 timestamp: %q", a.GeneratedAt),
			}
		}
	}
	return RuleResult{RuleName: "identity_check", Passed: true}
}

// Soft rules. Failures warn without blocking.

// checkCommandSyntax catches the most common breakage in generated shell
// strings: unmatched quotes, unbalanced parentheses, and trailing pipes.
// Full shell parsing would require spawning the target interpreter.
func (v *Validator) checkCommandSyntax(_ context.Context, a *ability.Ability) RuleResult {
	var issues []string

	for _, executor := range a.Executors {
		cmd := executor.Command
		name := string(executor.Name)

		if strings.Count(cmd, "'")%2 != 0 {
			issues = append(issues, name+": unmatched single quote")
		}
		if strings.Count(cmd, `"`)%2 != 0 {
			issues = append(issues, name+": unmatched double quote")
		}
		if strings.Count(cmd, "(") != strings.Count(cmd, ")") {
			issues = append(issues, name+": unmatched parentheses")
		}
		stripped := strings.TrimRight(cmd, " \t\n")
		if strings.HasSuffix(stripped, "|") || strings.HasSuffix(stripped, ";") {
			issues = append(issues, name+": trailing pipe or semicolon")
		}
	}

	if len(issues) > 0 {
		return RuleResult{RuleName: "command_syntax", Detail: strings.Join(issues, "; ")}
	}
	return RuleResult{RuleName: "command_syntax", Passed: true}
}

// checkKnownBinaries checks the first token of the first non-comment
// command line against the platform family's binary allowlist. Advisory
// only: later pipeline stages are deliberately not scanned.
func (v *Validator) checkKnownBinaries(_ context.Context, a *ability.Ability) RuleResult {
	var unknown []string

	for _, executor := range a.Executors {
		allowlist := knownBinaries[platformFamilyFor(executor.Name)]
		if len(allowlist) == 0 {
			continue
		}

		for _, line := range strings.Split(strings.TrimSpace(executor.Command), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "REM") {
				continue
			}
			tokens := strings.Fields(line)
			if len(tokens) == 0 {
				break
			}
			binary := tokens[0]
			if idx := strings.LastIndex(binary, "/"); idx >= 0 {
				binary = binary[idx+1:]
			}
			if idx := strings.LastIndex(binary, `\`); idx >= 0 {
				binary = binary[idx+1:]
			}
			if binary != "" && !containsFold(allowlist, binary) {
				unknown = append(unknown, fmt.Sprintf("%s: %q not in allowlist", executor.Name, binary))
			}
			break
		}
	}

	if len(unknown) > 0 {
		return RuleResult{RuleName: "known_binaries", Detail: strings.Join(unknown, "; ")}
	}
	return RuleResult{RuleName: "known_binaries", Passed: true}
}

func containsFold(items []string, target string) bool {
	for _, item := range items {
		if strings.EqualFold(item, target) {
			return true
		}
	}
	return false
}
