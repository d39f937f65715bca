package safety

import "github.com/sriharsha8991/adv-attack-simulation/internal/ability"

// RuleResult is the outcome of a single validation rule.
type RuleResult struct {
	RuleName string `json:"rule"`
	Passed   bool   `json:"passed"`
	Detail   string `json:"detail,omitempty"`
}

// ValidationResult is the aggregate outcome of the full safety pipeline.
type ValidationResult struct {
	Passed       bool                   `json:"passed"`
	AbilityID    string                 `json:"ability_id"`
	Status       ability.ApprovalStatus `json:"status"`
	HardFailures []RuleResult           `json:"hard_failures"`
	Warnings     []RuleResult           `json:"warnings"`
}

// NeedsHumanReview reports whether any soft rule produced a warning.
func (r ValidationResult) NeedsHumanReview() bool {
	return len(r.Warnings) > 0
}
