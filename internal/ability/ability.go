// Package ability defines the adversary-simulation ability model: the
// structured artifact the generation pipeline produces, validates, and
// persists. Abilities are documentation-grade simulation artifacts, never
// directly executable; provenance fields are enforced by the pipeline and
// overwrite whatever the model emitted.
package ability

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/sriharsha8991/adv-attack-simulation/internal/types"
)

// Schema and provenance constants stamped onto every generated ability.
const (
	SchemaVersion    = "1.0"
	AgentVersion     = "0.1.0"
	CreatedByAgent   = "AI"
	BlocklistVersion = "1.0.0"

	MinNameLen      = 5
	MinDescLen      = 50
	MaxSnippetLen   = 300
	MaxDetectionLen = 1000
)

// MitreMapping ties an ability to its ATT&CK tactic and technique.
type MitreMapping struct {
	Tactic       string `json:"tactic" validate:"required"`
	Technique    string `json:"technique" validate:"required"`
	SubTechnique string `json:"sub_technique,omitempty"`
}

// CampaignUsage records one real-world campaign in which a technique was
// observed. Snippets are capped at MaxSnippetLen by the intel aggregator.
type CampaignUsage struct {
	CampaignName       string   `json:"campaign_name" validate:"required"`
	FirstSeen          string   `json:"first_seen,omitempty"`
	LastSeen           string   `json:"last_seen,omitempty"`
	AttributedGroups   []string `json:"attributed_groups"`
	DescriptionSnippet string   `json:"description_snippet,omitempty" validate:"max=300"`
}

// ThreatIntelContext is the merged graph + galaxy intelligence attached to an
// ability: which groups and tools use the technique, recent campaigns, and
// assembled detection guidance.
type ThreatIntelContext struct {
	AssociatedGroups  []string        `json:"associated_groups"`
	AssociatedTools   []string        `json:"associated_tools"`
	RecentCampaigns   []CampaignUsage `json:"recent_campaigns"`
	DetectionGuidance string          `json:"detection_guidance,omitempty"`
}

// Executor is one concrete rendition of an ability for a single platform and
// interpreter. The command is illustrative; cleanup must reverse its effects.
type Executor struct {
	Name               ExecutorType   `json:"name" validate:"required"`
	Platform           Platform       `json:"platform" validate:"required"`
	PrivilegeRequired  PrivilegeLevel `json:"privilege_required" validate:"required"`
	Command            string         `json:"command" validate:"required"`
	PayloadDescription string         `json:"payload_description" validate:"required"`
	CleanupProcedure   string         `json:"cleanup_procedure"`
}

// GenerationTrace captures how an ability was produced, for audit and
// reproducibility.
type GenerationTrace struct {
	Model              string   `json:"model"`
	ToolsCalled        []string `json:"tools_called"`
	ReasoningSteps     int      `json:"reasoning_steps"`
	TotalTokens        int      `json:"total_tokens"`
	BlocklistVersion   string   `json:"blocklist_version"`
	ValidationWarnings []string `json:"validation_warnings"`
}

// Ability is a single ATT&CK-mapped adversary-simulation ability.
type Ability struct {
	ID                 string             `json:"id" validate:"required,uuid4"`
	Name               string             `json:"name" validate:"required,min=5"`
	Description        string             `json:"description" validate:"required,min=50"`
	AttackCategory     AttackCategory     `json:"attack_category" validate:"required"`
	MitreMapping       MitreMapping       `json:"mitre_mapping" validate:"required"`
	ThreatIntelContext ThreatIntelContext `json:"threat_intel_context"`
	Executors          []Executor         `json:"executors" validate:"required,min=1,dive"`
	ApprovalStatus     ApprovalStatus     `json:"approval_status" validate:"required"`
	CreatedBy          string             `json:"created_by" validate:"required"`
	SimulationOnly     bool               `json:"simulation_only"`
	SchemaVersion      string             `json:"schema_version" validate:"required"`
	GeneratedAt        string             `json:"generated_at,omitempty"`
	AgentVersion       string             `json:"agent_version" validate:"required"`
	GenerationTrace    *GenerationTrace   `json:"generation_trace,omitempty"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// NewID returns a fresh ability identifier.
func NewID() string {
	return uuid.NewString()
}

// Validate checks the ability against its structural constraints. It returns
// a coded error describing the first set of violations found.
func (a *Ability) Validate() error {
	if err := validate.Struct(a); err != nil {
		return types.WrapError(types.ABILITY_INVALID, "ability failed schema validation", err)
	}
	if !a.AttackCategory.IsValid() {
		return types.NewError(types.ABILITY_INVALID, "unknown attack category: "+string(a.AttackCategory))
	}
	if !a.ApprovalStatus.IsValid() {
		return types.NewError(types.ABILITY_INVALID, "unknown approval status: "+string(a.ApprovalStatus))
	}
	for _, ex := range a.Executors {
		if !ex.Name.IsValid() {
			return types.NewError(types.ABILITY_INVALID, "unknown executor type: "+string(ex.Name))
		}
		if !ex.Platform.IsValid() {
			return types.NewError(types.ABILITY_INVALID, "unknown executor platform: "+string(ex.Platform))
		}
		if !ex.PrivilegeRequired.IsValid() {
			return types.NewError(types.ABILITY_INVALID, "unknown privilege level: "+string(ex.PrivilegeRequired))
		}
	}
	return nil
}

// EnforceProvenance overwrites the provenance fields the pipeline controls,
// regardless of what generation produced. Model output never decides
// approval status, authorship, or the simulation flag.
func (a *Ability) EnforceProvenance(now time.Time) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.ApprovalStatus = ApprovalPending
	a.CreatedBy = CreatedByAgent
	a.SimulationOnly = true
	a.SchemaVersion = SchemaVersion
	a.GeneratedAt = now.UTC().Format(time.RFC3339)
	a.AgentVersion = AgentVersion
}

// TechniqueID returns the most specific technique identifier: the
// sub-technique when present, otherwise the technique.
func (a *Ability) TechniqueID() string {
	if a.MitreMapping.SubTechnique != "" {
		return a.MitreMapping.SubTechnique
	}
	return a.MitreMapping.Technique
}
