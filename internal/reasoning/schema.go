package reasoning

import (
	"encoding/json"

	"github.com/sriharsha8991/adv-attack-simulation/internal/ability"
	"github.com/sriharsha8991/adv-attack-simulation/internal/llm"
	"github.com/sriharsha8991/adv-attack-simulation/internal/types"
)

// abilitySchemaInstructions is the schema contract injected into the system
// prompt for structured composition. Field names and enum values must match
// the ability package exactly; the decoder rejects anything else.
const abilitySchemaInstructions = `{
  "type": "object",
  "required": ["name", "description", "attack_category", "mitre_mapping", "executors"],
  "properties": {
    "name": {"type": "string", "minLength": 5},
    "description": {"type": "string", "minLength": 50},
    "attack_category": {"type": "string", "enum": ["credential_access", "privilege_escalation", "persistence", "lateral_movement", "defense_evasion", "command_and_control", "discovery", "collection", "exfiltration", "cloud_iam_abuse", "active_directory_abuse", "web_application_simulation", "network_signaling"]},
    "mitre_mapping": {
      "type": "object",
      "required": ["tactic", "technique"],
      "properties": {
        "tactic": {"type": "string", "description": "ATT&CK tactic shortname, e.g. credential-access"},
        "technique": {"type": "string", "description": "Parent technique ID, e.g. T1003"},
        "sub_technique": {"type": "string", "description": "Sub-technique ID if applicable, e.g. T1003.001"}
      }
    },
    "threat_intel_context": {
      "type": "object",
      "properties": {
        "associated_groups": {"type": "array", "items": {"type": "string"}},
        "associated_tools": {"type": "array", "items": {"type": "string"}},
        "recent_campaigns": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["campaign_name"],
            "properties": {
              "campaign_name": {"type": "string"},
              "first_seen": {"type": "string"},
              "last_seen": {"type": "string"},
              "attributed_groups": {"type": "array", "items": {"type": "string"}},
              "description_snippet": {"type": "string", "maxLength": 300}
            }
          }
        },
        "detection_guidance": {"type": "string"}
      }
    },
    "executors": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["name", "platform", "privilege_required", "command", "payload_description", "cleanup_procedure"],
        "properties": {
          "name": {"type": "string", "enum": ["powershell", "cmd", "bash", "zsh", "python", "sh", "aws_cli", "az_cli", "gcloud_cli", "curl"]},
          "platform": {"type": "string", "enum": ["windows", "linux", "macos", "cloud_aws", "cloud_azure", "cloud_gcp"]},
          "privilege_required": {"type": "string", "enum": ["user", "admin", "system", "root"]},
          "command": {"type": "string"},
          "payload_description": {"type": "string"},
          "cleanup_procedure": {"type": "string"}
        }
      }
    },
    "approval_status": {"type": "string", "enum": ["PENDING"]},
    "created_by": {"type": "string", "enum": ["AI"]},
    "simulation_only": {"type": "boolean", "enum": [true]}
  }
}`

// AbilitySchema returns the structured-output contract for a single Ability.
// Decoding fills the provenance defaults the model is allowed to omit, then
// validates the result; the error text is fed back to the model on retry.
func AbilitySchema() *llm.SchemaDef {
	return &llm.SchemaDef{
		Name:         "Ability",
		Instructions: abilitySchemaInstructions,
		Decode: func(data []byte) (any, error) {
			var a ability.Ability
			if err := json.Unmarshal(data, &a); err != nil {
				return nil, types.WrapError(types.ABILITY_DECODE_FAILED, "response is not valid Ability JSON", err)
			}
			applyDefaults(&a)
			if err := a.Validate(); err != nil {
				return nil, err
			}
			return &a, nil
		},
	}
}

// applyDefaults fills the provenance fields the model may omit. The engine
// re-stamps them after validation; defaults here only keep the schema check
// focused on content the model actually controls.
func applyDefaults(a *ability.Ability) {
	if a.ID == "" {
		a.ID = ability.NewID()
	}
	if a.ApprovalStatus == "" {
		a.ApprovalStatus = ability.ApprovalPending
	}
	if a.CreatedBy == "" {
		a.CreatedBy = ability.CreatedByAgent
	}
	if a.SchemaVersion == "" {
		a.SchemaVersion = ability.SchemaVersion
	}
	if a.AgentVersion == "" {
		a.AgentVersion = ability.AgentVersion
	}
	a.SimulationOnly = true
}
