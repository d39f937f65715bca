// Package cti exposes typed cyber-threat-intelligence lookups over the
// ATT&CK knowledge graph.
package cti

import (
	"fmt"

	"github.com/sriharsha8991/adv-attack-simulation/internal/graph"
)

// TechniqueRecord is one ATT&CK technique or sub-technique row.
type TechniqueRecord struct {
	Name        string   `json:"name"`
	AttackID    string   `json:"attack_id"`
	Description string   `json:"description"`
	Platforms   []string `json:"platforms"`
}

// GroupRecord describes an intrusion set's use of a technique.
type GroupRecord struct {
	GroupName        string   `json:"group_name"`
	Aliases          []string `json:"aliases"`
	UsageDescription string   `json:"usage_description"`
}

// ToolRecord describes a tool or malware family using a technique.
type ToolRecord struct {
	Name             string `json:"name"`
	Type             string `json:"type"`
	Description      string `json:"description"`
	UsageDescription string `json:"usage_description"`
}

// MitigationRecord describes a mitigation for a technique.
type MitigationRecord struct {
	Name           string `json:"mitigation_name"`
	Description    string `json:"description"`
	HowItMitigates string `json:"how_it_mitigates"`
}

// CampaignRecord describes a campaign that used a technique.
type CampaignRecord struct {
	CampaignName     string   `json:"campaign_name"`
	ExternalID       string   `json:"external_id"`
	Description      string   `json:"description"`
	FirstSeen        string   `json:"first_seen"`
	LastSeen         string   `json:"last_seen"`
	AttributedGroups []string `json:"attributed_groups"`
	TechniquesUsed   []string `json:"techniques_used,omitempty"`
}

// DetectionRecord carries a technique's detection text and data sources.
type DetectionRecord struct {
	DetectionText string   `json:"detection_text"`
	DataSources   []string `json:"data_sources"`
}

// TechniqueIntel is the omnibus intelligence bundle for a single technique.
type TechniqueIntel struct {
	Name        string             `json:"name"`
	AttackID    string             `json:"attack_id"`
	Description string             `json:"description"`
	Platforms   []string           `json:"platforms"`
	Tactics     []string           `json:"tactics"`
	Groups      []GroupRecord      `json:"groups"`
	Tools       []ToolRecord       `json:"tools"`
	Detection   DetectionRecord    `json:"detection"`
	Mitigations []MitigationRecord `json:"mitigations"`
	Campaigns   []CampaignRecord   `json:"campaigns"`
}

// Record decoding helpers. Neo4j returns list properties as []any and may
// return temporal values for date fields, so everything goes through these.

func asString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	default:
		return fmt.Sprint(val)
	}
}

func asStringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := asString(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func decodeTechnique(rec map[string]any) TechniqueRecord {
	return TechniqueRecord{
		Name:        asString(rec["name"]),
		AttackID:    asString(rec["attack_id"]),
		Description: asString(rec["description"]),
		Platforms:   asStringSlice(rec["platforms"]),
	}
}

func decodeTechniques(result graph.QueryResult) []TechniqueRecord {
	out := make([]TechniqueRecord, 0, len(result.Records))
	for _, rec := range result.Records {
		out = append(out, decodeTechnique(rec))
	}
	return out
}

func decodeGroups(result graph.QueryResult) []GroupRecord {
	out := make([]GroupRecord, 0, len(result.Records))
	for _, rec := range result.Records {
		out = append(out, GroupRecord{
			GroupName:        asString(rec["group_name"]),
			Aliases:          asStringSlice(rec["aliases"]),
			UsageDescription: asString(rec["usage_description"]),
		})
	}
	return out
}

func decodeTools(result graph.QueryResult) []ToolRecord {
	out := make([]ToolRecord, 0, len(result.Records))
	for _, rec := range result.Records {
		out = append(out, ToolRecord{
			Name:             asString(rec["name"]),
			Type:             asString(rec["type"]),
			Description:      asString(rec["description"]),
			UsageDescription: asString(rec["usage_description"]),
		})
	}
	return out
}

func decodeMitigations(result graph.QueryResult) []MitigationRecord {
	out := make([]MitigationRecord, 0, len(result.Records))
	for _, rec := range result.Records {
		out = append(out, MitigationRecord{
			Name:           asString(rec["mitigation_name"]),
			Description:    asString(rec["description"]),
			HowItMitigates: asString(rec["how_it_mitigates"]),
		})
	}
	return out
}

func decodeCampaigns(result graph.QueryResult) []CampaignRecord {
	out := make([]CampaignRecord, 0, len(result.Records))
	for _, rec := range result.Records {
		out = append(out, CampaignRecord{
			CampaignName:     asString(rec["campaign_name"]),
			ExternalID:       asString(rec["external_id"]),
			Description:      asString(rec["description"]),
			FirstSeen:        asString(rec["first_seen"]),
			LastSeen:         asString(rec["last_seen"]),
			AttributedGroups: asStringSlice(rec["attributed_groups"]),
			TechniquesUsed:   asStringSlice(rec["techniques_used"]),
		})
	}
	return out
}
