package batch

import (
	"fmt"
	"strings"

	"github.com/sriharsha8991/adv-attack-simulation/internal/cti"
	"github.com/sriharsha8991/adv-attack-simulation/internal/galaxy"
)

// Display caps keep the enrichment context inside a sane prompt size.
const (
	maxPromptGroups      = 15
	maxPromptTools       = 10
	maxPromptMitigations = 8
	maxPromptCampaigns   = 8
	maxPromptGalaxy      = 20
	maxPromptDetection   = 500
	maxPromptUsage       = 200
)

// buildCompositionPrompt builds the single-shot composition prompt for one
// target: the formatted enrichment context followed by the task contract.
func buildCompositionPrompt(target Target, enrichmentContext string) string {
	techniqueID := target.TechniqueID
	subtechniqueLine := ""
	if target.IsSubtechnique && target.ParentID != "" {
		subtechniqueLine = fmt.Sprintf("   - **mitre_mapping.sub_technique** must be `%s`\n", target.TechniqueID)
		techniqueID = target.ParentID
	}

	return fmt.Sprintf(
		"## Technique Intelligence\n\n"+
			"%s\n\n"+
			"---\n\n"+
			"## Task\n\n"+
			"Generate a single adversary simulation ability for technique **%s — %s** "+
			"targeting **%s** in the **%s** category.\n\n"+
			"## Requirements\n\n"+
			"1. **attack_category** must be `%s`\n"+
			"2. **mitre_mapping.technique** must be `%s`\n"+
			"%s"+
			"3. **threat_intel_context** must include groups, tools, campaigns from the intelligence above — do NOT fabricate\n"+
			"4. **executors** must include at least one %s-specific executor with:\n"+
			"   - A complete, syntactically valid, directly executable command\n"+
			"   - Real OS binary names, correct flags, proper escaping, real filesystem paths\n"+
			"   - Do NOT insert inline comments inside command or cleanup_procedure strings\n"+
			"   - Do NOT use placeholder values like `<target>` or `$VICTIM_IP`\n"+
			"   - A cleanup_procedure that reverses all changes (also directly executable)\n"+
			"5. **payload_description** must contain all explanatory/contextual text\n"+
			"6. **simulation_only** must be `true`\n"+
			"7. **approval_status** must be `PENDING`\n"+
			"8. **created_by** must be `AI`\n\n"+
			"Return a single Ability JSON object.",
		enrichmentContext,
		techniqueID, target.TechniqueName, target.Platform, target.Category,
		target.Category,
		techniqueID,
		subtechniqueLine,
		target.Platform,
	)
}

// formatEnrichment renders an intel bundle plus optional galaxy context into
// the markdown the composition prompt embeds.
func formatEnrichment(intel *cti.TechniqueIntel, gctx *galaxy.TechniqueContext) string {
	var b strings.Builder

	fmt.Fprintf(&b, "### %s — %s\n", orUnknown(intel.AttackID), orUnknown(intel.Name))
	fmt.Fprintf(&b, "**Description:** %s\n", orNA(intel.Description))

	if len(intel.Platforms) > 0 {
		fmt.Fprintf(&b, "**Platforms:** %s\n", strings.Join(intel.Platforms, ", "))
	}
	if len(intel.Tactics) > 0 {
		fmt.Fprintf(&b, "**Tactics:** %s\n", strings.Join(intel.Tactics, ", "))
	}

	if len(intel.Groups) > 0 {
		b.WriteString("\n**APT Groups:**\n")
		for _, g := range capN(intel.Groups, maxPromptGroups) {
			line := "- " + orUnknown(g.GroupName)
			if len(g.Aliases) > 0 {
				line += fmt.Sprintf(" (aliases: %s)", strings.Join(g.Aliases, ", "))
			}
			if g.UsageDescription != "" {
				line += " — " + truncate(g.UsageDescription, maxPromptUsage)
			}
			b.WriteString(line + "\n")
		}
	}

	if len(intel.Tools) > 0 {
		b.WriteString("\n**Tools/Malware:**\n")
		for _, t := range capN(intel.Tools, maxPromptTools) {
			desc := t.UsageDescription
			if desc == "" {
				desc = t.Description
			}
			fmt.Fprintf(&b, "- %s (%s): %s\n",
				orUnknown(t.Name), orUnknown(t.Type), truncate(desc, maxPromptUsage))
		}
	}

	if intel.Detection.DetectionText != "" {
		fmt.Fprintf(&b, "\n**Detection:** %s\n", truncate(intel.Detection.DetectionText, maxPromptDetection))
	}
	if len(intel.Detection.DataSources) > 0 {
		fmt.Fprintf(&b, "**Data Sources:** %s\n", strings.Join(intel.Detection.DataSources, ", "))
	}

	if len(intel.Mitigations) > 0 {
		b.WriteString("\n**Mitigations:**\n")
		for _, m := range capN(intel.Mitigations, maxPromptMitigations) {
			fmt.Fprintf(&b, "- %s: %s\n", orUnknown(m.Name), truncate(m.HowItMitigates, maxPromptUsage))
		}
	}

	if len(intel.Campaigns) > 0 {
		b.WriteString("\n**Campaigns:**\n")
		for _, c := range capN(intel.Campaigns, maxPromptCampaigns) {
			line := "- " + orUnknown(c.CampaignName)
			if len(c.AttributedGroups) > 0 {
				line += fmt.Sprintf(" (by %s)", strings.Join(c.AttributedGroups, ", "))
			}
			line += fmt.Sprintf(" (%s – %s)", orUnknown(c.FirstSeen), orUnknown(c.LastSeen))
			b.WriteString(line + "\n")
		}
	}

	if gctx != nil {
		if names := entryNames(gctx.Groups, maxPromptGalaxy); len(names) > 0 {
			fmt.Fprintf(&b, "\n**MISP Galaxy Groups:** %s\n", strings.Join(names, ", "))
		}
		tools := entryNames(gctx.Tools, maxPromptGalaxy)
		tools = append(tools, entryNames(gctx.Malware, maxPromptGalaxy)...)
		if len(tools) > maxPromptGalaxy {
			tools = tools[:maxPromptGalaxy]
		}
		if len(tools) > 0 {
			fmt.Fprintf(&b, "**MISP Galaxy Tools:** %s\n", strings.Join(tools, ", "))
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}

func orUnknown(s string) string {
	if s == "" {
		return "?"
	}
	return s
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func capN[T any](items []T, max int) []T {
	if len(items) > max {
		return items[:max]
	}
	return items
}

func entryNames(entries []galaxy.Entry, max int) []string {
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Name == "" {
			continue
		}
		names = append(names, e.Name)
		if len(names) == max {
			break
		}
	}
	return names
}
