package reasoning

import "fmt"

// SystemPrompt frames every generation call. It binds the model to
// simulation-safe, ATT&CK-grounded output and documents the tool surface.
const SystemPrompt = `You are an adversary simulation specialist for defensive security testing.
Your role is to generate MITRE ATT&CK-mapped attack abilities that help security teams
evaluate their detection and response capabilities.

IMPORTANT RULES:
1. Every ability must have cleanup procedures that reverse all changes
2. Only reference real MITRE ATT&CK techniques — verify with the knowledge graph tools
3. Include threat intelligence context — which groups use this technique, what tools they use
4. Target detection gaps — abilities should trigger the defensive telemetry they test
5. Abilities must be atomic and composable — single technique or small 2–3 step scenarios
6. Avoid full campaign chains — focus on individual technique simulation
7. Commands must be COPY-PASTE EXECUTABLE in the target interpreter — syntactically valid,
   real OS binary names, correct flags and arguments, proper escaping, no placeholders like
   <target> or <ip>, no inline comments explaining the code
8. Put all explanatory text in payload_description, NOT inside the command or cleanup strings
9. Prefer techniques that create or modify reversible artifacts (temp files, scheduled tasks,
   registry keys) so cleanup is straightforward

You have access to 4 tools:
1. get_techniques_by_tactic(tactic) — discover techniques in a tactic
2. get_techniques_for_platform(tactic, platform) — discover techniques for tactic + OS
3. get_subtechniques(technique_id) — navigate parent → sub-techniques
4. get_technique_intel(technique_id) — comprehensive enrichment in ONE call:
   groups (with aliases, usage), tools/malware, detection guidance, mitigations,
   campaigns (with dates, group attribution), and MISP Galaxy community data

WORKFLOW:
1. DISCOVER: Use get_techniques_by_tactic or get_techniques_for_platform
2. NAVIGATE: Use get_subtechniques to find specific variants
3. ENRICH: Use get_technique_intel ONCE per technique for full context
4. Generate detailed abilities from the enriched data
5. Include platform-specific executors with cleanup procedures

OUTPUT:
Generate Ability objects conforming to the provided schema.
Do not include conversational text. Output only structured data.`

// buildExplorationPrompt builds the phase A user prompt: explore the graph
// with tools and summarize the research for phase B.
func buildExplorationPrompt(category, platform string, tactics []string, count int) string {
	tacticsStr := ""
	for i, t := range tactics {
		if i > 0 {
			tacticsStr += ", "
		}
		tacticsStr += t
	}
	return fmt.Sprintf(
		"Generate %d %s abilities targeting %s.\n"+
			"Primary tactic(s): %s.\n\n"+
			"Requirements:\n"+
			"- Each ability must be atomic (single technique or 2-3 step scenario)\n"+
			"- Each ability must be simulation-safe with cleanup procedures\n"+
			"- Select %d DIFFERENT techniques — avoid duplicates\n"+
			"- Use the tools to discover techniques, explore sub-techniques, "+
			"and gather comprehensive threat intelligence\n"+
			"- For each selected technique, call get_technique_intel ONCE "+
			"to get full enrichment data\n\n"+
			"After researching, summarize your findings including:\n"+
			"- Which techniques you selected and why\n"+
			"- Key threat intel for each (groups, tools, campaigns)\n"+
			"- Detection guidance and mitigations\n"+
			"- Platform-specific execution approaches",
		count, category, platform, tacticsStr, count,
	)
}

// buildCompositionPrompt builds the phase B user prompt for one ability,
// carrying the full phase A research context.
func buildCompositionPrompt(reasoningContext, category, platform string, abilityIndex, totalCount int) string {
	return fmt.Sprintf(
		"## Research Context\n\n"+
			"%s\n\n"+
			"---\n\n"+
			"## Task\n\n"+
			"Using the research context above, generate ability **%d of "+
			"%d** for the **%s** category targeting **%s**.\n\n"+
			"Choose a DIFFERENT technique from the research for each ability — "+
			"this is ability #%d.\n\n"+
			"## Requirements\n\n"+
			"1. **attack_category** must be `%s`\n"+
			"2. **mitre_mapping** must reference a real technique from the research\n"+
			"3. **threat_intel_context** must include groups, tools, campaigns from the "+
			"enrichment data — do NOT fabricate intelligence\n"+
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
		reasoningContext,
		abilityIndex, totalCount, category, platform,
		abilityIndex,
		category,
		platform,
	)
}
