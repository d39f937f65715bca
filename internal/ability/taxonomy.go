package ability

// CategoryTactics maps each attack category onto the ATT&CK tactic shortnames
// used as graph query keys. Composite categories fan out to several tactics;
// an unmapped category yields no tactics and therefore no generation targets.
var CategoryTactics = map[AttackCategory][]string{
	CategoryCredentialAccess:  {"credential-access"},
	CategoryPrivilegeEsc:      {"privilege-escalation"},
	CategoryPersistence:       {"persistence"},
	CategoryLateralMovement:   {"lateral-movement"},
	CategoryDefenseEvasion:    {"defense-evasion"},
	CategoryCommandAndControl: {"command-and-control"},
	CategoryDiscovery:         {"discovery"},
	CategoryCollection:        {"collection"},
	CategoryExfiltration:      {"exfiltration"},
	CategoryCloudIAMAbuse:     {"credential-access", "privilege-escalation"},
	CategoryADAbuse:           {"credential-access", "lateral-movement"},
	CategoryWebAppSimulation:  {"initial-access"},
	CategoryNetworkSignaling:  {"command-and-control"},
}

// TacticsFor returns the ATT&CK tactic shortnames for a category, or nil when
// the category has no mapping.
func TacticsFor(category AttackCategory) []string {
	return CategoryTactics[category]
}
