// Package batch implements the technique-driven generation sweep: discover
// every technique × platform target from the knowledge graph, enrich each
// directly, and compose one ability per target at high concurrency.
package batch

import (
	"strings"

	"github.com/sriharsha8991/adv-attack-simulation/internal/ability"
)

// GenerationMatrix maps each attack category to the platforms worth
// generating for. Cloud platforms appear only where cloud techniques exist
// in meaningful numbers.
var GenerationMatrix = map[ability.AttackCategory][]ability.Platform{
	ability.CategoryCredentialAccess:  {ability.PlatformWindows, ability.PlatformLinux, ability.PlatformMacOS},
	ability.CategoryPrivilegeEsc:      {ability.PlatformWindows, ability.PlatformLinux, ability.PlatformMacOS},
	ability.CategoryPersistence:       {ability.PlatformWindows, ability.PlatformLinux, ability.PlatformMacOS},
	ability.CategoryLateralMovement:   {ability.PlatformWindows, ability.PlatformLinux},
	ability.CategoryDefenseEvasion:    {ability.PlatformWindows, ability.PlatformLinux, ability.PlatformMacOS},
	ability.CategoryCommandAndControl: {ability.PlatformWindows, ability.PlatformLinux, ability.PlatformMacOS},
	ability.CategoryDiscovery: {
		ability.PlatformWindows, ability.PlatformLinux, ability.PlatformMacOS,
		ability.PlatformCloudAWS, ability.PlatformCloudAzure, ability.PlatformCloudGCP,
	},
	ability.CategoryCollection:       {ability.PlatformWindows, ability.PlatformLinux, ability.PlatformMacOS},
	ability.CategoryExfiltration:     {ability.PlatformWindows, ability.PlatformLinux},
	ability.CategoryCloudIAMAbuse:    {ability.PlatformCloudAWS, ability.PlatformCloudAzure, ability.PlatformCloudGCP},
	ability.CategoryADAbuse:          {ability.PlatformWindows},
	ability.CategoryWebAppSimulation: {ability.PlatformLinux, ability.PlatformWindows},
	ability.CategoryNetworkSignaling: {ability.PlatformWindows, ability.PlatformLinux},
}

// platformMatchers maps our platform names onto substrings of MITRE's
// platform labels. Cloud mappings are best effort: MITRE tags cloud
// techniques with IaaS/SaaS rather than vendor names.
var platformMatchers = map[ability.Platform][]string{
	ability.PlatformWindows:    {"windows"},
	ability.PlatformLinux:      {"linux"},
	ability.PlatformMacOS:      {"macos"},
	ability.PlatformCloudAWS:   {"iaas", "saas", "aws"},
	ability.PlatformCloudAzure: {"azure ad", "iaas", "saas", "office 365", "azure"},
	ability.PlatformCloudGCP:   {"iaas", "saas", "google workspace", "gcp"},
}

// platformMatches reports whether a target platform matches any of the
// technique's MITRE platform labels. Matching is case-insensitive substring.
func platformMatches(target ability.Platform, techniquePlatforms []string) bool {
	matchers, ok := platformMatchers[target]
	if !ok {
		matchers = []string{string(target)}
	}
	for _, tp := range techniquePlatforms {
		lower := strings.ToLower(tp)
		for _, m := range matchers {
			if strings.Contains(lower, m) {
				return true
			}
		}
	}
	return false
}
