package batch

import (
	"context"
	"sort"

	"github.com/sriharsha8991/adv-attack-simulation/internal/ability"
)

// Target is a single technique × platform generation target.
type Target struct {
	TechniqueID    string
	TechniqueName  string
	Category       ability.AttackCategory
	Platform       ability.Platform
	Tactic         string
	IsSubtechnique bool
	ParentID       string
}

// DiscoverTargets queries the knowledge graph for every technique ×
// platform target in the generation matrix.
//
// For each category: resolve its tactics, fetch parent techniques per
// tactic, expand sub-techniques, cross with the category's platforms, and
// deduplicate (technique, platform) pairs globally. Passing categories
// restricts the sweep; nil means all.
func (g *Generator) DiscoverTargets(ctx context.Context, categories []ability.AttackCategory) ([]Target, error) {
	matrix := GenerationMatrix
	if len(categories) > 0 {
		matrix = make(map[ability.AttackCategory][]ability.Platform, len(categories))
		for _, cat := range categories {
			if platforms, ok := GenerationMatrix[cat]; ok {
				matrix[cat] = platforms
			}
		}
	}

	// Map iteration order is random; sort categories so discovery output
	// is deterministic run to run.
	ordered := make([]ability.AttackCategory, 0, len(matrix))
	for cat := range matrix {
		ordered = append(ordered, cat)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })

	seen := make(map[[2]string]bool)
	var targets []Target

	for _, category := range ordered {
		platforms := matrix[category]
		tactics := ability.TacticsFor(category)
		if len(tactics) == 0 {
			g.logger.WarnContext(ctx, "no tactic mapping for category", "category", category)
			continue
		}

		for _, tactic := range tactics {
			parents, err := g.store.TechniquesByTactic(ctx, tactic)
			if err != nil {
				return nil, err
			}
			g.logger.InfoContext(ctx, "parent techniques found",
				"category", category, "tactic", tactic, "count", len(parents))

			for _, tech := range parents {
				for _, plat := range platforms {
					key := [2]string{tech.AttackID, string(plat)}
					if platformMatches(plat, tech.Platforms) && !seen[key] {
						seen[key] = true
						targets = append(targets, Target{
							TechniqueID:   tech.AttackID,
							TechniqueName: tech.Name,
							Category:      category,
							Platform:      plat,
							Tactic:        tactic,
						})
					}
				}

				subs, err := g.store.Subtechniques(ctx, tech.AttackID)
				if err != nil {
					return nil, err
				}
				for _, sub := range subs {
					for _, plat := range platforms {
						key := [2]string{sub.AttackID, string(plat)}
						if platformMatches(plat, sub.Platforms) && !seen[key] {
							seen[key] = true
							targets = append(targets, Target{
								TechniqueID:    sub.AttackID,
								TechniqueName:  sub.Name,
								Category:       category,
								Platform:       plat,
								Tactic:         tactic,
								IsSubtechnique: true,
								ParentID:       tech.AttackID,
							})
						}
					}
				}
			}
		}
	}

	g.logger.InfoContext(ctx, "discovery complete",
		"targets", len(targets), "categories", len(matrix))
	return targets, nil
}
