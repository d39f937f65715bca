package reasoning

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/sriharsha8991/adv-attack-simulation/internal/cti"
	"github.com/sriharsha8991/adv-attack-simulation/internal/galaxy"
	"github.com/sriharsha8991/adv-attack-simulation/internal/llm"
	"github.com/sriharsha8991/adv-attack-simulation/internal/types"
)

// Tool names exposed to the model.
const (
	ToolTechniquesByTactic    = "get_techniques_by_tactic"
	ToolTechniquesForPlatform = "get_techniques_for_platform"
	ToolSubtechniques         = "get_subtechniques"
	ToolTechniqueIntel        = "get_technique_intel"
)

// GalaxySource is the slice of the galaxy index the tool set needs.
type GalaxySource interface {
	Context(techniqueID string) (*galaxy.TechniqueContext, error)
}

// GraphToolSet exposes the four knowledge-graph tools to the generation
// loop: two discovery tools, one navigation tool, and one omnibus
// enrichment tool.
type GraphToolSet struct {
	store  *cti.Store
	galaxy GalaxySource
	logger *slog.Logger
}

// NewGraphToolSet creates the tool set. The galaxy source may be nil; the
// enrichment tool then returns graph data alone.
func NewGraphToolSet(store *cti.Store, galaxySource GalaxySource, logger *slog.Logger) *GraphToolSet {
	if logger == nil {
		logger = slog.Default()
	}
	return &GraphToolSet{store: store, galaxy: galaxySource, logger: logger}
}

// Defs returns the tool declarations sent to the provider.
func (t *GraphToolSet) Defs() []llm.ToolDef {
	return []llm.ToolDef{
		{
			Name: ToolTechniquesByTactic,
			Description: "Query the MITRE ATT&CK knowledge graph for techniques in a specific tactic. " +
				"Use this to discover which attack techniques are available under a given tactic. " +
				"Tactic shortnames include: credential-access, lateral-movement, persistence, " +
				"defense-evasion, privilege-escalation, discovery, collection, exfiltration, " +
				"command-and-control, initial-access, execution, resource-development, impact.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"tactic": map[string]any{
						"type":        "string",
						"description": "The ATT&CK tactic shortname (e.g., 'credential-access', 'lateral-movement').",
					},
				},
				"required": []string{"tactic"},
			},
		},
		{
			Name: ToolTechniquesForPlatform,
			Description: "Query ATT&CK techniques filtered by tactic AND target platform. " +
				"Use this when generating abilities for a specific operating system. " +
				"Platform names are capitalised: 'Windows', 'Linux', 'macOS'.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"tactic": map[string]any{
						"type":        "string",
						"description": "The ATT&CK tactic shortname (e.g., 'credential-access').",
					},
					"platform": map[string]any{
						"type":        "string",
						"description": "Target platform name (e.g., 'Windows', 'Linux', 'macOS').",
					},
				},
				"required": []string{"tactic", "platform"},
			},
		},
		{
			Name: ToolSubtechniques,
			Description: "Get sub-techniques for a parent ATT&CK technique. " +
				"Use this to discover specific attack variants. For example T1003 " +
				"(OS Credential Dumping) has sub-techniques T1003.001 (LSASS Memory), " +
				"T1003.002 (Security Account Manager), T1003.003 (NTDS).",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"technique_id": map[string]any{
						"type":        "string",
						"description": "Parent technique ID (e.g., 'T1003', 'T1110').",
					},
				},
				"required": []string{"technique_id"},
			},
		},
		{
			Name: ToolTechniqueIntel,
			Description: "Get comprehensive threat intelligence for a technique in ONE call: " +
				"groups (with aliases, usage), tools/malware, detection guidance with data sources, " +
				"mitigations, real-world campaigns (with dates, group attribution), and MISP Galaxy " +
				"community intelligence. This is the primary enrichment tool — call it once per " +
				"technique instead of making multiple separate queries.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"technique_id": map[string]any{
						"type":        "string",
						"description": "ATT&CK technique or sub-technique ID (e.g. 'T1003', 'T1003.001').",
					},
				},
				"required": []string{"technique_id"},
			},
		},
	}
}

type tacticArgs struct {
	Tactic string `json:"tactic"`
}

type platformArgs struct {
	Tactic   string `json:"tactic"`
	Platform string `json:"platform"`
}

type techniqueArgs struct {
	TechniqueID string `json:"technique_id"`
}

// galaxyIntel is the MISP galaxy section of the enrichment tool result.
type galaxyIntel struct {
	Groups  []string `json:"groups,omitempty"`
	Tools   []string `json:"tools,omitempty"`
	Malware []string `json:"malware,omitempty"`
}

// techniqueIntelResult is the omnibus enrichment payload returned to the
// model: graph intel plus the galaxy community view.
type techniqueIntelResult struct {
	*cti.TechniqueIntel
	MISPGalaxy *galaxyIntel `json:"misp_galaxy,omitempty"`
}

// Dispatch executes one tool call by name. Unknown names surface as coded
// errors which the generation loop relays to the model.
func (t *GraphToolSet) Dispatch(ctx context.Context, name string, args json.RawMessage) (any, error) {
	t.logger.InfoContext(ctx, "tool call", "tool", name, "args", string(args))

	switch name {
	case ToolTechniquesByTactic:
		var a tacticArgs
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, types.WrapError(llm.ErrToolExecutionFailed, "invalid arguments", err)
		}
		return t.store.TechniquesByTactic(ctx, a.Tactic)

	case ToolTechniquesForPlatform:
		var a platformArgs
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, types.WrapError(llm.ErrToolExecutionFailed, "invalid arguments", err)
		}
		return t.store.TechniquesForPlatform(ctx, a.Tactic, a.Platform)

	case ToolSubtechniques:
		var a techniqueArgs
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, types.WrapError(llm.ErrToolExecutionFailed, "invalid arguments", err)
		}
		return t.store.Subtechniques(ctx, a.TechniqueID)

	case ToolTechniqueIntel:
		var a techniqueArgs
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, types.WrapError(llm.ErrToolExecutionFailed, "invalid arguments", err)
		}
		return t.techniqueIntel(ctx, a.TechniqueID)

	default:
		return nil, types.NewError(llm.ErrToolNotFound, "unknown tool: "+name)
	}
}

// techniqueIntel fetches the graph bundle and attaches the galaxy view.
// Galaxy failures degrade to graph-only intel rather than failing the call.
func (t *GraphToolSet) techniqueIntel(ctx context.Context, techniqueID string) (any, error) {
	intel, err := t.store.TechniqueIntel(ctx, techniqueID)
	if err != nil {
		return nil, err
	}

	result := techniqueIntelResult{TechniqueIntel: intel}
	if t.galaxy != nil {
		gctx, gerr := t.galaxy.Context(techniqueID)
		if gerr != nil {
			t.logger.WarnContext(ctx, "galaxy lookup failed", "technique_id", techniqueID, "error", gerr)
		} else {
			result.MISPGalaxy = &galaxyIntel{
				Groups:  entryNames(gctx.Groups),
				Tools:   entryNames(gctx.Tools),
				Malware: entryNames(gctx.Malware),
			}
		}
	}
	return result, nil
}

func entryNames(entries []galaxy.Entry) []string {
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Name != "" {
			names = append(names, e.Name)
		}
	}
	return names
}
