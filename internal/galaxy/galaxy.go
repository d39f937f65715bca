// Package galaxy downloads, caches, and indexes MISP galaxy cluster files.
// Lookups are keyed by ATT&CK technique ID and supplement the knowledge
// graph with community-maintained group, tool, and malware attributions.
package galaxy

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sriharsha8991/adv-attack-simulation/internal/types"
)

// Galaxy error codes.
const (
	ErrCodeGalaxyDownloadFailed types.ErrorCode = "GALAXY_DOWNLOAD_FAILED"
	ErrCodeGalaxyParseFailed    types.ErrorCode = "GALAXY_PARSE_FAILED"
	ErrCodeGalaxyNotLoaded      types.ErrorCode = "GALAXY_NOT_LOADED"
)

// DefaultBaseURL is the MISP galaxy cluster repository.
const DefaultBaseURL = "https://raw.githubusercontent.com/MISP/misp-galaxy/main/clusters"

// clusterFiles maps galaxy keys to their cluster file names. Attack patterns
// must be parsed first; the other three cross-reference them by UUID.
var clusterFiles = map[string]string{
	"attack_pattern": "mitre-attack-pattern.json",
	"intrusion_set":  "mitre-intrusion-set.json",
	"tool":           "mitre-tool.json",
	"malware":        "mitre-malware.json",
}

// AttackPattern is the indexed galaxy entry for one technique.
type AttackPattern struct {
	Name        string
	Description string
	UUID        string
}

// Entry is one galaxy group/tool/malware item linked to a technique.
type Entry struct {
	Name        string
	Description string
	Aliases     []string
	Country     string
}

// TechniqueContext is the combined galaxy view for one technique.
type TechniqueContext struct {
	TechniqueID   string
	AttackPattern *AttackPattern
	Groups        []Entry
	Tools         []Entry
	Malware       []Entry
}

// Stats summarizes the loaded indexes.
type Stats struct {
	AttackPatterns      int
	IntrusionSetLinks   int
	ToolLinks           int
	MalwareLinks        int
	TechniquesWithLinks int
}

// Index holds the parsed galaxy data. Build it once at startup with Load;
// lookups afterwards are read-only and safe for concurrent use.
type Index struct {
	cacheDir string
	baseURL  string
	client   *http.Client
	logger   *slog.Logger

	attackPatterns map[string]AttackPattern // technique ID → pattern
	uuidToID       map[string]string        // attack-pattern UUID → technique ID
	groups         map[string][]Entry
	tools          map[string][]Entry
	malware        map[string][]Entry
	loaded         bool
}

// Option configures an Index.
type Option func(*Index)

// WithBaseURL overrides the galaxy repository URL.
func WithBaseURL(url string) Option {
	return func(i *Index) { i.baseURL = url }
}

// WithHTTPClient overrides the HTTP client used for downloads.
func WithHTTPClient(client *http.Client) Option {
	return func(i *Index) { i.client = client }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Index) { i.logger = logger }
}

// NewIndex creates an unloaded galaxy index backed by the given cache dir.
func NewIndex(cacheDir string, opts ...Option) *Index {
	idx := &Index{
		cacheDir:       cacheDir,
		baseURL:        DefaultBaseURL,
		client:         &http.Client{Timeout: 60 * time.Second},
		logger:         slog.Default(),
		attackPatterns: make(map[string]AttackPattern),
		uuidToID:       make(map[string]string),
		groups:         make(map[string][]Entry),
		tools:          make(map[string][]Entry),
		malware:        make(map[string][]Entry),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// clusterValue mirrors the MISP galaxy cluster JSON shape.
type clusterValue struct {
	Value       string         `json:"value"`
	Description string         `json:"description"`
	UUID        string         `json:"uuid"`
	Meta        map[string]any `json:"meta"`
	Related     []struct {
		DestUUID string `json:"dest-uuid"`
		Type     string `json:"type"`
	} `json:"related"`
}

type clusterFile struct {
	Values []clusterValue `json:"values"`
}

// Load downloads any missing cluster files and builds all lookup indexes.
// It must be called before any lookup method.
func (i *Index) Load(ctx context.Context, forceDownload bool) error {
	if err := os.MkdirAll(i.cacheDir, 0o755); err != nil {
		return types.WrapError(ErrCodeGalaxyDownloadFailed, "failed to create cache dir", err)
	}

	paths := make(map[string]string, len(clusterFiles))
	for key, filename := range clusterFiles {
		path, err := i.downloadFile(ctx, filename, forceDownload)
		if err != nil {
			return err
		}
		paths[key] = path
	}

	// Attack patterns first: the uses-relations of the other clusters are
	// resolved through the pattern UUID index.
	if err := i.parseAttackPatterns(paths["attack_pattern"]); err != nil {
		return err
	}
	if err := i.parseLinked(paths["intrusion_set"], i.groups); err != nil {
		return err
	}
	if err := i.parseLinked(paths["tool"], i.tools); err != nil {
		return err
	}
	if err := i.parseLinked(paths["malware"], i.malware); err != nil {
		return err
	}

	i.loaded = true
	stats := i.Stats()
	i.logger.InfoContext(ctx, "galaxy data loaded",
		"attack_patterns", stats.AttackPatterns,
		"group_links", stats.IntrusionSetLinks,
		"tool_links", stats.ToolLinks,
		"malware_links", stats.MalwareLinks,
	)
	return nil
}

func (i *Index) downloadFile(ctx context.Context, filename string, force bool) (string, error) {
	localPath := filepath.Join(i.cacheDir, filename)

	if _, err := os.Stat(localPath); err == nil && !force {
		i.logger.DebugContext(ctx, "galaxy file already cached", "file", filename)
		return localPath, nil
	}

	url := i.baseURL + "/" + filename
	i.logger.InfoContext(ctx, "downloading galaxy file", "url", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", types.WrapError(ErrCodeGalaxyDownloadFailed, "failed to build request", err)
	}

	resp, err := i.client.Do(req)
	if err != nil {
		return "", types.WrapError(ErrCodeGalaxyDownloadFailed, "download failed: "+filename, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", types.NewError(ErrCodeGalaxyDownloadFailed,
			fmt.Sprintf("download failed: %s returned %d", filename, resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", types.WrapError(ErrCodeGalaxyDownloadFailed, "failed to read body: "+filename, err)
	}
	if err := os.WriteFile(localPath, body, 0o644); err != nil {
		return "", types.WrapError(ErrCodeGalaxyDownloadFailed, "failed to write cache file", err)
	}
	return localPath, nil
}

func readClusterFile(path string) (*clusterFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.WrapError(ErrCodeGalaxyParseFailed, "failed to read "+filepath.Base(path), err)
	}
	var cf clusterFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return nil, types.WrapError(ErrCodeGalaxyParseFailed, "failed to parse "+filepath.Base(path), err)
	}
	return &cf, nil
}

// extractAttackIDs pulls ATT&CK technique IDs out of a cluster value.
// Different galaxy types encode the ID in meta.external_id,
// meta.mitre_attack_id, or a "Name - T1234" value suffix.
func extractAttackIDs(val clusterValue) []string {
	var ids []string
	seen := make(map[string]bool)
	add := func(id string) {
		if strings.HasPrefix(id, "T") && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	if val.Meta != nil {
		if eids, ok := val.Meta["external_id"].([]any); ok {
			for _, eid := range eids {
				if s, ok := eid.(string); ok {
					add(s)
				}
			}
		}
		if mid, ok := val.Meta["mitre_attack_id"].(string); ok {
			add(mid)
		}
	}

	if idx := strings.LastIndex(val.Value, " - "); idx >= 0 {
		add(strings.TrimSpace(val.Value[idx+3:]))
	}

	return ids
}

func (i *Index) parseAttackPatterns(path string) error {
	cf, err := readClusterFile(path)
	if err != nil {
		return err
	}
	for _, val := range cf.Values {
		for _, tid := range extractAttackIDs(val) {
			i.attackPatterns[tid] = AttackPattern{
				Name:        val.Value,
				Description: val.Description,
				UUID:        val.UUID,
			}
			if val.UUID != "" {
				i.uuidToID[val.UUID] = tid
			}
		}
	}
	return nil
}

// parseLinked indexes a cluster whose values reference attack patterns via
// related[type=uses] dest-uuids.
func (i *Index) parseLinked(path string, target map[string][]Entry) error {
	cf, err := readClusterFile(path)
	if err != nil {
		return err
	}
	for _, val := range cf.Values {
		entry := Entry{
			Name:        val.Value,
			Description: val.Description,
		}
		if val.Meta != nil {
			if syns, ok := val.Meta["synonyms"].([]any); ok {
				for _, s := range syns {
					if str, ok := s.(string); ok {
						entry.Aliases = append(entry.Aliases, str)
					}
				}
			}
			if country, ok := val.Meta["country"].(string); ok {
				entry.Country = country
			}
		}
		for _, rel := range val.Related {
			if rel.Type != "uses" || rel.DestUUID == "" {
				continue
			}
			if tid, ok := i.uuidToID[rel.DestUUID]; ok {
				target[tid] = append(target[tid], entry)
			}
		}
	}
	return nil
}

func (i *Index) ensureLoaded() error {
	if !i.loaded {
		return types.NewError(ErrCodeGalaxyNotLoaded, "galaxy data not loaded; call Load first")
	}
	return nil
}

// GroupsForTechnique returns the galaxy intrusion sets linked to a technique.
func (i *Index) GroupsForTechnique(techniqueID string) ([]Entry, error) {
	if err := i.ensureLoaded(); err != nil {
		return nil, err
	}
	return i.groups[techniqueID], nil
}

// ToolsForTechnique returns the galaxy tools linked to a technique.
func (i *Index) ToolsForTechnique(techniqueID string) ([]Entry, error) {
	if err := i.ensureLoaded(); err != nil {
		return nil, err
	}
	return i.tools[techniqueID], nil
}

// MalwareForTechnique returns the galaxy malware linked to a technique.
func (i *Index) MalwareForTechnique(techniqueID string) ([]Entry, error) {
	if err := i.ensureLoaded(); err != nil {
		return nil, err
	}
	return i.malware[techniqueID], nil
}

// Context returns the combined galaxy view for a technique.
func (i *Index) Context(techniqueID string) (*TechniqueContext, error) {
	if err := i.ensureLoaded(); err != nil {
		return nil, err
	}
	tc := &TechniqueContext{
		TechniqueID: techniqueID,
		Groups:      i.groups[techniqueID],
		Tools:       i.tools[techniqueID],
		Malware:     i.malware[techniqueID],
	}
	if ap, ok := i.attackPatterns[techniqueID]; ok {
		tc.AttackPattern = &ap
	}
	return tc, nil
}

// Stats returns counts of indexed entries.
func (i *Index) Stats() Stats {
	linkCount := func(m map[string][]Entry) int {
		total := 0
		for _, entries := range m {
			total += len(entries)
		}
		return total
	}
	withLinks := make(map[string]bool)
	for tid := range i.groups {
		withLinks[tid] = true
	}
	for tid := range i.tools {
		withLinks[tid] = true
	}
	for tid := range i.malware {
		withLinks[tid] = true
	}
	return Stats{
		AttackPatterns:      len(i.attackPatterns),
		IntrusionSetLinks:   linkCount(i.groups),
		ToolLinks:           linkCount(i.tools),
		MalwareLinks:        linkCount(i.malware),
		TechniquesWithLinks: len(withLinks),
	}
}
