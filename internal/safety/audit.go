package safety

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// AuditLog is an append-only JSONL audit trail of safety rule outcomes.
// One line per rule result; all results for one ability are appended as a
// single write. The mutex serializes concurrent validators sharing a log.
type AuditLog struct {
	mu   sync.Mutex
	path string
}

// NewAuditLog creates an audit log writing to path.
func NewAuditLog(path string) *AuditLog {
	return &AuditLog{path: path}
}

// Path returns the audit log file path.
func (a *AuditLog) Path() string {
	return a.path
}

type auditEntry struct {
	Timestamp string `json:"timestamp"`
	AbilityID string `json:"ability_id"`
	Rule      string `json:"rule"`
	Result    string `json:"result"`
	Detail    string `json:"detail,omitempty"`
}

// WriteBatch appends all rule results for one ability in a single file
// operation. All lines in a batch share one timestamp.
func (a *AuditLog) WriteBatch(abilityID string, results []RuleResult) error {
	if len(results) == 0 {
		return nil
	}

	ts := time.Now().UTC().Format(time.RFC3339)
	lines := make([]string, 0, len(results))
	for _, result := range results {
		entry := auditEntry{
			Timestamp: ts,
			AbilityID: abilityID,
			Rule:      result.RuleName,
			Detail:    result.Detail,
		}
		if result.Passed {
			entry.Result = "PASS"
		} else {
			entry.Result = "FAIL"
		}
		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		lines = append(lines, string(data))
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(a.path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(a.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.WriteString(strings.Join(lines, "\n") + "\n")
	return err
}
