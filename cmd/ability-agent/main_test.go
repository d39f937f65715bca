package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sriharsha8991/adv-attack-simulation/internal/types"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, exitSuccess},
		{"usage error", usageErrorf("unknown attack category: %q", "ransomware"), exitUsage},
		{"wrapped usage error", fmt.Errorf("batch: %w", usageErrorf("bad flag")), exitUsage},
		{"config not found", types.NewError(types.CONFIG_NOT_FOUND, "no config.yaml"), exitUsage},
		{"config invalid", types.WrapError(types.CONFIG_VALIDATION_FAILED, "bad config", errors.New("llm.provider required")), exitUsage},
		{"runtime failure", errors.New("neo4j unreachable"), exitError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}
