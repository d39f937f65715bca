// Package graph provides read access to the ATT&CK knowledge graph. The
// graph itself is populated by an external ingestion pipeline; this package
// only queries it.
package graph

import (
	"context"
	"time"

	"github.com/sriharsha8991/adv-attack-simulation/internal/types"
)

// Client is the interface for knowledge-graph access. Implementations must
// be safe for concurrent use.
type Client interface {
	// Connect establishes the database connection.
	Connect(ctx context.Context) error

	// Close releases all resources held by the client.
	Close(ctx context.Context) error

	// Health reports whether the database is reachable.
	Health(ctx context.Context) error

	// Query executes a Cypher query with the given parameters.
	Query(ctx context.Context, cypher string, params map[string]any) (QueryResult, error)
}

// QueryResult holds the records returned by a Cypher query.
type QueryResult struct {
	Records       []map[string]any
	Columns       []string
	ExecutionTime time.Duration
}

// Config holds connection settings for the graph database.
type Config struct {
	URI                   string        `mapstructure:"uri" yaml:"uri"`
	Username              string        `mapstructure:"username" yaml:"username"`
	Password              string        `mapstructure:"password" yaml:"password"`
	Database              string        `mapstructure:"database" yaml:"database"`
	MaxConnectionPoolSize int           `mapstructure:"max_connection_pool_size" yaml:"max_connection_pool_size"`
	ConnectionTimeout     time.Duration `mapstructure:"connection_timeout" yaml:"connection_timeout"`
}

// DefaultConfig returns a Config with sensible local-development defaults.
func DefaultConfig() Config {
	return Config{
		URI:                   "bolt://localhost:7687",
		Username:              "neo4j",
		Database:              "neo4j",
		MaxConnectionPoolSize: 50,
		ConnectionTimeout:     30 * time.Second,
	}
}

// Validate checks the configuration for required fields.
func (c Config) Validate() error {
	if c.URI == "" {
		return types.NewError(ErrCodeGraphConfigInvalid, "graph URI is required")
	}
	if c.Username == "" {
		return types.NewError(ErrCodeGraphConfigInvalid, "graph username is required")
	}
	if c.MaxConnectionPoolSize < 0 {
		return types.NewError(ErrCodeGraphConfigInvalid, "max connection pool size cannot be negative")
	}
	return nil
}
