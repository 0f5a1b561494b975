package session

import (
	"context"
	"fmt"
	"os"

	"github.com/tailored-agentic-units/tradedesk/memory"
)

// Backend names accepted by Config.Backend.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendMongo  = "mongo"
)

// Config holds session store initialization parameters.
// Path is the file backend root directory. MongoURI overrides the
// MONGODB_URI environment variable for the mongo backend.
type Config struct {
	Backend    string `json:"backend,omitempty" yaml:"backend,omitempty"`
	Path       string `json:"path,omitempty" yaml:"path,omitempty"`
	MongoURI   string `json:"mongo_uri,omitempty" yaml:"mongo_uri,omitempty"`
	Database   string `json:"database,omitempty" yaml:"database,omitempty"`
	Collection string `json:"collection,omitempty" yaml:"collection,omitempty"`
}

// DefaultConfig returns the default session configuration (in-memory).
func DefaultConfig() Config {
	return Config{
		Backend:    BackendMemory,
		Database:   "tradedesk",
		Collection: "sessions",
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Backend != "" {
		c.Backend = source.Backend
	}
	if source.Path != "" {
		c.Path = source.Path
	}
	if source.MongoURI != "" {
		c.MongoURI = source.MongoURI
	}
	if source.Database != "" {
		c.Database = source.Database
	}
	if source.Collection != "" {
		c.Collection = source.Collection
	}
}

// New creates a Store from configuration.
func New(ctx context.Context, cfg *Config) (Store, error) {
	switch cfg.Backend {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendFile:
		if cfg.Path == "" {
			return nil, fmt.Errorf("session: file backend requires a path")
		}
		return NewFileStore(memory.NewFileStore(cfg.Path)), nil
	case BackendMongo:
		uri := cfg.MongoURI
		if uri == "" {
			uri = os.Getenv("MONGODB_URI")
		}
		if uri == "" {
			uri = "mongodb://localhost:27017"
		}
		return DialMongo(ctx, uri, cfg.Database, cfg.Collection)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, cfg.Backend)
	}
}
