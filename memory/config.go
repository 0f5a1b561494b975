package memory

// Config holds memory store initialization parameters.
//
// Path is the FileStore root directory. An empty Path disables the memory
// namespace: the kernel runs without system prompt notes and file-backed
// sessions must name their own directory.
type Config struct {
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// DefaultConfig returns the default memory configuration (disabled).
func DefaultConfig() Config {
	return Config{}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Path != "" {
		c.Path = source.Path
	}
}

// NewStore creates a Store from configuration. Returns a nil Store when
// memory is disabled.
func NewStore(cfg *Config) (Store, error) {
	if cfg.Path == "" {
		return nil, nil
	}
	return NewFileStore(cfg.Path), nil
}
