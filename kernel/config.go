package kernel

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tailored-agentic-units/tradedesk/agent"
	"github.com/tailored-agentic-units/tradedesk/interrupt"
	"github.com/tailored-agentic-units/tradedesk/memory"
	"github.com/tailored-agentic-units/tradedesk/session"
	"github.com/tailored-agentic-units/tradedesk/tools/market"
)

const defaultMaxIterations = 10

// Config holds initialization parameters for all kernel subsystems.
// Each subsystem section delegates to that subsystem's config-driven constructor.
type Config struct {
	Agent         agent.Config     `json:"agent" yaml:"agent"`
	Session       session.Config   `json:"session" yaml:"session"`
	Memory        memory.Config    `json:"memory" yaml:"memory"`
	Interrupt     interrupt.Config `json:"interrupt" yaml:"interrupt"`
	Market        market.Config    `json:"market" yaml:"market"`
	Observers     []string         `json:"observers,omitempty" yaml:"observers,omitempty"`
	MaxIterations int              `json:"max_iterations,omitempty" yaml:"max_iterations,omitempty"`
	SystemPrompt  string           `json:"system_prompt,omitempty" yaml:"system_prompt,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults for all subsystems.
func DefaultConfig() Config {
	return Config{
		Agent:         agent.DefaultConfig(),
		Session:       session.DefaultConfig(),
		Memory:        memory.DefaultConfig(),
		Interrupt:     interrupt.DefaultConfig(),
		Market:        market.DefaultConfig(),
		Observers:     []string{"slog", "trace"},
		MaxIterations: defaultMaxIterations,
	}
}

// Merge applies non-zero values from source into c, delegating to each
// subsystem's Merge method.
func (c *Config) Merge(source *Config) {
	c.Agent.Merge(&source.Agent)
	c.Session.Merge(&source.Session)
	c.Memory.Merge(&source.Memory)
	c.Interrupt.Merge(&source.Interrupt)
	c.Market.Merge(&source.Market)

	if len(source.Observers) > 0 {
		c.Observers = source.Observers
	}
	if source.MaxIterations > 0 {
		c.MaxIterations = source.MaxIterations
	}
	if source.SystemPrompt != "" {
		c.SystemPrompt = source.SystemPrompt
	}
}

// LoadConfig reads a JSON or YAML config file, merges it with defaults, and
// returns the resulting Config.
func LoadConfig(filename string) (*Config, error) {
	cfg := DefaultConfig()

	var loaded Config
	if err := DecodeFile(filename, &loaded); err != nil {
		return nil, err
	}

	cfg.Merge(&loaded)
	return &cfg, nil
}

// DecodeFile reads filename into v. Files ending in .yaml or .yml are decoded
// as YAML; anything else as JSON.
func DecodeFile(filename string, v any) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, v)
	default:
		err = json.Unmarshal(data, v)
	}
	if err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}
