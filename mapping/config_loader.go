package mapping

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads the configuration from a YAML file. Fields missing from
// the file keep their DefaultConfig values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks required fields and ranges
func (c *Config) Validate() error {
	if c.Arena.Width <= 0 || c.Arena.Height <= 0 {
		return fmt.Errorf("arena.width and arena.height must be positive, got %gx%g", c.Arena.Width, c.Arena.Height)
	}
	if c.Inputs.Positions == "" {
		return fmt.Errorf("inputs.positions is required")
	}
	if c.Episode.Steps < 1 {
		return fmt.Errorf("episode.steps must be positive, got %d", c.Episode.Steps)
	}
	if err := c.Mapper.Validate(); err != nil {
		return err
	}
	if c.Similarity.Levels < 0 {
		return fmt.Errorf("similarity.levels must not be negative, got %d", c.Similarity.Levels)
	}
	if c.Output.CellSize < 0 {
		return fmt.Errorf("output.cellSize must not be negative, got %d", c.Output.CellSize)
	}
	return nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(path string, config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshaling config YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
