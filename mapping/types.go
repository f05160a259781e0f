package mapping

// InputsConfig names where the coordinate lists come from. Each entry is a
// local path or an http(s) URL.
type InputsConfig struct {
	Walls     string `yaml:"walls,omitempty" json:"walls,omitempty"`
	Positions string `yaml:"positions" json:"positions"`
}

// EpisodeConfig bounds a single episode
type EpisodeConfig struct {
	Steps int `yaml:"steps" json:"steps"`
}

// SimilarityConfig controls how maps are compared
type SimilarityConfig struct {
	Levels int `yaml:"levels" json:"levels"` // 0 compares the settled occupancy values, one per evidence count
}

// OutputConfig controls where results are written and how they are drawn
type OutputConfig struct {
	Dir              string  `yaml:"dir" json:"dir"`
	CellSize         int     `yaml:"cellSize,omitempty" json:"cellSize,omitempty"`                 // PNG pixels per map cell (default 16)
	VectorResolution float64 `yaml:"vectorResolution,omitempty" json:"vectorResolution,omitempty"` // Vector PNG DPI (default 300)
}

// MQTTConfig holds MQTT connection settings
type MQTTConfig struct {
	Broker        string `yaml:"broker,omitempty" json:"broker,omitempty"`
	PublishPrefix string `yaml:"publishPrefix,omitempty" json:"publishPrefix,omitempty"`
	ClientID      string `yaml:"clientId,omitempty" json:"clientId,omitempty"`
	Username      string `yaml:"username,omitempty" json:"username,omitempty"`
	Password      string `yaml:"password,omitempty" json:"password,omitempty"`
}

// Config represents the full configuration file
type Config struct {
	Arena      Dimensions       `yaml:"arena" json:"arena"`
	Inputs     InputsConfig     `yaml:"inputs" json:"inputs"`
	Episode    EpisodeConfig    `yaml:"episode" json:"episode"`
	Mapper     MapperConfig     `yaml:"mapper" json:"mapper"`
	Similarity SimilarityConfig `yaml:"similarity" json:"similarity"`
	Output     OutputConfig     `yaml:"output" json:"output"`
	MQTT       MQTTConfig       `yaml:"mqtt,omitempty" json:"mqtt,omitempty"`
}

// DefaultConfig returns the configuration of the reference experiment: a
// 12x12 arena, 1000 steps per episode, 24x24 bins.
func DefaultConfig() *Config {
	return &Config{
		Arena: Dimensions{Width: 12, Height: 12},
		Inputs: InputsConfig{
			Walls:     "walls.txt",
			Positions: "robot_start_positions.txt",
		},
		Episode:    EpisodeConfig{Steps: DefaultSteps},
		Mapper:     DefaultMapperConfig(),
		Similarity: SimilarityConfig{Levels: 0},
		Output: OutputConfig{
			Dir:              "results",
			CellSize:         16,
			VectorResolution: 300,
		},
	}
}

// ExperimentConfig combines the config with the loaded walls
func (c *Config) ExperimentConfig(walls []Segment) ExperimentConfig {
	return ExperimentConfig{
		Arena:  c.Arena,
		Walls:  walls,
		Steps:  c.Episode.Steps,
		Mapper: c.Mapper,
		Levels: c.Similarity.Levels,
	}
}

// MQTTEnabled reports whether a broker is configured
func (c *Config) MQTTEnabled() bool {
	return c.MQTT.Broker != ""
}
