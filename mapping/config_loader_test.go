package mapping

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func validConfigYAML() string {
	return `arena:
  width: 12
  height: 12
inputs:
  walls: walls.txt
  positions: http://example.com/starts.txt
episode:
  steps: 250
mapper:
  bins: 24
  jitter: 0.2
  maxAttempts: 100
  seed: 42
similarity:
  levels: 10
output:
  dir: out
mqtt:
  broker: tcp://localhost:1883
  publishPrefix: gridmesh-test
`
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write config fixture: %v", err)
	}
	return path
}

// ---------------------------------------------------------------------------
// LoadConfig
// ---------------------------------------------------------------------------

func TestLoadConfig_NotExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.yaml")
	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("expected error for missing config file, got nil")
	}
	if !strings.Contains(err.Error(), "config file not found") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadConfig_ValidYAML(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, validConfigYAML()))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Episode.Steps != 250 {
		t.Errorf("Episode.Steps = %d, want 250", cfg.Episode.Steps)
	}
	if cfg.Mapper.Seed != 42 {
		t.Errorf("Mapper.Seed = %d, want 42", cfg.Mapper.Seed)
	}
	if cfg.Similarity.Levels != 10 {
		t.Errorf("Similarity.Levels = %d, want 10", cfg.Similarity.Levels)
	}
	if cfg.Inputs.Positions != "http://example.com/starts.txt" {
		t.Errorf("Inputs.Positions = %q", cfg.Inputs.Positions)
	}
	if !cfg.MQTTEnabled() {
		t.Error("expected MQTT to be enabled")
	}
	if cfg.MQTT.PublishPrefix != "gridmesh-test" {
		t.Errorf("MQTT.PublishPrefix = %q, want %q", cfg.MQTT.PublishPrefix, "gridmesh-test")
	}
	// unset fields keep their defaults
	if cfg.Output.CellSize != 16 {
		t.Errorf("Output.CellSize = %d, want default 16", cfg.Output.CellSize)
	}
}

func TestLoadConfig_PartialKeepsDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "episode:\n  steps: 50\n"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	def := DefaultConfig()
	if cfg.Episode.Steps != 50 {
		t.Errorf("Episode.Steps = %d, want 50", cfg.Episode.Steps)
	}
	if cfg.Arena != def.Arena {
		t.Errorf("Arena = %+v, want %+v", cfg.Arena, def.Arena)
	}
	if cfg.Mapper != def.Mapper {
		t.Errorf("Mapper = %+v, want %+v", cfg.Mapper, def.Mapper)
	}
	if cfg.MQTTEnabled() {
		t.Error("expected MQTT to be disabled by default")
	}
}

func TestLoadConfig_Validation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"zero arena", "arena:\n  width: 0\n  height: 12\n", "arena.width"},
		{"missing positions", "inputs:\n  positions: \"\"\n", "inputs.positions"},
		{"zero steps", "episode:\n  steps: 0\n", "episode.steps"},
		{"too many attempts", "mapper:\n  maxAttempts: 500\n", "mapper.maxAttempts"},
		{"negative levels", "similarity:\n  levels: -2\n", "similarity.levels"},
		{"negative cell size", "output:\n  cellSize: -1\n", "output.cellSize"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.yaml))
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "arena: [not, a, map"))
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !strings.Contains(err.Error(), "parsing config YAML") {
		t.Errorf("unexpected error: %v", err)
	}
}

// ---------------------------------------------------------------------------
// SaveConfig
// ---------------------------------------------------------------------------

func TestSaveConfig_LoadBack(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Episode.Steps = 321
	cfg.Mapper.Seed = 7
	cfg.Inputs.Walls = ""

	path := filepath.Join(t.TempDir(), "saved.yaml")
	if err := SaveConfig(path, cfg); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if loaded.Episode.Steps != 321 || loaded.Mapper.Seed != 7 {
		t.Errorf("loaded = %+v", loaded)
	}
	// omitted walls falls back to the default list name
	if loaded.Inputs.Walls != "walls.txt" {
		t.Errorf("Inputs.Walls = %q, want default", loaded.Inputs.Walls)
	}
}

func TestConfig_ExperimentConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Similarity.Levels = 4
	walls := []Segment{NewWall(Point{X: 1, Y: 1}, Point{X: 1, Y: 5})}

	ec := cfg.ExperimentConfig(walls)
	if ec.Arena != cfg.Arena || ec.Steps != DefaultSteps || ec.Levels != 4 {
		t.Errorf("ExperimentConfig = %+v", ec)
	}
	if len(ec.Walls) != 1 {
		t.Errorf("len(Walls) = %d, want 1", len(ec.Walls))
	}
}
