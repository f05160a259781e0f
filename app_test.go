package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/kwv/gridmesh/mapping"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeExperimentFiles writes a wall list, a start list and a config
// pointing at them into dir, and returns the config path.
func writeExperimentFiles(t *testing.T, dir string, steps int) string {
	t.Helper()

	walls := filepath.Join(dir, "walls.txt")
	if err := os.WriteFile(walls, []byte("# interior wall\n3,3,3,7\n"), 0644); err != nil {
		t.Fatal(err)
	}
	positions := filepath.Join(dir, "starts.txt")
	if err := os.WriteFile(positions, []byte("5,5\n1,8\n7,2\n"), 0644); err != nil {
		t.Fatal(err)
	}

	config := mapping.DefaultConfig()
	config.Inputs.Walls = walls
	config.Inputs.Positions = positions
	config.Episode.Steps = steps
	config.Mapper.Seed = 11
	config.Output.Dir = filepath.Join(dir, "results")

	path := filepath.Join(dir, "config.yaml")
	if err := mapping.SaveConfig(path, config); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNewApp(t *testing.T) {
	app := NewApp()
	if app == nil {
		t.Fatal("NewApp returned nil")
		return
	}
	if app.StateTracker == nil {
		t.Error("StateTracker should be initialized")
	}
	if app.Levels != -1 {
		t.Errorf("Levels = %d, want -1 (unset)", app.Levels)
	}
}

func TestApplyOptions(t *testing.T) {
	app := NewApp()
	opts := AppOptions{
		ConfigFile:   "test-config.yaml",
		WallsFile:    "w.txt",
		PositionsSrc: "https://example.com/starts.txt",
		OutputDir:    "/tmp/out",
		Steps:        50,
		Seed:         7,
		Levels:       4,
		RenderFormat: "png",
		HttpPort:     9000,
		HttpMode:     true,
		MqttMode:     true,
	}

	app.ApplyOptions(opts)

	if app.ConfigFile != "test-config.yaml" {
		t.Errorf("ConfigFile = %s, want test-config.yaml", app.ConfigFile)
	}
	if app.WallsFile != "w.txt" || app.PositionsSrc != "https://example.com/starts.txt" {
		t.Errorf("inputs = %s, %s", app.WallsFile, app.PositionsSrc)
	}
	if app.OutputDir != "/tmp/out" {
		t.Errorf("OutputDir = %s, want /tmp/out", app.OutputDir)
	}
	if app.Steps != 50 || app.Seed != 7 || app.Levels != 4 {
		t.Errorf("Steps/Seed/Levels = %d/%d/%d", app.Steps, app.Seed, app.Levels)
	}
	if app.RenderFormat != "png" {
		t.Errorf("RenderFormat = %s, want png", app.RenderFormat)
	}
	if app.HttpPort != 9000 || !app.HttpMode || !app.MqttMode {
		t.Errorf("service options not applied: %+v", app)
	}
}

func TestRunInitConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	app := NewApp()
	app.ConfigFile = path

	require.NoError(t, app.RunInitConfig())

	config, err := mapping.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, mapping.DefaultConfig().Arena, config.Arena)
	assert.Equal(t, mapping.DefaultSteps, config.Episode.Steps)

	err = app.RunInitConfig()
	require.Error(t, err, "second init must not overwrite")
	assert.Contains(t, err.Error(), "already exists")
}

func TestLoadConfig_Overrides(t *testing.T) {
	dir := t.TempDir()
	app := NewApp()
	app.ConfigFile = writeExperimentFiles(t, dir, 30)
	app.Steps = 12
	app.Seed = 99
	app.Levels = 0
	app.OutputDir = filepath.Join(dir, "elsewhere")
	app.PositionsSrc = "other.txt"

	config, err := app.loadConfig()
	require.NoError(t, err)
	assert.Equal(t, 12, config.Episode.Steps)
	assert.Equal(t, int64(99), config.Mapper.Seed)
	assert.Equal(t, 0, config.Similarity.Levels)
	assert.Equal(t, filepath.Join(dir, "elsewhere"), config.Output.Dir)
	assert.Equal(t, "other.txt", config.Inputs.Positions)
	assert.Same(t, config, app.Config)
}

func TestLoadConfig_UnsetOverridesKeepFile(t *testing.T) {
	dir := t.TempDir()
	app := NewApp()
	app.ConfigFile = writeExperimentFiles(t, dir, 30)

	config, err := app.loadConfig()
	require.NoError(t, err)
	assert.Equal(t, 30, config.Episode.Steps)
	assert.Equal(t, int64(11), config.Mapper.Seed)
	assert.Equal(t, filepath.Join(dir, "results"), config.Output.Dir)
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	app := NewApp()
	app.ConfigFile = filepath.Join(t.TempDir(), "absent.yaml")

	config, err := app.loadConfig()
	require.NoError(t, err)
	assert.Equal(t, mapping.DefaultConfig().Mapper, config.Mapper)
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("arena:\n  width: -1\n  height: 12\n"), 0644))

	app := NewApp()
	app.ConfigFile = path

	_, err := app.loadConfig()
	require.Error(t, err, "an existing but invalid file must not fall back to defaults")
	assert.Nil(t, app.Config)
}

func TestRunExperiment_WritesOutputs(t *testing.T) {
	dir := t.TempDir()
	app := NewApp()
	app.ConfigFile = writeExperimentFiles(t, dir, 25)

	require.NoError(t, app.RunExperiment())

	out := filepath.Join(dir, "results")
	for _, name := range []string{
		mapping.ResultsFile,
		mapping.SimilarityFile,
		mapping.EpisodesFile,
		"episode-0-map.png",
		"episode-0-world.svg",
		"episode-2-world.svg",
	} {
		assert.FileExists(t, filepath.Join(out, name))
	}
	assert.NoFileExists(t, filepath.Join(out, "episode-0-world.png"), "svg is the default format")

	result := app.StateTracker.GetResult()
	require.NotNil(t, result)
	assert.Len(t, result.Episodes, 3)
	assert.Len(t, result.Similarity, 3)
	assert.False(t, app.StateTracker.Running())
}

func TestRunExperiment_FormatNone(t *testing.T) {
	dir := t.TempDir()
	app := NewApp()
	app.ConfigFile = writeExperimentFiles(t, dir, 5)
	app.RenderFormat = "none"

	require.NoError(t, app.RunExperiment())

	out := filepath.Join(dir, "results")
	assert.FileExists(t, filepath.Join(out, "episode-0-map.png"))
	assert.NoFileExists(t, filepath.Join(out, "episode-0-world.svg"))
}

func TestRunExperiment_MissingPositions(t *testing.T) {
	dir := t.TempDir()
	app := NewApp()
	app.ConfigFile = writeExperimentFiles(t, dir, 5)
	app.PositionsSrc = filepath.Join(dir, "nope.txt")

	err := app.RunExperiment()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading start positions")
}

func TestRunExperiment_EmptyPositions(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.txt")
	require.NoError(t, os.WriteFile(empty, []byte("# nothing here\n"), 0644))

	app := NewApp()
	app.ConfigFile = writeExperimentFiles(t, dir, 5)
	app.PositionsSrc = empty

	err := app.RunExperiment()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no start positions")
}

func TestRunExperiment_PublishesToMQTT(t *testing.T) {
	t.Setenv("MQTT_PUBLISH_PREFIX", "")

	dir := t.TempDir()
	app := NewApp()
	app.ConfigFile = writeExperimentFiles(t, dir, 8)

	client := mapping.NewMockClient()
	client.SetConnected(true)
	app.Publisher = mapping.NewPublisher(client, "lab")

	_, err := app.loadConfig()
	require.NoError(t, err)
	result, err := app.runExperiment(context.Background())
	require.NoError(t, err)

	for _, ep := range result.Episodes {
		assert.Len(t, client.MessagesOn(app.Publisher.PositionTopic(ep.ID)), 8)
	}
	assert.Len(t, client.MessagesOn("lab/similarity"), 1)

	// the state tracker saw the same steps
	positions := app.StateTracker.GetPositions()
	require.Len(t, positions, 3)
	assert.Equal(t, 8, positions[1].Step)
}

func TestRunExperiment_CancelledContext(t *testing.T) {
	app := NewApp()
	app.ConfigFile = writeExperimentFiles(t, t.TempDir(), 5)
	_, err := app.loadConfig()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = app.runExperiment(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	if fileExists(filepath.Join(dir, "missing")) {
		t.Error("missing file reported as existing")
	}
	path := filepath.Join(dir, "present")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if !fileExists(path) {
		t.Error("existing file reported as missing")
	}
}
