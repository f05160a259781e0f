package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/kwv/gridmesh/mapping"
)

// App encapsulates the application state and dependencies
type App struct {
	Config       *mapping.Config
	StateTracker *mapping.StateTracker
	MQTTClient   *mapping.MQTTClient
	Publisher    *mapping.Publisher

	// CLI Flags (effectively dependencies)
	ConfigFile   string
	WallsFile    string
	PositionsSrc string
	OutputDir    string
	Steps        int
	Seed         int64
	Levels       int
	RenderFormat string
	HttpPort     int
	HttpMode     bool
	MqttMode     bool
}

// NewApp creates a new App instance
func NewApp() *App {
	return &App{
		StateTracker: mapping.NewStateTracker(),
		ConfigFile:   "config.yaml",
		Levels:       -1,
		RenderFormat: "svg",
		HttpPort:     8080,
	}
}

// ApplyOptions applies CLI options to the App instance
func (a *App) ApplyOptions(opts AppOptions) {
	a.ConfigFile = opts.ConfigFile
	a.WallsFile = opts.WallsFile
	a.PositionsSrc = opts.PositionsSrc
	a.OutputDir = opts.OutputDir
	a.Steps = opts.Steps
	a.Seed = opts.Seed
	a.Levels = opts.Levels
	a.RenderFormat = opts.RenderFormat
	a.HttpPort = opts.HttpPort
	a.HttpMode = opts.HttpMode
	a.MqttMode = opts.MqttMode
}

// RunInitConfig writes the default configuration to the config path
func (a *App) RunInitConfig() error {
	if _, err := os.Stat(a.ConfigFile); err == nil {
		return fmt.Errorf("config file already exists: %s", a.ConfigFile)
	}
	if err := mapping.SaveConfig(a.ConfigFile, mapping.DefaultConfig()); err != nil {
		return err
	}
	fmt.Printf("Wrote default configuration to %s\n", a.ConfigFile)
	return nil
}

// loadConfig reads the config file and applies CLI overrides. A missing
// file falls back to the defaults.
func (a *App) loadConfig() (*mapping.Config, error) {
	config, err := mapping.LoadConfig(a.ConfigFile)
	if err != nil {
		if _, statErr := os.Stat(a.ConfigFile); !errors.Is(statErr, os.ErrNotExist) {
			return nil, err
		}
		log.Printf("No config at %s, using defaults", a.ConfigFile)
		config = mapping.DefaultConfig()
	} else {
		log.Printf("Loaded config from %s", a.ConfigFile)
	}

	if a.WallsFile != "" {
		config.Inputs.Walls = a.WallsFile
	}
	if a.PositionsSrc != "" {
		config.Inputs.Positions = a.PositionsSrc
	}
	if a.OutputDir != "" {
		config.Output.Dir = a.OutputDir
	}
	if a.Steps > 0 {
		config.Episode.Steps = a.Steps
	}
	if a.Seed != 0 {
		config.Mapper.Seed = a.Seed
	}
	if a.Levels >= 0 {
		config.Similarity.Levels = a.Levels
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	a.Config = config
	return config, nil
}

// loadInputs reads the wall list (optional) and the start positions
func (a *App) loadInputs(ctx context.Context) ([]mapping.Segment, []mapping.Point, error) {
	var walls []mapping.Segment
	if src := a.Config.Inputs.Walls; src != "" {
		w, err := mapping.LoadWallsFrom(ctx, src)
		if err != nil {
			return nil, nil, fmt.Errorf("loading walls: %w", err)
		}
		walls = w
		log.Printf("Loaded %d wall(s) from %s", len(walls), src)
	}

	starts, err := mapping.LoadStartPositionsFrom(ctx, a.Config.Inputs.Positions)
	if err != nil {
		return nil, nil, fmt.Errorf("loading start positions: %w", err)
	}
	if len(starts) == 0 {
		return nil, nil, fmt.Errorf("no start positions in %s", a.Config.Inputs.Positions)
	}
	log.Printf("Loaded %d start position(s) from %s", len(starts), a.Config.Inputs.Positions)

	return walls, starts, nil
}

// runExperiment runs every episode, feeding the state tracker and the
// publisher, and writes the results to the output directory.
func (a *App) runExperiment(ctx context.Context) (*mapping.ExperimentResult, error) {
	walls, starts, err := a.loadInputs(ctx)
	if err != nil {
		return nil, err
	}

	config := a.Config
	exp := mapping.NewExperiment(config.ExperimentConfig(walls), nil)

	observers := mapping.MultiObserver{a.StateTracker}
	if a.Publisher != nil {
		observers = append(observers, a.Publisher)
	}
	exp.SetObserver(observers)
	exp.OnEpisodeDone(a.StateTracker.AddEpisode)

	a.StateTracker.Begin(config.Arena, append(mapping.BoundaryWalls(config.Arena), walls...))

	start := time.Now()
	result, err := exp.Run(ctx, starts)
	if err != nil {
		return nil, err
	}
	a.StateTracker.SetResult(result)
	log.Printf("Experiment finished in %v: %d episode(s), %d pair(s) compared",
		time.Since(start).Round(time.Millisecond), len(result.Episodes), len(result.Similarity))

	if err := a.saveOutputs(result); err != nil {
		return result, err
	}

	if a.Publisher != nil {
		if err := a.Publisher.PublishSimilarity(result); err != nil {
			log.Printf("Error publishing similarity: %v", err)
		}
	}
	return result, nil
}

// saveOutputs writes the data files and one image set per episode
func (a *App) saveOutputs(result *mapping.ExperimentResult) error {
	dir := a.Config.Output.Dir
	if err := mapping.SaveResults(dir, result); err != nil {
		return err
	}

	for _, ep := range result.Episodes {
		if ep.Map != nil {
			title := fmt.Sprintf("episode %d  rot %d", ep.ID, ep.Rotation)
			renderer := mapping.NewGridRenderer(ep.Map, a.Config.Output.CellSize, title)
			path := filepath.Join(dir, fmt.Sprintf("episode-%d-map.png", ep.ID))
			if err := renderer.SavePNG(path); err != nil {
				return fmt.Errorf("saving map image: %w", err)
			}
		}
		if err := a.saveWorldRender(dir, result, ep); err != nil {
			return err
		}
	}

	log.Printf("Results written to %s", dir)
	return nil
}

func (a *App) saveWorldRender(dir string, result *mapping.ExperimentResult, ep mapping.EpisodeResult) error {
	if a.RenderFormat == "none" {
		return nil
	}

	renderer := a.worldRenderer(result.Arena, result.Walls, ep)

	write := func(ext string, render func(f *os.File) error) error {
		path := filepath.Join(dir, fmt.Sprintf("episode-%d-world.%s", ep.ID, ext))
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
		if err := render(f); err != nil {
			_ = f.Close()
			return fmt.Errorf("rendering %s: %w", path, err)
		}
		return f.Close()
	}

	if a.RenderFormat == "svg" || a.RenderFormat == "both" {
		if err := write("svg", func(f *os.File) error { return renderer.RenderToSVG(f) }); err != nil {
			return err
		}
	}
	if a.RenderFormat == "png" || a.RenderFormat == "both" {
		if err := write("png", func(f *os.File) error { return renderer.RenderToPNG(f) }); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) worldRenderer(arena mapping.Dimensions, walls []mapping.Segment, ep mapping.EpisodeResult) *mapping.WorldRenderer {
	r := mapping.NewWorldRenderer(arena, walls, ep.Path)
	r.PathColor = mapping.EpisodeColor(ep.ID)
	if a.Config != nil {
		r.Bins = a.Config.Mapper.Bins
	}
	return r
}

// RunExperiment runs the batch experiment and prints a summary
func (a *App) RunExperiment() error {
	if _, err := a.loadConfig(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := a.runExperiment(ctx)
	if err != nil {
		return err
	}
	printSummary(result)
	return nil
}

func printSummary(result *mapping.ExperimentResult) {
	fmt.Println("\nEpisodes")
	fmt.Println("========")
	for _, ep := range result.Episodes {
		if ep.Failed() {
			fmt.Printf("  %d: start (%.2f, %.2f) FAILED: %s\n", ep.ID, ep.Start.X, ep.Start.Y, ep.Error)
			continue
		}
		rows, cols := ep.Map.Dims()
		fmt.Printf("  %d: start (%.2f, %.2f) -> (%.2f, %.2f), %d cells observed, map %dx%d, rotation %d, forced %d/%d\n",
			ep.ID, ep.Start.X, ep.Start.Y, ep.Final.X, ep.Final.Y, ep.ObservedCells, rows, cols,
			ep.Rotation, ep.Proposals.Forced, ep.Proposals.Proposals)
	}

	fmt.Println("\nSimilarity (lower is more similar)")
	fmt.Println("==================================")
	for _, p := range result.Similarity {
		fmt.Printf("  %d vs %d: %.3f\n", p.I, p.J, p.Score)
	}
	s := result.Summary
	fmt.Printf("  pairs=%d mean=%.3f stddev=%.3f min=%.3f max=%.3f\n", s.Pairs, s.Mean, s.StdDev, s.Min, s.Max)
}

// RunService runs the experiment while serving HTTP and/or publishing to
// MQTT, then keeps serving until interrupted.
func (a *App) RunService() error {
	fmt.Println("Starting gridmesh service...")

	config, err := a.loadConfig()
	if err != nil {
		return err
	}

	if cached := filepath.Join(config.Output.Dir, mapping.ResultsFile); fileExists(cached) {
		a.StateTracker = mapping.NewStateTrackerWithCache(cached)
		log.Printf("Loaded cached results from %s", cached)
	}

	if a.MqttMode {
		mqttClient := mapping.InitMQTT(config)
		if mqttClient == nil {
			return fmt.Errorf("MQTT broker not configured (set mqtt.broker or MQTT_BROKER)")
		}
		a.MQTTClient = mqttClient
		if !mqttClient.WaitForConnection(15 * time.Second) {
			log.Println("MQTT not connected yet, publishing will resume once it is")
		}
		a.Publisher = mapping.NewPublisher(mqttClient.GetClient(), config.MQTT.PublishPrefix)
		fmt.Println("MQTT position publisher initialized")
	}

	var server *http.Server
	if a.HttpMode {
		server = &http.Server{
			Addr:              fmt.Sprintf("0.0.0.0:%d", a.HttpPort),
			Handler:           newHTTPServer(a.StateTracker, config),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			log.Printf("[HTTP] Starting server on %s", server.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatalf("[HTTP] Server error: %v", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	printServiceInfo(a, config)

	result, err := a.runExperiment(ctx)
	switch {
	case errors.Is(err, context.Canceled):
		log.Println("Experiment interrupted")
	case err != nil:
		log.Printf("Experiment failed: %v", err)
	default:
		printSummary(result)
	}

	if a.HttpMode && ctx.Err() == nil {
		fmt.Println("\nPress Ctrl+C to stop")
		<-ctx.Done()
	}

	fmt.Println("\nShutting down service...")
	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("[HTTP] Shutdown error: %v", err)
		}
	}
	if a.MQTTClient != nil {
		a.MQTTClient.Disconnect()
	}
	fmt.Println("Service stopped")
	return nil
}

func printServiceInfo(a *App, config *mapping.Config) {
	fmt.Println("\nService Running")
	fmt.Println("===============")

	if a.Publisher != nil {
		fmt.Println("\nMQTT:")
		fmt.Printf("  Positions: %s\n", a.Publisher.PositionTopic(0)+" (one topic per episode)")
		fmt.Printf("  Similarity: %s\n", a.Publisher.SimilarityTopic())
	}

	if a.HttpMode {
		fmt.Printf("\nHTTP endpoints (port %d):\n", a.HttpPort)
		fmt.Println("  GET /health                      - Health check")
		fmt.Println("  GET /episodes                    - Finished episodes")
		fmt.Println("  GET /episodes/{id}               - One episode with its map")
		fmt.Println("  GET /episodes/{id}/map.png       - Cropped occupancy map")
		fmt.Println("  GET /episodes/{id}/world.svg     - Arena and robot path")
		fmt.Println("  GET /episodes/{id}/world.png     - Arena and robot path (raster)")
		fmt.Println("  GET /episodes/{id}/path.geojson  - Arena and robot path as GeoJSON")
		fmt.Println("  GET /similarity                  - Pairwise similarity scores")
		fmt.Println("  GET /live.png                    - Live robot positions")
	}
	fmt.Printf("\nArena %gx%g, %d steps per episode, %dx%d bins\n",
		config.Arena.Width, config.Arena.Height, config.Episode.Steps, config.Mapper.Bins, config.Mapper.Bins)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
