package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
)

// Version is set at build time via -ldflags
var Version = "dev"

// AppOptions holds the parsed command line
type AppOptions struct {
	ConfigFile   string
	InitConfig   bool
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

// Application is what run dispatches to; App is the real implementation
type Application interface {
	ApplyOptions(opts AppOptions)
	RunInitConfig() error
	RunExperiment() error
	RunService() error
}

func main() {
	if err := run(os.Args[1:], os.Stdout, NewApp()); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		log.Fatal(err)
	}
}

// run parses args, prints the version banner and dispatches to app
func run(args []string, out io.Writer, app Application) error {
	fs := flag.NewFlagSet("gridmesh", flag.ContinueOnError)
	fs.SetOutput(out)

	var opts AppOptions
	fs.StringVar(&opts.ConfigFile, "config", "config.yaml", "Path to configuration file")
	fs.BoolVar(&opts.InitConfig, "init-config", false, "Write a default configuration to --config and exit")
	fs.StringVar(&opts.WallsFile, "walls", "", "Wall list (path or URL), overrides inputs.walls")
	fs.StringVar(&opts.PositionsSrc, "positions", "", "Start position list (path or URL), overrides inputs.positions")
	fs.StringVar(&opts.OutputDir, "output", "", "Results directory, overrides output.dir")
	fs.IntVar(&opts.Steps, "steps", 0, "Steps per episode, overrides episode.steps")
	fs.Int64Var(&opts.Seed, "seed", 0, "Random seed, overrides mapper.seed (0 keeps the config value)")
	fs.IntVar(&opts.Levels, "levels", -1, "Quantization levels for similarity, overrides similarity.levels")
	fs.StringVar(&opts.RenderFormat, "format", "svg", "World render format: svg, png, both or none")
	fs.BoolVar(&opts.HttpMode, "http", false, "Serve results and live positions over HTTP")
	fs.IntVar(&opts.HttpPort, "http-port", 8080, "HTTP server port (default 8080)")
	fs.BoolVar(&opts.MqttMode, "mqtt", false, "Publish robot positions and scores to MQTT")

	if err := fs.Parse(args); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(out, "gridmesh version: %s\n", Version)

	switch opts.RenderFormat {
	case "svg", "png", "both", "none":
	default:
		return fmt.Errorf("invalid --format %q: want svg, png, both or none", opts.RenderFormat)
	}

	app.ApplyOptions(opts)

	switch {
	case opts.InitConfig:
		return app.RunInitConfig()
	case opts.HttpMode || opts.MqttMode:
		return app.RunService()
	default:
		return app.RunExperiment()
	}
}
