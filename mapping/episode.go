package mapping

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/stat"
)

// DefaultSteps is the step budget of one episode
const DefaultSteps = 1000

// StepEvent describes one completed step of an episode
type StepEvent struct {
	Episode     int         `json:"episode"`
	Step        int         `json:"step"`
	Action      Action      `json:"action"`
	Observation Observation `json:"observation"`
}

// StepObserver is notified after every step. Implementations must not block
// for long: the episode waits for them.
type StepObserver interface {
	OnStep(ev StepEvent)
}

// StepObserverFunc adapts a function to StepObserver
type StepObserverFunc func(ev StepEvent)

// OnStep calls f(ev)
func (f StepObserverFunc) OnStep(ev StepEvent) {
	f(ev)
}

// MultiObserver fans one event out to several observers in order
type MultiObserver []StepObserver

// OnStep forwards ev to every non-nil observer
func (m MultiObserver) OnStep(ev StepEvent) {
	for _, o := range m {
		if o != nil {
			o.OnStep(ev)
		}
	}
}

// Episode drives an agent and an environment in strict alternation for a
// fixed number of steps.
type Episode struct {
	ID    int
	Agent Agent
	Env   Environment
	Steps int
}

// EpisodeStats is what Run reports about the trajectory
type EpisodeStats struct {
	Steps int     `json:"steps"`
	Path  []Point `json:"path"` // start position followed by one point per step
}

// Run executes the episode. The first error from the agent or the
// environment ends it; the stats gathered so far are returned with it.
func (e *Episode) Run(ctx context.Context, observer StepObserver) (EpisodeStats, error) {
	var stats EpisodeStats

	obs, err := e.Env.InitialState()
	if err != nil {
		return stats, fmt.Errorf("initial state: %w", err)
	}
	stats.Path = append(stats.Path, obs.Position())

	for step := 1; step <= e.Steps; step++ {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		action, err := e.Agent.Update(obs)
		if err != nil {
			return stats, fmt.Errorf("step %d: agent: %w", step, err)
		}
		obs, err = e.Env.Update(action)
		if err != nil {
			return stats, fmt.Errorf("step %d: environment: %w", step, err)
		}

		stats.Steps = step
		stats.Path = append(stats.Path, obs.Position())
		if observer != nil {
			observer.OnStep(StepEvent{Episode: e.ID, Step: step, Action: action, Observation: obs})
		}
	}
	return stats, nil
}

// ExperimentConfig describes one batch of episodes over the same arena
type ExperimentConfig struct {
	Arena  Dimensions
	Walls  []Segment
	Steps  int
	Mapper MapperConfig
	Levels int // quantization levels before similarity scoring; 0 = settled values as cropped
}

// EpisodeResult is the outcome of one episode
type EpisodeResult struct {
	ID            int         `json:"id"`
	Start         Point       `json:"start"`
	Final         Point       `json:"final"`
	Steps         int         `json:"steps"`
	ObservedCells int         `json:"observedCells"`
	Rotation      int         `json:"rotation"` // quarter turns applied to Map
	Proposals     MapperStats `json:"proposals"`
	Path          []Point     `json:"path,omitempty"`
	Map           *GridMap    `json:"map,omitempty"`
	Error         string      `json:"error,omitempty"`
}

// Failed reports whether the episode aborted or produced no map
func (r *EpisodeResult) Failed() bool {
	return r.Map == nil
}

// SimilaritySummary aggregates the pairwise scores
type SimilaritySummary struct {
	Pairs  int     `json:"pairs"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stdDev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// ExperimentResult is everything produced by Experiment.Run
type ExperimentResult struct {
	Arena      Dimensions        `json:"arena"`
	Walls      []Segment         `json:"walls"`
	Episodes   []EpisodeResult   `json:"episodes"`
	Similarity []SimilarityPair  `json:"similarity"`
	Summary    SimilaritySummary `json:"summary"`
}

// Experiment runs one episode per start position in a fresh world and
// compares the resulting maps pairwise.
type Experiment struct {
	config   ExperimentConfig
	rng      *rand.Rand
	observer StepObserver
	onDone   func(EpisodeResult)
}

// NewExperiment creates an experiment. A nil rng uses a source seeded from
// config.Mapper.Seed.
func NewExperiment(config ExperimentConfig, rng *rand.Rand) *Experiment {
	if rng == nil {
		rng = NewRand(config.Mapper.Seed)
	}
	return &Experiment{config: config, rng: rng}
}

// SetObserver installs a per-step observer
func (x *Experiment) SetObserver(o StepObserver) {
	x.observer = o
}

// OnEpisodeDone installs a callback invoked after each episode, failed or not
func (x *Experiment) OnEpisodeDone(fn func(EpisodeResult)) {
	x.onDone = fn
}

// Run executes every episode. Episodes that abort are logged and recorded
// with their error; Run itself only fails on cancellation or bad input.
func (x *Experiment) Run(ctx context.Context, starts []Point) (*ExperimentResult, error) {
	if len(starts) == 0 {
		return nil, errors.New("no start positions")
	}
	if x.config.Steps < 1 {
		return nil, fmt.Errorf("steps must be positive, got %d", x.config.Steps)
	}

	result := &ExperimentResult{
		Arena:    x.config.Arena,
		Episodes: make([]EpisodeResult, 0, len(starts)),
	}
	maps := make([]*GridMap, 0, len(starts))

	for id, start := range starts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res, world := x.runEpisode(ctx, id, start)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if res.Failed() {
			log.Printf("Episode %d from (%.2f, %.2f) failed: %s", id, start.X, start.Y, res.Error)
		} else {
			log.Printf("Episode %d from (%.2f, %.2f): %d steps, %d cells observed, map %dx%d",
				id, start.X, start.Y, res.Steps, res.ObservedCells, rowsOf(res.Map), colsOf(res.Map))
		}
		if result.Walls == nil && world != nil {
			result.Walls = world.Walls()
		}

		result.Episodes = append(result.Episodes, res)
		maps = append(maps, res.Map)
		if x.onDone != nil {
			x.onDone(res)
		}
	}

	result.Similarity = SimilarityPairs(maps)
	result.Summary = Summarize(result.Similarity)
	return result, nil
}

func (x *Experiment) runEpisode(ctx context.Context, id int, start Point) (EpisodeResult, *World) {
	res := EpisodeResult{ID: id, Start: start, Final: start}

	world, err := NewWorld(x.config.Arena, x.config.Walls, start)
	if err != nil {
		res.Error = err.Error()
		return res, nil
	}
	mapper, err := NewMapper(x.config.Arena, x.config.Mapper, rand.New(rand.NewSource(x.rng.Int63())))
	if err != nil {
		res.Error = err.Error()
		return res, world
	}

	ep := &Episode{ID: id, Agent: mapper, Env: world, Steps: x.config.Steps}
	stats, err := ep.Run(ctx, x.observer)
	res.Steps = stats.Steps
	res.Path = stats.Path
	res.Final = world.Robot()
	res.Proposals = mapper.Stats()
	res.ObservedCells = mapper.Grid().ObservedCount()
	if err != nil {
		res.Error = err.Error()
		return res, world
	}

	cropped, err := Crop(mapper.Grid())
	if err != nil {
		res.Error = err.Error()
		return res, world
	}
	rotated, k := NormalizeOrientation(cropped, x.rng)
	res.Map = rotated.Quantize(x.config.Levels)
	res.Rotation = k
	return res, world
}

func rowsOf(m *GridMap) int {
	r, _ := m.Dims()
	return r
}

func colsOf(m *GridMap) int {
	_, c := m.Dims()
	return c
}

// Summarize computes mean, sample standard deviation and range of the scores
func Summarize(pairs []SimilarityPair) SimilaritySummary {
	s := SimilaritySummary{Pairs: len(pairs)}
	if len(pairs) == 0 {
		return s
	}

	scores := make([]float64, len(pairs))
	s.Min, s.Max = math.Inf(1), math.Inf(-1)
	for i, p := range pairs {
		scores[i] = p.Score
		s.Min = math.Min(s.Min, p.Score)
		s.Max = math.Max(s.Max, p.Score)
	}

	if len(scores) == 1 {
		s.Mean = scores[0]
		return s
	}
	s.Mean, s.StdDev = stat.MeanStdDev(scores, nil)
	return s
}
