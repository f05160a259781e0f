package mapping

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

const (
	// DefaultBins is the number of grid bins per axis
	DefaultBins = 24

	// DefaultJitter bounds the uniform offset applied on each axis when
	// proposing the next position.
	DefaultJitter = 0.2

	// MaxProposalAttempts caps rejection sampling; the last candidate is
	// accepted unconditionally once this many have been drawn.
	MaxProposalAttempts = 100
)

// MapperConfig holds the tunables of the occupancy mapper
type MapperConfig struct {
	Bins         int     `yaml:"bins" json:"bins"`
	PriorLogOdds float64 `yaml:"priorLogOdds" json:"priorLogOdds"`
	Jitter       float64 `yaml:"jitter" json:"jitter"`
	MaxAttempts  int     `yaml:"maxAttempts" json:"maxAttempts"`
	Seed         int64   `yaml:"seed" json:"seed"` // 0 = time-based
}

// DefaultMapperConfig returns the configuration used by the experiments
func DefaultMapperConfig() MapperConfig {
	return MapperConfig{
		Bins:         DefaultBins,
		PriorLogOdds: 0,
		Jitter:       DefaultJitter,
		MaxAttempts:  MaxProposalAttempts,
	}
}

// Validate checks the configuration for values the mapper cannot run with
func (c MapperConfig) Validate() error {
	if c.Bins < 1 {
		return fmt.Errorf("mapper.bins must be positive, got %d", c.Bins)
	}
	if c.Jitter <= 0 {
		return fmt.Errorf("mapper.jitter must be positive, got %g", c.Jitter)
	}
	if c.MaxAttempts < 1 || c.MaxAttempts > MaxProposalAttempts {
		return fmt.Errorf("mapper.maxAttempts must be in [1, %d], got %d", MaxProposalAttempts, c.MaxAttempts)
	}
	return nil
}

// NewRand returns a random source for seed, or a time-seeded one when seed is 0
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// Proposal is the outcome of one round of rejection sampling
type Proposal struct {
	Target   Point `json:"target"`
	Attempts int   `json:"attempts"`
	Forced   bool  `json:"forced"` // accepted because the attempt cap was hit
}

// Mapper is the exploring agent. It fuses each observation into its
// occupancy grid and proposes a nearby target by rejection sampling against
// the grid.
type Mapper struct {
	config MapperConfig
	grid   *OccupancyGrid
	rng    *rand.Rand

	proposals int
	attempts  int
	forced    int
}

// NewMapper creates a mapper for an arena of the given size. rng must not be
// shared with another goroutine.
func NewMapper(extent Dimensions, config MapperConfig, rng *rand.Rand) (*Mapper, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	grid, err := NewOccupancyGrid(config.Bins, extent, config.PriorLogOdds)
	if err != nil {
		return nil, err
	}
	if rng == nil {
		rng = NewRand(config.Seed)
	}
	return &Mapper{config: config, grid: grid, rng: rng}, nil
}

// Grid returns the mapper's occupancy grid
func (m *Mapper) Grid() *OccupancyGrid {
	return m.grid
}

// Update fuses obs into the grid and returns the next movement action
func (m *Mapper) Update(obs Observation) (Action, error) {
	if err := m.grid.Integrate(obs); err != nil {
		return Action{}, err
	}
	p := m.Propose(obs.Position())
	return Action{X: p.Target.X, Y: p.Target.Y}, nil
}

// Propose draws jittered candidates around pos until one is accepted with
// probability ProbabilityFree of its cell, or the attempt cap forces the
// last one through.
func (m *Mapper) Propose(pos Point) Proposal {
	var candidate Point
	p := Proposal{}

	for attempt := 1; attempt <= m.config.MaxAttempts; attempt++ {
		candidate = m.jitter(pos)
		p.Attempts = attempt

		col, row := m.grid.Cell(candidate)
		if m.rng.Float64() < ProbabilityFree(m.grid.LogOdds(col, row)) {
			p.Target = candidate
			m.record(p)
			return p
		}
	}

	p.Target = candidate
	p.Forced = true
	m.record(p)
	return p
}

func (m *Mapper) jitter(pos Point) Point {
	j := m.config.Jitter
	c := Point{
		X: pos.X + (m.rng.Float64()*2-1)*j,
		Y: pos.Y + (m.rng.Float64()*2-1)*j,
	}
	ext := m.grid.Extent()
	c.X = clampFloat(c.X, CollisionDistance, ext.Width-CollisionDistance)
	c.Y = clampFloat(c.Y, CollisionDistance, ext.Height-CollisionDistance)
	return c
}

func clampFloat(v, lo, hi float64) float64 {
	if lo > hi {
		return (lo + hi) / 2
	}
	return math.Max(lo, math.Min(hi, v))
}

func (m *Mapper) record(p Proposal) {
	m.proposals++
	m.attempts += p.Attempts
	if p.Forced {
		m.forced++
	}
}

// MapperStats summarizes the proposals made so far
type MapperStats struct {
	Proposals int `json:"proposals" csv:"proposals"`
	Attempts  int `json:"attempts" csv:"attempts"`
	Forced    int `json:"forced" csv:"forced"`
}

// Stats returns proposal counters
func (m *Mapper) Stats() MapperStats {
	return MapperStats{Proposals: m.proposals, Attempts: m.attempts, Forced: m.forced}
}
