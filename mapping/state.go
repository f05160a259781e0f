package mapping

import (
	"log"
	"sort"
	"sync"
	"time"
)

// LivePosition is the latest robot position of a running episode
type LivePosition struct {
	Episode   int       `json:"episode"`
	Step      int       `json:"step"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Timestamp time.Time `json:"timestamp"`
}

// StateTracker holds live positions and finished results for the HTTP
// endpoints. It implements StepObserver.
type StateTracker struct {
	mu        sync.RWMutex
	positions map[int]*LivePosition
	episodes  map[int]EpisodeResult
	result    *ExperimentResult
	walls     []Segment
	arena     Dimensions
	running   bool
}

// NewStateTracker creates an empty tracker
func NewStateTracker() *StateTracker {
	return &StateTracker{
		positions: make(map[int]*LivePosition),
		episodes:  make(map[int]EpisodeResult),
	}
}

// NewStateTrackerWithCache creates a tracker preloaded from a results.json
// written by SaveResults. A missing or unreadable file leaves it empty.
func NewStateTrackerWithCache(resultsPath string) *StateTracker {
	st := NewStateTracker()
	if resultsPath == "" {
		return st
	}
	res, err := LoadResults(resultsPath)
	if err != nil {
		log.Printf("No cached results loaded from %s: %v", resultsPath, err)
		return st
	}
	st.SetResult(res)
	return st
}

// Begin marks a new experiment over the given arena as running. Results of
// the previous experiment stay readable until SetResult replaces them.
func (st *StateTracker) Begin(arena Dimensions, walls []Segment) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.positions = make(map[int]*LivePosition)
	st.arena = arena
	st.walls = append([]Segment(nil), walls...)
	st.running = true
}

// OnStep records the latest position of an episode
func (st *StateTracker) OnStep(ev StepEvent) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.positions[ev.Episode] = &LivePosition{
		Episode:   ev.Episode,
		Step:      ev.Step,
		X:         ev.Observation.X,
		Y:         ev.Observation.Y,
		Timestamp: time.Now(),
	}
}

// AddEpisode stores a finished episode
func (st *StateTracker) AddEpisode(res EpisodeResult) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.episodes[res.ID] = res
}

// SetResult stores the finished experiment and every episode in it
func (st *StateTracker) SetResult(res *ExperimentResult) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.result = res
	st.arena = res.Arena
	st.walls = res.Walls
	st.episodes = make(map[int]EpisodeResult, len(res.Episodes))
	for _, ep := range res.Episodes {
		st.episodes[ep.ID] = ep
	}
	st.running = false
}

// Running reports whether an experiment is in progress
func (st *StateTracker) Running() bool {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.running
}

// GetPositions returns copies of the live positions
func (st *StateTracker) GetPositions() map[int]*LivePosition {
	st.mu.RLock()
	defer st.mu.RUnlock()

	result := make(map[int]*LivePosition, len(st.positions))
	for k, v := range st.positions {
		c := *v
		result[k] = &c
	}
	return result
}

// GetEpisode returns a finished episode by id
func (st *StateTracker) GetEpisode(id int) (EpisodeResult, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	ep, ok := st.episodes[id]
	return ep, ok
}

// GetEpisodes returns every finished episode ordered by id
func (st *StateTracker) GetEpisodes() []EpisodeResult {
	st.mu.RLock()
	defer st.mu.RUnlock()

	out := make([]EpisodeResult, 0, len(st.episodes))
	for _, ep := range st.episodes {
		out = append(out, ep)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// GetResult returns the finished experiment, or nil while none is available
func (st *StateTracker) GetResult() *ExperimentResult {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.result
}

// GetArena returns the arena size and walls of the current experiment
func (st *StateTracker) GetArena() (Dimensions, []Segment) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.arena, append([]Segment(nil), st.walls...)
}
