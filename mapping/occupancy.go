package mapping

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrDiagonalRay is returned when a ray changes bin on both axes. Sensing
// rays are axis-aligned, so this points at a caller bug.
var ErrDiagonalRay = errors.New("diagonal ray traversal is not supported")

// Outcome is the binary result of a range reading for one cell
type Outcome int

const (
	Free Outcome = iota
	Occupied
)

func (o Outcome) String() string {
	if o == Occupied {
		return "occupied"
	}
	return "free"
}

var (
	logOddsOccupied = math.Log(0.8 / 0.2)
	logOddsFree     = -logOddsOccupied // log(0.2/0.8)
)

// InverseSensor returns the log-odds increment for a sensing outcome
func InverseSensor(o Outcome) float64 {
	if o == Occupied {
		return logOddsOccupied
	}
	return logOddsFree
}

// ProbabilityFree converts log-odds into the acceptance probability used by
// the movement policy: 1 - 1/(1+e^l).
func ProbabilityFree(l float64) float64 {
	return 1 - 1/(1+math.Exp(l))
}

// Occupancy converts log-odds into the probability that a cell is occupied
func Occupancy(l float64) float64 {
	return 1 / (1 + math.Exp(-l))
}

// OccupancyGrid is a log-odds belief over a bins x bins grid laid over the
// arena. Cells are addressed (col, row) with col the x bin and row the y bin.
type OccupancyGrid struct {
	bins     int
	extent   Dimensions
	prior    float64
	logOdds  *mat.Dense // rows = y bins, cols = x bins
	occupied []int      // occupied readings per cell, row-major
	free     []int      // free readings per cell, row-major
}

// NewOccupancyGrid creates a grid with every cell at the prior log-odds
func NewOccupancyGrid(bins int, extent Dimensions, prior float64) (*OccupancyGrid, error) {
	if bins < 1 {
		return nil, fmt.Errorf("bins must be positive, got %d", bins)
	}
	if extent.Width <= 0 || extent.Height <= 0 {
		return nil, fmt.Errorf("invalid grid extent %gx%g", extent.Width, extent.Height)
	}

	g := &OccupancyGrid{
		bins:     bins,
		extent:   extent,
		prior:    prior,
		logOdds:  mat.NewDense(bins, bins, nil),
		occupied: make([]int, bins*bins),
		free:     make([]int, bins*bins),
	}
	if prior != 0 {
		g.logOdds.Apply(func(_, _ int, _ float64) float64 { return prior }, g.logOdds)
	}
	return g, nil
}

// Bins returns the number of bins per axis
func (g *OccupancyGrid) Bins() int {
	return g.bins
}

// Extent returns the arena size the grid covers
func (g *OccupancyGrid) Extent() Dimensions {
	return g.extent
}

// Prior returns the starting log-odds of every cell
func (g *OccupancyGrid) Prior() float64 {
	return g.prior
}

// Cell returns the (col, row) bin containing p, clamped to the grid
func (g *OccupancyGrid) Cell(p Point) (col, row int) {
	col = Discretize(p.X, 0, g.extent.Width, g.bins)
	row = Discretize(p.Y, 0, g.extent.Height, g.bins)
	return col, row
}

// LogOdds returns the current log-odds of a cell
func (g *OccupancyGrid) LogOdds(col, row int) float64 {
	return g.logOdds.At(row, col)
}

// Observed reports whether any reading has touched the cell
func (g *OccupancyGrid) Observed(col, row int) bool {
	i := row*g.bins + col
	return g.occupied[i]+g.free[i] > 0
}

// ObservedCount returns how many cells have been observed
func (g *OccupancyGrid) ObservedCount() int {
	n := 0
	for i := range g.occupied {
		if g.occupied[i]+g.free[i] > 0 {
			n++
		}
	}
	return n
}

// Fuse adds one piece of evidence to a cell and marks it observed
func (g *OccupancyGrid) Fuse(col, row int, o Outcome) {
	l := g.logOdds.At(row, col) + InverseSensor(o) - g.prior
	g.logOdds.Set(row, col, l)
	if o == Occupied {
		g.occupied[row*g.bins+col]++
	} else {
		g.free[row*g.bins+col]++
	}
}

// Evidence returns how many occupied and free readings a cell has received
func (g *OccupancyGrid) Evidence(col, row int) (occupied, free int) {
	i := row*g.bins + col
	return g.occupied[i], g.free[i]
}

// SettledLogOdds recomputes a cell's log-odds from its evidence counts. The
// running sum in LogOdds picks up rounding that depends on the order the
// readings arrived in; this value depends only on the counts, so cells with
// the same evidence compare equal.
func (g *OccupancyGrid) SettledLogOdds(col, row int) float64 {
	occ, free := g.Evidence(col, row)
	return g.prior + float64(occ-free)*logOddsOccupied - float64(occ+free)*g.prior
}

// IntegrateRay updates every cell between from and to as free and the cell
// holding to as occupied. The cell holding from is only updated when it is
// also the endpoint cell.
func (g *OccupancyGrid) IntegrateRay(from, to Point) error {
	fc, fr := g.Cell(from)
	tc, tr := g.Cell(to)

	switch {
	case fc == tc:
		for _, r := range CrossedBins(fr, tr) {
			g.Fuse(tc, r, Free)
		}
	case fr == tr:
		for _, c := range CrossedBins(fc, tc) {
			g.Fuse(c, tr, Free)
		}
	default:
		return fmt.Errorf("ray (%g, %g)-(%g, %g): %w", from.X, from.Y, to.X, to.Y, ErrDiagonalRay)
	}

	g.Fuse(tc, tr, Occupied)
	return nil
}

// Integrate fuses the four directional readings of an observation
func (g *OccupancyGrid) Integrate(obs Observation) error {
	pos := obs.Position()
	for _, d := range Directions {
		end := pos.Add(d.Unit().Scale(obs.Distance(d)))
		if err := g.IntegrateRay(pos, end); err != nil {
			return fmt.Errorf("integrating %s reading: %w", d, err)
		}
	}
	return nil
}
