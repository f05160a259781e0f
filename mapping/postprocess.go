package mapping

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// ErrEmptyMap is returned when cropping a grid in which no cell was observed
var ErrEmptyMap = errors.New("map has no observed cells")

// GridMap is a processed map: a rows x cols grid where every cell either
// holds a known value or is unknown. Unknown cells carry no value and are
// skipped by every computation.
type GridMap struct {
	values *mat.Dense
	known  []bool
	rows   int
	cols   int
}

// NewGridMap creates a map with every cell unknown
func NewGridMap(rows, cols int) *GridMap {
	if rows < 1 || cols < 1 {
		panic(fmt.Sprintf("invalid map size %dx%d", rows, cols))
	}
	return &GridMap{
		values: mat.NewDense(rows, cols, nil),
		known:  make([]bool, rows*cols),
		rows:   rows,
		cols:   cols,
	}
}

// Dims returns the number of rows and columns
func (m *GridMap) Dims() (rows, cols int) {
	return m.rows, m.cols
}

// At returns the value of a cell and whether it is known
func (m *GridMap) At(row, col int) (float64, bool) {
	if !m.known[row*m.cols+col] {
		return 0, false
	}
	return m.values.At(row, col), true
}

// Set stores a known value
func (m *GridMap) Set(row, col int, v float64) {
	m.values.Set(row, col, v)
	m.known[row*m.cols+col] = true
}

// Clear marks a cell unknown
func (m *GridMap) Clear(row, col int) {
	m.values.Set(row, col, 0)
	m.known[row*m.cols+col] = false
}

// KnownCount returns how many cells hold a value
func (m *GridMap) KnownCount() int {
	n := 0
	for _, k := range m.known {
		if k {
			n++
		}
	}
	return n
}

// Values returns the distinct known values in ascending order
func (m *GridMap) Values() []float64 {
	seen := make(map[float64]struct{})
	for r := 0; r < m.rows; r++ {
		for c := 0; c < m.cols; c++ {
			if v, ok := m.At(r, c); ok {
				seen[v] = struct{}{}
			}
		}
	}
	vals := make([]float64, 0, len(seen))
	for v := range seen {
		vals = append(vals, v)
	}
	sort.Float64s(vals)
	return vals
}

// Clone returns a deep copy
func (m *GridMap) Clone() *GridMap {
	out := &GridMap{
		values: mat.DenseCopyOf(m.values),
		known:  make([]bool, len(m.known)),
		rows:   m.rows,
		cols:   m.cols,
	}
	copy(out.known, m.known)
	return out
}

// Rotate90 returns the map turned counter-clockwise by k quarter turns.
// Negative k turns clockwise.
func (m *GridMap) Rotate90(k int) *GridMap {
	k = ((k % 4) + 4) % 4
	out := m.Clone()
	for i := 0; i < k; i++ {
		out = out.rotateOnce()
	}
	return out
}

func (m *GridMap) rotateOnce() *GridMap {
	out := NewGridMap(m.cols, m.rows)
	for r := 0; r < out.rows; r++ {
		for c := 0; c < out.cols; c++ {
			if v, ok := m.At(c, m.cols-1-r); ok {
				out.Set(r, c, v)
			}
		}
	}
	return out
}

// Quantize rounds every known value to the nearest multiple of 1/levels.
// levels <= 0 returns an unmodified copy.
func (m *GridMap) Quantize(levels int) *GridMap {
	out := m.Clone()
	if levels <= 0 {
		return out
	}
	l := float64(levels)
	for r := 0; r < m.rows; r++ {
		for c := 0; c < m.cols; c++ {
			if v, ok := m.At(r, c); ok {
				out.Set(r, c, math.Round(v*l)/l)
			}
		}
	}
	return out
}

// NormalizeOrientation rotates m by a uniformly random number of quarter
// turns and returns the rotated map with the number of turns applied.
// Maps of the same arena may still differ by one of the four rotations.
func NormalizeOrientation(m *GridMap, rng *rand.Rand) (*GridMap, int) {
	k := rng.Intn(4)
	return m.Rotate90(k), k
}

// Crop converts an occupancy grid into a GridMap of occupancy probabilities,
// leaving unobserved cells unknown, and slices it to the bounding box of the
// observed cells (both ends inclusive). Values come from SettledLogOdds, so
// each distinct value stands for one evidence count.
func Crop(grid *OccupancyGrid) (*GridMap, error) {
	n := grid.Bins()
	full := NewGridMap(n, n)
	for row := 0; row < n; row++ {
		for col := 0; col < n; col++ {
			if grid.Observed(col, row) {
				full.Set(row, col, Occupancy(grid.SettledLogOdds(col, row)))
			}
		}
	}
	return CropKnown(full)
}

// CropKnown slices m to the bounding box of its known cells
func CropKnown(m *GridMap) (*GridMap, error) {
	lowRow, ok := m.lowestRow()
	if !ok {
		return nil, ErrEmptyMap
	}
	highRow, _ := m.highestRow()
	lowCol, _ := m.lowestCol()
	highCol, _ := m.highestCol()

	out := NewGridMap(highRow-lowRow+1, highCol-lowCol+1)
	for r := lowRow; r <= highRow; r++ {
		for c := lowCol; c <= highCol; c++ {
			if v, ok := m.At(r, c); ok {
				out.Set(r-lowRow, c-lowCol, v)
			}
		}
	}
	return out, nil
}

func (m *GridMap) rowKnown(r int) bool {
	for c := 0; c < m.cols; c++ {
		if m.known[r*m.cols+c] {
			return true
		}
	}
	return false
}

func (m *GridMap) colKnown(c int) bool {
	for r := 0; r < m.rows; r++ {
		if m.known[r*m.cols+c] {
			return true
		}
	}
	return false
}

func (m *GridMap) lowestRow() (int, bool) {
	for r := 0; r < m.rows; r++ {
		if m.rowKnown(r) {
			return r, true
		}
	}
	return 0, false
}

func (m *GridMap) highestRow() (int, bool) {
	for r := m.rows - 1; r >= 0; r-- {
		if m.rowKnown(r) {
			return r, true
		}
	}
	return 0, false
}

func (m *GridMap) lowestCol() (int, bool) {
	for c := 0; c < m.cols; c++ {
		if m.colKnown(c) {
			return c, true
		}
	}
	return 0, false
}

func (m *GridMap) highestCol() (int, bool) {
	for c := m.cols - 1; c >= 0; c-- {
		if m.colKnown(c) {
			return c, true
		}
	}
	return 0, false
}

// gridMapJSON is the wire form: unknown cells are null
type gridMapJSON struct {
	Rows  int          `json:"rows"`
	Cols  int          `json:"cols"`
	Cells [][]*float64 `json:"cells"`
}

// MarshalJSON encodes the map with unknown cells as null
func (m *GridMap) MarshalJSON() ([]byte, error) {
	out := gridMapJSON{Rows: m.rows, Cols: m.cols, Cells: make([][]*float64, m.rows)}
	for r := 0; r < m.rows; r++ {
		out.Cells[r] = make([]*float64, m.cols)
		for c := 0; c < m.cols; c++ {
			if v, ok := m.At(r, c); ok {
				out.Cells[r][c] = &v
			}
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the form written by MarshalJSON
func (m *GridMap) UnmarshalJSON(data []byte) error {
	var in gridMapJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if in.Rows < 1 || in.Cols < 1 || len(in.Cells) != in.Rows {
		return fmt.Errorf("invalid map shape %dx%d with %d rows of cells", in.Rows, in.Cols, len(in.Cells))
	}
	decoded := NewGridMap(in.Rows, in.Cols)
	for r, row := range in.Cells {
		if len(row) != in.Cols {
			return fmt.Errorf("row %d has %d cells, want %d", r, len(row), in.Cols)
		}
		for c, v := range row {
			if v != nil {
				decoded.Set(r, c, *v)
			}
		}
	}
	*m = *decoded
	return nil
}
