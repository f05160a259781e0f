package mapping

import "sort"

// ManhattanDistance returns |r1-r2| + |c1-c2|
func ManhattanDistance(r1, c1, r2, c2 int) int {
	return absInt(r1-r2) + absInt(c1-c2)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

type cell struct {
	row, col int
}

func (m *GridMap) cellsWith(value float64) []cell {
	var cells []cell
	for r := 0; r < m.rows; r++ {
		for c := 0; c < m.cols; c++ {
			if v, ok := m.At(r, c); ok && v == value {
				cells = append(cells, cell{r, c})
			}
		}
	}
	return cells
}

// valueDistance averages, over the cells of a holding value, the Manhattan
// distance to the nearest cell of b holding the same value. A cell with no
// match in b contributes 0, and the result is 0 when a has no such cell.
func valueDistance(a, b *GridMap, value float64) float64 {
	from := a.cellsWith(value)
	if len(from) == 0 {
		return 0
	}
	to := b.cellsWith(value)

	sum := 0
	for _, p := range from {
		if len(to) == 0 {
			continue
		}
		best := -1
		for _, q := range to {
			d := ManhattanDistance(p.row, p.col, q.row, q.col)
			if best < 0 || d < best {
				best = d
			}
		}
		sum += best
	}
	return float64(sum) / float64(len(from))
}

// SimilarityScore compares two maps value by value. For every distinct known
// value in either map it adds the nearest-match distance from a to b and from
// b to a. Lower is more similar; identical maps score 0. The score is not a
// metric: a value missing from one map contributes nothing in either
// direction.
func SimilarityScore(a, b *GridMap) float64 {
	union := make(map[float64]struct{})
	for _, v := range a.Values() {
		union[v] = struct{}{}
	}
	for _, v := range b.Values() {
		union[v] = struct{}{}
	}
	values := make([]float64, 0, len(union))
	for v := range union {
		values = append(values, v)
	}
	sort.Float64s(values)

	total := 0.0
	for _, v := range values {
		total += valueDistance(a, b, v) + valueDistance(b, a, v)
	}
	return total
}

// SimilarityPair is the score between maps I and J
type SimilarityPair struct {
	I     int     `json:"i" csv:"i"`
	J     int     `json:"j" csv:"j"`
	Score float64 `json:"score" csv:"score"`
}

// SimilarityPairs scores every unordered pair of maps. Nil maps (episodes
// that produced no map) are skipped.
func SimilarityPairs(maps []*GridMap) []SimilarityPair {
	var pairs []SimilarityPair
	for i := 0; i < len(maps); i++ {
		if maps[i] == nil {
			continue
		}
		for j := i + 1; j < len(maps); j++ {
			if maps[j] == nil {
				continue
			}
			pairs = append(pairs, SimilarityPair{I: i, J: j, Score: SimilarityScore(maps[i], maps[j])})
		}
	}
	return pairs
}
