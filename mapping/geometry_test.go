package mapping

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seg(x1, y1, x2, y2 float64) Segment {
	return NewWall(Point{X: x1, Y: y1}, Point{X: x2, Y: y2})
}

func TestIntersects(t *testing.T) {
	tests := []struct {
		name string
		a, b Segment
		want bool
	}{
		{"crossing diagonals", seg(0, 0, 2, 2), seg(0, 2, 2, 0), true},
		{"perpendicular cross", seg(6, 6, 6, 30), seg(0, 12, 12, 12), true},
		{"parallel disjoint", seg(0, 0, 1, 0), seg(0, 1, 1, 1), false},
		{"separate", seg(0, 0, 1, 1), seg(2, 0, 3, 1), false},
		{"would cross if extended", seg(0, 0, 1, 1), seg(0, 4, 4, 0), false},
		{"collinear overlap", seg(0, 0, 2, 0), seg(1, 0, 3, 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Intersects(tt.a, tt.b))
			assert.Equal(t, tt.want, Intersects(tt.b, tt.a), "reversed arguments")
		})
	}
}

func TestIntersects_Symmetric(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	coord := func() float64 { return float64(rng.Intn(11)) }

	for i := 0; i < 2000; i++ {
		a := seg(coord(), coord(), coord(), coord())
		b := seg(coord(), coord(), coord(), coord())
		if Intersects(a, b) != Intersects(b, a) {
			t.Fatalf("Intersects not symmetric for %v and %v", a, b)
		}
	}
}

func TestIntersects_Self(t *testing.T) {
	s := seg(1, 1, 5, 3)
	assert.False(t, Intersects(s, s))
}

func TestLineIntersection(t *testing.T) {
	p, err := LineIntersection(seg(0, 0, 2, 2), seg(0, 2, 2, 0))
	require.NoError(t, err)
	assert.Equal(t, Point{X: 1, Y: 1}, p)

	// infinite lines, not clipped to the segments
	p, err = LineIntersection(seg(0, 0, 1, 0), seg(5, 1, 5, 2))
	require.NoError(t, err)
	assert.InDelta(t, 5, p.X, 1e-12)
	assert.InDelta(t, 0, p.Y, 1e-12)
}

func TestLineIntersection_Parallel(t *testing.T) {
	_, err := LineIntersection(seg(0, 0, 1, 1), seg(0, 1, 1, 2))
	assert.ErrorIs(t, err, ErrParallelLines)

	_, err = LineIntersection(seg(0, 0, 2, 0), seg(1, 0, 3, 0))
	assert.ErrorIs(t, err, ErrParallelLines, "coincident lines")
}

func TestSlope(t *testing.T) {
	m, err := Slope(seg(0, 0, 2, 4))
	require.NoError(t, err)
	assert.Equal(t, 2.0, m)

	m, err = Slope(seg(3, 1, 1, 1))
	require.NoError(t, err)
	assert.Equal(t, 0.0, m)

	_, err = Slope(seg(1, 0, 1, 5))
	assert.ErrorIs(t, err, ErrVerticalLine)
}

func TestClassifySlope(t *testing.T) {
	tests := []struct {
		name string
		s    Segment
		want SlopeClass
	}{
		{"sloped", seg(0, 0, 2, 1), SlopeClass{Kind: SlopeSloped, M: 0.5}},
		{"negative", seg(0, 2, 2, 0), SlopeClass{Kind: SlopeSloped, M: -1}},
		{"horizontal", seg(0, 3, 5, 3), SlopeClass{Kind: SlopeHorizontal}},
		{"vertical", seg(2, 0, 2, 7), SlopeClass{Kind: SlopeVertical}},
		{"zero length", seg(2, 2, 2, 2), SlopeClass{Kind: SlopeVertical}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifySlope(tt.s))
		})
	}
}

func TestDistance(t *testing.T) {
	assert.Equal(t, 5.0, Distance(Point{X: 0, Y: 0}, Point{X: 3, Y: 4}))
	assert.Equal(t, 0.0, Distance(Point{X: 2, Y: 2}, Point{X: 2, Y: 2}))
}

func TestHeading(t *testing.T) {
	tests := []struct {
		dx, dy float64
		want   float64
	}{
		{1, 0, 0},
		{0, 1, 90},
		{-1, 0, 180},
		{0, -1, 270},
		{1, 1, 45},
	}
	for _, tt := range tests {
		h, err := Heading(NewTrajectory(Point{X: 5, Y: 5}, Point{X: 5 + tt.dx, Y: 5 + tt.dy}))
		require.NoError(t, err)
		assert.InDelta(t, tt.want, h, 1e-9, "heading of (%g, %g)", tt.dx, tt.dy)
	}

	_, err := Heading(NewTrajectory(Point{X: 1, Y: 1}, Point{X: 1, Y: 1}))
	assert.ErrorIs(t, err, ErrZeroLengthVector)
}

func TestNormalizeAngle(t *testing.T) {
	assert.Equal(t, 270.0, NormalizeAngle(-90))
	assert.Equal(t, 0.0, NormalizeAngle(720))
	assert.InDelta(t, 10.0, NormalizeAngle(370), 1e-12)
	assert.Equal(t, 270.0, NormalizeAngle(-450))
}

func TestOnSegment(t *testing.T) {
	s := seg(0, 0, 4, 0)
	assert.True(t, onSegment(Point{X: 2, Y: 0}, s))
	assert.True(t, onSegment(Point{X: 4, Y: 0}, s), "endpoint")
	assert.False(t, onSegment(Point{X: 5, Y: 0}, s), "collinear but outside")
	assert.False(t, onSegment(Point{X: 2, Y: 0.1}, s))
}
