package mapping

import (
	"errors"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

var (
	// ErrParallelLines is returned when two lines share a direction and have
	// no single intersection point.
	ErrParallelLines = errors.New("parallel or coincident lines")

	// ErrVerticalLine is returned by Slope for a segment with zero run.
	ErrVerticalLine = errors.New("vertical line has no slope")

	// ErrZeroLengthVector is returned when an angle is requested for a
	// segment whose endpoints coincide.
	ErrZeroLengthVector = errors.New("zero-length direction vector")
)

// Point represents a 2D coordinate in arena units
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p + q
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Scale returns p multiplied by k
func (p Point) Scale(k float64) Point {
	return Point{X: p.X * k, Y: p.Y * k}
}

func (p Point) orb() orb.Point {
	return orb.Point{p.X, p.Y}
}

// SegmentKind distinguishes static walls from transient trajectories
type SegmentKind int

const (
	KindWall SegmentKind = iota
	KindTrajectory
)

func (k SegmentKind) String() string {
	switch k {
	case KindWall:
		return "wall"
	case KindTrajectory:
		return "trajectory"
	}
	return "unknown"
}

// Segment is a line segment between two endpoints. Walls and trajectories
// share the same geometry; Kind only records the domain meaning.
type Segment struct {
	A    Point       `json:"a"`
	B    Point       `json:"b"`
	Kind SegmentKind `json:"kind"`
}

// NewWall creates a wall segment
func NewWall(a, b Point) Segment {
	return Segment{A: a, B: b, Kind: KindWall}
}

// NewTrajectory creates a trajectory segment (a proposed move or a sensing ray)
func NewTrajectory(a, b Point) Segment {
	return Segment{A: a, B: b, Kind: KindTrajectory}
}

// ccw reports whether a, b, c are in strictly counter-clockwise order.
func ccw(a, b, c Point) bool {
	return (c.Y-a.Y)*(b.X-a.X) > (b.Y-a.Y)*(c.X-a.X)
}

// Intersects reports whether two segments cross using the orientation test.
// Endpoint touches and collinear overlaps are not special-cased: they yield
// whatever the strict inequalities produce, which is often false.
func Intersects(s, o Segment) bool {
	return ccw(s.A, o.A, o.B) != ccw(s.B, o.A, o.B) && ccw(s.A, s.B, o.A) != ccw(s.A, s.B, o.B)
}

// LineIntersection returns the intersection of the infinite lines through
// s and o. Callers should confirm a crossing with Intersects first.
func LineIntersection(s, o Segment) (Point, error) {
	x1, y1 := s.A.X, s.A.Y
	x2, y2 := s.B.X, s.B.Y
	x3, y3 := o.A.X, o.A.Y
	x4, y4 := o.B.X, o.B.Y

	det := (x1-x2)*(y3-y4) - (y1-y2)*(x3-x4)
	if det == 0 {
		return Point{}, ErrParallelLines
	}

	a := x1*y2 - y1*x2
	b := x3*y4 - y3*x4
	return Point{
		X: (a*(x3-x4) - (x1-x2)*b) / det,
		Y: (a*(y3-y4) - (y1-y2)*b) / det,
	}, nil
}

// Slope returns rise over run for the segment
func Slope(s Segment) (float64, error) {
	run := s.B.X - s.A.X
	if run == 0 {
		return 0, ErrVerticalLine
	}
	return (s.B.Y - s.A.Y) / run, nil
}

// SlopeKind tags the result of ClassifySlope
type SlopeKind int

const (
	SlopeSloped SlopeKind = iota
	SlopeHorizontal
	SlopeVertical
)

// SlopeClass is the classified slope of a segment. M is only meaningful
// when Kind is SlopeSloped.
type SlopeClass struct {
	Kind SlopeKind
	M    float64
}

// ClassifySlope sorts a segment into sloped, horizontal or vertical.
// A zero-length segment classifies as vertical.
func ClassifySlope(s Segment) SlopeClass {
	m, err := Slope(s)
	switch {
	case err != nil:
		return SlopeClass{Kind: SlopeVertical}
	case m == 0:
		return SlopeClass{Kind: SlopeHorizontal}
	default:
		return SlopeClass{Kind: SlopeSloped, M: m}
	}
}

// Distance returns the Euclidean distance between two points
func Distance(p, q Point) float64 {
	return planar.Distance(p.orb(), q.orb())
}

// Heading returns the direction of travel along s in degrees, normalized to
// [0, 360) with 0 = East and 90 = North.
func Heading(s Segment) (float64, error) {
	dx := s.B.X - s.A.X
	dy := s.B.Y - s.A.Y
	if dx == 0 && dy == 0 {
		return 0, ErrZeroLengthVector
	}
	return NormalizeAngle(math.Atan2(dy, dx) * 180 / math.Pi), nil
}

// NormalizeAngle normalizes an angle in degrees to the range [0, 360).
func NormalizeAngle(degrees float64) float64 {
	degrees = math.Mod(degrees, 360)
	if degrees < 0 {
		degrees += 360
	}
	return degrees
}

// onSegment reports whether p lies on s exactly (collinear and within the
// segment's bounding box).
func onSegment(p Point, s Segment) bool {
	cross := (s.B.X-s.A.X)*(p.Y-s.A.Y) - (s.B.Y-s.A.Y)*(p.X-s.A.X)
	if cross != 0 {
		return false
	}
	return p.X >= math.Min(s.A.X, s.B.X) && p.X <= math.Max(s.A.X, s.B.X) &&
		p.Y >= math.Min(s.A.Y, s.B.Y) && p.Y <= math.Max(s.A.Y, s.B.Y)
}
