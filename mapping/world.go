package mapping

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/paulmach/orb"
)

// CollisionDistance is how far the robot stops short of a wall it would
// otherwise cross.
const CollisionDistance = 0.1

var (
	// ErrOutOfBounds is returned when a robot position or wall endpoint
	// falls outside the arena.
	ErrOutOfBounds = errors.New("point outside arena bounds")

	// ErrNoIntersection is returned when a sensing ray crosses no wall.
	// The boundary walls make this impossible for a robot inside the arena.
	ErrNoIntersection = errors.New("ray crossed no wall")
)

// Dimensions is the arena size; the arena spans [0, Width] x [0, Height]
type Dimensions struct {
	Width  float64 `yaml:"width" json:"width"`
	Height float64 `yaml:"height" json:"height"`
}

// BoundaryWalls returns the four walls enclosing an arena
func BoundaryWalls(dims Dimensions) []Segment {
	w, h := dims.Width, dims.Height
	return []Segment{
		NewWall(Point{X: 0, Y: 0}, Point{X: 0, Y: h}),
		NewWall(Point{X: 0, Y: h}, Point{X: w, Y: h}),
		NewWall(Point{X: w, Y: h}, Point{X: w, Y: 0}),
		NewWall(Point{X: w, Y: 0}, Point{X: 0, Y: 0}),
	}
}

// World is the ground-truth arena: its walls and the robot location.
// Agents only see it through InitialState and Update.
type World struct {
	dims  Dimensions
	bound orb.Bound
	walls map[Segment]struct{}
	robot Point
}

// NewWorld builds an arena with its boundary walls plus the given walls and
// places the robot at start.
func NewWorld(dims Dimensions, walls []Segment, start Point) (*World, error) {
	if dims.Width <= 0 || dims.Height <= 0 {
		return nil, fmt.Errorf("invalid arena dimensions %gx%g", dims.Width, dims.Height)
	}

	w := &World{
		dims:  dims,
		bound: orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{dims.Width, dims.Height}},
		walls: make(map[Segment]struct{}),
	}

	for _, b := range BoundaryWalls(dims) {
		w.walls[b] = struct{}{}
	}
	for i, wall := range walls {
		if err := w.AddWall(wall); err != nil {
			return nil, fmt.Errorf("wall %d: %w", i, err)
		}
	}

	if !w.InBoundaries(start) {
		return nil, fmt.Errorf("start position (%g, %g): %w", start.X, start.Y, ErrOutOfBounds)
	}
	w.robot = start

	return w, nil
}

// AddWall adds a wall. Overlapping and intersecting walls are allowed.
func (w *World) AddWall(wall Segment) error {
	if !w.InBoundaries(wall.A) || !w.InBoundaries(wall.B) {
		return fmt.Errorf("wall (%g, %g)-(%g, %g): %w",
			wall.A.X, wall.A.Y, wall.B.X, wall.B.Y, ErrOutOfBounds)
	}
	wall.Kind = KindWall
	w.walls[wall] = struct{}{}
	return nil
}

// InBoundaries reports whether p lies inside the arena, edges included
func (w *World) InBoundaries(p Point) bool {
	return w.bound.Contains(p.orb())
}

// Dimensions returns the arena size
func (w *World) Dimensions() Dimensions {
	return w.dims
}

// Robot returns the current robot location
func (w *World) Robot() Point {
	return w.robot
}

// Walls returns every wall in a stable order
func (w *World) Walls() []Segment {
	walls := make([]Segment, 0, len(w.walls))
	for wall := range w.walls {
		walls = append(walls, wall)
	}
	sort.Slice(walls, func(i, j int) bool {
		a, b := walls[i], walls[j]
		if a.A != b.A {
			return lessPoint(a.A, b.A)
		}
		return lessPoint(a.B, b.B)
	})
	return walls
}

func lessPoint(a, b Point) bool {
	if a.X != b.X {
		return a.X < b.X
	}
	return a.Y < b.Y
}

// DistanceInDirection casts a ray from the robot in direction d and returns
// the distance to the closest wall it crosses.
func (w *World) DistanceInDirection(d Direction) (float64, error) {
	reach := 2 * math.Max(w.dims.Width, w.dims.Height)
	ray := NewTrajectory(w.robot, w.robot.Add(d.Unit().Scale(reach)))

	hit, ok, err := w.closestIntersection(ray)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%s from (%g, %g): %w", d, w.robot.X, w.robot.Y, ErrNoIntersection)
	}
	return Distance(w.robot, hit), nil
}

// MoveRobot moves the robot toward dest. If the straight path crosses a wall,
// the robot stops CollisionDistance short of the closest crossing.
func (w *World) MoveRobot(dest Point) (Point, error) {
	if !w.InBoundaries(dest) {
		return w.robot, fmt.Errorf("destination (%g, %g): %w", dest.X, dest.Y, ErrOutOfBounds)
	}

	traj := NewTrajectory(w.robot, dest)
	hit, ok, err := w.closestIntersection(traj)
	if err != nil {
		return w.robot, err
	}
	if !ok {
		w.robot = dest
		return dest, nil
	}

	stop := backOff(traj, hit, CollisionDistance)
	if !w.InBoundaries(stop) {
		return w.robot, fmt.Errorf("collision stop (%g, %g): %w", stop.X, stop.Y, ErrOutOfBounds)
	}
	w.robot = stop
	return stop, nil
}

// closestIntersection collects every wall crossing of traj and returns the one
// nearest its start. A trajectory that ends exactly on a wall counts as a
// crossing at its endpoint.
func (w *World) closestIntersection(traj Segment) (Point, bool, error) {
	candidates := make(map[Point]struct{})
	for wall := range w.walls {
		if Intersects(traj, wall) {
			p, err := LineIntersection(traj, wall)
			if err != nil {
				return Point{}, false, fmt.Errorf("intersecting wall (%g, %g)-(%g, %g): %w",
					wall.A.X, wall.A.Y, wall.B.X, wall.B.Y, err)
			}
			candidates[p] = struct{}{}
			continue
		}
		if traj.Kind == KindTrajectory && traj.A != traj.B && onSegment(traj.B, wall) {
			candidates[traj.B] = struct{}{}
		}
	}

	if len(candidates) == 0 {
		return Point{}, false, nil
	}

	var best Point
	bestDist := math.Inf(1)
	for p := range candidates {
		d := Distance(traj.A, p)
		if d < bestDist || (d == bestDist && lessPoint(p, best)) {
			best, bestDist = p, d
		}
	}
	return best, true, nil
}

// backOff returns the point dist before hit, travelling back along traj.
func backOff(traj Segment, hit Point, dist float64) Point {
	dx := traj.B.X - traj.A.X
	dy := traj.B.Y - traj.A.Y

	switch c := ClassifySlope(traj); c.Kind {
	case SlopeHorizontal:
		return Point{X: hit.X - math.Copysign(dist, dx), Y: hit.Y}
	case SlopeVertical:
		return Point{X: hit.X, Y: hit.Y - math.Copysign(dist, dy)}
	default:
		// dist is measured along traj, not along x
		step := dist / math.Sqrt(1+c.M*c.M)
		ox := -math.Copysign(step, dx)
		return Point{X: hit.X + ox, Y: hit.Y + c.M*ox}
	}
}

func (w *World) observe() (Observation, error) {
	obs := Observation{X: w.robot.X, Y: w.robot.Y}
	for _, d := range Directions {
		dist, err := w.DistanceInDirection(d)
		if err != nil {
			return Observation{}, fmt.Errorf("sensing: %w", err)
		}
		obs.Distances[d] = dist
	}
	return obs, nil
}

// InitialState returns the observation at the robot's start position
func (w *World) InitialState() (Observation, error) {
	return w.observe()
}

// Update applies the movement action and returns the resulting observation
func (w *World) Update(action Action) (Observation, error) {
	if _, err := w.MoveRobot(action.Target()); err != nil {
		return Observation{}, fmt.Errorf("moving robot: %w", err)
	}
	return w.observe()
}
