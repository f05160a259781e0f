package mapping

import "fmt"

// Direction is one of the four axis-aligned sensing directions
type Direction int

const (
	North Direction = iota
	East
	South
	West
)

// Directions lists every sensing direction in reading order
var Directions = [...]Direction{North, East, South, West}

// Unit returns the unit basis vector for the direction
func (d Direction) Unit() Point {
	switch d {
	case North:
		return Point{X: 0, Y: 1}
	case East:
		return Point{X: 1, Y: 0}
	case South:
		return Point{X: 0, Y: -1}
	case West:
		return Point{X: -1, Y: 0}
	}
	panic(fmt.Sprintf("invalid direction %d", int(d)))
}

func (d Direction) String() string {
	switch d {
	case North:
		return "north"
	case East:
		return "east"
	case South:
		return "south"
	case West:
		return "west"
	}
	return fmt.Sprintf("direction(%d)", int(d))
}

// Feature names a single scalar in an Observation
type Feature int

const (
	FeatureX Feature = iota
	FeatureY
	FeatureNorth
	FeatureEast
	FeatureSouth
	FeatureWest
)

// FeatureFor returns the distance feature for a direction
func FeatureFor(d Direction) Feature {
	return FeatureNorth + Feature(d)
}

// Observation is what the world reports after each step: the robot position
// and the distance to the nearest wall in each direction.
type Observation struct {
	X         float64    `json:"x"`
	Y         float64    `json:"y"`
	Distances [4]float64 `json:"distances"` // indexed by Direction
}

// Position returns the robot position carried by the observation
func (o Observation) Position() Point {
	return Point{X: o.X, Y: o.Y}
}

// Distance returns the wall distance sensed in direction d
func (o Observation) Distance(d Direction) float64 {
	return o.Distances[d]
}

// Value returns the named feature
func (o Observation) Value(f Feature) float64 {
	switch f {
	case FeatureX:
		return o.X
	case FeatureY:
		return o.Y
	case FeatureNorth, FeatureEast, FeatureSouth, FeatureWest:
		return o.Distances[f-FeatureNorth]
	}
	panic(fmt.Sprintf("invalid feature %d", int(f)))
}

// Component names one numeric part of an Action
type Component int

const (
	ComponentX Component = iota
	ComponentY
)

// Action is a movement request toward an absolute target position
type Action struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Component returns the named action component
func (a Action) Component(c Component) float64 {
	switch c {
	case ComponentX:
		return a.X
	case ComponentY:
		return a.Y
	}
	panic(fmt.Sprintf("invalid action component %d", int(c)))
}

// Target returns the requested destination
func (a Action) Target() Point {
	return Point{X: a.Component(ComponentX), Y: a.Component(ComponentY)}
}

// Agent decides the next action from the latest observation
type Agent interface {
	Update(obs Observation) (Action, error)
}

// Environment produces observations and applies actions
type Environment interface {
	InitialState() (Observation, error)
	Update(action Action) (Observation, error)
}
