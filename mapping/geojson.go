package mapping

import (
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/simplify"
)

// DefaultPathTolerance is the Douglas-Peucker tolerance, in arena units, used
// when exporting robot paths.
const DefaultPathTolerance = 0.05

// PathLineString converts a robot path to an orb LineString, simplified with
// Douglas-Peucker when tolerance > 0.
func PathLineString(path []Point, tolerance float64) orb.LineString {
	ls := make(orb.LineString, 0, len(path))
	for _, p := range path {
		ls = append(ls, p.orb())
	}
	if tolerance > 0 && len(ls) > 2 {
		if s, ok := simplify.DouglasPeucker(tolerance).Simplify(ls.Clone()).(orb.LineString); ok {
			ls = s
		}
	}
	return ls
}

// CoverageHull returns the convex hull of the visited positions as a closed
// polygon, or nil when fewer than three distinct points were visited.
func CoverageHull(path []Point) orb.Polygon {
	pts := make([]orb.Point, 0, len(path))
	for _, p := range path {
		pts = append(pts, p.orb())
	}
	hull := convexHull(pts)
	if len(hull) < 3 {
		return nil
	}
	ring := append(orb.Ring(hull), hull[0])
	return orb.Polygon{ring}
}

// EpisodeFeatureCollection exports an episode as GeoJSON in arena
// coordinates: walls, the simplified path, the coverage hull and the start
// and final positions.
func EpisodeFeatureCollection(ep EpisodeResult, walls []Segment, tolerance float64) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	for _, w := range walls {
		f := geojson.NewFeature(orb.LineString{w.A.orb(), w.B.orb()})
		f.Properties["layer"] = "wall"
		fc.Append(f)
	}

	if len(ep.Path) > 1 {
		f := geojson.NewFeature(PathLineString(ep.Path, tolerance))
		f.Properties["layer"] = "path"
		f.Properties["episode"] = ep.ID
		f.Properties["steps"] = ep.Steps
		fc.Append(f)
	}

	if hull := CoverageHull(ep.Path); hull != nil {
		f := geojson.NewFeature(hull)
		f.Properties["layer"] = "coverage"
		f.Properties["episode"] = ep.ID
		fc.Append(f)
	}

	start := geojson.NewFeature(ep.Start.orb())
	start.Properties["layer"] = "start"
	start.Properties["episode"] = ep.ID
	fc.Append(start)

	final := geojson.NewFeature(ep.Final.orb())
	final.Properties["layer"] = "robot"
	final.Properties["episode"] = ep.ID
	fc.Append(final)

	return fc
}

// convexHull computes the convex hull using Andrew's monotone chain
func convexHull(points []orb.Point) []orb.Point {
	sorted := make([]orb.Point, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i][0] != sorted[j][0] {
			return sorted[i][0] < sorted[j][0]
		}
		return sorted[i][1] < sorted[j][1]
	})

	// drop duplicates so repeated positions do not degenerate the chain
	uniq := sorted[:0]
	for i, p := range sorted {
		if i == 0 || p != sorted[i-1] {
			uniq = append(uniq, p)
		}
	}
	if len(uniq) < 3 {
		return uniq
	}

	// cross returns the cross product of vectors OA and OB where O is origin
	cross := func(o, a, b orb.Point) float64 {
		return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
	}

	n := len(uniq)
	hull := make([]orb.Point, 0, 2*n)

	for _, p := range uniq {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}

	lower := len(hull) + 1
	for i := n - 2; i >= 0; i-- {
		p := uniq[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}

	// last point duplicates the first
	return hull[:len(hull)-1]
}
