package mapping

import (
	"image/color"
	"image/png"
	"io"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	"github.com/tdewolff/canvas/renderers/svg"
)

// WorldRenderer draws the ground-truth arena of an episode as vector
// graphics: walls, the grid the mapper bins into, and the robot path.
type WorldRenderer struct {
	Arena      Dimensions
	Walls      []Segment
	Path       []Point
	Bins       int               // grid lines drawn per axis; 0 disables the grid
	PathColor  color.RGBA        // defaults to blue
	Scale      float64           // canvas millimeters per arena unit
	Padding    float64           // padding in arena units
	Resolution canvas.Resolution // Resolution for PNG output (default: 300 DPI)
}

// NewWorldRenderer creates a renderer with default settings
func NewWorldRenderer(arena Dimensions, walls []Segment, path []Point) *WorldRenderer {
	return &WorldRenderer{
		Arena:      arena,
		Walls:      walls,
		Path:       path,
		Bins:       DefaultBins,
		PathColor:  color.RGBA{0, 0, 255, 255},
		Scale:      10,
		Padding:    0.5,
		Resolution: canvas.DPI(300),
	}
}

// canvasRenderer is implemented by both the svg and rasterizer renderers
type canvasRenderer interface {
	RenderPath(path *canvas.Path, style canvas.Style, m canvas.Matrix)
}

func (r *WorldRenderer) size() (float64, float64) {
	return (r.Arena.Width + 2*r.Padding) * r.Scale, (r.Arena.Height + 2*r.Padding) * r.Scale
}

// RenderToSVG writes the arena as an SVG to the provided writer
func (r *WorldRenderer) RenderToSVG(w io.Writer) error {
	width, height := r.size()
	svgRenderer := svg.New(w, width, height, nil)
	r.renderToCanvas(svgRenderer, width, height)
	return svgRenderer.Close()
}

// RenderToPNG writes the arena as a PNG to the provided writer
func (r *WorldRenderer) RenderToPNG(w io.Writer) error {
	width, height := r.size()
	rast := rasterizer.New(width, height, r.Resolution, canvas.DefaultColorSpace)
	r.renderToCanvas(rast, width, height)
	return png.Encode(w, rast)
}

func (r *WorldRenderer) toCanvas(p Point) (float64, float64) {
	return (p.X + r.Padding) * r.Scale, (p.Y + r.Padding) * r.Scale
}

func (r *WorldRenderer) renderToCanvas(renderer canvasRenderer, width, height float64) {
	bgStyle := canvas.DefaultStyle
	bgStyle.Fill = canvas.Paint{Color: canvas.White}
	renderer.RenderPath(canvas.Rectangle(width, height), bgStyle, canvas.Identity)

	if r.Bins > 0 {
		gridStyle := canvas.DefaultStyle
		gridStyle.Fill = canvas.Paint{Color: canvas.Transparent}
		gridStyle.Stroke = canvas.Paint{Color: canvas.Lightgray}
		gridStyle.StrokeWidth = 0.02 * r.Scale
		gridStyle.Dashes = []float64{0.1 * r.Scale, 0.1 * r.Scale}

		for i := 1; i < r.Bins; i++ {
			x := r.Arena.Width * float64(i) / float64(r.Bins)
			y := r.Arena.Height * float64(i) / float64(r.Bins)

			v := &canvas.Path{}
			v.MoveTo(r.toCanvas(Point{X: x, Y: 0}))
			v.LineTo(r.toCanvas(Point{X: x, Y: r.Arena.Height}))
			renderer.RenderPath(v, gridStyle, canvas.Identity)

			h := &canvas.Path{}
			h.MoveTo(r.toCanvas(Point{X: 0, Y: y}))
			h.LineTo(r.toCanvas(Point{X: r.Arena.Width, Y: y}))
			renderer.RenderPath(h, gridStyle, canvas.Identity)
		}
	}

	wallStyle := canvas.DefaultStyle
	wallStyle.Fill = canvas.Paint{Color: canvas.Transparent}
	wallStyle.Stroke = canvas.Paint{Color: canvas.Black}
	wallStyle.StrokeWidth = 0.08 * r.Scale

	for _, wall := range r.Walls {
		cp := &canvas.Path{}
		cp.MoveTo(r.toCanvas(wall.A))
		cp.LineTo(r.toCanvas(wall.B))
		renderer.RenderPath(cp, wallStyle, canvas.Identity)
	}

	if len(r.Path) == 0 {
		return
	}

	pathStyle := canvas.DefaultStyle
	pathStyle.Fill = canvas.Paint{Color: canvas.Transparent}
	pathStyle.Stroke = canvas.Paint{Color: r.PathColor}
	pathStyle.StrokeWidth = 0.03 * r.Scale

	if len(r.Path) > 1 {
		cp := &canvas.Path{}
		for i, p := range r.Path {
			if i == 0 {
				cp.MoveTo(r.toCanvas(p))
			} else {
				cp.LineTo(r.toCanvas(p))
			}
		}
		renderer.RenderPath(cp, pathStyle, canvas.Identity)
	}

	startStyle := canvas.DefaultStyle
	startStyle.Fill = canvas.Paint{Color: canvas.Green}
	startStyle.Stroke = canvas.Paint{Color: canvas.Black}
	startStyle.StrokeWidth = 0.02 * r.Scale
	sx, sy := r.toCanvas(r.Path[0])
	renderer.RenderPath(canvas.Circle(0.15*r.Scale).Translate(sx, sy), startStyle, canvas.Identity)

	robotStyle := startStyle
	robotStyle.Fill = canvas.Paint{Color: r.PathColor}
	ex, ey := r.toCanvas(r.Path[len(r.Path)-1])
	renderer.RenderPath(canvas.Circle(0.2*r.Scale).Translate(ex, ey), robotStyle, canvas.Identity)
}
