package mapping

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"os"
	"sort"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	legendHeight = 20
	defaultCell  = 16
)

var (
	unknownColor    = color.RGBA{200, 220, 240, 255} // pale blue for never-observed cells
	backgroundColor = color.RGBA{255, 255, 255, 255}
	textColor       = color.RGBA{0, 0, 0, 255}
)

// EpisodePalette returns the hex colors used to tell episodes apart
func EpisodePalette() []string {
	return []string{"#0000FF", "#FF0000", "#008000", "#FF8C00", "#800080", "#008B8B"}
}

// EpisodeColor picks a palette color for an episode id
func EpisodeColor(id int) color.RGBA {
	p := EpisodePalette()
	return parseHexColor(p[((id%len(p))+len(p))%len(p)])
}

// GridRenderer draws a GridMap as a greyscale PNG: white is free, black is
// occupied and unknown cells are tinted.
type GridRenderer struct {
	Map      *GridMap
	CellSize int    // pixels per cell (default 16)
	Title    string // drawn in the legend strip; empty disables the strip
}

// NewGridRenderer creates a renderer for m
func NewGridRenderer(m *GridMap, cellSize int, title string) *GridRenderer {
	if cellSize <= 0 {
		cellSize = defaultCell
	}
	return &GridRenderer{Map: m, CellSize: cellSize, Title: title}
}

// Render rasterizes the map. Row 0 is drawn at the bottom so north is up.
func (r *GridRenderer) Render() *image.RGBA {
	rows, cols := r.Map.Dims()
	top := 0
	if r.Title != "" {
		top = legendHeight
	}
	width := cols * r.CellSize
	height := rows*r.CellSize + top

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	fillRect(img, 0, 0, width, height, backgroundColor)

	for row := 0; row < rows; row++ {
		y0 := top + (rows-1-row)*r.CellSize
		for col := 0; col < cols; col++ {
			x0 := col * r.CellSize
			c := unknownColor
			if v, ok := r.Map.At(row, col); ok {
				c = occupancyGrey(v)
			}
			fillRect(img, x0, y0, x0+r.CellSize, y0+r.CellSize, c)
		}
	}

	if r.Title != "" {
		drawText(img, 4, 14, r.Title, textColor)
	}
	return img
}

// WritePNG renders the map and encodes it to w
func (r *GridRenderer) WritePNG(w io.Writer) error {
	return png.Encode(w, r.Render())
}

// SavePNG renders the map to a PNG file
func (r *GridRenderer) SavePNG(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	return r.WritePNG(f)
}

// occupancyGrey maps P(occupied) in [0, 1] to white..black
func occupancyGrey(p float64) color.RGBA {
	p = math.Max(0, math.Min(1, p))
	g := uint8(math.Round(255 * (1 - p)))
	return color.RGBA{g, g, g, 255}
}

func fillRect(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			img.Set(x, y, c)
		}
	}
}

// RenderLive draws the arena outline and the latest robot position of every
// running episode, scale pixels per arena unit.
func RenderLive(arena Dimensions, positions map[int]*LivePosition, scale int) *image.RGBA {
	if scale <= 0 {
		scale = 40
	}
	width := int(math.Ceil(arena.Width*float64(scale))) + 1
	height := int(math.Ceil(arena.Height*float64(scale))) + 1 + legendHeight

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	fillRect(img, 0, 0, width, height, backgroundColor)

	frame := color.RGBA{60, 60, 60, 255}
	for x := 0; x < width; x++ {
		img.Set(x, legendHeight, frame)
		img.Set(x, height-1, frame)
	}
	for y := legendHeight; y < height; y++ {
		img.Set(0, y, frame)
		img.Set(width-1, y, frame)
	}

	ids := make([]int, 0, len(positions))
	for id := range positions {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	for _, id := range ids {
		pos := positions[id]
		cx := int(math.Round(pos.X * float64(scale)))
		cy := legendHeight + int(math.Round((arena.Height-pos.Y)*float64(scale)))
		drawRobotIcon(img, cx, cy, scale/2, EpisodeColor(id))
	}

	drawText(img, 4, 14, fmt.Sprintf("%d running episode(s)", len(ids)), textColor)
	return img
}

// drawRobotIcon draws a filled robot body with a dark outline
func drawRobotIcon(img *image.RGBA, cx, cy, size int, c color.RGBA) {
	if size < 4 {
		size = 4
	}
	radius := size / 2
	drawCircle(img, cx, cy, radius+2, color.RGBA{40, 40, 40, 255})
	drawCircle(img, cx, cy, radius, c)
}

func drawCircle(img *image.RGBA, cx, cy, radius int, c color.RGBA) {
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dy*dy <= radius*radius {
				x, y := cx+dx, cy+dy
				if x >= 0 && x < img.Bounds().Max.X && y >= 0 && y < img.Bounds().Max.Y {
					img.Set(x, y, c)
				}
			}
		}
	}
}

// drawText renders text onto an image at the specified position
func drawText(img *image.RGBA, x, y int, text string, c color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}

func parseHexColor(hex string) color.RGBA {
	defaultColor := color.RGBA{255, 0, 0, 255}

	if len(hex) == 0 {
		return defaultColor
	}
	if hex[0] == '#' {
		hex = hex[1:]
	}
	if len(hex) != 6 {
		return defaultColor
	}

	var r, g, b uint8
	if _, err := fmt.Sscanf(hex, "%02x%02x%02x", &r, &g, &b); err != nil {
		return defaultColor
	}
	return color.RGBA{r, g, b, 255}
}
