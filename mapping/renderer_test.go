package mapping

import (
	"bytes"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func testRenderMap() *GridMap {
	m := NewGridMap(2, 3)
	m.Set(0, 0, 1) // occupied
	m.Set(1, 0, 0) // free
	m.Set(0, 1, 0.5)
	return m
}

func TestGridRenderer_Render(t *testing.T) {
	img := NewGridRenderer(testRenderMap(), 10, "").Render()

	b := img.Bounds()
	if b.Dx() != 30 || b.Dy() != 20 {
		t.Fatalf("bounds = %v, want 30x20", b)
	}

	// row 0 is drawn at the bottom
	if got := img.RGBAAt(5, 15); got != (color.RGBA{0, 0, 0, 255}) {
		t.Errorf("occupied cell = %v, want black", got)
	}
	if got := img.RGBAAt(5, 5); got != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("free cell = %v, want white", got)
	}
	if got := img.RGBAAt(15, 15); got != (color.RGBA{128, 128, 128, 255}) {
		t.Errorf("half cell = %v, want mid grey", got)
	}
	if got := img.RGBAAt(25, 5); got != unknownColor {
		t.Errorf("unknown cell = %v, want %v", got, unknownColor)
	}
}

func TestGridRenderer_TitleAddsLegend(t *testing.T) {
	img := NewGridRenderer(testRenderMap(), 10, "episode 0").Render()
	if dy := img.Bounds().Dy(); dy != 20+legendHeight {
		t.Errorf("height = %d, want %d", dy, 20+legendHeight)
	}
}

func TestGridRenderer_DefaultCellSize(t *testing.T) {
	r := NewGridRenderer(testRenderMap(), 0, "")
	if r.CellSize != 16 {
		t.Errorf("CellSize = %d, want 16", r.CellSize)
	}
}

func TestGridRenderer_SavePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "map.png")
	if err := NewGridRenderer(testRenderMap(), 4, "").SavePNG(path); err != nil {
		t.Fatalf("SavePNG: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = f.Close() }()

	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 12 || b.Dy() != 8 {
		t.Errorf("bounds = %v, want 12x8", b)
	}
}

func TestRenderLive(t *testing.T) {
	positions := map[int]*LivePosition{
		0: {Episode: 0, X: 6, Y: 6},
		1: {Episode: 1, X: 2, Y: 10},
	}
	img := RenderLive(arena12, positions, 10)

	b := img.Bounds()
	if b.Dx() != 121 || b.Dy() != 121+legendHeight {
		t.Fatalf("bounds = %v", b)
	}
	if got := img.RGBAAt(60, legendHeight+60); got != EpisodeColor(0) {
		t.Errorf("robot 0 pixel = %v, want %v", got, EpisodeColor(0))
	}
	if got := img.RGBAAt(20, legendHeight+20); got != EpisodeColor(1) {
		t.Errorf("robot 1 pixel = %v, want %v", got, EpisodeColor(1))
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, RenderLive(arena12, nil, 0)); err != nil {
		t.Fatalf("encode empty live image: %v", err)
	}
}

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		in   string
		want color.RGBA
	}{
		{"#FF8C00", color.RGBA{255, 140, 0, 255}},
		{"008080", color.RGBA{0, 128, 128, 255}},
		{"", color.RGBA{255, 0, 0, 255}},
		{"#FFF", color.RGBA{255, 0, 0, 255}},
		{"#GGGGGG", color.RGBA{255, 0, 0, 255}},
	}
	for _, tt := range tests {
		if got := parseHexColor(tt.in); got != tt.want {
			t.Errorf("parseHexColor(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestEpisodeColor_Cycles(t *testing.T) {
	n := len(EpisodePalette())
	if EpisodeColor(0) != EpisodeColor(n) {
		t.Error("palette should cycle")
	}
	if EpisodeColor(-1) != EpisodeColor(n-1) {
		t.Error("negative ids should wrap")
	}
}
