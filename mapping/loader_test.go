package mapping

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWalls(t *testing.T) {
	input := "# x1,y1,x2,y2\n0,0,0,10\n2.5, 3, 2.5, 7\n\n"

	walls, err := LoadWalls(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, walls, 2)

	assert.Equal(t, NewWall(Point{X: 1, Y: 1}, Point{X: 1, Y: 11}), walls[0])
	assert.Equal(t, NewWall(Point{X: 3.5, Y: 4}, Point{X: 3.5, Y: 8}), walls[1])
	assert.Equal(t, KindWall, walls[1].Kind)
}

func TestLoadWalls_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"too few fields", "1,2,3\n"},
		{"too many fields", "1,2,3,4,5\n"},
		{"not a number", "1,2,three,4\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadWalls(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "parsing wall list")
		})
	}
}

func TestLoadWalls_Empty(t *testing.T) {
	walls, err := LoadWalls(strings.NewReader(""))
	assert.NoError(t, err)
	assert.Empty(t, walls)
}

func TestLoadStartPositions(t *testing.T) {
	points, err := LoadStartPositions(strings.NewReader("1,1\n5,5\n# comment\n9, 2\n"))
	require.NoError(t, err)
	assert.Equal(t, []Point{{X: 2, Y: 2}, {X: 6, Y: 6}, {X: 10, Y: 3}}, points)

	_, err = LoadStartPositions(strings.NewReader("1,1,1\n"))
	assert.Error(t, err)
}

func TestLoadFrom_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "positions.txt")
	require.NoError(t, os.WriteFile(path, []byte("4,4\n"), 0644))

	points, err := LoadStartPositionsFrom(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []Point{{X: 5, Y: 5}}, points)

	_, err = LoadWallsFrom(context.Background(), filepath.Join(dir, "missing.txt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input file not found")

	_, err = LoadStartPositionsFrom(context.Background(), "")
	assert.Error(t, err)
}

func TestLoadFrom_URL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("0,0,10,0\n"))
	}))
	defer server.Close()

	walls, err := LoadWallsFrom(context.Background(), server.URL+"/walls.txt", WithMaxRetries(1))
	require.NoError(t, err)
	assert.Equal(t, []Segment{NewWall(Point{X: 1, Y: 1}, Point{X: 11, Y: 1})}, walls)
}
