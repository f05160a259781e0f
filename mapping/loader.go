package mapping

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gocarina/gocsv"
)

// CoordinateOffset is added to every coordinate read from a coordinate list.
// The lists describe a 10x10 room; the offset centers it in a 12x12 arena.
const CoordinateOffset = 1.0

type wallRecord struct {
	X1 float64 `csv:"x1"`
	Y1 float64 `csv:"y1"`
	X2 float64 `csv:"x2"`
	Y2 float64 `csv:"y2"`
}

type positionRecord struct {
	X float64 `csv:"x"`
	Y float64 `csv:"y"`
}

func newListReader(r io.Reader, fields int) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = fields
	cr.TrimLeadingSpace = true
	cr.Comment = '#'
	return cr
}

// LoadWalls reads headerless x1,y1,x2,y2 rows and returns one wall per row
// with CoordinateOffset applied.
func LoadWalls(r io.Reader) ([]Segment, error) {
	var records []wallRecord
	if err := gocsv.UnmarshalCSVWithoutHeaders(newListReader(r, 4), &records); err != nil {
		if errors.Is(err, gocsv.ErrEmptyCSVFile) {
			return nil, nil
		}
		return nil, fmt.Errorf("parsing wall list: %w", err)
	}

	walls := make([]Segment, 0, len(records))
	for _, rec := range records {
		walls = append(walls, NewWall(
			Point{X: rec.X1 + CoordinateOffset, Y: rec.Y1 + CoordinateOffset},
			Point{X: rec.X2 + CoordinateOffset, Y: rec.Y2 + CoordinateOffset},
		))
	}
	return walls, nil
}

// LoadStartPositions reads headerless x,y rows with CoordinateOffset applied
func LoadStartPositions(r io.Reader) ([]Point, error) {
	var records []positionRecord
	if err := gocsv.UnmarshalCSVWithoutHeaders(newListReader(r, 2), &records); err != nil {
		if errors.Is(err, gocsv.ErrEmptyCSVFile) {
			return nil, nil
		}
		return nil, fmt.Errorf("parsing start positions: %w", err)
	}

	points := make([]Point, 0, len(records))
	for _, rec := range records {
		points = append(points, Point{X: rec.X + CoordinateOffset, Y: rec.Y + CoordinateOffset})
	}
	return points, nil
}

func isURL(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

// openListFile opens a coordinate list on disk
func openListFile(location string) (*os.File, error) {
	if location == "" {
		return nil, fmt.Errorf("open input: location is empty")
	}
	f, err := os.Open(location)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("input file not found: %s", location)
		}
		return nil, fmt.Errorf("opening input file: %w", err)
	}
	return f, nil
}

// LoadWallsFrom reads a wall list from a local path, or downloads it with
// FetchWalls when location is an http(s) URL.
func LoadWallsFrom(ctx context.Context, location string, opts ...FetchOption) ([]Segment, error) {
	if isURL(location) {
		return FetchWalls(ctx, location, opts...)
	}
	f, err := openListFile(location)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return LoadWalls(f)
}

// LoadStartPositionsFrom is LoadWallsFrom for start position lists
func LoadStartPositionsFrom(ctx context.Context, location string, opts ...FetchOption) ([]Point, error) {
	if isURL(location) {
		return FetchStartPositions(ctx, location, opts...)
	}
	f, err := openListFile(location)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return LoadStartPositions(f)
}
