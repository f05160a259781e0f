package mapping

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
)

const (
	// ResultsFile holds the full ExperimentResult as JSON
	ResultsFile = "results.json"
	// SimilarityFile holds one CSV row per compared pair of maps
	SimilarityFile = "similarity.csv"
	// EpisodesFile holds one CSV row per episode
	EpisodesFile = "episodes.csv"
)

// episodeRecord is the CSV form of an EpisodeResult
type episodeRecord struct {
	ID            int     `csv:"id"`
	StartX        float64 `csv:"start_x"`
	StartY        float64 `csv:"start_y"`
	FinalX        float64 `csv:"final_x"`
	FinalY        float64 `csv:"final_y"`
	Steps         int     `csv:"steps"`
	ObservedCells int     `csv:"observed_cells"`
	MapRows       int     `csv:"map_rows"`
	MapCols       int     `csv:"map_cols"`
	Rotation      int     `csv:"rotation"`
	Proposals     int     `csv:"proposals"`
	Attempts      int     `csv:"attempts"`
	Forced        int     `csv:"forced"`
	Error         string  `csv:"error"`
}

func newEpisodeRecord(ep EpisodeResult) episodeRecord {
	rec := episodeRecord{
		ID:            ep.ID,
		StartX:        ep.Start.X,
		StartY:        ep.Start.Y,
		FinalX:        ep.Final.X,
		FinalY:        ep.Final.Y,
		Steps:         ep.Steps,
		ObservedCells: ep.ObservedCells,
		Rotation:      ep.Rotation,
		Proposals:     ep.Proposals.Proposals,
		Attempts:      ep.Proposals.Attempts,
		Forced:        ep.Proposals.Forced,
		Error:         ep.Error,
	}
	if ep.Map != nil {
		rec.MapRows, rec.MapCols = ep.Map.Dims()
	}
	return rec
}

// SaveResults writes results.json, similarity.csv and episodes.csv into dir
func SaveResults(dir string, result *ExperimentResult) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating results directory: %w", err)
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling results: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ResultsFile), data, 0644); err != nil {
		return fmt.Errorf("writing results file: %w", err)
	}

	pairs := result.Similarity
	if pairs == nil {
		pairs = []SimilarityPair{}
	}
	if err := writeCSV(filepath.Join(dir, SimilarityFile), &pairs); err != nil {
		return fmt.Errorf("writing similarity: %w", err)
	}

	records := make([]episodeRecord, 0, len(result.Episodes))
	for _, ep := range result.Episodes {
		records = append(records, newEpisodeRecord(ep))
	}
	if err := writeCSV(filepath.Join(dir, EpisodesFile), &records); err != nil {
		return fmt.Errorf("writing episodes: %w", err)
	}

	return nil
}

func writeCSV(path string, records any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := gocsv.MarshalFile(records, f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// LoadResults reads a results.json written by SaveResults
func LoadResults(path string) (*ExperimentResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading results file: %w", err)
	}

	var result ExperimentResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("parsing results file: %w", err)
	}
	return &result, nil
}

// LoadSimilarityCSV reads a similarity.csv written by SaveResults
func LoadSimilarityCSV(path string) ([]SimilarityPair, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening similarity file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var pairs []SimilarityPair
	if err := gocsv.UnmarshalFile(f, &pairs); err != nil {
		return nil, fmt.Errorf("parsing similarity file: %w", err)
	}
	return pairs, nil
}
