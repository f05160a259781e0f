package main

import (
	"encoding/json"
	"image/png"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/kwv/gridmesh/mapping"
)

// episodeSummary is the /episodes listing entry: an EpisodeResult without
// its path and map.
type episodeSummary struct {
	ID            int                 `json:"id"`
	Start         mapping.Point       `json:"start"`
	Final         mapping.Point       `json:"final"`
	Steps         int                 `json:"steps"`
	ObservedCells int                 `json:"observedCells"`
	Rotation      int                 `json:"rotation"`
	Proposals     mapping.MapperStats `json:"proposals"`
	MapRows       int                 `json:"mapRows"`
	MapCols       int                 `json:"mapCols"`
	Error         string              `json:"error,omitempty"`
}

func summarizeEpisode(ep mapping.EpisodeResult) episodeSummary {
	s := episodeSummary{
		ID:            ep.ID,
		Start:         ep.Start,
		Final:         ep.Final,
		Steps:         ep.Steps,
		ObservedCells: ep.ObservedCells,
		Rotation:      ep.Rotation,
		Proposals:     ep.Proposals,
		Error:         ep.Error,
	}
	if ep.Map != nil {
		s.MapRows, s.MapCols = ep.Map.Dims()
	}
	return s
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[HTTP] Error encoding response: %v", err)
	}
}

// newHTTPServer creates an HTTP server with all endpoints
func newHTTPServer(stateTracker *mapping.StateTracker, config *mapping.Config) http.Handler {
	mux := http.NewServeMux()

	cellSize := 16
	bins := mapping.DefaultBins
	if config != nil {
		cellSize = config.Output.CellSize
		bins = config.Mapper.Bins
	}

	// episodeFor resolves {id}, writing the error response itself
	episodeFor := func(w http.ResponseWriter, r *http.Request) (mapping.EpisodeResult, bool) {
		id, err := strconv.Atoi(r.PathValue("id"))
		if err != nil {
			http.Error(w, "Invalid episode id", http.StatusBadRequest)
			return mapping.EpisodeResult{}, false
		}
		ep, ok := stateTracker.GetEpisode(id)
		if !ok {
			http.Error(w, "Episode not found", http.StatusNotFound)
			return mapping.EpisodeResult{}, false
		}
		return ep, true
	}

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[HTTP] /health request from %s", r.RemoteAddr)
		status := struct {
			Status    string    `json:"status"`
			Timestamp time.Time `json:"timestamp"`
			Running   bool      `json:"running"`
			Episodes  int       `json:"episodes"`
			HasResult bool      `json:"hasResult"`
		}{
			Status:    "ok",
			Timestamp: time.Now(),
			Running:   stateTracker.Running(),
			Episodes:  len(stateTracker.GetEpisodes()),
			HasResult: stateTracker.GetResult() != nil,
		}
		writeJSON(w, status)
	})

	mux.HandleFunc("GET /episodes", func(w http.ResponseWriter, r *http.Request) {
		episodes := stateTracker.GetEpisodes()
		out := make([]episodeSummary, 0, len(episodes))
		for _, ep := range episodes {
			out = append(out, summarizeEpisode(ep))
		}
		writeJSON(w, out)
	})

	mux.HandleFunc("GET /episodes/{id}", func(w http.ResponseWriter, r *http.Request) {
		ep, ok := episodeFor(w, r)
		if !ok {
			return
		}
		writeJSON(w, ep)
	})

	mux.HandleFunc("GET /episodes/{id}/map.png", func(w http.ResponseWriter, r *http.Request) {
		ep, ok := episodeFor(w, r)
		if !ok {
			return
		}
		if ep.Map == nil {
			http.Error(w, "Episode produced no map", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-cache")
		if err := mapping.NewGridRenderer(ep.Map, cellSize, "").WritePNG(w); err != nil {
			log.Printf("[HTTP] Error encoding map PNG: %v", err)
		}
	})

	worldRenderer := func(ep mapping.EpisodeResult) *mapping.WorldRenderer {
		arena, walls := stateTracker.GetArena()
		wr := mapping.NewWorldRenderer(arena, walls, ep.Path)
		wr.PathColor = mapping.EpisodeColor(ep.ID)
		wr.Bins = bins
		return wr
	}

	mux.HandleFunc("GET /episodes/{id}/world.svg", func(w http.ResponseWriter, r *http.Request) {
		ep, ok := episodeFor(w, r)
		if !ok {
			return
		}
		w.Header().Set("Content-Type", "image/svg+xml")
		w.Header().Set("Cache-Control", "no-cache")
		if err := worldRenderer(ep).RenderToSVG(w); err != nil {
			log.Printf("[HTTP] Error rendering world SVG: %v", err)
		}
	})

	mux.HandleFunc("GET /episodes/{id}/world.png", func(w http.ResponseWriter, r *http.Request) {
		ep, ok := episodeFor(w, r)
		if !ok {
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-cache")
		if err := worldRenderer(ep).RenderToPNG(w); err != nil {
			log.Printf("[HTTP] Error rendering world PNG: %v", err)
		}
	})

	mux.HandleFunc("GET /episodes/{id}/path.geojson", func(w http.ResponseWriter, r *http.Request) {
		ep, ok := episodeFor(w, r)
		if !ok {
			return
		}
		_, walls := stateTracker.GetArena()
		fc := mapping.EpisodeFeatureCollection(ep, walls, mapping.DefaultPathTolerance)
		data, err := fc.MarshalJSON()
		if err != nil {
			http.Error(w, "Error encoding GeoJSON", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/geo+json")
		if _, err := w.Write(data); err != nil {
			log.Printf("[HTTP] Error writing GeoJSON: %v", err)
		}
	})

	mux.HandleFunc("GET /similarity", func(w http.ResponseWriter, r *http.Request) {
		result := stateTracker.GetResult()
		if result == nil {
			http.Error(w, "No finished experiment", http.StatusServiceUnavailable)
			return
		}
		pairs := result.Similarity
		if pairs == nil {
			pairs = []mapping.SimilarityPair{}
		}
		writeJSON(w, struct {
			Pairs   []mapping.SimilarityPair  `json:"pairs"`
			Summary mapping.SimilaritySummary `json:"summary"`
		}{pairs, result.Summary})
	})

	mux.HandleFunc("GET /live.png", func(w http.ResponseWriter, r *http.Request) {
		arena, _ := stateTracker.GetArena()
		if arena.Width <= 0 || arena.Height <= 0 {
			http.Error(w, "No arena available", http.StatusServiceUnavailable)
			return
		}
		img := mapping.RenderLive(arena, stateTracker.GetPositions(), 40)
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-cache")
		if err := png.Encode(w, img); err != nil {
			log.Printf("[HTTP] Error encoding live PNG: %v", err)
		}
	})

	return mux
}
