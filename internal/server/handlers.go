package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/tokyo-dap/riskmap/internal/config"
	"github.com/tokyo-dap/riskmap/internal/dataset"
	"github.com/tokyo-dap/riskmap/internal/risk"
	"github.com/tokyo-dap/riskmap/internal/shelter"
)

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

type configResponse struct {
	Mode     string          `json:"mode"`
	Version  string          `json:"version"`
	Features map[string]bool `json:"features"`
}

type nearbySheltersResponse struct {
	Shelters []dataset.ShelterDistance `json:"shelters"`
	Lat      float64                   `json:"lat"`
	Lon      float64                   `json:"lon"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "healthy", Version: config.Version})
}

func (s *Server) handleConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, configResponse{
		Mode:    s.mode,
		Version: config.Version,
		Features: map[string]bool{
			"database":   s.mode == config.ModePostGIS,
			"local_mode": s.mode == config.ModeLocal,
			"tiles":      s.tileh.Enabled(),
			"shelters":   true,
		},
	})
}

func (s *Server) handleRiskScore(w http.ResponseWriter, r *http.Request) {
	lat, lon, ok := parseLatLon(w, r)
	if !ok {
		return
	}

	result, err := s.engine.Score(r.Context(), lat, lon)
	if err != nil {
		if eris.Is(err, risk.ErrInvalidCoordinate) {
			writeError(w, http.StatusBadRequest, "lat/lon out of range")
			return
		}
		zap.L().Error("risk score failed", zap.Float64("lat", lat), zap.Float64("lon", lon), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "error calculating risk")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSheltersNearby(w http.ResponseWriter, r *http.Request) {
	lat, lon, ok := parseLatLon(w, r)
	if !ok {
		return
	}

	limit := s.locator.DefaultLimit()
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = n
	}

	shelters, err := s.locator.Nearby(r.Context(), lat, lon, limit)
	if err != nil {
		switch {
		case eris.Is(err, shelter.ErrInvalidLimit):
			writeError(w, http.StatusBadRequest, "limit must be positive")
		case eris.Is(err, shelter.ErrInvalidCoordinate):
			writeError(w, http.StatusBadRequest, "lat/lon out of range")
		default:
			zap.L().Error("shelter lookup failed", zap.Float64("lat", lat), zap.Float64("lon", lon), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "error finding shelters")
		}
		return
	}
	writeJSON(w, http.StatusOK, nearbySheltersResponse{Shelters: shelters, Lat: lat, Lon: lon})
}

// parseLatLon reads required lat/lon query params, writing a 400 on failure.
func parseLatLon(w http.ResponseWriter, r *http.Request) (float64, float64, bool) {
	q := r.URL.Query()
	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "lat must be a number")
		return 0, 0, false
	}
	lon, err := strconv.ParseFloat(q.Get("lon"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "lon must be a number")
		return 0, 0, false
	}
	return lat, lon, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
