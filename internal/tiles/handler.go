package tiles

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Reader is the archive surface the handler needs. *Archive implements it;
// tests substitute stubs.
type Reader interface {
	Tile(ctx context.Context, z, x, y int) ([]byte, error)
	MinZoom() int
	MaxZoom() int
}

// Handler serves archive tiles at /{z}/{x}/{y}.pbf routes. A nil archive
// (no MBTiles file configured) serves empty responses for every tile.
type Handler struct {
	archive Reader
	cache   *Cache
}

// NewHandler creates a tile HTTP handler.
func NewHandler(archive Reader, cache *Cache) *Handler {
	return &Handler{archive: archive, cache: cache}
}

// Enabled reports whether an archive is attached.
func (h *Handler) Enabled() bool { return h.archive != nil }

// ServeHTTP handles a single tile request. Chi must route it with {z}, {x}
// and {y} URL params. Archive misses are empty 204 responses, not errors.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	z, err := strconv.Atoi(chi.URLParam(r, "z"))
	if err != nil {
		http.Error(w, "invalid z coordinate", http.StatusBadRequest)
		return
	}
	x, err := strconv.Atoi(chi.URLParam(r, "x"))
	if err != nil {
		http.Error(w, "invalid x coordinate", http.StatusBadRequest)
		return
	}
	y, err := strconv.Atoi(strings.TrimSuffix(chi.URLParam(r, "y"), ".pbf"))
	if err != nil {
		http.Error(w, "invalid y coordinate", http.StatusBadRequest)
		return
	}

	if h.archive == nil || z < h.archive.MinZoom() || z > h.archive.MaxZoom() {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if h.cache != nil {
		if data, ok := h.cache.Get(z, x, y); ok {
			h.writeTile(w, data, "hit")
			return
		}
	}

	data, err := h.archive.Tile(r.Context(), z, x, y)
	if err != nil && !eris.Is(err, ErrTileNotFound) {
		zap.L().Error("tiles: archive read failed",
			zap.Int("z", z), zap.Int("x", x), zap.Int("y", y),
			zap.Error(err),
		)
		http.Error(w, "tile read failed", http.StatusInternalServerError)
		return
	}

	if h.cache != nil {
		h.cache.Put(z, x, y, data) // nil data caches the miss
	}
	h.writeTile(w, data, "miss")
}

// writeTile writes tile bytes or an empty 204. Gzip-compressed archives are
// passed through with the matching Content-Encoding.
func (h *Handler) writeTile(w http.ResponseWriter, data []byte, cacheState string) {
	w.Header().Set("X-Cache", cacheState)
	if len(data) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.mapbox-vector-tile")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	if len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b {
		w.Header().Set("Content-Encoding", "gzip")
	}
	_, _ = w.Write(data)
}

// StatsHandler returns cache statistics as JSON.
func (h *Handler) StatsHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if h.cache == nil {
		_ = json.NewEncoder(w).Encode(map[string]string{"cache": "disabled"})
		return
	}
	_ = json.NewEncoder(w).Encode(h.cache.Stats())
}
