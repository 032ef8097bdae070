package tiles

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

// stubReader serves tiles from a fixed map keyed by "z/x/y".
type stubReader struct {
	tiles   map[string][]byte
	minZoom int
	maxZoom int
	err     error
	reads   int
}

func (s *stubReader) Tile(_ context.Context, z, x, y int) ([]byte, error) {
	s.reads++
	if s.err != nil {
		return nil, s.err
	}
	data, ok := s.tiles[tileKey(z, x, y)]
	if !ok {
		return nil, ErrTileNotFound
	}
	return data, nil
}

func (s *stubReader) MinZoom() int { return s.minZoom }
func (s *stubReader) MaxZoom() int { return s.maxZoom }

func tileRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/tiles/{z}/{x}/{y}", h.ServeHTTP)
	return r
}

func doTileRequest(t *testing.T, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestHandler_ServesTile(t *testing.T) {
	t.Parallel()

	data := []byte{0x1a, 0x05, 0x74, 0x6f, 0x6b}
	reader := &stubReader{
		tiles:   map[string][]byte{"14/14552/6451": data},
		maxZoom: 15,
	}
	h := NewHandler(reader, nil)

	rr := doTileRequest(t, tileRouter(h), "/tiles/14/14552/6451.pbf")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/vnd.mapbox-vector-tile", rr.Header().Get("Content-Type"))
	assert.Equal(t, "miss", rr.Header().Get("X-Cache"))
	assert.Empty(t, rr.Header().Get("Content-Encoding"))
	assert.Equal(t, data, rr.Body.Bytes())
}

func TestHandler_GzipPassthrough(t *testing.T) {
	t.Parallel()

	gz := []byte{0x1f, 0x8b, 0x08, 0x00}
	reader := &stubReader{
		tiles:   map[string][]byte{"14/1/1": gz},
		maxZoom: 15,
	}
	h := NewHandler(reader, nil)

	rr := doTileRequest(t, tileRouter(h), "/tiles/14/1/1.pbf")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "gzip", rr.Header().Get("Content-Encoding"))
}

func TestHandler_MissingTileIsEmpty(t *testing.T) {
	t.Parallel()

	reader := &stubReader{tiles: map[string][]byte{}, maxZoom: 15}
	h := NewHandler(reader, nil)

	rr := doTileRequest(t, tileRouter(h), "/tiles/14/0/0.pbf")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Empty(t, rr.Body.Bytes())
}

func TestHandler_ZoomOutOfRange(t *testing.T) {
	t.Parallel()

	reader := &stubReader{tiles: map[string][]byte{}, minZoom: 10, maxZoom: 15}
	h := NewHandler(reader, nil)
	router := tileRouter(h)

	for _, path := range []string{"/tiles/9/0/0.pbf", "/tiles/16/0/0.pbf"} {
		rr := doTileRequest(t, router, path)
		assert.Equal(t, http.StatusNoContent, rr.Code, path)
	}
	assert.Zero(t, reader.reads, "out-of-range zooms never touch the archive")
}

func TestHandler_BadCoordinates(t *testing.T) {
	t.Parallel()

	reader := &stubReader{tiles: map[string][]byte{}, maxZoom: 15}
	h := NewHandler(reader, nil)
	router := tileRouter(h)

	for _, path := range []string{
		"/tiles/abc/0/0.pbf",
		"/tiles/14/xyz/0.pbf",
		"/tiles/14/0/nope.pbf",
	} {
		rr := doTileRequest(t, router, path)
		assert.Equal(t, http.StatusBadRequest, rr.Code, path)
	}
}

func TestHandler_NilArchive(t *testing.T) {
	t.Parallel()

	h := NewHandler(nil, NewCache(10, time.Minute))
	assert.False(t, h.Enabled())

	rr := doTileRequest(t, tileRouter(h), "/tiles/14/0/0.pbf")
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestHandler_CacheHit(t *testing.T) {
	t.Parallel()

	data := []byte{0x1a, 0x02}
	reader := &stubReader{
		tiles:   map[string][]byte{"14/1/1": data},
		maxZoom: 15,
	}
	h := NewHandler(reader, NewCache(10, time.Minute))
	router := tileRouter(h)

	rr := doTileRequest(t, router, "/tiles/14/1/1.pbf")
	assert.Equal(t, "miss", rr.Header().Get("X-Cache"))

	rr = doTileRequest(t, router, "/tiles/14/1/1.pbf")
	assert.Equal(t, "hit", rr.Header().Get("X-Cache"))
	assert.Equal(t, data, rr.Body.Bytes())
	assert.Equal(t, 1, reader.reads, "second request is served from cache")
}

func TestHandler_CachesArchiveMiss(t *testing.T) {
	t.Parallel()

	reader := &stubReader{tiles: map[string][]byte{}, maxZoom: 15}
	h := NewHandler(reader, NewCache(10, time.Minute))
	router := tileRouter(h)

	rr := doTileRequest(t, router, "/tiles/14/2/2.pbf")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = doTileRequest(t, router, "/tiles/14/2/2.pbf")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "hit", rr.Header().Get("X-Cache"))
	assert.Equal(t, 1, reader.reads, "empty tile is cached too")
}

func TestHandler_ArchiveError(t *testing.T) {
	t.Parallel()

	reader := &stubReader{err: errors.New("database is locked"), maxZoom: 15}
	h := NewHandler(reader, nil)

	rr := doTileRequest(t, tileRouter(h), "/tiles/14/1/1.pbf")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestHandler_StatsHandler(t *testing.T) {
	t.Parallel()

	h := NewHandler(nil, NewCache(10, time.Minute))
	rr := httptest.NewRecorder()
	h.StatsHandler(rr, httptest.NewRequest(http.MethodGet, "/tiles/stats", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "max_entries")

	noCache := NewHandler(nil, nil)
	rr = httptest.NewRecorder()
	noCache.StatsHandler(rr, httptest.NewRequest(http.MethodGet, "/tiles/stats", nil))
	assert.Contains(t, rr.Body.String(), "disabled")
}

func TestHandler_DecodesPbfSuffix(t *testing.T) {
	t.Parallel()

	// The y param may arrive with or without the .pbf suffix depending on
	// the route pattern.
	reader := &stubReader{
		tiles:   map[string][]byte{"14/3/3": {0x01}},
		maxZoom: 15,
	}
	h := NewHandler(reader, nil)

	rr := doTileRequest(t, tileRouter(h), "/tiles/14/3/3")
	assert.Equal(t, http.StatusOK, rr.Code)
}

var _ Reader = (*Archive)(nil)
