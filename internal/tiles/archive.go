// Package tiles serves pre-built Mapbox vector tiles from an MBTiles archive.
// The archive is produced offline (tippecanoe); this package only reads it.
package tiles

import (
	"context"
	"database/sql"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// ErrTileNotFound marks a (z, x, y) with no tile in the archive. The HTTP
// boundary maps it to an empty response, never an error.
var ErrTileNotFound = eris.New("tiles: tile not found")

// Archive reads tiles from an MBTiles file (SQLite, TMS row order).
type Archive struct {
	db      *sql.DB
	minZoom int
	maxZoom int
}

// OpenArchive opens an MBTiles file read-only and reads its zoom bounds from
// the metadata table. Zoom bounds default to 0..22 when absent.
func OpenArchive(path string) (*Archive, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, eris.Wrapf(err, "tiles: stat archive %s", path)
	}

	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, eris.Wrapf(err, "tiles: open archive %s", path)
	}

	a := &Archive{db: db, minZoom: 0, maxZoom: 22}
	meta, err := a.Metadata(context.Background())
	if err != nil {
		db.Close()
		return nil, err
	}
	if v, ok := meta["minzoom"]; ok {
		if z, err := strconv.Atoi(v); err == nil {
			a.minZoom = z
		}
	}
	if v, ok := meta["maxzoom"]; ok {
		if z, err := strconv.Atoi(v); err == nil {
			a.maxZoom = z
		}
	}

	zap.L().Info("tiles: opened archive",
		zap.String("path", path),
		zap.Int("min_zoom", a.minZoom),
		zap.Int("max_zoom", a.maxZoom),
	)
	return a, nil
}

// MinZoom returns the archive's minimum zoom level.
func (a *Archive) MinZoom() int { return a.minZoom }

// MaxZoom returns the archive's maximum zoom level.
func (a *Archive) MaxZoom() int { return a.maxZoom }

// Tile returns the raw tile bytes for XYZ coordinates, translating to the
// archive's TMS row order. Returns ErrTileNotFound on a miss.
func (a *Archive) Tile(ctx context.Context, z, x, y int) ([]byte, error) {
	if z < 0 || x < 0 || y < 0 || x >= 1<<z || y >= 1<<z {
		return nil, eris.Wrapf(ErrTileNotFound, "z=%d x=%d y=%d", z, x, y)
	}

	tmsY := (1 << z) - 1 - y

	var data []byte
	err := a.db.QueryRowContext(ctx,
		`SELECT tile_data FROM tiles WHERE zoom_level = ? AND tile_column = ? AND tile_row = ?`,
		z, x, tmsY,
	).Scan(&data)
	if err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, eris.Wrapf(ErrTileNotFound, "z=%d x=%d y=%d", z, x, y)
		}
		return nil, eris.Wrap(err, "tiles: query tile")
	}
	return data, nil
}

// Metadata returns the archive's metadata table as a map.
func (a *Archive) Metadata(ctx context.Context) (map[string]string, error) {
	rows, err := a.db.QueryContext(ctx, `SELECT name, value FROM metadata`)
	if err != nil {
		return nil, eris.Wrap(err, "tiles: query metadata")
	}
	defer rows.Close()

	meta := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, eris.Wrap(err, "tiles: scan metadata row")
		}
		meta[name] = value
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "tiles: iterate metadata rows")
	}
	return meta, nil
}

func (a *Archive) Close() error {
	return a.db.Close()
}
