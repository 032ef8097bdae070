package dataset

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/tokyo-dap/riskmap/internal/config"
	"github.com/tokyo-dap/riskmap/internal/db"
)

// PostgresStore answers spatial queries against PostGIS tables. Used when
// the service runs in postgis mode; the tables mirror the GeoJSON artifacts
// (risk_grid with per-cell attributes, shelters as points, SRID 4326).
type PostgresStore struct {
	pool db.Pool
}

// NewPostgresStore wraps an existing pool. The pool is closed by Close.
func NewPostgresStore(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const cellColumns = `id, pop_density, residential_units, avg_stories, liq_rank, flood_depth, shelter_dist_km,
       ST_Y(ST_Centroid(geom)), ST_X(ST_Centroid(geom))`

func (s *PostgresStore) CellAt(ctx context.Context, lat, lon float64) (*GridCell, error) {
	sql := `
		SELECT ` + cellColumns + `
		FROM risk_grid
		WHERE ST_Contains(geom, ST_SetSRID(ST_MakePoint($1, $2), 4326))
		LIMIT 1
	`
	cell, err := s.scanCell(s.pool.QueryRow(ctx, sql, lon, lat))
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "dataset: pip risk_grid")
	}
	return cell, nil
}

func (s *PostgresStore) NearestCell(ctx context.Context, lat, lon float64) (*GridCell, float64, error) {
	sql := `
		SELECT ` + cellColumns + `,
		       ST_DistanceSphere(ST_Centroid(geom), ST_SetSRID(ST_MakePoint($1, $2), 4326)) / 1000.0
		FROM risk_grid
		ORDER BY geom <-> ST_SetSRID(ST_MakePoint($1, $2), 4326)
		LIMIT 1
	`
	var c GridCell
	var distKm float64
	err := s.pool.QueryRow(ctx, sql, lon, lat).Scan(
		&c.ID,
		&c.Attrs.PopulationDensity, &c.Attrs.ResidentialUnits, &c.Attrs.BuildingStories,
		&c.Attrs.LiquefactionRank, &c.Attrs.FloodDepth, &c.Attrs.ShelterDistanceKm,
		&c.Centroid.Lat, &c.Centroid.Lon,
		&distKm,
	)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, 0, nil
		}
		return nil, 0, eris.Wrap(err, "dataset: nearest risk_grid cell")
	}
	return &c, distKm, nil
}

func (s *PostgresStore) NearbyShelters(ctx context.Context, lat, lon float64, limit int) ([]ShelterDistance, error) {
	sql := `
		SELECT id, name, ST_Y(geom), ST_X(geom), capacity,
		       ST_DistanceSphere(geom, ST_SetSRID(ST_MakePoint($1, $2), 4326)) / 1000.0 AS dist_km
		FROM shelters
		ORDER BY dist_km, id
		LIMIT $3
	`
	rows, err := s.pool.Query(ctx, sql, lon, lat, limit)
	if err != nil {
		return nil, eris.Wrap(err, "dataset: query nearby shelters")
	}
	defer rows.Close()

	var result []ShelterDistance
	for rows.Next() {
		var sd ShelterDistance
		if err := rows.Scan(&sd.ID, &sd.Name, &sd.Lat, &sd.Lon, &sd.Capacity, &sd.DistanceKm); err != nil {
			return nil, eris.Wrap(err, "dataset: scan shelter row")
		}
		result = append(result, sd)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "dataset: iterate shelter rows")
	}
	return result, nil
}

func (s *PostgresStore) ShelterCount(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM shelters`).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "dataset: count shelters")
	}
	return n, nil
}

func (s *PostgresStore) Mode() string { return config.ModePostGIS }

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) scanCell(row pgx.Row) (*GridCell, error) {
	var c GridCell
	err := row.Scan(
		&c.ID,
		&c.Attrs.PopulationDensity, &c.Attrs.ResidentialUnits, &c.Attrs.BuildingStories,
		&c.Attrs.LiquefactionRank, &c.Attrs.FloodDepth, &c.Attrs.ShelterDistanceKm,
		&c.Centroid.Lat, &c.Centroid.Lon,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
