package appstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/geomesh/proximity/internal/projection"
)

// Postgres is a durable Store backed by a pgxpool.Pool. It expects the
// schema created by Migrate.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps an already-connected pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Migrate creates the tables Postgres needs if they don't exist.
// Intended for local/dev use; production deployments are expected to
// manage schema migration out of band.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tenants (
			app       TEXT PRIMARY KEY,
			auth_key  TEXT NOT NULL,
			hmac_key  BYTEA NOT NULL,
			max_zoom  INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS points (
			app       TEXT NOT NULL REFERENCES tenants(app) ON DELETE CASCADE,
			point_id  TEXT NOT NULL,
			coord_x   DOUBLE PRECISION,
			coord_y   DOUBLE PRECISION,
			coord_z   DOUBLE PRECISION,
			has_coord BOOLEAN NOT NULL DEFAULT FALSE,
			PRIMARY KEY (app, point_id)
		)`,
		`CREATE TABLE IF NOT EXISTS point_subjects (
			app        TEXT NOT NULL,
			point_id   TEXT NOT NULL,
			subject_id TEXT NOT NULL,
			priority   DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (app, point_id, subject_id),
			FOREIGN KEY (app, point_id) REFERENCES points(app, point_id) ON DELETE CASCADE
		)`,
	}
	for _, s := range stmts {
		if _, err := pool.Exec(ctx, s); err != nil {
			return fmt.Errorf("appstore: migrate: %w", err)
		}
	}
	return nil
}

// CreateTenant provisions (or overwrites) a tenant's auth/HMAC keys and
// max zoom level. Intended for operator tooling (cmd/geoctl), not the
// request-serving path.
func CreateTenant(ctx context.Context, pool *pgxpool.Pool, app, authKey string, hmacKey []byte, maxZoom int) error {
	_, err := pool.Exec(ctx,
		`INSERT INTO tenants (app, auth_key, hmac_key, max_zoom) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (app) DO UPDATE SET auth_key = $2, hmac_key = $3, max_zoom = $4`,
		app, authKey, hmacKey, maxZoom,
	)
	if err != nil {
		return fmt.Errorf("appstore: create tenant: %w", err)
	}
	return nil
}

func (p *Postgres) GetAuthKey(ctx context.Context, app string) (string, error) {
	var authKey string
	err := p.pool.QueryRow(ctx, `SELECT auth_key FROM tenants WHERE app = $1`, app).Scan(&authKey)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("appstore: get auth key: %w", err)
	}
	return authKey, nil
}

func (p *Postgres) GetHMACKey(ctx context.Context, app string) ([]byte, error) {
	var key []byte
	err := p.pool.QueryRow(ctx, `SELECT hmac_key FROM tenants WHERE app = $1`, app).Scan(&key)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("appstore: get hmac key: %w", err)
	}
	return key, nil
}

func (p *Postgres) GetMaxZoomLevel(ctx context.Context, app string) (int, error) {
	var zoom int
	err := p.pool.QueryRow(ctx, `SELECT max_zoom FROM tenants WHERE app = $1`, app).Scan(&zoom)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("appstore: get max zoom: %w", err)
	}
	return zoom, nil
}

func (p *Postgres) HasPoint(ctx context.Context, app, pointID string) (bool, error) {
	var exists bool
	err := p.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM points WHERE app = $1 AND point_id = $2)`, app, pointID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("appstore: has point: %w", err)
	}
	return exists, nil
}

func (p *Postgres) GetPointSubjects(ctx context.Context, app, pointID string) ([]Subject, error) {
	has, err := p.HasPoint(ctx, app, pointID)
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, ErrNotFound
	}

	rows, err := p.pool.Query(ctx,
		`SELECT subject_id, priority FROM point_subjects WHERE app = $1 AND point_id = $2`, app, pointID,
	)
	if err != nil {
		return nil, fmt.Errorf("appstore: get point subjects: %w", err)
	}
	defer rows.Close()

	var out []Subject
	for rows.Next() {
		var s Subject
		if err := rows.Scan(&s.SubjectID, &s.Priority); err != nil {
			return nil, fmt.Errorf("appstore: scan subject: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *Postgres) GetPointsCoords(ctx context.Context, app string, pointIDs []string) ([]PointCoord, error) {
	if len(pointIDs) == 0 {
		return nil, nil
	}

	rows, err := p.pool.Query(ctx,
		`SELECT point_id, coord_x, coord_y, coord_z FROM points
		 WHERE app = $1 AND point_id = ANY($2) AND has_coord`, app, pointIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("appstore: get points coords: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]PointCoord)
	for rows.Next() {
		var pc PointCoord
		if err := rows.Scan(&pc.PointID, &pc.Coord.X, &pc.Coord.Y, &pc.Coord.Z); err != nil {
			return nil, fmt.Errorf("appstore: scan point coord: %w", err)
		}
		byID[pc.PointID] = pc
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]PointCoord, 0, len(pointIDs))
	for _, id := range pointIDs {
		if pc, ok := byID[id]; ok {
			out = append(out, pc)
		}
	}
	return out, nil
}

func (p *Postgres) SetPointCoord(ctx context.Context, app, pointID string, coord projection.Cube) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE points SET coord_x = $3, coord_y = $4, coord_z = $5, has_coord = TRUE
		 WHERE app = $1 AND point_id = $2`, app, pointID, coord.X, coord.Y, coord.Z,
	)
	if err != nil {
		return fmt.Errorf("appstore: set point coord: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) AddPoint(ctx context.Context, app, pointID string) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO points (app, point_id, has_coord) VALUES ($1, $2, FALSE)
		 ON CONFLICT (app, point_id) DO NOTHING`, app, pointID,
	)
	if err != nil {
		return fmt.Errorf("appstore: add point: %w", err)
	}
	return nil
}

func (p *Postgres) DeletePoint(ctx context.Context, app, pointID string) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM points WHERE app = $1 AND point_id = $2`, app, pointID)
	if err != nil {
		return fmt.Errorf("appstore: delete point: %w", err)
	}
	return nil
}

func (p *Postgres) SetPointSubjects(ctx context.Context, app, pointID string, subjects []Subject) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("appstore: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM point_subjects WHERE app = $1 AND point_id = $2`, app, pointID); err != nil {
		return fmt.Errorf("appstore: clear subjects: %w", err)
	}

	for _, s := range subjects {
		_, err := tx.Exec(ctx,
			`INSERT INTO point_subjects (app, point_id, subject_id, priority) VALUES ($1, $2, $3, $4)`,
			app, pointID, s.SubjectID, s.Priority,
		)
		if err != nil {
			return fmt.Errorf("appstore: insert subject: %w", err)
		}
	}

	return tx.Commit(ctx)
}
