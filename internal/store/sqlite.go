package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS battlemaps (
  id            TEXT PRIMARY KEY,
  name          TEXT NOT NULL,
  map_path      TEXT,
  grid_scale    REAL NOT NULL DEFAULT 1.0,
  grid_offset_x REAL NOT NULL DEFAULT 0,
  grid_offset_y REAL NOT NULL DEFAULT 0,
  grid_data     TEXT NOT NULL DEFAULT '',
  created_at    INTEGER NOT NULL,
  updated_at    INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS covers (
  id           TEXT PRIMARY KEY,
  battlemap_id TEXT NOT NULL REFERENCES battlemaps(id) ON DELETE CASCADE,
  x      REAL NOT NULL,
  y      REAL NOT NULL,
  width  REAL NOT NULL,
  height REAL NOT NULL,
  color  TEXT NOT NULL
);
`

// SQLite persists battlemaps and covers in a single database file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if necessary) the database at path and applies
// the schema. Foreign keys are enabled so battlemap deletes cascade.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Load returns every battlemap and cover ordered by insertion.
func (s *SQLite) Load(ctx context.Context) ([]BattlemapRow, []CoverRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, map_path, grid_scale, grid_offset_x, grid_offset_y, grid_data, created_at, updated_at FROM battlemaps ORDER BY rowid`)
	if err != nil {
		return nil, nil, fmt.Errorf("load battlemaps: %w", err)
	}
	defer rows.Close()

	var maps []BattlemapRow
	for rows.Next() {
		var row BattlemapRow
		var mapPath sql.NullString
		if err := rows.Scan(&row.ID, &row.Name, &mapPath, &row.GridScale, &row.GridOffsetX, &row.GridOffsetY, &row.GridData, &row.CreatedAt, &row.UpdatedAt); err != nil {
			return nil, nil, fmt.Errorf("scan battlemap: %w", err)
		}
		row.MapPath = mapPath.String
		maps = append(maps, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate battlemaps: %w", err)
	}

	coverRows, err := s.db.QueryContext(ctx, `SELECT id, battlemap_id, x, y, width, height, color FROM covers ORDER BY rowid`)
	if err != nil {
		return nil, nil, fmt.Errorf("load covers: %w", err)
	}
	defer coverRows.Close()

	var covers []CoverRow
	for coverRows.Next() {
		var row CoverRow
		if err := coverRows.Scan(&row.ID, &row.BattlemapID, &row.X, &row.Y, &row.Width, &row.Height, &row.Color); err != nil {
			return nil, nil, fmt.Errorf("scan cover: %w", err)
		}
		covers = append(covers, row)
	}
	if err := coverRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate covers: %w", err)
	}

	return maps, covers, nil
}

// InsertBattlemap stores a freshly created battlemap row.
func (s *SQLite) InsertBattlemap(ctx context.Context, row BattlemapRow) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO battlemaps (id, name, map_path, grid_scale, grid_offset_x, grid_offset_y, grid_data, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.ID, row.Name, nullable(row.MapPath), row.GridScale, row.GridOffsetX, row.GridOffsetY, row.GridData, row.CreatedAt, row.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert battlemap %s: %w", row.ID, err)
	}
	return nil
}

// UpdateBattlemap rewrites the full row for an existing battlemap.
func (s *SQLite) UpdateBattlemap(ctx context.Context, row BattlemapRow) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE battlemaps SET name = ?, map_path = ?, grid_scale = ?, grid_offset_x = ?, grid_offset_y = ?, grid_data = ?, updated_at = ? WHERE id = ?`,
		row.Name, nullable(row.MapPath), row.GridScale, row.GridOffsetX, row.GridOffsetY, row.GridData, row.UpdatedAt, row.ID)
	if err != nil {
		return fmt.Errorf("update battlemap %s: %w", row.ID, err)
	}
	return nil
}

// DeleteBattlemap removes a battlemap row; its covers cascade away.
func (s *SQLite) DeleteBattlemap(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM battlemaps WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete battlemap %s: %w", id, err)
	}
	return nil
}

// InsertCover stores a freshly created cover row.
func (s *SQLite) InsertCover(ctx context.Context, row CoverRow) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO covers (id, battlemap_id, x, y, width, height, color) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		row.ID, row.BattlemapID, row.X, row.Y, row.Width, row.Height, row.Color)
	if err != nil {
		return fmt.Errorf("insert cover %s: %w", row.ID, err)
	}
	return nil
}

// UpdateCover rewrites the geometry and color of an existing cover.
func (s *SQLite) UpdateCover(ctx context.Context, row CoverRow) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE covers SET x = ?, y = ?, width = ?, height = ?, color = ? WHERE id = ?`,
		row.X, row.Y, row.Width, row.Height, row.Color, row.ID)
	if err != nil {
		return fmt.Errorf("update cover %s: %w", row.ID, err)
	}
	return nil
}

// DeleteCover removes a single cover row.
func (s *SQLite) DeleteCover(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM covers WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete cover %s: %w", id, err)
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
