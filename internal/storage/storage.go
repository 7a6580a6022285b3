// Package storage persists pipeline output: object records appended one
// frame at a time, track ids filled in once tracking completes, and
// finalized track summaries. The schema is migrated on open.
package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/meridian-data/vapor.report/internal/records"
	"github.com/meridian-data/vapor.report/internal/track"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type DB struct {
	*sql.DB
}

// Open opens (creating if needed) the database at path and applies any
// pending migrations.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	sdb := &DB{db}
	if err := sdb.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return sdb, nil
}

func (db *DB) migrateUp() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(db.DB, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	// Note: not closing m here because it would close the underlying DB
	// connection.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// CreateRun registers a new pipeline run and returns its id. configJSON may
// be nil when the run uses pure defaults.
func (db *DB) CreateRun(configJSON []byte) (string, error) {
	id := uuid.NewString()
	_, err := db.Exec("INSERT INTO runs (id, config_json) VALUES (?, ?)",
		id, string(configJSON))
	if err != nil {
		return "", fmt.Errorf("create run: %w", err)
	}
	return id, nil
}

// AppendRecords stores one frame's object records for a run. Frames arrive
// in time order; each call is a single transaction so a crash never leaves a
// partial frame behind.
func (db *DB) AppendRecords(runID string, frameIndex int, recs []records.Record) error {
	if len(recs) == 0 {
		return nil
	}
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO object_records
			(run_id, frame_index, object_id, time, centroid_lat, centroid_lon,
			 area_km2, length_km, isoq, mean_angle_deg, cross_flux, relaxed,
			 track_id, contour, axis)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare record insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range recs {
		_, err := stmt.Exec(runID, frameIndex, r.ID,
			r.Time.UTC(),
			r.Centroid.Lat, r.Centroid.Lon,
			r.AreaKm2, r.LengthKm, r.Isoq, r.MeanAngleDeg, r.CrossFlux,
			r.Relaxed, r.TrackID,
			records.EncodePolyline(r.Contour), records.EncodePolyline(r.Axis))
		if err != nil {
			return fmt.Errorf("insert record %d of frame %d: %w", r.ID, frameIndex, err)
		}
	}
	return tx.Commit()
}

// AssignTrack fills in a record's track id after tracking completes.
func (db *DB) AssignTrack(runID string, frameIndex, objectID int, trackID string) error {
	res, err := db.Exec(`
		UPDATE object_records SET track_id = ?
		WHERE run_id = ? AND frame_index = ? AND object_id = ?
	`, trackID, runID, frameIndex, objectID)
	if err != nil {
		return fmt.Errorf("assign track: %w", err)
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return fmt.Errorf("no record for run %s frame %d object %d", runID, frameIndex, objectID)
	}
	return nil
}

// SaveTracks stores the finalized track summaries. kept marks tracks that
// survived the quality gate.
func (db *DB) SaveTracks(runID string, tracks []*track.Track, kept map[string]bool) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin track save: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO tracks (run_id, id, first_time, last_time, members, strict_members, kept)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare track insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range tracks {
		if len(t.Records) == 0 {
			continue
		}
		first := t.Records[0].Time.UTC()
		last := t.Records[len(t.Records)-1].Time.UTC()
		_, err := stmt.Exec(runID, t.ID, first, last,
			len(t.Records), t.StrictCount(), kept[t.ID])
		if err != nil {
			return fmt.Errorf("insert track %s: %w", t.ID, err)
		}
	}
	return tx.Commit()
}

// TrackSummary is one row of the tracks table.
type TrackSummary struct {
	ID            string
	FirstTime     time.Time
	LastTime      time.Time
	Members       int
	StrictMembers int
	Kept          bool
}

// TracksForRun returns the run's track summaries in insertion order.
func (db *DB) TracksForRun(runID string) ([]TrackSummary, error) {
	rows, err := db.Query(`
		SELECT id, first_time, last_time, members, strict_members, kept
		FROM tracks WHERE run_id = ? ORDER BY rowid
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query tracks: %w", err)
	}
	defer rows.Close()

	var out []TrackSummary
	for rows.Next() {
		var s TrackSummary
		// the driver converts TIMESTAMP columns to time.Time on scan
		if err := rows.Scan(&s.ID, &s.FirstTime, &s.LastTime, &s.Members, &s.StrictMembers, &s.Kept); err != nil {
			return nil, fmt.Errorf("scan track: %w", err)
		}
		s.FirstTime = s.FirstTime.UTC()
		s.LastTime = s.LastTime.UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}

// RecordsForRun returns the run's object records in frame order.
func (db *DB) RecordsForRun(runID string) ([]records.Record, error) {
	rows, err := db.Query(`
		SELECT object_id, time, centroid_lat, centroid_lon, area_km2,
		       length_km, isoq, mean_angle_deg, cross_flux, relaxed,
		       track_id, contour, axis
		FROM object_records WHERE run_id = ?
		ORDER BY frame_index, object_id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []records.Record
	for rows.Next() {
		var r records.Record
		var contour, axis string
		err := rows.Scan(&r.ID, &r.Time, &r.Centroid.Lat, &r.Centroid.Lon,
			&r.AreaKm2, &r.LengthKm, &r.Isoq, &r.MeanAngleDeg, &r.CrossFlux,
			&r.Relaxed, &r.TrackID, &contour, &axis)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		r.Time = r.Time.UTC()
		if r.Contour, err = records.DecodePolyline(contour); err != nil {
			return nil, fmt.Errorf("record %d contour: %w", r.ID, err)
		}
		if r.Axis, err = records.DecodePolyline(axis); err != nil {
			return nil, fmt.Errorf("record %d axis: %w", r.ID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
