package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/desertthunder/stereo/internal/models"
	"github.com/desertthunder/stereo/internal/shared"
)

var selectColumns = columnList(models.Columns)

// UserColumns are the fields that hold listening data rather than catalogue data.
var UserColumns = []string{"rating", "play_count", "last_played"}

// TrackRepository stores the tracks of one collection file.
type TrackRepository struct {
	db   *sql.DB
	path string
}

// NewTrackRepository creates a new TrackRepository with the given database connection
func NewTrackRepository(db *sql.DB) *TrackRepository {
	return &TrackRepository{db: db}
}

// OpenTrackRepository opens (creating if needed) the collection at path.
func OpenTrackRepository(path string) (*TrackRepository, error) {
	db, err := shared.OpenCollection(path)
	if err != nil {
		return nil, err
	}
	return &TrackRepository{db: db, path: path}, nil
}

// CreateCollection creates a new, empty collection file.
//
// Returns [shared.ErrCollectionExists] when something already exists at path.
func CreateCollection(path string) (*TrackRepository, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("%w: %s", shared.ErrCollectionExists, path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create collection directory: %w", err)
	}
	return OpenTrackRepository(path)
}

// Path is the collection file, empty for repositories built on an existing connection.
func (r *TrackRepository) Path() string {
	return r.path
}

// Close closes the underlying database.
func (r *TrackRepository) Close() error {
	return r.db.Close()
}

// Collection describes the repository as a [models.Collection].
func (r *TrackRepository) Collection() (models.Collection, error) {
	n, err := r.Count(nil)
	if err != nil {
		return models.Collection{}, err
	}
	return models.Collection{Path: r.path, Size: n}, nil
}

// Insert stores a track. An existing track with the same yt_id is replaced when
// overwrite is set and left untouched otherwise.
func (r *TrackRepository) Insert(track *models.Track, overwrite bool) error {
	if err := track.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if _, err := r.db.Exec(insertQuery(overwrite), trackArgs(track)...); err != nil {
		return fmt.Errorf("failed to insert track: %w", err)
	}

	return nil
}

// InsertMany stores tracks in one transaction and returns the number of rows written.
func (r *TrackRepository) InsertMany(tracks []models.Track, overwrite bool) (int, error) {
	if len(tracks) == 0 {
		return 0, nil
	}
	for i := range tracks {
		if err := tracks[i].Validate(); err != nil {
			return 0, fmt.Errorf("validation failed for %q: %w", tracks[i].YTID, err)
		}
	}

	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(insertQuery(overwrite))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	written := 0
	for i := range tracks {
		res, err := stmt.Exec(trackArgs(&tracks[i])...)
		if err != nil {
			return 0, fmt.Errorf("failed to insert track %q: %w", tracks[i].YTID, err)
		}
		n, _ := res.RowsAffected()
		written += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit tracks: %w", err)
	}
	return written, nil
}

// Update sets the given columns of one track.
func (r *TrackRepository) Update(ytID string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}

	cols := make([]string, 0, len(fields))
	for col := range fields {
		if !models.IsColumn(col) || col == "yt_id" {
			return fmt.Errorf("%w: %q", shared.ErrUnknownColumn, col)
		}
		cols = append(cols, col)
	}

	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols)+1)
	for i, col := range cols {
		sets[i] = ident(col) + " = ?"
		args = append(args, fields[col])
	}
	args = append(args, ytID)

	query := "UPDATE tracks SET " + strings.Join(sets, ", ") + " WHERE yt_id = ?"
	result, err := r.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to update track: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrTrackNotFound, ytID)
	}

	return nil
}

// SetRating sets or clears the rating of a track and returns the updated track.
func (r *TrackRepository) SetRating(ytID string, rating *int) (*models.Track, error) {
	if rating != nil && (*rating < 0 || *rating > 5) {
		return nil, fmt.Errorf("%w: rating %d", shared.ErrInvalidInput, *rating)
	}
	if err := r.Update(ytID, map[string]any{"rating": rating}); err != nil {
		return nil, err
	}
	return r.Get(ytID)
}

// Replace swaps old for updated in one transaction; the yt_id may change.
func (r *TrackRepository) Replace(old, updated *models.Track) error {
	if err := updated.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if old.YTID != updated.YTID {
		if _, err := tx.Exec("DELETE FROM tracks WHERE yt_id = ?", old.YTID); err != nil {
			return fmt.Errorf("failed to remove old track: %w", err)
		}
	}
	if _, err := tx.Exec(insertQuery(true), trackArgs(updated)...); err != nil {
		return fmt.Errorf("failed to write track: %w", err)
	}

	return tx.Commit()
}

// deleteBatch keeps each DELETE below SQLite's bound-variable limit.
const deleteBatch = 500

// Delete removes tracks by yt_id and returns how many were removed.
func (r *TrackRepository) Delete(ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	removed := 0
	for chunk := range slices.Chunk(ids, deleteBatch) {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(chunk)), ", ")
		args := make([]any, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}

		result, err := tx.Exec("DELETE FROM tracks WHERE yt_id IN ("+placeholders+")", args...)
		if err != nil {
			return 0, fmt.Errorf("failed to delete tracks: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to get affected rows: %w", err)
		}
		removed += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit delete: %w", err)
	}
	return removed, nil
}

// Get retrieves a track by yt_id.
func (r *TrackRepository) Get(ytID string) (*models.Track, error) {
	row := r.db.QueryRow("SELECT "+selectColumns+" FROM tracks WHERE yt_id = ?", ytID)
	return scanTrack(row)
}

// Exists reports whether the collection holds ytID.
func (r *TrackRepository) Exists(ytID string) (bool, error) {
	var one int
	err := r.db.QueryRow("SELECT 1 FROM tracks WHERE yt_id = ? LIMIT 1", ytID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check track: %w", err)
	}
	return true, nil
}

// Random returns a random track, or [shared.ErrTrackNotFound] for an empty collection.
func (r *TrackRepository) Random() (*models.Track, error) {
	row := r.db.QueryRow("SELECT " + selectColumns + " FROM tracks ORDER BY RANDOM() LIMIT 1")
	return scanTrack(row)
}

// Count returns the number of tracks matching filter.
func (r *TrackRepository) Count(filter models.FilterModel) (int, error) {
	where, args, err := BuildWhere(filter)
	if err != nil {
		return 0, err
	}

	query := "SELECT COUNT(*) FROM tracks"
	if where != "" {
		query += " WHERE " + where
	}

	var n int
	if err := r.db.QueryRow(query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count tracks: %w", err)
	}
	return n, nil
}

// Rows returns tracks [start, end) under the given sort and filter.
func (r *TrackRepository) Rows(start, end int, sort models.SortModel, filter models.FilterModel) ([]models.Track, error) {
	if start < 0 || end < start {
		return nil, fmt.Errorf("%w: rows %d..%d", shared.ErrInvalidInput, start, end)
	}

	where, args, err := BuildWhere(filter)
	if err != nil {
		return nil, err
	}
	order, err := BuildOrder(sort)
	if err != nil {
		return nil, err
	}

	query := "SELECT " + selectColumns + " FROM tracks"
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY " + order + " LIMIT ? OFFSET ?"
	args = append(args, end-start, start)

	return r.queryTracks(query, args...)
}

// RowIndex returns the position of ytID under the given sort and filter, or -1
// when the track is not part of the filtered rows.
func (r *TrackRepository) RowIndex(ytID string, sort models.SortModel, filter models.FilterModel) (int, error) {
	where, args, err := BuildWhere(filter)
	if err != nil {
		return 0, err
	}
	order, err := BuildOrder(sort)
	if err != nil {
		return 0, err
	}

	inner := "SELECT yt_id, ROW_NUMBER() OVER (ORDER BY " + order + ") - 1 AS idx FROM tracks"
	if where != "" {
		inner += " WHERE " + where
	}
	query := "SELECT idx FROM (" + inner + ") WHERE yt_id = ?"
	args = append(args, ytID)

	var idx int
	err = r.db.QueryRow(query, args...).Scan(&idx)
	if errors.Is(err, sql.ErrNoRows) {
		return -1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to find row index: %w", err)
	}
	return idx, nil
}

// All returns every track in insertion order.
func (r *TrackRepository) All() ([]models.Track, error) {
	return r.queryTracks("SELECT " + selectColumns + " FROM tracks ORDER BY rowid")
}

// IncPlayCount bumps the play count, stamps last_played and returns the updated track.
func (r *TrackRepository) IncPlayCount(ytID string, today models.Date) (*models.Track, error) {
	result, err := r.db.Exec(
		"UPDATE tracks SET play_count = COALESCE(play_count, 0) + 1, last_played = ? WHERE yt_id = ?",
		today, ytID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count play: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("%w: %s", shared.ErrTrackNotFound, ytID)
	}
	return r.Get(ytID)
}

// ImportFrom copies tracks from the collection at path, skipping ids already present.
//
// Only catalogue columns are copied unless keepUserData is set. Columns missing
// from the source are left at their defaults. Returns the number of tracks added.
func (r *TrackRepository) ImportFrom(ctx context.Context, path string, keepUserData bool) (int, error) {
	if err := ValidateCollection(path); err != nil {
		return 0, err
	}

	cols := append([]string(nil), models.CatalogueColumns...)
	if keepUserData {
		cols = append(cols, UserColumns...)
	}

	// ATTACH is per connection.
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "ATTACH DATABASE ? AS source_db", path); err != nil {
		return 0, fmt.Errorf("failed to attach %s: %w", path, err)
	}
	defer conn.ExecContext(context.Background(), "DETACH DATABASE source_db")

	sourceCols, err := tableColumns(ctx, conn, "source_db")
	if err != nil {
		return 0, err
	}

	common := make([]string, 0, len(cols))
	for _, c := range cols {
		if sourceCols[c] {
			common = append(common, c)
		}
	}
	if len(common) == 0 {
		return 0, fmt.Errorf("%w: no columns to import", shared.ErrInvalidCollection)
	}

	list := columnList(common)
	result, err := conn.ExecContext(ctx, "INSERT OR IGNORE INTO main.tracks ("+list+") SELECT "+list+" FROM source_db.tracks")
	if err != nil {
		return 0, fmt.Errorf("failed to import tracks: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return int(n), nil
}

func (r *TrackRepository) queryTracks(query string, args ...any) ([]models.Track, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	tracks := []models.Track{}
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, *track)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return tracks, nil
}

// ValidateCollection reports whether path is an SQLite file with a usable tracks table:
// every track column present and yt_id as primary key.
func ValidateCollection(path string) error {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return fmt.Errorf("%w: %s", shared.ErrInvalidCollection, path)
	}

	db, err := shared.NewDatabase("file:" + path + "?mode=ro")
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidCollection, err)
	}
	defer db.Close()

	rows, err := db.Query("PRAGMA table_info(tracks)")
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidCollection, err)
	}
	defer rows.Close()

	found := map[string]bool{}
	pk := ""
	for rows.Next() {
		var (
			cid     int
			name    string
			typ     string
			notNull int
			dflt    sql.NullString
			pkPos   int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pkPos); err != nil {
			return fmt.Errorf("%w: %v", shared.ErrInvalidCollection, err)
		}
		found[name] = true
		if pkPos == 1 {
			pk = name
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidCollection, err)
	}

	if len(found) == 0 {
		return fmt.Errorf("%w: no tracks table", shared.ErrInvalidCollection)
	}
	for _, col := range models.Columns {
		if !found[col] {
			return fmt.Errorf("%w: missing column %s", shared.ErrInvalidCollection, col)
		}
	}
	if pk != "yt_id" {
		return fmt.Errorf("%w: yt_id is not the primary key", shared.ErrInvalidCollection)
	}
	return nil
}

func tableColumns(ctx context.Context, conn *sql.Conn, schema string) (map[string]bool, error) {
	rows, err := conn.QueryContext(ctx, "SELECT name FROM pragma_table_info('tracks', ?)", schema)
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", schema, err)
	}
	defer rows.Close()

	cols := map[string]bool{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		cols[name] = true
	}
	return cols, rows.Err()
}

func insertQuery(overwrite bool) string {
	conflict := "IGNORE"
	if overwrite {
		conflict = "REPLACE"
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(models.Columns)), ", ")
	return "INSERT OR " + conflict + " INTO tracks (" + selectColumns + ") VALUES (" + placeholders + ")"
}

// trackArgs returns the values of t in [models.Columns] order.
func trackArgs(t *models.Track) []any {
	return []any{
		t.YTID, t.BPID, t.MBID, t.Title, t.MixName, t.Artists, t.ReleaseDate, t.Label, t.Album,
		t.Length, t.BPM, t.Genre, t.Key, t.Mood, t.Rating, t.PlayCount, t.LastPlayed,
	}
}

type scanner interface {
	Scan(dest ...any) error
}

// scanTrack scans one row selected with selectColumns.
func scanTrack(s scanner) (*models.Track, error) {
	var (
		t         models.Track
		playCount sql.NullInt64
	)

	err := s.Scan(
		&t.YTID, &t.BPID, &t.MBID, &t.Title, &t.MixName, &t.Artists, &t.ReleaseDate, &t.Label, &t.Album,
		&t.Length, &t.BPM, &t.Genre, &t.Key, &t.Mood, &t.Rating, &playCount, &t.LastPlayed,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrTrackNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan track: %w", err)
	}
	t.PlayCount = int(playCount.Int64)

	return &t, nil
}
