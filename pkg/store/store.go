// Package store is the durable local key/value persistence of the game:
// high score, race history, daily challenge completion and player settings.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	_ "modernc.org/sqlite"

	"github.com/golangdaddy/roadchain/pkg/models"
)

const (
	keyHighScore        = "high_score"
	keyChallengeDate    = "challenge_completed_date"
	keyAutoSubmit       = "auto_submit"
	keyLastSelectedCar  = "last_selected_car"
	keyStreamSchemaIDs  = "stream_schema_ids"
	defaultHistoryLimit = models.DefaultHistoryCapacity
)

// SQLiteStore implements the local store on top of sqlite
type SQLiteStore struct {
	db              *sql.DB
	historyCapacity int
}

type Option func(*SQLiteStore)

// WithHistoryCapacity changes how many history entries are kept
func WithHistoryCapacity(n int) Option {
	return func(s *SQLiteStore) {
		if n > 0 {
			s.historyCapacity = n
		}
	}
}

// Open opens (or creates) the database at path and runs the migrations.
// ":memory:" gives a throwaway store.
func Open(path string, opts ...Option) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single connection keeps :memory: databases alive and serializes writers
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, historyCapacity: defaultHistoryLimit}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate creates the tables if they do not exist
func (s *SQLiteStore) Migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS history (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			score INTEGER NOT NULL,
			distance INTEGER NOT NULL,
			obstacles_avoided INTEGER NOT NULL,
			bonus_boxes_collected INTEGER NOT NULL,
			lap_time_ms INTEGER NOT NULL,
			car_used TEXT NOT NULL,
			played_at INTEGER NOT NULL,
			new_high_score INTEGER NOT NULL DEFAULT 0
		)`,
	}
	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return v, true, nil
}

func (s *SQLiteStore) set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// HighScore returns the best stored score, 0 when none was recorded
func (s *SQLiteStore) HighScore(ctx context.Context) (int, error) {
	v, ok, err := s.get(ctx, keyHighScore)
	if err != nil || !ok {
		return 0, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("corrupt high score %q: %w", v, err)
	}
	return n, nil
}

// SetHighScore overwrites the best score
func (s *SQLiteStore) SetHighScore(ctx context.Context, score int) error {
	return s.set(ctx, keyHighScore, strconv.Itoa(score))
}

// AppendHistory stores e as the newest entry and drops entries beyond the
// history capacity
func (s *SQLiteStore) AppendHistory(ctx context.Context, e models.GameHistoryEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO history (id, score, distance, obstacles_avoided, bonus_boxes_collected,
			lap_time_ms, car_used, played_at, new_high_score)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Score, e.Distance, e.ObstaclesAvoided, e.BonusBoxesCollected,
		e.LapTime.Milliseconds(), e.CarUsed, e.Timestamp.UnixMilli(), e.IsNewHighScore)
	if err != nil {
		return fmt.Errorf("failed to insert history entry: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		DELETE FROM history WHERE seq NOT IN (
			SELECT seq FROM history ORDER BY seq DESC LIMIT ?
		)`, s.historyCapacity)
	if err != nil {
		return fmt.Errorf("failed to trim history: %w", err)
	}
	return tx.Commit()
}

// History returns the stored entries, newest first
func (s *SQLiteStore) History(ctx context.Context) (*models.History, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, score, distance, obstacles_avoided, bonus_boxes_collected,
			lap_time_ms, car_used, played_at, new_high_score
		FROM history ORDER BY seq DESC LIMIT ?`, s.historyCapacity)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var newestFirst []models.GameHistoryEntry
	for rows.Next() {
		var (
			e        models.GameHistoryEntry
			lapMs    int64
			playedAt int64
		)
		if err := rows.Scan(&e.ID, &e.Score, &e.Distance, &e.ObstaclesAvoided, &e.BonusBoxesCollected,
			&lapMs, &e.CarUsed, &playedAt, &e.IsNewHighScore); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		e.LapTime = time.Duration(lapMs) * time.Millisecond
		e.Timestamp = time.UnixMilli(playedAt).UTC()
		newestFirst = append(newestFirst, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	h := models.NewHistory(s.historyCapacity)
	for i := len(newestFirst) - 1; i >= 0; i-- {
		h.Add(newestFirst[i])
	}
	return h, nil
}

// CompletedChallengeDate returns the date key of the last completed daily
// challenge, empty when none
func (s *SQLiteStore) CompletedChallengeDate(ctx context.Context) (string, error) {
	v, _, err := s.get(ctx, keyChallengeDate)
	return v, err
}

func (s *SQLiteStore) SetCompletedChallengeDate(ctx context.Context, date string) error {
	return s.set(ctx, keyChallengeDate, date)
}

// AutoSubmit returns the auto-submission setting, def when it was never set
func (s *SQLiteStore) AutoSubmit(ctx context.Context, def bool) (bool, error) {
	v, ok, err := s.get(ctx, keyAutoSubmit)
	if err != nil || !ok {
		return def, err
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("corrupt auto submit setting %q: %w", v, err)
	}
	return b, nil
}

func (s *SQLiteStore) SetAutoSubmit(ctx context.Context, on bool) error {
	return s.set(ctx, keyAutoSubmit, strconv.FormatBool(on))
}

// LastSelectedCar returns the id of the car picked in the garage last time
func (s *SQLiteStore) LastSelectedCar(ctx context.Context) (uint64, bool, error) {
	v, ok, err := s.get(ctx, keyLastSelectedCar)
	if err != nil || !ok {
		return 0, false, err
	}
	id, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt car id %q: %w", v, err)
	}
	return id, true, nil
}

func (s *SQLiteStore) SetLastSelectedCar(ctx context.Context, id uint64) error {
	return s.set(ctx, keyLastSelectedCar, strconv.FormatUint(id, 10))
}

// SchemaIDs returns the cached stream schema ids by schema name
func (s *SQLiteStore) SchemaIDs(ctx context.Context) (map[string]string, error) {
	v, ok, err := s.get(ctx, keyStreamSchemaIDs)
	if err != nil || !ok {
		return map[string]string{}, err
	}
	ids := map[string]string{}
	if err := json.Unmarshal([]byte(v), &ids); err != nil {
		return nil, fmt.Errorf("corrupt schema id cache: %w", err)
	}
	return ids, nil
}

func (s *SQLiteStore) SetSchemaIDs(ctx context.Context, ids map[string]string) error {
	b, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("failed to encode schema ids: %w", err)
	}
	return s.set(ctx, keyStreamSchemaIDs, string(b))
}
