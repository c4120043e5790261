package preferences

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"github.com/tastemap/backend/internal/domain"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS user_preferences (
	user_id    TEXT PRIMARY KEY,
	profile    TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

// OpenSQLite opens (or creates) a SQLite database at the given path with WAL journaling
func OpenSQLite(path string) (*sql.DB, error) {
	// ensure parent directory exists to avoid SQLITE_CANTOPEN errors
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// SQLiteRepository stores each profile as a JSON document in one row
type SQLiteRepository struct {
	db *sql.DB
}

var _ domain.PreferenceRepository = (*SQLiteRepository)(nil)

// NewSQLiteRepository wires a repository to db and creates its table
func NewSQLiteRepository(ctx context.Context, db *sql.DB) (*SQLiteRepository, error) {
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return nil, fmt.Errorf("create user_preferences table: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

// Get returns the stored profile of userID
func (r *SQLiteRepository) Get(ctx context.Context, userID string) (*domain.UserPreferences, error) {
	var profile string
	row := r.db.QueryRowContext(ctx, `SELECT profile FROM user_preferences WHERE user_id = ?`, userID)
	if err := row.Scan(&profile); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPreferencesNotFound
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrPreferenceStoreFailure, err)
	}

	var prefs domain.UserPreferences
	if err := json.Unmarshal([]byte(profile), &prefs); err != nil {
		return nil, fmt.Errorf("%w: decode profile: %v", domain.ErrPreferenceStoreFailure, err)
	}
	return &prefs, nil
}

// Put inserts or replaces the profile of userID
func (r *SQLiteRepository) Put(ctx context.Context, userID string, prefs *domain.UserPreferences) error {
	if err := validatePut(userID, prefs); err != nil {
		return err
	}

	data, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `INSERT INTO user_preferences (user_id, profile, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET profile = excluded.profile, updated_at = excluded.updated_at`,
		userID, string(data), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPreferenceStoreFailure, err)
	}
	return nil
}

// HealthCheck pings the database
func (r *SQLiteRepository) HealthCheck(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
