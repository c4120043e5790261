package preferences

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tastemap/backend/internal/domain"
)

// Key prefix for BadgerDB storage
const prefsKeyPrefix = "prefs:"

// OpenBadger opens a BadgerDB directory with badger's own logging disabled
func OpenBadger(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	return badger.Open(opts)
}

// BadgerRepository stores profiles as JSON values under "prefs:<userID>"
type BadgerRepository struct {
	db *badger.DB
}

var _ domain.PreferenceRepository = (*BadgerRepository)(nil)

// NewBadgerRepository creates a BadgerDB-backed repository
func NewBadgerRepository(db *badger.DB) *BadgerRepository {
	return &BadgerRepository{db: db}
}

// Get retrieves the profile of userID
func (r *BadgerRepository) Get(ctx context.Context, userID string) (*domain.UserPreferences, error) {
	var prefs domain.UserPreferences

	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(prefsKeyPrefix + userID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return domain.ErrPreferencesNotFound
		}
		if err != nil {
			return fmt.Errorf("%w: get profile: %v", domain.ErrPreferenceStoreFailure, err)
		}

		return item.Value(func(val []byte) error {
			if err := json.Unmarshal(val, &prefs); err != nil {
				return fmt.Errorf("%w: decode profile: %v", domain.ErrPreferenceStoreFailure, err)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return &prefs, nil
}

// Put stores the profile of userID
func (r *BadgerRepository) Put(ctx context.Context, userID string, prefs *domain.UserPreferences) error {
	if err := validatePut(userID, prefs); err != nil {
		return err
	}

	data, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}

	return r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(prefsKeyPrefix+userID), data); err != nil {
			return fmt.Errorf("%w: set profile: %v", domain.ErrPreferenceStoreFailure, err)
		}
		return nil
	})
}

// HealthCheck reports whether the database is still open
func (r *BadgerRepository) HealthCheck(ctx context.Context) error {
	if r.db.IsClosed() {
		return fmt.Errorf("%w: badger database is closed", domain.ErrPreferenceStoreFailure)
	}
	return nil
}
