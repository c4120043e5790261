package usecase

import (
	"context"
	"errors"
	"hash/maphash"
	"sync"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tastemap/backend/internal/domain"
	"github.com/tastemap/backend/internal/infrastructure/cache"
	"github.com/tastemap/backend/internal/infrastructure/metrics"
)

// Defaults for the preference store boundary
const (
	DefaultPreferenceTimeout = 300 * time.Millisecond
	DefaultBreakerFailures   = 5
	DefaultBreakerCooldown   = 30 * time.Second
	DefaultSessionTTL        = 30 * time.Minute
)

// lockStripes bounds the number of per-user mutexes regardless of how many ids are seen
const lockStripes = 64

// PreferenceServiceConfig holds configuration for the preference service
type PreferenceServiceConfig struct {
	// Timeout bounds each repository read and write
	Timeout time.Duration
	// BreakerFailures is the number of consecutive read failures that opens the breaker
	BreakerFailures uint32
	// BreakerCooldown is how long the breaker stays open before probing again
	BreakerCooldown time.Duration
	// SessionTTL is how long a profile is served from memory before it is re-read
	SessionTTL time.Duration
	Now        func() time.Time
}

// sessionEntry is the in-memory profile of one user. A detached entry was
// built on the neutral profile after a failed read and is never written back.
type sessionEntry struct {
	prefs    domain.UserPreferences
	detached bool
}

// PreferenceService owns the in-memory learned profile of each user and
// persists it through a PreferenceRepository. Read failures never reach the
// caller: the neutral profile is returned instead.
type PreferenceService struct {
	repo    domain.PreferenceRepository
	breaker *gobreaker.CircuitBreaker[*domain.UserPreferences]
	timeout time.Duration
	now     func() time.Time
	logger  zerolog.Logger

	sessions    *cache.MemoryCache[sessionEntry]
	sessionTTL  time.Duration
	detachedTTL time.Duration

	seed  maphash.Seed
	locks [lockStripes]sync.Mutex
}

// NewPreferenceService creates a preference service backed by repo
func NewPreferenceService(
	repo domain.PreferenceRepository,
	config PreferenceServiceConfig,
	logger zerolog.Logger,
) *PreferenceService {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultPreferenceTimeout
	}

	failures := config.BreakerFailures
	if failures == 0 {
		failures = DefaultBreakerFailures
	}

	cooldown := config.BreakerCooldown
	if cooldown <= 0 {
		cooldown = DefaultBreakerCooldown
	}

	sessionTTL := config.SessionTTL
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}

	now := config.Now
	if now == nil {
		now = time.Now
	}

	log := logger.With().Str("component", "preference_service").Logger()

	breaker := gobreaker.NewCircuitBreaker[*domain.UserPreferences](gobreaker.Settings{
		Name:    "preference-store",
		Timeout: cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// A missing profile is a normal answer, not a store failure
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, domain.ErrPreferencesNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("preference store breaker state changed")
		},
	})

	return &PreferenceService{
		repo:        repo,
		breaker:     breaker,
		timeout:     timeout,
		now:         now,
		logger:      log,
		sessions:    cache.NewMemoryCache[sessionEntry](sessionTTL, cache.WithClock[sessionEntry](now)),
		sessionTTL:  sessionTTL,
		detachedTTL: min(cooldown, sessionTTL),
		seed:        maphash.MakeSeed(),
	}
}

// Close stops the session janitor
func (s *PreferenceService) Close() {
	s.sessions.Close()
}

// Load returns the profile of userID. Anonymous users, absent profiles and
// store failures all yield the neutral default profile.
func (s *PreferenceService) Load(ctx context.Context, userID string) domain.UserPreferences {
	if userID == "" {
		return domain.DefaultPreferences()
	}

	if entry, ok := s.session(ctx, userID); ok {
		return entry.prefs
	}

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	return s.load(ctx, userID).prefs
}

// load returns the session entry of userID, reading through to the store
// on a miss. The caller holds the user lock, so a read never overwrites a
// concurrent update.
func (s *PreferenceService) load(ctx context.Context, userID string) sessionEntry {
	if entry, ok := s.session(ctx, userID); ok {
		return entry
	}

	prefs, err := s.fetch(ctx, userID)
	if err == nil {
		entry := sessionEntry{prefs: prefs}
		s.remember(ctx, userID, entry)
		return entry
	}

	reason := fallbackReason(err)
	metrics.PreferenceLoadFallbacks.WithLabelValues(reason).Inc()

	if reason == "not_found" {
		s.logger.Debug().Str("user_id", userID).Msg("no stored profile, using defaults")
		// Absence is authoritative; remember it so the session learns on top of it
		entry := sessionEntry{prefs: domain.DefaultPreferences()}
		s.remember(ctx, userID, entry)
		return entry
	}

	s.logger.Warn().
		Err(err).
		Str("user_id", userID).
		Str("reason", reason).
		Msg("preference load failed, using defaults")
	return sessionEntry{prefs: domain.DefaultPreferences(), detached: true}
}

// Learn folds a liked post into the profile of userID.
// Appends are idempotent, labels compare case-insensitively and the
// location is first-write-wins.
func (s *PreferenceService) Learn(ctx context.Context, userID string, post domain.Post) domain.UserPreferences {
	return s.update(ctx, userID, func(p *domain.UserPreferences) bool {
		changed := false
		for _, tag := range post.DietTags {
			if domain.AppendUniqueFold(&p.FavoriteDietTags, tag) {
				changed = true
			}
		}
		if p.FavoriteLocation == "" && post.Location != "" {
			p.FavoriteLocation = post.Location
			changed = true
		}
		if domain.AppendUniqueFold(&p.PreferredMealTypes, post.MealType) {
			changed = true
		}
		if domain.AppendUnique(&p.FavoriteCreatorIDs, post.AuthorID) {
			changed = true
		}
		return changed
	})
}

// LearnVendor adds the cuisine of a favorited vendor to the favorite cuisines
func (s *PreferenceService) LearnVendor(ctx context.Context, userID string, vendor domain.Vendor) domain.UserPreferences {
	return s.update(ctx, userID, func(p *domain.UserPreferences) bool {
		return domain.AppendUniqueFold(&p.FavoriteCuisines, vendor.CuisineOrEmpty())
	})
}

// SetVendorProfile replaces the vendor half of the profile.
// Duplicates are dropped and the price tier is clamped to 1-4.
func (s *PreferenceService) SetVendorProfile(
	ctx context.Context,
	userID string,
	cuisines []string,
	priceTier int,
	dietaryTags []string,
) domain.UserPreferences {
	return s.update(ctx, userID, func(p *domain.UserPreferences) bool {
		p.FavoriteCuisines = []string{}
		for _, c := range cuisines {
			domain.AppendUniqueFold(&p.FavoriteCuisines, c)
		}

		p.DietaryTags = []string{}
		for _, tag := range dietaryTags {
			domain.AppendUniqueFold(&p.DietaryTags, tag)
		}

		p.PreferredPriceTier = min(max(priceTier, 1), 4)
		return true
	})
}

// update applies mutate under the per-user lock and persists the result
// when it reports a change. Persist failures keep the in-memory copy.
// A profile built on a failed read stays in memory so it cannot replace
// the stored one.
func (s *PreferenceService) update(
	ctx context.Context,
	userID string,
	mutate func(*domain.UserPreferences) bool,
) domain.UserPreferences {
	if userID == "" {
		return domain.DefaultPreferences()
	}

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	entry := s.load(ctx, userID)
	prefs := entry.prefs
	if !mutate(&prefs) {
		return prefs
	}

	prefs.UpdatedAt = s.now().UTC()
	entry.prefs = prefs
	s.remember(ctx, userID, entry)

	if entry.detached {
		metrics.PreferenceDetachedWrites.Inc()
		s.logger.Warn().
			Str("user_id", userID).
			Dur("retry_after", s.detachedTTL).
			Msg("stored profile unreadable, keeping learned profile in memory only")
		return prefs.Clone()
	}

	if err := s.persist(ctx, userID, prefs); err != nil {
		metrics.PreferencePersistFailures.Inc()
		s.logger.Warn().
			Err(err).
			Str("user_id", userID).
			Msg("preference persist failed, keeping in-memory profile")
	}

	return prefs.Clone()
}

func (s *PreferenceService) fetch(ctx context.Context, userID string) (domain.UserPreferences, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	prefs, err := s.breaker.Execute(func() (*domain.UserPreferences, error) {
		return s.repo.Get(ctx, userID)
	})
	if err != nil {
		return domain.UserPreferences{}, err
	}
	if prefs == nil {
		return domain.UserPreferences{}, domain.ErrPreferencesNotFound
	}

	out := prefs.Clone()
	out.Normalize()
	return out, nil
}

func (s *PreferenceService) persist(ctx context.Context, userID string, prefs domain.UserPreferences) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	stored := prefs.Clone()
	return s.repo.Put(ctx, userID, &stored)
}

func (s *PreferenceService) session(ctx context.Context, userID string) (sessionEntry, bool) {
	entry, err := s.sessions.Get(ctx, userID)
	if err != nil {
		return sessionEntry{}, false
	}
	entry.prefs = entry.prefs.Clone()
	return entry, true
}

// remember stores entry for the session TTL; detached entries expire with
// the breaker cooldown so the stored profile is read again.
func (s *PreferenceService) remember(ctx context.Context, userID string, entry sessionEntry) {
	ttl := s.sessionTTL
	if entry.detached {
		ttl = s.detachedTTL
	}
	entry.prefs = entry.prefs.Clone()
	_ = s.sessions.Set(ctx, userID, entry, ttl)
	metrics.ActiveSessions.WithLabelValues("preferences").Set(float64(s.sessions.Size()))
}

func (s *PreferenceService) userLock(userID string) *sync.Mutex {
	return &s.locks[maphash.String(s.seed, userID)%lockStripes]
}

// fallbackReason labels a load failure for metrics and logs
func fallbackReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrPreferencesNotFound):
		return "not_found"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "breaker_open"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}
