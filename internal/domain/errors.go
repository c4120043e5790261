package domain

import "errors"

var (
	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrRateLimited is returned when rate limit is exceeded
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrCacheMiss is returned when data is not found in cache or has expired
	ErrCacheMiss = errors.New("cache miss")

	// ErrPreferencesNotFound is returned when a user has no stored profile
	ErrPreferencesNotFound = errors.New("preferences not found")

	// ErrPreferenceStoreFailure is returned when the preference store cannot be read or written
	ErrPreferenceStoreFailure = errors.New("preference store request failed")
)
