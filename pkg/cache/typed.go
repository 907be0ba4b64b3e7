package cache

import (
	"encoding/json"
	"fmt"
	"time"
)

// GetTyped decodes the fresh JSON value for key into T. It reports false
// when the key is missing, stale or does not decode as T.
func GetTyped[T any](s *Store, key string) (T, bool) {
	var v T
	data, ok := s.Get(key)
	if !ok {
		return v, false
	}
	if err := json.Unmarshal(data, &v); err != nil {
		var zero T
		return zero, false
	}
	return v, true
}

// LookupTyped decodes the JSON value for key into T, fresh or stale. The
// second result reports staleness.
func LookupTyped[T any](s *Store, key string) (v T, stale bool, ok bool) {
	e, ok := s.Lookup(key)
	if !ok {
		return v, false, false
	}
	if err := json.Unmarshal(e.Data, &v); err != nil {
		var zero T
		return zero, false, false
	}
	return v, e.Stale, true
}

// PutTyped encodes value as JSON and stores it with the default TTL.
func PutTyped[T any](s *Store, key string, value T) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: marshal %q: %w", key, err)
	}
	return s.Put(key, data)
}

// PutTypedWithTTL encodes value as JSON and stores it with a custom TTL.
func PutTypedWithTTL[T any](s *Store, key string, value T, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: marshal %q: %w", key, err)
	}
	return s.PutWithTTL(key, data, ttl)
}
