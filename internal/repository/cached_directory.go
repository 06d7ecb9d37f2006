package repository

import (
	"context"
	"time"

	"participant-import-backend/internal/cache"
	"participant-import-backend/internal/services/importrequest"
	"participant-import-backend/internal/services/reconciler"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// NameCache is the subset of cache.RedisCache used here.
type NameCache interface {
	Get(ctx context.Context, key string, value interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
}

// CachedDirectory caches credential and company names per event. Participants
// are always read through, since every approved import adds to them.
type CachedDirectory struct {
	next  importrequest.Directory
	cache NameCache
	ttl   time.Duration
}

func NewCachedDirectory(next importrequest.Directory, c NameCache, ttl time.Duration) *CachedDirectory {
	return &CachedDirectory{next: next, cache: c, ttl: ttl}
}

func (d *CachedDirectory) ParticipantsByCPF(ctx context.Context, eventID string) (map[string]reconciler.Participant, error) {
	return d.next.ParticipantsByCPF(ctx, eventID)
}

func (d *CachedDirectory) CredentialNames(ctx context.Context, eventID string) ([]string, error) {
	return d.names(ctx, cache.CredentialNamesKey(eventID), func() ([]string, error) {
		return d.next.CredentialNames(ctx, eventID)
	})
}

func (d *CachedDirectory) CompanyNames(ctx context.Context, eventID string) ([]string, error) {
	return d.names(ctx, cache.CompanyNamesKey(eventID), func() ([]string, error) {
		return d.next.CompanyNames(ctx, eventID)
	})
}

func (d *CachedDirectory) names(ctx context.Context, key string, load func() ([]string, error)) ([]string, error) {
	var names []string
	err := d.cache.Get(ctx, key, &names)
	if err == nil {
		return names, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		log.Warn().Err(err).Str("key", key).Msg("name cache read failed")
	}

	names, err = load()
	if err != nil {
		return nil, err
	}
	if err := d.cache.Set(ctx, key, names, d.ttl); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("name cache write failed")
	}
	return names, nil
}
