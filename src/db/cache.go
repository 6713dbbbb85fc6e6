package db

import (
	"context"
	"fmt"
	"time"

	"fintrack-server/src/models"

	"github.com/dgraph-io/ristretto"
)

// ProfileCache keeps recently read user profiles so that the profile guard
// and the date preference lookups do not hit the store on every request.
// Entries expire after ttl and are dropped explicitly on profile writes.
type ProfileCache struct {
	cache *ristretto.Cache
	ttl   time.Duration
}

func NewProfileCache(ttl time.Duration) (*ProfileCache, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10000, // number of keys to track frequency of
		MaxCost:     10000,
		BufferItems: 64, // number of keys per Get buffer
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}
	return &ProfileCache{cache: cache, ttl: ttl}, nil
}

func profileKey(userID string) string {
	return "profile:" + userID
}

func (c *ProfileCache) Get(userID string) (*models.User, bool) {
	v, ok := c.cache.Get(profileKey(userID))
	if !ok {
		return nil, false
	}
	u, ok := v.(models.User)
	if !ok {
		return nil, false
	}
	return &u, true
}

// Set stores a copy of u. Writes are buffered by ristretto; call Wait when a
// following Get must observe them.
func (c *ProfileCache) Set(u *models.User) {
	c.cache.SetWithTTL(profileKey(u.ID), *u, 1, c.ttl)
}

func (c *ProfileCache) Wait() {
	c.cache.Wait()
}

func (c *ProfileCache) Del(userID string) {
	c.cache.Del(profileKey(userID))
}

func (c *ProfileCache) Clear() {
	c.cache.Clear()
}

func (c *ProfileCache) Close() {
	c.cache.Close()
}

// Load returns the cached profile for userID, reading through to users on a
// miss.
func (c *ProfileCache) Load(ctx context.Context, users UserStore, userID string) (*models.User, error) {
	if u, ok := c.Get(userID); ok {
		return u, nil
	}
	u, err := users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	c.Set(u)
	return u, nil
}
