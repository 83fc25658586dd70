package patients

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheTTL = 10 * time.Minute

// Cache is a Redis read-through cache for latest-artifact lookups. All
// methods are nil-safe so the store works without Redis configured.
type Cache struct {
	client *redis.Client
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// LatestProfile returns the cached latest profile, or nil on miss or error.
func (c *Cache) LatestProfile(ctx context.Context, patientID string) *StoredProfile {
	if c == nil || c.client == nil {
		return nil
	}
	payload, err := c.client.Get(ctx, profileKey(patientID)).Bytes()
	if err != nil {
		return nil
	}
	var stored StoredProfile
	if err := json.Unmarshal(payload, &stored); err != nil {
		return nil
	}
	return &stored
}

// SetLatestProfile caches the latest profile. Errors are ignored; the cache
// is best effort.
func (c *Cache) SetLatestProfile(ctx context.Context, stored *StoredProfile) {
	if c == nil || c.client == nil || stored == nil {
		return
	}
	payload, err := json.Marshal(stored)
	if err != nil {
		return
	}
	c.client.Set(ctx, profileKey(stored.PatientID), payload, cacheTTL)
}

// LatestCoachMessage returns the cached latest coach message, or nil.
func (c *Cache) LatestCoachMessage(ctx context.Context, patientID string) *StoredCoachMessage {
	if c == nil || c.client == nil {
		return nil
	}
	payload, err := c.client.Get(ctx, coachKey(patientID)).Bytes()
	if err != nil {
		return nil
	}
	var stored StoredCoachMessage
	if err := json.Unmarshal(payload, &stored); err != nil {
		return nil
	}
	return &stored
}

// SetLatestCoachMessage caches the latest coach message.
func (c *Cache) SetLatestCoachMessage(ctx context.Context, stored *StoredCoachMessage) {
	if c == nil || c.client == nil || stored == nil {
		return
	}
	payload, err := json.Marshal(stored)
	if err != nil {
		return
	}
	c.client.Set(ctx, coachKey(stored.PatientID), payload, cacheTTL)
}

func profileKey(patientID string) string {
	return "patients:profile:latest:" + patientID
}

func coachKey(patientID string) string {
	return "patients:coach:latest:" + patientID
}
