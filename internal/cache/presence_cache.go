package cache

import (
	"fmt"
	"strconv"
	"time"
)

const (
	// OnlineUserTTL bounds staleness of the per-user key when a process
	// dies without cleaning up; the heartbeat refresh keeps it alive.
	OnlineUserTTL = 90 * time.Second
)

// PresenceCache mirrors the online-user set into Redis. It is a best-effort
// observer-side cache: nothing on the live delivery path reads it, so every
// method tolerates a nil receiver or missing Redis.
type PresenceCache struct {
	redis *RedisCache
}

// NewPresenceCache creates a new presence cache
func NewPresenceCache(redis *RedisCache) *PresenceCache {
	return &PresenceCache{redis: redis}
}

// SetUserOnline adds a user to the online users set
func (pc *PresenceCache) SetUserOnline(userID uint) error {
	if pc == nil || pc.redis == nil {
		return nil
	}
	if err := pc.redis.SetAdd("online:users", userID); err != nil {
		return err
	}
	userKey := fmt.Sprintf("online:%d", userID)
	return pc.redis.Set(userKey, []byte("1"), OnlineUserTTL)
}

// SetUserOffline removes a user from the online users set
func (pc *PresenceCache) SetUserOffline(userID uint) error {
	if pc == nil || pc.redis == nil {
		return nil
	}
	if err := pc.redis.SetRemove("online:users", userID); err != nil {
		return err
	}
	userKey := fmt.Sprintf("online:%d", userID)
	return pc.redis.Delete(userKey)
}

// IsUserOnline checks the mirrored per-user key
func (pc *PresenceCache) IsUserOnline(userID uint) bool {
	if pc == nil || pc.redis == nil {
		return false
	}
	userKey := fmt.Sprintf("online:%d", userID)
	return pc.redis.Exists(userKey)
}

// GetOnlineUsers returns all mirrored online user IDs
func (pc *PresenceCache) GetOnlineUsers() ([]uint, error) {
	if pc == nil || pc.redis == nil {
		return nil, nil
	}
	members, err := pc.redis.SetMembers("online:users")
	if err != nil {
		return nil, err
	}

	userIDs := make([]uint, 0, len(members))
	for _, member := range members {
		if id, err := strconv.ParseUint(member, 10, 32); err == nil {
			userIDs = append(userIDs, uint(id))
		}
	}

	return userIDs, nil
}

// ResetOnline clears every mirrored online flag. Run at startup: a fresh
// process has no live connections, so anything still marked online is stale.
func (pc *PresenceCache) ResetOnline() error {
	users, err := pc.GetOnlineUsers()
	if err != nil {
		return err
	}
	for _, id := range users {
		if err := pc.SetUserOffline(id); err != nil {
			return err
		}
	}
	return nil
}
