package permission

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const maskCacheTTL = 10 * time.Minute

// redisMaskCache stores one hash per guild keyed by user id. Role
// mutations drop the whole guild hash in one DEL.
type redisMaskCache struct {
	client *redis.Client
}

// NewRedisMaskCache builds a MaskCache over the given client.
func NewRedisMaskCache(client *redis.Client) MaskCache {
	return &redisMaskCache{client: client}
}

func guildKey(guildID string) string {
	return "perm:" + guildID
}

func (c *redisMaskCache) Get(ctx context.Context, guildID, userID string) (uint64, bool, error) {
	val, err := c.client.HGet(ctx, guildKey(guildID), userID).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	mask, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, false, err
	}
	return mask, true, nil
}

func (c *redisMaskCache) Set(ctx context.Context, guildID, userID string, mask uint64) error {
	key := guildKey(guildID)
	if err := c.client.HSet(ctx, key, userID, strconv.FormatUint(mask, 10)).Err(); err != nil {
		return err
	}
	return c.client.Expire(ctx, key, maskCacheTTL).Err()
}

func (c *redisMaskCache) InvalidateGuild(ctx context.Context, guildID string) error {
	return c.client.Del(ctx, guildKey(guildID)).Err()
}
