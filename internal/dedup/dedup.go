// Package dedup filters duplicate webhook deliveries by Telegram update id.
// It is a best-effort edge filter: when redis is unavailable updates pass
// through, and the idempotent referral insert plus the conditional ledger
// update below remain the hard guarantees.
package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const defaultTTL = 24 * time.Hour

type Deduper struct {
	rdb *redis.Client
	ttl time.Duration
}

func New(rdb *redis.Client) *Deduper {
	return &Deduper{rdb: rdb, ttl: defaultTTL}
}

// Seen marks the update id and reports whether it was already marked. Redis
// failure reports not-seen so processing continues.
func (d *Deduper) Seen(ctx context.Context, updateID int) bool {
	key := fmt.Sprintf("update:%d", updateID)
	set, err := d.rdb.SetNX(ctx, key, "1", d.ttl).Result()
	if err != nil {
		log.Warn().Err(err).Int("update_id", updateID).Msg("dedup check failed, processing anyway")
		return false
	}
	return !set
}
