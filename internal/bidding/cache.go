package bidding

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/medibid/auction-api/internal/types"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// cacheTTL bounds staleness on the fast read path. The database stays
// authoritative; a cache miss or expiry just falls through to SQL.
const cacheTTL = 30 * time.Second

// Cache is an optional Redis read cache for the current leader of each
// listing, fed on successful appends and consulted by HighestBid.
type Cache struct {
	rdb *redis.Client
}

func NewCache(addr string) *Cache {
	return &Cache{
		rdb: redis.NewClient(&redis.Options{Addr: addr}),
	}
}

func highestKey(listingID string) string {
	return fmt.Sprintf("listing:%s:highest", listingID)
}

// GetHighest returns the cached leader and whether the cache had one.
func (c *Cache) GetHighest(ctx context.Context, listingID string) (*types.BidRecord, bool) {
	raw, err := c.rdb.Get(ctx, highestKey(listingID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Warn().Err(err).Str("listing_id", listingID).Msg("highest-bid cache read failed")
		}
		return nil, false
	}

	var bid types.BidRecord
	if err := json.Unmarshal(raw, &bid); err != nil {
		log.Warn().Err(err).Str("listing_id", listingID).Msg("highest-bid cache entry corrupt")
		return nil, false
	}
	return &bid, true
}

// SetHighest stores the leader. Best effort.
func (c *Cache) SetHighest(ctx context.Context, listingID string, bid *types.BidRecord) {
	raw, err := json.Marshal(bid)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, highestKey(listingID), raw, cacheTTL).Err(); err != nil {
		log.Warn().Err(err).Str("listing_id", listingID).Msg("highest-bid cache write failed")
	}
}
