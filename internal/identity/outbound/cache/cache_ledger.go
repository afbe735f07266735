package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/otpgate/internal/identity/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
)

func (c *Cache) RecordIssuance(ctx context.Context, rec entity.AttemptRecord) (err error) {
	ctx, span := c.startSpan(ctx, "RecordIssuance")
	defer func() { c.endSpan(span, err) }()

	key := ledgerKey(rec.Identity, rec.Purpose)
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, key, redis.Z{Score: float64(rec.IssuedAt.UnixMilli()), Member: strconv.FormatInt(rec.ID, 10)})
		pipe.PExpire(ctx, key, c.ledgerTTL)
		return nil
	})
	return err
}

// reserveScript adds the member only while fewer than ARGV[4] members score
// above ARGV[1]. It returns the count afterwards and whether it added.
var reserveScript = redis.NewScript(`
local n = redis.call('ZCOUNT', KEYS[1], ARGV[1], '+inf')
if n >= tonumber(ARGV[4]) then
	return {n, 0}
end
redis.call('ZADD', KEYS[1], ARGV[2], ARGV[3])
redis.call('PEXPIRE', KEYS[1], ARGV[5])
return {n + 1, 1}
`)

func (c *Cache) Reserve(ctx context.Context, rec entity.AttemptRecord, since time.Time, limit int) (n int, ok bool, err error) {
	ctx, span := c.startSpan(ctx, "Reserve")
	defer func() { c.endSpan(span, err) }()

	res, err := reserveScript.Run(ctx, c.client, []string{ledgerKey(rec.Identity, rec.Purpose)},
		exclusive(since),
		rec.IssuedAt.UnixMilli(),
		strconv.FormatInt(rec.ID, 10),
		limit,
		c.ledgerTTL.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return 0, false, err
	}
	if len(res) != 2 {
		return 0, false, fmt.Errorf("reserve: unexpected reply of %d values", len(res))
	}
	return int(res[0]), res[1] == 1, nil
}

func (c *Cache) Remove(ctx context.Context, rec entity.AttemptRecord) (err error) {
	ctx, span := c.startSpan(ctx, "Remove")
	defer func() { c.endSpan(span, err) }()

	return c.client.ZRem(ctx, ledgerKey(rec.Identity, rec.Purpose), strconv.FormatInt(rec.ID, 10)).Err()
}

func (c *Cache) CountRecent(ctx context.Context, identity string, purpose entity.Purpose, since time.Time) (n int, err error) {
	ctx, span := c.startSpan(ctx, "CountRecent")
	defer func() { c.endSpan(span, err) }()

	count, err := c.client.ZCount(ctx, ledgerKey(identity, purpose), exclusive(since), "+inf").Result()
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

func (c *Cache) OldestRecent(ctx context.Context, identity string, purpose entity.Purpose, since time.Time) (at time.Time, err error) {
	ctx, span := c.startSpan(ctx, "OldestRecent")
	defer func() { c.endSpan(span, err) }()

	zs, err := c.client.ZRangeByScoreWithScores(ctx, ledgerKey(identity, purpose), &redis.ZRangeBy{
		Min:   exclusive(since),
		Max:   "+inf",
		Count: 1,
	}).Result()
	if err != nil {
		return time.Time{}, err
	}
	if len(zs) == 0 {
		return time.Time{}, goerror.ErrNotFound
	}
	return time.UnixMilli(int64(zs[0].Score)).UTC(), nil
}

// PurgeBefore trims every ledger key. Keys also expire on their own, this only
// shrinks sets of identities that keep requesting codes.
func (c *Cache) PurgeBefore(ctx context.Context, before time.Time) (purged int64, err error) {
	ctx, span := c.startSpan(ctx, "PurgeBefore")
	defer func() { c.endSpan(span, err) }()

	maxScore := strconv.FormatInt(before.UnixMilli(), 10)
	iter := c.client.Scan(ctx, 0, "otp:ledger:*", 200).Iterator()
	for iter.Next(ctx) {
		n, err := c.client.ZRemRangeByScore(ctx, iter.Val(), "-inf", maxScore).Result()
		if err != nil {
			return purged, err
		}
		purged += n
	}
	return purged, iter.Err()
}

func exclusive(t time.Time) string {
	return "(" + strconv.FormatInt(t.UnixMilli(), 10)
}
