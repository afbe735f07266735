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

const (
	fieldCodeHash  = "code_hash"
	fieldIssuedAt  = "issued_at"
	fieldExpiresAt = "expires_at"
	fieldAttempts  = "attempts"
)

// incrementScript bumps the attempt counter only when the record exists, so a
// concurrent Delete never resurrects a partial hash.
var incrementScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return false
end
redis.call('HINCRBY', KEYS[1], 'attempts', 1)
return redis.call('HGETALL', KEYS[1])
`)

// consumeScript deletes the record only while it still holds ARGV[1].
var consumeScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'code_hash') == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

func (c *Cache) Put(ctx context.Context, rec entity.OTPRecord) (err error) {
	ctx, span := c.startSpan(ctx, "Put")
	defer func() { c.endSpan(span, err) }()

	key := recordKey(rec.Identity, rec.Purpose)
	ttl := rec.ExpiresAt.Sub(rec.IssuedAt) + c.retention
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key,
			fieldCodeHash, rec.CodeHash,
			fieldIssuedAt, rec.IssuedAt.UnixMilli(),
			fieldExpiresAt, rec.ExpiresAt.UnixMilli(),
			fieldAttempts, 0,
		)
		pipe.PExpire(ctx, key, max(ttl, time.Second))
		return nil
	})
	return err
}

func (c *Cache) Get(ctx context.Context, identity string, purpose entity.Purpose) (rec *entity.OTPRecord, err error) {
	ctx, span := c.startSpan(ctx, "Get")
	defer func() { c.endSpan(span, err) }()

	fields, err := c.client.HGetAll(ctx, recordKey(identity, purpose)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, goerror.ErrNotFound
	}
	return decodeRecord(identity, purpose, fields)
}

func (c *Cache) IncrementAttempt(ctx context.Context, identity string, purpose entity.Purpose) (rec *entity.OTPRecord, err error) {
	ctx, span := c.startSpan(ctx, "IncrementAttempt")
	defer func() { c.endSpan(span, err) }()

	res, err := incrementScript.Run(ctx, c.client, []string{recordKey(identity, purpose)}).StringSlice()
	if err != nil {
		return nil, c.mapError(err)
	}

	fields := make(map[string]string, len(res)/2)
	for i := 0; i+1 < len(res); i += 2 {
		fields[res[i]] = res[i+1]
	}
	return decodeRecord(identity, purpose, fields)
}

func (c *Cache) Consume(ctx context.Context, identity string, purpose entity.Purpose, codeHash string) (ok bool, err error) {
	ctx, span := c.startSpan(ctx, "Consume")
	defer func() { c.endSpan(span, err) }()

	n, err := consumeScript.Run(ctx, c.client, []string{recordKey(identity, purpose)}, codeHash).Int64()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (c *Cache) Delete(ctx context.Context, identity string, purpose entity.Purpose) (err error) {
	ctx, span := c.startSpan(ctx, "Delete")
	defer func() { c.endSpan(span, err) }()

	return c.client.Del(ctx, recordKey(identity, purpose)).Err()
}

// PurgeExpired is a no-op, record keys carry their own TTL.
func (c *Cache) PurgeExpired(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func decodeRecord(identity string, purpose entity.Purpose, fields map[string]string) (*entity.OTPRecord, error) {
	issuedAt, err := strconv.ParseInt(fields[fieldIssuedAt], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", fieldIssuedAt, err)
	}
	expiresAt, err := strconv.ParseInt(fields[fieldExpiresAt], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", fieldExpiresAt, err)
	}
	attempts, err := strconv.Atoi(fields[fieldAttempts])
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", fieldAttempts, err)
	}

	return &entity.OTPRecord{
		Identity:           identity,
		Purpose:            purpose,
		CodeHash:           fields[fieldCodeHash],
		IssuedAt:           time.UnixMilli(issuedAt).UTC(),
		ExpiresAt:          time.UnixMilli(expiresAt).UTC(),
		VerifyAttemptsUsed: attempts,
	}, nil
}
