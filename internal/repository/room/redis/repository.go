package redis

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

type repo struct {
	rc             *redis.Client
	maxScoreScript string
	expireDuration time.Duration
	logger         *slog.Logger
}

// NewRepo stores room snapshots under room:<id>:* keys. Every write refreshes the
// keys' TTL; a zero expireDuration keeps them until deleted.
func NewRepo(ctx context.Context, rc *redis.Client, expireDuration time.Duration, logger *slog.Logger) (*repo, error) {
	maxScoreScript, err := rc.ScriptLoad(ctx, `
			local maxScore = redis.call('ZREVRANGE', KEYS[1], 0, 0, 'WITHSCORES')
			local nextScore = 1
			if #maxScore > 0 then
				nextScore = tonumber(maxScore[2]) + 1
			end
			if redis.call('ZSCORE', KEYS[1], ARGV[1]) then
				return 0
			end
			redis.call('ZADD', KEYS[1], nextScore, ARGV[1])
			return nextScore
		`).Result()
	if err != nil {
		return nil, err
	}

	return &repo{
		rc:             rc,
		maxScoreScript: maxScoreScript,
		expireDuration: expireDuration,
		logger:         logger,
	}, nil
}
