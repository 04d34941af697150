package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/LavaJover/shvark-lottery-service/internal/config"
	"github.com/LavaJover/shvark-lottery-service/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

func NewClient(cfg config.Redis) *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// Ping probes the connection within timeout.
func Ping(ctx context.Context, client *goredis.Client, timeout time.Duration) error {
	c, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return client.Ping(c).Err()
}

// LeaderboardCache keeps computed leaderboards as JSON under a short TTL.
type LeaderboardCache struct {
	client goredis.Cmdable
	ttl    time.Duration
}

func NewLeaderboardCache(client goredis.Cmdable, ttl time.Duration) *LeaderboardCache {
	return &LeaderboardCache{client: client, ttl: ttl}
}

func leaderboardKey(lotteryID int64) string {
	return fmt.Sprintf("lottery:leaderboard:%d", lotteryID)
}

func (c *LeaderboardCache) Get(ctx context.Context, lotteryID int64) (*domain.Leaderboard, error) {
	data, err := c.client.Get(ctx, leaderboardKey(lotteryID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewTransientError("leaderboard cache get", err)
	}
	var board domain.Leaderboard
	if err := json.Unmarshal(data, &board); err != nil {
		// a stale layout is treated as a miss
		return nil, nil
	}
	return &board, nil
}

func (c *LeaderboardCache) Set(ctx context.Context, board *domain.Leaderboard) error {
	data, err := json.Marshal(board)
	if err != nil {
		return fmt.Errorf("marshal leaderboard %d: %w", board.LotteryID, err)
	}
	if err := c.client.Set(ctx, leaderboardKey(board.LotteryID), data, c.ttl).Err(); err != nil {
		return domain.NewTransientError("leaderboard cache set", err)
	}
	return nil
}

func (c *LeaderboardCache) Invalidate(ctx context.Context, lotteryID int64) error {
	if err := c.client.Del(ctx, leaderboardKey(lotteryID)).Err(); err != nil {
		return domain.NewTransientError("leaderboard cache invalidate", err)
	}
	return nil
}
