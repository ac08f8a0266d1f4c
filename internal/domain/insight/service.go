package insight

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const cacheKeyPrefix = "insight:"

// Service fronts a Generator with an optional Redis cache keyed by the
// bundle fingerprint, so new records naturally miss the cache.
type Service struct {
	gen    Generator
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
	sf     singleflight.Group
}

func NewService(gen Generator, rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{gen: gen, rdb: rdb, ttl: ttl, logger: logger.Named("insight")}
}

func CacheKey(bundle Bundle) string {
	return cacheKeyPrefix + bundle.EmployeeID + ":" + bundle.Fingerprint()
}

func (s *Service) Generate(ctx context.Context, bundle Bundle) (string, error) {
	key := CacheKey(bundle)
	if s.rdb != nil {
		cached, err := s.rdb.Get(ctx, key).Result()
		switch {
		case err == nil:
			return cached, nil
		case !errors.Is(err, redis.Nil):
			s.logger.Warn("insight cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	v, err, _ := s.sf.Do(key, func() (any, error) {
		return s.gen.Generate(ctx, bundle)
	})
	if err != nil {
		s.logger.Warn("insight generation failed", zap.String("employee_id", bundle.EmployeeID), zap.Error(err))
		return "", err
	}
	text := v.(string)

	if s.rdb != nil {
		if err := s.rdb.Set(ctx, key, text, s.ttl).Err(); err != nil {
			s.logger.Warn("insight cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return text, nil
}
