package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"chemviz/internal/cache"
	"chemviz/internal/model"
	"chemviz/pkg/log"
)

// Service renders PDF reports and keeps the bytes in a cache until the
// dataset goes away.
type Service struct {
	cache cache.Cache
	ttl   time.Duration
	group singleflight.Group
	now   func() time.Time
}

func NewService(c cache.Cache, ttl time.Duration) *Service {
	if c == nil {
		c = cache.Nop{}
	}
	return &Service{
		cache: c,
		ttl:   ttl,
		now:   time.Now,
	}
}

func CacheKey(datasetId int) string {
	return "chemviz:report:" + strconv.Itoa(datasetId)
}

// PDF returns the report for the dataset with the given id. Concurrent calls
// for the same id share one render.
func (s *Service) PDF(ctx context.Context, datasetId int) ([]byte, error) {
	logger := log.GetLogger(ctx)
	key := CacheKey(datasetId)

	b, err := s.cache.Get(ctx, key)
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		logger.Warnf("get cached report %d failed, err: %v", datasetId, err)
	}

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		ds, err := model.GetDatasetById(datasetId, true)
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		if err := Render(&buf, ds, s.now()); err != nil {
			return nil, fmt.Errorf("render report %d: %w", datasetId, err)
		}
		if err := s.cache.Set(ctx, key, buf.Bytes(), s.ttl); err != nil {
			logger.Warnf("cache report %d failed, err: %v", datasetId, err)
		}
		return buf.Bytes(), nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Invalidate drops cached reports of deleted or evicted datasets.
func (s *Service) Invalidate(ctx context.Context, datasetIds ...int) {
	if len(datasetIds) == 0 {
		return
	}
	keys := make([]string, len(datasetIds))
	for i, id := range datasetIds {
		keys[i] = CacheKey(id)
	}
	if err := s.cache.Del(ctx, keys...); err != nil {
		log.GetLogger(ctx).Warnf("invalidate reports %v failed, err: %v", datasetIds, err)
	}
}
