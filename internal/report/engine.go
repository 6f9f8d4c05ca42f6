package report

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"tokoisi/backend/internal/cache"
	"tokoisi/backend/internal/domain"
)

// LoadFunc fetches the sales, items and category links for a window.
type LoadFunc func(ctx context.Context, w Window) (Data, error)

// Engine caches aggregated reports per window. Cached reports are tagged
// with a generation; Invalidate moves to a new one so recorded sales show up
// on the next read.
type Engine struct {
	cache      cache.ReportCache
	cacheTTL   time.Duration
	logger     *zap.Logger
	now        func() time.Time
	generation atomic.Int64
}

func NewEngine(cacheStore cache.ReportCache, cacheTTL time.Duration, logger *zap.Logger) *Engine {
	if cacheStore == nil {
		cacheStore = cache.NoopReportCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	e := &Engine{
		cache:    cacheStore,
		cacheTTL: cacheTTL,
		logger:   logger,
		now:      time.Now,
	}
	// Seeded from the clock: a restarted process must not read shared
	// cache entries written by its previous run.
	e.generation.Store(time.Now().UnixNano())
	return e
}

// Invalidate retires every cached report. Call it after a sale is written.
func (e *Engine) Invalidate() {
	e.generation.Add(1)
}

func (e *Engine) Sales(ctx context.Context, w Window, load LoadFunc) (domain.SalesReport, error) {
	if err := w.Validate(); err != nil {
		return domain.SalesReport{}, err
	}

	key := buildCacheKey(e.generation.Load(), w)
	cached, ok, err := e.cache.Get(ctx, key)
	if err != nil {
		e.logger.Warn("report cache read failed", zap.String("key", key), zap.Error(err))
	} else if ok {
		return *cached, nil
	}

	data, err := load(ctx, w)
	if err != nil {
		return domain.SalesReport{}, err
	}

	out := Aggregate(w, data)
	out.GeneratedAt = e.now()

	if err := e.cache.Set(ctx, key, &out, e.cacheTTL); err != nil {
		e.logger.Warn("report cache write failed", zap.String("key", key), zap.Error(err))
	}
	return out, nil
}

func buildCacheKey(generation int64, w Window) string {
	raw := fmt.Sprintf("%d|%d|%s", w.From.UnixNano(), w.To.UnixNano(), w.From.Location().String())
	sum := sha1.Sum([]byte(raw))
	return fmt.Sprintf("sales:%d:%s", generation, hex.EncodeToString(sum[:]))
}
