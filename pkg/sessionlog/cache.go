package sessionlog

import (
	"context"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"liyu1981.xyz/llm-cost-service/pkg/metrics"
	"liyu1981.xyz/llm-cost-service/pkg/pricing"
)

// Load parses every session file below paths. Files that cannot be read are
// logged and skipped; only a failed directory walk or a cancelled ctx is an
// error.
func Load(ctx context.Context, paths []string, catalog pricing.Catalog) ([]Message, int, error) {
	files, err := FindSessionFiles(paths)
	if err != nil {
		return nil, 0, err
	}

	perFile := make([][]Message, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, path := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			msgs, err := ParseFile(path, catalog)
			if err != nil {
				logger().Warn("Cannot read session file", zap.String("path", path), zap.Error(err))
			}
			perFile[i] = msgs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	total := 0
	for _, msgs := range perFile {
		total += len(msgs)
	}
	messages := make([]Message, 0, total)
	for _, msgs := range perFile {
		messages = append(messages, msgs...)
	}
	return messages, len(files), nil
}

// Cache holds the parsed messages of the configured data paths and reparses
// them once they are older than the TTL or marked stale.
type Cache struct {
	paths   []string
	ttl     time.Duration
	catalog pricing.Catalog
	now     func() time.Time
	load    func(context.Context, []string, pricing.Catalog) ([]Message, int, error)

	group singleflight.Group

	mu          sync.Mutex
	messages    []Message
	fileCount   int
	lastRefresh time.Time
	stale       bool
	generation  uint64
}

func NewCache(paths []string, ttl time.Duration, catalog pricing.Catalog) *Cache {
	return &Cache{
		paths:    paths,
		ttl:      ttl,
		catalog:  catalog,
		now:      time.Now,
		load:     Load,
		messages: []Message{},
		stale:    true,
	}
}

func (c *Cache) needsRefresh() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stale || c.now().Sub(c.lastRefresh) > c.ttl
}

// Messages returns the cached messages, refreshing first when needed. The
// returned slice is shared and must not be modified.
func (c *Cache) Messages(ctx context.Context) ([]Message, error) {
	if c.needsRefresh() {
		if err := c.Refresh(ctx); err != nil {
			return nil, err
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.messages, nil
}

// Refresh reparses all files without holding the lock and swaps the result
// in. Concurrent callers share one parse.
func (c *Cache) Refresh(ctx context.Context) error {
	_, err, _ := c.group.Do("refresh", func() (any, error) {
		c.mu.Lock()
		gen := c.generation
		c.mu.Unlock()

		start := time.Now()
		messages, files, err := c.load(ctx, c.paths, c.catalog)
		metrics.Get().RecordCacheRefresh(err, time.Since(start))
		if err != nil {
			logger().Error("Session log refresh failed", zap.Error(err))
			return nil, err
		}

		c.mu.Lock()
		c.messages = messages
		c.fileCount = files
		c.lastRefresh = c.now()
		// an Invalidate during the parse keeps the cache stale
		if c.generation == gen {
			c.stale = false
		}
		c.mu.Unlock()

		logger().Info("Session logs refreshed", zap.Int("files", files), zap.Int("messages", len(messages)))
		return nil, nil
	})
	return err
}

// Invalidate forces the next read to reparse.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.stale = true
	c.generation++
	c.mu.Unlock()
}

func (c *Cache) Stale() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stale
}

func (c *Cache) FileCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fileCount
}
