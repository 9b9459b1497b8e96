package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/samftp/samftp/internal/listing"
	"github.com/samftp/samftp/internal/metrics"
)

// DefaultTTL 是目录缓存的默认有效期。
const DefaultTTL = 300 * time.Second

const (
	tierMemory    = "memory"
	tierPersisted = "persisted"
)

// Stats 是缓存的只读统计快照。
type Stats struct {
	TotalEntries   int    `json:"total_entries"`
	ValidEntries   int    `json:"valid_entries"`
	ExpiredEntries int    `json:"expired_entries"`
	SizeBytes      int64  `json:"size_bytes"`
	TTLSeconds     int64  `json:"ttl_seconds"`
	Location       string `json:"location,omitempty"`
}

// Option 调整 ListingCache 的可选行为。
type Option func(*ListingCache)

// WithTTL 覆盖默认 TTL，非正值忽略。
func WithTTL(ttl time.Duration) Option {
	return func(c *ListingCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock 注入时钟，测试中用于模拟过期。
func WithClock(now func() time.Time) Option {
	return func(c *ListingCache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger 指定持久层告警使用的 logger。
func WithLogger(logger *logrus.Logger) Option {
	return func(c *ListingCache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// ListingCache 以内存层 + 持久层组合实现 read-through / write-through 的目录缓存。
// 同一个键的 Get/Set/Invalidate 通过 entryLock 串行，不同键互不阻塞。
type ListingCache struct {
	memory    Tier
	persisted Tier
	ttl       time.Duration
	now       func() time.Time
	logger    *logrus.Logger

	mu    sync.Mutex
	locks map[string]*entryLock
}

type entryLock struct {
	mu   sync.Mutex
	refs int
}

// NewListingCache 组合两层缓存；persisted 为 nil 时退化为纯内存缓存。
func NewListingCache(memory, persisted Tier, opts ...Option) *ListingCache {
	if memory == nil {
		memory = NewMemoryTier()
	}
	c := &ListingCache{
		memory:    memory,
		persisted: persisted,
		ttl:       DefaultTTL,
		now:       time.Now,
		logger:    logrus.StandardLogger(),
		locks:     make(map[string]*entryLock),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open 在 dir 下创建文件存储并返回完整的两层缓存。
func Open(dir string, ttl time.Duration, logger *logrus.Logger) (*ListingCache, error) {
	store, err := NewFileStore(dir)
	if err != nil {
		return nil, err
	}
	return NewListingCache(NewMemoryTier(), NewPersistedTier(store), WithTTL(ttl), WithLogger(logger)), nil
}

// Key 返回 URL 的 SHA-256 十六进制摘要，跨进程稳定。
func Key(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}

// TTL 返回当前生效的有效期。
func (c *ListingCache) TTL() time.Duration {
	return c.ttl
}

// Get 先查内存层再查持久层；持久层命中会回填内存层，过期条目从两层同时清除。
func (c *ListingCache) Get(ctx context.Context, url string) (listing.Listing, bool) {
	key := Key(url)
	unlock := c.lockEntry(key)
	defer unlock()

	if entry, err := c.memory.Load(ctx, key); err == nil {
		if c.usable(entry, url) {
			metrics.RecordCacheLookup(tierMemory, "hit")
			return entry.Listing, true
		}
		metrics.RecordCacheLookup(tierMemory, "expired")
		c.purge(ctx, key)
		return listing.Listing{}, false
	}
	metrics.RecordCacheLookup(tierMemory, "miss")

	if c.persisted == nil {
		return listing.Listing{}, false
	}

	entry, err := c.persisted.Load(ctx, key)
	switch {
	case err == nil:
	case errors.Is(err, ErrCorrupt):
		metrics.RecordCacheLookup(tierPersisted, "corrupt")
		c.logger.WithFields(logrus.Fields{
			"action": "cache_corrupt",
			"key":    key,
		}).Warn(err.Error())
		c.purge(ctx, key)
		return listing.Listing{}, false
	default:
		if !errors.Is(err, ErrNotFound) {
			c.logger.WithFields(logrus.Fields{
				"action": "cache_read",
				"key":    key,
			}).Warn(err.Error())
		}
		metrics.RecordCacheLookup(tierPersisted, "miss")
		return listing.Listing{}, false
	}

	if !c.usable(entry, url) {
		metrics.RecordCacheLookup(tierPersisted, "expired")
		c.purge(ctx, key)
		return listing.Listing{}, false
	}

	metrics.RecordCacheLookup(tierPersisted, "hit")
	if err := c.memory.Store(ctx, entry); err != nil {
		metrics.RecordCacheWrite(tierMemory, err)
	}
	return entry.Listing.Clone(), true
}

// Set 先写内存层再写持久层。持久层失败只记录告警并以 ErrPersist 返回，内存层仍然有效。
func (c *ListingCache) Set(ctx context.Context, url string, l listing.Listing) error {
	key := Key(url)
	unlock := c.lockEntry(key)
	defer unlock()

	entry := Entry{
		Key:       key,
		URL:       url,
		CreatedAt: c.now().UTC(),
		Listing:   l.Clone(),
	}

	err := c.memory.Store(ctx, entry)
	metrics.RecordCacheWrite(tierMemory, err)
	if err != nil {
		return err
	}

	if c.persisted == nil {
		return nil
	}

	err = c.persisted.Store(ctx, entry)
	metrics.RecordCacheWrite(tierPersisted, err)
	if err != nil {
		c.logger.WithFields(logrus.Fields{
			"action": "cache_persist",
			"key":    key,
			"url":    url,
		}).Warn(err.Error())
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	return nil
}

// Invalidate 从两层删除 URL 对应的条目。
func (c *ListingCache) Invalidate(ctx context.Context, url string) error {
	key := Key(url)
	unlock := c.lockEntry(key)
	defer unlock()

	return c.deleteKey(ctx, key)
}

// Clear 清空两层缓存。
func (c *ListingCache) Clear(ctx context.Context) error {
	var errs []error
	if err := c.memory.Clear(ctx); err != nil {
		errs = append(errs, err)
	}
	if c.persisted != nil {
		if err := c.persisted.Clear(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Stats 统计两层键的并集，只读，不会清理过期条目。
func (c *ListingCache) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{
		TTLSeconds: int64(c.ttl / time.Second),
		Location:   c.Location(),
	}

	keys, err := c.unionKeys(ctx)
	if err != nil {
		return stats, err
	}

	for _, key := range keys {
		entry, size, ok := c.inspect(ctx, key)
		stats.TotalEntries++
		stats.SizeBytes += size
		if ok && !c.expired(entry) {
			stats.ValidEntries++
		} else {
			stats.ExpiredEntries++
		}
	}
	return stats, nil
}

// CleanupExpired 删除所有过期或损坏的条目，返回删除数量。
func (c *ListingCache) CleanupExpired(ctx context.Context) (int, error) {
	keys, err := c.unionKeys(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	var errs []error
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		unlock := c.lockEntry(key)
		entry, _, ok := c.inspect(ctx, key)
		if !ok || c.expired(entry) {
			if err := c.deleteKey(ctx, key); err != nil {
				errs = append(errs, err)
			} else {
				removed++
			}
		}
		unlock()
	}

	if removed > 0 {
		c.logger.WithFields(logrus.Fields{
			"action":  "cache_cleanup",
			"removed": removed,
		}).Info("expired listings removed")
	}
	return removed, errors.Join(errs...)
}

// Location 返回持久层目录；纯内存缓存返回空串。
func (c *ListingCache) Location() string {
	pt, ok := c.persisted.(*PersistedTier)
	if !ok || pt == nil {
		return ""
	}
	if located, ok := pt.ByteStore().(interface{ Location() string }); ok {
		return located.Location()
	}
	return ""
}

// usable 判断条目是否未过期且确实属于该 URL（防止哈希碰撞时误用）。
func (c *ListingCache) usable(entry Entry, url string) bool {
	return entry.URL == url && !c.expired(entry)
}

func (c *ListingCache) expired(entry Entry) bool {
	return c.now().Sub(entry.CreatedAt) > c.ttl
}

// inspect 读取条目（内存优先）及其占用字节数；ok=false 表示记录损坏或不可读。
func (c *ListingCache) inspect(ctx context.Context, key string) (Entry, int64, bool) {
	var size int64
	if pt, isPersisted := c.persisted.(*PersistedTier); isPersisted && pt != nil {
		if n, err := pt.SizeOf(ctx, key); err == nil {
			size = n
		}
	}

	if entry, err := c.memory.Load(ctx, key); err == nil {
		if size == 0 {
			if data, err := json.Marshal(entry); err == nil {
				size = int64(len(data))
			}
		}
		return entry, size, true
	}

	if c.persisted == nil {
		return Entry{}, size, false
	}
	entry, err := c.persisted.Load(ctx, key)
	if err != nil {
		return Entry{}, size, false
	}
	return entry, size, true
}

func (c *ListingCache) unionKeys(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	var keys []string

	memKeys, err := c.memory.Keys(ctx)
	if err != nil {
		return nil, err
	}
	for _, key := range memKeys {
		seen[key] = struct{}{}
		keys = append(keys, key)
	}

	if c.persisted != nil {
		diskKeys, err := c.persisted.Keys(ctx)
		if err != nil {
			return nil, err
		}
		for _, key := range diskKeys {
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (c *ListingCache) purge(ctx context.Context, key string) {
	if err := c.deleteKey(ctx, key); err != nil {
		c.logger.WithFields(logrus.Fields{
			"action": "cache_purge",
			"key":    key,
		}).Warn(err.Error())
	}
}

func (c *ListingCache) deleteKey(ctx context.Context, key string) error {
	var errs []error
	if err := c.memory.Delete(ctx, key); err != nil {
		errs = append(errs, err)
	}
	if c.persisted != nil {
		if err := c.persisted.Delete(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *ListingCache) lockEntry(key string) func() {
	c.mu.Lock()
	lock := c.locks[key]
	if lock == nil {
		lock = &entryLock{}
		c.locks[key] = lock
	}
	lock.refs++
	c.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		c.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(c.locks, key)
		}
		c.mu.Unlock()
	}
}
