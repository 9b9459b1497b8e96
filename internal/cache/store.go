package cache

import (
	"context"
	"errors"
	"time"

	"github.com/samftp/samftp/internal/listing"
)

// ByteStore 是持久层的最小契约：以内容哈希为键的字节存储。
// 实现需保证 Write 的原子性（临时文件 + rename 或等价手段）。
type ByteStore interface {
	// Read 返回键对应的字节，不存在时返回 ErrNotFound。
	Read(ctx context.Context, key string) ([]byte, error)

	// Write 覆盖写入键对应的字节。
	Write(ctx context.Context, key string, data []byte) error

	// Delete 删除键；键不存在不视为错误。
	Delete(ctx context.Context, key string) error

	// ListKeys 返回当前所有键。
	ListKeys(ctx context.Context) ([]string, error)
}

// Tier 是 ListingCache 组合的一层缓存（内存或持久化），以 Entry 为单位读写。
type Tier interface {
	Load(ctx context.Context, key string) (Entry, error)
	Store(ctx context.Context, entry Entry) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
	Clear(ctx context.Context) error
}

// Entry 表示一条缓存记录：请求 URL 的哈希键、原始 URL、创建时间与解析结果。
type Entry struct {
	Key       string          `json:"key"`
	URL       string          `json:"url"`
	CreatedAt time.Time       `json:"created_at"`
	Listing   listing.Listing `json:"listing"`
}

var (
	// ErrNotFound 表示缓存不存在。
	ErrNotFound = errors.New("cache entry not found")
	// ErrCorrupt 表示持久层记录无法解码。
	ErrCorrupt = errors.New("cache entry corrupt")
	// ErrInvalidKey 表示键不是合法的十六进制哈希。
	ErrInvalidKey = errors.New("invalid cache key")
	// ErrLockTimeout 表示在超时内未能获取跨进程写锁。
	ErrLockTimeout = errors.New("timeout acquiring cache lock")
	// ErrPersist 包装持久层写入失败；调用方应视为警告。
	ErrPersist = errors.New("persist listing failed")
)
