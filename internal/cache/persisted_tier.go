package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// PersistedTier 把 Entry 以 JSON 编码写入 ByteStore，进程重启后依然可读。
type PersistedTier struct {
	store ByteStore
}

// NewPersistedTier 基于任意 ByteStore 构造持久层。
func NewPersistedTier(store ByteStore) *PersistedTier {
	return &PersistedTier{store: store}
}

// ByteStore 返回底层字节存储。
func (p *PersistedTier) ByteStore() ByteStore {
	return p.store
}

func (p *PersistedTier) Load(ctx context.Context, key string) (Entry, error) {
	data, err := p.store.Read(ctx, key)
	if err != nil {
		return Entry{}, err
	}
	return decodeEntry(key, data)
}

func (p *PersistedTier) Store(ctx context.Context, entry Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	return p.store.Write(ctx, entry.Key, data)
}

func (p *PersistedTier) Delete(ctx context.Context, key string) error {
	return p.store.Delete(ctx, key)
}

func (p *PersistedTier) Keys(ctx context.Context) ([]string, error) {
	return p.store.ListKeys(ctx)
}

func (p *PersistedTier) Clear(ctx context.Context) error {
	keys, err := p.store.ListKeys(ctx)
	if err != nil {
		return err
	}
	var errs []error
	for _, key := range keys {
		if err := p.store.Delete(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

// SizeOf 返回键对应记录的字节数，供统计使用。
func (p *PersistedTier) SizeOf(ctx context.Context, key string) (int64, error) {
	data, err := p.store.Read(ctx, key)
	if err != nil {
		return 0, err
	}
	return int64(len(data)), nil
}

func decodeEntry(key string, data []byte) (Entry, error) {
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return Entry{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if entry.Key != key || entry.URL == "" || entry.CreatedAt.IsZero() {
		return Entry{}, fmt.Errorf("%w: incomplete record", ErrCorrupt)
	}
	return entry, nil
}
