package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

const (
	recordExt        = ".json"
	tempPrefix       = ".cache-"
	lockFileName     = ".samftp-cache.lock"
	defaultLockWait  = 5 * time.Second
	lockPollInterval = 10 * time.Millisecond
	minKeyLength     = 8
	maxKeyLength     = 128
)

// FileStore 以 basePath 为根目录保存 <key[:2]>/<key>.json，整进程复用一份实例。
// 写入与删除先持有进程内互斥锁，再持有 basePath 下的 flock 文件锁，
// 多个进程共享同一缓存目录时读方只会看到完整文件。
type FileStore struct {
	basePath string
	lockWait time.Duration

	mu    sync.Mutex
	flock *flock.Flock
}

// NewFileStore 创建缓存目录并返回文件存储。
func NewFileStore(basePath string) (*FileStore, error) {
	if basePath == "" {
		return nil, errors.New("cache dir required")
	}

	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("resolve cache dir: %w", err)
	}

	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	return &FileStore{
		basePath: abs,
		lockWait: defaultLockWait,
		flock:    flock.New(filepath.Join(abs, lockFileName)),
	}, nil
}

// Location 返回缓存根目录的绝对路径。
func (s *FileStore) Location() string {
	return s.basePath
}

func (s *FileStore) Read(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	filePath, err := s.entryPath(key)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if info.IsDir() {
		return nil, ErrNotFound
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

func (s *FileStore) Write(ctx context.Context, key string, data []byte) error {
	filePath, err := s.entryPath(key)
	if err != nil {
		return err
	}

	unlock, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return err
	}

	tempFile, err := os.CreateTemp(filepath.Dir(filePath), tempPrefix+"*")
	if err != nil {
		return err
	}
	tempName := tempFile.Name()

	_, err = tempFile.Write(data)
	closeErr := tempFile.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tempName)
		return err
	}

	if err := os.Rename(tempName, filePath); err != nil {
		os.Remove(tempName)
		return err
	}
	return nil
}

func (s *FileStore) Delete(ctx context.Context, key string) error {
	filePath, err := s.entryPath(key)
	if err != nil {
		return err
	}

	unlock, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	if err := os.Remove(filePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s *FileStore) ListKeys(ctx context.Context) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(s.basePath, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		if strings.HasPrefix(name, tempPrefix) || !strings.HasSuffix(name, recordExt) {
			return nil
		}
		key := strings.TrimSuffix(name, recordExt)
		if validKey(key) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

// lock 串行化本进程内的写操作，并在超时内获取跨进程 flock。
func (s *FileStore) lock(ctx context.Context) (func(), error) {
	s.mu.Lock()

	lockCtx, cancel := context.WithTimeout(ctx, s.lockWait)
	defer cancel()

	locked, err := s.flock.TryLockContext(lockCtx, lockPollInterval)
	if err != nil || !locked {
		s.mu.Unlock()
		if err == nil || errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrLockTimeout
		}
		return nil, fmt.Errorf("acquire cache lock: %w", err)
	}

	return func() {
		_ = s.flock.Unlock()
		s.mu.Unlock()
	}, nil
}

func (s *FileStore) entryPath(key string) (string, error) {
	if !validKey(key) {
		return "", ErrInvalidKey
	}
	return filepath.Join(s.basePath, key[:2], key+recordExt), nil
}

// validKey 只接受小写十六进制，保证键无法逃逸出缓存目录。
func validKey(key string) bool {
	if len(key) < minKeyLength || len(key) > maxKeyLength {
		return false
	}
	for _, r := range key {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}
