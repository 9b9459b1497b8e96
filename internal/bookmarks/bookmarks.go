// Package bookmarks keeps named shortcuts to directories on configured
// servers. Names are unique ignoring case; the list is persisted as YAML and
// rewritten atomically on every change.
package bookmarks

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

var (
	// ErrNotFound 表示书签不存在。
	ErrNotFound = errors.New("bookmark not found")
	// ErrDuplicateName 表示名称（忽略大小写）已被占用。
	ErrDuplicateName = errors.New("bookmark name already exists")
	// ErrInvalid 表示名称或 URL 为空。
	ErrInvalid = errors.New("bookmark requires name and url")
)

// Bookmark 是一个命名的目录快捷方式。
type Bookmark struct {
	Name      string    `yaml:"name" json:"name"`
	Server    string    `yaml:"server" json:"server"`
	URL       string    `yaml:"url" json:"url"`
	CreatedAt time.Time `yaml:"timestamp" json:"timestamp"`
}

// Manager 管理书签文件，读写都经过内存副本。
type Manager struct {
	path   string
	now    func() time.Time
	logger *logrus.Logger

	mu     sync.Mutex
	loaded bool
	items  []Bookmark
}

// NewManager 返回以 path 为存储文件的管理器；文件在首次写入时创建。
func NewManager(path string, logger *logrus.Logger) *Manager {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Manager{path: path, now: time.Now, logger: logger}
}

// Path 返回书签文件路径。
func (m *Manager) Path() string {
	return m.path
}

// Add 新增书签，名称重复时返回 ErrDuplicateName。
func (m *Manager) Add(name, server, url string) (Bookmark, error) {
	name = strings.TrimSpace(name)
	if name == "" || url == "" {
		return Bookmark{}, ErrInvalid
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	items := m.load()
	if indexOf(items, name) >= 0 {
		return Bookmark{}, fmt.Errorf("%w: %s", ErrDuplicateName, name)
	}

	b := Bookmark{Name: name, Server: server, URL: url, CreatedAt: m.now().UTC()}
	if err := m.save(append(cloneItems(items), b)); err != nil {
		return Bookmark{}, err
	}
	return b, nil
}

// Remove 按名称删除书签。
func (m *Manager) Remove(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	items := m.load()
	idx := indexOf(items, name)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	next := make([]Bookmark, 0, len(items)-1)
	next = append(next, items[:idx]...)
	next = append(next, items[idx+1:]...)
	return m.save(next)
}

// Get 按名称（忽略大小写）查找书签。
func (m *Manager) Get(name string) (Bookmark, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	items := m.load()
	idx := indexOf(items, name)
	if idx < 0 {
		return Bookmark{}, false
	}
	return items[idx], true
}

// List 返回全部书签，最近创建或更新的在前。
func (m *Manager) List() []Bookmark {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := cloneItems(m.load())
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// IsBookmarked 返回指向 url 的书签名称。
func (m *Manager) IsBookmarked(url string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, b := range m.load() {
		if b.URL == url {
			return b.Name, true
		}
	}
	return "", false
}

// Update 修改名称和/或 URL（空串表示不变），并刷新时间戳。
func (m *Manager) Update(name, newName, newURL string) (Bookmark, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	items := cloneItems(m.load())
	idx := indexOf(items, name)
	if idx < 0 {
		return Bookmark{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	newName = strings.TrimSpace(newName)
	if newName != "" {
		for i, b := range items {
			if i != idx && strings.EqualFold(b.Name, newName) {
				return Bookmark{}, fmt.Errorf("%w: %s", ErrDuplicateName, newName)
			}
		}
		items[idx].Name = newName
	}
	if newURL != "" {
		items[idx].URL = newURL
	}
	items[idx].CreatedAt = m.now().UTC()

	if err := m.save(items); err != nil {
		return Bookmark{}, err
	}
	return items[idx], nil
}

// ByServer 返回属于 server 的书签，保持存储顺序。
func (m *Manager) ByServer(server string) []Bookmark {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Bookmark
	for _, b := range m.load() {
		if b.Server == server {
			out = append(out, b)
		}
	}
	return out
}

// Clear 删除全部书签并返回删除数量。
func (m *Manager) Clear() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := len(m.load())
	if count == 0 {
		return 0, nil
	}
	if err := m.save([]Bookmark{}); err != nil {
		return 0, err
	}
	return count, nil
}

// Export 把当前书签写到 path。
func (m *Manager) Export(path string) error {
	m.mu.Lock()
	items := cloneItems(m.load())
	m.mu.Unlock()

	return writeFile(path, items)
}

// Import 从 path 读取书签。merge 为 true 时只追加名称未占用的条目，否则整体替换。
func (m *Manager) Import(path string, merge bool) (int, error) {
	imported, err := readFile(path)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !merge {
		if err := m.save(imported); err != nil {
			return 0, err
		}
		return len(imported), nil
	}

	items := cloneItems(m.load())
	added := 0
	for _, b := range imported {
		if indexOf(items, b.Name) >= 0 {
			continue
		}
		items = append(items, b)
		added++
	}
	if added == 0 {
		return 0, nil
	}
	if err := m.save(items); err != nil {
		return 0, err
	}
	return added, nil
}

// load 返回内存副本；文件缺失视为空，文件损坏记录告警后视为空。
func (m *Manager) load() []Bookmark {
	if m.loaded {
		return m.items
	}

	items, err := readFile(m.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		m.logger.WithFields(logrus.Fields{
			"action": "bookmarks_load",
			"path":   m.path,
		}).Warn(err.Error())
	}
	m.items = items
	m.loaded = true
	return m.items
}

func (m *Manager) save(items []Bookmark) error {
	if err := writeFile(m.path, items); err != nil {
		return fmt.Errorf("save bookmarks: %w", err)
	}
	m.items = items
	m.loaded = true
	return nil
}

func indexOf(items []Bookmark, name string) int {
	for i, b := range items {
		if strings.EqualFold(b.Name, name) {
			return i
		}
	}
	return -1
}

func cloneItems(items []Bookmark) []Bookmark {
	return append([]Bookmark(nil), items...)
}

func readFile(path string) ([]Bookmark, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return []Bookmark{}, err
	}
	var items []Bookmark
	if err := yaml.Unmarshal(data, &items); err != nil {
		return []Bookmark{}, fmt.Errorf("decode %s: %w", path, err)
	}
	valid := make([]Bookmark, 0, len(items))
	for _, b := range items {
		if b.Name != "" && b.URL != "" {
			valid = append(valid, b)
		}
	}
	return valid, nil
}

// writeFile 以临时文件 + rename 的方式原子写入 YAML。
func writeFile(path string, items []Bookmark) error {
	if items == nil {
		items = []Bookmark{}
	}
	data, err := yaml.Marshal(items)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".bookmarks-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	_, err = tmp.Write(data)
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
