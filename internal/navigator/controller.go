package navigator

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/samftp/samftp/internal/cache"
	"github.com/samftp/samftp/internal/fetch"
	"github.com/samftp/samftp/internal/listing"
	"github.com/samftp/samftp/internal/metrics"
)

// Fetcher 返回目录页原始内容。
type Fetcher interface {
	Fetch(ctx context.Context, url string, creds *fetch.Credentials) ([]byte, error)
}

// Cache 是控制器依赖的目录缓存能力。
type Cache interface {
	Get(ctx context.Context, url string) (listing.Listing, bool)
	Set(ctx context.Context, url string, l listing.Listing) error
	Invalidate(ctx context.Context, url string) error
}

// ParseFunc 把响应体解析为 Listing。
type ParseFunc func(base *url.URL, body []byte) listing.Listing

var _ Cache = (*cache.ListingCache)(nil)
var _ Fetcher = (*fetch.Client)(nil)

// Option 调整 Controller。
type Option func(*Controller)

// WithCredentials 为该服务器的所有请求附带 Basic 认证。
func WithCredentials(creds *fetch.Credentials) Option {
	return func(c *Controller) {
		c.creds = creds
	}
}

// WithParser 替换解析函数。
func WithParser(parse ParseFunc) Option {
	return func(c *Controller) {
		if parse != nil {
			c.parse = parse
		}
	}
}

// WithLogger 指定 logger。
func WithLogger(logger *logrus.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Controller 是单个服务器上的浏览会话。同一时刻只允许一个导航操作，
// 其余调用立即返回 ErrBusy；失败的导航不会改变当前位置、历史与已展示的 Listing。
type Controller struct {
	fetcher Fetcher
	cache   Cache
	parse   ParseFunc
	creds   *fetch.Credentials
	logger  *logrus.Logger

	op sync.Mutex // 串行化导航操作

	mu        sync.RWMutex
	state     State
	nav       NavigationState
	current   listing.Listing
	fromCache bool
	lastErr   error
}

// New 构造控制器，初始状态为 Idle。
func New(fetcher Fetcher, c Cache, opts ...Option) *Controller {
	ctrl := &Controller{
		fetcher: fetcher,
		cache:   c,
		parse:   listing.Parse,
		logger:  logrus.StandardLogger(),
		state:   StateIdle,
		nav:     NavigationState{History: []string{}},
	}
	for _, opt := range opts {
		opt(ctrl)
	}
	return ctrl
}

// NavigateTo 展示 target 的目录。forceRefresh 为 false 时优先使用缓存。
func (c *Controller) NavigateTo(ctx context.Context, target string, forceRefresh bool) (listing.Listing, error) {
	if !c.op.TryLock() {
		return listing.Listing{}, ErrBusy
	}
	defer c.op.Unlock()

	return c.navigate(ctx, target, forceRefresh)
}

// PushHistory 把 u 压入返回栈。
func (c *Controller) PushHistory(u string) {
	c.mu.Lock()
	c.nav.History = append(c.nav.History, u)
	c.mu.Unlock()
}

// GoBack 优先从缓存回到栈顶目录，成功后才出栈。
func (c *Controller) GoBack(ctx context.Context) (listing.Listing, error) {
	if !c.op.TryLock() {
		return listing.Listing{}, ErrBusy
	}
	defer c.op.Unlock()

	c.mu.RLock()
	depth := len(c.nav.History)
	var target string
	if depth > 0 {
		target = c.nav.History[depth-1]
	}
	c.mu.RUnlock()

	if depth == 0 {
		return listing.Listing{}, ErrEmptyHistory
	}

	l, err := c.navigate(ctx, target, false)
	if err != nil {
		return listing.Listing{}, err
	}

	c.mu.Lock()
	if n := len(c.nav.History); n > 0 {
		c.nav.History = c.nav.History[:n-1]
	}
	c.mu.Unlock()
	return l, nil
}

// Refresh 丢弃当前目录的缓存并重新抓取。
func (c *Controller) Refresh(ctx context.Context) (listing.Listing, error) {
	if !c.op.TryLock() {
		return listing.Listing{}, ErrBusy
	}
	defer c.op.Unlock()

	c.mu.RLock()
	current := c.nav.CurrentURL
	c.mu.RUnlock()
	if current == "" {
		return listing.Listing{}, fmt.Errorf("%w: nothing to refresh", ErrInvalidURL)
	}

	if err := c.cache.Invalidate(ctx, current); err != nil {
		c.logger.WithFields(logrus.Fields{
			"action": "cache_invalidate",
			"url":    current,
		}).Warn(err.Error())
	}
	return c.navigate(ctx, current, true)
}

// Open 进入子目录：导航成功后把原位置压入返回栈。
func (c *Controller) Open(ctx context.Context, target string) (listing.Listing, error) {
	if !c.op.TryLock() {
		return listing.Listing{}, ErrBusy
	}
	defer c.op.Unlock()

	c.mu.RLock()
	previous := c.nav.CurrentURL
	c.mu.RUnlock()

	l, err := c.navigate(ctx, target, false)
	if err != nil {
		return listing.Listing{}, err
	}

	if previous != "" && previous != target {
		c.PushHistory(previous)
	}
	return l, nil
}

// Snapshot 返回当前状态的拷贝。
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := Snapshot{
		State:      c.state,
		Navigation: c.nav.clone(),
		Listing:    c.current.Clone(),
		FromCache:  c.fromCache,
	}
	if c.lastErr != nil {
		snap.LastError = c.lastErr.Error()
	}
	return snap
}

// State 返回当前状态。
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Navigation 返回位置与返回栈的拷贝。
func (c *Controller) Navigation() NavigationState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.nav.clone()
}

// navigate 在持有 op 锁的前提下执行一次导航。
func (c *Controller) navigate(ctx context.Context, target string, forceRefresh bool) (listing.Listing, error) {
	base, err := parseTarget(target)
	if err != nil {
		c.failed(err)
		return listing.Listing{}, err
	}

	c.setState(StateLoading)

	if !forceRefresh {
		if l, ok := c.cache.Get(ctx, target); ok {
			metrics.RecordNavigation("cache", nil)
			c.loaded(target, l, true)
			c.logger.WithFields(c.fields(target, true, nil)).Debug("listing served from cache")
			return l, nil
		}
	}

	body, err := c.fetcher.Fetch(ctx, target, c.creds)
	if err != nil {
		metrics.RecordNavigation("network", err)
		c.failed(err)
		c.logger.WithFields(c.fields(target, false, err)).Warn(err.Error())
		return listing.Listing{}, err
	}

	l := c.parse(base, body)
	if err := c.cache.Set(ctx, target, l); err != nil {
		c.logger.WithFields(logrus.Fields{
			"action": "cache_persist",
			"url":    target,
		}).Warn(err.Error())
	}

	metrics.RecordNavigation("network", nil)
	c.loaded(target, l, false)
	c.logger.WithFields(c.fields(target, false, nil)).Info("listing fetched")
	return l, nil
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Controller) loaded(target string, l listing.Listing, fromCache bool) {
	c.mu.Lock()
	c.state = StateLoaded
	c.nav.CurrentURL = target
	c.current = l.Clone()
	c.fromCache = fromCache
	c.lastErr = nil
	c.mu.Unlock()
}

func (c *Controller) failed(err error) {
	c.mu.Lock()
	c.state = StateErrored
	c.lastErr = err
	c.mu.Unlock()
}

func (c *Controller) fields(target string, fromCache bool, err error) logrus.Fields {
	c.mu.RLock()
	depth := len(c.nav.History)
	c.mu.RUnlock()
	fields := logrus.Fields{
		"action":    "navigate",
		"url":       target,
		"cache_hit": fromCache,
		"history":   depth,
	}
	if kind := fetch.KindOf(err); kind != "" {
		fields["fetch_kind"] = string(kind)
	}
	return fields
}

func parseTarget(target string) (*url.URL, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %s", ErrInvalidURL, target)
	}
	return u, nil
}
