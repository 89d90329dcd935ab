package issues

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dreschagin/swarm-heartbeat/internal/application/port"
	"github.com/dreschagin/swarm-heartbeat/internal/domain/entity"
	"github.com/dreschagin/swarm-heartbeat/pkg/logger"
)

// TTL время жизни закэшированного списка задач
const TTL = 300 * time.Second

// staleGrace сколько еще после истечения TTL можно отдавать старый список, если загрузка не удалась
const staleGrace = TTL

// Options зависимости кэша
type Options struct {
	Source     port.IssueSource
	Repository string
	// Shared необязательный общий кэш (Redis) между процессами на хосте
	Shared    port.Cache
	SharedTTL time.Duration
	Telemetry port.Telemetry
	Now       func() time.Time
}

// IssueCache кэширует задачи одного репозитория.
// Реализует интерфейс port.IssueProvider
type IssueCache struct {
	source     port.IssueSource
	repository string
	shared     port.Cache
	sharedTTL  time.Duration
	telemetry  port.Telemetry
	now        func() time.Time
	log        *logger.Logger

	mu    sync.RWMutex
	entry *cacheEntry
	group singleflight.Group
}

type cacheEntry struct {
	Issues     []entity.Issue `json:"issues"`
	CapturedAt time.Time      `json:"captured_at"`
}

// NewIssueCache создает кэш
func NewIssueCache(opts Options, log *logger.Logger) *IssueCache {
	if opts.Telemetry == nil {
		opts.Telemetry = port.NopTelemetry{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.SharedTTL <= 0 {
		opts.SharedTTL = TTL
	}
	return &IssueCache{
		source:     opts.Source,
		repository: opts.Repository,
		shared:     opts.Shared,
		sharedTTL:  opts.SharedTTL,
		telemetry:  opts.Telemetry,
		now:        opts.Now,
		log:        log.With("component", "issue_cache", "repository", opts.Repository),
	}
}

// Repository возвращает настроенный репозиторий ("" если трекинг выключен)
func (c *IssueCache) Repository() string {
	return c.repository
}

// GetIssues возвращает задачи без pull request'ов. Возвращенный слайс общий, его нельзя менять
func (c *IssueCache) GetIssues(ctx context.Context) []entity.Issue {
	if c.repository == "" || c.source == nil {
		return []entity.Issue{}
	}

	if issues, ok := c.fresh(); ok {
		c.telemetry.IssueCacheLookup(true)
		return issues
	}
	c.telemetry.IssueCacheLookup(false)

	// Параллельные промахи схлопываются в одну загрузку; ее не отменяет уход первого вызвавшего
	v, _, _ := c.group.Do(c.repository, func() (interface{}, error) {
		return c.refresh(context.WithoutCancel(ctx)), nil
	})
	return v.([]entity.Issue)
}

func (c *IssueCache) fresh() ([]entity.Issue, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.entry == nil || c.now().Sub(c.entry.CapturedAt) >= TTL {
		return nil, false
	}
	return c.entry.Issues, true
}

func (c *IssueCache) refresh(ctx context.Context) []entity.Issue {
	// Другой поток мог обновить запись, пока мы ждали
	if issues, ok := c.fresh(); ok {
		return issues
	}

	if issues, ok := c.loadShared(ctx); ok {
		return issues
	}

	fetched, err := c.source.FetchIssues(ctx, c.repository)
	c.telemetry.IssueFetch(err)
	if err != nil {
		return c.fallback(err)
	}

	entry := &cacheEntry{Issues: withoutPullRequests(fetched), CapturedAt: c.now()}
	c.mu.Lock()
	c.entry = entry
	c.mu.Unlock()

	c.storeShared(ctx, entry)
	c.log.Debug("Issue cache refreshed", "count", len(entry.Issues))

	return entry.Issues
}

func (c *IssueCache) fallback(err error) []entity.Issue {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.entry != nil && c.now().Sub(c.entry.CapturedAt) < TTL+staleGrace {
		c.log.Warn("Issue fetch failed, serving last good list", "error", err.Error(), "age", c.now().Sub(c.entry.CapturedAt).Round(time.Second))
		return c.entry.Issues
	}

	c.log.Error("Issue fetch failed, no usable cached list", err)
	return []entity.Issue{}
}

func (c *IssueCache) loadShared(ctx context.Context) ([]entity.Issue, bool) {
	if c.shared == nil {
		return nil, false
	}

	var cached cacheEntry
	found, err := c.shared.Get(ctx, c.sharedKey(), &cached)
	if err != nil {
		c.log.Warn("Shared issue cache read failed", "error", err.Error())
		return nil, false
	}
	if !found || c.now().Sub(cached.CapturedAt) >= TTL {
		return nil, false
	}

	entry := &cacheEntry{Issues: withoutPullRequests(cached.Issues), CapturedAt: cached.CapturedAt}
	c.mu.Lock()
	c.entry = entry
	c.mu.Unlock()

	return entry.Issues, true
}

func (c *IssueCache) storeShared(ctx context.Context, entry *cacheEntry) {
	if c.shared == nil {
		return
	}
	if err := c.shared.Set(ctx, c.sharedKey(), entry, c.sharedTTL); err != nil {
		c.log.Warn("Shared issue cache write failed", "error", err.Error())
	}
}

func (c *IssueCache) sharedKey() string {
	return "issues:" + c.repository
}

func withoutPullRequests(all []entity.Issue) []entity.Issue {
	out := make([]entity.Issue, 0, len(all))
	for _, issue := range all {
		if !issue.IsPullRequest {
			out = append(out, issue)
		}
	}
	return out
}
