package alerts

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"job-board/internal/model"
	"job-board/internal/subscription"

	"golang.org/x/sync/errgroup"
)

// Config 用于提醒调度配置。
type Config struct {
	Interval    string `yaml:"interval" json:"interval"`
	Timeout     string `yaml:"timeout" json:"timeout"`
	Concurrency int    `yaml:"concurrency" json:"concurrency"`
}

// Store 抽象职位读取接口，便于测试替换。
type Store interface {
	ListPublishedSince(ctx context.Context, since time.Time) ([]model.Job, error)
}

// Subscriptions 抽象订阅读取接口。
type Subscriptions interface {
	ListSubscriptions(ctx context.Context) ([]model.Subscription, error)
}

// Notifier 向单个订阅者推送职位摘要。
type Notifier interface {
	Notify(ctx context.Context, recipient string, jobs []model.Job) error
}

// Dispatcher 周期性扫描新发布职位，按订阅关键词匹配后并发推送摘要。
type Dispatcher struct {
	store     Store
	subs      Subscriptions
	notif     Notifier
	interval  time.Duration
	timeout   time.Duration
	parallel  int
	lastSweep time.Time
	running   atomic.Bool
	newTicker func(time.Duration) ticker
	now       func() time.Time
}

type ticker interface {
	C() <-chan time.Time
	Stop()
}

// NewDispatcher 创建 Dispatcher，解析配置的间隔与超时。
func NewDispatcher(store Store, subs Subscriptions, notif Notifier, cfg Config) *Dispatcher {
	interval := 10 * time.Minute
	if cfg.Interval != "" {
		if d, err := time.ParseDuration(cfg.Interval); err == nil && d > 0 {
			interval = d
		}
	}
	timeout := 30 * time.Second
	if cfg.Timeout != "" {
		if d, err := time.ParseDuration(cfg.Timeout); err == nil && d > 0 {
			timeout = d
		}
	}
	parallel := cfg.Concurrency
	if parallel <= 0 {
		parallel = 4
	}

	return &Dispatcher{
		store:     store,
		subs:      subs,
		notif:     notif,
		interval:  interval,
		timeout:   timeout,
		parallel:  parallel,
		newTicker: defaultTicker,
		now:       time.Now,
	}
}

// Start 启动调度循环，直到上下文取消。
func (d *Dispatcher) Start(ctx context.Context) error {
	if d.store == nil || d.subs == nil || d.notif == nil {
		return fmt.Errorf("dispatcher missing dependencies")
	}

	tick := d.newTicker(d.interval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C():
			if _, err := d.runOnce(ctx); err != nil {
				return err
			}
		}
	}
}

// RunOnce 对外暴露单次扫描接口，返回本次推送的订阅者数量。
func (d *Dispatcher) RunOnce(ctx context.Context) (int, error) {
	return d.runOnce(ctx)
}

func (d *Dispatcher) runOnce(ctx context.Context) (int, error) {
	if d.running.Swap(true) {
		return 0, nil
	}
	defer d.running.Store(false)

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	now := d.now()
	since := d.lastSweep
	if since.IsZero() {
		since = now.Add(-d.interval)
	}

	jobs, err := d.store.ListPublishedSince(ctx, since)
	if err != nil {
		return 0, fmt.Errorf("list published jobs: %w", err)
	}
	if len(jobs) == 0 {
		d.lastSweep = now
		return 0, nil
	}

	subs, err := d.subs.ListSubscriptions(ctx)
	if err != nil {
		return 0, fmt.Errorf("list subscriptions: %w", err)
	}

	var notified atomic.Int32
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(d.parallel)
	for _, sub := range subs {
		sub := sub
		matches := matchJobs(sub, jobs)
		if len(matches) == 0 {
			continue
		}
		g.Go(func() error {
			if err := d.notif.Notify(ctx, sub.Email, matches); err != nil {
				return fmt.Errorf("notify %s: %w", sub.Email, err)
			}
			notified.Add(1)
			return nil
		})
	}
	// 推送全部成功后才推进水位；失败的窗口留待下次重扫。
	if err := g.Wait(); err != nil {
		return int(notified.Load()), err
	}
	d.lastSweep = now
	return int(notified.Load()), nil
}

func matchJobs(sub model.Subscription, jobs []model.Job) []model.Job {
	matches := make([]model.Job, 0, len(jobs))
	for _, job := range jobs {
		if subscription.Matches(sub, job) {
			matches = append(matches, job)
		}
	}
	return matches
}

func defaultTicker(d time.Duration) ticker {
	t := time.NewTicker(d)
	return tickerWrapper{t}
}

type tickerWrapper struct {
	*time.Ticker
}

func (t tickerWrapper) C() <-chan time.Time { return t.Ticker.C }
func (t tickerWrapper) Stop()               { t.Ticker.Stop() }
