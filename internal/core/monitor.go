// Package core 采集批次的编排
//
// Monitor把目录、浏览器工厂、平台策略、状态机和观测落地端
// 串成一次完整运行: 清洗目录 -> 并发采集 -> 批量回写链接 -> 落地观测。
package core

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/RecoveryAshes/pricewatch/internal/acquire"
	"github.com/RecoveryAshes/pricewatch/internal/models"
	"github.com/RecoveryAshes/pricewatch/internal/platform"
	"github.com/RecoveryAshes/pricewatch/internal/store"
	"github.com/RecoveryAshes/pricewatch/internal/utils"
)

// Session 采集会话: 策略所需能力加上生命周期管理
type Session interface {
	platform.Session
	Close() error
}

// SessionFactory 会话来源,生产实现为browser.Factory
type SessionFactory interface {
	Open() (Session, error)
}

// Monitor 一次价格采集批次的编排器
type Monitor struct {
	cfg     *Config
	catalog *store.CSVCatalog
	factory SessionFactory
	sinks   []store.ObservationSink
	metrics *Metrics
	guard   *ResourceGuard
}

// NewMonitor 创建编排器,metrics与guard可为nil
func NewMonitor(cfg *Config, catalog *store.CSVCatalog, factory SessionFactory,
	sinks []store.ObservationSink, metrics *Metrics, guard *ResourceGuard) *Monitor {
	return &Monitor{
		cfg:     cfg,
		catalog: catalog,
		factory: factory,
		sinks:   sinks,
		metrics: metrics,
		guard:   guard,
	}
}

// Run 执行一次完整采集批次,返回批次统计
func (m *Monitor) Run(ctx context.Context) (models.BatchStats, error) {
	start := time.Now()

	// 运行前清洗: 重复链接清空,触发重新搜索
	if _, err := m.catalog.CleanDuplicateLinks(); err != nil {
		utils.Warnf("清洗重复链接失败: %v", err)
	}

	entries, err := m.catalog.Load()
	if err != nil {
		return models.BatchStats{}, err
	}
	if len(entries) == 0 {
		utils.Warnf("目录为空,没有可采集的商品")
		return models.BatchStats{}, nil
	}

	runID := uuid.New().String()[:8]
	concurrency := m.guard.Clamp(m.cfg.Monitor.Concurrency)
	timing := m.cfg.Timing()

	utils.Infof("🚀 开始采集批次 %s: %d个商品, 并发%d", runID, len(entries), concurrency)

	bar := utils.NewProgressBar(len(entries), "📊 采集进度")

	sched := acquire.NewScheduler(concurrency, func(ctx context.Context, entry models.Product) *models.Result {
		sess, err := m.factory.Open()
		if err != nil {
			utils.Errorf("[%s] 打开浏览器会话失败: %v", entry.Key(), err)
			return &models.Result{Product: entry, Status: models.StatusCritical}
		}
		defer func() {
			if err := sess.Close(); err != nil {
				utils.Warnf("[%s] 关闭会话失败: %v", entry.Key(), err)
			}
		}()

		strategy := platform.Lookup(entry.Platform)
		return acquire.NewMachine(entry, sess, strategy, timing).Run(ctx)
	})
	sched.OnDone(func(res *models.Result) {
		_ = bar.Add(1)
		m.metrics.ObserveResult(res)
	})

	results := sched.Run(ctx, entries)

	m.commitLinks(entries, results)
	m.appendObservations(runID, results)

	stats := models.Summarize(results)
	m.logSummary(stats, time.Since(start))
	return stats, nil
}

// commitLinks 批量回写采集中新解析的链接
// 只回写发生变化且非空的链接,清空过的死链留到下次运行重搜
func (m *Monitor) commitLinks(entries []models.Product, results []*models.Result) {
	committed := 0
	for i, res := range results {
		if res == nil || i >= len(entries) {
			continue
		}

		newURL := strings.TrimSpace(res.Product.URL)
		if newURL == "" || newURL == strings.TrimSpace(entries[i].URL) {
			continue
		}

		updated, err := m.catalog.UpdateLink(res.Product.Name, newURL)
		if err != nil {
			utils.Warnf("[%s] 回写链接失败: %v", res.Product.Key(), err)
			continue
		}
		if updated {
			utils.Infof("[%s] 目录链接已更新: %s", res.Product.Key(), newURL)
			committed++
		}
	}
	if committed > 0 {
		utils.Infof("共回写 %d 条目录链接", committed)
	}
}

// appendObservations 按目录顺序把批次结果写入所有落地端
// 单个落地端失败不影响其余落地端
func (m *Monitor) appendObservations(runID string, results []*models.Result) {
	at := time.Now()
	for _, sink := range m.sinks {
		if err := sink.Append(runID, at, results); err != nil {
			utils.Errorf("写入观测失败: %v", err)
		}
	}
}

// logSummary 输出批次汇总
func (m *Monitor) logSummary(stats models.BatchStats, elapsed time.Duration) {
	utils.Infof("✅ 采集批次完成")
	utils.Infof("商品总数: %d", stats.Total)
	utils.Infof("成功: %d, 缺货: %d, 失败: %d", stats.Success, stats.OutOfStock, stats.Failed)
	utils.Infof("总耗时: %.2f秒", elapsed.Seconds())
}
