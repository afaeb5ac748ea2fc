package acquire

import (
	"context"
	"sync"

	"github.com/RecoveryAshes/pricewatch/internal/models"
	"github.com/RecoveryAshes/pricewatch/internal/utils"
)

// Task 采集一个条目并返回其终态结果
// 实现方负责会话的创建与释放
type Task func(ctx context.Context, entry models.Product) *models.Result

// Scheduler 有界并发调度器
// 每个条目一个goroutine,信号量限制同时运行的采集数,
// 结果按目录顺序定位收集,与完成顺序无关
type Scheduler struct {
	concurrency int
	task        Task

	// onDone 每个条目到达终态后回调(进度条/指标),可为nil
	onDone func(*models.Result)
}

// NewScheduler 创建调度器,concurrency小于1时按1处理
func NewScheduler(concurrency int, task Task) *Scheduler {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Scheduler{concurrency: concurrency, task: task}
}

// OnDone 注册单条目完成回调
func (s *Scheduler) OnDone(fn func(*models.Result)) {
	s.onDone = fn
}

// Run 并发采集全部条目,返回与输入同序同长的结果
//
// 单个条目的失败(包括panic)不会影响兄弟任务;
// 全部任务结束前不返回。
func (s *Scheduler) Run(ctx context.Context, entries []models.Product) []*models.Result {
	results := make([]*models.Result, len(entries))

	sem := make(chan struct{}, s.concurrency)
	var wg sync.WaitGroup

	for i, entry := range entries {
		wg.Add(1)
		go func(idx int, item models.Product) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			results[idx] = s.runOne(ctx, item)
			if s.onDone != nil {
				s.onDone(results[idx])
			}
		}(i, entry)
	}

	wg.Wait()
	return results
}

// runOne 执行单个任务,panic降级为CriticalError结果
func (s *Scheduler) runOne(ctx context.Context, entry models.Product) (res *models.Result) {
	defer func() {
		if r := recover(); r != nil {
			utils.Errorf("[%s] 任务panic: %v", entry.Key(), r)
			res = &models.Result{Product: entry, Status: models.StatusCritical}
		}
	}()

	res = s.task(ctx, entry)
	if res == nil {
		// 任务实现违约,补一条失败结果保证每条目恰好一条
		res = &models.Result{Product: entry, Status: models.StatusCritical}
	}
	return res
}
