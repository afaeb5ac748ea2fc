// Package acquire 单商品采集状态机与并发调度
//
// 状态机把一个目录条目从链接解析一路推进到终态,所有重试/逃逸
// 策略都收敛在这里,每个条目恰好产出一条结果。
package acquire

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"time"

	"github.com/RecoveryAshes/pricewatch/internal/models"
	"github.com/RecoveryAshes/pricewatch/internal/platform"
	"github.com/RecoveryAshes/pricewatch/internal/price"
	"github.com/RecoveryAshes/pricewatch/internal/utils"
)

// state 状态机状态
type state int

const (
	stateNeedLink    state = iota // 链接缺失,准备搜索
	stateResolving                // 正在搜索链接
	stateNavigating               // 正在导航到商品页
	stateClassifying              // 页面分类(正常/死链/验证/缺货)
	stateExtracting               // 提取并规范化价格
	stateDone                     // 终态已写入结果
)

// Timing 状态机的时限与延迟参数
type Timing struct {
	NavTimeoutFirst   time.Duration // 第一次导航超时(较短)
	NavTimeoutSecond  time.Duration // 第二次导航超时(较长)
	EscapeBackoffMin  time.Duration // 验证逃逸等待下限
	EscapeBackoffMax  time.Duration // 验证逃逸等待上限
	ExtractRetryDelay time.Duration // 价格提取重试前的延迟
	TitleProbeTimeout time.Duration // h1标题兜底查询超时
}

// DefaultTiming 默认参数,与线上采集节奏一致
func DefaultTiming() Timing {
	return Timing{
		NavTimeoutFirst:   40 * time.Second,
		NavTimeoutSecond:  60 * time.Second,
		EscapeBackoffMin:  18 * time.Second,
		EscapeBackoffMax:  25 * time.Second,
		ExtractRetryDelay: 2 * time.Second,
		TitleProbeTimeout: 2 * time.Second,
	}
}

// Machine 单商品采集状态机
//
// 状态转移表:
//
//	NeedLink    -> Resolving                     链接为空
//	NeedLink    -> Navigating                    链接已有
//	Resolving   -> Navigating                    搜索成功(新链接记入结果,待批量回写)
//	Resolving   -> Done(NoLinkFound/EmptyURL)    搜索失败/平台不支持
//	Navigating  -> Classifying                   导航成功
//	Navigating  -> Navigating                    第一次超时,换更长超时重试(共2次)
//	Navigating  -> NeedLink                      两次都失败视为死链,清空链接(整轮最多回退1次)
//	Navigating  -> Done(NavigationError)         第二次死链,不再循环
//	Classifying -> NeedLink / Done(同上)         平台判定死链
//	Classifying -> Navigating                    验证页: 逃逸(清状态+退避+预热)后恰好重试1次
//	Classifying -> Done(AntiBotBlock)            逃逸后仍是验证页
//	Classifying -> Done(OutOfStock)              缺货,非失败
//	Classifying -> Extracting                    正常页面
//	Extracting  -> Done(Success)                 规范化成功
//	Extracting  -> Extracting                    失败后延迟重试1次
//	Extracting  -> Done(PriceNotFound)           重试仍失败
//
// 任何状态中的panic都被捕获并映射为Failed(CriticalError)。
type Machine struct {
	entry    models.Product
	session  platform.Session
	strategy platform.Strategy
	timing   Timing

	// 可注入,测试中替换真实等待与随机数
	sleep func(time.Duration)
	rng   *rand.Rand
}

// NewMachine 创建状态机,一个条目一台,不可复用
func NewMachine(entry models.Product, session platform.Session, strategy platform.Strategy, timing Timing) *Machine {
	return &Machine{
		entry:    entry,
		session:  session,
		strategy: strategy,
		timing:   timing,
		sleep:    time.Sleep,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run 把条目推进到终态并返回结果
// 只在到达终态后返回,绝不产出半成品结果
func (m *Machine) Run(ctx context.Context) (res *models.Result) {
	start := time.Now()
	res = &models.Result{Product: m.entry}

	defer func() {
		if r := recover(); r != nil {
			utils.Errorf("[%s] 采集panic: %v", m.entry.Key(), r)
			res.Status = models.StatusCritical
			res.Price = nil
			res.Currency = ""
		}
		res.Duration = time.Since(start).Seconds()
	}()

	utils.Infof("正在处理 [%s] %s (%s) ...", m.entry.Country, m.entry.Key(), m.entry.Platform)

	// 会话预热(Amazon访问首页/接受Cookie/滚动,其余平台为空操作)
	m.strategy.Warmup(m.session)

	var (
		deadLinkRecovered bool // 死链重搜整轮只允许一次
		escaped           bool // 验证逃逸只允许一次
		extractRetried    bool // 价格提取只重试一次
		justResolved      bool // 刚搜索到链接(可能已经停在商品页上)
		singleNavRetry    bool // 逃逸后的导航只允许单次尝试
		navAttempt        int
	)

	targetURL := strings.TrimSpace(m.entry.URL)
	st := stateNavigating
	if !m.entry.HasLink() {
		targetURL = ""
		st = stateNeedLink
	}

	for st != stateDone {
		if ctx.Err() != nil {
			res.Status = models.StatusCritical
			break
		}

		switch st {
		case stateNeedLink:
			if targetURL != "" {
				st = stateNavigating
				continue
			}
			st = stateResolving

		case stateResolving:
			utils.Infof("[%s] 链接为空/失效,执行自动搜索...", m.entry.Key())
			link, err := m.strategy.ResolveLink(m.session, m.entry.SearchTerm())
			if errors.Is(err, platform.ErrResolveUnsupported) {
				res.Status = models.StatusEmptyURL
				st = stateDone
				continue
			}
			if err != nil {
				utils.Warnf("[%s] 未搜到链接: %v", m.entry.Key(), err)
				res.Status = models.StatusNoLinkFound
				st = stateDone
				continue
			}
			utils.Infof("[%s] 自动填充链接: %s", m.entry.Key(), link)
			targetURL = link
			res.Product.URL = link // 新链接记入结果,由目录适配器批量回写
			justResolved = true
			singleNavRetry = false
			navAttempt = 0
			st = stateNavigating

		case stateNavigating:
			// 搜索后可能已经停在商品页上,无需再导航
			if justResolved && strings.Contains(targetURL, "/ref/") && m.session.CurrentURL() == targetURL {
				justResolved = false
				st = stateClassifying
				continue
			}
			justResolved = false

			// 导航前随机降速,节奏由平台策略决定
			paceMin, paceMax := m.strategy.Pace()
			m.sleep(m.randDuration(paceMin, paceMax))

			navAttempt++
			timeout := m.timing.NavTimeoutFirst
			if navAttempt > 1 {
				timeout = m.timing.NavTimeoutSecond
			}

			if err := m.session.Navigate(targetURL, timeout); err != nil {
				utils.Warnf("[%s] 导航超时/错误 (尝试%d): %v", m.entry.Key(), navAttempt, err)
				if navAttempt < 2 && !singleNavRetry {
					continue
				}
				// 两次导航都失败,按死链处理
				st = m.onDeadLink(res, &targetURL, &deadLinkRecovered, &navAttempt)
				continue
			}
			st = stateClassifying

		case stateClassifying:
			switch m.strategy.Classify(m.session) {
			case platform.ClassDeadLink:
				utils.Warnf("[%s] 检测到死链/404页面", m.entry.Key())
				st = m.onDeadLink(res, &targetURL, &deadLinkRecovered, &navAttempt)

			case platform.ClassChallenge:
				if escaped {
					utils.Warnf("[%s] 验证逃逸失败,放弃", m.entry.Key())
					res.Status = models.StatusAntiBot
					st = stateDone
					continue
				}
				escaped = true
				m.escape()
				// 逃逸后恰好重试一次导航
				singleNavRetry = true
				navAttempt = 1
				st = stateNavigating

			case platform.ClassOutOfStock:
				utils.Infof("[%s] 商品缺货", m.entry.Key())
				res.Status = models.StatusOutOfStock
				res.PageTitle = m.pageTitle()
				st = stateDone

			default:
				st = stateExtracting
			}

		case stateExtracting:
			text, err := m.strategy.ExtractPrice(m.session)
			var quote models.PriceQuote
			if err == nil {
				quote, err = price.Normalize(text)
			}
			if err != nil {
				if !extractRetried {
					extractRetried = true
					utils.Debugf("[%s] 未找到价格,%.0f秒后重试", m.entry.Key(), m.timing.ExtractRetryDelay.Seconds())
					m.sleep(m.timing.ExtractRetryDelay)
					continue
				}
				utils.Warnf("[%s] 未找到价格", m.entry.Key())
				res.Status = models.StatusPriceNotFound
				res.PageTitle = m.pageTitle()
				st = stateDone
				continue
			}

			amount := quote.Amount
			res.Price = &amount
			res.Currency = quote.Currency
			res.Status = models.StatusSuccess
			res.PageTitle = m.pageTitle()
			utils.Infof("[成功] %s: %s %.2f", m.entry.Key(), quote.Currency, quote.Amount)
			st = stateDone
		}
	}

	return res
}

// onDeadLink 死链处理: 整轮允许清空链接重搜一次,第二次直接终止
func (m *Machine) onDeadLink(res *models.Result, targetURL *string, recovered *bool, navAttempt *int) state {
	if *recovered {
		res.Status = models.StatusNavigation
		return stateDone
	}
	*recovered = true
	*targetURL = ""
	res.Product.URL = ""
	*navAttempt = 0
	return stateNeedLink
}

// escape 验证逃逸: 清空会话状态,长退避,重新预热
func (m *Machine) escape() {
	utils.Warnf("[%s] 遭遇反爬验证,尝试绕过...", m.entry.Key())

	if err := m.session.ClearState(); err != nil {
		utils.Warnf("[%s] 清空会话状态失败: %v", m.entry.Key(), err)
	} else {
		utils.Debugf("[%s] 会话Cookies已清空", m.entry.Key())
	}

	backoff := m.randDuration(m.timing.EscapeBackoffMin, m.timing.EscapeBackoffMax)
	utils.Infof("[%s] 等待 %.0f 秒后重试...", m.entry.Key(), backoff.Seconds())
	m.sleep(backoff)

	m.strategy.Warmup(m.session)
}

// pageTitle 读取页面标题,标题过短时用h1兜底
func (m *Machine) pageTitle() string {
	title := strings.TrimSpace(m.session.Title())
	if len(title) < 15 {
		if h1, err := m.session.Text("h1", m.timing.TitleProbeTimeout); err == nil {
			if h1 = strings.TrimSpace(h1); h1 != "" {
				return h1
			}
		}
	}
	return title
}

// randDuration 返回[min,max)内的随机时长
func (m *Machine) randDuration(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(m.rng.Int63n(int64(max-min)))
}
