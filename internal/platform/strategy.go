// Package platform 平台提取策略
//
// 每个电商平台一个Strategy实现,负责三件事: 搜索商品链接、
// 对已渲染页面分类(正常/死链/反爬验证/缺货)、提取原始价格文本。
// 状态机只依赖这组能力,不关心平台细节。
package platform

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
)

var (
	// ErrLinkNotFound 搜索结果中没有可用的商品链接
	ErrLinkNotFound = errors.New("未搜索到商品链接")
	// ErrResolveUnsupported 该平台不支持自动搜索链接
	ErrResolveUnsupported = errors.New("该平台不支持自动搜索")
	// ErrPriceNotFound 页面上没有提取到价格文本
	ErrPriceNotFound = errors.New("未提取到价格文本")
)

// Session 策略和状态机消费的浏览器会话能力
// 由browser.Session实现,测试中用假实现替代
type Session interface {
	Navigate(url string, timeout time.Duration) error
	CurrentURL() string
	Title() string
	HTML() (string, error)
	Has(selector string) bool
	Text(selector string, timeout time.Duration) (string, error)
	Click(selector string, timeout time.Duration) error
	Eval(js string) error
	ClearState() error
}

// Classification 页面分类结果
type Classification int

const (
	ClassNormal     Classification = iota // 正常商品页
	ClassDeadLink                         // 死链/404
	ClassChallenge                        // 反爬验证页
	ClassOutOfStock                       // 商品缺货
)

// String 分类名称(用于日志)
func (c Classification) String() string {
	switch c {
	case ClassDeadLink:
		return "dead_link"
	case ClassChallenge:
		return "challenge"
	case ClassOutOfStock:
		return "out_of_stock"
	default:
		return "normal"
	}
}

// Strategy 单个平台的提取策略
type Strategy interface {
	// Name 策略名称
	Name() string
	// ResolveLink 按关键词搜索并返回第一个商品链接
	ResolveLink(s Session, keyword string) (string, error)
	// Classify 对当前页面分类,内部会先尽力关掉弹窗(失败忽略)
	Classify(s Session) Classification
	// ExtractPrice 提取原始价格文本(未规范化)
	ExtractPrice(s Session) (string, error)
	// Warmup 会话预热(访问首页/接受Cookie/模拟滚动),尽力而为
	Warmup(s Session)
	// Pace 导航前的随机降速区间
	Pace() (min, max time.Duration)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Strategy)
)

// Register 注册平台策略,key为小写平台标识
func Register(key string, s Strategy) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[strings.ToLower(key)] = s
}

// Lookup 按平台名查找策略
// 平台名大小写不敏感,按子串匹配("Amazon UK"命中"amazon");
// 未知平台返回通用策略
func Lookup(platform string) Strategy {
	lower := strings.ToLower(strings.TrimSpace(platform))

	registryMu.RLock()
	defer registryMu.RUnlock()

	for key, s := range registry {
		if strings.Contains(lower, key) {
			return s
		}
	}
	return genericFallback
}

// parseDoc 把当前页面HTML解析为goquery文档
func parseDoc(s Session) (*goquery.Document, error) {
	html, err := s.HTML()
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

// firstHref 返回文档中第一个通过过滤的链接,并补全相对路径
func firstHref(doc *goquery.Document, selector, baseURL string, accept func(string) bool) string {
	var found string
	doc.Find(selector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return true
		}
		if !strings.HasPrefix(href, "http") {
			href = baseURL + href
		}
		if accept == nil || accept(href) {
			found = href
			return false
		}
		return true
	})
	return found
}

// firstText 按选择器顺序返回第一个非空文本
func firstText(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		text := strings.TrimSpace(doc.Find(sel).First().Text())
		if text != "" {
			return text
		}
	}
	return ""
}

// dismiss 尽力点击弹窗按钮,失败忽略
// 同意弹窗等可选交互绝不影响采集终态
func dismiss(s Session, selectors ...string) {
	for _, sel := range selectors {
		if s.Has(sel) {
			_ = s.Click(sel, 2*time.Second)
		}
	}
}
