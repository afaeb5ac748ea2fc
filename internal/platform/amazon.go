package platform

import (
	"math/rand"
	"net/url"
	"strings"
	"time"

	"github.com/RecoveryAshes/pricewatch/internal/utils"
)

func init() {
	Register("amazon", &amazonStrategy{})
}

// amazonStrategy Amazon UK策略
// Amazon反爬最严: 需要首页预热、大幅降速,价格选择器分四级优先
type amazonStrategy struct{}

const amazonBase = "https://www.amazon.co.uk"

// 价格选择器,按优先级排列: 实付价 > 非划线价 > 旧版价格块
var amazonPriceSelectors = []string{
	".priceToPay .a-offscreen",
	".apexPriceToPay .a-offscreen",
	"#corePriceDisplay_desktop_feature_div .priceToPay .a-offscreen",
	"span[data-a-color='price'] .a-offscreen",
	".a-price:not(.a-text-price) .a-offscreen",
	"#priceblock_ourprice",
	"#priceblock_dealprice",
}

func (a *amazonStrategy) Name() string { return "amazon" }

func (a *amazonStrategy) ResolveLink(s Session, keyword string) (string, error) {
	if !strings.Contains(s.CurrentURL(), "amazon.co.uk") {
		if err := s.Navigate(amazonBase, 30*time.Second); err != nil {
			return "", err
		}
		dismiss(s, "#sp-cc-accept")
	}

	searchURL := amazonBase + "/s?k=" + url.QueryEscape(keyword)
	if err := s.Navigate(searchURL, 30*time.Second); err != nil {
		return "", err
	}

	doc, err := parseDoc(s)
	if err != nil {
		return "", err
	}

	// 搜索结果区内第一个真实的/dp/链接(跳过广告重定向)
	href := firstHref(doc, "div.s-main-slot a[href*='/dp/']", amazonBase, func(link string) bool {
		return strings.Contains(link, "/dp/") &&
			!strings.Contains(link, "slredirect") &&
			!strings.Contains(link, "#")
	})
	if href == "" {
		return "", ErrLinkNotFound
	}
	return href, nil
}

func (a *amazonStrategy) Classify(s Session) Classification {
	dismiss(s, "#onetrust-accept-btn-handler", "input#continue-shopping", "#sp-cc-accept")

	title := s.Title()

	// Robot Check页面的标题特征: 明确的"Robot Check"或异常短的"Amazon"标题
	if strings.Contains(title, "Robot Check") ||
		(len(title) < 15 && strings.Contains(title, "Amazon")) {
		return ClassChallenge
	}

	if strings.Contains(title, "404") || strings.Contains(title, "Page Not Found") {
		return ClassDeadLink
	}

	html, err := s.HTML()
	if err != nil {
		utils.Warnf("读取页面内容失败: %v", err)
		return ClassNormal
	}
	if strings.Contains(html, "SORRY") || strings.Contains(html, "we cannot find that page") {
		return ClassDeadLink
	}

	doc, err := parseDoc(s)
	if err != nil {
		return ClassNormal
	}
	if doc.Find("#outOfStock").Length() > 0 {
		return ClassOutOfStock
	}
	availability := strings.ToLower(doc.Find("#availability .a-color-price").First().Text())
	if strings.Contains(availability, "unavailable") {
		return ClassOutOfStock
	}

	return ClassNormal
}

func (a *amazonStrategy) ExtractPrice(s Session) (string, error) {
	doc, err := parseDoc(s)
	if err != nil {
		return "", err
	}

	if text := firstText(doc, amazonPriceSelectors); text != "" {
		return text, nil
	}

	// 第三方卖家: 走See All Buying Options的起售价
	if doc.Find("a[title*='See All Buying Options']").Length() > 0 {
		if text := strings.TrimSpace(doc.Find("span.a-color-price").First().Text()); text != "" {
			utils.Debugf("Amazon使用第三方卖家起售价")
			return text, nil
		}
	}

	if text := strings.TrimSpace(doc.Find(".a-price-whole").First().Text()); text != "" {
		return text, nil
	}

	return "", ErrPriceNotFound
}

// Warmup 模拟真人: 先访问首页,接受Cookie,滚动一下
func (a *amazonStrategy) Warmup(s Session) {
	if err := s.Navigate(amazonBase, 30*time.Second); err != nil {
		utils.Debugf("Amazon首页预热失败(非致命): %v", err)
		return
	}
	time.Sleep(randDuration(2*time.Second, 4*time.Second))

	dismiss(s, "#sp-cc-accept")

	_ = s.Eval(`() => {
		window.scrollBy(0, 300);
		setTimeout(() => window.scrollBy(0, 200), 500);
		setTimeout(() => window.scrollBy(0, -100), 1200);
	}`)
	time.Sleep(randDuration(1500*time.Millisecond, 3*time.Second))
}

func (a *amazonStrategy) Pace() (time.Duration, time.Duration) {
	return 8 * time.Second, 15 * time.Second
}

// randDuration 返回[min,max)内的随机时长
func randDuration(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)))
}
