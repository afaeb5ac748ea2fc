package platform

import (
	"net/url"
	"strings"
	"time"
)

func init() {
	Register("boulanger", &boulangerStrategy{})
}

// boulangerStrategy Boulanger策略
// 死链特征特殊: "Oups"/"épuisé"标题,商品页URL带/ref/
type boulangerStrategy struct{}

const boulangerBase = "https://www.boulanger.com"

func (b *boulangerStrategy) Name() string { return "boulanger" }

func (b *boulangerStrategy) ResolveLink(s Session, keyword string) (string, error) {
	searchURL := boulangerBase + "/resultats?tr=" + url.QueryEscape(keyword)
	if err := s.Navigate(searchURL, 30*time.Second); err != nil {
		return "", err
	}

	dismiss(s, "#onetrust-accept-btn-handler")

	// 搜索词足够精确时会直接跳转到商品页
	if strings.Contains(s.CurrentURL(), "/ref/") {
		return s.CurrentURL(), nil
	}

	doc, err := parseDoc(s)
	if err != nil {
		return "", err
	}

	if href := firstHref(doc, "a[href*='/ref/']", boulangerBase, nil); href != "" {
		return href, nil
	}
	return "", ErrLinkNotFound
}

func (b *boulangerStrategy) Classify(s Session) Classification {
	dismiss(s, "#onetrust-accept-btn-handler")

	title := s.Title()
	if strings.Contains(title, "Oups") || strings.Contains(title, "épuisé") {
		return ClassDeadLink
	}
	if strings.Contains(title, "404") || strings.Contains(title, "Page Not Found") {
		return ClassDeadLink
	}
	return ClassNormal
}

func (b *boulangerStrategy) ExtractPrice(s Session) (string, error) {
	doc, err := parseDoc(s)
	if err != nil {
		return "", err
	}

	// 主价格块的整数和小数部分以换行分隔,拼成小数点格式交给规范化器
	if text := strings.TrimSpace(doc.Find(".price__amount").First().Text()); text != "" {
		return strings.ReplaceAll(text, "\n", ","), nil
	}

	text := firstText(doc, []string{".price", "span[class*='price']"})
	if text == "" {
		return "", ErrPriceNotFound
	}
	return text, nil
}

func (b *boulangerStrategy) Warmup(s Session) {}

func (b *boulangerStrategy) Pace() (time.Duration, time.Duration) {
	return 1 * time.Second, 3 * time.Second
}
