package platform

import (
	"net/url"
	"strings"
	"time"
)

func init() {
	Register("darty", &dartyStrategy{})
}

// dartyStrategy Darty策略
type dartyStrategy struct{}

const dartyBase = "https://www.darty.com"

func (d *dartyStrategy) Name() string { return "darty" }

func (d *dartyStrategy) ResolveLink(s Session, keyword string) (string, error) {
	searchURL := dartyBase + "/nav/recherche?text=" + url.QueryEscape(keyword)
	if err := s.Navigate(searchURL, 30*time.Second); err != nil {
		return "", err
	}

	doc, err := parseDoc(s)
	if err != nil {
		return "", err
	}

	// 常见的商品卡片链接选择器,按优先级尝试
	selectors := []string{
		".product_detail_link",
		"a[data-automation-id='product_details_link']",
		".product-card__link",
		"div.product_list a",
	}
	for _, sel := range selectors {
		if href := firstHref(doc, sel, dartyBase, nil); href != "" {
			return href, nil
		}
	}
	return "", ErrLinkNotFound
}

func (d *dartyStrategy) Classify(s Session) Classification {
	dismiss(s, "#onetrust-accept-btn-handler")

	title := s.Title()
	if strings.Contains(title, "404") || strings.Contains(title, "Page Not Found") {
		return ClassDeadLink
	}
	return ClassNormal
}

func (d *dartyStrategy) ExtractPrice(s Session) (string, error) {
	doc, err := parseDoc(s)
	if err != nil {
		return "", err
	}

	text := firstText(doc, []string{
		".product_price", ".price", ".darty_price", "span[class*='price']",
	})
	if text == "" {
		return "", ErrPriceNotFound
	}
	return text, nil
}

func (d *dartyStrategy) Warmup(s Session) {}

func (d *dartyStrategy) Pace() (time.Duration, time.Duration) {
	return 1 * time.Second, 3 * time.Second
}
