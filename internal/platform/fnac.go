package platform

import (
	"net/url"
	"strings"
	"time"
)

func init() {
	Register("fnac", &fnacStrategy{})
}

// fnacStrategy Fnac策略
type fnacStrategy struct{}

const fnacBase = "https://www.fnac.com"

func (f *fnacStrategy) Name() string { return "fnac" }

func (f *fnacStrategy) ResolveLink(s Session, keyword string) (string, error) {
	searchURL := fnacBase + "/SearchResult/ResultList.aspx?Search=" + url.QueryEscape(keyword)
	if err := s.Navigate(searchURL, 30*time.Second); err != nil {
		return "", err
	}

	dismiss(s, "#onetrust-accept-btn-handler")

	doc, err := parseDoc(s)
	if err != nil {
		return "", err
	}

	// 商品链接形如 /aXXXX 或 /mpXXXX,排除评论页
	href := firstHref(doc, "article a", fnacBase, func(link string) bool {
		return strings.Contains(link, "fnac.com") &&
			(strings.Contains(link, "/a") || strings.Contains(link, "/mp")) &&
			!strings.Contains(link, "avis")
	})
	if href != "" {
		return href, nil
	}

	if href := firstHref(doc, ".Article-title a", fnacBase, nil); href != "" {
		return href, nil
	}
	return "", ErrLinkNotFound
}

func (f *fnacStrategy) Classify(s Session) Classification {
	dismiss(s, "#onetrust-accept-btn-handler")

	title := s.Title()
	if strings.Contains(title, "404") || strings.Contains(title, "Page Not Found") {
		return ClassDeadLink
	}
	return ClassNormal
}

func (f *fnacStrategy) ExtractPrice(s Session) (string, error) {
	doc, err := parseDoc(s)
	if err != nil {
		return "", err
	}

	text := firstText(doc, []string{
		".f-price", ".userPrice", ".product-price", ".price", "span[class*='price']",
	})
	if text == "" {
		return "", ErrPriceNotFound
	}
	return text, nil
}

func (f *fnacStrategy) Warmup(s Session) {}

func (f *fnacStrategy) Pace() (time.Duration, time.Duration) {
	return 1 * time.Second, 3 * time.Second
}
