package platform

import (
	"strings"
	"time"
)

// genericStrategy 未知平台的兜底策略
// 不支持自动搜索链接,只用通用选择器尝试提取价格
type genericStrategy struct{}

var genericFallback Strategy = &genericStrategy{}

func (g *genericStrategy) Name() string { return "generic" }

func (g *genericStrategy) ResolveLink(s Session, keyword string) (string, error) {
	return "", ErrResolveUnsupported
}

func (g *genericStrategy) Classify(s Session) Classification {
	dismiss(s, "#onetrust-accept-btn-handler")

	title := s.Title()
	if strings.Contains(title, "404") || strings.Contains(title, "Page Not Found") {
		return ClassDeadLink
	}
	return ClassNormal
}

func (g *genericStrategy) ExtractPrice(s Session) (string, error) {
	doc, err := parseDoc(s)
	if err != nil {
		return "", err
	}

	text := firstText(doc, []string{".price", "span[class*='price']"})
	if text == "" {
		return "", ErrPriceNotFound
	}
	return text, nil
}

func (g *genericStrategy) Warmup(s Session) {}

func (g *genericStrategy) Pace() (time.Duration, time.Duration) {
	return 1 * time.Second, 3 * time.Second
}
