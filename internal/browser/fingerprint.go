package browser

import (
	"math/rand"
)

// Fingerprint 单个会话的浏览器指纹
// 每个商品采集使用独立的随机指纹,降低被关联识别的概率
type Fingerprint struct {
	UserAgent string
	Width     int
	Height    int
	Locale    string
	Timezone  string
}

// 随机User-Agent池,覆盖Chrome/Edge/Safari三家与Win/Mac/Linux三平台
var userAgents = []string{
	// Chrome - Windows
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
	// Chrome - Mac
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	// Edge - Windows
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36 Edg/123.0.0.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36 Edg/122.0.0.0",
	// Edge - Mac
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36 Edg/123.0.0.0",
	// Safari - Mac
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.3 Safari/605.1.15",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15",
	// Chrome - Linux (模拟CI环境)
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
}

var (
	viewportWidths  = []int{1920, 1366, 1440, 1536}
	viewportHeights = []int{1080, 768, 900}
)

// RandomFingerprint 生成一个随机指纹
// 语言区域与时区固定为英国,与目标站点(UK/FR零售)的访客画像一致
func RandomFingerprint(rng *rand.Rand) Fingerprint {
	return Fingerprint{
		UserAgent: userAgents[rng.Intn(len(userAgents))],
		Width:     viewportWidths[rng.Intn(len(viewportWidths))],
		Height:    viewportHeights[rng.Intn(len(viewportHeights))],
		Locale:    "en-GB",
		Timezone:  "Europe/London",
	}
}
