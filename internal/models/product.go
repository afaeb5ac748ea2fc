package models

import (
	"fmt"
	"strings"
)

// Status 采集终态
// 取值与价格日志CSV中的Status列一一对应
type Status string

const (
	StatusSuccess       Status = "Success"                 // 成功取到价格
	StatusOutOfStock    Status = "Out of Stock"            // 商品缺货(不算失败)
	StatusNoLinkFound   Status = "Failed: No Link Found"   // 自动搜索未找到链接
	StatusEmptyURL      Status = "Failed: Empty URL"       // 链接为空且该平台不支持搜索
	StatusNavigation    Status = "Failed: Navigation Error" // 导航失败(含死链二次失效)
	StatusAntiBot       Status = "Failed: Anti-Bot Block"  // 反爬验证逃逸失败
	StatusPriceNotFound Status = "Failed: Price Not Found" // 页面正常但未提取到价格
	StatusCritical      Status = "Failed: Critical Error"  // 未预期的异常
)

// IsFailed 是否为失败终态(缺货不算失败)
func (s Status) IsFailed() bool {
	return strings.HasPrefix(string(s), "Failed")
}

// Product 商品目录条目
// 以Name(去空格)作为唯一标识,链接回写时按Name匹配
type Product struct {
	Brand    string `json:"brand"`    // 品牌
	Name     string `json:"name"`     // 型号/商品名
	Platform string `json:"platform"` // 平台标识(如 Amazon UK / Fnac / Darty)
	Country  string `json:"country"`  // 国家代码(默认FR)
	URL      string `json:"url"`      // 商品链接,空表示待搜索
}

// Key 返回目录内的唯一键(去空格的商品名)
func (p Product) Key() string {
	return strings.TrimSpace(p.Name)
}

// HasLink 链接是否可用(短于10个字符视为未解析)
func (p Product) HasLink() bool {
	return len(strings.TrimSpace(p.URL)) >= 10
}

// SearchTerm 自动搜索使用的关键词
func (p Product) SearchTerm() string {
	return strings.TrimSpace(p.Brand + " " + p.Name)
}

// Validate 校验目录条目
func (p Product) Validate() error {
	if p.Key() == "" {
		return fmt.Errorf("商品名不能为空")
	}
	return nil
}

// PriceQuote 规范化后的价格报价
// 只能由price.Normalize构造
type PriceQuote struct {
	Amount   float64 `json:"amount"`   // 金额
	Currency string  `json:"currency"` // 货币代码(EUR/GBP/USD)
}

// Result 单个商品的采集结果
// 状态机到达终态后才会产出,每个目录条目恰好一条
type Result struct {
	Product   Product  `json:"product"`    // 条目(URL可能已被更新)
	Price     *float64 `json:"price"`      // 价格,缺货或失败时为nil
	Currency  string   `json:"currency"`   // 货币代码,无价格时为空
	PageTitle string   `json:"page_title"` // 页面标题
	Status    Status   `json:"status"`     // 终态
	Duration  float64  `json:"duration"`   // 耗时(秒)
}

// BatchStats 一轮采集的汇总统计
type BatchStats struct {
	Total      int `json:"total"`
	Success    int `json:"success"`
	OutOfStock int `json:"out_of_stock"`
	Failed     int `json:"failed"`
}

// Summarize 汇总一批结果(缺货不计入失败)
func Summarize(results []*Result) BatchStats {
	stats := BatchStats{Total: len(results)}
	for _, r := range results {
		if r == nil {
			continue
		}
		switch {
		case r.Status == StatusSuccess:
			stats.Success++
		case r.Status == StatusOutOfStock:
			stats.OutOfStock++
		case r.Status.IsFailed():
			stats.Failed++
		}
	}
	return stats
}
