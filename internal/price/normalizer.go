// Package price 价格文本规范化
//
// 把页面上抓到的原始价格文本(如 "1 299,00 €"、"£1,299.00")解析为
// (金额, 货币代码)。纯函数,不依赖浏览器,可单独测试。
package price

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/RecoveryAshes/pricewatch/internal/models"
)

var (
	// ErrNoPrice 清洗后的文本中没有数字
	ErrNoPrice = errors.New("文本中未找到价格数字")
	// ErrEmptyText 输入为空
	ErrEmptyText = errors.New("价格文本为空")
)

// numberPattern 第一个连续数字token(整数或小数)
var numberPattern = regexp.MustCompile(`\d+(\.\d+)?`)

// Normalize 清洗价格文本并解析为规范化报价
//
// 货币识别优先级: GBP > USD > EUR(默认)。
// 分隔符约定: EUR文本空格为千分位、逗号为小数点;
// 非EUR文本逗号为千分位、点为小数点。
func Normalize(text string) (models.PriceQuote, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.PriceQuote{}, ErrEmptyText
	}

	currency := "EUR"
	if strings.Contains(text, "£") || strings.Contains(text, "GBP") {
		currency = "GBP"
	} else if strings.Contains(text, "$") || strings.Contains(text, "USD") {
		currency = "USD"
	}

	// 去掉货币符号/代码和不间断空格
	replacer := strings.NewReplacer(
		"€", "", "£", "", "$", "",
		"EUR", "", "GBP", "", "USD", "",
		" ", "", " ", "",
	)
	clean := strings.TrimSpace(replacer.Replace(text))

	if currency == "EUR" {
		// 1 299,00 -> 1299.00
		clean = strings.ReplaceAll(clean, " ", "")
		clean = strings.ReplaceAll(clean, ",", ".")
	} else {
		// 1,299.00 -> 1299.00
		clean = strings.ReplaceAll(clean, ",", "")
		clean = strings.ReplaceAll(clean, " ", "")
	}

	token := numberPattern.FindString(clean)
	if token == "" {
		return models.PriceQuote{}, ErrNoPrice
	}

	amount, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return models.PriceQuote{}, ErrNoPrice
	}

	return models.PriceQuote{Amount: amount, Currency: currency}, nil
}
