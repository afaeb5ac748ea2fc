// Package store 商品目录与价格观测的持久化
//
// 目录是一份人工维护的CSV,允许中英文双语表头;价格观测追加写入
// CSV,可选同步写入MongoDB。
package store

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/RecoveryAshes/pricewatch/internal/models"
	"github.com/RecoveryAshes/pricewatch/internal/utils"
)

// utf8BOM 目录文件兼容Excel,读写都按utf-8-sig处理
const utf8BOM = "\xef\xbb\xbf"

// 表头别名,大小写不敏感
var (
	linkAliases     = []string{"link", "链接", "url"}
	nameAliases     = []string{"product name", "型号"}
	platformAliases = []string{"platform", "平台"}
	brandAliases    = []string{"brand", "品牌"}
	countryAliases  = []string{"country", "国家"}
)

// CSVCatalog 基于CSV文件的商品目录
type CSVCatalog struct {
	path string
}

// NewCSVCatalog 创建目录适配器,文件不存在时Load会生成模板
func NewCSVCatalog(path string) *CSVCatalog {
	return &CSVCatalog{path: path}
}

// Load 加载全部目录条目,保持文件中的顺序
// 型号为空的行跳过;平台为空的行保留,走通用策略;Country为空时默认FR
func (c *CSVCatalog) Load() ([]models.Product, error) {
	if _, err := os.Stat(c.path); os.IsNotExist(err) {
		utils.Warnf("未找到目录文件 %s,创建模板", c.path)
		if err := c.writeTemplate(); err != nil {
			return nil, err
		}
		return nil, nil
	}

	header, rows, err := c.readAll()
	if err != nil {
		return nil, err
	}

	linkIdx := findColumn(header, linkAliases)
	nameIdx := findColumn(header, nameAliases)
	platformIdx := findColumn(header, platformAliases)
	brandIdx := findColumn(header, brandAliases)
	countryIdx := findColumn(header, countryAliases)

	if nameIdx < 0 || platformIdx < 0 {
		return nil, fmt.Errorf("目录表头缺少型号或平台列: %v", header)
	}

	var products []models.Product
	for _, row := range rows {
		name := cell(row, nameIdx)
		if name == "" {
			continue
		}

		country := strings.ToUpper(cell(row, countryIdx))
		if country == "" {
			country = "FR"
		}

		products = append(products, models.Product{
			Brand:    cell(row, brandIdx),
			Name:     name,
			Platform: cell(row, platformIdx),
			Country:  country,
			URL:      cell(row, linkIdx),
		})
	}
	return products, nil
}

// CleanDuplicateLinks 清洗重复链接: 同一链接后出现的条目清空,
// 触发下次采集时重新搜索。返回清空的条目数
func (c *CSVCatalog) CleanDuplicateLinks() (int, error) {
	if _, err := os.Stat(c.path); os.IsNotExist(err) {
		return 0, nil
	}

	header, rows, err := c.readAll()
	if err != nil {
		return 0, err
	}

	linkIdx := findColumn(header, linkAliases)
	nameIdx := findColumn(header, nameAliases)
	if linkIdx < 0 {
		return 0, nil
	}

	seen := make(map[string]bool)
	cleaned := 0
	for _, row := range rows {
		link := cell(row, linkIdx)
		// 过短的值本来就是未解析占位,不参与去重
		if len(link) < 10 {
			continue
		}
		if seen[link] {
			utils.Warnf("发现重复链接,已清空等待重新搜索: %s", cell(row, nameIdx))
			row[linkIdx] = ""
			cleaned++
			continue
		}
		seen[link] = true
	}

	if cleaned == 0 {
		return 0, nil
	}
	if err := c.writeAll(header, rows); err != nil {
		return 0, err
	}
	utils.Infof("共清空 %d 个重复链接并写回 %s", cleaned, c.path)
	return cleaned, nil
}

// UpdateLink 把型号匹配的第一行链接更新为newURL
// 返回是否发生了更新
func (c *CSVCatalog) UpdateLink(productName, newURL string) (bool, error) {
	header, rows, err := c.readAll()
	if err != nil {
		return false, err
	}

	linkIdx := findColumn(header, linkAliases)
	nameIdx := findColumn(header, nameAliases)
	if linkIdx < 0 || nameIdx < 0 {
		return false, fmt.Errorf("目录表头缺少链接或型号列: %v", header)
	}

	target := strings.TrimSpace(productName)
	updated := false
	for i, row := range rows {
		if cell(row, nameIdx) == target {
			// 手工维护的行可能缺尾部列,补齐后再赋值
			for len(row) <= linkIdx {
				row = append(row, "")
			}
			row[linkIdx] = newURL
			rows[i] = row
			updated = true
			break
		}
	}

	if !updated {
		return false, nil
	}
	return true, c.writeAll(header, rows)
}

// readAll 读取表头与全部数据行,剥离BOM
func (c *CSVCatalog) readAll() (header []string, rows [][]string, err error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, nil, fmt.Errorf("读取目录文件失败: %w", err)
	}

	content := strings.TrimPrefix(string(data), utf8BOM)
	reader := csv.NewReader(strings.NewReader(content))
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("解析目录CSV失败: %w", err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("目录文件为空: %s", c.path)
	}
	return records[0], records[1:], nil
}

// writeAll 带BOM整体写回
func (c *CSVCatalog) writeAll(header []string, rows [][]string) error {
	f, err := os.Create(c.path)
	if err != nil {
		return fmt.Errorf("写目录文件失败: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(utf8BOM); err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// writeTemplate 生成空目录模板
func (c *CSVCatalog) writeTemplate() error {
	return c.writeAll([]string{"Brand", "Product Name", "Country", "Platform", "Link"}, nil)
}

// findColumn 按别名查找列下标,找不到返回-1
func findColumn(header []string, aliases []string) int {
	for i, col := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, utf8BOM)))
		for _, alias := range aliases {
			if name == alias {
				return i
			}
		}
	}
	return -1
}

// cell 安全取单元格并去除首尾空白
func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
