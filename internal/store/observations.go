package store

import (
	"encoding/csv"
	"fmt"
	"os"
	"time"

	"github.com/RecoveryAshes/pricewatch/internal/models"
)

// observationHeader 观测文件表头,与历史数据兼容
var observationHeader = []string{
	"Date", "Time", "Brand", "Product Name", "Country", "Platform",
	"Price", "Currency", "Page Title", "Status", "Run ID",
}

// ObservationSink 价格观测的落地端
// 一次Append写入一个批次的全部结果,顺序与目录一致
type ObservationSink interface {
	Append(runID string, at time.Time, results []*models.Result) error
	Close() error
}

// CSVObservations 追加式CSV观测文件
// 每次运行追加一个批次,文件不存在时先写表头
type CSVObservations struct {
	path string
}

// NewCSVObservations 创建CSV观测端
func NewCSVObservations(path string) *CSVObservations {
	return &CSVObservations{path: path}
}

// Append 按目录顺序追加一个批次的观测
func (o *CSVObservations) Append(runID string, at time.Time, results []*models.Result) error {
	_, statErr := os.Stat(o.path)
	newFile := os.IsNotExist(statErr)

	f, err := os.OpenFile(o.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("打开观测文件失败: %w", err)
	}
	defer f.Close()

	if newFile {
		if _, err := f.WriteString(utf8BOM); err != nil {
			return err
		}
	}

	w := csv.NewWriter(f)
	if newFile {
		if err := w.Write(observationHeader); err != nil {
			return err
		}
	}

	dateStr := at.Format("2006-01-02")
	timeStr := at.Format("15:04:05")
	for _, res := range results {
		if res == nil {
			continue
		}

		// 无价格的终态(缺货/失败)价格与币种留空
		priceStr := ""
		if res.Price != nil {
			priceStr = fmt.Sprintf("%.2f", *res.Price)
		}

		row := []string{
			dateStr, timeStr,
			res.Product.Brand, res.Product.Name, res.Product.Country, res.Product.Platform,
			priceStr, res.Currency, res.PageTitle, string(res.Status), runID,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("写观测行失败: %w", err)
		}
	}

	w.Flush()
	return w.Error()
}

// Close CSV端无需释放资源
func (o *CSVObservations) Close() error { return nil }
