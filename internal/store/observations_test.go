package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/RecoveryAshes/pricewatch/internal/models"
)

func TestCSVObservationsAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices.csv")
	sink := NewCSVObservations(path)

	at := time.Date(2025, 6, 15, 9, 30, 0, 0, time.UTC)
	price := 199.99
	batch1 := []*models.Result{
		{
			Product:   models.Product{Brand: "Sony", Name: "XM5", Country: "UK", Platform: "Amazon UK"},
			Price:     &price,
			Currency:  "GBP",
			PageTitle: "Sony XM5 : Amazon.co.uk",
			Status:    models.StatusSuccess,
		},
		{
			Product: models.Product{Brand: "Bose", Name: "QC45", Country: "FR", Platform: "Fnac"},
			Status:  models.StatusOutOfStock,
		},
	}

	if err := sink.Append("run-1", at, batch1); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)

	if !strings.HasPrefix(content, utf8BOM) {
		t.Error("新文件应以BOM开头")
	}
	if !strings.Contains(content, "Date,Time,Brand,Product Name,Country,Platform,Price,Currency,Page Title,Status,Run ID") {
		t.Errorf("表头缺失:\n%s", content)
	}
	if !strings.Contains(content, "2025-06-15,09:30:00,Sony,XM5,UK,Amazon UK,199.99,GBP,Sony XM5 : Amazon.co.uk,Success,run-1") {
		t.Errorf("成功行缺失:\n%s", content)
	}
	// 无价格终态: 价格与币种留空
	if !strings.Contains(content, "Bose,QC45,FR,Fnac,,,") {
		t.Errorf("缺货行价格应留空:\n%s", content)
	}

	// 第二批追加,不重复写表头
	if err := sink.Append("run-2", at.Add(time.Hour), batch1[:1]); err != nil {
		t.Fatalf("第二次Append() error = %v", err)
	}
	data, _ = os.ReadFile(path)
	if got := strings.Count(string(data), "Date,Time,"); got != 1 {
		t.Errorf("表头出现%d次, want 1", got)
	}
	if got := strings.Count(string(data), "Sony,XM5"); got != 2 {
		t.Errorf("Sony行出现%d次, want 2", got)
	}
}
