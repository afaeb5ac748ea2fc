package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeCatalog(t *testing.T, content string) *CSVCatalog {
	t.Helper()
	path := filepath.Join(t.TempDir(), "products.csv")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return NewCSVCatalog(path)
}

func TestCatalogLoad(t *testing.T) {
	t.Run("英文表头", func(t *testing.T) {
		cat := writeCatalog(t, "Brand,Product Name,Country,Platform,Link\n"+
			"Sony,WH-1000XM5,UK,Amazon UK,https://www.amazon.co.uk/dp/B09Y2MYL5C\n"+
			"Bose,QC45,,Fnac,\n")

		products, err := cat.Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if len(products) != 2 {
			t.Fatalf("条目数 = %d, want 2", len(products))
		}
		if products[0].Name != "WH-1000XM5" || products[0].Country != "UK" {
			t.Errorf("第一条 = %+v", products[0])
		}
		if products[1].Country != "FR" {
			t.Errorf("Country为空应默认FR, got %q", products[1].Country)
		}
		if products[1].HasLink() {
			t.Error("空链接不应视为已解析")
		}
	})

	t.Run("中文表头带BOM", func(t *testing.T) {
		cat := writeCatalog(t, utf8BOM+"品牌,型号,Country,平台,链接\n"+
			"Sony,WH-1000XM5,fr,Darty,https://www.darty.com/produit/1\n")

		products, err := cat.Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if len(products) != 1 {
			t.Fatalf("条目数 = %d, want 1", len(products))
		}
		p := products[0]
		if p.Brand != "Sony" || p.Name != "WH-1000XM5" || p.Platform != "Darty" {
			t.Errorf("条目 = %+v", p)
		}
		if p.Country != "FR" {
			t.Errorf("Country应转大写, got %q", p.Country)
		}
	})

	t.Run("型号为空的行跳过", func(t *testing.T) {
		cat := writeCatalog(t, "Brand,Product Name,Country,Platform,Link\n"+
			"Sony,,UK,Amazon UK,https://example.com/x\n"+
			"Sony,XM5,UK,Amazon UK,https://example.com/y\n")

		products, err := cat.Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if len(products) != 1 || products[0].Name != "XM5" {
			t.Errorf("products = %+v", products)
		}
	})

	t.Run("平台为空的行保留", func(t *testing.T) {
		// 只有型号是必填,平台为空走通用策略
		cat := writeCatalog(t, "Brand,Product Name,Country,Platform,Link\n"+
			"Sony,XM5,FR,,https://example.com/xm5-no-platform\n")

		products, err := cat.Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if len(products) != 1 {
			t.Fatalf("条目数 = %d, want 1", len(products))
		}
		if products[0].Platform != "" || products[0].Name != "XM5" {
			t.Errorf("条目 = %+v", products[0])
		}
	})

	t.Run("文件不存在时生成模板", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "products.csv")
		cat := NewCSVCatalog(path)

		products, err := cat.Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if len(products) != 0 {
			t.Errorf("模板不应有条目, got %d", len(products))
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("模板未生成: %v", err)
		}
		if !strings.Contains(string(data), "Product Name") {
			t.Errorf("模板表头缺失: %q", string(data))
		}
	})
}

func TestCatalogCleanDuplicateLinks(t *testing.T) {
	dup := "https://www.fnac.com/a456/casque"
	cat := writeCatalog(t, "Brand,Product Name,Country,Platform,Link\n"+
		"Sony,XM5,FR,Fnac,"+dup+"\n"+
		"Sony,XM4,FR,Fnac,"+dup+"\n"+
		"Bose,QC45,FR,Fnac,https://www.fnac.com/a789/bose\n"+
		"JBL,T510,FR,Fnac,short\n")

	cleaned, err := cat.CleanDuplicateLinks()
	if err != nil {
		t.Fatalf("CleanDuplicateLinks() error = %v", err)
	}
	if cleaned != 1 {
		t.Fatalf("cleaned = %d, want 1", cleaned)
	}

	products, err := cat.Load()
	if err != nil {
		t.Fatal(err)
	}
	// 先出现的保留,后出现的清空
	if products[0].URL != dup {
		t.Errorf("第一条链接不应被清空, got %q", products[0].URL)
	}
	if products[1].URL != "" {
		t.Errorf("重复链接应被清空, got %q", products[1].URL)
	}
	if products[2].URL == "" {
		t.Error("非重复链接不应被清空")
	}
	// 过短占位值不参与去重
	if products[3].URL != "short" {
		t.Errorf("占位值不应被改动, got %q", products[3].URL)
	}
}

func TestCatalogCleanDuplicateLinksBoundary(t *testing.T) {
	// 恰好10个字符的链接已算已解析,必须参与去重
	dup := "https://ab"
	cat := writeCatalog(t, "Brand,Product Name,Country,Platform,Link\n"+
		"Sony,XM5,FR,Fnac,"+dup+"\n"+
		"Sony,XM4,FR,Fnac,"+dup+"\n")

	cleaned, err := cat.CleanDuplicateLinks()
	if err != nil {
		t.Fatalf("CleanDuplicateLinks() error = %v", err)
	}
	if cleaned != 1 {
		t.Fatalf("cleaned = %d, want 1", cleaned)
	}

	products, err := cat.Load()
	if err != nil {
		t.Fatal(err)
	}
	if products[0].URL != dup {
		t.Errorf("第一条链接不应被清空, got %q", products[0].URL)
	}
	if products[1].URL != "" {
		t.Errorf("重复链接应被清空, got %q", products[1].URL)
	}
}

func TestCatalogUpdateLink(t *testing.T) {
	cat := writeCatalog(t, utf8BOM+"品牌,型号,Country,平台,链接\n"+
		"Sony,XM5,FR,Darty,\n"+
		"Bose,QC45,FR,Darty,https://www.darty.com/produit/2\n")

	updated, err := cat.UpdateLink("XM5", "https://www.darty.com/produit/9")
	if err != nil {
		t.Fatalf("UpdateLink() error = %v", err)
	}
	if !updated {
		t.Fatal("应发生更新")
	}

	products, err := cat.Load()
	if err != nil {
		t.Fatal(err)
	}
	if products[0].URL != "https://www.darty.com/produit/9" {
		t.Errorf("链接未写回, got %q", products[0].URL)
	}
	if products[1].URL != "https://www.darty.com/produit/2" {
		t.Errorf("其他行不应被改动, got %q", products[1].URL)
	}

	updated, err = cat.UpdateLink("不存在的型号", "https://example.com")
	if err != nil {
		t.Fatalf("UpdateLink() error = %v", err)
	}
	if updated {
		t.Error("未匹配时不应报告更新")
	}
}

func TestCatalogUpdateLinkRaggedRow(t *testing.T) {
	// 手工编辑的目录可能省略尾部的Link列,回写时必须补齐而不是越界
	cat := writeCatalog(t, "Brand,Product Name,Country,Platform,Link\n"+
		"Bose,QC45,FR,TestShop\n"+
		"Sony,XM5,FR,Darty,https://www.darty.com/produit/2\n")

	updated, err := cat.UpdateLink("QC45", "https://example.com/qc45")
	if err != nil {
		t.Fatalf("UpdateLink() error = %v", err)
	}
	if !updated {
		t.Fatal("应发生更新")
	}

	products, err := cat.Load()
	if err != nil {
		t.Fatal(err)
	}
	if products[0].URL != "https://example.com/qc45" {
		t.Errorf("短行链接未写回, got %q", products[0].URL)
	}
	if products[1].URL != "https://www.darty.com/produit/2" {
		t.Errorf("其他行不应被改动, got %q", products[1].URL)
	}
}
