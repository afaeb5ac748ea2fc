package acquire

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/RecoveryAshes/pricewatch/internal/models"
	"github.com/RecoveryAshes/pricewatch/internal/platform"
)

// scriptSession 按脚本返回导航结果的假会话
type scriptSession struct {
	navErrs   []error // 第n次导航返回第n个错误,超出后重复最后一个
	navCalls  int
	navigated []string
	title     string
	current   string
	cleared   int
}

func (s *scriptSession) Navigate(url string, timeout time.Duration) error {
	idx := s.navCalls
	s.navCalls++
	s.navigated = append(s.navigated, url)

	var err error
	if len(s.navErrs) > 0 {
		if idx >= len(s.navErrs) {
			idx = len(s.navErrs) - 1
		}
		err = s.navErrs[idx]
	}
	if err == nil {
		s.current = url
	}
	return err
}

func (s *scriptSession) CurrentURL() string    { return s.current }
func (s *scriptSession) Title() string         { return s.title }
func (s *scriptSession) HTML() (string, error) { return "", nil }
func (s *scriptSession) Has(string) bool       { return false }

func (s *scriptSession) Text(string, time.Duration) (string, error) {
	return "", errors.New("not found")
}

func (s *scriptSession) Click(string, time.Duration) error { return nil }
func (s *scriptSession) Eval(string) error                 { return nil }

func (s *scriptSession) ClearState() error {
	s.cleared++
	return nil
}

// fakeStrategy 按脚本应答的假策略
type fakeStrategy struct {
	links        []string // 依次返回的搜索结果,空串表示ErrLinkNotFound
	resolveErr   error    // 非nil时所有搜索都返回该错误
	resolveCalls int

	classes       []platform.Classification // 依次返回的分类,超出后重复最后一个
	classifyCalls int

	texts        []string // 依次返回的价格文本,空串表示ErrPriceNotFound
	extractCalls int

	warmups int
	panicOn string // "extract"时提取阶段panic
}

func (f *fakeStrategy) Name() string { return "fake" }

func (f *fakeStrategy) ResolveLink(s platform.Session, keyword string) (string, error) {
	idx := f.resolveCalls
	f.resolveCalls++
	if f.resolveErr != nil {
		return "", f.resolveErr
	}
	if idx >= len(f.links) {
		return "", platform.ErrLinkNotFound
	}
	if f.links[idx] == "" {
		return "", platform.ErrLinkNotFound
	}
	return f.links[idx], nil
}

func (f *fakeStrategy) Classify(s platform.Session) platform.Classification {
	idx := f.classifyCalls
	f.classifyCalls++
	if len(f.classes) == 0 {
		return platform.ClassNormal
	}
	if idx >= len(f.classes) {
		idx = len(f.classes) - 1
	}
	return f.classes[idx]
}

func (f *fakeStrategy) ExtractPrice(s platform.Session) (string, error) {
	if f.panicOn == "extract" {
		panic("selector engine exploded")
	}
	idx := f.extractCalls
	f.extractCalls++
	if idx >= len(f.texts) {
		return "", platform.ErrPriceNotFound
	}
	if f.texts[idx] == "" {
		return "", platform.ErrPriceNotFound
	}
	return f.texts[idx], nil
}

func (f *fakeStrategy) Warmup(s platform.Session) { f.warmups++ }

func (f *fakeStrategy) Pace() (time.Duration, time.Duration) { return 0, 0 }

// newTestMachine 等待全部替换为空操作,避免测试真实休眠
func newTestMachine(entry models.Product, sess platform.Session, strat platform.Strategy) *Machine {
	m := NewMachine(entry, sess, strat, Timing{
		NavTimeoutFirst:  time.Second,
		NavTimeoutSecond: 2 * time.Second,
	})
	m.sleep = func(time.Duration) {}
	return m
}

func TestMachine_SuccessWithResolvedLink(t *testing.T) {
	entry := models.Product{Brand: "Sony", Name: "WH-1000XM5", Platform: "Fnac", Country: "FR", URL: "https://www.fnac.com/a456"}
	sess := &scriptSession{title: "Sony WH-1000XM5 casque - Fnac"}
	strat := &fakeStrategy{texts: []string{"999,99 €"}}

	res := newTestMachine(entry, sess, strat).Run(context.Background())

	if res.Status != models.StatusSuccess {
		t.Fatalf("Status = %v, want Success", res.Status)
	}
	if res.Price == nil || *res.Price != 999.99 {
		t.Errorf("Price = %v, want 999.99", res.Price)
	}
	if res.Currency != "EUR" {
		t.Errorf("Currency = %v, want EUR", res.Currency)
	}
	if strat.resolveCalls != 0 {
		t.Errorf("已有链接不应触发搜索, resolveCalls = %d", strat.resolveCalls)
	}
	if sess.navCalls != 1 {
		t.Errorf("navCalls = %d, want 1", sess.navCalls)
	}
}

func TestMachine_NavigationFailureBounded(t *testing.T) {
	// 导航永远失败: 每轮2次尝试,死链重搜1次,总共恰好4次导航后终止
	entry := models.Product{Name: "X1", Platform: "Darty", URL: "https://www.darty.com/dead"}
	sess := &scriptSession{navErrs: []error{errors.New("net::ERR_TIMED_OUT")}}
	strat := &fakeStrategy{links: []string{"https://www.darty.com/new"}}

	res := newTestMachine(entry, sess, strat).Run(context.Background())

	if res.Status != models.StatusNavigation {
		t.Fatalf("Status = %v, want NavigationError", res.Status)
	}
	if sess.navCalls != 4 {
		t.Errorf("navCalls = %d, want 4 (每轮2次,共2轮)", sess.navCalls)
	}
	if strat.resolveCalls != 1 {
		t.Errorf("resolveCalls = %d, want 1 (死链只重搜一次)", strat.resolveCalls)
	}
}

func TestMachine_DeadLinkThenNoLinkFound(t *testing.T) {
	// 死链后重搜失败 -> Failed: No Link Found
	entry := models.Product{Name: "X2", Platform: "Darty", URL: "https://www.darty.com/dead"}
	sess := &scriptSession{}
	strat := &fakeStrategy{
		classes:    []platform.Classification{platform.ClassDeadLink},
		resolveErr: platform.ErrLinkNotFound,
	}

	res := newTestMachine(entry, sess, strat).Run(context.Background())

	if res.Status != models.StatusNoLinkFound {
		t.Fatalf("Status = %v, want NoLinkFound", res.Status)
	}
	if res.Product.URL != "" {
		t.Errorf("死链后结果中的链接应被清空, got %q", res.Product.URL)
	}
}

func TestMachine_ChallengeEscapeBounded(t *testing.T) {
	// 页面永远是验证页: 恰好逃逸一次后终止于AntiBotBlock
	entry := models.Product{Name: "X3", Platform: "Amazon UK", URL: "https://www.amazon.co.uk/dp/B0TEST"}
	sess := &scriptSession{}
	strat := &fakeStrategy{classes: []platform.Classification{platform.ClassChallenge}}

	res := newTestMachine(entry, sess, strat).Run(context.Background())

	if res.Status != models.StatusAntiBot {
		t.Fatalf("Status = %v, want AntiBotBlock", res.Status)
	}
	if sess.cleared != 1 {
		t.Errorf("ClearState调用 = %d, want 1", sess.cleared)
	}
	// 初始预热1次 + 逃逸重新预热1次
	if strat.warmups != 2 {
		t.Errorf("warmups = %d, want 2", strat.warmups)
	}
	if sess.navCalls != 2 {
		t.Errorf("navCalls = %d, want 2 (原始1次+逃逸后恰好1次)", sess.navCalls)
	}
}

func TestMachine_ChallengeThenSuccess(t *testing.T) {
	entry := models.Product{Name: "X4", Platform: "Amazon UK", URL: "https://www.amazon.co.uk/dp/B0TEST"}
	sess := &scriptSession{title: "Sony WH-1000XM5 : Amazon.co.uk"}
	strat := &fakeStrategy{
		classes: []platform.Classification{platform.ClassChallenge, platform.ClassNormal},
		texts:   []string{"£199.00"},
	}

	res := newTestMachine(entry, sess, strat).Run(context.Background())

	if res.Status != models.StatusSuccess {
		t.Fatalf("Status = %v, want Success", res.Status)
	}
	if res.Currency != "GBP" || res.Price == nil || *res.Price != 199.00 {
		t.Errorf("结果 = %v %v, want GBP 199.00", res.Currency, res.Price)
	}
}

func TestMachine_OutOfStockIsNotFailure(t *testing.T) {
	entry := models.Product{Name: "X5", Platform: "Amazon UK", URL: "https://www.amazon.co.uk/dp/B0TEST"}
	sess := &scriptSession{title: "Sony WH-1000XM5 : Amazon.co.uk"}
	strat := &fakeStrategy{classes: []platform.Classification{platform.ClassOutOfStock}}

	res := newTestMachine(entry, sess, strat).Run(context.Background())

	if res.Status != models.StatusOutOfStock {
		t.Fatalf("Status = %v, want OutOfStock", res.Status)
	}
	if res.Price != nil {
		t.Errorf("缺货时价格应为nil, got %v", *res.Price)
	}
	if res.Status.IsFailed() {
		t.Error("缺货不应计为失败")
	}
}

func TestMachine_ExtractionRetriedOnce(t *testing.T) {
	entry := models.Product{Name: "X6", Platform: "Fnac", URL: "https://www.fnac.com/a456"}
	sess := &scriptSession{title: "Produit - Fnac"}
	strat := &fakeStrategy{texts: []string{"N/A", "N/A"}}

	res := newTestMachine(entry, sess, strat).Run(context.Background())

	if res.Status != models.StatusPriceNotFound {
		t.Fatalf("Status = %v, want PriceNotFound", res.Status)
	}
	if strat.extractCalls != 2 {
		t.Errorf("extractCalls = %d, want 2 (重试恰好一次)", strat.extractCalls)
	}
}

func TestMachine_ResolveThenDeadThenSuccess(t *testing.T) {
	// 空链接 -> 搜到链接1 -> 死链 -> 重搜链接2 -> 正常 -> 成功
	entry := models.Product{Brand: "Sony", Name: "X7", Platform: "Darty", Country: "FR"}
	sess := &scriptSession{title: "Casque Sony X7 - Darty"}
	strat := &fakeStrategy{
		links:   []string{"https://www.darty.com/old", "https://www.darty.com/new"},
		classes: []platform.Classification{platform.ClassDeadLink, platform.ClassNormal},
		texts:   []string{"£250.00"},
	}

	res := newTestMachine(entry, sess, strat).Run(context.Background())

	if res.Status != models.StatusSuccess {
		t.Fatalf("Status = %v, want Success", res.Status)
	}
	if res.Price == nil || *res.Price != 250.00 || res.Currency != "GBP" {
		t.Errorf("结果 = %v %v, want GBP 250.00", res.Currency, res.Price)
	}
	if res.Product.URL != "https://www.darty.com/new" {
		t.Errorf("结果应携带最终解析的链接, got %q", res.Product.URL)
	}
	if strat.resolveCalls != 2 {
		t.Errorf("resolveCalls = %d, want 2", strat.resolveCalls)
	}
}

func TestMachine_EmptyURLWhenResolveUnsupported(t *testing.T) {
	entry := models.Product{Name: "X8", Platform: "Cdiscount"}
	sess := &scriptSession{}
	strat := &fakeStrategy{resolveErr: platform.ErrResolveUnsupported}

	res := newTestMachine(entry, sess, strat).Run(context.Background())

	if res.Status != models.StatusEmptyURL {
		t.Fatalf("Status = %v, want EmptyURL", res.Status)
	}
}

func TestMachine_PanicMapsToCriticalError(t *testing.T) {
	entry := models.Product{Name: "X9", Platform: "Fnac", URL: "https://www.fnac.com/a456"}
	sess := &scriptSession{}
	strat := &fakeStrategy{panicOn: "extract"}

	res := newTestMachine(entry, sess, strat).Run(context.Background())

	if res.Status != models.StatusCritical {
		t.Fatalf("Status = %v, want CriticalError", res.Status)
	}
	if res.Price != nil {
		t.Error("严重异常时不应携带价格")
	}
}
