// Package browser Rod浏览器会话管理
//
// Factory负责启动/关闭共享的浏览器进程;每个商品采集通过Open拿到
// 一个带随机指纹的独立隐身上下文,用完即Close,互不污染。
package browser

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/RecoveryAshes/pricewatch/internal/utils"
)

// Factory 浏览器会话工厂
// 整个采集批次共享一个浏览器进程,会话之间靠隐身上下文隔离
type Factory struct {
	headless bool
	launcher *launcher.Launcher
	browser  *rod.Browser
	rng      *rand.Rand
}

// NewFactory 创建会话工厂,Start之前不占用任何资源
func NewFactory(headless bool) *Factory {
	return &Factory{
		headless: headless,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Start 启动浏览器进程并建立DevTools连接
func (f *Factory) Start() error {
	l := launcher.New().Headless(f.headless)

	// 反自动化检测与容器环境兼容参数
	l = l.Set("disable-blink-features", "AutomationControlled")
	l = l.Set("no-sandbox")
	l = l.Set("disable-setuid-sandbox")
	l = l.Set("disable-infobars")
	l = l.Set("ignore-certificate-errors")
	l = l.Set("disable-dev-shm-usage")

	controlURL, err := l.Launch()
	if err != nil {
		return fmt.Errorf("启动浏览器失败: %w", err)
	}

	f.launcher = l
	f.browser = rod.New().ControlURL(controlURL)
	if err := f.browser.Connect(); err != nil {
		return fmt.Errorf("连接浏览器失败: %w", err)
	}

	utils.Debugf("浏览器已启动: %s", controlURL)
	return nil
}

// Open 打开一个带随机指纹的新会话(独立隐身上下文)
func (f *Factory) Open() (*Session, error) {
	if f.browser == nil {
		return nil, fmt.Errorf("浏览器未启动")
	}

	incognito, err := f.browser.Incognito()
	if err != nil {
		return nil, fmt.Errorf("创建隐身上下文失败: %w", err)
	}

	page, err := incognito.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("创建标签页失败: %w", err)
	}

	fp := RandomFingerprint(f.rng)
	s := &Session{
		browser:   f.browser,
		contextID: incognito.BrowserContextID,
		page:      page,
	}
	if err := s.applyFingerprint(fp); err != nil {
		_ = s.Close()
		return nil, err
	}

	utils.Debugf("新会话指纹: %dx%d %s", fp.Width, fp.Height, shortUA(fp.UserAgent))
	return s, nil
}

// Close 关闭浏览器进程
func (f *Factory) Close() {
	if f.browser != nil {
		if err := f.browser.Close(); err != nil {
			utils.Warnf("关闭浏览器失败: %v", err)
		}
		f.browser = nil
	}
	if f.launcher != nil {
		f.launcher.Cleanup()
		f.launcher = nil
	}
	utils.Debugf("浏览器已关闭")
}

// Session 单个商品采集的浏览器会话,实现platform.Session
type Session struct {
	browser   *rod.Browser
	contextID proto.BrowserBrowserContextID
	page      *rod.Page
}

// applyFingerprint 下发UA/视口/时区/语言覆盖并注入反检测脚本
func (s *Session) applyFingerprint(fp Fingerprint) error {
	err := proto.NetworkSetUserAgentOverride{
		UserAgent:      fp.UserAgent,
		AcceptLanguage: "en-GB,en;q=0.9",
	}.Call(s.page)
	if err != nil {
		return fmt.Errorf("设置User-Agent失败: %w", err)
	}

	err = s.page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             fp.Width,
		Height:            fp.Height,
		DeviceScaleFactor: 1,
	})
	if err != nil {
		return fmt.Errorf("设置视口失败: %w", err)
	}

	if err := (proto.EmulationSetTimezoneOverride{TimezoneID: fp.Timezone}).Call(s.page); err != nil {
		return fmt.Errorf("设置时区失败: %w", err)
	}
	if err := (proto.EmulationSetLocaleOverride{Locale: fp.Locale}).Call(s.page); err != nil {
		return fmt.Errorf("设置语言区域失败: %w", err)
	}

	if _, err := s.page.EvalOnNewDocument(stealthJS); err != nil {
		return fmt.Errorf("注入反检测脚本失败: %w", err)
	}
	return nil
}

// Navigate 导航到URL并等待页面加载完成,超时由调用方控制
func (s *Session) Navigate(url string, timeout time.Duration) error {
	p := s.page.Timeout(timeout)
	if err := p.Navigate(url); err != nil {
		return err
	}
	return p.WaitLoad()
}

// CurrentURL 当前页面URL(重定向后的真实地址)
func (s *Session) CurrentURL() string {
	info, err := s.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

// Title 当前页面标题
func (s *Session) Title() string {
	info, err := s.page.Info()
	if err != nil {
		return ""
	}
	return info.Title
}

// HTML 当前页面的完整HTML
func (s *Session) HTML() (string, error) {
	return s.page.HTML()
}

// Has 判断选择器是否命中元素,不等待
func (s *Session) Has(selector string) bool {
	has, _, err := s.page.Has(selector)
	return err == nil && has
}

// Text 等待选择器命中并返回元素文本
func (s *Session) Text(selector string, timeout time.Duration) (string, error) {
	el, err := s.page.Timeout(timeout).Element(selector)
	if err != nil {
		return "", err
	}
	return el.Text()
}

// Click 等待选择器命中并点击
func (s *Session) Click(selector string, timeout time.Duration) error {
	el, err := s.page.Timeout(timeout).Element(selector)
	if err != nil {
		return err
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

// Eval 在页面中执行JS函数,丢弃返回值
func (s *Session) Eval(js string) error {
	_, err := s.page.Evaluate(&rod.EvalOptions{JS: js})
	return err
}

// ClearState 清空会话的Cookies与本地存储
// 反爬验证逃逸时调用,让站点把会话当作全新访客
func (s *Session) ClearState() error {
	if err := (proto.NetworkClearBrowserCookies{}).Call(s.page); err != nil {
		return fmt.Errorf("清空Cookies失败: %w", err)
	}

	// 存储清理尽力而为,about:blank等页面上localStorage不可用
	_, _ = s.page.Evaluate(&rod.EvalOptions{
		JS: `() => {
			if (typeof localStorage !== 'undefined' && localStorage !== null) {
				try { localStorage.clear(); } catch (e) {}
			}
			if (typeof sessionStorage !== 'undefined' && sessionStorage !== null) {
				try { sessionStorage.clear(); } catch (e) {}
			}
			return true;
		}`,
	})
	return nil
}

// Close 关闭标签页并销毁隐身上下文
func (s *Session) Close() error {
	if s.page != nil {
		if err := s.page.Close(); err != nil {
			utils.Warnf("关闭标签页失败: %v", err)
		}
		s.page = nil
	}
	if s.contextID != "" {
		err := proto.TargetDisposeBrowserContext{BrowserContextID: s.contextID}.Call(s.browser)
		if err != nil {
			return fmt.Errorf("销毁隐身上下文失败: %w", err)
		}
		s.contextID = ""
	}
	return nil
}

// shortUA 截取UA中的浏览器标识段用于日志
func shortUA(ua string) string {
	if idx := strings.Index(ua, ") "); idx != -1 && idx+2 < len(ua) {
		return ua[idx+2:]
	}
	return ua
}
