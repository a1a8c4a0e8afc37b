package extract

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// BrowserFetcher 使用无头 Chromium 渲染页面，适用于依赖脚本渲染的招聘平台。
// 浏览器在首次 Fetch 时启动并复用，调用方负责 Close。
type BrowserFetcher struct {
	timeout      time.Duration
	allowPrivate bool
	logger       *slog.Logger

	mu      sync.Mutex
	browser *rod.Browser
	launch  *launcher.Launcher
}

// NewBrowserFetcher 构造 BrowserFetcher；allowPrivate 为 false 时导航前拒绝解析到非公网地址的主机。
func NewBrowserFetcher(timeout time.Duration, allowPrivate bool, logger *slog.Logger) *BrowserFetcher {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BrowserFetcher{timeout: timeout, allowPrivate: allowPrivate, logger: logger}
}

func (f *BrowserFetcher) connect() (*rod.Browser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.browser != nil {
		return f.browser, nil
	}

	launch := launcher.New().
		Headless(true).
		NoSandbox(true)
	if path, ok := launcher.LookPath(); ok {
		launch = launch.Bin(path)
	}

	controlURL, err := launch.Launch()
	if err != nil {
		launch.Cleanup()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		launch.Cleanup()
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	f.logger.Info("headless browser started")
	f.browser = browser
	f.launch = launch
	return browser, nil
}

func (f *BrowserFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	if !f.allowPrivate {
		if err := checkPublicHost(ctx, rawURL); err != nil {
			return "", err
		}
	}

	browser, err := f.connect()
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	page, err := browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return "", fmt.Errorf("open page: %w", err)
	}
	defer func() { _ = page.Close() }()

	status := 0
	waitDocument := page.EachEvent(func(e *proto.NetworkResponseReceived) bool {
		if e.Type != proto.NetworkResourceTypeDocument {
			return false
		}
		status = e.Response.Status
		return true
	})

	if err := page.Navigate(rawURL); err != nil {
		return "", fmt.Errorf("navigate: %w", err)
	}
	waitDocument()

	if status != 0 && status != 200 {
		return "", &StatusError{StatusCode: status}
	}

	if err := page.WaitLoad(); err != nil {
		return "", fmt.Errorf("wait load: %w", err)
	}

	html, err := page.HTML()
	if err != nil {
		return "", fmt.Errorf("read html: %w", err)
	}
	return html, nil
}

// Close 关闭浏览器并清理临时目录。
func (f *BrowserFetcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.browser == nil {
		return nil
	}
	err := f.browser.Close()
	f.launch.Cleanup()
	f.browser = nil
	f.launch = nil
	return err
}
