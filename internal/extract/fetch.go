package extract

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

const (
	defaultFetchTimeout = 10 * time.Second
	maxPageBytes        = 5 << 20
	userAgent           = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

// Fetcher 返回 URL 对应页面的 HTML。
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (string, error)
}

// StatusError 表示目标页面返回了非 200 状态码。
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.StatusCode)
}

// HTTPFetcher 直接 GET 页面，适用于服务端渲染的招聘页。
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher 构造 HTTPFetcher；timeout<=0 时使用 10s。
// allowPrivate 为 false 时拒绝连接本机、内网与链路本地地址（含重定向目标），且不走环境代理。
func NewHTTPFetcher(timeout time.Duration, allowPrivate bool) *HTTPFetcher {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !allowPrivate {
		dialer := &net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second, Control: dialControl}
		transport.DialContext = dialer.DialContext
		transport.Proxy = nil
	}
	return &HTTPFetcher{client: &http.Client{Timeout: timeout, Transport: transport}}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(body), nil
}
