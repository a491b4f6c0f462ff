package connection

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/shaiso/Elastix/internal/domain"
)

const (
	// DefaultTimeout — таймаут запроса, если он не задан в конфигурации.
	DefaultTimeout = 30 * time.Second

	defaultMaxIdleConnsPerHost = 16
)

// Options — параметры создания клиента, общие для всех datasources.
type Options struct {
	// DefaultTimeout — таймаут, если DatasourceConfiguration.TimeoutSec не задан.
	DefaultTimeout time.Duration

	// Transport — базовый RoundTripper (для тестов). Если nil — собственный http.Transport.
	Transport http.RoundTripper
}

// Client — handle подключения к одному datasource.
//
// Потокобезопасен. Узлы выбираются по кругу (round-robin).
type Client struct {
	httpClient *http.Client
	transport  *http.Transport // nil, если передан внешний Transport
	baseURLs   []string
	auth       *domain.BasicAuth
	timeout    time.Duration

	next   atomic.Uint64
	closed atomic.Bool
}

// NewClient создаёт клиент для конфигурации.
func NewClient(cfg domain.DatasourceConfiguration, opts Options) (*Client, error) {
	if invalids := cfg.Validate(); len(invalids) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(invalids, "; "))
	}

	defaultTimeout := opts.DefaultTimeout
	if defaultTimeout <= 0 {
		defaultTimeout = DefaultTimeout
	}
	timeout := cfg.Timeout(defaultTimeout)

	c := &Client{
		baseURLs: cfg.BaseURLs(),
		timeout:  timeout,
	}
	if cfg.Auth != nil && cfg.Auth.Username != "" {
		auth := *cfg.Auth
		c.auth = &auth
	}

	rt := opts.Transport
	if rt == nil {
		tr := http.DefaultTransport.(*http.Transport).Clone()
		tr.MaxIdleConnsPerHost = defaultMaxIdleConnsPerHost
		tr.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: cfg.SkipTLSVerify,
		}
		c.transport = tr
		rt = tr
	}

	c.httpClient = &http.Client{
		Timeout:   timeout,
		Transport: rt,
	}

	return c, nil
}

// Endpoints возвращает базовые URL узлов.
func (c *Client) Endpoints() []string {
	return append([]string(nil), c.baseURLs...)
}

// Timeout возвращает таймаут одного запроса.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// pick выбирает следующий узел.
func (c *Client) pick() string {
	n := c.next.Add(1) - 1
	return c.baseURLs[n%uint64(len(c.baseURLs))]
}

// URL строит полный URL запроса: базовый URL узла + path.
// Path не экранируется; недостающий ведущий слэш добавляется.
func (c *Client) URL(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.pick() + path
}

// Do отправляет один запрос на следующий узел.
//
// contentType пуст, если тела нет. Вызывающий обязан закрыть resp.Body.
func (c *Client) Do(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}

	req, err := http.NewRequestWithContext(ctx, method, c.URL(path), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.auth != nil {
		req.SetBasicAuth(c.auth.Username, c.auth.Password)
	}

	return c.httpClient.Do(req)
}

// Ping проверяет доступность кластера запросом GET /.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.Do(ctx, http.MethodGet, "/", nil, "")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: HTTP %d", ErrUnreachable, resp.StatusCode)
	}
	return nil
}

// Close закрывает клиент и освобождает idle-соединения.
// Повторный вызов безопасен.
func (c *Client) Close() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	if c.transport != nil {
		c.transport.CloseIdleConnections()
	}
}

// release освобождает idle-соединения, не закрывая клиент:
// уже выданный клиент продолжает работать.
func (c *Client) release() {
	if c.transport != nil {
		c.transport.CloseIdleConnections()
	}
}

// IsClosed проверяет, закрыт ли клиент.
func (c *Client) IsClosed() bool {
	return c.closed.Load()
}
