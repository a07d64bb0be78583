package ai

import (
	"context"
	"net/http"
	"sync"
)

// exchange 记录一次补全调用中最后一个 HTTP 往返的结果
type exchange struct {
	mu     sync.Mutex
	status int
	err    error
	seen   bool
}

func (e *exchange) record(resp *http.Response, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.seen = true
	e.err = err
	e.status = 0
	if resp != nil {
		e.status = resp.StatusCode
	}
}

func (e *exchange) snapshot() (status int, seen bool, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status, e.seen, e.err
}

type exchangeKey struct{}

func withExchange(ctx context.Context) (context.Context, *exchange) {
	ex := &exchange{}
	return context.WithValue(ctx, exchangeKey{}, ex), ex
}

// recordingTransport 将 HTTP 往返结果写入请求 context 中的 exchange
type recordingTransport struct {
	base http.RoundTripper
}

func (t recordingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if ex, ok := req.Context().Value(exchangeKey{}).(*exchange); ok {
		ex.record(resp, err)
	}
	return resp, err
}

// NewHTTPClient 创建带交换记录的 HTTP 客户端
// 不设置 Timeout，超时由 Relay 通过 context 控制
func NewHTTPClient() *http.Client {
	return &http.Client{
		Transport: recordingTransport{base: http.DefaultTransport},
	}
}
