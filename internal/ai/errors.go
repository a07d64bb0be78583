package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"

	openaiapi "github.com/sashabaranov/go-openai"
	arkmodel "github.com/volcengine/volcengine-go-sdk/service/arkruntime/model"
)

// ErrEmptyCompletion 响应中没有 choices[0].message.content
var ErrEmptyCompletion = errors.New("completion response has no content")

// Kind 补全失败类型
type Kind int

const (
	// KindTransport 网络错误、非 2xx 响应或超时
	KindTransport Kind = iota + 1
	// KindFormat 2xx 响应但缺少补全内容或无法解析
	KindFormat
	// KindUnknown 其他错误
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindFormat:
		return "format"
	default:
		return "unknown"
	}
}

// 三类失败对应的用户可见提示，互不相同
const (
	transportFailureReply = "请求失败，请检查网络或稍后重试。"
	formatFailureReply    = "响应格式无效，请稍后重试。"
	unknownFailureReply   = "发生未知错误"
)

// RelayError 补全调用失败
type RelayError struct {
	Kind Kind
	Err  error
}

func (e *RelayError) Error() string {
	return fmt.Sprintf("relay %s error: %v", e.Kind, e.Err)
}

func (e *RelayError) Unwrap() error {
	return e.Err
}

// Reply 追加到对话记录中的提示文本
func (e *RelayError) Reply() string {
	switch e.Kind {
	case KindTransport:
		return transportFailureReply
	case KindFormat:
		return formatFailureReply
	default:
		if e.Err != nil {
			return unknownFailureReply + "：" + e.Err.Error()
		}
		return unknownFailureReply + "。"
	}
}

// classify 根据错误与 HTTP 交换记录判断失败类型
func classify(ctx context.Context, ex *exchange, err error) Kind {
	if errors.Is(err, ErrEmptyCompletion) {
		return KindFormat
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return KindTransport
	}

	var apiErr *openaiapi.APIError
	var reqErr *openaiapi.RequestError
	if errors.As(err, &apiErr) || errors.As(err, &reqErr) {
		return KindTransport
	}

	// 方舟解码 2xx 响应体失败时同样返回 RequestError，按状态码区分
	var arkAPIErr *arkmodel.APIError
	if errors.As(err, &arkAPIErr) {
		return KindTransport
	}
	var arkReqErr *arkmodel.RequestError
	if errors.As(err, &arkReqErr) {
		if arkReqErr.HTTPStatusCode >= 200 && arkReqErr.HTTPStatusCode <= 299 {
			return KindFormat
		}
		return KindTransport
	}

	if ex != nil {
		if status, seen, transportErr := ex.snapshot(); seen {
			if transportErr != nil || status < 200 || status > 299 {
				return KindTransport
			}
			// 已收到 2xx 响应但仍失败：响应体不符合预期
			return KindFormat
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindTransport
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return KindFormat
	}

	return KindUnknown
}
