package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	arkmodel "github.com/volcengine/volcengine-go-sdk/service/arkruntime/model"

	"robochat/internal/ai/component"
	"robochat/internal/config"
	"robochat/internal/model"
)

type completerFunc func(ctx context.Context, msgs []model.Message) (string, error)

func (f completerFunc) Complete(ctx context.Context, msgs []model.Message) (string, error) {
	return f(ctx, msgs)
}

// fakeUpstream 模拟外部补全接口
type fakeUpstream struct {
	server   *httptest.Server
	calls    atomic.Int32
	lastBody atomic.Value // map[string]any
	lastAuth atomic.Value // string
}

func newFakeUpstream(handler func(w http.ResponseWriter, r *http.Request)) *fakeUpstream {
	u := &fakeUpstream{}
	u.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.calls.Add(1)
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		u.lastBody.Store(body)
		u.lastAuth.Store(r.Header.Get("Authorization"))
		handler(w, r)
	}))
	return u
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

const okBody = `{"id":"cmpl-1","object":"chat.completion","created":1,"model":"deepseek-chat",
"choices":[{"index":0,"message":{"role":"assistant","content":"你好，我是 Atlas"},"finish_reason":"stop"}],
"usage":{"prompt_tokens":5,"completion_tokens":5,"total_tokens":10}}`

func testAIConfig(provider, baseURL string) *config.AIConfig {
	return &config.AIConfig{
		Provider: provider,
		APIKey:   "test-key",
		Model:    "deepseek-chat",
		BaseURL:  baseURL,
		Options: config.AIOptionsConfig{
			Temperature: 0.7,
			MaxTokens:   256,
		},
	}
}

func history() []model.Message {
	return []model.Message{
		model.NewMessage(model.RoleUser, "hello"),
		model.NewMessage(model.RoleAssistant, "hi"),
		model.NewMessage(model.RoleUser, "who are you?"),
	}
}

func TestBuildMessages(t *testing.T) {
	Convey("BuildMessages 在记录前加入系统提示", t, func() {
		h := history()
		msgs := BuildMessages("Atlas", h)

		So(len(msgs), ShouldEqual, len(h)+1)
		So(msgs[0].Role, ShouldEqual, model.RoleSystem)
		So(msgs[0].Content, ShouldEqual, "You are an assistant named Atlas.")
		for i := range h {
			So(msgs[i+1].Role, ShouldEqual, h[i].Role)
			So(msgs[i+1].Content, ShouldEqual, h[i].Content)
		}
	})
}

func TestRelay_OpenAICompleter(t *testing.T) {
	Convey("OpenAI 兼容接口的成功与三类失败", t, func() {
		ctx := context.Background()

		Convey("成功时返回第一条补全内容，请求携带鉴权与固定参数", func() {
			up := newFakeUpstream(func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, okBody)
			})
			defer up.server.Close()

			relay := NewRelay(NewOpenAICompleter(testAIConfig("deepseek", up.server.URL), NewHTTPClient()), time.Second)
			msg, err := relay.Reply(ctx, "Atlas", history())

			So(err, ShouldBeNil)
			So(msg.Role, ShouldEqual, model.RoleAssistant)
			So(msg.Content, ShouldEqual, "你好，我是 Atlas")
			So(up.calls.Load(), ShouldEqual, int32(1))
			So(up.lastAuth.Load(), ShouldEqual, "Bearer test-key")

			body := up.lastBody.Load().(map[string]any)
			So(body["model"], ShouldEqual, "deepseek-chat")
			So(body["max_tokens"], ShouldEqual, float64(256))
			So(body["temperature"], ShouldAlmostEqual, 0.7, 0.0001)

			sent := body["messages"].([]any)
			So(len(sent), ShouldEqual, 4)
			first := sent[0].(map[string]any)
			So(first["role"], ShouldEqual, "system")
			So(first["content"], ShouldEqual, "You are an assistant named Atlas.")
		})

		Convey("HTTP 500 归类为传输失败", func() {
			up := newFakeUpstream(func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusInternalServerError, `{"error":{"message":"boom","type":"server_error"}}`)
			})
			defer up.server.Close()

			relay := NewRelay(NewOpenAICompleter(testAIConfig("deepseek", up.server.URL), NewHTTPClient()), time.Second)
			msg, err := relay.Reply(ctx, "Atlas", history())

			var relayErr *RelayError
			So(errors.As(err, &relayErr), ShouldBeTrue)
			So(relayErr.Kind, ShouldEqual, KindTransport)
			So(msg.Role, ShouldEqual, model.RoleAssistant)
			So(msg.Content, ShouldEqual, transportFailureReply)
			So(up.calls.Load(), ShouldEqual, int32(1))
		})

		Convey("非 JSON 的错误响应同样归类为传输失败", func() {
			up := newFakeUpstream(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
				_, _ = w.Write([]byte("<html>bad gateway</html>"))
			})
			defer up.server.Close()

			relay := NewRelay(NewOpenAICompleter(testAIConfig("deepseek", up.server.URL), NewHTTPClient()), time.Second)
			msg, _ := relay.Reply(ctx, "Atlas", history())
			So(msg.Content, ShouldEqual, transportFailureReply)
		})

		Convey("缺少 choices 归类为格式失败", func() {
			up := newFakeUpstream(func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, `{"id":"cmpl-1","object":"chat.completion","choices":[]}`)
			})
			defer up.server.Close()

			relay := NewRelay(NewOpenAICompleter(testAIConfig("deepseek", up.server.URL), NewHTTPClient()), time.Second)
			msg, err := relay.Reply(ctx, "Atlas", history())

			var relayErr *RelayError
			So(errors.As(err, &relayErr), ShouldBeTrue)
			So(relayErr.Kind, ShouldEqual, KindFormat)
			So(msg.Content, ShouldEqual, formatFailureReply)
		})

		Convey("缺少 message.content 归类为格式失败", func() {
			up := newFakeUpstream(func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, `{"id":"cmpl-1","choices":[{"index":0,"message":{"role":"assistant"}}]}`)
			})
			defer up.server.Close()

			relay := NewRelay(NewOpenAICompleter(testAIConfig("deepseek", up.server.URL), NewHTTPClient()), time.Second)
			msg, _ := relay.Reply(ctx, "Atlas", history())
			So(msg.Content, ShouldEqual, formatFailureReply)
		})

		Convey("2xx 但响应体不是 JSON 归类为格式失败", func() {
			up := newFakeUpstream(func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, `not json`)
			})
			defer up.server.Close()

			relay := NewRelay(NewOpenAICompleter(testAIConfig("deepseek", up.server.URL), NewHTTPClient()), time.Second)
			msg, _ := relay.Reply(ctx, "Atlas", history())
			So(msg.Content, ShouldEqual, formatFailureReply)
		})

		Convey("超时归类为传输失败", func() {
			up := newFakeUpstream(func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(2 * time.Second):
				}
				writeJSON(w, http.StatusOK, okBody)
			})
			defer up.server.Close()

			relay := NewRelay(NewOpenAICompleter(testAIConfig("deepseek", up.server.URL), NewHTTPClient()), 50*time.Millisecond)
			msg, err := relay.Reply(ctx, "Atlas", history())

			var relayErr *RelayError
			So(errors.As(err, &relayErr), ShouldBeTrue)
			So(relayErr.Kind, ShouldEqual, KindTransport)
			So(msg.Content, ShouldEqual, transportFailureReply)
		})

		Convey("连接失败归类为传输失败", func() {
			up := newFakeUpstream(func(w http.ResponseWriter, r *http.Request) {})
			url := up.server.URL
			up.server.Close()

			relay := NewRelay(NewOpenAICompleter(testAIConfig("deepseek", url), NewHTTPClient()), time.Second)
			msg, _ := relay.Reply(ctx, "Atlas", history())
			So(msg.Content, ShouldEqual, transportFailureReply)
		})
	})
}

func TestRelay_EinoCompleter(t *testing.T) {
	Convey("Eino OpenAI ChatModel 的成功与失败分类", t, func() {
		ctx := context.Background()

		newRelay := func(baseURL string) *Relay {
			chatModel, err := component.NewChatModel(ctx, testAIConfig("openai", baseURL), NewHTTPClient())
			So(err, ShouldBeNil)
			return NewRelay(NewEinoCompleter(chatModel), time.Second)
		}

		Convey("成功", func() {
			up := newFakeUpstream(func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, okBody)
			})
			defer up.server.Close()

			msg, err := newRelay(up.server.URL).Reply(ctx, "Atlas", history())
			So(err, ShouldBeNil)
			So(msg.Content, ShouldEqual, "你好，我是 Atlas")

			body := up.lastBody.Load().(map[string]any)
			first := body["messages"].([]any)[0].(map[string]any)
			So(first["content"], ShouldEqual, "You are an assistant named Atlas.")
		})

		Convey("HTTP 500 归类为传输失败", func() {
			up := newFakeUpstream(func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusInternalServerError, `{"error":{"message":"boom"}}`)
			})
			defer up.server.Close()

			msg, _ := newRelay(up.server.URL).Reply(ctx, "Atlas", history())
			So(msg.Content, ShouldEqual, transportFailureReply)
		})

		Convey("缺少补全内容归类为格式失败", func() {
			up := newFakeUpstream(func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, `{"id":"cmpl-1","choices":[]}`)
			})
			defer up.server.Close()

			msg, _ := newRelay(up.server.URL).Reply(ctx, "Atlas", history())
			So(msg.Content, ShouldEqual, formatFailureReply)
		})
	})
}

func TestRelay_ArkCompleter(t *testing.T) {
	Convey("方舟 ChatModel 的成功与失败分类", t, func() {
		ctx := context.Background()

		newRelay := func(baseURL string) *Relay {
			chatModel, err := component.NewChatModel(ctx, testAIConfig("ark", baseURL), NewHTTPClient())
			So(err, ShouldBeNil)
			return NewRelay(NewEinoCompleter(chatModel), time.Second)
		}

		Convey("成功", func() {
			up := newFakeUpstream(func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, okBody)
			})
			defer up.server.Close()

			msg, err := newRelay(up.server.URL).Reply(ctx, "Atlas", history())
			So(err, ShouldBeNil)
			So(msg.Content, ShouldEqual, "你好，我是 Atlas")
		})

		Convey("HTTP 500 归类为传输失败且不重试", func() {
			up := newFakeUpstream(func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusInternalServerError, `{"error":{"code":"InternalServiceError","message":"boom","type":"server_error"}}`)
			})
			defer up.server.Close()

			msg, err := newRelay(up.server.URL).Reply(ctx, "Atlas", history())
			var relayErr *RelayError
			So(errors.As(err, &relayErr), ShouldBeTrue)
			So(relayErr.Kind, ShouldEqual, KindTransport)
			So(msg.Content, ShouldEqual, transportFailureReply)
			So(up.calls.Load(), ShouldEqual, int32(1))
		})

		Convey("HTTP 502 非 JSON 响应归类为传输失败", func() {
			up := newFakeUpstream(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/html")
				w.WriteHeader(http.StatusBadGateway)
				_, _ = w.Write([]byte("<html>bad gateway</html>"))
			})
			defer up.server.Close()

			msg, _ := newRelay(up.server.URL).Reply(ctx, "Atlas", history())
			So(msg.Content, ShouldEqual, transportFailureReply)
		})

		Convey("缺少补全内容归类为格式失败", func() {
			up := newFakeUpstream(func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, `{"id":"cmpl-1","choices":[]}`)
			})
			defer up.server.Close()

			msg, _ := newRelay(up.server.URL).Reply(ctx, "Atlas", history())
			So(msg.Content, ShouldEqual, formatFailureReply)
		})
	})
}

func TestClassify_ArkErrors(t *testing.T) {
	Convey("方舟错误类型在没有 HTTP 记录时也能分类", t, func() {
		ctx := context.Background()

		apiErr := fmt.Errorf("failed to create chat completion: %w", &arkmodel.APIError{Message: "boom", HTTPStatusCode: 500})
		So(classify(ctx, nil, apiErr), ShouldEqual, KindTransport)

		reqErr := &arkmodel.RequestError{HTTPStatusCode: 503, Err: errors.New("unavailable")}
		So(classify(ctx, nil, reqErr), ShouldEqual, KindTransport)

		decodeErr := &arkmodel.RequestError{HTTPStatusCode: 200, Err: errors.New("invalid character")}
		So(classify(ctx, nil, decodeErr), ShouldEqual, KindFormat)
	})
}

func TestRelay_UnknownFailure(t *testing.T) {
	Convey("其他错误归类为未知失败并包含错误详情", t, func() {
		relay := NewRelay(completerFunc(func(ctx context.Context, msgs []model.Message) (string, error) {
			return "", errors.New("tokenizer exploded")
		}), time.Second)

		msg, err := relay.Reply(context.Background(), "Atlas", history())

		var relayErr *RelayError
		So(errors.As(err, &relayErr), ShouldBeTrue)
		So(relayErr.Kind, ShouldEqual, KindUnknown)
		So(msg.Role, ShouldEqual, model.RoleAssistant)
		So(msg.Content, ShouldStartWith, unknownFailureReply)
		So(msg.Content, ShouldContainSubstring, "tokenizer exploded")
	})

	Convey("三类失败提示互不相同", t, func() {
		replies := map[string]bool{
			(&RelayError{Kind: KindTransport}).Reply(): true,
			(&RelayError{Kind: KindFormat}).Reply():    true,
			(&RelayError{Kind: KindUnknown}).Reply():   true,
		}
		So(len(replies), ShouldEqual, 3)
	})
}

func TestNewCompleter(t *testing.T) {
	Convey("NewCompleter 按 provider 选择实现", t, func() {
		ctx := context.Background()

		c, err := NewCompleter(ctx, testAIConfig("deepseek", ""))
		So(err, ShouldBeNil)
		_, ok := c.(*OpenAICompleter)
		So(ok, ShouldBeTrue)

		c, err = NewCompleter(ctx, testAIConfig("openai", "http://127.0.0.1:1"))
		So(err, ShouldBeNil)
		_, ok = c.(*EinoCompleter)
		So(ok, ShouldBeTrue)

		_, err = NewCompleter(ctx, testAIConfig("unknown", ""))
		So(err, ShouldNotBeNil)
	})
}
