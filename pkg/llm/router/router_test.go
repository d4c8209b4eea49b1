package router

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lwmacct/251220-go-pkg-chain/pkg/llm"
	"github.com/lwmacct/251220-go-pkg-chain/pkg/llm/provider"
	"github.com/lwmacct/251220-go-pkg-chain/pkg/llm/provider/stub"
	"github.com/lwmacct/251220-go-pkg-chain/pkg/llm/registry"
	"github.com/lwmacct/251220-go-pkg-chain/pkg/logger"
)

// ═══════════════════════════════════════════════════════════════════════════
// 测试辅助
// ═══════════════════════════════════════════════════════════════════════════

func testOptions(t *testing.T, spy *stub.Client) []Option {
	t.Helper()
	reg, err := registry.NewBuiltin()
	require.NoError(t, err)

	factory := provider.NewFactory(
		provider.WithCredentials(llm.NewMapCredentials(nil)),
		provider.WithProvider(spy),
		provider.WithLogger(logger.Discard()),
	)
	return []Option{WithRegistry(reg), WithFactory(factory), WithLogger(logger.Discard())}
}

func newSpy(opts ...stub.Option) *stub.Client {
	return stub.New(append([]stub.Option{stub.WithLogger(logger.Discard())}, opts...)...)
}

type parserFunc func(string) (any, error)

func (f parserFunc) Parse(text string) (any, error) { return f(text) }

// ═══════════════════════════════════════════════════════════════════════════
// New 测试
// ═══════════════════════════════════════════════════════════════════════════

func TestNew(t *testing.T) {
	t.Run("解析字面模型名", func(t *testing.T) {
		r, err := New(stub.Model, testOptions(t, newSpy())...)

		require.NoError(t, err)
		assert.Equal(t, stub.Model, r.Model())
		assert.Equal(t, llm.ProviderTesting, r.Kind())
	})

	t.Run("未知模型在构造时失败", func(t *testing.T) {
		spy := newSpy()
		r, err := New("gpt-5-ultra", testOptions(t, spy)...)

		require.Error(t, err)
		assert.True(t, llm.IsUnknownModelError(err))
		assert.Nil(t, r)
		assert.Equal(t, 0, spy.CallCount())
	})

	t.Run("缺少密钥只影响该 Provider", func(t *testing.T) {
		opts := testOptions(t, newSpy())

		_, err := New("claude", opts...)
		require.Error(t, err)
		assert.True(t, llm.IsConfigError(err))

		_, err = New("ollama", opts...)
		require.NoError(t, err)
	})

	t.Run("别名解析为具体模型", func(t *testing.T) {
		opts := append(testOptions(t, newSpy()), WithFactory(provider.NewFactory(
			provider.WithCredentials(llm.NewMapCredentials(map[llm.ProviderKind]string{llm.ProviderAnthropic: "sk-ant"})),
			provider.WithLogger(logger.Discard()),
		)))

		r, err := New("haiku", opts...)

		require.NoError(t, err)
		assert.Equal(t, "haiku", r.Name())
		assert.Equal(t, "claude-3-haiku-20240307", r.Model())
		assert.Equal(t, llm.ProviderAnthropic, r.Kind())
	})

	t.Run("指定的适配器类别不符", func(t *testing.T) {
		opts := append(testOptions(t, newSpy()), WithProvider(newSpy()))

		_, err := New("gpt", opts...)

		require.Error(t, err)
		assert.True(t, llm.IsConfigError(err))
	})
}

// ═══════════════════════════════════════════════════════════════════════════
// Route 测试
// ═══════════════════════════════════════════════════════════════════════════

func TestRouter_Route(t *testing.T) {
	t.Run("成功并记录耗时", func(t *testing.T) {
		spy := newSpy(stub.WithDelay(5 * time.Millisecond))
		r, err := New(stub.Model, testOptions(t, spy)...)
		require.NoError(t, err)

		req := llm.NewPromptRequest("", "Hello")
		env, err := r.Route(context.Background(), req)

		require.NoError(t, err)
		assert.True(t, env.Succeeded())
		assert.Equal(t, stub.Polonius, env.Content)
		assert.Equal(t, stub.Model, env.Model)
		assert.Equal(t, llm.ProviderTesting, env.Provider)
		assert.Equal(t, "Hello", env.Prompt)
		assert.GreaterOrEqual(t, env.Duration, 5*time.Millisecond)
		assert.NotEmpty(t, env.ID)
	})

	t.Run("空模型继承 Router 模型且不修改请求", func(t *testing.T) {
		spy := newSpy()
		r, err := New(stub.Model, testOptions(t, spy)...)
		require.NoError(t, err)

		req := llm.NewPromptRequest("", "Hello")
		_, err = r.Route(context.Background(), req)

		require.NoError(t, err)
		assert.Equal(t, stub.Model, spy.LastCall().Request.Model)
		assert.Empty(t, req.Model)
	})

	t.Run("对话原样转发", func(t *testing.T) {
		spy := newSpy()
		r, err := New(stub.Model, testOptions(t, spy)...)
		require.NoError(t, err)

		conv := llm.Conversation{llm.SystemMessage("You are terse."), llm.UserMessage("Hi")}
		env, err := r.Route(context.Background(), llm.NewConversationRequest(stub.Model, conv))

		require.NoError(t, err)
		assert.Equal(t, conv, spy.LastCall().Request.Conversation)
		assert.Equal(t, conv, env.Conversation)
	})

	t.Run("模型不匹配", func(t *testing.T) {
		spy := newSpy()
		r, err := New(stub.Model, testOptions(t, spy)...)
		require.NoError(t, err)

		env, err := r.Route(context.Background(), llm.NewPromptRequest("gpt", "Hello"))

		require.Error(t, err)
		assert.True(t, llm.IsConfigError(err))
		assert.False(t, env.Succeeded())
		assert.Equal(t, 0, spy.CallCount())
	})

	t.Run("适配器失败生成失败 Envelope", func(t *testing.T) {
		spy := newSpy(stub.WithError(errors.New("backend down")))
		r, err := New(stub.Model, testOptions(t, spy)...)
		require.NoError(t, err)

		env, err := r.Route(context.Background(), llm.NewPromptRequest("", "Hello"))

		require.Error(t, err)
		assert.True(t, llm.IsProviderError(err))
		require.NotNil(t, env)
		assert.Equal(t, llm.StatusFailure, env.Status)
		assert.Equal(t, "Hello", env.Prompt)
		assert.Same(t, err, env.Err)
		assert.Contains(t, env.String(), "backend down")
	})

	t.Run("结构化输出", func(t *testing.T) {
		spy := newSpy(stub.WithResponse("42"))
		r, err := New(stub.Model, testOptions(t, spy)...)
		require.NoError(t, err)

		req := llm.NewPromptRequest("", "answer")
		req.Schema = &llm.OutputSchema{Schema: map[string]any{"type": "object"}}
		env, err := r.Route(context.Background(), req)

		require.NoError(t, err)
		assert.Equal(t, map[string]any{"result": "42"}, env.Content)
	})

	t.Run("解析器在创建 Envelope 之前运行", func(t *testing.T) {
		spy := newSpy(stub.WithResponse("a, b"))
		r, err := New(stub.Model, testOptions(t, spy)...)
		require.NoError(t, err)

		req := llm.NewPromptRequest("", "list")
		req.Parser = parserFunc(func(s string) (any, error) {
			return strings.Split(s, ", "), nil
		})
		env, err := r.Route(context.Background(), req)

		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, env.Content)
		assert.Equal(t, `["a","b"]`, env.String())
	})

	t.Run("解析失败", func(t *testing.T) {
		spy := newSpy()
		r, err := New(stub.Model, testOptions(t, spy)...)
		require.NoError(t, err)

		req := llm.NewPromptRequest("", "x")
		req.Parser = parserFunc(func(string) (any, error) { return nil, errors.New("bad shape") })
		env, err := r.Route(context.Background(), req)

		require.Error(t, err)
		assert.False(t, env.Succeeded())
		assert.Contains(t, err.Error(), "bad shape")
	})

	t.Run("nil 请求", func(t *testing.T) {
		r, err := New(stub.Model, testOptions(t, newSpy())...)
		require.NoError(t, err)

		env, err := r.Route(context.Background(), nil)

		assert.Nil(t, env)
		assert.True(t, llm.IsRequestError(err))
	})
}

func TestRouter_Concurrent(t *testing.T) {
	spy := newSpy(stub.WithResponseFunc(func(req *llm.Request, _ int) string {
		return "echo " + req.Prompt
	}))
	r, err := New(stub.Model, testOptions(t, spy)...)
	require.NoError(t, err)

	const n = 50
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			prompt := strings.Repeat("x", i+1)
			env, err := r.Route(context.Background(), llm.NewPromptRequest("", prompt))
			assert.NoError(t, err)
			assert.Equal(t, "echo "+prompt, env.Content)
		}()
	}
	wg.Wait()

	assert.Equal(t, n, spy.CallCount())
}

// ═══════════════════════════════════════════════════════════════════════════
// Set 测试
// ═══════════════════════════════════════════════════════════════════════════

func TestSet(t *testing.T) {
	t.Run("同名只构造一次", func(t *testing.T) {
		s := NewSet(testOptions(t, newSpy())...)

		a, err := s.Router(stub.Model)
		require.NoError(t, err)
		b, err := s.Router(stub.Model)
		require.NoError(t, err)

		assert.Same(t, a, b)
		assert.Equal(t, 1, s.Len())
	})

	t.Run("失败不缓存", func(t *testing.T) {
		s := NewSet(testOptions(t, newSpy())...)

		_, err := s.Router("nope")

		assert.True(t, llm.IsUnknownModelError(err))
		assert.Equal(t, 0, s.Len())
	})
}
