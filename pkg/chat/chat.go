// Package chat 提供内存中的多轮对话会话
//
// 会话以系统提示开头，每轮追加 user 与 assistant 消息，进程退出即丢弃。
// 输入以 "/" 开头的行是会话命令：
//
//	/show system     显示系统提示
//	/show model      显示模型
//	/show messages   显示完整对话
//	/help            显示帮助
//	exit             结束会话
package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/lwmacct/251220-go-pkg-chain/pkg/llm"
	"github.com/lwmacct/251220-go-pkg-chain/pkg/llm/router"
	"github.com/lwmacct/251220-go-pkg-chain/pkg/logger"
)

// DefaultSystemPrompt 默认系统提示
const DefaultSystemPrompt = "You're a helpful assistant."

// ExitCommand 结束会话的输入
const ExitCommand = "exit"

const banner = "============================"

// HelpText /help 的输出
const HelpText = `Type 'exit' to leave the chat.
Type '/show system' to see the system prompt.
Type '/show model' to see the model.
Type '/show messages' to see the conversation.`

// Session 对话会话，可并发调用但各轮串行
type Session struct {
	router *router.Router
	system string
	log    *slog.Logger

	mu       sync.Mutex
	messages llm.Conversation
}

type options struct {
	system     string
	routerOpts []router.Option
	log        *slog.Logger
}

// Option 配置选项函数
type Option func(*options)

// WithSystemPrompt 设置系统提示
func WithSystemPrompt(s string) Option {
	return func(o *options) {
		o.system = s
	}
}

// WithRouterOptions 传递给内部 Router 的选项
func WithRouterOptions(opts ...router.Option) Option {
	return func(o *options) {
		o.routerOpts = append(o.routerOpts, opts...)
	}
}

// WithLogger 设置日志，默认 logger.Named("chat")
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

// New 创建会话
func New(model string, opts ...Option) (*Session, error) {
	o := &options{system: DefaultSystemPrompt}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		o.log = logger.Named("chat")
	}

	r, err := router.New(model, append([]router.Option{router.WithLogger(o.log)}, o.routerOpts...)...)
	if err != nil {
		return nil, err
	}

	return &Session{
		router:   r,
		system:   o.system,
		log:      o.log,
		messages: llm.Conversation{llm.SystemMessage(o.system)},
	}, nil
}

// Model 会话使用的模型
func (s *Session) Model() string {
	return s.router.Model()
}

// System 系统提示
func (s *Session) System() string {
	return s.system
}

// Messages 当前对话副本
func (s *Session) Messages() llm.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messages.Clone()
}

// Send 发送一条用户消息并返回模型回复
//
// 失败时对话保持不变，可直接重发。
func (s *Session) Send(ctx context.Context, text string) (*llm.Envelope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.messages.Append(llm.UserMessage(text))
	req := llm.NewConversationRequest("", conv)
	req.Quiet = true

	env, err := s.router.Route(ctx, req)
	if err != nil {
		return env, err
	}
	s.messages = conv.Append(llm.AssistantMessage(env.String()))
	return env, nil
}

// Handle 处理一行输入
//
// 返回要显示的文本；done 为 true 表示会话结束。
func (s *Session) Handle(ctx context.Context, line string) (out string, done bool, err error) {
	line = strings.TrimSpace(line)
	switch line {
	case "":
		return "", false, nil
	case ExitCommand:
		return "", true, nil
	case "/show system":
		return banner + "\n" + s.system + "\n" + banner, false, nil
	case "/show model":
		return s.Model(), false, nil
	case "/show messages":
		msgs := s.Messages()
		parts := make([]string, len(msgs))
		for i, m := range msgs {
			parts[i] = fmt.Sprintf("%s: %s", m.Role, m.Content)
		}
		return banner + "\n" + strings.Join(parts, "\n\n") + "\n" + banner, false, nil
	case "/help":
		return HelpText, false, nil
	}

	if strings.HasPrefix(line, "/") {
		return fmt.Sprintf("unknown command %q, type /help", line), false, nil
	}

	env, err := s.Send(ctx, line)
	if err != nil {
		return "", false, err
	}
	return env.String(), false, nil
}

// Run 循环读取输入直到 exit、io.EOF 或 ctx 取消
//
// 单轮调用失败只输出错误，不结束会话。
func (s *Session) Run(ctx context.Context, readLine func() (string, error), w io.Writer) error {
	_, _ = fmt.Fprintln(w, "Let's chat! Type 'exit' to leave.")
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, err := readLine()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		out, done, err := s.Handle(ctx, line)
		if done {
			return nil
		}
		if err != nil {
			s.log.Warn("chat turn failed", "error", err)
			_, _ = fmt.Fprintf(w, "error: %v\n", err)
			continue
		}
		if out != "" {
			_, _ = fmt.Fprintln(w, out)
		}
	}
}
