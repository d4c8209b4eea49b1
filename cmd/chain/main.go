// Command chain 将提示路由到多个 LLM Provider
//
// 子命令：
//
//	chain run      发送单个提示或渲染模板后发送
//	chain batch    按 YAML 文件并发批量发送
//	chain models   列出模型目录与别名，可刷新本地 Ollama 模型
//	chain chat     交互式对话
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/lwmacct/251220-go-pkg-chain/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	_ = logger.Close()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
