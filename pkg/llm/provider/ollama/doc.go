// Package ollama 提供本地 Ollama 推理服务的 Provider 实现
//
// 基于 core.BaseClient（resty）以原始 JSON 调用 /api/chat，协议细节见 protocol/ollama。
//
// # 快速开始
//
//	client, err := ollama.New(&ollama.Config{BaseURL: "http://localhost:11434"})
//	res, err := client.Invoke(ctx, llm.NewPromptRequest("llama3:latest", "Hello"))
//
// # 限制
//
// 不支持 Schema 约束的结构化输出：请求携带 [llm.OutputSchema] 时
// 返回 [llm.UnsupportedFeatureError]，不会退化为无类型文本。
//
// # 本地模型发现
//
// [Client.ListModels] 读取 GET /api/tags，可用于刷新模型目录：
//
//	names, _ := client.ListModels(ctx)
//	_ = registry.Default().AddModels(llm.ProviderOllama, names...)
package ollama
