// Package llm 定义多 Provider LLM 调用的统一契约
//
// 本包只包含类型与错误，不发起任何网络调用：
//   - [Provider]: 单个 ProviderKind 的适配器接口
//   - [Request]: 纯文本提示或多轮对话，外加模型名、可选 [OutputSchema] 与日志开关
//   - [Result]: 适配器返回的归一化结果
//   - [Envelope]: 每个请求对应的统一结果，成功或失败
//   - [Message] / [Conversation]: 对话消息
//
// # Provider 类别
//
// [ProviderKind] 是封闭枚举：
//   - ProviderOpenAI: OpenAI
//   - ProviderAnthropic: Anthropic Claude
//   - ProviderGoogle: Google Gemini
//   - ProviderOllama: Ollama 本地模型
//   - ProviderGroq: Groq
//   - ProviderTesting: 测试桩
//
// # 错误
//
// 所有错误嵌入 [BaseError]，可通过 IsXxxError 系列函数在包装链上识别：
//   - [UnknownModelError]: 模型名无法解析，构造 Router 时即失败
//   - [UnsupportedFeatureError]: Provider 不支持结构化输出等特性
//   - [ProviderError]: 传输、认证、响应格式错误，在适配器边界统一包装
//   - [BatchTooLargeError]: 批量超过并发上限，在任何网络调用之前失败
//   - [MissingVariableError]: 模板变量缺失
//
// # 凭据
//
// [CredentialSource] 按 Provider 提供密钥。[EnvCredentials] 读取：
//   - OPENAI_API_KEY
//   - ANTHROPIC_API_KEY
//   - GOOGLE_API_KEY（或 GEMINI_API_KEY）
//   - GROQ_API_KEY
//
// # 包文件组织
//
//   - types.go: Provider 接口、Request、Result
//   - envelope.go: Envelope 与文本格式化
//   - message.go: Role、Message、Conversation
//   - provider_kind.go: ProviderKind 枚举
//   - config.go: Config 与凭据来源
//   - preview.go: 日志预览
//   - errors.go: 错误类型
package llm
