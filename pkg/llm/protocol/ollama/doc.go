// Package ollama 实现 Ollama 本地推理服务的协议适配器
//
// Ollama 的 /api/chat 端点与 OpenAI 相似，但字段布局不同。
//
// # 协议特点
//
//   - 端点：POST /api/chat（非流式需显式 "stream": false）
//   - 系统消息：内联在 messages 数组中
//   - 生成参数：放在 options 对象中（num_predict 对应最大 token 数）
//   - Token 字段名：prompt_eval_count, eval_count
//   - 模型列表：GET /api/tags
//
// # 请求格式示例
//
//	{
//	  "model": "llama3:latest",
//	  "messages": [{"role": "user", "content": "..."}],
//	  "stream": false,
//	  "options": {"num_predict": 1024}
//	}
//
// # 响应格式示例
//
//	{
//	  "model": "llama3:latest",
//	  "message": {"role": "assistant", "content": "..."},
//	  "done": true,
//	  "done_reason": "stop",
//	  "prompt_eval_count": 26,
//	  "eval_count": 298
//	}
package ollama
