// Package stub 提供 "testing" Provider 的本地实现
//
// 本包实现 [llm.Provider] 接口，无需网络即可验证路由与批量分发逻辑，
// 同时作为测试中的 spy：记录每次调用，可注入响应、错误与延迟。
//
// # 概述
//
// [Client] 提供可预测的响应行为：
//
//   - 默认返回固定文本 [Polonius]（模型名 "polonius"）
//   - 支持响应队列、动态响应函数与按调用注入错误
//   - 支持响应脚本（YAML/JSON）：按内容匹配的规则、响应队列、延迟与错误
//   - 记录所有调用详情，便于断言调用次数
//
// # 快速开始
//
//	client := stub.New()
//	res, _ := client.Invoke(ctx, llm.NewPromptRequest("polonius", "Hi"))
//	fmt.Println(res.Text) // My liege, and madam, ...
//
// # 响应脚本
//
// 批量请求的到达顺序不确定，规则按最后一条消息内容匹配，
// 因此同一批次中每个请求的响应都是确定的：
//
//	client := stub.New(stub.WithScript(&stub.Script{
//	    Rules: []stub.Rule{
//	        {Contains: "sky", Reply: "Rayleigh scattering."},
//	        {Contains: "flaky", Error: "overloaded", Status: 503},
//	    },
//	}))
//
// 规则与队列中的文本支持 {{input}}（最后一条消息）与 {{model}}。
// 命令行通过 chain --stub-script FILE 加载脚本。
//
// # 结构化输出
//
// 请求携带 Schema 时返回 {"result": <响应文本>}。
//
// # 线程安全
//
// [Client] 是线程安全的，可以并发调用 Invoke。
package stub
