package llm

import "strings"

// PreviewLimit 诊断预览的最大字符数
const PreviewLimit = 150

// Preview 生成日志用的短预览
//
// 换行与制表符折叠为空格，去除首尾空白，超过 [PreviewLimit] 个字符时截断并追加 "..."。
func Preview(text string) string {
	s := strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', '\t':
			return ' '
		}
		return r
	}, text)
	s = strings.TrimSpace(s)

	runes := []rune(s)
	if len(runes) <= PreviewLimit {
		return s
	}
	return string(runes[:PreviewLimit]) + "..."
}

// PreviewMessages 生成对话的预览，取最后一条消息
func PreviewMessages(conv Conversation) string {
	last, ok := conv.Last()
	if !ok {
		return ""
	}
	return Preview(last.Content)
}
