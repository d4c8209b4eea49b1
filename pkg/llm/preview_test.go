package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPreview(t *testing.T) {
	t.Run("折叠换行与制表符", func(t *testing.T) {
		assert.Equal(t, "a b c d", Preview("a\nb\tc\nd"))
		assert.Equal(t, "a  b", Preview("a\r\nb"))
		assert.Equal(t, "line one line two", Preview("  line one\nline two\n"))
	})

	t.Run("短文本不截断", func(t *testing.T) {
		assert.Equal(t, "hello", Preview("hello"))
	})

	t.Run("超过 150 字符截断", func(t *testing.T) {
		long := strings.Repeat("x", 400)
		got := Preview(long)
		assert.Equal(t, strings.Repeat("x", PreviewLimit)+"...", got)
	})

	t.Run("按字符而非字节截断", func(t *testing.T) {
		long := strings.Repeat("歌", 200)
		got := Preview(long)
		assert.Equal(t, PreviewLimit+3, len([]rune(got)))
	})

	t.Run("恰好 150 字符", func(t *testing.T) {
		s := strings.Repeat("y", PreviewLimit)
		assert.Equal(t, s, Preview(s))
	})
}

func TestPreviewMessages(t *testing.T) {
	assert.Empty(t, PreviewMessages(nil))
	conv := Conversation{SystemMessage("s"), UserMessage("tell\nme")}
	assert.Equal(t, "tell me", PreviewMessages(conv))
}
