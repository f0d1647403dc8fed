package sanitize

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestMessageBody(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "hello world", want: "hello world"},
		{name: "tags stripped", in: "hi <script>alert(1)</script> there", want: "hi alert(1) there"},
		{name: "escapes", in: `a & b "c" 'd' > e`, want: "a &amp; b &quot;c&quot; &#39;d&#39; &gt; e"},
		{name: "lone lt escaped", in: "1 < 2", want: "1 &lt; 2"},
		{name: "zero width removed", in: "in\u200Bvis\uFEFFible", want: "invisible"},
		{name: "bidi removed", in: "abc\u202Edef", want: "abcdef"},
		{name: "controls become spaces", in: "line1\nline2\tend\x7f", want: "line1 line2 end"},
		{name: "whitespace collapsed", in: "  lots   of  space  ", want: "lots of space"},
		{name: "nfkc", in: "\uFF21\uFF22\uFF23 \uFB01", want: "ABC fi"},
		{name: "existing entity kept", in: "fish &amp; chips", want: "fish &amp; chips"},
		{name: "unknown entity escaped", in: "&nbsp;", want: "&amp;nbsp;"},
		{name: "empty after stripping", in: "<b></b>  \u200B", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MessageBody(tt.in))
		})
	}
}

func TestMessageBodyIdempotent(t *testing.T) {
	inputs := []string{
		`<a href="x">link</a> & "quotes" 'single'`,
		"fish &amp; chips &lt;tag&gt;",
		strings.Repeat("&", 3000),
		strings.Repeat("a ", 1500) + "<b>",
		"\uFF21\u200B\n\t<i>x</i>",
	}
	for _, in := range inputs {
		once := MessageBody(in)
		assert.Equal(t, once, MessageBody(once), "input %q", in)
	}
}

func TestMessageBodyNeverContainsLessThan(t *testing.T) {
	inputs := []string{"<", "<<>>", "a<b", "<<script>>", "\uFF1C", "x < y"}
	for _, in := range inputs {
		assert.NotContains(t, MessageBody(in), "<", "input %q", in)
	}
}

func TestMessageBodyLength(t *testing.T) {
	t.Run("long plain text", func(t *testing.T) {
		out := MessageBody(strings.Repeat("é", 5000))
		assert.Equal(t, MaxMessageLength, utf8.RuneCountInString(out))
	})

	t.Run("entity at boundary is not split", func(t *testing.T) {
		in := strings.Repeat("a", MaxMessageLength-2) + "&"
		out := MessageBody(in)
		assert.LessOrEqual(t, utf8.RuneCountInString(out), MaxMessageLength)
		assert.False(t, strings.HasSuffix(out, "&am"))
		assert.Equal(t, strings.Repeat("a", MaxMessageLength-2), out)
	})

	t.Run("trailing space exposed by cut is trimmed", func(t *testing.T) {
		in := strings.Repeat("a", MaxMessageLength-1) + " " + strings.Repeat("b", 10)
		out := MessageBody(in)
		assert.Equal(t, strings.Repeat("a", MaxMessageLength-1), out)
	})

	t.Run("escaped ampersands stay bounded", func(t *testing.T) {
		out := MessageBody(strings.Repeat("&", 1000))
		assert.LessOrEqual(t, utf8.RuneCountInString(out), MaxMessageLength)
		assert.True(t, strings.HasSuffix(out, "&amp;"))
	})
}
