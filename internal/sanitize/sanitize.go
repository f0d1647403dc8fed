// Package sanitize cleans user-authored message bodies before they are stored
// or broadcast.
package sanitize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// MaxMessageLength is the longest body, in runes, that MessageBody returns.
const MaxMessageLength = 2000

var (
	tagPattern       = regexp.MustCompile(`<[^>]*>`)
	invisiblePattern = regexp.MustCompile("[\u200B-\u200F\u202A-\u202E\u2060-\u206F\uFEFF]")
)

// entities are the escapes MessageBody produces. An ampersand already
// starting one of them is kept so running MessageBody twice is a no-op.
var entities = []string{"&amp;", "&lt;", "&gt;", "&quot;", "&#39;"}

// MessageBody normalizes, strips and escapes raw. The result contains no
// '<', is at most MaxMessageLength runes and is stable under re-application.
func MessageBody(raw string) string {
	s := norm.NFKC.String(raw)
	s = tagPattern.ReplaceAllString(s, " ")
	// removing invisibles can bring composable runes together
	s = norm.NFKC.String(invisiblePattern.ReplaceAllString(s, ""))
	s = strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return ' '
		}
		return r
	}, s)
	s = collapseSpace(s)
	s = escape(s)
	return truncate(s, MaxMessageLength)
}

func collapseSpace(s string) string {
	return strings.Join(strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.Is(unicode.Zs, r)
	}), " ")
}

func escape(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '&':
			if entityAt(s[i:]) > 0 {
				b.WriteByte('&')
			} else {
				b.WriteString("&amp;")
			}
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '"':
			b.WriteString("&quot;")
		case '\'':
			b.WriteString("&#39;")
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// entityAt returns the byte length of the known entity s starts with, or 0.
func entityAt(s string) int {
	for _, e := range entities {
		if strings.HasPrefix(s, e) {
			return len(e)
		}
	}
	return 0
}

// truncate cuts s to at most limit runes, backing off so no entity is split.
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}

	cut, runes := 0, 0
	for cut < len(s) {
		if n := entityAt(s[cut:]); n > 0 {
			// entities are ASCII, one rune per byte
			if runes+n > limit {
				break
			}
			cut += n
			runes += n
			continue
		}
		if runes+1 > limit {
			break
		}
		_, size := utf8.DecodeRuneInString(s[cut:])
		cut += size
		runes++
	}
	return strings.TrimRightFunc(s[:cut], unicode.IsSpace)
}
