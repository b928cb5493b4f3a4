package diffxml

import (
	"strings"
	"unicode/utf8"
)

// Serialize renders cs in the canonical <root> shape. Content is escaped so
// that Parse(Serialize(cs)) reproduces cs; newlines and tabs are written
// literally to keep the document readable.
func Serialize(cs ChangeSet) string {
	var b strings.Builder
	b.WriteString("<" + RootElement + ">\n")
	for _, c := range cs {
		b.WriteString("  <" + FileElement + " " + NameAttribute + "=\"")
		escape(&b, c.FileName, true)
		b.WriteString("\">\n    <" + ReplaceElement + ">")
		escape(&b, c.NewContent, false)
		b.WriteString("</" + ReplaceElement + ">\n  </" + FileElement + ">\n")
	}
	b.WriteString("</" + RootElement + ">\n")
	return b.String()
}

func escape(b *strings.Builder, s string, attr bool) {
	for i := 0; i < len(s); {
		r, width := utf8.DecodeRuneInString(s[i:])
		i += width

		switch {
		case r == '&':
			b.WriteString("&amp;")
		case r == '<':
			b.WriteString("&lt;")
		case r == '>':
			b.WriteString("&gt;")
		case r == '\r':
			b.WriteString("&#xD;")
		case attr && r == '"':
			b.WriteString("&quot;")
		case attr && r == '\n':
			b.WriteString("&#xA;")
		case attr && r == '\t':
			b.WriteString("&#x9;")
		case r == utf8.RuneError && width == 1, !isXMLChar(r):
			b.WriteRune('\uFFFD')
		default:
			b.WriteRune(r)
		}
	}
}

// isXMLChar reports whether r is in the XML 1.0 Char production.
func isXMLChar(r rune) bool {
	return r == 0x09 ||
		r == 0x0A ||
		r == 0x0D ||
		r >= 0x20 && r <= 0xD7FF ||
		r >= 0xE000 && r <= 0xFFFD ||
		r >= 0x10000 && r <= 0x10FFFF
}
