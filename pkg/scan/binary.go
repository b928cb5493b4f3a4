package scan

import (
	"bytes"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// sniffLen is how many leading bytes are inspected for binary content.
const sniffLen = 512

// isBinary reports whether data looks binary: a NUL byte or more than 30%
// non-printable bytes in the first sniffLen bytes.
func isBinary(data []byte) bool {
	if len(data) > sniffLen {
		data = data[:sniffLen]
	}
	if len(data) == 0 {
		return false
	}
	if bytes.IndexByte(data, 0) >= 0 {
		return true
	}

	nonPrintable := 0
	for _, b := range data {
		if !isPrintable(b) {
			nonPrintable++
		}
	}
	return float64(nonPrintable)/float64(len(data)) > 0.3
}

// isPrintable treats bytes >= 0x80 as printable so UTF-8 text is not
// mistaken for binary.
func isPrintable(b byte) bool {
	return (b >= 32 && b != 127) || b == '\n' || b == '\r' || b == '\t' || b == '\f'
}

// hasUTF16BOM reports whether data starts with a UTF-16 byte order mark.
func hasUTF16BOM(data []byte) bool {
	return len(data) >= 2 && ((data[0] == 0xFF && data[1] == 0xFE) || (data[0] == 0xFE && data[1] == 0xFF))
}

// decodeUTF16 converts BOM-prefixed UTF-16 text to UTF-8.
func decodeUTF16(data []byte) (string, error) {
	out, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
