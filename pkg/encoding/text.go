// Package encoding provides text and path helpers shared by the PMX writer
// and the export pipeline.
package encoding

import (
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// UTF8ToUTF16LE converts a UTF-8 string to UTF-16LE bytes without a BOM.
// Returns nil for an empty string.
func UTF8ToUTF16LE(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	out, _, err := transform.Bytes(utf16le.NewEncoder(), []byte(s))
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UTF16LEToUTF8 converts UTF-16LE bytes to a UTF-8 string.
func UTF16LEToUTF8(data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}
	out, _, err := transform.Bytes(utf16le.NewDecoder(), data)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// NormalizeNewlines converts bare LF line breaks to CRLF, the form MMD tools
// expect in model comments.
func NormalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\n", "\r\n")
}
