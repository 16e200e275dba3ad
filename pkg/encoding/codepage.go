// Package encoding provides text decoding helpers for SCX names and texture lists.
package encoding

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"
)

// ErrUndecodable is returned when bytes are not valid in the requested encoding.
var ErrUndecodable = errors.New("bytes not valid in encoding")

// DefaultANSI is the ANSI code page tried after UTF-8. SCX tools were
// authored on Cyrillic Windows systems.
const DefaultANSI = "windows-1251"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// LookupCodePage resolves an IANA or Windows code page name such as
// "windows-1251" or "cp1251".
func LookupCodePage(name string) (encoding.Encoding, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if strings.HasPrefix(key, "cp") {
		key = "windows-" + strings.TrimPrefix(key, "cp")
	}
	enc, err := ianaindex.IANA.Encoding(key)
	if err != nil {
		return nil, fmt.Errorf("unknown code page %q: %w", name, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported code page %q", name)
	}
	return enc, nil
}

// DecodeUTF8 validates data as UTF-8 and strips a leading byte order mark.
func DecodeUTF8(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("utf-8: %w", ErrUndecodable)
	}
	return string(bytes.TrimPrefix(data, utf8BOM)), nil
}

// DecodeStrict converts data from enc to UTF-8. Bytes the encoding leaves
// undefined decode to U+FFFD and are reported as an error.
func DecodeStrict(data []byte, enc encoding.Encoding) (string, error) {
	out, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	if bytes.ContainsRune(out, utf8.RuneError) {
		return "", ErrUndecodable
	}
	return string(out), nil
}

// Windows1251ToUTF8 converts Cyrillic code page 1251 bytes to UTF-8.
func Windows1251ToUTF8(data []byte) (string, error) {
	return DecodeStrict(data, charmap.Windows1251)
}

// TrimNullBytes removes trailing null bytes from a byte slice.
func TrimNullBytes(data []byte) []byte {
	return bytes.TrimRight(data, "\x00")
}

// DecodeName converts a stored name to UTF-8. Names are kept as-is when they
// are valid UTF-8 and read as Windows-1251 otherwise.
func DecodeName(data []byte) string {
	if idx := bytes.IndexByte(data, 0); idx >= 0 {
		data = data[:idx]
	}
	if utf8.Valid(data) {
		return string(data)
	}
	if s, err := Windows1251ToUTF8(data); err == nil {
		return s
	}
	return strings.ToValidUTF8(string(data), "?")
}
