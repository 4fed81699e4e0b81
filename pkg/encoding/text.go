// Package encoding provides text encoding utilities for map and asset files.
package encoding

import (
	"io"
	"path"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// NewTextReader returns a reader yielding UTF-8 text. A leading UTF-8 byte
// order mark is dropped and UTF-16 input with a byte order mark is decoded,
// so maps saved by Windows editors parse like plain ASCII files.
func NewTextReader(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
}

// NormalizePath converts an OS or config path to the slash-separated form
// io/fs expects. Case is preserved.
func NormalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = path.Clean(p)
	return strings.TrimPrefix(p, "./")
}
