package fetch

import (
	"bytes"
	"fmt"
	"log/slog"
	"mime"
	"regexp"
	"strings"

	"github.com/lysyi3m/feed-unify/app/feed"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var xmlEncodingRegex = regexp.MustCompile(`^\s*<\?xml[^>]*?encoding\s*=\s*["']([A-Za-z0-9._:-]+)["']`)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16BE = []byte{0xFE, 0xFF}
	bomUTF16LE = []byte{0xFF, 0xFE}
)

// DecodeBody converts a response body to text. The charset is taken from the
// Content-Type header, else a byte order mark, else the XML declaration, else
// UTF-8 is assumed. An unknown label falls through to the next step; invalid
// UTF-8 in the default case becomes U+FFFD.
func DecodeBody(body []byte, contentType string) (string, error) {
	if label := contentTypeCharset(contentType); label != "" {
		if enc, err := htmlindex.Get(label); err == nil {
			return decodeWith(body, enc.NewDecoder(), label)
		}
		slog.Debug("Ignoring unknown Content-Type charset", "charset", label)
	}

	if hasBOM(body) {
		return decodeWith(body, unicode.BOMOverride(unicode.UTF8.NewDecoder()), "BOM")
	}

	if label := declaredEncoding(body); label != "" {
		if enc, err := htmlindex.Get(label); err == nil {
			return decodeWith(body, enc.NewDecoder(), label)
		}
		slog.Debug("Ignoring unknown declared encoding", "encoding", label)
	}

	return decodeWith(body, unicode.UTF8.NewDecoder(), "utf-8")
}

func contentTypeCharset(contentType string) string {
	if contentType == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(params["charset"])
}

func declaredEncoding(body []byte) string {
	head := body
	if len(head) > 1024 {
		head = head[:1024]
	}
	m := xmlEncodingRegex.FindSubmatch(head)
	if m == nil {
		return ""
	}
	return string(m[1])
}

func hasBOM(body []byte) bool {
	return bytes.HasPrefix(body, bomUTF8) || bytes.HasPrefix(body, bomUTF16BE) || bytes.HasPrefix(body, bomUTF16LE)
}

func decodeWith(body []byte, decoder transform.Transformer, label string) (string, error) {
	text, _, err := transform.Bytes(decoder, body)
	if err != nil {
		return "", feed.NewEncodingError(fmt.Sprintf("Failed to decode response body as %s", label), err)
	}

	return strings.TrimPrefix(string(text), "\uFEFF"), nil
}
