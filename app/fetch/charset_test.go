package fetch

import (
	"testing"
)

func TestDecodeBody(t *testing.T) {
	tests := []struct {
		name        string
		body        []byte
		contentType string
		want        string
	}{
		{
			name: "plain utf-8",
			body: []byte("<rss>caf\xc3\xa9</rss>"),
			want: "<rss>café</rss>",
		},
		{
			name:        "content-type charset",
			body:        []byte("<rss>caf\xe9</rss>"),
			contentType: "application/rss+xml; charset=ISO-8859-1",
			want:        "<rss>café</rss>",
		},
		{
			name:        "content-type wins over declaration",
			body:        []byte("<?xml version=\"1.0\" encoding=\"UTF-8\"?><rss>caf\xe9</rss>"),
			contentType: "text/xml; charset=windows-1252",
			want:        "<?xml version=\"1.0\" encoding=\"UTF-8\"?><rss>café</rss>",
		},
		{
			name: "utf-8 bom",
			body: []byte("\xef\xbb\xbf<rss/>"),
			want: "<rss/>",
		},
		{
			name: "utf-16le bom",
			body: []byte{0xFF, 0xFE, '<', 0, 'a', 0, '/', 0, '>', 0},
			want: "<a/>",
		},
		{
			name: "utf-16be bom",
			body: []byte{0xFE, 0xFF, 0, '<', 0, 'a', 0, '/', 0, '>'},
			want: "<a/>",
		},
		{
			name: "declared encoding",
			body: []byte("<?xml version='1.0' encoding='iso-8859-1'?><rss>caf\xe9</rss>"),
			want: "<?xml version='1.0' encoding='iso-8859-1'?><rss>café</rss>",
		},
		{
			name:        "content-type without charset",
			body:        []byte("<rss/>"),
			contentType: "application/xml",
			want:        "<rss/>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeBody(tt.body, tt.contentType)
			if err != nil {
				t.Fatalf("Expected no error, got: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %q, got: %q", tt.want, got)
			}
		})
	}
}

func TestDecodeBodyFallbacks(t *testing.T) {
	tests := []struct {
		name        string
		body        []byte
		contentType string
		want        string
	}{
		{
			name:        "unknown content-type charset falls back to declaration",
			body:        []byte("<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?><rss>Caf\xe9</rss>"),
			contentType: "application/rss+xml; charset=none",
			want:        "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?><rss>Café</rss>",
		},
		{
			name:        "unknown content-type charset falls back to bom",
			body:        []byte("\xef\xbb\xbf<rss/>"),
			contentType: "text/xml; charset=klingon",
			want:        "<rss/>",
		},
		{
			name: "unknown declared encoding falls back to utf-8",
			body: []byte("<?xml version=\"1.0\" encoding=\"x-mac-roman-ish\"?><rss>caf\xc3\xa9</rss>"),
			want: "<?xml version=\"1.0\" encoding=\"x-mac-roman-ish\"?><rss>café</rss>",
		},
		{
			name: "invalid utf-8 without a label is replaced",
			body: []byte("<rss>Caf\xe9</rss>"),
			want: "<rss>Caf\uFFFD</rss>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeBody(tt.body, tt.contentType)
			if err != nil {
				t.Fatalf("Expected no error, got: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %q, got: %q", tt.want, got)
			}
		})
	}
}
