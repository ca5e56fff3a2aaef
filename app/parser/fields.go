package parser

import (
	"net/url"
	"strconv"
	"strings"
)

func ptr[T any](v T) *T {
	return &v
}

// text returns the trimmed character content of e, or nil when e is absent or blank.
func text(e *Element) *string {
	if e == nil {
		return nil
	}
	return nonBlank(e.Value())
}

func attr(e *Element, name string) *string {
	if e == nil {
		return nil
	}
	v := e.Attribute(name)
	if v == nil {
		return nil
	}
	return nonBlank(*v)
}

func nonBlank(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// parseURI keeps only absolute URIs.
func parseURI(s *string) *string {
	if s == nil {
		return nil
	}
	u, err := url.Parse(strings.TrimSpace(*s))
	if err != nil || !u.IsAbs() {
		return nil
	}
	return ptr(u.String())
}

func parseInt(s *string) *int {
	if s == nil {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(*s))
	if err != nil {
		return nil
	}
	return &n
}

func parseInt64(s *string) *int64 {
	if s == nil {
		return nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(*s), 10, 64)
	if err != nil {
		return nil
	}
	return &n
}

func equalsFold(s *string, want string) *bool {
	if s == nil {
		return nil
	}
	return ptr(strings.EqualFold(strings.TrimSpace(*s), want))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
