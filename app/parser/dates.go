package parser

import (
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

type DateDialect int

const (
	// DialectRSS covers RFC 822 style dates used by RSS channels and items.
	DialectRSS DateDialect = iota
	// DialectAtom covers the ISO 8601 profile used by Atom and Dublin Core.
	DialectAtom
)

var rssDateLayouts = []string{
	"Mon, 02 Jan 2006 15:04:05 -0700",
	"Mon, 02 Jan 2006 15:04:05 -07:00",
	"Mon, 02 Jan 2006 15:04:05 Z",
	"Mon, 02 Jan 2006 15:04:05",
	"02 Jan 2006 15:04:05 -0700",
	"02 Jan 2006 15:04:05 -07:00",
	"02 Jan 2006 15:04:05 Z",
	"02 Jan 2006 15:04:05",
	"2006-01-02T15:04:05-07:00",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 -07:00",
	"Mon, 2 Jan 2006 15:04:05 Z",
	"Mon, 2 Jan 2006 15:04:05",
	"Monday, 02 Jan 2006 15:04:05 -0700",
	"Monday, 2 Jan 2006 15:04:05 -0700",
	"Mon, 02 Jan 2006 15:04 -0700",
	"Mon, 2 Jan 2006 15:04 -0700",
	"Mon, 02 Jan 06 15:04:05 -0700",
	time.RFC822Z,
}

// Fractional seconds of any length are accepted after the seconds field even
// when a layout does not spell them out.
var atomDateLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04Z07:00",
}

var atomDateOnlyLayout = "2006-01-02"

var zoneAbbreviations = map[string]string{
	"GMT": "+0000",
	"UTC": "+0000",
	"UT":  "+0000",
	"EST": "-0500",
	"EDT": "-0400",
	"CST": "-0600",
	"CDT": "-0500",
	"MST": "-0700",
	"MDT": "-0600",
	"PST": "-0800",
	"PDT": "-0700",
}

var zoneAbbreviationRegex = regexp.MustCompile(`\b(GMT|UTC|UT|EST|EDT|CST|CDT|MST|MDT|PST|PDT)\b`)

// ParseDate converts a feed date string into a timestamp carrying its offset.
// Blank or unparsable input yields nil; dates are optional everywhere.
func ParseDate(raw string, dialect DateDialect) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	if dialect == DialectAtom {
		return parseAtomDate(raw)
	}
	return parseRSSDate(raw)
}

func ParseRSSDate(raw string) *time.Time {
	return ParseDate(raw, DialectRSS)
}

func ParseAtomDate(raw string) *time.Time {
	return ParseDate(raw, DialectAtom)
}

func parseRSSDate(raw string) *time.Time {
	normalized := strings.Join(strings.Fields(substituteZones(raw)), " ")

	for _, layout := range rssDateLayouts {
		if t, err := time.ParseInLocation(layout, normalized, time.UTC); err == nil {
			return &t
		}
	}

	return parseGeneric(normalized)
}

func parseAtomDate(raw string) *time.Time {
	for _, layout := range atomDateLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return &t
		}
	}

	if t := parseGeneric(raw); t != nil {
		return t
	}

	if t, err := time.ParseInLocation(atomDateOnlyLayout, raw, time.UTC); err == nil {
		return &t
	}

	return nil
}

// substituteZones replaces zone abbreviations with numeric offsets so the
// result does not depend on the host's zone database.
func substituteZones(s string) string {
	return zoneAbbreviationRegex.ReplaceAllStringFunc(s, func(abbr string) string {
		return zoneAbbreviations[abbr]
	})
}

func parseGeneric(s string) (result *time.Time) {
	// dateparse panics on some malformed input.
	defer func() {
		if recover() != nil {
			result = nil
		}
	}()

	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return nil
	}
	return &t
}
