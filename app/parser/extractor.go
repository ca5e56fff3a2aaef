package parser

import (
	"github.com/lysyi3m/feed-unify/app/feed"
)

// Extractor maps one wire format into the unified feed model. Extractors hold
// no mutable state and are shared across concurrent parses.
type Extractor interface {
	Name() string
	CanHandle(doc *Document) bool
	Extract(doc *Document) (*feed.Feed, error)
}

var (
	_ Extractor = (*RSSExtractor)(nil)
	_ Extractor = (*AtomExtractor)(nil)
)

const untitledFeed = "Untitled Feed"
