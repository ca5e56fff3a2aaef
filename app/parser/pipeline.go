package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/lysyi3m/feed-unify/app/feed"
)

// Pipeline dispatches a document to the first registered extractor that
// claims it. Registration order is the tie-break when several could.
type Pipeline struct {
	extractors []Extractor
}

func NewPipeline(extractors ...Extractor) *Pipeline {
	return &Pipeline{extractors: extractors}
}

// NewDefaultPipeline returns a pipeline with the RSS extractor ahead of the Atom one.
func NewDefaultPipeline(opts ...Option) *Pipeline {
	return NewPipeline(NewRSSExtractor(opts...), NewAtomExtractor(opts...))
}

// Register appends an extractor at the lowest priority. It must not be called
// while the pipeline is parsing.
func (p *Pipeline) Register(x Extractor) {
	p.extractors = append(p.extractors, x)
}

func (p *Pipeline) Extractors() []Extractor {
	return append([]Extractor(nil), p.extractors...)
}

// ParseString parses decoded XML text.
func (p *Pipeline) ParseString(ctx context.Context, content string) (*feed.Feed, error) {
	doc, err := ParseDocumentString(ctx, content)
	if err != nil {
		return nil, p.documentError("Failed to parse XML content", err)
	}
	return p.ParseDocument(doc)
}

// ParseBytes parses raw XML bytes, decoding them per the XML declaration.
func (p *Pipeline) ParseBytes(ctx context.Context, data []byte) (*feed.Feed, error) {
	return p.ParseReader(ctx, bytes.NewReader(data))
}

func (p *Pipeline) ParseReader(ctx context.Context, r io.Reader) (*feed.Feed, error) {
	doc, err := ReadDocument(ctx, r)
	if err != nil {
		return nil, p.documentError("Failed to parse stream content", err)
	}
	return p.ParseDocument(doc)
}

// ParseDocument runs the extractor that claims doc. Extractor failures are
// reported as parse errors; an unclaimed document is an invalid feed.
func (p *Pipeline) ParseDocument(doc *Document) (*feed.Feed, error) {
	for _, x := range p.extractors {
		if !x.CanHandle(doc) {
			continue
		}

		slog.Debug("Using extractor for document", "extractor", x.Name())

		parsed, err := extract(x, doc)
		if err != nil {
			slog.Error("Extractor failed to parse document", "extractor", x.Name(), "error", err)
			return nil, feed.NewParseError(fmt.Sprintf("Failed to parse feed: %v", err), err)
		}
		return parsed, nil
	}

	rootName := ""
	if doc != nil && doc.Root != nil {
		rootName = doc.Root.Name.Local
	}
	slog.Warn("No extractor found for document", "root", rootName)

	return nil, feed.NewInvalidFeedError("Unable to determine feed type. No suitable parser found.")
}

// documentError keeps cancellation distinguishable from malformed input.
func (p *Pipeline) documentError(message string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	slog.Error(message, "error", err)
	return feed.NewParseError(message, err)
}

func extract(x Extractor, doc *Document) (parsed *feed.Feed, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extractor %s panicked: %v", x.Name(), r)
		}
	}()

	parsed, err = x.Extract(doc)
	if err == nil && parsed == nil {
		err = fmt.Errorf("extractor %s returned no feed", x.Name())
	}
	return parsed, err
}
