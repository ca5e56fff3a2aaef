package parser

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/lysyi3m/feed-unify/app/feed"
	"github.com/mmcdole/gofeed"
)

type stubExtractor struct {
	name    string
	handles bool
	result  *feed.Feed
	err     error
	panics  bool
}

func (s *stubExtractor) Name() string                 { return s.name }
func (s *stubExtractor) CanHandle(doc *Document) bool { return s.handles }

func (s *stubExtractor) Extract(doc *Document) (*feed.Feed, error) {
	if s.panics {
		panic("boom")
	}
	return s.result, s.err
}

func TestPipelineMinimalRSS(t *testing.T) {
	result, err := NewDefaultPipeline().ParseString(context.Background(),
		`<rss version="2.0"><channel><title>T</title><item><title>A</title></item></channel></rss>`)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if result.Type != feed.TypeRSS {
		t.Errorf("Expected rss, got: %s", result.Type)
	}
	if result.Title != "T" {
		t.Errorf("Expected title 'T', got: %s", result.Title)
	}
	if len(result.Items) != 1 || strValue(result.Items[0].Title) != "A" {
		t.Errorf("Unexpected items: %+v", result.Items)
	}
}

func TestPipelineMinimalAtom(t *testing.T) {
	result, err := NewDefaultPipeline().ParseString(context.Background(),
		`<feed xmlns="http://www.w3.org/2005/Atom"><title>T</title><entry><id>1</id></entry></feed>`)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if result.Type != feed.TypeAtom {
		t.Errorf("Expected atom, got: %s", result.Type)
	}
	if len(result.Items) != 1 || result.Items[0].ID != "1" {
		t.Errorf("Unexpected items: %+v", result.Items)
	}
}

func TestPipelineUnknownDocument(t *testing.T) {
	_, err := NewDefaultPipeline().ParseString(context.Background(), `<unknown><x/></unknown>`)
	if err == nil {
		t.Fatal("Expected error for unknown document")
	}
	if kind := feed.KindOf(err); kind != feed.ErrorKindInvalidFeed {
		t.Errorf("Expected invalid_feed, got: %s", kind)
	}
}

func TestPipelineMalformedXML(t *testing.T) {
	_, err := NewDefaultPipeline().ParseString(context.Background(), `<rss><channel><title>broken`)
	if err == nil {
		t.Fatal("Expected error for malformed XML")
	}

	var feedErr *feed.Error
	if !errors.As(err, &feedErr) {
		t.Fatalf("Expected *feed.Error, got: %T", err)
	}
	if feedErr.Kind != feed.ErrorKindParse {
		t.Errorf("Expected parse_error, got: %s", feedErr.Kind)
	}
	if feedErr.Cause == nil {
		t.Error("Expected the XML error as cause")
	}
}

func TestPipelineRSSWithoutChannel(t *testing.T) {
	_, err := NewDefaultPipeline().ParseString(context.Background(), `<rss version="2.0"></rss>`)
	if kind := feed.KindOf(err); kind != feed.ErrorKindParse {
		t.Errorf("Expected parse_error, got: %s (%v)", kind, err)
	}
}

func TestPipelineRegistrationOrder(t *testing.T) {
	first := &stubExtractor{name: "first", handles: true, result: &feed.Feed{Title: "first"}}
	second := &stubExtractor{name: "second", handles: true, result: &feed.Feed{Title: "second"}}

	p := NewPipeline(first)
	p.Register(second)

	if len(p.Extractors()) != 2 {
		t.Fatalf("Expected 2 extractors, got: %d", len(p.Extractors()))
	}

	result, err := p.ParseString(context.Background(), `<anything/>`)
	if err != nil {
		t.Fatal(err)
	}
	if result.Title != "first" {
		t.Errorf("Expected the first registered extractor to win, got: %s", result.Title)
	}
}

func TestPipelineSkipsExtractorsThatDecline(t *testing.T) {
	p := NewPipeline(
		&stubExtractor{name: "no", handles: false, result: &feed.Feed{Title: "no"}},
		&stubExtractor{name: "yes", handles: true, result: &feed.Feed{Title: "yes"}},
	)

	result, err := p.ParseString(context.Background(), `<anything/>`)
	if err != nil {
		t.Fatal(err)
	}
	if result.Title != "yes" {
		t.Errorf("Expected 'yes', got: %s", result.Title)
	}
}

func TestPipelineExtractorFailure(t *testing.T) {
	cause := errors.New("bad structure")
	p := NewPipeline(&stubExtractor{name: "failing", handles: true, err: cause})

	_, err := p.ParseString(context.Background(), `<anything/>`)
	if kind := feed.KindOf(err); kind != feed.ErrorKindParse {
		t.Errorf("Expected parse_error, got: %s", kind)
	}
	if !errors.Is(err, cause) {
		t.Errorf("Expected the extractor error to be wrapped, got: %v", err)
	}
}

func TestPipelineExtractorPanic(t *testing.T) {
	p := NewPipeline(&stubExtractor{name: "panicky", handles: true, panics: true})

	_, err := p.ParseString(context.Background(), `<anything/>`)
	if kind := feed.KindOf(err); kind != feed.ErrorKindParse {
		t.Errorf("Expected parse_error from a panicking extractor, got: %s", kind)
	}
}

func TestPipelineExtractorReturnsNothing(t *testing.T) {
	p := NewPipeline(&stubExtractor{name: "empty", handles: true})

	_, err := p.ParseString(context.Background(), `<anything/>`)
	if kind := feed.KindOf(err); kind != feed.ErrorKindParse {
		t.Errorf("Expected parse_error, got: %s", kind)
	}
}

func TestPipelineCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewDefaultPipeline().ParseString(ctx, `<rss><channel><title>T</title></channel></rss>`)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got: %v", err)
	}
	if kind := feed.KindOf(err); kind != "" {
		t.Errorf("Expected cancellation not to be a feed error, got: %s", kind)
	}
}

func TestPipelineParseBytesDeclaredEncoding(t *testing.T) {
	data := []byte("<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?><rss><channel><title>Caf\xe9</title></channel></rss>")

	result, err := NewDefaultPipeline().ParseBytes(context.Background(), data)
	if err != nil {
		t.Fatal(err)
	}
	if result.Title != "Café" {
		t.Errorf("Expected 'Café', got: %q", result.Title)
	}
}

func TestPipelineStableIDs(t *testing.T) {
	input := `<rss><channel><item><title>Same</title></item></channel></rss>`
	p := NewDefaultPipeline(WithStableIDs())

	first, err := p.ParseString(context.Background(), input)
	if err != nil {
		t.Fatal(err)
	}
	second, err := p.ParseString(context.Background(), input)
	if err != nil {
		t.Fatal(err)
	}
	if first.Items[0].ID != second.Items[0].ID {
		t.Errorf("Expected equal ids, got: %s and %s", first.Items[0].ID, second.Items[0].ID)
	}
}

// The fixtures are cross-checked against gofeed for the fields both models share.
func TestPipelineAgreesWithGofeed(t *testing.T) {
	for _, name := range []string{"podcast.rss", "news.atom"} {
		t.Run(name, func(t *testing.T) {
			data, err := os.ReadFile(filepath.Join("testdata", name))
			if err != nil {
				t.Fatal(err)
			}

			want, err := gofeed.NewParser().ParseString(string(data))
			if err != nil {
				t.Fatalf("gofeed failed: %v", err)
			}

			got, err := NewDefaultPipeline().ParseString(context.Background(), string(data))
			if err != nil {
				t.Fatal(err)
			}

			if got.Title != want.Title {
				t.Errorf("Expected title %q, got: %q", want.Title, got.Title)
			}
			if len(got.Items) != len(want.Items) {
				t.Fatalf("Expected %d items, got: %d", len(want.Items), len(got.Items))
			}
			for i, item := range want.Items {
				if item.Title != "" && strValue(got.Items[i].Title) != item.Title {
					t.Errorf("Item %d: expected title %q, got: %q", i, item.Title, strValue(got.Items[i].Title))
				}
			}
		})
	}
}
