package parser

import (
	"strings"

	"github.com/lysyi3m/feed-unify/app/feed"
)

type AtomExtractor struct {
	newID idFunc
}

func NewAtomExtractor(opts ...Option) *AtomExtractor {
	o := newOptions(opts)
	return &AtomExtractor{newID: o.newID}
}

func (x *AtomExtractor) Name() string {
	return "atom"
}

func (x *AtomExtractor) CanHandle(doc *Document) bool {
	if doc == nil || doc.Root == nil {
		return false
	}
	root := doc.Root
	if root.Name.Space == NamespaceAtom {
		return true
	}
	if strings.EqualFold(root.Name.Local, "feed") {
		return strings.Contains(strings.ToLower(root.DefaultNamespace()), "atom")
	}
	return false
}

func (x *AtomExtractor) Extract(doc *Document) (*feed.Feed, error) {
	root := doc.Root
	ns := root.Name.Space

	entryElems := root.ChildrenNamed(ns, "entry")
	items := make([]feed.Item, 0, len(entryElems))
	for _, e := range entryElems {
		items = append(items, x.extractEntry(e, ns))
	}

	title := untitledFeed
	feedTitle := text(root.Child(ns, "title"))
	if feedTitle != nil {
		title = *feedTitle
	}

	return &feed.Feed{
		Title:       title,
		Description: text(root.Child(ns, "subtitle")),
		Link:        alternateLink(root, ns),
		LastUpdated: ParseAtomDate(deref(text(root.Child(ns, "updated")))),
		Language:    nonBlankPtr(root.AttributeNS(NamespaceXML, "lang")),
		Copyright:   text(root.Child(ns, "rights")),
		Image:       parseAtomImage(root, ns, feedTitle),
		Items:       items,
		Categories:  parseAtomCategories(root, ns),
		Authors:     parseAtomAuthors(root, ns),
		Type:        feed.TypeAtom,
		AtomData:    parseAtomData(root, ns),
		DublinCore:  parseDublinCore(root),
		ITunes:      parseChannelITunes(root),
	}, nil
}

func (x *AtomExtractor) extractEntry(e *Element, ns string) feed.Item {
	title := text(e.Child(ns, "title"))
	link := alternateLink(e, ns)
	published := text(e.Child(ns, "published"))

	id := text(e.Child(ns, "id"))
	if id == nil {
		id = ptr(x.newID(deref(title), deref(link), deref(text(e.Child(ns, "summary"))), deref(published)))
	}

	return feed.Item{
		ID:            *id,
		Title:         title,
		Link:          link,
		Content:       parseAtomContentBlock(e, ns),
		PublishedDate: ParseAtomDate(deref(published)),
		UpdatedDate:   ParseAtomDate(deref(text(e.Child(ns, "updated")))),
		Authors:       parseAtomAuthors(e, ns),
		Categories:    parseAtomCategories(e, ns),
		Enclosures:    parseAtomEnclosures(e, ns),
		Media:         parseMedia(e),
		AtomData:      parseAtomEntryData(e, ns),
		DublinCore:    parseDublinCore(e),
		ITunes:        parseItemITunes(e),
	}
}

func nonBlankPtr(s *string) *string {
	if s == nil {
		return nil
	}
	return nonBlank(*s)
}

// alternateLink prefers rel="alternate", then the first link with no or empty rel.
func alternateLink(e *Element, ns string) *string {
	links := e.ChildrenNamed(ns, "link")

	for _, l := range links {
		if rel := l.Attribute("rel"); rel != nil && strings.EqualFold(strings.TrimSpace(*rel), "alternate") {
			return parseURI(l.Attribute("href"))
		}
	}
	for _, l := range links {
		if rel := l.Attribute("rel"); rel == nil || *rel == "" {
			return parseURI(l.Attribute("href"))
		}
	}
	return nil
}

func parseAtomImage(root *Element, ns string, title *string) *feed.Image {
	url := parseURI(text(root.Child(ns, "logo")))
	if url == nil {
		url = parseURI(text(root.Child(ns, "icon")))
	}
	if url == nil {
		return nil
	}
	return &feed.Image{URL: *url, Title: title}
}

// parseAtomContentBlock prefers content over summary. For xhtml the wrapping
// child element is serialized instead of taking its text.
func parseAtomContentBlock(entry *Element, ns string) *feed.Content {
	element := entry.Child(ns, "content")
	if element == nil {
		element = entry.Child(ns, "summary")
	}
	if element == nil {
		return nil
	}

	contentType := "text"
	if t := attr(element, "type"); t != nil {
		contentType = strings.ToLower(*t)
	}

	value := strings.TrimSpace(element.Value())
	if contentType == "xhtml" && len(element.Children) > 0 {
		value = element.Children[0].String()
	}

	content := &feed.Content{}
	switch contentType {
	case "html", "xhtml":
		content.Html = &value
		content.ContentType = "text/html"
	case "text":
		content.ContentType = "text/plain"
	default:
		content.ContentType = contentType
	}

	if contentType == "text" {
		content.PlainText = &value
	} else {
		content.PlainText = StripHTML(&value)
	}

	return content
}

func parseAtomPersons(e *Element, ns, local string) []feed.AtomPerson {
	var persons []feed.AtomPerson
	for _, p := range e.ChildrenNamed(ns, local) {
		persons = append(persons, feed.AtomPerson{
			Name:  text(p.Child(ns, "name")),
			Email: text(p.Child(ns, "email")),
			URI:   parseURI(text(p.Child(ns, "uri"))),
		})
	}
	return persons
}

func parseAtomAuthors(e *Element, ns string) []feed.Author {
	var authors []feed.Author
	for _, p := range parseAtomPersons(e, ns, "author") {
		authors = append(authors, feed.Author{Name: p.Name, Email: p.Email, URI: p.URI})
	}
	return authors
}

func parseAtomCategories(e *Element, ns string) []feed.Category {
	var categories []feed.Category
	for _, c := range e.ChildrenNamed(ns, "category") {
		term := attr(c, "term")
		if term == nil {
			continue
		}
		categories = append(categories, feed.Category{
			Name:   *term,
			Domain: attr(c, "scheme"),
			Label:  attr(c, "label"),
		})
	}
	return categories
}

func parseAtomEnclosures(entry *Element, ns string) []feed.Enclosure {
	var enclosures []feed.Enclosure
	for _, l := range entry.ChildrenNamed(ns, "link") {
		if rel := attr(l, "rel"); rel == nil || !strings.EqualFold(*rel, "enclosure") {
			continue
		}
		url := parseURI(attr(l, "href"))
		if url == nil {
			continue
		}
		enclosures = append(enclosures, feed.Enclosure{
			URL:      *url,
			MimeType: attr(l, "type"),
			Length:   parseInt64(attr(l, "length")),
		})
	}
	return enclosures
}

func parseAtomLinks(e *Element, ns string) []feed.AtomLink {
	var links []feed.AtomLink
	for _, l := range e.ChildrenNamed(ns, "link") {
		href := parseURI(attr(l, "href"))
		if href == nil {
			continue
		}
		links = append(links, feed.AtomLink{
			Href:     *href,
			Rel:      attr(l, "rel"),
			Type:     attr(l, "type"),
			HrefLang: attr(l, "hreflang"),
			Title:    attr(l, "title"),
			Length:   parseInt64(attr(l, "length")),
		})
	}
	return links
}

func parseAtomData(root *Element, ns string) *feed.AtomFeedData {
	data := &feed.AtomFeedData{
		ID:           text(root.Child(ns, "id")),
		Icon:         parseURI(text(root.Child(ns, "icon"))),
		Logo:         parseURI(text(root.Child(ns, "logo"))),
		Subtitle:     text(root.Child(ns, "subtitle")),
		Links:        parseAtomLinks(root, ns),
		Contributors: parseAtomPersons(root, ns, "contributor"),
	}

	if g := root.Child(ns, "generator"); g != nil {
		data.Generator = &feed.AtomGenerator{
			Name:    text(g),
			URI:     parseURI(attr(g, "uri")),
			Version: attr(g, "version"),
		}
	}

	return data
}

func parseAtomEntryData(entry *Element, ns string) *feed.AtomEntryData {
	data := &feed.AtomEntryData{
		ID:           text(entry.Child(ns, "id")),
		Links:        parseAtomLinks(entry, ns),
		Contributors: parseAtomPersons(entry, ns, "contributor"),
		Rights:       text(entry.Child(ns, "rights")),
	}

	if s := entry.Child(ns, "summary"); s != nil {
		data.Summary = &feed.AtomText{
			Value: strings.TrimSpace(s.Value()),
			Type:  attr(s, "type"),
		}
	}

	if c := entry.Child(ns, "content"); c != nil {
		data.Content = &feed.AtomContent{
			Value: strings.TrimSpace(c.Value()),
			Type:  attr(c, "type"),
			Src:   parseURI(attr(c, "src")),
		}
	}

	if src := entry.Child(ns, "source"); src != nil {
		data.Source = &feed.AtomSource{
			ID:      text(src.Child(ns, "id")),
			Title:   text(src.Child(ns, "title")),
			Updated: ParseAtomDate(deref(text(src.Child(ns, "updated")))),
			Links:   parseAtomLinks(src, ns),
		}
	}

	return data
}
