package parser

import (
	"fmt"
	"strings"

	"github.com/lysyi3m/feed-unify/app/feed"
)

// RSSExtractor handles RSS 2.0 documents and RSS 1.0 (RDF) documents.
type RSSExtractor struct {
	newID idFunc
}

func NewRSSExtractor(opts ...Option) *RSSExtractor {
	o := newOptions(opts)
	return &RSSExtractor{newID: o.newID}
}

func (x *RSSExtractor) Name() string {
	return "rss"
}

func (x *RSSExtractor) CanHandle(doc *Document) bool {
	if doc == nil || doc.Root == nil {
		return false
	}
	local := doc.Root.Name.Local
	return strings.EqualFold(local, "rss") || strings.EqualFold(local, "RDF")
}

func (x *RSSExtractor) Extract(doc *Document) (*feed.Feed, error) {
	root := doc.Root
	channel := root.Child("", "channel")
	if channel == nil {
		channel = root.DescendantFold("channel")
	}
	if channel == nil {
		return nil, fmt.Errorf("RSS feed does not contain a channel element")
	}

	// RSS 1.0 places items beside the channel rather than inside it.
	itemElems := rssChildren(channel, "item")
	if len(itemElems) == 0 && channel != root {
		itemElems = rssChildren(root, "item")
	}

	items := make([]feed.Item, 0, len(itemElems))
	for _, e := range itemElems {
		items = append(items, x.extractItem(e))
	}

	title := untitledFeed
	if t := rssText(channel, "title"); t != nil {
		title = *t
	}

	lastUpdated := ParseRSSDate(deref(rssText(channel, "lastBuildDate")))
	if lastUpdated == nil {
		lastUpdated = ParseRSSDate(deref(rssText(channel, "pubDate")))
	}
	if lastUpdated == nil {
		lastUpdated = ParseAtomDate(deref(text(channel.Child(NamespaceDublinCore, "date"))))
	}

	return &feed.Feed{
		Title:       title,
		Description: rssText(channel, "description"),
		Link:        parseURI(rssText(channel, "link")),
		LastUpdated: lastUpdated,
		Language:    rssText(channel, "language"),
		Copyright:   rssText(channel, "copyright"),
		Image:       parseRSSImage(rssChild(channel, "image")),
		Items:       items,
		Categories:  parseRSSCategories(channel),
		Authors:     parseRSSChannelAuthors(channel),
		Type:        feed.TypeRSS,
		RssData:     parseRSSData(root, channel),
		DublinCore:  parseDublinCore(channel),
		ITunes:      parseChannelITunes(channel),
	}, nil
}

func (x *RSSExtractor) extractItem(e *Element) feed.Item {
	guid := rssText(e, "guid")
	link := rssText(e, "link")
	title := rssText(e, "title")
	description := rssText(e, "description")
	pubDate := rssText(e, "pubDate")

	var id string
	switch {
	case guid != nil:
		id = *guid
	case link != nil:
		id = *link
	default:
		id = x.newID(deref(title), deref(description), deref(pubDate))
	}

	var content *feed.Content
	html := text(e.Child(NamespaceContent, "encoded"))
	if html == nil {
		html = description
	}
	if html != nil {
		content = &feed.Content{
			Html:        html,
			PlainText:   StripHTML(html),
			ContentType: "text/html",
		}
	}

	published := ParseRSSDate(deref(pubDate))
	if published == nil {
		published = ParseAtomDate(deref(text(e.Child(NamespaceDublinCore, "date"))))
	}

	return feed.Item{
		ID:            id,
		Title:         title,
		Link:          parseURI(link),
		Content:       content,
		PublishedDate: published,
		Authors:       parseRSSItemAuthors(e),
		Categories:    parseRSSCategories(e),
		Enclosures:    parseRSSEnclosures(e),
		Media:         parseMedia(e),
		RssData:       parseRSSItemData(e),
		DublinCore:    parseDublinCore(e),
		ITunes:        parseItemITunes(e),
	}
}

// extensionNamespaces have their own mappings and never satisfy a plain RSS
// element lookup, so <itunes:author> is not mistaken for <author> and an
// <atom:link rel="self"> ahead of <link> does not become the channel link.
// Any other namespace still matches.
var extensionNamespaces = map[string]bool{
	NamespaceAtom:       true,
	NamespaceDublinCore: true,
	NamespaceContent:    true,
	NamespaceMedia:      true,
	NamespaceITunes:     true,
	NamespaceSlash:      true,
	NamespaceWfw:        true,
	NamespaceSy:         true,
}

// rssChild finds the first child by case-insensitive local name, in any
// namespace other than a known extension namespace.
func rssChild(e *Element, local string) *Element {
	for _, c := range e.ChildrenFold(local) {
		if !extensionNamespaces[c.Name.Space] {
			return c
		}
	}
	return nil
}

func rssChildren(e *Element, local string) []*Element {
	var out []*Element
	for _, c := range e.ChildrenFold(local) {
		if !extensionNamespaces[c.Name.Space] {
			out = append(out, c)
		}
	}
	return out
}

func rssText(e *Element, local string) *string {
	return text(rssChild(e, local))
}

func parseRSSImage(image *Element) *feed.Image {
	if image == nil {
		return nil
	}

	url := parseURI(rssText(image, "url"))
	if url == nil {
		return nil
	}

	return &feed.Image{
		URL:         *url,
		Title:       rssText(image, "title"),
		Link:        parseURI(rssText(image, "link")),
		Width:       parseInt(rssText(image, "width")),
		Height:      parseInt(rssText(image, "height")),
		Description: rssText(image, "description"),
	}
}

// Authors are additive: each source element contributes its own entry.
func parseRSSChannelAuthors(channel *Element) []feed.Author {
	var authors []feed.Author
	if v := rssText(channel, "author"); v != nil {
		authors = append(authors, feed.Author{Email: v})
	}
	if v := rssText(channel, "managingEditor"); v != nil {
		authors = append(authors, feed.Author{Email: v})
	}
	if v := text(channel.Child(NamespaceDublinCore, "creator")); v != nil {
		authors = append(authors, feed.Author{Name: v})
	}
	if v := text(channel.Child(NamespaceITunes, "author")); v != nil {
		authors = append(authors, feed.Author{Name: v})
	}
	return authors
}

func parseRSSItemAuthors(item *Element) []feed.Author {
	var authors []feed.Author
	if v := rssText(item, "author"); v != nil {
		authors = append(authors, feed.Author{Email: v})
	}
	if v := text(item.Child(NamespaceDublinCore, "creator")); v != nil {
		authors = append(authors, feed.Author{Name: v})
	}
	return authors
}

func parseRSSCategories(e *Element) []feed.Category {
	var categories []feed.Category
	for _, c := range rssChildren(e, "category") {
		name := text(c)
		if name == nil {
			continue
		}
		categories = append(categories, feed.Category{
			Name:   *name,
			Domain: attr(c, "domain"),
		})
	}
	return categories
}

func parseRSSEnclosures(item *Element) []feed.Enclosure {
	var enclosures []feed.Enclosure
	for _, c := range rssChildren(item, "enclosure") {
		url := parseURI(attr(c, "url"))
		if url == nil {
			continue
		}
		enclosures = append(enclosures, feed.Enclosure{
			URL:      *url,
			MimeType: attr(c, "type"),
			Length:   parseInt64(attr(c, "length")),
		})
	}
	return enclosures
}

func parseRSSData(root, channel *Element) *feed.RssFeedData {
	data := &feed.RssFeedData{
		Version:        attr(root, "version"),
		ManagingEditor: rssText(channel, "managingEditor"),
		WebMaster:      rssText(channel, "webMaster"),
		Docs:           parseURI(rssText(channel, "docs")),
		Cloud:          parseRSSCloud(rssChild(channel, "cloud")),
		TTL:            parseInt(rssText(channel, "ttl")),
		Rating:         rssText(channel, "rating"),
		TextInput:      parseRSSTextInput(rssChild(channel, "textInput")),
		Generator:      rssText(channel, "generator"),
	}

	if skipHours := rssChild(channel, "skipHours"); skipHours != nil {
		for _, h := range rssChildren(skipHours, "hour") {
			if n := parseInt(text(h)); n != nil {
				data.SkipHours = append(data.SkipHours, *n)
			}
		}
	}

	if skipDays := rssChild(channel, "skipDays"); skipDays != nil {
		for _, d := range rssChildren(skipDays, "day") {
			if v := text(d); v != nil {
				data.SkipDays = append(data.SkipDays, *v)
			}
		}
	}

	return data
}

func parseRSSCloud(cloud *Element) *feed.RssCloud {
	if cloud == nil {
		return nil
	}
	return &feed.RssCloud{
		Domain:            attr(cloud, "domain"),
		Port:              parseInt(attr(cloud, "port")),
		Path:              attr(cloud, "path"),
		RegisterProcedure: attr(cloud, "registerProcedure"),
		Protocol:          attr(cloud, "protocol"),
	}
}

func parseRSSTextInput(input *Element) *feed.RssTextInput {
	if input == nil {
		return nil
	}
	return &feed.RssTextInput{
		Title:       rssText(input, "title"),
		Description: rssText(input, "description"),
		Name:        rssText(input, "name"),
		Link:        parseURI(rssText(input, "link")),
	}
}

func parseRSSItemData(item *Element) *feed.RssItemData {
	data := &feed.RssItemData{
		Comments: parseURI(rssText(item, "comments")),
	}

	if guid := rssChild(item, "guid"); guid != nil {
		data.GUID = text(guid)
		data.IsPermaLink = equalsFold(attr(guid, "isPermaLink"), "true")
	}

	if source := rssChild(item, "source"); source != nil {
		data.Source = &feed.RssSource{
			Name: text(source),
			URL:  parseURI(attr(source, "url")),
		}
	}

	return data
}
