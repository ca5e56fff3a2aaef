package parser

import (
	"strconv"
	"strings"

	"github.com/lysyi3m/feed-unify/app/feed"
)

// parseDublinCore returns nil unless e has at least one Dublin Core child.
func parseDublinCore(e *Element) *feed.DublinCore {
	if !e.HasChildInNamespace(NamespaceDublinCore) {
		return nil
	}

	dc := func(local string) *string {
		return text(e.Child(NamespaceDublinCore, local))
	}

	return &feed.DublinCore{
		Creator:     dc("creator"),
		Date:        ParseAtomDate(deref(dc("date"))),
		Subject:     dc("subject"),
		Description: dc("description"),
		Publisher:   dc("publisher"),
		Contributor: dc("contributor"),
		Type:        dc("type"),
		Format:      dc("format"),
		Identifier:  dc("identifier"),
		Source:      dc("source"),
		Language:    dc("language"),
		Relation:    dc("relation"),
		Coverage:    dc("coverage"),
		Rights:      dc("rights"),
	}
}

// parseChannelITunes reads podcast-level iTunes metadata. Nil when no iTunes
// element is present.
func parseChannelITunes(e *Element) *feed.ITunes {
	if !e.HasChildInNamespace(NamespaceITunes) {
		return nil
	}

	it := func(local string) *string {
		return text(e.Child(NamespaceITunes, local))
	}

	return &feed.ITunes{
		Author:     it("author"),
		Subtitle:   it("subtitle"),
		Summary:    it("summary"),
		ImageURL:   parseURI(attr(e.Child(NamespaceITunes, "image"), "href")),
		Explicit:   ParseExplicit(deref(it("explicit"))),
		Owner:      parseITunesOwner(e.Child(NamespaceITunes, "owner")),
		Categories: parseITunesCategories(e),
		Keywords:   parseKeywords(deref(it("keywords"))),
		Block:      equalsFold(it("block"), "yes"),
		Complete:   equalsFold(it("complete"), "yes"),
	}
}

// parseItemITunes reads episode-level iTunes metadata. Nil when no iTunes
// element is present.
func parseItemITunes(e *Element) *feed.ITunes {
	if !e.HasChildInNamespace(NamespaceITunes) {
		return nil
	}

	it := func(local string) *string {
		return text(e.Child(NamespaceITunes, local))
	}

	return &feed.ITunes{
		Author:      it("author"),
		Subtitle:    it("subtitle"),
		Summary:     it("summary"),
		ImageURL:    parseURI(attr(e.Child(NamespaceITunes, "image"), "href")),
		Duration:    ParseDuration(deref(it("duration"))),
		Explicit:    ParseExplicit(deref(it("explicit"))),
		Episode:     parseInt(it("episode")),
		Season:      parseInt(it("season")),
		EpisodeType: it("episodeType"),
		Block:       equalsFold(it("block"), "yes"),
	}
}

func parseITunesOwner(owner *Element) *feed.ITunesOwner {
	if owner == nil {
		return nil
	}
	return &feed.ITunesOwner{
		Name:  text(owner.Child(NamespaceITunes, "name")),
		Email: text(owner.Child(NamespaceITunes, "email")),
	}
}

// parseITunesCategories reads top-level categories and at most one level of subcategory.
func parseITunesCategories(e *Element) []feed.ITunesCategory {
	var categories []feed.ITunesCategory
	for _, c := range e.ChildrenNamed(NamespaceITunes, "category") {
		name := attr(c, "text")
		if name == nil {
			continue
		}

		category := feed.ITunesCategory{Text: *name}
		if sub := c.Child(NamespaceITunes, "category"); sub != nil {
			category.Subcategory = &feed.ITunesCategory{Text: deref(attr(sub, "text"))}
		}
		categories = append(categories, category)
	}
	return categories
}

func parseKeywords(raw string) []string {
	var keywords []string
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keywords = append(keywords, k)
		}
	}
	return keywords
}

// ParseExplicit maps the iTunes explicit flag to true, false or nil for
// unrecognised values.
func ParseExplicit(raw string) *bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "yes", "true", "explicit":
		return ptr(true)
	case "no", "false", "clean":
		return ptr(false)
	default:
		return nil
	}
}

// ParseDuration converts SS, MM:SS or HH:MM:SS into seconds.
func ParseDuration(raw string) *int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ":")
	if len(parts) > 3 {
		return nil
	}

	total := 0
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 {
			return nil
		}
		total = total*60 + n
	}
	return &total
}

// parseMedia reads Media RSS content and thumbnail, looking inside media:group
// when the direct child is missing.
func parseMedia(e *Element) *feed.MediaContent {
	content := e.Child(NamespaceMedia, "content")
	thumbnail := e.Child(NamespaceMedia, "thumbnail")

	if group := e.Child(NamespaceMedia, "group"); group != nil {
		if content == nil {
			content = group.Child(NamespaceMedia, "content")
		}
		if thumbnail == nil {
			thumbnail = group.Child(NamespaceMedia, "thumbnail")
		}
	}

	if content == nil && thumbnail == nil {
		return nil
	}

	return &feed.MediaContent{
		URL:          parseURI(attr(content, "url")),
		MimeType:     attr(content, "type"),
		Medium:       attr(content, "medium"),
		Width:        parseInt(attr(content, "width")),
		Height:       parseInt(attr(content, "height")),
		Duration:     parseInt(attr(content, "duration")),
		ThumbnailURL: parseURI(attr(thumbnail, "url")),
		Title:        text(e.Child(NamespaceMedia, "title")),
		Description:  text(e.Child(NamespaceMedia, "description")),
	}
}
