package feed

import (
	"time"
)

// Unified feed model

type Type string

const (
	TypeUnknown Type = "unknown"
	TypeRSS     Type = "rss"
	TypeAtom    Type = "atom"
)

// Feed is the format-agnostic representation of an RSS or Atom document.
// Exactly one of RssData and AtomData is set once a document is parsed,
// matching Type.
type Feed struct {
	Title       string        `json:"title"`
	Description *string       `json:"description,omitempty"`
	Link        *string       `json:"link,omitempty"`
	LastUpdated *time.Time    `json:"last_updated,omitempty"`
	Language    *string       `json:"language,omitempty"`
	Copyright   *string       `json:"copyright,omitempty"`
	Image       *Image        `json:"image,omitempty"`
	Items       []Item        `json:"items"`
	Categories  []Category    `json:"categories"`
	Authors     []Author      `json:"authors"`
	Type        Type          `json:"type"`
	RssData     *RssFeedData  `json:"rss,omitempty"`
	AtomData    *AtomFeedData `json:"atom,omitempty"`
	DublinCore  *DublinCore   `json:"dublin_core,omitempty"`
	ITunes      *ITunes       `json:"itunes,omitempty"`
}

// Item is a single entry. ID is never empty.
type Item struct {
	ID            string         `json:"id"`
	Title         *string        `json:"title,omitempty"`
	Link          *string        `json:"link,omitempty"`
	Content       *Content       `json:"content,omitempty"`
	PublishedDate *time.Time     `json:"published,omitempty"`
	UpdatedDate   *time.Time     `json:"updated,omitempty"`
	Authors       []Author       `json:"authors"`
	Categories    []Category     `json:"categories"`
	Enclosures    []Enclosure    `json:"enclosures"`
	Media         *MediaContent  `json:"media,omitempty"`
	RssData       *RssItemData   `json:"rss,omitempty"`
	AtomData      *AtomEntryData `json:"atom,omitempty"`
	DublinCore    *DublinCore    `json:"dublin_core,omitempty"`
	ITunes        *ITunes        `json:"itunes,omitempty"`
}

type Content struct {
	Html        *string `json:"html,omitempty"`
	PlainText   *string `json:"plain_text,omitempty"`
	ContentType string  `json:"content_type"`
}

type Author struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
	URI   *string `json:"uri,omitempty"`
}

type Category struct {
	Name   string  `json:"name"`
	Domain *string `json:"domain,omitempty"`
	Label  *string `json:"label,omitempty"`
}

type Enclosure struct {
	URL      string  `json:"url"`
	MimeType *string `json:"mime_type,omitempty"`
	Length   *int64  `json:"length,omitempty"`
}

type Image struct {
	URL         string  `json:"url"`
	Title       *string `json:"title,omitempty"`
	Link        *string `json:"link,omitempty"`
	Width       *int    `json:"width,omitempty"`
	Height      *int    `json:"height,omitempty"`
	Description *string `json:"description,omitempty"`
}

type MediaContent struct {
	URL          *string `json:"url,omitempty"`
	MimeType     *string `json:"mime_type,omitempty"`
	Medium       *string `json:"medium,omitempty"`
	Width        *int    `json:"width,omitempty"`
	Height       *int    `json:"height,omitempty"`
	Duration     *int    `json:"duration,omitempty"`
	ThumbnailURL *string `json:"thumbnail_url,omitempty"`
	Title        *string `json:"title,omitempty"`
	Description  *string `json:"description,omitempty"`
}

// RSS side-channel

type RssFeedData struct {
	Version        *string       `json:"version,omitempty"`
	ManagingEditor *string       `json:"managing_editor,omitempty"`
	WebMaster      *string       `json:"web_master,omitempty"`
	Docs           *string       `json:"docs,omitempty"`
	Cloud          *RssCloud     `json:"cloud,omitempty"`
	TTL            *int          `json:"ttl,omitempty"`
	Rating         *string       `json:"rating,omitempty"`
	TextInput      *RssTextInput `json:"text_input,omitempty"`
	SkipHours      []int         `json:"skip_hours"`
	SkipDays       []string      `json:"skip_days"`
	Generator      *string       `json:"generator,omitempty"`
}

type RssCloud struct {
	Domain            *string `json:"domain,omitempty"`
	Port              *int    `json:"port,omitempty"`
	Path              *string `json:"path,omitempty"`
	RegisterProcedure *string `json:"register_procedure,omitempty"`
	Protocol          *string `json:"protocol,omitempty"`
}

type RssTextInput struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Name        *string `json:"name,omitempty"`
	Link        *string `json:"link,omitempty"`
}

type RssItemData struct {
	GUID        *string    `json:"guid,omitempty"`
	IsPermaLink *bool      `json:"is_perma_link,omitempty"`
	Comments    *string    `json:"comments,omitempty"`
	Source      *RssSource `json:"source,omitempty"`
}

type RssSource struct {
	Name *string `json:"name,omitempty"`
	URL  *string `json:"url,omitempty"`
}

// Atom side-channel

type AtomFeedData struct {
	ID           *string        `json:"id,omitempty"`
	Generator    *AtomGenerator `json:"generator,omitempty"`
	Icon         *string        `json:"icon,omitempty"`
	Logo         *string        `json:"logo,omitempty"`
	Subtitle     *string        `json:"subtitle,omitempty"`
	Links        []AtomLink     `json:"links"`
	Contributors []AtomPerson   `json:"contributors"`
}

type AtomGenerator struct {
	Name    *string `json:"name,omitempty"`
	URI     *string `json:"uri,omitempty"`
	Version *string `json:"version,omitempty"`
}

type AtomLink struct {
	Href     string  `json:"href"`
	Rel      *string `json:"rel,omitempty"`
	Type     *string `json:"type,omitempty"`
	HrefLang *string `json:"hreflang,omitempty"`
	Title    *string `json:"title,omitempty"`
	Length   *int64  `json:"length,omitempty"`
}

type AtomPerson struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
	URI   *string `json:"uri,omitempty"`
}

type AtomEntryData struct {
	ID           *string      `json:"id,omitempty"`
	Summary      *AtomText    `json:"summary,omitempty"`
	Content      *AtomContent `json:"content,omitempty"`
	Links        []AtomLink   `json:"links"`
	Contributors []AtomPerson `json:"contributors"`
	Source       *AtomSource  `json:"source,omitempty"`
	Rights       *string      `json:"rights,omitempty"`
}

type AtomText struct {
	Value string  `json:"value"`
	Type  *string `json:"type,omitempty"`
}

type AtomContent struct {
	Value string  `json:"value"`
	Type  *string `json:"type,omitempty"`
	Src   *string `json:"src,omitempty"`
}

type AtomSource struct {
	ID      *string    `json:"id,omitempty"`
	Title   *string    `json:"title,omitempty"`
	Updated *time.Time `json:"updated,omitempty"`
	Links   []AtomLink `json:"links"`
}

// Extension blocks. A nil block means no element of the namespace was present.

type DublinCore struct {
	Creator     *string    `json:"creator,omitempty"`
	Date        *time.Time `json:"date,omitempty"`
	Subject     *string    `json:"subject,omitempty"`
	Description *string    `json:"description,omitempty"`
	Publisher   *string    `json:"publisher,omitempty"`
	Contributor *string    `json:"contributor,omitempty"`
	Type        *string    `json:"type,omitempty"`
	Format      *string    `json:"format,omitempty"`
	Identifier  *string    `json:"identifier,omitempty"`
	Source      *string    `json:"source,omitempty"`
	Language    *string    `json:"language,omitempty"`
	Relation    *string    `json:"relation,omitempty"`
	Coverage    *string    `json:"coverage,omitempty"`
	Rights      *string    `json:"rights,omitempty"`
}

type ITunes struct {
	Author      *string          `json:"author,omitempty"`
	Subtitle    *string          `json:"subtitle,omitempty"`
	Summary     *string          `json:"summary,omitempty"`
	ImageURL    *string          `json:"image_url,omitempty"`
	Duration    *int             `json:"duration,omitempty"` // seconds
	Explicit    *bool            `json:"explicit,omitempty"`
	Episode     *int             `json:"episode,omitempty"`
	Season      *int             `json:"season,omitempty"`
	EpisodeType *string          `json:"episode_type,omitempty"`
	Owner       *ITunesOwner     `json:"owner,omitempty"`
	Categories  []ITunesCategory `json:"categories,omitempty"`
	Keywords    []string         `json:"keywords,omitempty"`
	Block       *bool            `json:"block,omitempty"`
	Complete    *bool            `json:"complete,omitempty"`
}

type ITunesOwner struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
}

type ITunesCategory struct {
	Text        string          `json:"text"`
	Subcategory *ITunesCategory `json:"subcategory,omitempty"`
}

// Fetch outcome types

// ResponseInfo describes the upstream response a result was produced from.
type ResponseInfo struct {
	StatusCode     int        `json:"status_code"`
	FinalURL       *string    `json:"final_url,omitempty"`
	ETag           *string    `json:"etag,omitempty"`
	LastModified   *time.Time `json:"last_modified,omitempty"`
	ContentType    *string    `json:"content_type,omitempty"`
	ContentLength  *int64     `json:"content_length,omitempty"`
	WasNotModified bool       `json:"was_not_modified"`
}

// CacheEntry is the unit a cache store holds. Entries are replaced, never mutated.
type CacheEntry struct {
	Feed         *Feed      `json:"feed"`
	ETag         *string    `json:"etag,omitempty"`
	LastModified *time.Time `json:"last_modified,omitempty"`
	CachedAt     time.Time  `json:"cached_at"`
}

// Configuration types

type Config struct {
	Name     string         // Derived from filename (without .yml extension)
	URL      string         `yaml:"url"`
	Settings ConfigSettings `yaml:"settings"`
	Auth     *ConfigAuth    `yaml:"auth"`
}

type ConfigSettings struct {
	Enabled         bool  `yaml:"enabled"`
	RefreshInterval int   `yaml:"refresh_interval"` // seconds
	Timeout         int   `yaml:"timeout"`          // seconds
	Cache           *bool `yaml:"cache"`            // nil inherits the global setting
}

type ConfigAuth struct {
	Type     string            `yaml:"type"` // basic, bearer, headers, cookies
	Username string            `yaml:"username"`
	Password string            `yaml:"password"`
	Token    string            `yaml:"token"`
	Headers  map[string]string `yaml:"headers"`
	Cookies  map[string]string `yaml:"cookies"`
}
