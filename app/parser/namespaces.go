package parser

const (
	NamespaceAtom       = "http://www.w3.org/2005/Atom"
	NamespaceDublinCore = "http://purl.org/dc/elements/1.1/"
	NamespaceContent    = "http://purl.org/rss/1.0/modules/content/"
	NamespaceMedia      = "http://search.yahoo.com/mrss/"
	NamespaceITunes     = "http://www.itunes.com/dtds/podcast-1.0.dtd"
	NamespaceSlash      = "http://purl.org/rss/1.0/modules/slash/"
	NamespaceWfw        = "http://wellformedweb.org/CommentAPI/"
	NamespaceSy         = "http://purl.org/rss/1.0/modules/syndication/"
	NamespaceRSS10      = "http://purl.org/rss/1.0/"
	NamespaceRDF        = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	NamespaceXML        = "http://www.w3.org/XML/1998/namespace"
	NamespaceXHTML      = "http://www.w3.org/1999/xhtml"
)
