// Package wordpress reads WordPress WXR export documents into content items and finds the media
// those items reference.
package wordpress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/antchfx/xmlquery"
)

const (
	contentNS = "http://purl.org/rss/1.0/modules/content/"
	excerptNS = "http://wordpress.org/export/1.2/excerpt/"

	// WXR 1.0, 1.1 and 1.2 all live under this prefix.
	wpNSPrefix = "http://wordpress.org/export/"

	wpDateLayout = "2006-01-02 15:04:05"
	wpZeroDate   = "0000-00-00 00:00:00"
)

type Kind int8

const (
	OtherKind Kind = iota
	PostKind
	PageKind
)

func (k Kind) String() string {
	switch k {
	case PostKind:
		return "post"
	case PageKind:
		return "page"
	default:
		return "other"
	}
}

// Migratable reports whether items of this kind are carried into the repository.
func (k Kind) Migratable() bool {
	return k == PostKind || k == PageKind
}

func kindFromPostType(postType string) Kind {
	switch strings.TrimSpace(postType) {
	case "post":
		return PostKind
	case "page":
		return PageKind
	default:
		return OtherKind
	}
}

// ContentItem is one <item> of the export.  Missing optional fields are left at their zero
// value; an empty Title or Body means the export did not provide one.
type ContentItem struct {
	ID          string
	Title       string
	Body        string
	Kind        Kind
	PostType    string // raw wp:post_type, kept for reporting on OtherKind items
	PublishedAt *time.Time

	Slug    string
	Status  string
	Link    string
	Excerpt string
}

func (c ContentItem) HasTitle() bool {
	return strings.TrimSpace(c.Title) != ""
}

func (c ContentItem) HasBody() bool {
	return c.Body != ""
}

// MalformedExportError means the document as a whole could not be read.  It is the only parse
// failure that stops a migration.
type MalformedExportError struct {
	Reason string
	Err    error
}

func (e *MalformedExportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("wordpress: malformed export: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("wordpress: malformed export: %s", e.Reason)
}

func (e *MalformedExportError) Unwrap() error {
	return e.Err
}

// Export is a parsed export document.
type Export struct {
	Title string

	// BaseURL is the blog's wp:base_site_url, or its channel link when that is missing.  Relative
	// asset references are resolved against it.
	BaseURL string

	channel *xmlquery.Node
}

func ParseFile(path string) (*Export, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("wordpress: couldn't open export %s: %w", path, err)
	}
	defer f.Close()

	return Parse(f)
}

// Parse reads a whole export document.  Structural problems with the document yield a
// *MalformedExportError; problems with individual items never do.
func Parse(r io.Reader) (*Export, error) {
	doc, err := xmlquery.Parse(r)
	if err != nil {
		return nil, &MalformedExportError{Reason: "unparsable document", Err: err}
	}

	channel := xmlquery.FindOne(doc, "//channel")
	if channel == nil {
		return nil, &MalformedExportError{Reason: "no <channel> element"}
	}

	e := &Export{
		Title:   strings.TrimSpace(childText(channel, "", "title")),
		BaseURL: strings.TrimSpace(wpChildText(channel, "base_site_url")),
		channel: channel,
	}
	if e.BaseURL == "" {
		e.BaseURL = strings.TrimSpace(childText(channel, "", "link"))
	}

	return e, nil
}

// Items returns a fresh iterator over the export's items in document order.  Each call starts
// from the first item again.
func (e *Export) Items() *ItemIterator {
	return &ItemIterator{next: nextItemNode(e.channel.FirstChild)}
}

// Count is the number of <item> elements, whatever their kind.
func (e *Export) Count() int {
	n := 0
	for node := nextItemNode(e.channel.FirstChild); node != nil; node = nextItemNode(node.NextSibling) {
		n++
	}
	return n
}

type ItemIterator struct {
	next    *xmlquery.Node
	current ContentItem
}

// Next advances to the following item, converting it on demand.  It returns false once the
// items are exhausted.
func (it *ItemIterator) Next() bool {
	if it.next == nil {
		return false
	}
	it.current = itemFromNode(it.next)
	it.next = nextItemNode(it.next.NextSibling)
	return true
}

func (it *ItemIterator) Item() ContentItem {
	return it.current
}

func nextItemNode(n *xmlquery.Node) *xmlquery.Node {
	for ; n != nil; n = n.NextSibling {
		if n.Type == xmlquery.ElementNode && n.Data == "item" && n.NamespaceURI == "" {
			return n
		}
	}
	return nil
}

func itemFromNode(n *xmlquery.Node) ContentItem {
	postType := wpChildText(n, "post_type")

	item := ContentItem{
		ID:       strings.TrimSpace(wpChildText(n, "post_id")),
		Title:    strings.TrimSpace(childText(n, "", "title")),
		Body:     childText(n, contentNS, "encoded"),
		Kind:     kindFromPostType(postType),
		PostType: strings.TrimSpace(postType),
		Slug:     strings.TrimSpace(wpChildText(n, "post_name")),
		Status:   strings.TrimSpace(wpChildText(n, "status")),
		Link:     strings.TrimSpace(childText(n, "", "link")),
		Excerpt:  strings.TrimSpace(childText(n, excerptNS, "encoded")),
	}
	item.PublishedAt = publishedAt(n)

	return item
}

func publishedAt(n *xmlquery.Node) *time.Time {
	for _, field := range []string{"post_date_gmt", "post_date"} {
		raw := strings.TrimSpace(wpChildText(n, field))
		if raw == "" || raw == wpZeroDate {
			continue
		}
		if t, err := time.Parse(wpDateLayout, raw); err == nil {
			return &t
		}
	}

	if raw := strings.TrimSpace(childText(n, "", "pubDate")); raw != "" {
		for _, layout := range []string{time.RFC1123Z, time.RFC1123} {
			if t, err := time.Parse(layout, raw); err == nil {
				t = t.UTC()
				return &t
			}
		}
	}

	return nil
}

func childText(n *xmlquery.Node, namespace, local string) string {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode && c.Data == local && c.NamespaceURI == namespace {
			return c.InnerText()
		}
	}
	return ""
}

func wpChildText(n *xmlquery.Node, local string) string {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode && c.Data == local && isWPNamespace(c.NamespaceURI) {
			return c.InnerText()
		}
	}
	return ""
}

func isWPNamespace(uri string) bool {
	return strings.HasPrefix(uri, wpNSPrefix) && !strings.Contains(uri, "/excerpt/")
}
