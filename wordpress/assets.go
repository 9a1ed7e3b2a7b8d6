package wordpress

import (
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DefaultAssetMarker is the path fragment WordPress puts in front of every uploaded file.
const DefaultAssetMarker = "wp-content"

type MediaType int8

const (
	UnknownMedia MediaType = iota
	ImageMedia
	VideoMedia
	DocumentMedia
)

func (m MediaType) String() string {
	switch m {
	case ImageMedia:
		return "image"
	case VideoMedia:
		return "video"
	case DocumentMedia:
		return "document"
	default:
		return "unknown"
	}
}

var extensionMediaTypes = map[string]MediaType{
	".jpg": ImageMedia, ".jpeg": ImageMedia, ".png": ImageMedia, ".gif": ImageMedia,
	".webp": ImageMedia, ".svg": ImageMedia, ".bmp": ImageMedia, ".tif": ImageMedia,
	".tiff": ImageMedia, ".ico": ImageMedia, ".avif": ImageMedia,

	".mp4": VideoMedia, ".m4v": VideoMedia, ".mov": VideoMedia, ".webm": VideoMedia,
	".ogv": VideoMedia, ".avi": VideoMedia, ".wmv": VideoMedia, ".mkv": VideoMedia,

	".pdf": DocumentMedia, ".doc": DocumentMedia, ".docx": DocumentMedia, ".xls": DocumentMedia,
	".xlsx": DocumentMedia, ".ppt": DocumentMedia, ".pptx": DocumentMedia, ".odt": DocumentMedia,
}

// MediaTypeFromPath guesses the media type of a URL from its file extension, ignoring any query
// string or fragment.
func MediaTypeFromPath(rawURL string) MediaType {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}
	if mt, ok := extensionMediaTypes[strings.ToLower(path.Ext(p))]; ok {
		return mt
	}
	return UnknownMedia
}

// AssetReference is one media pointer found in an item body.
type AssetReference struct {
	RawURL    string
	MediaType MediaType
}

// Resolve returns the reference as an absolute URL, using base for relative references.  If
// either side doesn't parse, the raw URL is returned untouched and the fetcher gets to reject it.
func (r AssetReference) Resolve(base string) string {
	if base == "" {
		return r.RawURL
	}
	ref, err := url.Parse(r.RawURL)
	if err != nil || ref.IsAbs() {
		return r.RawURL
	}
	b, err := url.Parse(base)
	if err != nil || !b.IsAbs() {
		return r.RawURL
	}
	return b.ResolveReference(ref).String()
}

// Extractor finds asset references in an item body.  Results are de-duplicated by raw URL and
// keep the order of first appearance.
type Extractor interface {
	Extract(body string) []AssetReference
}

type referenceSet struct {
	seen map[string]bool
	refs []AssetReference
}

func (s *referenceSet) add(rawURL string, mt MediaType) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return
	}
	if s.seen == nil {
		s.seen = make(map[string]bool)
	}
	if s.seen[rawURL] {
		return
	}
	s.seen[rawURL] = true
	s.refs = append(s.refs, AssetReference{RawURL: rawURL, MediaType: mt})
}

// StructuralExtractor parses the body as HTML and collects images, video sources and links to
// PDF documents.
type StructuralExtractor struct{}

func (StructuralExtractor) Extract(body string) []AssetReference {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil
	}

	var set referenceSet
	doc.Find("img, video, source, a").Each(func(_ int, s *goquery.Selection) {
		switch goquery.NodeName(s) {
		case "img":
			set.add(s.AttrOr("src", ""), ImageMedia)
		case "video":
			set.add(s.AttrOr("src", ""), VideoMedia)
		case "source":
			if s.ParentsFiltered("video").Length() > 0 {
				set.add(s.AttrOr("src", ""), VideoMedia)
			}
		case "a":
			href := s.AttrOr("href", "")
			if isPDFLink(href) {
				set.add(href, DocumentMedia)
			}
		}
	})

	return set.refs
}

func isPDFLink(href string) bool {
	p := href
	if u, err := url.Parse(href); err == nil {
		p = u.Path
	}
	return strings.HasSuffix(strings.ToLower(p), ".pdf")
}

// TextualExtractor scans the raw body for Marker and slices out the surrounding URL, without
// parsing markup.  The URL runs from the nearest preceding delimiter to the next quote, and only
// counts when a path follows the marker.
type TextualExtractor struct {
	Marker string
}

func (t TextualExtractor) Extract(body string) []AssetReference {
	marker := t.Marker
	if marker == "" {
		marker = DefaultAssetMarker
	}

	var set referenceSet
	floor := 0
	for floor < len(body) {
		idx := strings.Index(body[floor:], marker)
		if idx == -1 {
			break
		}
		idx += floor

		start := idx
		for start > floor && !isURLStartDelimiter(body[start-1]) {
			start--
		}

		after := idx + len(marker)
		end := strings.IndexFunc(body[after:], isURLEndDelimiter)
		if end == -1 {
			end = len(body)
		} else {
			end += after
		}

		// The marker has to lead somewhere; a bare mention in prose is not a reference.
		if tail := body[after:end]; len(tail) > 1 && tail[0] == '/' {
			candidate := body[start:end]
			set.add(candidate, MediaTypeFromPath(candidate))
		}
		floor = end + 1
	}

	return set.refs
}

func isURLStartDelimiter(b byte) bool {
	switch b {
	case '"', '\'', ' ', '\t', '\n', '\r', '(', '<', '>', '=', ',':
		return true
	}
	return false
}

func isURLEndDelimiter(r rune) bool {
	switch r {
	case '"', '\'', ' ', '\t', '\n', '\r', ')', '<', '>', ',':
		return true
	}
	return false
}
