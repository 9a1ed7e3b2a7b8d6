package vaultpkg

import (
	"encoding/xml"
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/exp/maps"

	"github.com/toothbrush/wp2aem/repotree"
)

const descriptorName = ".content.xml"

// Namespaces a docview root may need, keyed by prefix.
var namespaces = map[string]string{
	"jcr":   "http://www.jcp.org/jcr/1.0",
	"nt":    "http://www.jcp.org/jcr/nt/1.0",
	"sling": "http://sling.apache.org/jcr/sling/1.0",
	"cq":    "http://www.day.com/jcr/cq/1.0",
	"wp":    "http://wordpress.org/export/1.2/",
}

// JCR's ISO8601 form, milliseconds included.
const jcrDateLayout = "2006-01-02T15:04:05.000Z07:00"

// Properties that are not plain strings in the repository, by JCR property type.
var propertyTypes = map[string]string{
	repotree.LastModified: "Date",
}

// docView is one node serialised the way FileVault expects a .content.xml: a jcr:root element
// whose attributes are the node's properties.
type docView struct {
	Properties map[string]string
}

func (d docView) MarshalXML(e *xml.Encoder, _ xml.StartElement) error {
	names := maps.Keys(d.Properties)
	slices.SortFunc(names, comparePropertyNames)

	// jcr:root itself always needs the jcr prefix.
	used := map[string]struct{}{"jcr": {}}
	for _, name := range names {
		used[prefixOf(name)] = struct{}{}
		used[prefixOf(d.Properties[name])] = struct{}{}
	}
	prefixes := maps.Keys(used)
	slices.Sort(prefixes)

	start := xml.StartElement{Name: xml.Name{Local: "jcr:root"}}
	for _, prefix := range prefixes {
		uri, ok := namespaces[prefix]
		if !ok {
			continue
		}
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "xmlns:" + prefix}, Value: uri})
	}
	for _, name := range names {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: name}, Value: docViewValue(name, d.Properties[name])})
	}

	if err := e.EncodeToken(start); err != nil {
		return err
	}
	return e.EncodeToken(start.End())
}

func marshalDocView(props map[string]string) ([]byte, error) {
	out, err := xml.MarshalIndent(docView{Properties: props}, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("vaultpkg: couldn't serialise node descriptor: %w", err)
	}
	return append([]byte(xml.Header), append(out, '\n')...), nil
}

// jcr:primaryType first, as FileVault writes it; the rest alphabetically.
func comparePropertyNames(a, b string) int {
	switch {
	case a == b:
		return 0
	case a == "jcr:primaryType":
		return -1
	case b == "jcr:primaryType":
		return 1
	}
	return strings.Compare(a, b)
}

func prefixOf(name string) string {
	prefix, _, ok := strings.Cut(name, ":")
	if !ok || strings.ContainsAny(prefix, "/ ") {
		return ""
	}
	return prefix
}

// docViewValue writes typed properties with their {Type} hint.  A value that doesn't parse as
// its type falls back to a plain string.
func docViewValue(name, v string) string {
	if propertyTypes[name] == "Date" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return "{Date}" + t.Format(jcrDateLayout)
		}
	}
	return escapeValue(v)
}

// escapeValue protects docview's value syntax: a leading { would be read as a type hint and a
// leading [ as a multi-value list.
func escapeValue(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	if strings.HasPrefix(v, "{") || strings.HasPrefix(v, "[") {
		v = `\` + v
	}
	return v
}

// platformName maps a repository name onto a file name: "jcr:content" becomes "_jcr_content".
func platformName(segment string) string {
	if prefix, local, ok := strings.Cut(segment, ":"); ok && prefix != "" {
		return "_" + prefix + "_" + local
	}
	// A name that already looks escaped gets one more underscore so it round-trips.
	if strings.HasPrefix(segment, "_") && strings.Contains(segment[1:], "_") {
		return "_" + segment
	}
	return segment
}
