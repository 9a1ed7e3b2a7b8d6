package aem

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/google/go-querystring/query"
)

// folderEndpoint is <path>?cmd=mkdir, used both to probe and to create a folder.
func (a *API) folderEndpoint(folderPath string) (*url.URL, error) {
	ep, err := a.resolveEndpoint(folderPath)
	if err != nil {
		return nil, fmt.Errorf("aem: couldn't resolve folder endpoint: %w", err)
	}

	v, err := query.Values(mkdir)
	if err != nil {
		return nil, fmt.Errorf("aem: couldn't encode query params: %w", err)
	}
	ep.RawQuery = v.Encode()

	return ep, nil
}

// pageEndpoint is the rendered <path>.html of a page.
func (a *API) pageEndpoint(pagePath string) (*url.URL, error) {
	if path.Clean("/"+pagePath) == "/" {
		return nil, fmt.Errorf("aem: please provide a page path")
	}
	return a.resolveEndpoint(strings.TrimSuffix(pagePath, "/") + ".html")
}

// nodeEndpoint addresses <parent>/<name> directly, for uploads and content writes.
func (a *API) nodeEndpoint(parent, name string) (*url.URL, error) {
	if name == "" {
		return nil, fmt.Errorf("aem: please provide a node name under %s", parent)
	}
	return a.resolveEndpoint(path.Join(parent, name))
}

// Do a bit of error checking on endpoint format, and return it relative to the base URI.
func (a *API) resolveEndpoint(endpoint string) (*url.URL, error) {
	if !strings.HasPrefix(endpoint, "/") {
		return nil, fmt.Errorf("aem: repository path %q must be absolute", endpoint)
	}

	// Keep any context path the base URI carries, e.g. https://host/author.
	ref, err := url.Parse(strings.TrimSuffix(a.BaseURI.Path, "/") + endpoint)
	if err != nil {
		return nil, fmt.Errorf("aem: failed to parse endpoint ref: %w", err)
	}

	return a.BaseURI.ResolveReference(ref), nil
}
