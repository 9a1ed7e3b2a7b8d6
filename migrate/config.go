// Package migrate drives a WordPress export through classification, asset fetching, tree
// building and publishing, one item at a time.
package migrate

import (
	"context"
	"fmt"
	"io"

	"github.com/toothbrush/wp2aem/assets"
	"github.com/toothbrush/wp2aem/repotree"
	"github.com/toothbrush/wp2aem/wordpress"
)

const (
	StructuralExtraction = "structural"
	TextualExtraction    = "textual"
)

// Config is everything a run needs to know.  Nothing is read from the environment.
type Config struct {
	Layout repotree.Layout

	// AssetMarker is the substring that makes an item media-bearing.
	AssetMarker string
	// Extraction picks how asset references are found: "structural" (HTML parsing, the
	// default) or "textual" (scanning around the marker).
	Extraction    string
	SummaryLength int

	// Progress, when non-nil, receives a progress bar.
	Progress io.Writer
}

func (c Config) marker() string {
	if c.AssetMarker == "" {
		return wordpress.DefaultAssetMarker
	}
	return c.AssetMarker
}

func (c Config) extractor() (wordpress.Extractor, error) {
	switch c.Extraction {
	case "", StructuralExtraction:
		return wordpress.StructuralExtractor{}, nil
	case TextualExtraction:
		return wordpress.TextualExtractor{Marker: c.marker()}, nil
	default:
		return nil, fmt.Errorf("migrate: unknown extraction strategy %q, want %s or %s", c.Extraction, StructuralExtraction, TextualExtraction)
	}
}

func (c Config) builder() repotree.Builder {
	return repotree.Builder{Layout: c.Layout, SummaryLength: c.SummaryLength}
}

// Publisher is a destination for the tree: a live repository or a package on disk.  A returned
// error always comes with repotree.Failed and is recorded, never raised.
type Publisher interface {
	EnsureFolder(ctx context.Context, folder *repotree.Node) (repotree.Status, error)
	EnsurePage(ctx context.Context, page *repotree.Node) (repotree.Status, error)
	PutAsset(ctx context.Context, asset *repotree.Node) (repotree.Status, error)
	PutPageContent(ctx context.Context, page *repotree.Node) (repotree.Status, error)
	Finalize(ctx context.Context) error
}

// AssetFetcher never fails outright; problems come back as a FetchedAsset with a reason.
type AssetFetcher interface {
	Fetch(ctx context.Context, rawURL string) assets.FetchedAsset
}
