package repotree

import (
	"path"
	"strings"
	"time"

	"github.com/toothbrush/wp2aem/assets"
	"github.com/toothbrush/wp2aem/wordpress"
)

const DefaultSummaryLength = 240

// IsMediaBearing is the classification rule: any occurrence of the asset marker sends an item
// down the DAM branch, whatever else the body holds.
func IsMediaBearing(body, marker string) bool {
	if marker == "" {
		marker = wordpress.DefaultAssetMarker
	}
	return strings.Contains(body, marker)
}

// Builder turns classified items into repository nodes.  It does not talk to the target; the
// publisher decides whether a node already exists.
type Builder struct {
	Layout        Layout
	SummaryLength int
}

// MediaFolder builds the DAM folder for a media-bearing item, with one asset child per
// successful fetch.  Failed fetches produce no node.
func (b Builder) MediaFolder(item wordpress.ContentItem, fetched []assets.FetchedAsset) (*Node, error) {
	folderPath, err := b.Layout.DamFolderPath(item.Title)
	if err != nil {
		return nil, err
	}

	folder := &Node{
		Path: folderPath,
		Type: FolderNode,
		Properties: map[string]string{
			PrimaryType: FolderType,
			Title:       item.Title,
		},
	}

	for _, a := range fetched {
		if !a.OK() {
			continue
		}
		folder.addChild(&Node{
			Path: path.Join(folderPath, a.LocalName),
			Type: DamAssetNode,
			Properties: map[string]string{
				PrimaryType: FileType,
				MimeType:    a.MimeType,
				SourceURL:   a.SourceURL,
			},
			Payload: a.Data,
		})
	}

	return folder, nil
}

// Page builds a cq:Page under the content root, with a jcr:content child carrying the title,
// body and description.
func (b Builder) Page(item wordpress.ContentItem) (*Node, error) {
	pagePath, err := b.Layout.PagePath(item.Title)
	if err != nil {
		return nil, err
	}

	content := map[string]string{
		PrimaryType: PageContentType,
		Title:       item.Title,
		Data:        item.Body,
	}
	if item.PublishedAt != nil {
		content[LastModified] = item.PublishedAt.UTC().Format(time.RFC3339)
	}

	limit := b.SummaryLength
	if limit == 0 {
		limit = DefaultSummaryLength
	}
	// the description is a nicety; a body that won't flatten still migrates.
	if summary, err := item.Summary(limit); err == nil && summary != "" {
		content[Description] = summary
	}

	page := &Node{
		Path: pagePath,
		Type: PageNode,
		Properties: map[string]string{
			PrimaryType: PageType,
			Title:       item.Title,
		},
	}
	page.addChild(&Node{
		Path:       path.Join(pagePath, ContentNodeName),
		Type:       PageContentNode,
		Properties: content,
	})

	return page, nil
}

// ContentFolder is the folder every page is created under.
func (b Builder) ContentFolder() *Node {
	return rootFolder(b.Layout.contentRoot())
}

// ExportFolder is the DAM folder holding this export's media folders.
func (b Builder) ExportFolder() *Node {
	return rootFolder(b.Layout.ExportDamRoot())
}

func rootFolder(p string) *Node {
	return &Node{
		Path: p,
		Type: FolderNode,
		Properties: map[string]string{
			PrimaryType: FolderType,
			Title:       path.Base(p),
		},
	}
}
