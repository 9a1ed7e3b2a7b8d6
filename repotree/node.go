// Package repotree maps content items and their fetched media onto nodes of the target
// content repository.
package repotree

import (
	"fmt"
	"path"
	"strings"

	"github.com/toothbrush/wp2aem/naming"
)

type NodeType int8

const (
	FolderNode NodeType = iota
	PageNode
	PageContentNode
	DamAssetNode
)

func (t NodeType) String() string {
	switch t {
	case FolderNode:
		return "folder"
	case PageNode:
		return "page"
	case PageContentNode:
		return "page-content"
	case DamAssetNode:
		return "dam-asset"
	default:
		return fmt.Sprintf("NodeType(%d)", t)
	}
}

// Repository property names and primary types.
const (
	PrimaryType  = "jcr:primaryType"
	Title        = "jcr:title"
	Description  = "jcr:description"
	Data         = "jcr:data"
	MimeType     = "jcr:mimeType"
	LastModified = "cq:lastModified"
	SourceURL    = "wp:sourceUrl"

	FolderType      = "sling:Folder"
	PageType        = "cq:Page"
	PageContentType = "cq:PageContent"
	FileType        = "nt:file"

	ContentNodeName = "jcr:content"
)

// Node is one entry of the target tree.  Paths are repository-absolute.
type Node struct {
	Path       string
	Type       NodeType
	Properties map[string]string
	Children   []*Node

	// Payload holds the raw bytes of a DamAssetNode.
	Payload []byte
}

// Name is the node's own path segment.
func (n *Node) Name() string {
	return path.Base(n.Path)
}

// Parent is the path of the node's parent.
func (n *Node) Parent() string {
	return path.Dir(n.Path)
}

func (n *Node) Title() string {
	return n.Properties[Title]
}

// Content returns the nested jcr:content node of a page, if it has one.
func (n *Node) Content() *Node {
	for _, c := range n.Children {
		if c.Type == PageContentNode {
			return c
		}
	}
	return nil
}

// addChild appends c, replacing an existing child at the same path so siblings stay unique.
func (n *Node) addChild(c *Node) {
	for i, existing := range n.Children {
		if existing.Path == c.Path {
			n.Children[i] = c
			return
		}
	}
	n.Children = append(n.Children, c)
}

// Walk visits n and its descendants parents-first.
func (n *Node) Walk(fn func(*Node) error) error {
	if err := fn(n); err != nil {
		return err
	}
	for _, c := range n.Children {
		if err := c.Walk(fn); err != nil {
			return err
		}
	}
	return nil
}

// Status is the outcome of creating or writing one node.
type Status int8

const (
	Created Status = iota
	Skipped
	Failed
)

func (s Status) String() string {
	switch s {
	case Created:
		return "created"
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("Status(%d)", s)
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Layout fixes where things land in the repository.
type Layout struct {
	// ContentRoot holds migrated pages, e.g. /content/sky.
	ContentRoot string
	// DamRoot is the top of the DAM, normally /content/dam.
	DamRoot string
	// ExportID names this export's folder under DamRoot.
	ExportID string
}

// ExportDamRoot is the DAM folder all of this export's media folders live under.
func (l Layout) ExportDamRoot() string {
	return path.Join("/", l.DamRoot, l.ExportID)
}

func (l Layout) contentRoot() string {
	return path.Join("/", l.ContentRoot)
}

// DamFolderPath is /<dam-root>/<export-id>/<sanitized-title>.
func (l Layout) DamFolderPath(title string) (string, error) {
	leaf, err := leafName(title)
	if err != nil {
		return "", err
	}
	return path.Join(l.ExportDamRoot(), leaf), nil
}

// PagePath is /<content-root>/<sanitized-title>.
func (l Layout) PagePath(title string) (string, error) {
	leaf, err := leafName(title)
	if err != nil {
		return "", err
	}
	return path.Join(l.contentRoot(), leaf), nil
}

// Roots are the top-level repository paths this layout writes to.
func (l Layout) Roots() []string {
	return []string{l.contentRoot(), l.ExportDamRoot()}
}

func (l Layout) Validate() error {
	if strings.Trim(l.ContentRoot, "/") == "" {
		return fmt.Errorf("repotree: content root must not be empty")
	}
	if strings.Trim(l.DamRoot, "/") == "" {
		return fmt.Errorf("repotree: DAM root must not be empty")
	}
	if naming.Sanitize(l.ExportID) != l.ExportID || l.ExportID == "" {
		return fmt.Errorf("repotree: export id %q is not a valid path segment", l.ExportID)
	}
	return nil
}

func leafName(title string) (string, error) {
	leaf := naming.Sanitize(title)
	if leaf == "" {
		return "", fmt.Errorf("repotree: title %q has no usable characters", title)
	}
	return leaf, nil
}
