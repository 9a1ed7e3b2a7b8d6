package repotree

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toothbrush/wp2aem/assets"
	"github.com/toothbrush/wp2aem/wordpress"
)

var testLayout = Layout{ContentRoot: "/content/sky", DamRoot: "/content/dam", ExportID: "sky"}

func TestIsMediaBearing(t *testing.T) {
	assert.True(t, IsMediaBearing(`<p>Long essay.</p><img src="/wp-content/uploads/a.png">`, ""))
	assert.True(t, IsMediaBearing("just mentions wp-content in prose", "wp-content"))
	assert.False(t, IsMediaBearing(`<p>No media here.</p>`, ""))
	assert.False(t, IsMediaBearing(`<img src="https://cdn.example.com/a.png">`, "wp-content"))
	assert.True(t, IsMediaBearing(`<img src="https://cdn.example.com/a.png">`, "cdn.example.com"))
}

func TestBuilder_MediaFolder(t *testing.T) {
	b := Builder{Layout: testLayout}
	item := wordpress.ContentItem{Title: "Gallery: Summer!", Body: "..."}

	fetched := []assets.FetchedAsset{
		{SourceURL: "https://x/wp-content/a.png", LocalName: "a.png", MimeType: "image/png", Data: []byte("a")},
		{SourceURL: "https://dead/wp-content/b.png", LocalName: "b.png", FailureReason: "unresolvable host"},
		{SourceURL: "https://x/wp-content/c.pdf", LocalName: "c.pdf", MimeType: "application/pdf", Data: []byte("c")},
		{SourceURL: "https://y/wp-content/a.png", LocalName: "a.png", MimeType: "image/png", Data: []byte("a2")},
	}

	folder, err := b.MediaFolder(item, fetched)
	require.NoError(t, err)

	assert.Equal(t, "/content/dam/sky/Gallery-Summer", folder.Path)
	assert.Equal(t, FolderNode, folder.Type)
	assert.Equal(t, FolderType, folder.Properties[PrimaryType])
	assert.Equal(t, "Gallery: Summer!", folder.Title())

	require.Len(t, folder.Children, 2, "failed fetches produce no node, same-name assets collapse")
	assert.Equal(t, "/content/dam/sky/Gallery-Summer/a.png", folder.Children[0].Path)
	assert.Equal(t, []byte("a2"), folder.Children[0].Payload, "second writer wins")
	assert.Equal(t, "/content/dam/sky/Gallery-Summer/c.pdf", folder.Children[1].Path)
	assert.Equal(t, DamAssetNode, folder.Children[1].Type)
	assert.Equal(t, "application/pdf", folder.Children[1].Properties[MimeType])
	assert.Equal(t, "c.pdf", folder.Children[1].Name())
	assert.Equal(t, folder.Path, folder.Children[1].Parent())
}

func TestBuilder_Page(t *testing.T) {
	published := time.Date(2019, 3, 4, 10, 0, 0, 0, time.UTC)
	b := Builder{Layout: testLayout}
	item := wordpress.ContentItem{
		Title:       "Hello World!",
		Body:        "<p>Welcome to WordPress.</p>",
		Kind:        wordpress.PostKind,
		PublishedAt: &published,
	}

	page, err := b.Page(item)
	require.NoError(t, err)

	assert.Equal(t, "/content/sky/Hello-World", page.Path)
	assert.Equal(t, PageNode, page.Type)
	assert.Equal(t, PageType, page.Properties[PrimaryType])

	content := page.Content()
	require.NotNil(t, content)
	assert.Equal(t, "/content/sky/Hello-World/jcr:content", content.Path)
	assert.Equal(t, map[string]string{
		PrimaryType:  PageContentType,
		Title:        "Hello World!",
		Data:         "<p>Welcome to WordPress.</p>",
		LastModified: "2019-03-04T10:00:00Z",
		Description:  "Welcome to WordPress.",
	}, content.Properties)
}

func TestBuilder_UnusableTitle(t *testing.T) {
	b := Builder{Layout: testLayout}

	_, err := b.Page(wordpress.ContentItem{Title: "???", Body: "<p>x</p>"})
	assert.Error(t, err)

	_, err = b.MediaFolder(wordpress.ContentItem{Title: "!!!"}, nil)
	assert.Error(t, err)
}

func TestBuilder_CollidingTitlesShareAPath(t *testing.T) {
	b := Builder{Layout: testLayout}

	first, err := b.Page(wordpress.ContentItem{Title: "Hello World!", Body: "a"})
	require.NoError(t, err)
	second, err := b.Page(wordpress.ContentItem{Title: "Hello World?", Body: "b"})
	require.NoError(t, err)

	assert.Equal(t, first.Path, second.Path)
}

func TestNode_Walk(t *testing.T) {
	b := Builder{Layout: testLayout}
	page, err := b.Page(wordpress.ContentItem{Title: "Walk me", Body: "<p>x</p>"})
	require.NoError(t, err)

	var visited []string
	require.NoError(t, page.Walk(func(n *Node) error {
		visited = append(visited, n.Path)
		return nil
	}))
	assert.Equal(t, []string{"/content/sky/Walk-me", "/content/sky/Walk-me/jcr:content"}, visited)
}

func TestLayout(t *testing.T) {
	assert.NoError(t, testLayout.Validate())
	assert.Equal(t, "/content/dam/sky", testLayout.ExportDamRoot())
	assert.Equal(t, []string{"/content/sky", "/content/dam/sky"}, testLayout.Roots())

	assert.Error(t, Layout{ContentRoot: "/", DamRoot: "/content/dam", ExportID: "sky"}.Validate())
	assert.Error(t, Layout{ContentRoot: "/content/sky", DamRoot: "/content/dam", ExportID: "bad id!"}.Validate())
	assert.Error(t, Layout{ContentRoot: "/content/sky", DamRoot: "/content/dam"}.Validate())
}

func TestBuilder_RootFolders(t *testing.T) {
	b := Builder{Layout: testLayout}

	assert.Equal(t, "/content/sky", b.ContentFolder().Path)
	assert.Equal(t, FolderType, b.ContentFolder().Properties[PrimaryType])
	assert.Equal(t, "/content/dam/sky", b.ExportFolder().Path)
	assert.Equal(t, "sky", b.ExportFolder().Title())
}
