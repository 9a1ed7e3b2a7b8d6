package migrate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/toothbrush/wp2aem/assets"
	"github.com/toothbrush/wp2aem/repotree"
	"github.com/toothbrush/wp2aem/vaultpkg"
	"github.com/toothbrush/wp2aem/wordpress"
)

var testLayout = repotree.Layout{ContentRoot: "/content/sky", DamRoot: "/content/dam", ExportID: "sky"}

type call struct {
	Op   string
	Path string
}

// recordingPublisher remembers every call and fails the paths it's told to.
type recordingPublisher struct {
	calls     []call
	failPaths map[string]bool
	existing  map[string]bool
	finalized int
	finalErr  error
}

func (p *recordingPublisher) record(op string, n *repotree.Node) (repotree.Status, error) {
	p.calls = append(p.calls, call{Op: op, Path: n.Path})
	if p.failPaths[n.Path] {
		return repotree.Failed, fmt.Errorf("%s %s: 500 Internal Server Error", op, n.Path)
	}
	if strings.HasPrefix(op, "ensure") {
		if p.existing == nil {
			p.existing = map[string]bool{}
		}
		if p.existing[n.Path] {
			return repotree.Skipped, nil
		}
		p.existing[n.Path] = true
	}
	return repotree.Created, nil
}

func (p *recordingPublisher) EnsureFolder(_ context.Context, n *repotree.Node) (repotree.Status, error) {
	return p.record("ensureFolder", n)
}

func (p *recordingPublisher) EnsurePage(_ context.Context, n *repotree.Node) (repotree.Status, error) {
	return p.record("ensurePage", n)
}

func (p *recordingPublisher) PutAsset(_ context.Context, n *repotree.Node) (repotree.Status, error) {
	return p.record("putAsset", n)
}

func (p *recordingPublisher) PutPageContent(_ context.Context, n *repotree.Node) (repotree.Status, error) {
	return p.record("putPageContent", n)
}

func (p *recordingPublisher) Finalize(context.Context) error {
	p.finalized++
	return p.finalErr
}

func (p *recordingPublisher) ops(op string) []string {
	var paths []string
	for _, c := range p.calls {
		if c.Op == op {
			paths = append(paths, c.Path)
		}
	}
	return paths
}

// fakeFetcher serves bytes for known URLs and fails everything else like a dead host would.
type fakeFetcher struct {
	files   map[string][]byte
	fetched []string
}

func (f *fakeFetcher) Fetch(_ context.Context, rawURL string) assets.FetchedAsset {
	f.fetched = append(f.fetched, rawURL)
	a := assets.FetchedAsset{SourceURL: rawURL, LocalName: filepath.Base(rawURL)}
	data, ok := f.files[rawURL]
	if !ok {
		a.FailureReason = "unresolvable host"
		return a
	}
	a.Data = data
	a.MimeType = "image/png"
	return a
}

const exportHeader = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"
	xmlns:content="http://purl.org/rss/1.0/modules/content/"
	xmlns:wp="http://wordpress.org/export/1.2/">
<channel>
	<title>Sky</title>
	<wp:base_site_url>https://sky.example.com</wp:base_site_url>
`

func item(title, body, postType string) string {
	var b strings.Builder
	b.WriteString("\t<item>\n")
	if title != "" {
		fmt.Fprintf(&b, "\t\t<title>%s</title>\n", title)
	}
	if body != "" {
		fmt.Fprintf(&b, "\t\t<content:encoded><![CDATA[%s]]></content:encoded>\n", body)
	}
	fmt.Fprintf(&b, "\t\t<wp:post_type>%s</wp:post_type>\n", postType)
	b.WriteString("\t</item>\n")
	return b.String()
}

func parseExport(t *testing.T, items ...string) *wordpress.Export {
	t.Helper()
	doc := exportHeader + strings.Join(items, "") + "</channel>\n</rss>\n"
	export, err := wordpress.Parse(strings.NewReader(doc))
	require.NoError(t, err)
	return export
}

func newTestDriver(t *testing.T, pub Publisher, fetcher AssetFetcher) *Driver {
	t.Helper()
	d, err := NewDriver(Config{Layout: testLayout}, pub, fetcher, nil)
	require.NoError(t, err)
	return d
}

func TestDriver_MissingFieldsAreSkippedAndRunContinues(t *testing.T) {
	export := parseExport(t,
		item("Title only", "", "post"),
		item("", "<p>Body only</p>", "post"),
		item("Hello World", "<p>Welcome.</p>", "post"),
	)
	pub := &recordingPublisher{}
	d := newTestDriver(t, pub, &fakeFetcher{})

	summary, err := d.Run(context.Background(), export)
	require.NoError(t, err)

	require.Len(t, summary.Results, 3)
	assert.Equal(t, repotree.Skipped, summary.Results[0].Status)
	assert.Equal(t, "no body", summary.Results[0].Detail)
	assert.Equal(t, repotree.Skipped, summary.Results[1].Status)
	assert.Equal(t, "no title", summary.Results[1].Detail)
	assert.Equal(t, repotree.Created, summary.Results[2].Status)
	assert.Equal(t, "/content/sky/Hello-World", summary.Results[2].DestinationPath)

	// skipped items produce no nodes at all
	assert.Equal(t, []call{
		{"ensureFolder", "/content/sky"},
		{"ensurePage", "/content/sky/Hello-World"},
		{"putPageContent", "/content/sky/Hello-World"},
	}, pub.calls)
	assert.Equal(t, 1, pub.finalized)

	assert.Equal(t, 2, summary.Count(repotree.Skipped))
	assert.Equal(t, 1, summary.Count(repotree.Created))
}

func TestDriver_AssetFailuresAreIsolated(t *testing.T) {
	body := `<img src="https://sky.example.com/wp-content/uploads/one.png">` +
		`<img src="https://dead.invalid/wp-content/uploads/two.png">` +
		`<img src="/wp-content/uploads/three.png">`
	export := parseExport(t,
		item("Gallery", body, "post"),
		item("After", "<p>Still here.</p>", "page"),
	)

	fetcher := &fakeFetcher{files: map[string][]byte{
		"https://sky.example.com/wp-content/uploads/one.png":   []byte("1"),
		"https://sky.example.com/wp-content/uploads/three.png": []byte("3"),
	}}
	pub := &recordingPublisher{}
	d := newTestDriver(t, pub, fetcher)

	summary, err := d.Run(context.Background(), export)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"https://sky.example.com/wp-content/uploads/one.png",
		"https://dead.invalid/wp-content/uploads/two.png",
		"https://sky.example.com/wp-content/uploads/three.png",
	}, fetcher.fetched, "relative references resolve against the export's base URL")

	gallery := summary.Results[0]
	assert.Equal(t, repotree.Created, gallery.Status)
	assert.Equal(t, "/content/dam/sky/Gallery", gallery.DestinationPath)
	assert.Equal(t, 2, gallery.AssetsPublished)
	assert.Equal(t, []AssetFailure{{
		URL:    "https://dead.invalid/wp-content/uploads/two.png",
		Reason: "unresolvable host",
	}}, gallery.AssetFailures)

	assert.Equal(t, []string{
		"/content/dam/sky/Gallery/one.png",
		"/content/dam/sky/Gallery/three.png",
	}, pub.ops("putAsset"))
	assert.Equal(t, []string{"/content/dam/sky", "/content/dam/sky/Gallery", "/content/sky"}, pub.ops("ensureFolder"))

	assert.Equal(t, repotree.Created, summary.Results[1].Status)
	assert.Equal(t, 1, summary.AssetFailures())
	assert.Equal(t, 2, summary.AssetsPublished())
}

func TestDriver_ClassificationBoundary(t *testing.T) {
	long := strings.Repeat("<p>A long essay paragraph.</p>", 200)
	export := parseExport(t,
		item("Essay with one image", long+`<img src="https://sky.example.com/wp-content/uploads/a.png">`, "post"),
		item("Essay without", long, "post"),
	)
	pub := &recordingPublisher{}
	d := newTestDriver(t, pub, &fakeFetcher{files: map[string][]byte{
		"https://sky.example.com/wp-content/uploads/a.png": []byte("a"),
	}})

	summary, err := d.Run(context.Background(), export)
	require.NoError(t, err)

	assert.Equal(t, "/content/dam/sky/Essay-with-one-image", summary.Results[0].DestinationPath)
	assert.Equal(t, "/content/sky/Essay-without", summary.Results[1].DestinationPath)
	assert.Equal(t, []string{"/content/sky/Essay-without"}, pub.ops("ensurePage"))
}

func TestDriver_OtherKindsAreFilteredOut(t *testing.T) {
	export := parseExport(t,
		item("logo", "<p>attachment</p>", "attachment"),
		item("Menu", "<p>nav</p>", "nav_menu_item"),
	)
	pub := &recordingPublisher{}
	d := newTestDriver(t, pub, &fakeFetcher{})

	summary, err := d.Run(context.Background(), export)
	require.NoError(t, err)

	require.Len(t, summary.Results, 2)
	assert.Equal(t, repotree.Skipped, summary.Results[0].Status)
	assert.Equal(t, `unsupported post type "attachment"`, summary.Results[0].Detail)
	assert.Equal(t, "other", summary.Results[0].Kind)
	assert.Empty(t, pub.calls)
}

func TestDriver_PublishFailuresDontStopTheRun(t *testing.T) {
	export := parseExport(t,
		item("Gallery", `<img src="https://sky.example.com/wp-content/uploads/a.png">`, "post"),
		item("Broken page", "<p>x</p>", "post"),
		item("Fine page", "<p>y</p>", "post"),
	)
	pub := &recordingPublisher{failPaths: map[string]bool{
		"/content/dam/sky/Gallery":  true,
		"/content/sky/Broken-page": true,
	}}
	d := newTestDriver(t, pub, &fakeFetcher{files: map[string][]byte{
		"https://sky.example.com/wp-content/uploads/a.png": []byte("a"),
	}})

	summary, err := d.Run(context.Background(), export)
	require.NoError(t, err)

	assert.Equal(t, repotree.Failed, summary.Results[0].Status)
	assert.Contains(t, summary.Results[0].Detail, "500 Internal Server Error")
	assert.Equal(t, []string{"/content/dam/sky/Gallery/a.png"}, pub.ops("putAsset"), "assets are still attempted")
	assert.Equal(t, 1, summary.Results[0].AssetsPublished)

	assert.Equal(t, repotree.Failed, summary.Results[1].Status)
	assert.Equal(t, repotree.Created, summary.Results[2].Status)
	assert.Equal(t, 1, pub.finalized)
}

func TestDriver_RerunSkipsExistingNodes(t *testing.T) {
	export := parseExport(t, item("Hello World", "<p>Welcome.</p>", "post"))
	pub := &recordingPublisher{}
	d := newTestDriver(t, pub, &fakeFetcher{})

	first, err := d.Run(context.Background(), export)
	require.NoError(t, err)
	second, err := d.Run(context.Background(), export)
	require.NoError(t, err)

	assert.Equal(t, repotree.Created, first.Results[0].Status)
	assert.Equal(t, repotree.Skipped, second.Results[0].Status)
	assert.Equal(t, first.Results[0].DestinationPath, second.Results[0].DestinationPath)
}

func TestDriver_FinalizeErrorIsReturned(t *testing.T) {
	export := parseExport(t, item("Hello", "<p>x</p>", "post"))
	pub := &recordingPublisher{finalErr: errors.New("disk full")}
	d := newTestDriver(t, pub, &fakeFetcher{})

	summary, err := d.Run(context.Background(), export)
	assert.ErrorContains(t, err, "disk full")
	require.NotNil(t, summary)
	assert.Len(t, summary.Results, 1)
}

func TestDriver_CancelledContext(t *testing.T) {
	export := parseExport(t, item("Hello", "<p>x</p>", "post"))
	pub := &recordingPublisher{}
	d := newTestDriver(t, pub, &fakeFetcher{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Run(ctx, export)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, pub.finalized)
}

func TestDriver_MalformedExportIsFatal(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.xml")
	require.NoError(t, os.WriteFile(bad, []byte("this is not an export"), 0644))

	pub := &recordingPublisher{}
	d := newTestDriver(t, pub, &fakeFetcher{})

	_, err := d.RunFile(context.Background(), bad)
	var malformed *wordpress.MalformedExportError
	assert.True(t, errors.As(err, &malformed))
	assert.Empty(t, pub.calls)
	assert.Zero(t, pub.finalized)
}

func TestDriver_ProgressBar(t *testing.T) {
	export := parseExport(t, item("Hello", "<p>x</p>", "post"), item("World", "<p>y</p>", "post"))
	var out bytes.Buffer
	d, err := NewDriver(Config{Layout: testLayout, Progress: &out}, &recordingPublisher{}, &fakeFetcher{}, nil)
	require.NoError(t, err)

	_, err = d.Run(context.Background(), export)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Migrating:")
}

func TestNewDriver_Validation(t *testing.T) {
	_, err := NewDriver(Config{Layout: testLayout}, nil, &fakeFetcher{}, nil)
	assert.Error(t, err)
	_, err = NewDriver(Config{Layout: testLayout}, &recordingPublisher{}, nil, nil)
	assert.Error(t, err)
	_, err = NewDriver(Config{}, &recordingPublisher{}, &fakeFetcher{}, nil)
	assert.Error(t, err)
	_, err = NewDriver(Config{Layout: testLayout, Extraction: "psychic"}, &recordingPublisher{}, &fakeFetcher{}, nil)
	assert.Error(t, err)
}

func TestDriver_TextualExtraction(t *testing.T) {
	export := parseExport(t, item("Gallery",
		`<div style="background: url(https://sky.example.com/wp-content/uploads/bg.png)"></div>`, "post"))
	fetcher := &fakeFetcher{files: map[string][]byte{"https://sky.example.com/wp-content/uploads/bg.png": []byte("bg")}}
	pub := &recordingPublisher{}

	d, err := NewDriver(Config{Layout: testLayout, Extraction: TextualExtraction}, pub, fetcher, nil)
	require.NoError(t, err)

	summary, err := d.Run(context.Background(), export)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.AssetsPublished())
	assert.Equal(t, []string{"/content/dam/sky/Gallery/bg.png"}, pub.ops("putAsset"))
}

func TestDriver_IntoPackage(t *testing.T) {
	fs := afero.NewMemMapFs()
	pub, err := vaultpkg.NewPublisher(fs, vaultpkg.Options{Output: "/out/sky.zip", WorkDir: "/work", Layout: testLayout}, nil)
	require.NoError(t, err)

	export := parseExport(t,
		item("Gallery", `<img src="https://sky.example.com/wp-content/uploads/a.png">`, "post"),
		item("Hello World", "<p>Welcome.</p>", "post"),
	)
	d := newTestDriver(t, pub, &fakeFetcher{files: map[string][]byte{
		"https://sky.example.com/wp-content/uploads/a.png": []byte("png"),
	}})

	summary, err := d.Run(context.Background(), export)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Count(repotree.Created))

	ok, err := afero.Exists(fs, "/out/sky.zip")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = afero.Exists(fs, "/work")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDriver_IntoPackageWithEverythingSkipped(t *testing.T) {
	fs := afero.NewMemMapFs()
	pub, err := vaultpkg.NewPublisher(fs, vaultpkg.Options{Output: "/out/sky.zip", WorkDir: "/work", Layout: testLayout}, nil)
	require.NoError(t, err)

	export := parseExport(t,
		item("", "<p>Body only</p>", "post"),
		item("logo.png", "<p>An upload.</p>", "attachment"),
	)
	d := newTestDriver(t, pub, &fakeFetcher{})

	summary, err := d.Run(context.Background(), export)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Count(repotree.Skipped))

	raw, err := afero.ReadFile(fs, "/out/sky.zip")
	require.NoError(t, err)
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	require.NoError(t, err)

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, []string{"META-INF/vault/filter.xml", "META-INF/vault/properties.xml"}, names)

	ok, err := afero.Exists(fs, "/work")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSummary_Report(t *testing.T) {
	export := parseExport(t,
		item("Gallery", `<img src="https://dead.invalid/wp-content/uploads/a.png">`, "post"),
		item("Hello World", "<p>Welcome.</p>", "post"),
		item("", "<p>anon</p>", "post"),
	)
	d := newTestDriver(t, &recordingPublisher{}, &fakeFetcher{})

	summary, err := d.Run(context.Background(), export)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, summary.WriteReport(&buf))

	var got map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, 2, got["created"])
	assert.Equal(t, 1, got["skipped"])
	assert.Equal(t, 0, got["failed"])
	assert.Equal(t, 1, got["asset_failures"])
	assert.Contains(t, buf.String(), "status: created")
	assert.Contains(t, buf.String(), "reason: unresolvable host")

	assert.Equal(t, "2 created, 1 skipped, 0 assets published, 1 asset failures", summary.String())
}

func TestPlan(t *testing.T) {
	export := parseExport(t,
		item("Gallery", `<img src="/wp-content/uploads/a.png">`, "post"),
		item("Hello World", "<p>Welcome.</p>", "page"),
		item("logo", "<p>x</p>", "attachment"),
		item("???", "<p>x</p>", "post"),
	)

	plan, err := Plan(Config{Layout: testLayout}, export)
	require.NoError(t, err)
	require.Len(t, plan, 4)

	assert.Equal(t, PlannedItem{
		Title:        "Gallery",
		Kind:         "post",
		MediaBearing: true,
		Path:         "/content/dam/sky/Gallery",
		Assets:       []string{"https://sky.example.com/wp-content/uploads/a.png"},
	}, plan[0])
	assert.Equal(t, "/content/sky/Hello-World", plan[1].Path)
	assert.False(t, plan[1].MediaBearing)
	assert.NotEmpty(t, plan[2].Skip)
	assert.NotEmpty(t, plan[3].Skip)
}
