package migrate

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/toothbrush/wp2aem/assets"
	"github.com/toothbrush/wp2aem/internal/logging"
	"github.com/toothbrush/wp2aem/repotree"
	"github.com/toothbrush/wp2aem/wordpress"
)

type Driver struct {
	Config    Config
	Publisher Publisher
	Fetcher   AssetFetcher
	Logger    *logrus.Logger

	builder   repotree.Builder
	extractor wordpress.Extractor

	// Root folders already ensured during this run.
	ensured map[string]bool
}

func NewDriver(cfg Config, publisher Publisher, fetcher AssetFetcher, logger *logrus.Logger) (*Driver, error) {
	if publisher == nil {
		return nil, fmt.Errorf("migrate: a publisher is required")
	}
	if fetcher == nil {
		return nil, fmt.Errorf("migrate: an asset fetcher is required")
	}
	if err := cfg.Layout.Validate(); err != nil {
		return nil, fmt.Errorf("migrate: bad layout: %w", err)
	}

	extractor, err := cfg.extractor()
	if err != nil {
		return nil, err
	}

	return &Driver{
		Config:    cfg,
		Publisher: publisher,
		Fetcher:   fetcher,
		Logger:    logging.OrDiscard(logger),
		builder:   cfg.builder(),
		extractor: extractor,
	}, nil
}

// RunFile parses the export at path and migrates it.  An unreadable document is the one failure
// that comes back as an error; look for *wordpress.MalformedExportError.
func (d *Driver) RunFile(ctx context.Context, path string) (*Summary, error) {
	export, err := wordpress.ParseFile(path)
	if err != nil {
		return nil, err
	}
	return d.Run(ctx, export)
}

// Run migrates every item in document order, then finalizes the publisher.  Per-item problems
// end up in the summary.  The error is only ever a cancelled context or a failed finalize.
func (d *Driver) Run(ctx context.Context, export *wordpress.Export) (*Summary, error) {
	d.ensured = map[string]bool{}
	summary := &Summary{}

	var progress *mpb.Progress
	var bar *mpb.Bar
	if d.Config.Progress != nil {
		progress = mpb.New(mpb.WithWidth(64), mpb.WithOutput(d.Config.Progress), mpb.WithAutoRefresh())
		bar = progress.AddBar(int64(export.Count()),
			mpb.PrependDecorators(
				decor.Name("Migrating:", decor.WC{C: decor.DindentRight | decor.DextraSpace}),
			),
			mpb.AppendDecorators(
				decor.CountersNoUnit("(%d/%d) "),
				decor.NewPercentage("%d"),
			),
		)
	}

	for it := export.Items(); it.Next(); {
		if err := ctx.Err(); err != nil {
			if bar != nil {
				bar.Abort(false)
				progress.Wait()
			}
			return summary, fmt.Errorf("migrate: run interrupted: %w", err)
		}

		result := d.migrate(ctx, export.BaseURL, it.Item())
		summary.add(result)
		d.logResult(result)

		if bar != nil {
			bar.Increment()
		}
	}
	if progress != nil {
		progress.Wait()
	}

	if err := d.Publisher.Finalize(ctx); err != nil {
		return summary, fmt.Errorf("migrate: couldn't finalize publisher: %w", err)
	}

	d.Logger.Infof("Migration finished: %s", summary)
	return summary, nil
}

func (d *Driver) migrate(ctx context.Context, baseURL string, item wordpress.ContentItem) MigrationResult {
	result := MigrationResult{ItemTitle: item.Title, Kind: item.Kind.String()}

	if reason := skipReason(item); reason != "" {
		result.Status = repotree.Skipped
		result.Detail = reason
		return result
	}

	if repotree.IsMediaBearing(item.Body, d.Config.marker()) {
		return d.migrateMedia(ctx, baseURL, item, result)
	}
	return d.migratePage(ctx, item, result)
}

// migrateMedia fetches every referenced asset and publishes the ones that arrived into the item's
// DAM folder.  The folder's status is the item's status; assets are tallied separately.
func (d *Driver) migrateMedia(ctx context.Context, baseURL string, item wordpress.ContentItem, result MigrationResult) MigrationResult {
	refs := d.extractor.Extract(item.Body)

	fetched := make([]assets.FetchedAsset, 0, len(refs))
	for _, ref := range refs {
		asset := d.Fetcher.Fetch(ctx, ref.Resolve(baseURL))
		if !asset.OK() {
			result.AssetFailures = append(result.AssetFailures, AssetFailure{URL: ref.RawURL, Reason: asset.FailureReason})
			continue
		}
		fetched = append(fetched, asset)
	}

	folder, err := d.builder.MediaFolder(item, fetched)
	if err != nil {
		result.Status = repotree.Failed
		result.Detail = err.Error()
		return result
	}
	result.DestinationPath = folder.Path

	var problems []string
	d.ensureRoot(ctx, d.builder.ExportFolder())

	status, err := d.Publisher.EnsureFolder(ctx, folder)
	result.Status = status
	if err != nil {
		problems = append(problems, err.Error())
	}

	for _, asset := range folder.Children {
		if _, err := d.Publisher.PutAsset(ctx, asset); err != nil {
			result.AssetFailures = append(result.AssetFailures, AssetFailure{
				URL:    asset.Properties[repotree.SourceURL],
				Reason: err.Error(),
			})
			continue
		}
		result.AssetsPublished++
	}

	if len(refs) == 0 {
		problems = append(problems, "no asset references found")
	}
	result.Detail = strings.Join(problems, "; ")
	return result
}

func (d *Driver) migratePage(ctx context.Context, item wordpress.ContentItem, result MigrationResult) MigrationResult {
	page, err := d.builder.Page(item)
	if err != nil {
		result.Status = repotree.Failed
		result.Detail = err.Error()
		return result
	}
	result.DestinationPath = page.Path

	var problems []string
	d.ensureRoot(ctx, d.builder.ContentFolder())

	status, err := d.Publisher.EnsurePage(ctx, page)
	result.Status = status
	if err != nil {
		problems = append(problems, err.Error())
	}

	if _, err := d.Publisher.PutPageContent(ctx, page); err != nil {
		result.Status = repotree.Failed
		problems = append(problems, err.Error())
	}

	result.Detail = strings.Join(problems, "; ")
	return result
}

// ensureRoot makes sure a top-level folder exists, once per run.  A failure is logged and tried
// again with the next item; the item itself may still land.
func (d *Driver) ensureRoot(ctx context.Context, folder *repotree.Node) {
	if d.ensured[folder.Path] {
		return
	}
	status, err := d.Publisher.EnsureFolder(ctx, folder)
	if err != nil {
		d.Logger.WithError(err).WithField("path", folder.Path).Warn("Couldn't ensure root folder")
		return
	}
	d.Logger.WithFields(logrus.Fields{"path": folder.Path, "status": status}).Debug("Root folder ready")
	d.ensured[folder.Path] = true
}

func (d *Driver) logResult(r MigrationResult) {
	log := d.Logger.WithFields(logrus.Fields{
		"title":  r.ItemTitle,
		"path":   r.DestinationPath,
		"status": r.Status,
	})
	for _, f := range r.AssetFailures {
		log.WithField("url", f.URL).Debugf("Asset not migrated: %s", f.Reason)
	}

	switch r.Status {
	case repotree.Failed:
		log.Warnf("Item failed: %s", r.Detail)
	case repotree.Skipped:
		if r.Detail != "" {
			log.Infof("Item skipped: %s", r.Detail)
		} else {
			log.Info("Item skipped")
		}
	default:
		log.Info("Item migrated")
	}
}

// skipReason says why an item will not be migrated at all, or "" if it will.
func skipReason(item wordpress.ContentItem) string {
	switch {
	case !item.HasTitle():
		return "no title"
	case !item.HasBody():
		return "no body"
	case !item.Kind.Migratable():
		return fmt.Sprintf("unsupported post type %q", item.PostType)
	}
	return ""
}
