package aem

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/toothbrush/wp2aem/internal/logging"
	"github.com/toothbrush/wp2aem/repotree"
)

// Publisher writes nodes straight into a running repository.  Folders and pages are probed
// before they're created, so re-running a migration is safe; assets and page content are
// overwritten every time.
type Publisher struct {
	API    *API
	Logger *logrus.Logger
}

func NewPublisher(api *API, logger *logrus.Logger) *Publisher {
	return &Publisher{
		API:    api,
		Logger: logging.OrDiscard(logger),
	}
}

func (p *Publisher) EnsureFolder(ctx context.Context, folder *repotree.Node) (repotree.Status, error) {
	log := p.Logger.WithField("path", folder.Path)

	exists, err := p.API.FolderExists(ctx, folder.Path)
	if err != nil {
		return p.failed(log, "folder probe", err)
	}
	if exists {
		log.Debug("Folder already exists")
		return repotree.Skipped, nil
	}

	err = p.API.CreateFolder(ctx, folder.Path, FolderDescriptor{
		PrimaryType: repotree.FolderType,
		Title:       folder.Title(),
	})
	if err != nil {
		return p.failed(log, "folder create", err)
	}

	log.Info("Created folder")
	return repotree.Created, nil
}

func (p *Publisher) EnsurePage(ctx context.Context, page *repotree.Node) (repotree.Status, error) {
	log := p.Logger.WithField("path", page.Path)

	exists, err := p.API.PageExists(ctx, page.Path)
	if err != nil {
		return p.failed(log, "page probe", err)
	}
	if exists {
		log.Debug("Page already exists")
		return repotree.Skipped, nil
	}

	err = p.API.CreatePage(ctx, page.Path, PageDescriptor{
		PrimaryType: repotree.PageType,
		Title:       page.Title(),
		Content: PageContentDescriptor{
			PrimaryType: repotree.PageContentType,
		},
	})
	if err != nil {
		return p.failed(log, "page create", err)
	}

	log.Info("Created page")
	return repotree.Created, nil
}

func (p *Publisher) PutAsset(ctx context.Context, asset *repotree.Node) (repotree.Status, error) {
	log := p.Logger.WithFields(logrus.Fields{
		"path": asset.Path,
		"url":  asset.Properties[repotree.SourceURL],
	})

	err := p.API.UploadAsset(ctx, asset.Parent(), asset.Name(), asset.Properties[repotree.MimeType], asset.Payload)
	if err != nil {
		return p.failed(log, "asset upload", err)
	}

	log.WithField("bytes", len(asset.Payload)).Info("Uploaded asset")
	return repotree.Created, nil
}

func (p *Publisher) PutPageContent(ctx context.Context, page *repotree.Node) (repotree.Status, error) {
	log := p.Logger.WithField("path", page.Path)

	content := page.Content()
	if content == nil {
		return p.failed(log, "page content", fmt.Errorf("aem: page %s has no %s node", page.Path, repotree.ContentNodeName))
	}

	err := p.API.WritePageContent(ctx, page.Path, PageContentDescriptor{
		PrimaryType:  repotree.PageContentType,
		Title:        content.Properties[repotree.Title],
		Description:  content.Properties[repotree.Description],
		LastModified: content.Properties[repotree.LastModified],
		Data:         content.Properties[repotree.Data],
	})
	if err != nil {
		return p.failed(log, "page content", err)
	}

	log.Info("Wrote page content")
	return repotree.Created, nil
}

// Finalize has nothing to do; every call above is already live.
func (p *Publisher) Finalize(context.Context) error {
	return nil
}

func (p *Publisher) failed(log *logrus.Entry, op string, err error) (repotree.Status, error) {
	log.WithError(err).Warnf("Failed %s", op)
	return repotree.Failed, err
}
