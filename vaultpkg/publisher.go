// Package vaultpkg builds an installable content package instead of talking to a live
// repository: node descriptors and asset files in a jcr_root tree, a filter manifest, and one zip
// archive around the lot.
package vaultpkg

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/toothbrush/wp2aem/internal/logging"
	"github.com/toothbrush/wp2aem/repotree"
)

const (
	DefaultGroup   = "wp2aem"
	DefaultVersion = "1.0.0"
)

type Options struct {
	// Output is the archive to write, e.g. sky.zip.
	Output string
	// WorkDir holds the temporary tree.  Empty means a fresh directory under the system temp dir.
	// It is removed once the archive is written.
	WorkDir string
	// AssetsDir, if set, is copied wholesale under <dam-root>/<export-id>/uploads.
	AssetsDir string

	Name    string
	Group   string
	Version string

	Layout repotree.Layout
}

// Publisher writes the tree to disk.  There is no repository to ask, so a folder or page counts as
// existing only if this run already wrote it.
type Publisher struct {
	Fs      afero.Fs
	Options Options
	Logger  *logrus.Logger

	base    string
	written map[string]struct{}
	roots   map[string]struct{}
}

func NewPublisher(fs afero.Fs, opts Options, logger *logrus.Logger) (*Publisher, error) {
	if opts.Output == "" {
		return nil, fmt.Errorf("vaultpkg: please provide an output archive with --out")
	}
	if opts.Name == "" {
		opts.Name = opts.Layout.ExportID
	}
	if opts.Name == "" {
		return nil, fmt.Errorf("vaultpkg: package name must not be empty")
	}
	if opts.Group == "" {
		opts.Group = DefaultGroup
	}
	if opts.Version == "" {
		opts.Version = DefaultVersion
	}
	if err := opts.Layout.Validate(); err != nil {
		return nil, fmt.Errorf("vaultpkg: bad layout: %w", err)
	}

	if opts.AssetsDir != "" {
		stat, err := fs.Stat(opts.AssetsDir)
		if err != nil {
			return nil, fmt.Errorf("vaultpkg: cannot stat assets dir '%s': %w", opts.AssetsDir, err)
		}
		if !stat.IsDir() {
			return nil, fmt.Errorf("vaultpkg: assets dir not a directory: '%s'", opts.AssetsDir)
		}
	}

	base := opts.WorkDir
	if base == "" {
		dir, err := afero.TempDir(fs, "", "wp2aem-package-")
		if err != nil {
			return nil, fmt.Errorf("vaultpkg: couldn't create work dir: %w", err)
		}
		base = dir
	} else {
		// Leftovers from an interrupted run would otherwise end up in the archive.
		for _, d := range []string{contentRootDir, metaInfDir} {
			if err := fs.RemoveAll(filepath.Join(base, d)); err != nil {
				return nil, fmt.Errorf("vaultpkg: couldn't clear %s: %w", d, err)
			}
		}
		if err := fs.MkdirAll(base, 0750); err != nil {
			return nil, fmt.Errorf("vaultpkg: couldn't create work dir %s: %w", base, err)
		}
	}

	// Both roots go into the archive even when every item was skipped.
	for _, d := range []string{contentRootDir, metaInfDir} {
		if err := fs.MkdirAll(filepath.Join(base, d), 0750); err != nil {
			return nil, fmt.Errorf("vaultpkg: couldn't create %s: %w", d, err)
		}
	}

	if within(base, opts.Output) {
		return nil, fmt.Errorf("vaultpkg: output %s must not be inside the work dir %s", opts.Output, base)
	}

	return &Publisher{
		Fs:      fs,
		Options: opts,
		Logger:  logging.OrDiscard(logger),
		base:    base,
		written: map[string]struct{}{},
		roots:   map[string]struct{}{},
	}, nil
}

// WorkDir is where the temporary tree lives until Finalize.
func (p *Publisher) WorkDir() string {
	return p.base
}

func (p *Publisher) EnsureFolder(_ context.Context, folder *repotree.Node) (repotree.Status, error) {
	return p.ensure(folder)
}

func (p *Publisher) EnsurePage(_ context.Context, page *repotree.Node) (repotree.Status, error) {
	return p.ensure(page)
}

// PutAsset writes the payload as a plain file, which the package manager imports as nt:file.
func (p *Publisher) PutAsset(_ context.Context, asset *repotree.Node) (repotree.Status, error) {
	log := p.Logger.WithField("path", asset.Path)

	dest := p.fsPath(asset.Path)
	if err := p.writeFile(dest, asset.Payload); err != nil {
		return p.failed(log, "asset write", err)
	}
	p.markWritten(asset.Path)

	log.WithField("bytes", len(asset.Payload)).Debug("Wrote asset")
	return repotree.Created, nil
}

// PutPageContent writes the page's jcr:content descriptor, replacing any earlier one.
func (p *Publisher) PutPageContent(_ context.Context, page *repotree.Node) (repotree.Status, error) {
	log := p.Logger.WithField("path", page.Path)

	content := page.Content()
	if content == nil {
		return p.failed(log, "page content", fmt.Errorf("vaultpkg: page %s has no %s node", page.Path, repotree.ContentNodeName))
	}

	if err := p.writeDescriptor(content); err != nil {
		return p.failed(log, "page content", err)
	}

	log.Debug("Wrote page content")
	return repotree.Created, nil
}

func (p *Publisher) ensure(n *repotree.Node) (repotree.Status, error) {
	log := p.Logger.WithField("path", n.Path)

	if _, ok := p.written[n.Path]; ok {
		log.Debug("Already written in this package")
		return repotree.Skipped, nil
	}

	if err := p.writeDescriptor(n); err != nil {
		return p.failed(log, n.Type.String()+" write", err)
	}

	log.Debugf("Wrote %s descriptor", n.Type)
	return repotree.Created, nil
}

func (p *Publisher) writeDescriptor(n *repotree.Node) error {
	doc, err := marshalDocView(n.Properties)
	if err != nil {
		return err
	}

	if err := p.writeFile(filepath.Join(p.fsPath(n.Path), descriptorName), doc); err != nil {
		return err
	}
	p.markWritten(n.Path)
	return nil
}

func (p *Publisher) writeFile(dest string, data []byte) error {
	if err := p.Fs.MkdirAll(filepath.Dir(dest), 0750); err != nil {
		return fmt.Errorf("vaultpkg: couldn't create directory %s: %w", filepath.Dir(dest), err)
	}
	if err := afero.WriteFile(p.Fs, dest, data, 0640); err != nil {
		return fmt.Errorf("vaultpkg: couldn't write file %s: %w", dest, err)
	}
	return nil
}

func (p *Publisher) markWritten(repoPath string) {
	p.written[repoPath] = struct{}{}
	for _, root := range p.Options.Layout.Roots() {
		if root == repoPath || strings.HasPrefix(repoPath, root+"/") {
			p.roots[root] = struct{}{}
		}
	}
}

// fsPath maps a repository path into the jcr_root tree.
func (p *Publisher) fsPath(repoPath string) string {
	segments := strings.Split(strings.Trim(path.Clean("/"+repoPath), "/"), "/")
	parts := []string{p.base, contentRootDir}
	for _, s := range segments {
		if s != "" {
			parts = append(parts, platformName(s))
		}
	}
	return filepath.Join(parts...)
}

func (p *Publisher) failed(log *logrus.Entry, op string, err error) (repotree.Status, error) {
	log.WithError(err).Warnf("Failed %s", op)
	return repotree.Failed, err
}

func within(dir, target string) bool {
	rel, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(target))
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(os.PathSeparator)))
}
