package vaultpkg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"slices"

	"github.com/klauspost/compress/zip"
	"github.com/spf13/afero"
	"golang.org/x/exp/maps"
)

// Finalize copies the optional assets dir in, writes the manifests, zips jcr_root and META-INF
// relative to the work dir, and removes the work dir.  The work dir goes even when zipping fails.
func (p *Publisher) Finalize(ctx context.Context) (err error) {
	defer func() {
		if rmErr := p.Fs.RemoveAll(p.base); rmErr != nil {
			err = errors.Join(err, fmt.Errorf("vaultpkg: couldn't remove work dir %s: %w", p.base, rmErr))
		}
	}()

	if p.Options.AssetsDir != "" {
		if err := p.copyAssetsDir(ctx); err != nil {
			return err
		}
	}

	if err := p.writeManifests(); err != nil {
		return err
	}

	n, err := p.writeArchive(ctx)
	if err != nil {
		return err
	}

	p.Logger.WithField("files", n).Infof("Wrote package %s", p.Options.Output)
	return nil
}

// FilterRoots are the repository roots this package will import, sorted.  Before anything is
// written it falls back to the content root alone.
func (p *Publisher) FilterRoots() []string {
	roots := maps.Keys(p.roots)
	if len(roots) == 0 {
		roots = p.Options.Layout.Roots()[:1]
	}
	slices.Sort(roots)
	return roots
}

func (p *Publisher) writeManifests() error {
	filterDoc, err := marshalFilter(p.FilterRoots())
	if err != nil {
		return err
	}
	if err := p.writeFile(filepath.Join(p.base, filepath.FromSlash(filterFile)), filterDoc); err != nil {
		return err
	}

	description := fmt.Sprintf("WordPress export %s", p.Options.Layout.ExportID)
	propsDoc, err := marshalProperties(p.Options.Name, p.Options.Group, p.Options.Version, description)
	if err != nil {
		return err
	}
	return p.writeFile(filepath.Join(p.base, filepath.FromSlash(propertiesFile)), propsDoc)
}

// copyAssetsDir mirrors the uploads tree under the export's DAM folder, byte for byte.
func (p *Publisher) copyAssetsDir(ctx context.Context) error {
	destRepo := path.Join(p.Options.Layout.ExportDamRoot(), "uploads")
	dest := p.fsPath(destRepo)
	src := filepath.Clean(p.Options.AssetsDir)

	copied := 0
	err := afero.Walk(p.Fs, src, func(file string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(src, file)
		if err != nil {
			return err
		}
		data, err := afero.ReadFile(p.Fs, file)
		if err != nil {
			return err
		}
		copied++
		return p.writeFile(filepath.Join(dest, rel), data)
	})
	if err != nil {
		return fmt.Errorf("vaultpkg: couldn't copy assets dir %s: %w", src, err)
	}

	if copied > 0 {
		p.markWritten(destRepo)
	}
	p.Logger.WithField("files", copied).Infof("Copied assets dir %s", src)
	return nil
}

func (p *Publisher) writeArchive(ctx context.Context) (count int, err error) {
	if err := p.Fs.MkdirAll(filepath.Dir(p.Options.Output), 0750); err != nil {
		return 0, fmt.Errorf("vaultpkg: couldn't create directory for %s: %w", p.Options.Output, err)
	}

	out, err := p.Fs.Create(p.Options.Output)
	if err != nil {
		return 0, fmt.Errorf("vaultpkg: couldn't create archive %s: %w", p.Options.Output, err)
	}
	defer out.Close()
	// Output only exists once the archive is complete.
	defer func() {
		if err != nil {
			out.Close()
			if rmErr := p.Fs.Remove(p.Options.Output); rmErr != nil && !os.IsNotExist(rmErr) {
				err = errors.Join(err, fmt.Errorf("vaultpkg: couldn't remove partial archive %s: %w", p.Options.Output, rmErr))
			}
		}
	}()

	zw := zip.NewWriter(out)

	for _, root := range []string{contentRootDir, metaInfDir} {
		err := afero.Walk(p.Fs, filepath.Join(p.base, root), func(file string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if info.IsDir() {
				return nil
			}

			rel, err := filepath.Rel(p.base, file)
			if err != nil {
				return err
			}
			if err := p.addToArchive(zw, file, filepath.ToSlash(rel), info); err != nil {
				return err
			}
			count++
			return nil
		})
		if err != nil {
			zw.Close()
			return 0, fmt.Errorf("vaultpkg: couldn't archive %s: %w", root, err)
		}
	}

	if err := zw.Close(); err != nil {
		return 0, fmt.Errorf("vaultpkg: couldn't finish archive: %w", err)
	}
	if err := out.Close(); err != nil {
		return 0, fmt.Errorf("vaultpkg: couldn't close archive: %w", err)
	}

	return count, nil
}

func (p *Publisher) addToArchive(zw *zip.Writer, file, name string, info os.FileInfo) error {
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = name
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}

	f, err := p.Fs.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(w, f)
	return err
}
