package tasks

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
)

func runCleanDocs(_ context.Context, x *Executor) error {
	return x.removeAll(x.Paths.DocsBuildDir, x.Paths.DocsSourceDir)
}

func runCleanBuild(_ context.Context, x *Executor) error {
	root := x.Paths.Root
	if err := x.removeAll(
		filepath.Join(root, "build"),
		filepath.Join(root, "dist"),
		filepath.Join(root, ".eggs"),
	); err != nil {
		return err
	}
	return x.removeMatching(root, func(name string, isDir bool) bool {
		return strings.HasSuffix(name, ".egg-info") || !isDir && strings.HasSuffix(name, ".egg")
	})
}

func runCleanPython(_ context.Context, x *Executor) error {
	return x.removeMatching(x.Paths.Root, func(name string, isDir bool) bool {
		if isDir {
			return name == "__pycache__"
		}
		return strings.HasSuffix(name, ".pyc") || strings.HasSuffix(name, ".pyo") || strings.HasSuffix(name, "~")
	})
}

func runCleanTests(_ context.Context, x *Executor) error {
	p := x.Paths
	return x.removeAll(p.JUnitXMLFile, p.CoverageXMLFile, p.CoverageHTMLDir, p.BinDir, p.ToxDir)
}

// removeAll deletes each path; missing paths are fine
func (x *Executor) removeAll(paths ...string) error {
	for _, path := range paths {
		if x.DryRun {
			log.Printf("[TASKS]: would remove %s", path)
			continue
		}
		if err := os.RemoveAll(path); err != nil {
			return err
		}
	}
	return nil
}

// removeMatching deletes every entry below root whose base name matches.
// Matched directories are removed whole and not descended into.
func (x *Executor) removeMatching(root string, match func(name string, isDir bool) bool) error {
	var matched []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if path == root {
			return nil
		}
		if match(d.Name(), d.IsDir()) {
			matched = append(matched, path)
			if d.IsDir() {
				return filepath.SkipDir
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return x.removeAll(matched...)
}
