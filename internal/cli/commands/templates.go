package commands

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

//go:embed all:templates
var templateFS embed.FS

// Template files stored under these names are written as dotfiles.
var dotfiles = map[string]bool{"gitignore": true}

// resourceDirs are the project directories init reports separately.
var resourceDirs = []string{"models", "seeds", "snapshots"}

// scaffoldFile is one file of a project template. Path is slash-separated and
// relative to the project root.
type scaffoldFile struct {
	Path    string
	Content []byte
}

// templateFiles reads every file of the named project template.
func templateFiles(name string) ([]scaffoldFile, error) {
	sub, err := fs.Sub(templateFS, path.Join("templates", name))
	if err != nil {
		return nil, err
	}

	var files []scaffoldFile
	err = fs.WalkDir(sub, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		content, err := fs.ReadFile(sub, p)
		if err != nil {
			return err
		}
		if dotfiles[path.Base(p)] {
			p = path.Join(path.Dir(p), "."+path.Base(p))
		}
		files = append(files, scaffoldFile{Path: p, Content: content})
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) || (err == nil && len(files) == 0) {
		return nil, fmt.Errorf("unknown project template %q", name)
	}
	return files, err
}

// writeScaffold writes files under dir and returns the paths it skipped
// because they already existed. With force nothing is skipped.
func writeScaffold(dir string, files []scaffoldFile, force bool) (skipped map[string]bool, err error) {
	skipped = map[string]bool{}
	for _, f := range files {
		target := filepath.Join(dir, filepath.FromSlash(f.Path))
		if !force {
			if _, err := os.Stat(target); err == nil {
				skipped[f.Path] = true
				continue
			}
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
			return nil, err
		}
		if err := os.WriteFile(target, f.Content, 0o600); err != nil {
			return nil, err
		}
	}
	return skipped, nil
}

// groupTemplateFiles groups slash-separated paths by resource directory. Files
// outside every resource directory go to "config".
func groupTemplateFiles(paths []string) map[string][]string {
	groups := map[string][]string{}
	for _, p := range paths {
		group := "config"
		for _, dir := range resourceDirs {
			if strings.HasPrefix(p, dir+"/") {
				group = dir
				break
			}
		}
		groups[group] = append(groups[group], p)
	}
	return groups
}
