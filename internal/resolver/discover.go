package resolver

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/leapconf/internal/scope"
	"github.com/leapstack-labs/leapconf/pkg/core"
	"github.com/leapstack-labs/leapconf/pkg/resource"
)

// languages maps resource file extensions to their language.
var languages = map[string]string{
	".sql": "sql",
	".py":  "python",
}

// RequestForFile builds the request for the resource file path of kind. root
// is the kind's root directory and package names the project. The file's
// frontmatter becomes the inline scope.
func RequestForFile(kind core.ResourceKind, pkg, root, path string) (Request, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Request{}, err
	}
	inline, err := scope.ReadInline(kind, path)
	if err != nil {
		return Request{}, err
	}

	rel, err := filepath.Rel(root, path)
	if err != nil {
		return Request{}, fmt.Errorf("%s is not under %s: %w", path, root, err)
	}
	rel = filepath.ToSlash(rel)
	dir := filepath.ToSlash(filepath.Dir(rel))
	if dir == "." {
		dir = ""
	}

	ext := filepath.Ext(path)
	name := inline.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), ext)
	}
	fqn := []any{pkg}
	if dir != "" {
		for _, seg := range strings.Split(dir, "/") {
			fqn = append(fqn, seg)
		}
	}
	fqn = append(fqn, name)

	raw := map[string]any{
		"name":               name,
		"resource_type":      string(kind),
		"package_name":       pkg,
		"path":               rel,
		"original_file_path": filepath.ToSlash(path),
		"unique_id":          fmt.Sprintf("%s.%s.%s", kind, pkg, name),
		"fqn":                fqn,
		"description":        inline.Description,
		"raw_code":           inline.Body,
		"language":           languages[ext],
		"checksum":           checksumRaw(resource.HashContents(content)),
	}
	if k, _ := core.ParseResourceKind(string(kind)); k == core.KindSeed {
		raw["checksum"] = checksumRaw(resource.PathHash(filepath.ToSlash(path)))
		raw["root_path"] = filepath.ToSlash(root)
		delete(raw, "language")
		delete(raw, "raw_code")
	}

	return Request{Kind: kind, Dir: dir, Inline: inline.Config, Resource: raw}, nil
}

// Discover walks root and builds a request for every resource file of kind in
// it, in lexical order. Seeds are CSV files; other kinds are SQL or Python.
func Discover(kind core.ResourceKind, pkg, root string) ([]Request, error) {
	seed := kind == core.KindSeed
	var reqs []Request
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if seed && ext != ".csv" {
			return nil
		}
		if _, ok := languages[ext]; !seed && !ok {
			return nil
		}
		req, err := RequestForFile(kind, pkg, root, path)
		if err != nil {
			return err
		}
		reqs = append(reqs, req)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discovering %s resources in %s: %w", kind, root, err)
	}
	return reqs, nil
}

func checksumRaw(h resource.FileHash) map[string]any {
	return map[string]any{"name": h.Name, "checksum": h.Checksum}
}
