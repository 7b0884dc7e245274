// Package scope reads the sources of config scopes: the project file, with
// per-kind sections and nested directory scopes, and inline frontmatter in
// resource files.
package scope

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/mitchellh/copystructure"

	"github.com/leapstack-labs/leapconf/pkg/core"
	"github.com/leapstack-labs/leapconf/pkg/nodeconfig"
)

// ProjectFileName is the name of the project file.
const ProjectFileName = "project.yaml"

// ProjectFileNameAlt is the alternate name of the project file.
const ProjectFileNameAlt = "project.yml"

// Project holds the scope tree of every kind section in a project file.
type Project struct {
	Name string
	Path string
	Vars map[string]any

	sections map[core.ResourceKind]*dirScope
}

// dirScope is the config declared at one directory level and its subdirectories.
type dirScope struct {
	config   map[string]any
	children map[string]*dirScope
}

// LoadProject loads a project file. path may name the file or the directory
// containing it.
func LoadProject(p string) (*Project, error) {
	if info, err := os.Stat(p); err == nil && info.IsDir() {
		found := findProjectFile(p)
		if found == "" {
			return nil, fmt.Errorf("no %s in %s", ProjectFileName, p)
		}
		p = found
	}

	k := koanf.New("/")
	if err := k.Load(file.Provider(p), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("loading project file %s: %w", p, err)
	}
	return parseProject(p, k.Raw())
}

// ParseProject builds a Project from an already decoded project document.
func ParseProject(doc map[string]any) (*Project, error) {
	return parseProject("", doc)
}

func parseProject(p string, doc map[string]any) (*Project, error) {
	proj := &Project{Path: p, sections: make(map[core.ResourceKind]*dirScope)}
	if name, ok := doc["name"].(string); ok {
		proj.Name = name
	}
	if vars, ok := doc["vars"].(map[string]any); ok {
		proj.Vars = vars
	}

	for key, v := range doc {
		kind, err := core.KindForSection(key)
		if err != nil {
			continue
		}
		if v == nil {
			continue
		}
		m, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("project section %q must be a mapping, got %T", key, v)
		}
		proj.sections[kind] = buildScope(nodeconfig.ConfigFor(kind, false), m)
	}
	return proj, nil
}

// buildScope splits one level into configs and subdirectories. A key is a config
// when it starts with "+" or names a declared field. Other keys holding a
// mapping or nothing are subdirectories; anything else is an undeclared config.
func buildScope(t *nodeconfig.RecordType, m map[string]any) *dirScope {
	s := &dirScope{config: map[string]any{}, children: map[string]*dirScope{}}
	for key, v := range m {
		if isConfigKey(t, key) {
			s.config[key] = v
			continue
		}
		switch sub := v.(type) {
		case map[string]any:
			s.children[key] = buildScope(t, sub)
		case nil:
			s.children[key] = buildScope(t, nil)
		default:
			s.config[key] = v
		}
	}
	return s
}

func isConfigKey(t *nodeconfig.RecordType, key string) bool {
	if strings.HasPrefix(key, "+") {
		return true
	}
	if _, ok := t.Fields.Lookup(key); ok {
		return true
	}
	_, ok := t.Fields.ByKey(key)
	return ok
}

// Sections returns the kinds that have a section in the project file.
func (p *Project) Sections() []core.ResourceKind {
	kinds := make([]core.ResourceKind, 0, len(p.sections))
	for k := range p.sections {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Chain returns the scopes that apply to a resource of kind in dir, ordered
// least to most specific: the section root first, then each directory level on
// the way down. dir is slash-separated and relative to the kind's root
// directory. Levels without config are skipped, and descent stops at the first
// directory with no scope. The returned maps are copies.
func (p *Project) Chain(kind core.ResourceKind, dir string) []map[string]any {
	if k, ok := core.ParseResourceKind(string(kind)); ok {
		kind = k
	}
	s, ok := p.sections[kind]
	if !ok {
		return nil
	}

	var chain []map[string]any
	add := func(s *dirScope) {
		if len(s.config) > 0 {
			chain = append(chain, copystructure.Must(copystructure.Copy(s.config)).(map[string]any))
		}
	}
	add(s)
	for _, seg := range splitDir(dir) {
		child, ok := s.children[seg]
		if !ok {
			break
		}
		s = child
		add(s)
	}
	return chain
}

func splitDir(dir string) []string {
	dir = path.Clean(filepath.ToSlash(dir))
	if dir == "." || dir == "/" {
		return nil
	}
	return strings.Split(strings.Trim(dir, "/"), "/")
}

// findProjectFile returns the project file in dir, or "" if there is none.
func findProjectFile(dir string) string {
	for _, name := range []string{ProjectFileName, ProjectFileNameAlt} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// FindProjectRoot walks up from startDir to the first directory containing a
// project file. It returns "" if there is none.
func FindProjectRoot(startDir string) string {
	dir := startDir
	for {
		if findProjectFile(dir) != "" {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
