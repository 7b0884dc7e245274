package scope

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/leapconf/pkg/core"
	"github.com/leapstack-labs/leapconf/pkg/nodeconfig"
)

// Inline is the scope declared in a resource file's frontmatter.
type Inline struct {
	// Name and Description describe the resource rather than configure it.
	Name        string
	Description string
	// Config holds every other key. It is the most specific scope of the resource.
	Config map[string]any
	// Body is the file content after the frontmatter.
	Body    string
	HasYAML bool
}

// frontmatterPattern matches a leading /*--- ... ---*/ block.
var frontmatterPattern = regexp.MustCompile(`(?s)^\s*/\*---\s*\n(.*?)\s*---\*/`)

// ExtractInline extracts the frontmatter scope of a resource of kind from
// content. Content without frontmatter yields an empty scope. Keys must be
// declared config fields of the kind or carry a "+" prefix.
func ExtractInline(kind core.ResourceKind, content string) (*Inline, error) {
	result := &Inline{Config: map[string]any{}, Body: content}

	matches := frontmatterPattern.FindStringSubmatch(content)
	if len(matches) < 2 {
		return result, nil
	}
	result.HasYAML = true
	result.Body = strings.TrimSpace(frontmatterPattern.ReplaceAllString(content, ""))

	var doc map[string]any
	if err := yaml.Unmarshal([]byte(matches[1]), &doc); err != nil {
		return nil, &FrontmatterParseError{
			Line:    yamlErrorLine(err),
			Message: fmt.Sprintf("invalid YAML: %v", err),
		}
	}

	t := nodeconfig.ConfigFor(kind, false)
	for key, v := range doc {
		switch key {
		case "name":
			s, ok := v.(string)
			if !ok {
				return nil, &FrontmatterParseError{Message: fmt.Sprintf("name must be a string, got %T", v)}
			}
			result.Name = s
		case "description":
			s, ok := v.(string)
			if !ok {
				return nil, &FrontmatterParseError{Message: fmt.Sprintf("description must be a string, got %T", v)}
			}
			result.Description = s
		default:
			if !isConfigKey(t, key) {
				return nil, &UnknownFieldError{Field: key, Kind: t.Name}
			}
			result.Config[key] = v
		}
	}
	return result, nil
}

// ReadInline reads path and extracts its frontmatter scope. Errors carry the path.
func ReadInline(kind core.ResourceKind, path string) (*Inline, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	in, err := ExtractInline(kind, string(content))
	if err != nil {
		var pe *FrontmatterParseError
		var ue *UnknownFieldError
		switch {
		case errors.As(err, &pe):
			pe.File = path
		case errors.As(err, &ue):
			ue.File = path
		}
		return nil, err
	}
	return in, nil
}

var yamlLinePattern = regexp.MustCompile(`line (\d+)`)

// yamlErrorLine returns the frontmatter line a yaml error points at, offset
// by the opening delimiter, or 0.
func yamlErrorLine(err error) int {
	m := yamlLinePattern.FindStringSubmatch(err.Error())
	if m == nil {
		return 0
	}
	n, convErr := strconv.Atoi(m[1])
	if convErr != nil {
		return 0
	}
	return n + 1
}

// FrontmatterParseError is a frontmatter that is not a YAML mapping.
type FrontmatterParseError struct {
	File    string
	Line    int
	Message string
}

func (e *FrontmatterParseError) Error() string {
	if e.File != "" {
		if e.Line > 0 {
			return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Message)
		}
		return fmt.Sprintf("%s: %s", e.File, e.Message)
	}
	return e.Message
}

// UnknownFieldError is a frontmatter key that the resource's config does not declare.
type UnknownFieldError struct {
	File  string
	Field string
	Kind  string
}

func (e *UnknownFieldError) Error() string {
	msg := fmt.Sprintf("unknown field %q in %s frontmatter, prefix adapter-specific configs with \"+\"", e.Field, e.Kind)
	if e.File != "" {
		return fmt.Sprintf("%s: %s", e.File, msg)
	}
	return msg
}
