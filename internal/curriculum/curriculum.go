// Package curriculum describes the weekly course outline and serves the raw
// content files it points at.
package curriculum

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/felixgeelhaar/cohort/internal/guard"
	"gopkg.in/yaml.v3"
)

var (
	ErrNotFound  = errors.New("content not found")
	ErrForbidden = errors.New("content path not allowed")
)

// Item is a single tutorial or project entry.
type Item struct {
	Title string `json:"title" yaml:"title"`
	Path  string `json:"path" yaml:"path"`
}

// Week groups the tutorials and projects of one course week.
type Week struct {
	Key       string `json:"key" yaml:"key"`
	Title     string `json:"title" yaml:"title"`
	Tutorials []Item `json:"tutorials" yaml:"tutorials"`
	Projects  []Item `json:"projects" yaml:"projects"`
}

// Curriculum is the ordered list of weeks.
type Curriculum struct {
	Weeks []Week `json:"weeks" yaml:"weeks"`
}

// Default returns the built-in three week outline.
func Default() *Curriculum {
	return &Curriculum{Weeks: []Week{
		{
			Key:   "week1",
			Title: "🔧 Week 1: Advanced Python and the AI engineering toolbox",
			Tutorials: []Item{
				{Title: "Async programming fundamentals", Path: "week1/tutorials/01_async_basics.md"},
				{Title: "Data validation with Pydantic", Path: "week1/tutorials/04_pydantic_basics.md"},
				{Title: "FastAPI quickstart", Path: "week1/tutorials/05_fastapi_quickstart.md"},
				{Title: "Docker basics", Path: "week1/tutorials/07_docker_basics.md"},
			},
			Projects: []Item{
				{Title: "Book management API", Path: "week1/projects/project1_structured_api/README.md"},
			},
		},
		{
			Key:   "week2",
			Title: "🤖 Week 2: Controlling large model APIs",
			Tutorials: []Item{
				{Title: "DeepSeek API quickstart", Path: "week2/tutorials/01_openai_api_basics.md"},
				{Title: "Structured output in depth", Path: "week2/tutorials/02_structured_output.md"},
				{Title: "Function calling in depth", Path: "week2/tutorials/04_function_calling_intro.md"},
			},
			Projects: []Item{},
		},
		{
			Key:   "week3",
			Title: "🔌 Week 3: The MCP protocol",
			Tutorials: []Item{
				{Title: "Introduction to MCP", Path: "week3/tutorials/01_mcp_introduction.md"},
			},
			Projects: []Item{
				{Title: "MCP filesystem server", Path: "week3/projects/mcp_filesystem/mcp_server.py"},
			},
		},
	}}
}

// Load reads a curriculum outline from a YAML file.
func Load(path string) (*Curriculum, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading curriculum: %w", err)
	}
	var c Curriculum
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing curriculum: %w", err)
	}
	for i, w := range c.Weeks {
		if w.Key == "" {
			return nil, fmt.Errorf("curriculum week %d has no key", i+1)
		}
	}
	return &c, nil
}

// Week returns the week with the given key.
func (c *Curriculum) Week(key string) (Week, bool) {
	for _, w := range c.Weeks {
		if w.Key == key {
			return w, true
		}
	}
	return Week{}, false
}

// Items returns every tutorial and project path in outline order.
func (c *Curriculum) Items() []Item {
	var out []Item
	for _, w := range c.Weeks {
		out = append(out, w.Tutorials...)
		out = append(out, w.Projects...)
	}
	return out
}

// Library reads content files below a root directory.
type Library struct {
	root  string
	guard *guard.Guard
}

func NewLibrary(root string, g *guard.Guard) *Library {
	if g == nil {
		g = guard.New(guard.DefaultPolicy)
	}
	return &Library{root: root, guard: g}
}

// Root returns the content root directory.
func (l *Library) Root() string {
	return l.root
}

// Read returns the raw content of relPath. Symlinks are followed only while
// they stay inside the root and land on an allowed file.
func (l *Library) Read(relPath string) (string, error) {
	if v := l.guard.CheckPath(relPath); v != nil {
		return "", fmt.Errorf("%w: %v", ErrForbidden, v)
	}
	clean := filepath.FromSlash(relPath)
	if !filepath.IsLocal(clean) {
		return "", fmt.Errorf("%w: %s", ErrForbidden, relPath)
	}

	root, err := filepath.EvalSymlinks(l.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, relPath)
		}
		return "", fmt.Errorf("resolving content root: %w", err)
	}
	target, err := filepath.EvalSymlinks(filepath.Join(root, clean))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, relPath)
		}
		return "", fmt.Errorf("reading %s: %w", relPath, err)
	}
	rel, err := filepath.Rel(root, target)
	if err != nil || !filepath.IsLocal(rel) {
		return "", fmt.Errorf("%w: %s resolves outside the content root", ErrForbidden, relPath)
	}
	if v := l.guard.CheckFile(filepath.ToSlash(rel)); v != nil {
		return "", fmt.Errorf("%w: %v", ErrForbidden, v)
	}

	r, err := os.OpenRoot(root)
	if err != nil {
		return "", fmt.Errorf("opening content root: %w", err)
	}
	defer r.Close()

	data, err := r.ReadFile(rel)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, relPath)
		}
		return "", fmt.Errorf("reading %s: %w", relPath, err)
	}
	return string(data), nil
}
