package coach

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/felixgeelhaar/cohort/internal/role"
	"gopkg.in/yaml.v3"
)

// TaskSpec is one task to run through the research, act, reflect sequence.
type TaskSpec struct {
	Task string `json:"task" yaml:"task"`
	Role string `json:"role" yaml:"role"`
}

// TaskFile is the structured batch input of a cohort run.
type TaskFile struct {
	Tasks  []TaskSpec `json:"tasks" yaml:"tasks"`
	Topics []string   `json:"topics" yaml:"topics"`
	Weeks  []int      `json:"weeks" yaml:"weeks"`
}

// ValidationResult represents the outcome of a linting pass.
type ValidationResult struct {
	Valid    bool
	Warnings []string
	Errors   []string
}

// Coach validates task files before they reach the orchestrator.
type Coach struct{}

func New() *Coach {
	return &Coach{}
}

// LoadSpec reads a task file (JSON or YAML).
func (c *Coach) LoadSpec(path string) (*TaskFile, error) {
	data, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		return nil, fmt.Errorf("failed to read task file: %w", err)
	}

	var spec TaskFile
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".json":
		if err := json.Unmarshal(data, &spec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal JSON task file: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &spec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal YAML task file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported task file format: %s (use .json or .yaml)", ext)
	}

	return &spec, nil
}

// Validate checks the TaskFile for completeness and quality.
func (c *Coach) Validate(spec TaskFile) ValidationResult {
	res := ValidationResult{
		Valid:    true,
		Warnings: []string{},
		Errors:   []string{},
	}
	fail := func(format string, args ...any) {
		res.Valid = false
		res.Errors = append(res.Errors, fmt.Sprintf(format, args...))
	}

	if len(spec.Tasks) == 0 && len(spec.Topics) == 0 && len(spec.Weeks) == 0 {
		fail("Task file is empty: add tasks, topics or weeks")
		return res
	}

	for i, t := range spec.Tasks {
		n := i + 1
		task := strings.TrimSpace(t.Task)
		if task == "" {
			fail("Task %d: task is required", n)
		} else if len(task) < 10 {
			res.Warnings = append(res.Warnings, fmt.Sprintf("Task %d is very short; consider adding more detail", n))
		}
		if _, err := role.Parse(t.Role); err != nil {
			fail("Task %d: %v", n, err)
		}
	}

	seen := make(map[string]bool)
	for i, topic := range spec.Topics {
		key := strings.ToLower(strings.TrimSpace(topic))
		if key == "" {
			fail("Topic %d is empty", i+1)
			continue
		}
		if seen[key] {
			res.Warnings = append(res.Warnings, fmt.Sprintf("Topic %q is listed twice", topic))
		}
		seen[key] = true
	}

	for _, w := range spec.Weeks {
		if w < 1 {
			fail("Week %d is invalid: weeks start at 1", w)
		}
	}

	return res
}

// LintPrompt checks a raw task prompt.
func (c *Coach) LintPrompt(prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return errors.New("prompt cannot be empty")
	}
	return nil
}
