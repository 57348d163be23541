package guard

import (
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Policy defines the limits an orchestrator session and the content viewer
// must stay within.
type Policy struct {
	MaxIterations       int      `json:"max_iterations" yaml:"max_iterations"`
	MaxTaskLength       int      `json:"max_task_length" yaml:"max_task_length"`
	AllowedContentGlobs []string `json:"allowed_content_globs" yaml:"allowed_content_globs"`
	BlockDangerousPath  bool     `json:"block_dangerous_path" yaml:"block_dangerous_path"`
}

// DefaultPolicy provides safe defaults. MaxIterations caps the tasks one
// agent accepts over its whole life, so it is off unless configured.
var DefaultPolicy = Policy{
	MaxIterations:       0,
	MaxTaskLength:       4000,
	AllowedContentGlobs: []string{"**/*.md", "**/*.txt", "**/*.py", "**/*.go", "**/*.yaml"},
	BlockDangerousPath:  true,
}

// Violation represents a specific breach of policy.
type Violation struct {
	Rule    string
	Message string
	Fatal   bool
}

func (v *Violation) Error() string {
	return "guard: " + v.Rule + ": " + v.Message
}

// Guard enforces the policy.
type Guard struct {
	policy Policy
}

func New(p Policy) *Guard {
	return &Guard{policy: p}
}

// Policy returns the guard's current policy configuration.
func (g *Guard) Policy() Policy {
	return g.policy
}

// CheckBudget verifies that an agent about to act stays within limits.
// Zero limits are unlimited.
func (g *Guard) CheckBudget(iterations, taskLength int) *Violation {
	if g.policy.MaxIterations > 0 && iterations > g.policy.MaxIterations {
		return &Violation{Rule: "max_iterations", Message: "Iteration limit exceeded", Fatal: true}
	}
	if g.policy.MaxTaskLength > 0 && taskLength > g.policy.MaxTaskLength {
		return &Violation{Rule: "max_task_length", Message: "Task description too long", Fatal: true}
	}
	return nil
}

// CheckFile verifies that a content path matches one of the allowed globs.
func (g *Guard) CheckFile(p string) *Violation {
	for _, pattern := range g.policy.AllowedContentGlobs {
		match, err := doublestar.Match(pattern, p)
		if err == nil && match {
			return nil
		}
	}
	return &Violation{Rule: "allowed_content_globs", Message: "File access not allowed: " + p, Fatal: true}
}

// CheckDangerousPath rejects absolute paths and paths that climb out of the
// content root.
func (g *Guard) CheckDangerousPath(p string) *Violation {
	if !g.policy.BlockDangerousPath {
		return nil
	}

	if strings.ContainsRune(p, 0) {
		return &Violation{Rule: "dangerous_path", Message: "Path contains NUL byte", Fatal: true}
	}
	slashed := strings.ReplaceAll(p, "\\", "/")
	if path.IsAbs(slashed) || (len(slashed) > 1 && slashed[1] == ':') {
		return &Violation{Rule: "dangerous_path", Message: "Absolute path not allowed: " + p, Fatal: true}
	}
	for _, part := range strings.Split(slashed, "/") {
		if part == ".." {
			return &Violation{Rule: "dangerous_path", Message: "Path escapes content root: " + p, Fatal: true}
		}
	}
	return nil
}

// CheckPath runs the dangerous path check followed by the glob check.
func (g *Guard) CheckPath(p string) *Violation {
	if v := g.CheckDangerousPath(p); v != nil {
		return v
	}
	return g.CheckFile(p)
}
