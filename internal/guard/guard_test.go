package guard

import (
	"errors"
	"testing"
)

func TestGuard_CheckFile(t *testing.T) {
	g := New(Policy{
		AllowedContentGlobs: []string{"week*/**/*.md", "projects/*.py"},
	})

	t.Run("Allowed", func(t *testing.T) {
		if v := g.CheckFile("week1/tutorials/01-intro.md"); v != nil {
			t.Errorf("Unexpected violation: %v", v.Message)
		}
		if v := g.CheckFile("projects/chatbot.py"); v != nil {
			t.Errorf("Unexpected violation: %v", v.Message)
		}
	})

	t.Run("Blocked", func(t *testing.T) {
		if v := g.CheckFile("secrets/.env"); v == nil {
			t.Error("Expected violation for secrets/")
		}
		if v := g.CheckFile("/etc/passwd"); v == nil {
			t.Error("Expected violation for absolute path")
		}
	})
}

func TestGuard_CheckBudget(t *testing.T) {
	g := New(Policy{
		MaxIterations: 5,
		MaxTaskLength: 20,
	})

	t.Run("Within", func(t *testing.T) {
		if v := g.CheckBudget(3, 10); v != nil {
			t.Errorf("Unexpected violation: %v", v.Message)
		}
	})

	t.Run("Iteration Exceeded", func(t *testing.T) {
		v := g.CheckBudget(6, 10)
		if v == nil || v.Rule != "max_iterations" {
			t.Errorf("Expected iteration violation, got %v", v)
		}
	})

	t.Run("Task Too Long", func(t *testing.T) {
		v := g.CheckBudget(1, 21)
		if v == nil || v.Rule != "max_task_length" {
			t.Errorf("Expected task length violation, got %v", v)
		}
	})

	t.Run("Unlimited", func(t *testing.T) {
		if v := New(Policy{}).CheckBudget(1000, 100000); v != nil {
			t.Errorf("Unexpected violation: %v", v.Message)
		}
	})
}

func TestGuard_CheckDangerousPath(t *testing.T) {
	g := New(Policy{BlockDangerousPath: true})

	testCases := []struct {
		path    string
		blocked bool
	}{
		{"week1/tutorials/intro.md", false},
		{"notes..md", false},
		{"/etc/passwd", true},
		{"../outside.md", true},
		{"week1/../../outside.md", true},
		{"..\\windows\\win.ini", true},
		{"C:\\boot.ini", true},
		{"a\x00b", true},
	}

	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			v := g.CheckDangerousPath(tc.path)
			if (v != nil) != tc.blocked {
				t.Errorf("CheckDangerousPath(%q) blocked=%v, want %v", tc.path, v != nil, tc.blocked)
			}
		})
	}

	g2 := New(Policy{BlockDangerousPath: false})
	if v := g2.CheckDangerousPath("/any"); v != nil {
		t.Error("Expected no violation when disabled")
	}
}

func TestGuard_CheckPath(t *testing.T) {
	g := New(DefaultPolicy)
	if v := g.CheckPath("week2/tutorials/langgraph.md"); v != nil {
		t.Errorf("Unexpected violation: %v", v.Message)
	}
	if v := g.CheckPath("../week2/secret.md"); v == nil || v.Rule != "dangerous_path" {
		t.Errorf("Expected dangerous_path violation, got %v", v)
	}
	if v := g.CheckPath("app.exe"); v == nil || v.Rule != "allowed_content_globs" {
		t.Errorf("Expected glob violation, got %v", v)
	}
}

func TestViolation_Error(t *testing.T) {
	var err error = &Violation{Rule: "max_iterations", Message: "Iteration limit exceeded"}
	var v *Violation
	if !errors.As(err, &v) {
		t.Fatal("expected errors.As to find Violation")
	}
	if err.Error() != "guard: max_iterations: Iteration limit exceeded" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestDefaultPolicy_NoIterationCap(t *testing.T) {
	if v := New(DefaultPolicy).CheckBudget(100000, 10); v != nil {
		t.Errorf("default policy must not cap iterations: %v", v)
	}
}
