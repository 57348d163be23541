package e2e

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func buildCohort(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping e2e in short mode")
	}
	rootDir, _ := filepath.Abs("../../")
	binPath := filepath.Join(t.TempDir(), "cohort_e2e")

	buildCmd := exec.Command("go", "build", "-o", binPath, "github.com/felixgeelhaar/cohort/cmd/cohort")
	buildCmd.Dir = rootDir
	if out, err := buildCmd.CombinedOutput(); err != nil {
		t.Fatalf("Failed to build cohort: %v\n%s", err, out)
	}
	return binPath
}

func cohortEnv(home string) []string {
	env := []string{"HOME=" + home}
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, "HOME=") || strings.HasPrefix(kv, "COHORT_") {
			continue
		}
		env = append(env, kv)
	}
	return env
}

func TestE2E_RunTaskFile(t *testing.T) {
	binPath := buildCohort(t)
	tmpDir := t.TempDir()

	specPath := filepath.Join(tmpDir, "tasks.yaml")
	specContent := "tasks:\n  - task: design the onboarding flow\n    role: designer\n  - task: implement the onboarding API\n    role: engineer\nweeks: [1]\n"
	if err := os.WriteFile(specPath, []byte(specContent), 0600); err != nil {
		t.Fatal(err)
	}

	runCmd := exec.Command(binPath, "run", specPath)
	runCmd.Env = cohortEnv(tmpDir)
	output, err := runCmd.Output()
	outStr := string(output)
	t.Logf("Output:\n%s", outStr)
	if err != nil {
		t.Fatalf("cohort run failed: %v", err)
	}

	if !strings.Contains(outStr, "Orchestration report") || !strings.Contains(outStr, "Executions: 2") {
		t.Error("expected orchestration report with two executions")
	}
	if !strings.Contains(outStr, "week1") {
		t.Error("expected week1 pipeline line")
	}

	cohortDir := filepath.Join(tmpDir, ".cohort")
	if _, err := os.Stat(filepath.Join(cohortDir, "metadata.db")); os.IsNotExist(err) {
		t.Error("metadata.db not created")
	}
	if _, err := os.Stat(filepath.Join(cohortDir, "artifacts")); os.IsNotExist(err) {
		t.Error("artifacts dir not created")
	}
}

func TestE2E_InvalidTaskFile(t *testing.T) {
	binPath := buildCohort(t)
	tmpDir := t.TempDir()

	specPath := filepath.Join(tmpDir, "tasks.yaml")
	if err := os.WriteFile(specPath, []byte("tasks:\n  - task: mop\n    role: janitor\n"), 0600); err != nil {
		t.Fatal(err)
	}

	runCmd := exec.Command(binPath, "run", specPath)
	runCmd.Env = cohortEnv(tmpDir)
	if err := runCmd.Run(); err == nil {
		t.Fatal("expected non-zero exit for invalid task file")
	}
}
