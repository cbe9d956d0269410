package harness

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestWithEnvOverridesAndAppends(t *testing.T) {
	base := []string{"HOME=/root", "RUNPLAN_PLANNER_MIN_DATA_QUALITY=0.3", "PATH=/bin"}
	got := withEnv(base, map[string]string{
		"RUNPLAN_PLANNER_MIN_DATA_QUALITY": "1",
		"RUNPLAN_LOG_LEVEL":                "debug",
	})
	want := []string{"HOME=/root", "RUNPLAN_PLANNER_MIN_DATA_QUALITY=1", "PATH=/bin", "RUNPLAN_LOG_LEVEL=debug"}
	if !slices.Equal(got, want) {
		t.Fatalf("withEnv = %v, want %v", got, want)
	}
}

func TestCopyFixtureCopiesWorkspace(t *testing.T) {
	dst := CopyFixture(t, "workspace-min", t.TempDir())
	for _, rel := range []string{"profile.yml", filepath.Join("data", "feed.json")} {
		want, err := os.ReadFile(filepath.Join(RepoRoot(t), "integration", "fixtures", "workspace-min", rel))
		if err != nil {
			t.Fatalf("read fixture %s: %v", rel, err)
		}
		got, err := os.ReadFile(filepath.Join(dst, rel))
		if err != nil {
			t.Fatalf("read copy %s: %v", rel, err)
		}
		if string(got) != string(want) {
			t.Fatalf("%s differs after copy", rel)
		}
	}
}

func TestFindModuleRoot(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module x\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := findModuleRoot(nested)
	if err != nil || got != dir {
		t.Fatalf("findModuleRoot = %q, %v; want %q", got, err, dir)
	}
}
