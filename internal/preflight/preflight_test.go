package preflight_test

import (
	"os"
	"path/filepath"
	"testing"

	"meloconv/internal/preflight"
)

func TestCheckInputDir(t *testing.T) {
	dir := t.TempDir()

	if res := preflight.CheckInputDir(dir); !res.Passed {
		t.Fatalf("existing directory failed check: %+v", res)
	}

	if res := preflight.CheckInputDir(filepath.Join(dir, "absent")); res.Passed {
		t.Fatal("missing directory passed check")
	}

	file := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if res := preflight.CheckInputDir(file); res.Passed {
		t.Fatal("regular file passed directory check")
	}
}

func TestCheckOutputDirCreates(t *testing.T) {
	target := filepath.Join(t.TempDir(), "nested", "out")
	res := preflight.CheckOutputDir(target)
	if !res.Passed {
		t.Fatalf("output dir check failed: %+v", res)
	}
	info, err := os.Stat(target)
	if err != nil || !info.IsDir() {
		t.Fatalf("output directory not created: %v", err)
	}
}

func TestCheckFreeSpace(t *testing.T) {
	dir := t.TempDir()

	if res := preflight.CheckFreeSpace(dir, 1); !res.Passed {
		t.Fatalf("1 byte requirement failed: %+v", res)
	}

	// No filesystem has this much room.
	if res := preflight.CheckFreeSpace(dir, 1<<62); res.Passed {
		t.Fatal("absurd requirement passed")
	}
}
