// Package preflight provides the filesystem checks that run before an export:
// the input directory must exist, the output directory must be writable, and
// the output filesystem should have room for the serialized models.
package preflight

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// Result captures the outcome of a single check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// CheckInputDir verifies the input directory exists and is a directory.
func CheckInputDir(path string) Result {
	const name = "input directory"

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Result{Name: name, Detail: fmt.Sprintf("%s does not exist", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("stat %s: %v", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s is not a directory", path)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckOutputDir creates the output directory if needed and probes it for
// writability by creating and removing a marker file.
func CheckOutputDir(path string) Result {
	const name = "output directory"

	if err := os.MkdirAll(path, 0o755); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("create %s: %v", path, err)}
	}

	marker := filepath.Join(path, ".meloconv-write-check")
	if err := os.WriteFile(marker, nil, 0o644); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s is not writable: %v", path, err)}
	}
	_ = os.Remove(marker)
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckFreeSpace verifies the filesystem holding path has at least need
// bytes available. The caller decides whether a failure is fatal; the
// exporter treats it as a warning since checkpoint sizes only approximate
// the serialized output.
func CheckFreeSpace(path string, need int64) Result {
	const name = "free space"

	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("statfs %s: %v", path, err)}
	}

	avail := int64(stat.Bavail) * int64(stat.Bsize)
	if avail < need {
		return Result{Name: name, Detail: fmt.Sprintf("%d bytes available, %d required", avail, need)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d bytes available", avail)}
}
