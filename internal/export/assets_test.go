package export_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"meloconv/internal/export"
)

func TestRunWarnsOnDenormalizedLexicon(t *testing.T) {
	inputDir := t.TempDir()
	// "e" followed by a combining acute accent: NFD form of "é".
	if err := os.WriteFile(filepath.Join(inputDir, "lexicon.txt"), []byte("cafe\u0301 k a f e\n"), 0o644); err != nil {
		t.Fatalf("write lexicon: %v", err)
	}

	result, err := export.Run(context.Background(), export.Options{
		InputDir:  inputDir,
		OutputDir: filepath.Join(t.TempDir(), "out"),
		Load:      stubLoader(t),
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	var warned bool
	for _, w := range result.Warnings {
		if strings.Contains(w, "lexicon.txt:1") && strings.Contains(w, "NFC") {
			warned = true
		}
	}
	if !warned {
		t.Fatalf("expected NFC warning, got %v", result.Warnings)
	}
}

func TestRunWarnsOnMissingAssets(t *testing.T) {
	inputDir := t.TempDir()

	result, err := export.Run(context.Background(), export.Options{
		InputDir:  inputDir,
		OutputDir: filepath.Join(t.TempDir(), "out"),
		Load:      stubLoader(t),
	})
	if err != nil {
		t.Fatalf("missing assets must not fail the run: %v", err)
	}

	var lexicon, phonemes bool
	for _, w := range result.Warnings {
		if strings.Contains(w, "lexicon.txt") {
			lexicon = true
		}
		if strings.Contains(w, "phonemes.txt") {
			phonemes = true
		}
	}
	if !lexicon || !phonemes {
		t.Fatalf("expected warnings for both assets, got %v", result.Warnings)
	}
	if len(result.AssetsCopied) != 0 {
		t.Fatalf("no assets should be copied, got %v", result.AssetsCopied)
	}
}

func TestAssetCopyPreservesContent(t *testing.T) {
	inputDir := t.TempDir()
	content := "zh ni3 hao3\nen h eh l ow\n"
	if err := os.WriteFile(filepath.Join(inputDir, "lexicon.txt"), []byte(content), 0o644); err != nil {
		t.Fatalf("write lexicon: %v", err)
	}

	outputDir := filepath.Join(t.TempDir(), "out")
	if _, err := export.Run(context.Background(), export.Options{
		InputDir:  inputDir,
		OutputDir: outputDir,
		Load:      stubLoader(t),
	}); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(outputDir, "lexicon.txt"))
	if err != nil {
		t.Fatalf("read copied lexicon: %v", err)
	}
	if string(got) != content {
		t.Fatalf("copied content differs: %q", got)
	}
}
