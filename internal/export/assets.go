package export

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/text/unicode/norm"

	"meloconv/internal/fileutil"
	"meloconv/internal/logging"
)

// AssetFiles are the auxiliary text files copied next to the exported
// models. The inference runtime looks them up by these exact names.
var AssetFiles = []string{"lexicon.txt", "phonemes.txt"}

// copyAssets copies each asset that exists under inputDir into outputDir.
// Missing assets produce warnings; copy failures are collected as errors so
// the remaining assets still get copied.
func copyAssets(inputDir, outputDir string, logger *slog.Logger) (copied []string, warnings []string, err error) {
	log := logging.NewComponentLogger(logger, "assets")

	var errs []error
	for _, name := range AssetFiles {
		src := filepath.Join(inputDir, name)
		if _, statErr := os.Stat(src); statErr != nil {
			if errors.Is(statErr, os.ErrNotExist) {
				msg := fmt.Sprintf("asset not found: %s", src)
				warnings = append(warnings, msg)
				log.Warn("asset not found, skipping", logging.String("asset", name))
				continue
			}
			errs = append(errs, fmt.Errorf("stat asset %s: %w", src, statErr))
			continue
		}

		dst := filepath.Join(outputDir, name)
		size, copyErr := fileutil.CopyFileVerified(src, dst)
		if copyErr != nil {
			errs = append(errs, fmt.Errorf("copy asset %s: %w", name, copyErr))
			continue
		}

		for _, w := range normalizationWarnings(src) {
			warnings = append(warnings, w)
			log.Warn("asset line is not NFC-normalized", logging.String("detail", w))
		}

		copied = append(copied, name)
		log.Info("asset copied", logging.String("asset", name), logging.Int64("bytes", size))
	}
	return copied, warnings, errors.Join(errs...)
}

// normalizationWarnings flags lines that are not in NFC form. The runtime
// indexes lexicon and phoneme entries by exact byte-level match, so a
// decomposed entry would silently never be found.
func normalizationWarnings(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var warnings []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for line := 1; scanner.Scan(); line++ {
		if !norm.NFC.IsNormalString(scanner.Text()) {
			warnings = append(warnings, fmt.Sprintf("%s:%d not NFC-normalized", filepath.Base(path), line))
		}
	}
	return warnings
}
