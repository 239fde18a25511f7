package export_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofrs/flock"

	"meloconv/internal/checkpoint"
	"meloconv/internal/config"
	"meloconv/internal/export"
	"meloconv/internal/journal"
	"meloconv/internal/onnx"
)

func stubLoader(t *testing.T) checkpoint.Loader {
	t.Helper()
	return func(path string) (*checkpoint.Checkpoint, error) {
		return &checkpoint.Checkpoint{
			Path: path,
			Tensors: []checkpoint.Tensor{
				{Name: "dec.conv.weight", Type: onnx.Float, Dims: []int64{2, 2}, Raw: make([]byte, 16)},
				{Name: "enc.emb.weight", Type: onnx.Float, Dims: []int64{4}, Raw: make([]byte, 16)},
			},
		}, nil
	}
}

// writeInputDir creates a fake model directory. Checkpoint files only need to
// exist; the stub loader never reads them.
func writeInputDir(t *testing.T, files ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("checkpoint-bytes"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func TestRunExportsBothModelsAndAssets(t *testing.T) {
	inputDir := writeInputDir(t,
		export.AcousticCheckpoint, export.VocoderCheckpoint,
		"lexicon.txt", "phonemes.txt",
	)
	outputDir := filepath.Join(t.TempDir(), "out")

	result, err := export.Run(context.Background(), export.Options{
		InputDir:  inputDir,
		OutputDir: outputDir,
		Load:      stubLoader(t),
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if !result.Acoustic.Exported() || !result.Vocoder.Exported() {
		t.Fatalf("models not exported: %+v", result)
	}
	if len(result.AssetsCopied) != 2 {
		t.Fatalf("expected 2 assets copied, got %v", result.AssetsCopied)
	}

	for _, name := range []string{export.AcousticOutput, export.VocoderOutput, "lexicon.txt", "phonemes.txt"} {
		if _, err := os.Stat(filepath.Join(outputDir, name)); err != nil {
			t.Fatalf("expected output %s: %v", name, err)
		}
	}
}

func TestAcousticModelSignature(t *testing.T) {
	inputDir := writeInputDir(t, export.AcousticCheckpoint)
	outputDir := filepath.Join(t.TempDir(), "out")

	if _, err := export.Run(context.Background(), export.Options{
		InputDir:  inputDir,
		OutputDir: outputDir,
		Load:      stubLoader(t),
	}); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	model, err := onnx.ReadFile(filepath.Join(outputDir, export.AcousticOutput))
	if err != nil {
		t.Fatalf("read exported model: %v", err)
	}

	wantInputs := []string{"phone", "tone", "language", "g", "noise_scale", "noise_scale_w", "length_scale", "sdp_ratio"}
	if len(model.Graph.Inputs) != len(wantInputs) {
		t.Fatalf("expected %d inputs, got %d", len(wantInputs), len(model.Graph.Inputs))
	}
	for i, name := range wantInputs {
		if model.Graph.Inputs[i].Name != name {
			t.Fatalf("input %d: got %q want %q", i, model.Graph.Inputs[i].Name, name)
		}
	}

	for _, tc := range []struct {
		input string
		axis  int
		param string
	}{
		{"phone", 0, "phoneme_length"},
		{"tone", 0, "tone_length"},
		{"language", 0, "language_length"},
	} {
		vi, ok := model.Graph.Input(tc.input)
		if !ok {
			t.Fatalf("missing input %q", tc.input)
		}
		if got := vi.Dims[tc.axis].Param; got != tc.param {
			t.Fatalf("%s axis %d: got %q want %q", tc.input, tc.axis, got, tc.param)
		}
	}

	zp, ok := model.Graph.Output("z_p")
	if !ok {
		t.Fatal("missing z_p output")
	}
	if zp.Dims[1].Param != "output_length" {
		t.Fatalf("z_p axis 1: got %q", zp.Dims[1].Param)
	}

	g, _ := model.Graph.Input("g")
	if len(g.Dims) != 3 || g.Dims[1].Value != 256 {
		t.Fatalf("unexpected speaker embedding shape: %v", g.Dims)
	}

	if len(model.Opsets) == 0 || model.Opsets[0].Version != 13 {
		t.Fatalf("unexpected opsets: %v", model.Opsets)
	}
	if len(model.Graph.Initializers) != 2 {
		t.Fatalf("expected 2 initializers, got %d", len(model.Graph.Initializers))
	}

	var foundKnob bool
	for _, md := range model.Metadata {
		if md.Key == "default_noise_scale" && md.Value == "0.667" {
			foundKnob = true
		}
	}
	if !foundKnob {
		t.Fatalf("noise scale metadata missing: %v", model.Metadata)
	}
}

func TestVocoderModelSignature(t *testing.T) {
	inputDir := writeInputDir(t, export.VocoderCheckpoint)
	outputDir := filepath.Join(t.TempDir(), "out")

	if _, err := export.Run(context.Background(), export.Options{
		InputDir:  inputDir,
		OutputDir: outputDir,
		Load:      stubLoader(t),
	}); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	model, err := onnx.ReadFile(filepath.Join(outputDir, export.VocoderOutput))
	if err != nil {
		t.Fatalf("read exported model: %v", err)
	}

	mel, ok := model.Graph.Input("mel")
	if !ok {
		t.Fatal("missing mel input")
	}
	if len(mel.Dims) != 3 || mel.Dims[1].Value != 80 || mel.Dims[2].Param != "time_length" {
		t.Fatalf("unexpected mel shape: %v", mel.Dims)
	}

	audio, ok := model.Graph.Output("audio")
	if !ok {
		t.Fatal("missing audio output")
	}
	if audio.Dims[1].Param != "audio_length" {
		t.Fatalf("audio axis 1: got %q", audio.Dims[1].Param)
	}
}

func TestRunSkipsMissingVocoder(t *testing.T) {
	inputDir := writeInputDir(t, export.AcousticCheckpoint, "lexicon.txt")
	outputDir := filepath.Join(t.TempDir(), "out")

	result, err := export.Run(context.Background(), export.Options{
		InputDir:  inputDir,
		OutputDir: outputDir,
		Load:      stubLoader(t),
	})
	if err != nil {
		t.Fatalf("missing vocoder must not fail the run: %v", err)
	}

	if !result.Acoustic.Exported() {
		t.Fatal("acoustic model not exported")
	}
	if !result.Vocoder.Skipped {
		t.Fatal("vocoder not marked skipped")
	}
	if _, err := os.Stat(filepath.Join(outputDir, export.VocoderOutput)); err == nil {
		t.Fatal("vocoder output written despite missing checkpoint")
	}

	var warned bool
	for _, w := range result.Warnings {
		if strings.Contains(w, "vocoder") {
			warned = true
		}
	}
	if !warned {
		t.Fatalf("expected vocoder warning, got %v", result.Warnings)
	}
}

func TestRunFailsForMissingInputDir(t *testing.T) {
	_, err := export.Run(context.Background(), export.Options{
		InputDir:  filepath.Join(t.TempDir(), "absent"),
		OutputDir: filepath.Join(t.TempDir(), "out"),
		Load:      stubLoader(t),
	})
	if err == nil {
		t.Fatal("expected error for nonexistent input directory")
	}
}

func TestRunIsIdempotent(t *testing.T) {
	inputDir := writeInputDir(t, export.AcousticCheckpoint, export.VocoderCheckpoint)
	outputDir := filepath.Join(t.TempDir(), "out")
	opts := export.Options{
		InputDir:  inputDir,
		OutputDir: outputDir,
		Load:      stubLoader(t),
	}

	if _, err := export.Run(context.Background(), opts); err != nil {
		t.Fatalf("first run: %v", err)
	}
	first, err := os.ReadFile(filepath.Join(outputDir, export.AcousticOutput))
	if err != nil {
		t.Fatalf("read first output: %v", err)
	}

	if _, err := export.Run(context.Background(), opts); err != nil {
		t.Fatalf("second run: %v", err)
	}
	second, err := os.ReadFile(filepath.Join(outputDir, export.AcousticOutput))
	if err != nil {
		t.Fatalf("read second output: %v", err)
	}

	if !bytes.Equal(first, second) {
		t.Fatal("re-export produced different bytes")
	}
}

func TestRunContinuesToAssetsAfterLoadFailure(t *testing.T) {
	inputDir := writeInputDir(t, export.AcousticCheckpoint, "lexicon.txt", "phonemes.txt")
	outputDir := filepath.Join(t.TempDir(), "out")

	failing := func(path string) (*checkpoint.Checkpoint, error) {
		return nil, checkpoint.ErrNoTensors
	}

	result, err := export.Run(context.Background(), export.Options{
		InputDir:  inputDir,
		OutputDir: outputDir,
		Load:      failing,
	})
	if err == nil {
		t.Fatal("expected error from failing loader")
	}
	if result == nil {
		t.Fatal("expected result alongside error")
	}
	if len(result.AssetsCopied) != 2 {
		t.Fatalf("assets not copied after model failure: %v", result.AssetsCopied)
	}
}

func TestRunRefusesLockedOutputDir(t *testing.T) {
	inputDir := writeInputDir(t, export.AcousticCheckpoint)
	outputDir := t.TempDir()

	lock := flock.New(filepath.Join(outputDir, ".meloconv.lock"))
	locked, err := lock.TryLock()
	if err != nil || !locked {
		t.Fatalf("prepare lock: %v locked=%v", err, locked)
	}
	defer func() { _ = lock.Unlock() }()

	if _, err := export.Run(context.Background(), export.Options{
		InputDir:  inputDir,
		OutputDir: outputDir,
		Load:      stubLoader(t),
	}); err == nil {
		t.Fatal("expected error while output dir is locked")
	}
}

func TestRunRecordsJournalEntry(t *testing.T) {
	inputDir := writeInputDir(t, export.AcousticCheckpoint)
	outputDir := filepath.Join(t.TempDir(), "out")

	store, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer store.Close()

	if _, err := export.Run(context.Background(), export.Options{
		InputDir:  inputDir,
		OutputDir: outputDir,
		Config:    config.Default(),
		Load:      stubLoader(t),
		Journal:   store,
	}); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	runs, err := store.List(context.Background(), 5)
	if err != nil {
		t.Fatalf("list journal: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 journal run, got %d", len(runs))
	}
	got := runs[0]
	if !got.AcousticExported || got.VocoderExported {
		t.Fatalf("unexpected journal flags: %+v", got)
	}
	if got.Status != "partial" {
		t.Fatalf("expected partial status (vocoder skipped), got %q", got.Status)
	}
}
