package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/gofrs/flock"

	"meloconv/internal/checkpoint"
	"meloconv/internal/config"
	"meloconv/internal/device"
	"meloconv/internal/journal"
	"meloconv/internal/logging"
	"meloconv/internal/onnx"
	"meloconv/internal/preflight"
)

// Conventional file names under the input and output directories.
const (
	AcousticCheckpoint = "acoustic_model.pt"
	VocoderCheckpoint  = "vocoder.pt"
	AcousticOutput     = "acoustic_model.onnx"
	VocoderOutput      = "vocoder.onnx"

	lockFileName = ".meloconv.lock"
)

// Options configures one export run.
type Options struct {
	InputDir  string
	OutputDir string
	Device    string

	Config *config.Config
	Logger *slog.Logger

	// Load substitutes the checkpoint loader; nil means checkpoint.Load.
	Load checkpoint.Loader

	// Journal records the run when non-nil. Journal failures are logged,
	// never returned.
	Journal *journal.Store
}

// ModelResult is the outcome for one of the two sub-models.
type ModelResult struct {
	Name         string
	Skipped      bool
	OutputPath   string
	Initializers int
	Err          error
}

// Exported reports whether the model was converted and written.
func (r ModelResult) Exported() bool { return !r.Skipped && r.Err == nil }

// Result summarizes an export run.
type Result struct {
	Device       device.Device
	Acoustic     ModelResult
	Vocoder      ModelResult
	AssetsCopied []string
	Warnings     []string
	Duration     time.Duration
}

// Run executes the conversion pipeline. It returns the run summary together
// with the joined error of every failed step; a missing checkpoint or asset
// is a warning, not an error.
func Run(ctx context.Context, opts Options) (*Result, error) {
	started := time.Now()

	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	load := opts.Load
	if load == nil {
		load = checkpoint.Load
	}
	log := logging.NewComponentLogger(opts.Logger, "export")

	if res := preflight.CheckInputDir(opts.InputDir); !res.Passed {
		return nil, fmt.Errorf("preflight: %s", res.Detail)
	}
	if res := preflight.CheckOutputDir(opts.OutputDir); !res.Passed {
		return nil, fmt.Errorf("preflight: %s", res.Detail)
	}

	lock := flock.New(filepath.Join(opts.OutputDir, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire output lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("another export is already writing to %s", opts.OutputDir)
	}
	defer func() { _ = lock.Unlock() }()

	deviceName := opts.Device
	if deviceName == "" {
		deviceName = cfg.Export.Device
	}
	dev, err := device.Resolve(deviceName, opts.Logger)
	if err != nil {
		return nil, err
	}

	result := &Result{Device: dev}

	if res := preflight.CheckFreeSpace(opts.OutputDir, checkpointBytes(opts.InputDir)); !res.Passed {
		result.Warnings = append(result.Warnings, fmt.Sprintf("free space: %s", res.Detail))
		log.Warn("free space check failed, continuing", logging.String("detail", res.Detail))
	}

	log.Info("export started",
		logging.String("input_dir", opts.InputDir),
		logging.String("output_dir", opts.OutputDir),
		logging.String("device", dev.String()),
	)

	var errs []error

	result.Acoustic = exportModel(modelJob{
		name:           "acoustic model",
		checkpointPath: filepath.Join(opts.InputDir, AcousticCheckpoint),
		outputPath:     filepath.Join(opts.OutputDir, AcousticOutput),
		build: func(cp *checkpoint.Checkpoint) *onnx.Model {
			return buildAcousticModel(cp, cfg.Export)
		},
		load:   load,
		logger: logging.NewComponentLogger(opts.Logger, "acoustic"),
	})
	collectModel(result.Acoustic, &errs, &result.Warnings)

	result.Vocoder = exportModel(modelJob{
		name:           "vocoder",
		checkpointPath: filepath.Join(opts.InputDir, VocoderCheckpoint),
		outputPath:     filepath.Join(opts.OutputDir, VocoderOutput),
		build: func(cp *checkpoint.Checkpoint) *onnx.Model {
			return buildVocoderModel(cp, cfg.Export)
		},
		load:   load,
		logger: logging.NewComponentLogger(opts.Logger, "vocoder"),
	})
	collectModel(result.Vocoder, &errs, &result.Warnings)

	copied, assetWarnings, assetErr := copyAssets(opts.InputDir, opts.OutputDir, opts.Logger)
	result.AssetsCopied = copied
	result.Warnings = append(result.Warnings, assetWarnings...)
	if assetErr != nil {
		errs = append(errs, assetErr)
	}

	result.Duration = time.Since(started)
	runErr := errors.Join(errs...)

	recordRun(ctx, opts, result, started, runErr, log)

	if runErr != nil {
		log.Error("export finished with errors", logging.Error(runErr))
	} else {
		log.Info("export finished",
			logging.Bool("acoustic", result.Acoustic.Exported()),
			logging.Bool("vocoder", result.Vocoder.Exported()),
			logging.Int("assets", len(result.AssetsCopied)),
			logging.Any("duration", result.Duration.Round(time.Millisecond)),
		)
	}
	return result, runErr
}

type modelJob struct {
	name           string
	checkpointPath string
	outputPath     string
	build          func(*checkpoint.Checkpoint) *onnx.Model
	load           checkpoint.Loader
	logger         *slog.Logger
}

// exportModel converts a single checkpoint. A panic inside loading or
// serialization is recovered into an error so the orchestrator can finish
// the remaining steps; the stack is logged for diagnosis.
func exportModel(job modelJob) (result ModelResult) {
	result = ModelResult{Name: job.name}

	defer func() {
		if r := recover(); r != nil {
			job.logger.Error("panic during export",
				logging.Any("panic", r),
				logging.String("stack", string(debug.Stack())),
			)
			result.Err = fmt.Errorf("%s: panic during export: %v", job.name, r)
		}
	}()

	if _, err := os.Stat(job.checkpointPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			result.Skipped = true
			job.logger.Warn("checkpoint not found, skipping",
				logging.String("path", job.checkpointPath),
			)
			return result
		}
		result.Err = fmt.Errorf("%s: stat checkpoint: %w", job.name, err)
		return result
	}

	cp, err := job.load(job.checkpointPath)
	if err != nil {
		result.Err = fmt.Errorf("%s: %w", job.name, err)
		return result
	}

	model := job.build(cp)
	if err := onnx.WriteFile(job.outputPath, model); err != nil {
		result.Err = fmt.Errorf("%s: %w", job.name, err)
		return result
	}

	result.OutputPath = job.outputPath
	result.Initializers = len(model.Graph.Initializers)
	job.logger.Info("model exported",
		logging.String("output", job.outputPath),
		logging.Int("initializers", result.Initializers),
	)
	return result
}

func collectModel(res ModelResult, errs *[]error, warnings *[]string) {
	if res.Err != nil {
		*errs = append(*errs, res.Err)
	}
	if res.Skipped {
		*warnings = append(*warnings, fmt.Sprintf("%s checkpoint not found, skipped", res.Name))
	}
}

// checkpointBytes sums the sizes of the checkpoints present under inputDir,
// as a lower bound for the space the serialized models will need.
func checkpointBytes(inputDir string) int64 {
	var total int64
	for _, name := range []string{AcousticCheckpoint, VocoderCheckpoint} {
		if info, err := os.Stat(filepath.Join(inputDir, name)); err == nil {
			total += info.Size()
		}
	}
	return total
}

func recordRun(ctx context.Context, opts Options, result *Result, started time.Time, runErr error, log *slog.Logger) {
	if opts.Journal == nil {
		return
	}

	status := "ok"
	switch {
	case runErr != nil:
		status = "failed"
	case result.Acoustic.Skipped || result.Vocoder.Skipped || len(result.Warnings) > 0:
		status = "partial"
	}

	run := journal.Run{
		ID:               journal.NewRunID(),
		StartedAt:        started,
		FinishedAt:       started.Add(result.Duration),
		InputDir:         opts.InputDir,
		OutputDir:        opts.OutputDir,
		Device:           result.Device.String(),
		AcousticExported: result.Acoustic.Exported(),
		VocoderExported:  result.Vocoder.Exported(),
		AssetsCopied:     len(result.AssetsCopied),
		Status:           status,
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}

	if err := opts.Journal.Record(ctx, run); err != nil {
		log.Warn("journal record failed", logging.Error(err))
	}
}
