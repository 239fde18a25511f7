package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"meloconv/internal/config"
	"meloconv/internal/export"
	"meloconv/internal/journal"
	"meloconv/internal/logging"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var inputDir string
	var outputDir string
	var deviceFlag string
	var noJournal bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the acoustic model and vocoder checkpoints to ONNX",
		Long: "Export the acoustic model and vocoder checkpoints to ONNX.\n\n" +
			"Reads acoustic_model.pt and vocoder.pt from the input directory, writes\n" +
			"acoustic_model.onnx and vocoder.onnx to the output directory, and copies\n" +
			"lexicon.txt and phonemes.txt alongside them. Missing checkpoints and assets\n" +
			"are skipped with a warning.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			expandedInput, err := config.ExpandPath(inputDir)
			if err != nil {
				return fmt.Errorf("resolve input dir: %w", err)
			}
			expandedOutput, err := config.ExpandPath(outputDir)
			if err != nil {
				return fmt.Errorf("resolve output dir: %w", err)
			}

			logger, err := logging.New(logging.Options{
				Level:  cfg.Logging.Level,
				Format: cfg.Logging.Format,
				Writer: cmd.ErrOrStderr(),
			})
			if err != nil {
				return err
			}

			opts := export.Options{
				InputDir:  expandedInput,
				OutputDir: expandedOutput,
				Device:    deviceFlag,
				Config:    cfg,
				Logger:    logger,
			}

			if !noJournal {
				store, journalErr := journal.Open(cfg.Paths.JournalPath)
				if journalErr != nil {
					logger.Warn("journal unavailable", logging.Error(journalErr))
				} else {
					defer store.Close()
					opts.Journal = store
				}
			}

			result, runErr := export.Run(cmd.Context(), opts)
			if result != nil {
				renderExportSummary(cmd.OutOrStdout(), result)
			}
			if runErr != nil {
				return fmt.Errorf("export failed: %w", runErr)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&inputDir, "input_dir", "", "Directory containing the model checkpoints")
	cmd.Flags().StringVar(&outputDir, "output_dir", "", "Directory receiving the ONNX models")
	cmd.Flags().StringVar(&deviceFlag, "device", "", "Compute device: cpu, cuda, or auto (default from config)")
	cmd.Flags().BoolVar(&noJournal, "no-journal", false, "Skip recording this run in the journal")
	_ = cmd.MarkFlagRequired("input_dir")
	_ = cmd.MarkFlagRequired("output_dir")

	return cmd
}
