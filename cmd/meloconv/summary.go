package main

import (
	"fmt"
	"io"
	"strconv"

	"meloconv/internal/export"
)

// renderExportSummary prints a per-model outcome table followed by any
// warnings collected during the run.
func renderExportSummary(out io.Writer, result *export.Result) {
	rows := [][]string{
		modelRow(result.Acoustic),
		modelRow(result.Vocoder),
	}
	for _, asset := range result.AssetsCopied {
		rows = append(rows, []string{asset, "copied", "", ""})
	}

	fmt.Fprintln(out, renderTable(
		[]string{"Artifact", "Status", "Output", "Initializers"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
	))
	fmt.Fprintf(out, "Device: %s\n", result.Device)

	for _, warning := range result.Warnings {
		fmt.Fprintf(out, "Warning: %s\n", warning)
	}
}

func modelRow(res export.ModelResult) []string {
	switch {
	case res.Err != nil:
		return []string{res.Name, "failed", "", ""}
	case res.Skipped:
		return []string{res.Name, "skipped", "", ""}
	default:
		return []string{res.Name, "exported", res.OutputPath, strconv.Itoa(res.Initializers)}
	}
}
