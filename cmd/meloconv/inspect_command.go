package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"meloconv/internal/config"
	"meloconv/internal/onnx"
)

func newInspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <model.onnx>",
		Short: "Show the inputs, outputs and dynamic axes of an ONNX model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}

			model, err := onnx.ReadFile(path)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Graph: %s\n", model.Graph.Name)
			if model.ProducerName != "" {
				fmt.Fprintf(out, "Producer: %s %s\n", model.ProducerName, model.ProducerVersion)
			}
			for _, op := range model.Opsets {
				domain := op.Domain
				if domain == "" {
					domain = "ai.onnx"
				}
				fmt.Fprintf(out, "Opset: %s v%d\n", domain, op.Version)
			}

			rows := make([][]string, 0, len(model.Graph.Inputs)+len(model.Graph.Outputs))
			for _, vi := range model.Graph.Inputs {
				rows = append(rows, valueInfoRow("input", vi))
			}
			for _, vi := range model.Graph.Outputs {
				rows = append(rows, valueInfoRow("output", vi))
			}

			fmt.Fprintln(out, renderTable(
				[]string{"Kind", "Name", "Type", "Shape", "Dynamic axes"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
			))
			fmt.Fprintf(out, "Initializers: %d\n", len(model.Graph.Initializers))
			return nil
		},
	}
}

func valueInfoRow(kind string, vi onnx.ValueInfo) []string {
	dims := make([]string, len(vi.Dims))
	var dynamic []string
	for i, d := range vi.Dims {
		dims[i] = d.String()
		if d.IsDynamic() {
			dynamic = append(dynamic, fmt.Sprintf("%d=%s", i, d.Param))
		}
	}
	return []string{
		kind,
		vi.Name,
		vi.Type.String(),
		"(" + strings.Join(dims, ", ") + ")",
		strings.Join(dynamic, " "),
	}
}
