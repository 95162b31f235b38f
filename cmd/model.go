package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"heartpredict/ml"
	"heartpredict/patient"
	"heartpredict/predictor"
)

func newModelCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model",
		Short: "Inspect model artifacts",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check [path]",
		Short: "Validate an artifact and run it on the default record",
		Long: `Validate a model artifact against its schema, load it, and run one
prediction on the default patient record. Defaults to model.path.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			path := cfg.Model.Path
			if len(args) == 1 {
				path = args[0]
			}

			adapter, err := predictor.Open(path, loadOptions(cfg), nil)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			model := adapter.Model()
			fmt.Fprintf(out, "artifact: %s\n", path)
			fmt.Fprintf(out, "type:     %T\n", model)
			fmt.Fprintf(out, "classes:  %v\n", model.Classes())
			if d, ok := model.(ml.Describer); ok {
				fmt.Fprintf(out, "columns:  %s\n", strings.Join(d.Columns(), ", "))
				if missing := missingColumns(d.Columns()); len(missing) > 0 {
					return fmt.Errorf("artifact expects columns the form does not collect: %s", strings.Join(missing, ", "))
				}
			}

			result, err := adapter.Predict(cmd.Context(), patient.Default())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "default:  %s (%.2f / %.2f)\n", result.Label, result.Probabilities.NoDisease, result.Probabilities.Disease)
			fmt.Fprintln(out, "ok")
			return nil
		},
	})
	return cmd
}

func missingColumns(columns []string) []string {
	var missing []string
	for _, c := range columns {
		if _, ok := patient.Lookup(c); !ok {
			missing = append(missing, c)
		}
	}
	return missing
}
