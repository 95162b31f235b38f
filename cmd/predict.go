package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"heartpredict/chart"
	"heartpredict/patient"
	"heartpredict/predictor"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(chart.Color))
	columnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#94A3B8"))
	alertStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F43F5E"))
	okStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#22C55E"))
)

type predictOutput struct {
	predictor.Result
	Outcome string         `json:"outcome"`
	Message string         `json:"message"`
	Input   patient.Record `json:"input"`
}

func newPredictCmd(a *app) *cobra.Command {
	var (
		asJSON bool
		input  string
		values = map[string]*string{}
	)

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict heart disease for one patient",
		Long: `Predict heart disease for one patient.

Every attribute has a flag named after its model column; omitted attributes
take their default. --input reads a JSON record instead (- for stdin).`,
		Example: `  heartpredict predict --age 63 --sex Male --cp "Asymptomatic" --oldpeak 2.3
  echo '{"age": 63, "thal": "Reversible Defect"}' | heartpredict predict --input - --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := recordFromFlags(cmd, input, values)
			if err != nil {
				return err
			}

			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			logger, closeLogger, err := a.logger(cfg)
			if err != nil {
				return err
			}
			defer closeLogger()

			adapter, err := openPredictor(cfg, logger)
			if err != nil {
				return err
			}
			result, err := adapter.Predict(cmd.Context(), rec)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(predictOutput{
					Result:  result,
					Outcome: result.Label.String(),
					Message: result.Label.Message(),
					Input:   rec,
				})
			}
			writeReport(out, rec, result)
			return nil
		},
	}

	for _, f := range patient.Fields() {
		values[f.Name] = cmd.Flags().String(f.Name, f.Default, flagUsage(f))
	}
	cmd.Flags().StringVar(&input, "input", "", "read the record from a JSON file (- for stdin)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}

func flagUsage(f patient.Field) string {
	if f.Kind == patient.KindSelect {
		return fmt.Sprintf("%s (%s)", f.Label, strings.Join(f.Options, ", "))
	}
	return fmt.Sprintf("%s (%v to %v, step %v)", f.Label, f.Min, f.Max, f.Step)
}

// recordFromFlags applies the flags the user set on top of either the JSON
// input or the defaults, then checks the result against every field domain.
func recordFromFlags(cmd *cobra.Command, input string, values map[string]*string) (patient.Record, error) {
	rec := patient.Default()
	if input != "" {
		var r io.Reader = cmd.InOrStdin()
		if input != "-" {
			f, err := os.Open(input)
			if err != nil {
				return rec, err
			}
			defer f.Close()
			r = f
		}
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&rec); err != nil {
			return rec, fmt.Errorf("decode record: %w", err)
		}
		if err := rec.Validate(); err != nil {
			return rec, err
		}
	}

	form := rec.Values()
	for name, v := range values {
		if cmd.Flags().Changed(name) {
			form.Set(name, *v)
		}
	}
	return patient.FromForm(form)
}

func writeReport(w io.Writer, rec patient.Record, result predictor.Result) {
	fmt.Fprintln(w, headingStyle.Render("User Input Parameters"))
	fields := patient.Fields()
	width := 0
	for _, f := range fields {
		width = max(width, lipgloss.Width(f.Label))
	}
	for i, cell := range rec.Cells() {
		fmt.Fprintf(w, "  %s  %s\n", columnStyle.Width(width).Render(fields[i].Label), cell.Value)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, headingStyle.Render("Prediction Result"))
	style := okStyle
	if result.Label == predictor.Disease {
		style = alertStyle
	}
	fmt.Fprintln(w, "  "+style.Render(result.Label.Message()))
	fmt.Fprintln(w)

	fmt.Fprintln(w, headingStyle.Render("Prediction Probability"))
	fmt.Fprintf(w, "  Probability of No Heart Disease: %.2f\n", result.Probabilities.NoDisease)
	fmt.Fprintf(w, "  Probability of Heart Disease: %.2f\n", result.Probabilities.Disease)
	fmt.Fprintln(w)

	fmt.Fprint(w, chart.FromResult(result).Terminal(60))
}
