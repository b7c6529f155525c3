package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/verdantiq/esg-cli/internal/model"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export <run-id>",
	Short: "Export a run's extracted metrics as CSV",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "export")
		}
		if run.Result == nil {
			return eris.Errorf("run %s has no result to export", run.ID)
		}

		out := os.Stdout
		if exportOutput != "" {
			f, err := os.Create(exportOutput)
			if err != nil {
				return eris.Wrapf(err, "create %s", exportOutput)
			}
			defer f.Close() //nolint:errcheck
			out = f
		}

		if err := writeMetricsCSV(out, run.Result.Metrics); err != nil {
			return err
		}

		if exportOutput != "" {
			zap.L().Info("metrics exported",
				zap.String("run_id", run.ID),
				zap.String("output", exportOutput),
				zap.Int("metrics", len(run.Result.Metrics)))
		}
		return nil
	},
}

func writeMetricsCSV(out io.Writer, metrics []model.Metric) error {
	w := csv.NewWriter(out)
	header := []string{"id", "name", "value", "unit", "category", "year", "scope", "confidence", "source_file"}
	if err := w.Write(header); err != nil {
		return eris.Wrap(err, "write csv header")
	}

	for _, m := range metrics {
		value := ""
		if m.HasValue() {
			value = strconv.FormatFloat(m.Val(), 'f', -1, 64)
		}
		year := ""
		if m.Year != 0 {
			year = strconv.Itoa(m.Year)
		}
		scope := ""
		if m.Scope != 0 {
			scope = strconv.Itoa(m.Scope)
		}
		record := []string{
			m.ID, m.Name, value, m.Unit, string(m.Category), year, scope,
			fmt.Sprintf("%.2f", m.Confidence), m.Provenance.SourceFile,
		}
		if err := w.Write(record); err != nil {
			return eris.Wrap(err, "write csv row")
		}
	}

	w.Flush()
	return eris.Wrap(w.Error(), "flush csv")
}

func init() {
	exportCmd.Flags().StringVar(&exportOutput, "output", "", "output file (default stdout)")
	rootCmd.AddCommand(exportCmd)
}
