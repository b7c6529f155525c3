package main

import (
	"encoding/json"
	"mime"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/verdantiq/esg-cli/internal/extractor"
	"github.com/verdantiq/esg-cli/internal/model"
	"github.com/verdantiq/esg-cli/internal/monitoring"
)

var (
	extractMime string
	extractSave bool
)

var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "Extract ESG metrics from a single report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		path := args[0]

		content, err := os.ReadFile(path)
		if err != nil {
			return eris.Wrapf(err, "read %s", path)
		}

		mimeType := extractMime
		if mimeType == "" {
			mimeType = mime.TypeByExtension(filepath.Ext(path))
		}

		monitor := monitoring.NewMonitor(cfg.Monitoring)
		svc, err := extractor.NewService(cfg, monitor)
		if err != nil {
			return eris.Wrap(err, "init extractor")
		}

		fileName := filepath.Base(path)
		result := svc.Extract(ctx, content, fileName, mimeType)

		if extractSave {
			st, err := initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck

			run, err := st.CreateRun(ctx, model.Document{
				FileName: fileName,
				FileSize: int64(len(content)),
				MimeType: mimeType,
			})
			if err != nil {
				return eris.Wrap(err, "create run")
			}
			if err := st.UpdateRunResult(ctx, run.ID, result); err != nil {
				return eris.Wrap(err, "save result")
			}
			zap.L().Info("run saved", zap.String("run_id", run.ID))
		}

		zap.L().Info("extraction finished",
			zap.String("file", fileName),
			zap.Bool("success", result.Success),
			zap.Int("metrics", len(result.Metrics)),
			zap.Float64("confidence", result.OverallConfidence),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	extractCmd.Flags().StringVar(&extractMime, "mime", "", "override MIME type detection")
	extractCmd.Flags().BoolVar(&extractSave, "save", false, "persist the run and its result")
	rootCmd.AddCommand(extractCmd)
}
