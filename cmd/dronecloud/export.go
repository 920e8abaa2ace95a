package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shivamb241195ee/drone-cloud-railway/internal/config"
	"github.com/shivamb241195ee/drone-cloud-railway/internal/store"
)

var (
	exportConfigPath string
	exportSchemaPath string
	exportLimit      int
	exportOutput     string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Dump stored telemetry as JSON lines",
	Long:  "export reads the relay's SQLite store and writes telemetry rows as JSON lines, oldest first, in the same format the log-file mirror appends.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(exportConfigPath, exportSchemaPath)
		if err != nil {
			return err
		}

		ctx := context.Background()
		st, err := store.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return err
		}
		defer st.Close()

		rows, err := st.Recent(ctx, exportLimit)
		if err != nil {
			return err
		}

		out := os.Stdout
		if exportOutput != "" {
			f, err := os.Create(exportOutput)
			if err != nil {
				return fmt.Errorf("create output: %w", err)
			}
			defer f.Close()
			out = f
		}

		enc := json.NewEncoder(out)
		for i := len(rows) - 1; i >= 0; i-- {
			if err := enc.Encode(rows[i]); err != nil {
				return fmt.Errorf("encode row: %w", err)
			}
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportConfigPath, "config", "config/dronecloud.yaml", "Path to YAML config")
	exportCmd.Flags().StringVar(&exportSchemaPath, "schema", "schemas/dronecloud.cue", "Path to CUE schema for config validation")
	exportCmd.Flags().IntVar(&exportLimit, "limit", store.DefaultRecentLimit, fmt.Sprintf("Number of newest rows to export (max %d)", store.MaxRecentLimit))
	exportCmd.Flags().StringVar(&exportOutput, "output", "", "Write to this file instead of stdout")
}
