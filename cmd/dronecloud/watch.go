package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/shivamb241195ee/drone-cloud-railway/internal/dashboard"
)

var (
	watchURL   string
	watchToken string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live terminal dashboard for the relay",
	Long:  "watch joins the relay as a viewer, renders telemetry, photos, and commands as they arrive, and broadcasts typed commands back.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			return fmt.Errorf("watch needs an interactive terminal; use `dronecloud send --wait` for scripted output")
		}

		url := watchURL
		if env := os.Getenv("RELAY_URL"); env != "" {
			url = env
		}
		token := watchToken
		if env := os.Getenv("AUTH_TOKEN"); env != "" {
			token = env
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		client, err := dashboard.Dial(ctx, url, token)
		cancel()
		if err != nil {
			return err
		}
		defer client.Close()

		return dashboard.Run(client, url)
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchURL, "url", "http://localhost:8000", "Relay base URL (env RELAY_URL overrides)")
	watchCmd.Flags().StringVar(&watchToken, "token", "change-this-secret", "Shared secret (env AUTH_TOKEN overrides)")
}
