package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/shivamb241195ee/drone-cloud-railway/internal/dashboard"
)

var (
	sendURL   string
	sendToken string
	sendWait  time.Duration
)

var sendCmd = &cobra.Command{
	Use:   "send <message>",
	Short: "Broadcast one command through the relay",
	Long:  "send joins the relay, broadcasts a single text frame to every other member, and optionally stays on the line printing whatever arrives.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		url := sendURL
		if env := os.Getenv("RELAY_URL"); env != "" {
			url = env
		}
		token := sendToken
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

		if err := client.Send(args[0]); err != nil {
			return fmt.Errorf("send command: %w", err)
		}
		if sendWait <= 0 {
			return nil
		}

		if err := client.SetReadDeadline(time.Now().Add(sendWait)); err != nil {
			return err
		}
		for {
			ev, err := client.Next()
			if err != nil {
				var nerr net.Error
				if errors.As(err, &nerr) && nerr.Timeout() {
					return nil
				}
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return nil
				}
				return err
			}
			fmt.Println(ev.Line())
		}
	},
}

func init() {
	sendCmd.Flags().StringVar(&sendURL, "url", "http://localhost:8000", "Relay base URL (env RELAY_URL overrides)")
	sendCmd.Flags().StringVar(&sendToken, "token", "change-this-secret", "Shared secret (env AUTH_TOKEN overrides)")
	sendCmd.Flags().DurationVar(&sendWait, "wait", 0, "Stay connected and print relay traffic for this long after sending")
}
