package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/luma/tiller/client"
	"github.com/luma/tiller/internal/env"
)

var (
	// Address of the service to send to
	sendAddr string

	// The prompt the service uses, so we know where responses end
	sendPrompt string

	// How long to wait for the response
	sendTimeout time.Duration
)

func init() {
	flags := SendCmd.PersistentFlags()

	flags.StringVarP(&sendAddr, "addr", "d", "127.0.0.1:7363", "The address of the tiller service")
	flags.StringVar(&sendPrompt, "prompt", "> ", "The prompt the service is configured with")
	flags.DurationVar(&sendTimeout, "timeout", 10*time.Second, "How long to wait for the response")
}

var SendCmd = &cobra.Command{
	Use:   "send <command> [args...]",
	Short: "Send one command line to a running tiller service",
	Long: `Send one command line to a running tiller service and print
the response.

Usage
	tiller send ping
	tiller send -d 10.0.0.5:7363 mode binary

`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()

		log, err := env.MakeLogger()
		if err != nil {
			return err
		}

		c := client.New(sendPrompt, log.Named("client"))

		if err := c.Connect(ctx, sendAddr); err != nil {
			return err
		}
		defer c.Disconnect()

		resp, err := c.Exec(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}

		if resp != "" {
			fmt.Println(resp)
		}

		return nil
	},
}
