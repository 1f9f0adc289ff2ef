package cmd

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
)

var statsURL string

func init() {
	flags := StatsCmd.PersistentFlags()

	flags.StringVar(&statsURL, "url", "http://127.0.0.1:7362", "Base URL of the service's debug HTTP endpoint")
}

var StatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Fetch and print service counters",
	RunE: func(cmd *cobra.Command, args []string) error {
		httpClient := &http.Client{Timeout: 5 * time.Second}

		resp, err := httpClient.Get(statsURL + "/stats")
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("stats: service answered %s", resp.Status)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		fmt.Printf("version:    %s\n", gjson.GetBytes(body, "version").String())
		fmt.Printf("started:    %s\n", gjson.GetBytes(body, "started_at").String())
		fmt.Printf("uptime:     %ds\n", gjson.GetBytes(body, "uptime_seconds").Int())
		fmt.Printf("accepted:   %d\n", gjson.GetBytes(body, "transport.accepted").Int())
		fmt.Printf("active:     %d\n", gjson.GetBytes(body, "transport.active").Int())
		fmt.Printf("bytes in:   %d\n", gjson.GetBytes(body, "transport.bytes_in").Int())
		fmt.Printf("bytes out:  %d\n", gjson.GetBytes(body, "transport.bytes_out").Int())
		fmt.Printf("dropped:    %d\n", gjson.GetBytes(body, "transport.dropped").Int())

		return nil
	},
}
