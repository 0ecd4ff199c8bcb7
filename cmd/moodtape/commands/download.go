package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var downloadCmd = &cobra.Command{
	Use:   "download <job_id>",
	Short: "Request a download URL for a finished streamed job",
	Long: `Request a download URL for a finished streamed job.

The URL is time-limited and minted fresh on every call.

Example:
  moodtape download 4f3a… -u user-123`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		client := newClient(cfg)
		handle, err := client.RequestDownload(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Println(handle.URL)
		fmt.Printf("expires in %ds (at %s)\n", handle.ExpiresIn, handle.ExpiresAt().Format("15:04:05"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(downloadCmd)
}
