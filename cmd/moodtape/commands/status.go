package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <job_id>",
	Short: "Query the status of a submitted job",
	Long: `Query the status of a submitted job.

Performs a single status request and prints the snapshot as JSON.

Example:
  moodtape status 4f3a… -u user-123`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		client := newClient(cfg)
		snap, err := client.Poll(cmd.Context(), args[0], flagUser)
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
