package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/moodtape/audiogen/internal/config"
	"github.com/moodtape/audiogen/pkg/audiogen"
)

var (
	flagBaseURL string
	flagUser    string
)

var rootCmd = &cobra.Command{
	Use:   "moodtape",
	Short: "Generate personalized audio recaps",
	Long: `moodtape drives the audio recap generation backend.

Submit a day's incidents, wait while the recap is generated, and receive
either the finished artifact or a streaming playlist that plays while the
remaining segments are still being produced.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagBaseURL, "base-url", "", "generation backend base URL (overrides config)")
	rootCmd.PersistentFlags().StringVarP(&flagUser, "user", "u", "", "user ID the job belongs to")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if flagBaseURL != "" {
		cfg.API.BaseURL = flagBaseURL
	}
	return cfg, nil
}

func newClient(cfg *config.Config) *audiogen.Client {
	opts := []audiogen.Option{}
	if cfg.API.Timeout > 0 {
		opts = append(opts, audiogen.WithTimeout(time.Duration(cfg.API.Timeout)*time.Second))
	}
	if cfg.Artifact.Path != "" {
		opts = append(opts, audiogen.WithMaterializer(audiogen.NewFileMaterializer(cfg.Artifact.Path)))
	}
	return audiogen.NewClient(cfg.API.BaseURL, opts...)
}

// pollOptions translates the config's poll tuning into wait options.
func pollOptions(cfg *config.Config) []audiogen.WaitOption {
	b := &audiogen.Backoff{
		Initial:    time.Duration(cfg.Poll.InitialIntervalMs) * time.Millisecond,
		Multiplier: cfg.Poll.Multiplier,
		Ceiling:    time.Duration(cfg.Poll.CeilingMs) * time.Millisecond,
		Jitter:     cfg.Poll.Jitter,
	}
	return []audiogen.WaitOption{
		audiogen.WithBackoff(b),
		audiogen.WithMaxWait(time.Duration(cfg.Poll.MaxWaitMs) * time.Millisecond),
	}
}
