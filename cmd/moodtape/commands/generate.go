package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/moodtape/audiogen/pkg/audiogen"
)

var (
	flagInputFile    string
	flagOutputFile   string
	flagMusic        []string
	flagWaitComplete bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Submit a recap request and wait for the artifact",
	Long: `Submit a recap request and wait for the artifact.

The request file is JSON with the day's incidents as parallel arrays:

  {
    "sentiment_label": ["joy", "calm"],
    "intensity": [7, 3],
    "speech_to_text": ["we won the game", "quiet evening"],
    "added_text": ["", "reading"],
    "summary": ["celebration at the park", "winding down"],
    "music_list": ["upbeat.mp3"]
  }

Short recaps come back inline and are written to the artifact path.
Longer recaps stream: the playlist URL is printed as soon as the first
segments are playable, and --wait keeps polling until the consolidated
download is ready.

Example:
  moodtape generate -f day.json -u user-123`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagInputFile == "" {
			return fmt.Errorf("input file is required, use -f flag")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if flagOutputFile != "" {
			cfg.Artifact.Path = flagOutputFile
		}

		data, err := os.ReadFile(flagInputFile)
		if err != nil {
			return fmt.Errorf("failed to read file %s: %w", flagInputFile, err)
		}
		var req audiogen.GenerateRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return fmt.Errorf("failed to parse request: %w", err)
		}
		if flagUser != "" {
			req.UserID = flagUser
		}
		if len(flagMusic) > 0 {
			req.MusicList = flagMusic
		}

		client := newClient(cfg)
		ctx := cmd.Context()

		opts := pollOptions(cfg)
		opts = append(opts, audiogen.WithNotify(printProgress))

		outcome, err := client.Generate(ctx, &req, opts...)
		if err != nil {
			return err
		}

		if !outcome.IsStreaming() {
			fmt.Printf("Recap ready: %s\n", outcome.ArtifactRef)
			for _, track := range outcome.MusicList {
				fmt.Printf("  background: %s\n", track)
			}
			return nil
		}

		handle := outcome.Streaming
		fmt.Printf("Recap streaming: %s\n", handle.PlaylistURL)

		if !flagWaitComplete {
			fmt.Println("Playback can start now; rerun with --wait for the download URL.")
			return nil
		}

		if _, err := handle.WaitForCompletion(ctx, pollOptions(cfg)...); err != nil {
			return err
		}
		url, err := handle.DownloadURL(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Download ready: %s\n", url)
		return nil
	},
}

func printProgress(s *audiogen.Snapshot) {
	if s.Streaming != nil {
		total := "?"
		if s.Streaming.SegmentsTotal != nil {
			total = fmt.Sprintf("%d", *s.Streaming.SegmentsTotal)
		}
		fmt.Printf("  %s: segment %d/%s\n", s.Status, s.Streaming.SegmentsCompleted, total)
		return
	}
	fmt.Printf("  %s\n", s.Status)
}

func init() {
	generateCmd.Flags().StringVarP(&flagInputFile, "file", "f", "", "request file (JSON)")
	generateCmd.Flags().StringVarP(&flagOutputFile, "output", "o", "", "artifact output path for inline delivery")
	generateCmd.Flags().StringSliceVar(&flagMusic, "music", nil, "background track names (overrides request file)")
	generateCmd.Flags().BoolVar(&flagWaitComplete, "wait", false, "wait for streamed jobs to finish and print the download URL")
	rootCmd.AddCommand(generateCmd)
}
