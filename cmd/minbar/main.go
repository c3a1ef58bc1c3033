package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/minbar-app/minbar/pkg/adapter"
	"github.com/minbar-app/minbar/pkg/config"
	"github.com/minbar-app/minbar/pkg/logging"
	"github.com/minbar-app/minbar/pkg/media"
)

var verboseFlag bool

func main() {
	rootCmd := &cobra.Command{
		Use:   "minbar",
		Short: "Lecture transcription and translation pipeline",
		Long: `Minbar takes a lecture video (YouTube URL or local file), a time window,
	and produces a transcript, a translation, and an optional article via
	chained AI-service calls. Results are stored locally and can be listed,
	edited, and deleted.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolVar(&verboseFlag, "verbose", false, "enable debug logging")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(articleCmd())
	rootCmd.AddCommand(infoCmd())
	rootCmd.AddCommand(limitsCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(editCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info [url]",
		Short: "Show title, duration, and thumbnail for a video URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url := args[0]
			if !media.ValidateURL(url) {
				return fmt.Errorf("invalid YouTube URL")
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			log := logging.New(verboseFlag)

			extractor := media.NewExtractor(cfg.CookiesFile, "", log)
			info, err := extractor.VideoInfo(cmd.Context(), url)
			if err != nil {
				return err
			}

			fmt.Printf("Title:     %s\n", info.Title)
			fmt.Printf("Duration:  %s (%ds)\n", formatSeconds(info.DurationSeconds), info.DurationSeconds)
			if info.ThumbnailURL != "" {
				fmt.Printf("Thumbnail: %s\n", info.ThumbnailURL)
			}
			return nil
		},
	}
}

func limitsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "limits",
		Short: "Show the acquisition limits",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			fmt.Printf("Max selection:  %d minutes\n", cfg.Limits.MaxWindowSeconds/60)
			fmt.Printf("Max file size:  %d MB\n", cfg.Limits.MaxFileSizeBytes/(1024*1024))
			fmt.Printf("File types:     %v\n", cfg.Limits.AllowedExtensions)
			return nil
		},
	}
}

// createGenerator builds the text-generation adapter selected by name.
func createGenerator(cfg *config.Config, name string) (adapter.TextGenerator, error) {
	switch name {
	case "google":
		return adapter.NewGoogleGenerator(cfg.GoogleAPIKey)
	case "anthropic":
		return adapter.NewAnthropicGenerator(cfg.AnthropicAPIKey)
	case "openai":
		return adapter.NewOpenAIGenerator(cfg.OpenAIAPIKey)
	default:
		return nil, fmt.Errorf("unknown adapter %q", name)
	}
}
