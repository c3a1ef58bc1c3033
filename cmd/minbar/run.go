package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/minbar-app/minbar/pkg/adapter"
	"github.com/minbar-app/minbar/pkg/config"
	"github.com/minbar-app/minbar/pkg/logging"
	"github.com/minbar-app/minbar/pkg/media"
	"github.com/minbar-app/minbar/pkg/pipeline"
	"github.com/minbar-app/minbar/pkg/service"
	"github.com/minbar-app/minbar/pkg/store"
)

func runCmd() *cobra.Command {
	var (
		startSeconds int
		endSeconds   int
		filePath     string
		noTimestamps bool
		withArticle  bool
		showText     bool
	)

	cmd := &cobra.Command{
		Use:   "run [url]",
		Short: "Transcribe and translate a selection of a lecture",
		Long: `Run the full pipeline on a time window of a YouTube video or a local
	video file: extract audio, transcribe, translate, and save the result.
	A failed stage aborts the run; resubmit to try again.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			log := logging.New(verboseFlag)

			var url string
			if len(args) > 0 {
				url = args[0]
			}
			if url == "" && filePath == "" {
				return fmt.Errorf("a YouTube URL or --file is required")
			}
			if url != "" && filePath != "" {
				return fmt.Errorf("pass a URL or --file, not both")
			}

			extractor := media.NewExtractor(cfg.CookiesFile, "", log)
			req := pipeline.Request{
				StartSeconds:      startSeconds,
				EndSeconds:        endSeconds,
				IncludeTimestamps: !noTimestamps,
			}

			if url != "" {
				if !media.ValidateURL(url) {
					return fmt.Errorf("invalid YouTube URL")
				}
				info, err := extractor.VideoInfo(ctx, url)
				if err != nil {
					return fmt.Errorf("probe video: %w", err)
				}
				if req.EndSeconds == 0 {
					req.EndSeconds = info.DurationSeconds
					if max := req.StartSeconds + cfg.Limits.MaxWindowSeconds; req.EndSeconds > max {
						req.EndSeconds = max
					}
				}
				if req.EndSeconds > info.DurationSeconds {
					return fmt.Errorf("selection ends at %s but the video is only %s long",
						formatSeconds(req.EndSeconds), formatSeconds(info.DurationSeconds))
				}
				req.SourceURL = url
				req.Title = info.Title
				req.ThumbnailURL = info.ThumbnailURL
			} else {
				duration, err := extractor.ProbeDuration(ctx, filePath)
				if err != nil {
					return fmt.Errorf("probe file: %w", err)
				}
				if req.EndSeconds == 0 {
					req.EndSeconds = int(duration)
					if max := req.StartSeconds + cfg.Limits.MaxWindowSeconds; req.EndSeconds > max {
						req.EndSeconds = max
					}
				}
				req.FilePath = filePath
				req.Title = strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
			}

			st, err := store.Open(cfg.DataDir)
			if err != nil {
				return err
			}
			defer st.Close()

			services, err := buildServices(cfg, st, extractor, log)
			if err != nil {
				return err
			}
			ctrl := pipeline.New(services, log)
			ctrl.Ledger().SetObserver(newProgressObserver(os.Stdout))

			fmt.Printf("Processing %q (%s to %s)\n", req.Title,
				formatSeconds(req.StartSeconds), formatSeconds(req.EndSeconds))

			analysis, err := ctrl.Run(ctx, req)
			if err != nil {
				var abort *pipeline.AbortError
				if errors.As(err, &abort) {
					fmt.Fprintf(os.Stderr, "\nAborted at %s stage: %s\n", abort.Stage, abort.Reason)
					if adapter.IsTransient(abort.Err) {
						fmt.Fprintln(os.Stderr, "The failure looks temporary; run the same selection again.")
					}
				}
				return err
			}

			fmt.Println()
			if analysis.ID != "" {
				fmt.Printf("Saved as %s\n", analysis.ID)
			}
			printCosts(os.Stdout, analysis.Costs)

			if showText {
				fmt.Printf("\n--- %s ---\n%s\n", cfg.Languages.SourceName, analysis.Source.Text)
				fmt.Printf("\n--- %s ---\n%s\n", cfg.Languages.TargetName, analysis.Target.Text)
			}

			if withArticle {
				if analysis.ID == "" {
					return fmt.Errorf("cannot generate an article: the analysis was not persisted")
				}
				article, err := ctrl.GenerateArticle(ctx, analysis.ID, analysis.Source.Text)
				if err != nil {
					return err
				}
				fmt.Printf("\n%s\n", article.Markdown)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&startSeconds, "start", 0, "selection start in seconds")
	cmd.Flags().IntVar(&endSeconds, "end", 0, "selection end in seconds (default: end of video, capped by the window limit)")
	cmd.Flags().StringVar(&filePath, "file", "", "local video file instead of a URL")
	cmd.Flags().BoolVar(&noTimestamps, "no-timestamps", false, "transcribe as plain text without segment timing")
	cmd.Flags().BoolVar(&withArticle, "article", false, "also generate the article")
	cmd.Flags().BoolVar(&showText, "text", false, "print the transcript and translation")
	return cmd
}

func articleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "article [id]",
		Short: "Generate the article for a saved analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			log := logging.New(verboseFlag)

			st, err := store.Open(cfg.DataDir)
			if err != nil {
				return err
			}
			defer st.Close()

			rec, err := st.Get(ctx, args[0])
			if err != nil {
				return err
			}

			gen, err := createGenerator(cfg, cfg.Adapters.Article)
			if err != nil {
				return fmt.Errorf("article adapter: %w", err)
			}
			ctrl := pipeline.New(pipeline.Services{
				Articles: service.NewArticle(gen, st, cfg, log),
			}, log)

			article, err := ctrl.GenerateArticle(ctx, rec.ID, rec.SourceText)
			if err != nil {
				return err
			}

			fmt.Println(article.Markdown)
			fmt.Println()
			printCosts(os.Stdout, article.Costs)
			return nil
		},
	}
}
