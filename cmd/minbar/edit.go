package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/minbar-app/minbar/pkg/editor"
	"github.com/minbar-app/minbar/pkg/logging"
	"github.com/minbar-app/minbar/pkg/service"
)

func editCmd() *cobra.Command {
	var (
		laneName     string
		segmentIndex int
		newText      string
		textFile     string
	)

	cmd := &cobra.Command{
		Use:   "edit [id]",
		Short: "Edit one lane of a saved analysis",
		Long: `Replace the text of one lane (or one segment of it) and save. Editing
	the source lane invalidates its translation, so source saves re-derive
	the target lane before anything is persisted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, cfg, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			log := logging.New(verboseFlag)

			var lane editor.Lane
			switch laneName {
			case "source":
				lane = editor.LaneSource
			case "target":
				lane = editor.LaneTarget
			default:
				return fmt.Errorf("--lane must be source or target, got %q", laneName)
			}

			if newText == "" && textFile == "" {
				return fmt.Errorf("--text or --text-file is required")
			}
			if textFile != "" {
				data, err := os.ReadFile(textFile)
				if err != nil {
					return fmt.Errorf("read %s: %w", textFile, err)
				}
				newText = string(data)
			}

			rec, err := st.Get(ctx, args[0])
			if err != nil {
				return err
			}

			gen, err := createGenerator(cfg, cfg.Adapters.Translation)
			if err != nil {
				return fmt.Errorf("translation adapter: %w", err)
			}
			estore := editor.NewStore(recordToAnalysis(rec), service.NewEditSave(gen, st, cfg, log))

			if err := estore.EnterEdit(lane); err != nil {
				return err
			}
			if err := estore.UpdateDraft(lane, segmentIndex, newText); err != nil {
				estore.CancelEdit()
				return err
			}
			if err := estore.SaveEdit(ctx, lane); err != nil {
				estore.CancelEdit()
				return err
			}

			updated := estore.Analysis()
			fmt.Printf("Saved %s lane of %s\n", lane, updated.ID)
			if lane == editor.LaneSource {
				fmt.Printf("\nTranslation re-derived:\n%s\n", updated.Target.Text)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&laneName, "lane", "", "lane to edit: source or target")
	cmd.Flags().IntVar(&segmentIndex, "segment", -1, "segment index to replace (omit for the whole text)")
	cmd.Flags().StringVar(&newText, "text", "", "replacement text")
	cmd.Flags().StringVar(&textFile, "text-file", "", "file containing the replacement text")
	_ = cmd.MarkFlagRequired("lane")
	return cmd
}
