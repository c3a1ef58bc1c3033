package main

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/minbar-app/minbar/pkg/config"
	"github.com/minbar-app/minbar/pkg/cost"
	"github.com/minbar-app/minbar/pkg/store"
)

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse saved analyses",
	}
	cmd.AddCommand(historyListCmd())
	cmd.AddCommand(historyShowCmd())
	cmd.AddCommand(historyDeleteCmd())
	return cmd
}

func openStore() (*store.Store, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	st, err := store.Open(cfg.DataDir)
	if err != nil {
		return nil, nil, err
	}
	return st, cfg, nil
}

func historyListCmd() *cobra.Command {
	var page, limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved analyses, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			records, total, err := st.List(cmd.Context(), page, limit)
			if err != nil {
				return err
			}
			if total == 0 {
				fmt.Println("No saved analyses yet.")
				return nil
			}

			fmt.Println(renderHistoryTable(records))
			fmt.Printf("%d of %d analyses (page %d)\n", len(records), total, page)
			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&limit, "limit", 10, "records per page")
	return cmd
}

func renderHistoryTable(records []store.Record) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"ID", "Created", "Title", "Window", "Article", "Cost"})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, WidthMax: 40},
		{Number: 6, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})

	for _, rec := range records {
		window := fmt.Sprintf("%s-%s", formatSeconds(rec.StartSeconds), formatSeconds(rec.EndSeconds))
		article := ""
		if rec.ArticleMarkdown != "" {
			article = "yes"
		}
		total := ""
		if rec.Costs != nil {
			total = cost.Format(rec.Costs.Total())
		}
		tw.AppendRow(table.Row{
			rec.ID,
			rec.CreatedAt.Local().Format("2006-01-02 15:04"),
			rec.Title,
			window,
			article,
			total,
		})
	}
	return tw.Render()
}

func historyShowCmd() *cobra.Command {
	var showArticle bool

	cmd := &cobra.Command{
		Use:   "show [id]",
		Short: "Show one analysis in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, cfg, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			rec, err := st.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Printf("ID:       %s\n", rec.ID)
			fmt.Printf("Title:    %s\n", rec.Title)
			if rec.SourceURL != "" {
				fmt.Printf("URL:      %s\n", rec.SourceURL)
			}
			fmt.Printf("Window:   %s to %s\n", formatSeconds(rec.StartSeconds), formatSeconds(rec.EndSeconds))
			fmt.Printf("Created:  %s\n", rec.CreatedAt.Local().Format("2006-01-02 15:04:05"))
			if rec.Costs != nil {
				fmt.Println()
				printCosts(os.Stdout, *rec.Costs)
			}

			fmt.Printf("\n--- %s ---\n%s\n", cfg.Languages.SourceName, rec.SourceText)
			fmt.Printf("\n--- %s ---\n%s\n", cfg.Languages.TargetName, rec.TargetText)
			if showArticle && rec.ArticleMarkdown != "" {
				fmt.Printf("\n--- Article ---\n%s\n", rec.ArticleMarkdown)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showArticle, "with-article", false, "also print the article")
	return cmd
}

func historyDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a saved analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted %s\n", args[0])
			return nil
		},
	}
}
