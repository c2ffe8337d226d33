package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"instapoem/internal/card"
	"instapoem/internal/generation"
	"instapoem/internal/history"

	"github.com/spf13/cobra"
)

var historyScheduledOnly bool

// historyCmd groups history inspection commands
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect and manage saved poems",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved records, most recent first",
	Args:  cobra.NoArgs,
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show a record with its quotes",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a record",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryDelete,
}

var emotionsCmd = &cobra.Command{
	Use:   "emotions",
	Short: "List the emotions quotes can be written in",
	Args:  cobra.NoArgs,
	RunE:  runEmotions,
}

var languagesCmd = &cobra.Command{
	Use:   "languages",
	Short: "List suggested translation languages",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), strings.Join(generation.Languages, "\n"))
		return nil
	},
}

// configCmd writes the effective configuration
var configCmd = &cobra.Command{
	Use:   "config-init",
	Short: "Write the effective configuration to --config",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := *cfg
		// keys come from the environment, never from a written file
		out.LLM.APIKey = ""
		if err := out.Save(configPath); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", configPath)
		return nil
	},
}

func init() {
	historyListCmd.Flags().BoolVar(&historyScheduledOnly, "scheduled", false, "Only scheduled records, soonest first")
	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyDeleteCmd)
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), false, func(ctx context.Context, a *app) error {
		records := a.store.List()
		if historyScheduledOnly {
			records = a.studio.Scheduled()
		}
		if len(records) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No saved poems yet.")
			return nil
		}
		return printTable(cmd.OutOrStdout(), records)
	})
}

func printTable(w io.Writer, records []history.Record) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tFILE\tQUOTES\tIMAGE\tSCHEDULED")
	for _, r := range records {
		scheduled := "-"
		if r.ScheduledAt != nil {
			scheduled = r.ScheduledAt.Local().Format("2006-01-02 15:04")
		}
		image := "no"
		if r.HasImage() {
			image = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			r.ID, r.CreatedAt.Local().Format("2006-01-02 15:04"), r.ImageFileName, len(r.Quotes), image, scheduled)
	}
	return tw.Flush()
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), false, func(ctx context.Context, a *app) error {
		rec, err := a.studio.Get(args[0])
		if err != nil {
			return err
		}
		if err := printRecord(cmd.OutOrStdout(), rec); err != nil {
			return err
		}
		return printQuotes(cmd.OutOrStdout(), rec.Quotes)
	})
}

func runHistoryDelete(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), false, func(ctx context.Context, a *app) error {
		if err := a.studio.Delete(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
		return nil
	})
}

func runEmotions(cmd *cobra.Command, args []string) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "EMOTION\tFONT\tSTYLE")
	for _, name := range generation.Emotions {
		style, _ := generation.ResolveEmotion(name)
		fmt.Fprintf(tw, "%s\t%s\t%s\n", name, card.EmotionTheme(name).Font, style.Style)
	}
	return tw.Flush()
}
