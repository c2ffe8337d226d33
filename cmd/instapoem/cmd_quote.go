package main

import (
	"context"
	"fmt"
	"io"

	"instapoem/internal/card"
	"instapoem/internal/history"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	quoteEmotions []string
	quoteLanguage string
)

// quoteCmd distills a record's poem into one quote per --emotion
var quoteCmd = &cobra.Command{
	Use:   "quote [id]",
	Short: "Generate emotion-styled quotes from a record's poem",
	Long: `Generates a short quote from the poem for each --emotion and attaches
the quotes to the record. Repeat --emotion to generate several at once;
either all of them are saved or none are.

Run "instapoem emotions" for the list of emotions.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuote,
}

var quoteEditCmd = &cobra.Command{
	Use:   "quote-edit [id] [quote-id] [text]",
	Short: "Replace a quote's text",
	Args:  cobra.MinimumNArgs(3),
	RunE:  runQuoteEdit,
}

var quoteTranslateCmd = &cobra.Command{
	Use:   "quote-translate [id] [quote-id]",
	Short: "Translate a quote and keep the translation",
	Args:  cobra.ExactArgs(2),
	RunE:  runQuoteTranslate,
}

var quoteDeleteCmd = &cobra.Command{
	Use:   "quote-delete [id] [quote-id]",
	Short: "Remove a quote from a record",
	Args:  cobra.ExactArgs(2),
	RunE:  runQuoteDelete,
}

func init() {
	quoteCmd.Flags().StringArrayVarP(&quoteEmotions, "emotion", "e", nil, "Emotion to write in (repeatable)")
	_ = quoteCmd.MarkFlagRequired("emotion")
	quoteTranslateCmd.Flags().StringVarP(&quoteLanguage, "language", "l", "", "Target language (required)")
	_ = quoteTranslateCmd.MarkFlagRequired("language")
}

func runQuote(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), true, func(ctx context.Context, a *app) error {
		var quotes []history.Quote
		if len(quoteEmotions) == 1 {
			q, err := a.studio.GenerateQuote(ctx, args[0], quoteEmotions[0])
			if err != nil {
				return err
			}
			quotes = []history.Quote{q}
		} else {
			var err error
			quotes, err = a.studio.GenerateQuotes(ctx, args[0], quoteEmotions)
			if err != nil {
				return err
			}
		}
		logger.Info("Quotes created", zap.String("id", args[0]), zap.Int("count", len(quotes)))
		return printQuotes(cmd.OutOrStdout(), quotes)
	})
}

func runQuoteEdit(cmd *cobra.Command, args []string) error {
	text := joinArgs(args[2:])
	return withApp(cmd.Context(), false, func(ctx context.Context, a *app) error {
		q, err := a.studio.EditQuote(ctx, args[0], args[1], text)
		if err != nil {
			return err
		}
		return printQuotes(cmd.OutOrStdout(), []history.Quote{q})
	})
}

func runQuoteTranslate(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), true, func(ctx context.Context, a *app) error {
		q, err := a.studio.TranslateQuote(ctx, args[0], args[1], quoteLanguage)
		if err != nil {
			return err
		}
		return printQuotes(cmd.OutOrStdout(), []history.Quote{q})
	})
}

func runQuoteDelete(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), false, func(ctx context.Context, a *app) error {
		if err := a.studio.DeleteQuote(ctx, args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted quote %s\n", args[1])
		return nil
	})
}

func printQuotes(w io.Writer, quotes []history.Quote) error {
	for _, q := range quotes {
		if _, err := fmt.Fprintf(w, "%s\n%s\n\n", q.ID, card.RenderQuote(q, renderWidth)); err != nil {
			return err
		}
	}
	return nil
}
