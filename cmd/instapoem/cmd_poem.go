package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"instapoem/internal/card"
	"instapoem/internal/history"
	"instapoem/internal/media"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const renderWidth = 80

var (
	translateLanguage string
	translateApply    bool
)

// poemCmd writes a poem for a photo and records it
var poemCmd = &cobra.Command{
	Use:   "poem [image-path]",
	Short: "Write a poem inspired by a photo",
	Long: `Reads a JPG, PNG, WEBP or GIF image (10MB max), asks the model for a
poem inspired by it and saves the result as a new history record.`,
	Args: cobra.ExactArgs(1),
	RunE: runPoem,
}

var regenerateCmd = &cobra.Command{
	Use:   "regenerate [id]",
	Short: "Write a fresh poem for a record's photo",
	Args:  cobra.ExactArgs(1),
	RunE:  runRegenerate,
}

var editCmd = &cobra.Command{
	Use:   "edit [id] [poem text]",
	Short: "Replace a record's poem text",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runEdit,
}

var captionCmd = &cobra.Command{
	Use:   "caption [id] [caption]",
	Short: "Set the caption used when posting",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runCaption,
}

// translateCmd previews a translation, or applies it with --apply
var translateCmd = &cobra.Command{
	Use:   "translate [id]",
	Short: "Translate a record's poem",
	Long: `Translates the poem into --language. The translation is printed
only, unless --apply replaces the poem with it.`,
	Args: cobra.ExactArgs(1),
	RunE: runTranslate,
}

func init() {
	translateCmd.Flags().StringVarP(&translateLanguage, "language", "l", "", "Target language (required)")
	translateCmd.Flags().BoolVar(&translateApply, "apply", false, "Replace the poem with the translation")
	_ = translateCmd.MarkFlagRequired("language")
}

func runPoem(cmd *cobra.Command, args []string) error {
	img, name, err := media.LoadImageFile(args[0])
	if err != nil {
		return err
	}
	return withApp(cmd.Context(), true, func(ctx context.Context, a *app) error {
		rec, err := a.studio.CreateFromImage(ctx, img.String(), name)
		if err != nil {
			return err
		}
		logger.Info("Poem created", zap.String("id", rec.ID), zap.String("file", name))
		return printRecord(cmd.OutOrStdout(), rec)
	})
}

func runRegenerate(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), true, func(ctx context.Context, a *app) error {
		rec, err := a.studio.RegeneratePoem(ctx, args[0])
		if err != nil {
			return err
		}
		return printRecord(cmd.OutOrStdout(), rec)
	})
}

func runEdit(cmd *cobra.Command, args []string) error {
	text := joinArgs(args[1:])
	return withApp(cmd.Context(), false, func(ctx context.Context, a *app) error {
		rec, err := a.studio.EditPoem(ctx, args[0], text)
		if err != nil {
			return err
		}
		return printRecord(cmd.OutOrStdout(), rec)
	})
}

func runCaption(cmd *cobra.Command, args []string) error {
	caption := joinArgs(args[1:])
	return withApp(cmd.Context(), false, func(ctx context.Context, a *app) error {
		rec, err := a.studio.SetCaption(ctx, args[0], caption)
		if err != nil {
			return err
		}
		return printRecord(cmd.OutOrStdout(), rec)
	})
}

func runTranslate(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), true, func(ctx context.Context, a *app) error {
		text, err := a.studio.TranslatePoem(ctx, args[0], translateLanguage)
		if err != nil {
			return err
		}
		if !translateApply {
			fmt.Fprintf(cmd.OutOrStdout(), "%s translation:\n\n%s\n", translateLanguage, text)
			return nil
		}
		rec, err := a.studio.ApplyTranslation(ctx, args[0], text)
		if err != nil {
			return err
		}
		return printRecord(cmd.OutOrStdout(), rec)
	})
}

func printRecord(w io.Writer, rec history.Record) error {
	out, err := card.RenderRecord(rec, renderWidth)
	if err != nil {
		// fall back to the raw markdown
		logger.Debug("Glamour render failed", zap.Error(err))
		out = card.RecordMarkdown(rec)
	}
	_, err = fmt.Fprint(w, out)
	return err
}

func joinArgs(args []string) string {
	return strings.Join(args, " ")
}
