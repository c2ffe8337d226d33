package main

import (
	"context"
	"fmt"
	"time"

	"instapoem/internal/studio"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	scheduleAt       string
	scheduleHashtags string
	scheduleCaption  string
)

// scheduleCmd simulates posting a record at a future time
var scheduleCmd = &cobra.Command{
	Use:   "schedule [id]",
	Short: "Schedule a record for posting",
	Long: `Marks a record as scheduled for --at. Nothing is actually posted;
the post is simulated and the schedule is stored with the record.

Accepted time formats: RFC 3339 (2025-09-01T18:00:00Z) or local
"2006-01-02 15:04".

Example:
  instapoem schedule 3f2a... --at "2025-09-01 18:00" --hashtags "sunset, sea"`,
	Args: cobra.ExactArgs(1),
	RunE: runSchedule,
}

var unscheduleCmd = &cobra.Command{
	Use:   "unschedule [id]",
	Short: "Clear a record's schedule",
	Args:  cobra.ExactArgs(1),
	RunE:  runUnschedule,
}

func init() {
	scheduleCmd.Flags().StringVar(&scheduleAt, "at", "", "When to post (required)")
	scheduleCmd.Flags().StringVar(&scheduleHashtags, "hashtags", "", "Comma-separated hashtags")
	scheduleCmd.Flags().StringVar(&scheduleCaption, "caption", "", "Caption to post with (default: keep current)")
	_ = scheduleCmd.MarkFlagRequired("at")
}

// parseScheduleTime accepts RFC 3339 or a local "YYYY-MM-DD HH:MM".
func parseScheduleTime(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02T15:04"} {
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse --at %q: use RFC 3339 or \"YYYY-MM-DD HH:MM\"", raw)
}

func runSchedule(cmd *cobra.Command, args []string) error {
	at, err := parseScheduleTime(scheduleAt)
	if err != nil {
		return err
	}
	return withApp(cmd.Context(), false, func(ctx context.Context, a *app) error {
		rec, err := a.studio.Schedule(ctx, args[0], studio.ScheduleRequest{
			At:       at,
			Hashtags: scheduleHashtags,
			Caption:  scheduleCaption,
		})
		if err != nil {
			return err
		}
		logger.Info("Post scheduled", zap.String("id", rec.ID), zap.Time("at", at))
		fmt.Fprintf(cmd.OutOrStdout(), "Scheduled %s for %s\n", rec.ID, rec.ScheduledAt.Local().Format("Mon Jan 2 2006 15:04"))
		return nil
	})
}

func runUnschedule(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), false, func(ctx context.Context, a *app) error {
		rec, err := a.studio.Unschedule(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Unscheduled %s\n", rec.ID)
		return nil
	})
}
